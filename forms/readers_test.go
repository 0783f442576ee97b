// Copyright 2026 Fo3dump. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package forms

import (
	"math"
	"testing"

	"github.com/fo3dump/x360core/accessor"
	"github.com/fo3dump/x360core/memmap"
	"github.com/fo3dump/x360core/rtctx"
)

const testBaseVA = 0x40000000

// newTestContext wraps data (already fully populated) in a Context
// whose single memory segment maps file offset 0 at VA testBaseVA, so
// a file offset and its VA differ by exactly testBaseVA. shift is the
// active BuildProfile shift.
func newTestContext(t *testing.T, data []byte, shift uint32) *rtctx.Context {
	t.Helper()
	acc := accessor.OpenBytes(data, nil)
	mm := memmap.New([]memmap.MemorySegment{
		{VirtualAddress: testBaseVA, Size: uint32(len(data)), FileOffset: 0},
	}, nil)
	return rtctx.New(acc, mm, rtctx.BuildProfile{Kind: rtctx.BuildRelease, Shift: shift}, 0)
}

func putU32(buf []byte, offset uint32, v uint32) {
	buf[offset] = byte(v >> 24)
	buf[offset+1] = byte(v >> 16)
	buf[offset+2] = byte(v >> 8)
	buf[offset+3] = byte(v)
}

func putU16(buf []byte, offset uint32, v uint16) {
	buf[offset] = byte(v >> 8)
	buf[offset+1] = byte(v)
}

func putF32(buf []byte, offset uint32, v float32) {
	putU32(buf, offset, math.Float32bits(v))
}

func putVA(buf []byte, offset uint32, fileOffset uint32) {
	putU32(buf, offset, testBaseVA+fileOffset)
}

func putTESFormHeader(buf []byte, offset uint32, formType FormType, formID, flags uint32) {
	buf[offset+4] = byte(formType)
	putU32(buf, offset+8, flags)
	putU32(buf, offset+12, formID)
}

func TestReadNPCHappyPath(t *testing.T) {
	shift := uint32(0)
	size := NPCStructSize + shift
	data := make([]byte, size+64)

	putTESFormHeader(data, 0, FormTypeNPC, 0x00112233, 0)

	// ACBS at 52: fatigue, bartergold, level, calcmin, calcmax,
	// speedmult, karma, disposition, templateflags.
	acbsOffset := 52 + shift
	putU32(data, acbsOffset, 0)
	putU16(data, acbsOffset+4, 100)  // fatigue
	putU16(data, acbsOffset+6, 500)  // bartergold
	putU16(data, acbsOffset+8, 5)    // level
	putU16(data, acbsOffset+10, 50)  // calcmin
	putU16(data, acbsOffset+12, 50)  // calcmax
	putU16(data, acbsOffset+14, 100) // speedmult
	putF32(data, acbsOffset+16, 0)   // karma
	putU16(data, acbsOffset+20, 0)   // disposition
	putU16(data, acbsOffset+22, 0)   // templateflags

	ctx := newTestContext(t, data, shift)
	candidate := FormCandidate{
		FileOffset:       0,
		ExpectedFormID:   0x00112233,
		ExpectedFormType: FormTypeNPC,
		EditorID:         "TestNPC",
	}

	rec, ok := ReadNPC(ctx, candidate)
	if !ok {
		t.Fatalf("ReadNPC rejected a valid minimal-passing record")
	}
	if rec.Header.FormID != 0x00112233 {
		t.Fatalf("FormID = %#x", rec.Header.FormID)
	}
	if !rec.HasStats {
		t.Fatalf("expected ACBS to validate and HasStats to be true")
	}
	if rec.EditorID != "TestNPC" {
		t.Fatalf("EditorID = %q", rec.EditorID)
	}
}

func TestReadNPCReleaseShift(t *testing.T) {
	// A Release-build (shift 16) NPC with every inline
	// subrecord populated at its shifted offset.
	shift := uint32(16)
	size := NPCStructSize + shift
	data := make([]byte, size+64)

	putTESFormHeader(data, 0, FormTypeNPC, 0x000E2790, 0)

	acbsOffset := 52 + shift         // 68
	putU16(data, acbsOffset+4, 100)  // fatigue
	putU16(data, acbsOffset+6, 200)  // barter gold
	putU16(data, acbsOffset+8, 5)    // level
	putU16(data, acbsOffset+10, 1)   // calc min
	putU16(data, acbsOffset+12, 5)   // calc max
	putU16(data, acbsOffset+14, 100) // speed mult
	putF32(data, acbsOffset+16, 50)  // karma

	special := []byte{6, 5, 4, 4, 4, 6, 4}
	copy(data[188+shift:], special) // 204
	skills := []byte{12, 12, 14, 14, 14, 12, 47, 12, 12, 47, 47, 12, 12, 12}
	copy(data[276+shift:], skills) // 292

	ai := 148 + shift   // 164
	data[ai] = 1        // aggression
	data[ai+1] = 4      // confidence
	data[ai+2] = 50     // energy
	data[ai+3] = 50     // responsibility
	data[162+shift] = 2 // assistance, 178

	ctx := newTestContext(t, data, shift)
	rec, ok := ReadNPC(ctx, FormCandidate{
		ExpectedFormID:   0x000E2790,
		ExpectedFormType: FormTypeNPC,
	})
	if !ok {
		t.Fatalf("ReadNPC rejected a valid Release-build record")
	}
	if rec.Header.FormID != 0x000E2790 {
		t.Fatalf("FormID = %#x", rec.Header.FormID)
	}
	if !rec.HasStats || rec.Stats.ACBS.Level != 5 {
		t.Fatalf("Stats = %+v has=%v", rec.Stats, rec.HasStats)
	}
	if !rec.HasSpecial || rec.SpecialStats != [7]uint8{6, 5, 4, 4, 4, 6, 4} {
		t.Fatalf("SpecialStats = %v", rec.SpecialStats)
	}
	if !rec.HasSkills || rec.Skills[6] != 47 {
		t.Fatalf("Skills = %v", rec.Skills)
	}
	if !rec.HasAiData || rec.AiData.Aggression != 1 || rec.AiData.Assistance != 2 {
		t.Fatalf("AiData = %+v", rec.AiData)
	}
}

func TestReadNPCMinimalDegradation(t *testing.T) {
	shift := uint32(0)
	size := NPCStructSize + shift
	data := make([]byte, size+64)

	putTESFormHeader(data, 0, FormTypeNPC, 0x00112233, 0)

	// ACBS fatigue out of range (> 5000) fails validation.
	acbsOffset := 52 + shift
	putU16(data, acbsOffset+4, 60000)

	ctx := newTestContext(t, data, shift)
	candidate := FormCandidate{
		FileOffset:       0,
		ExpectedFormID:   0x00112233,
		ExpectedFormType: FormTypeNPC,
		EditorID:         "MinimalNPC",
	}

	rec, ok := ReadNPC(ctx, candidate)
	if !ok {
		t.Fatalf("expected minimal NPC to still be returned")
	}
	if rec.HasStats {
		t.Fatalf("expected HasStats false on ACBS rejection")
	}
	if len(rec.Inventory) != 0 {
		t.Fatalf("minimal NPC must not carry inventory")
	}
	if rec.EditorID != "MinimalNPC" {
		t.Fatalf("EditorID = %q, minimal record must still carry identity fields", rec.EditorID)
	}
}

func TestReadContainerInventoryCycle(t *testing.T) {
	shift := uint32(0)
	size := ContainerStructSize + shift
	// layout: container struct, then one ContainerObject at +size,
	// then one list node at +size+8 that points back to itself (cycle).
	coOffset := size
	nodeOffset := size + 8
	itemHeaderOffset := size + 24

	data := make([]byte, itemHeaderOffset+16)

	putTESFormHeader(data, 0, FormTypeContainer, 0xAABBCCDD, 0)
	putF32(data, 20+shift, 5.0) // weight

	// inline first_data_ptr / first_next_ptr at 24/28.
	putVA(data, 24+shift, coOffset)
	putVA(data, 28+shift, nodeOffset)

	// ContainerObject at coOffset: count:i32=3, item_ptr -> item header.
	putU32(data, coOffset, 3)
	putVA(data, coOffset+4, itemHeaderOffset)
	putTESFormHeader(data, itemHeaderOffset, FormTypeMisc, 0x11223344, 0)

	// list node at nodeOffset carries no further item and points back to
	// itself: { data_ptr, next_ptr }. The visited-node set must stop the
	// walk on the second encounter instead of looping forever.
	putU32(data, nodeOffset, 0)
	putVA(data, nodeOffset+4, nodeOffset)

	ctx := newTestContext(t, data, shift)
	candidate := FormCandidate{
		FileOffset:       0,
		ExpectedFormID:   0xAABBCCDD,
		ExpectedFormType: FormTypeContainer,
	}

	rec, ok := ReadContainer(ctx, candidate)
	if !ok {
		t.Fatalf("ReadContainer rejected a valid record")
	}
	if len(rec.Inventory) != 1 {
		t.Fatalf("expected the cyclic list walk to terminate after one item, got %d", len(rec.Inventory))
	}
	if rec.Inventory[0].FormID != 0x11223344 || rec.Inventory[0].Count != 3 {
		t.Fatalf("unexpected inventory entry: %+v", rec.Inventory[0])
	}
}

func TestReadersRejectMutatedFormID(t *testing.T) {
	// Mutating any byte of the FormID field turns acceptance into
	// rejection.
	shift := uint32(0)
	data := make([]byte, FactionStructSize+shift)
	putTESFormHeader(data, 0, FormTypeFaction, 0x00000042, 0)

	candidate := FormCandidate{
		ExpectedFormID:   0x00000042,
		ExpectedFormType: FormTypeFaction,
	}

	if _, ok := ReadFaction(newTestContext(t, data, shift), candidate); !ok {
		t.Fatalf("baseline record must be accepted")
	}

	for b := uint32(12); b < 16; b++ {
		mutated := make([]byte, len(data))
		copy(mutated, data)
		mutated[b] ^= 0x01
		if _, ok := ReadFaction(newTestContext(t, mutated, shift), candidate); ok {
			t.Fatalf("mutating FormID byte %d must reject the candidate", b)
		}
	}
}

func TestReadFactionBasic(t *testing.T) {
	shift := uint32(0)
	size := FactionStructSize + shift
	data := make([]byte, size+32)

	putTESFormHeader(data, 0, FormTypeFaction, 0x00000042, 0)
	putU32(data, 52+shift, 0x1) // flags

	// BSStringT descriptor at 28+shift -> "Faction"
	nameVA := size
	putVA(data, 28+shift, nameVA)
	putU16(data, 28+shift+4, 7)
	copy(data[nameVA:], "Faction")

	ctx := newTestContext(t, data, shift)
	candidate := FormCandidate{
		FileOffset:       0,
		ExpectedFormID:   0x00000042,
		ExpectedFormType: FormTypeFaction,
	}

	rec, ok := ReadFaction(ctx, candidate)
	if !ok {
		t.Fatalf("ReadFaction rejected a valid record")
	}
	if rec.Flags != 1 {
		t.Fatalf("Flags = %#x", rec.Flags)
	}
	if rec.FullName != "Faction" {
		t.Fatalf("FullName = %q", rec.FullName)
	}
}

func TestReadSimpleItemClampsOutOfRangeFields(t *testing.T) {
	shift := uint32(0)
	size := MiscLayout.StructSize + shift
	data := make([]byte, size+16)

	putTESFormHeader(data, 0, FormTypeMisc, 0x00000099, 0)
	putU32(data, MiscLayout.ValueOffset+shift, maxCurrency+1) // out of range
	putF32(data, MiscLayout.WeightOffset+shift, 2.5)

	ctx := newTestContext(t, data, shift)
	candidate := FormCandidate{
		FileOffset:       0,
		ExpectedFormID:   0x00000099,
		ExpectedFormType: FormTypeMisc,
	}

	rec, ok := ReadSimpleItem(ctx, candidate, MiscLayout)
	if !ok {
		t.Fatalf("ReadSimpleItem rejected the whole record on an out-of-range field")
	}
	if rec.Value != 0 {
		t.Fatalf("expected out-of-range Value to clamp to 0, got %d", rec.Value)
	}
	if rec.Weight != 2.5 {
		t.Fatalf("Weight = %v", rec.Weight)
	}
}

func TestReadWeaponSoundPointers(t *testing.T) {
	shift := uint32(0)
	size := WeaponStructSize + shift
	soundHeaderOffset := size + 64
	data := make([]byte, soundHeaderOffset+16)

	putTESFormHeader(data, 0, FormTypeWeapon, 0x000000AB, 0)
	putU32(data, weaponValueOffset+shift, 250)
	putF32(data, weaponWeightOffset+shift, 8.0)
	putU32(data, weaponHealthOffset+shift, 100)
	putU32(data, weaponDamageOffset+shift, 20)
	data[weaponAnimTypeOffset+shift] = byte(WeaponType1HPistol)

	// First sound pointer resolves; the other 8 stay zero.
	putVA(data, weaponSoundsOffset+shift, soundHeaderOffset)
	putTESFormHeader(data, soundHeaderOffset, FormTypeMisc, 0x55667788, 0)

	ctx := newTestContext(t, data, shift)
	candidate := FormCandidate{
		FileOffset:       0,
		ExpectedFormID:   0x000000AB,
		ExpectedFormType: FormTypeWeapon,
	}

	rec, ok := ReadWeapon(ctx, candidate)
	if !ok {
		t.Fatalf("ReadWeapon rejected a valid record")
	}
	if rec.WeaponType != WeaponType1HPistol {
		t.Fatalf("WeaponType = %v", rec.WeaponType)
	}
	if !rec.Sounds.Present[0] || rec.Sounds.IDs[0] != 0x55667788 {
		t.Fatalf("expected sound[0] to resolve, got %+v", rec.Sounds)
	}
	for i := 1; i < 9; i++ {
		if rec.Sounds.Present[i] {
			t.Fatalf("expected sound[%d] to be absent", i)
		}
	}
}

func TestReadPackageLocationAndTarget(t *testing.T) {
	shift := uint32(0)
	size := PackageStructSize + shift
	locOffset := size
	targetOffset := size + 16
	formHeaderOffset := size + 32
	data := make([]byte, formHeaderOffset+16)

	putTESFormHeader(data, 0, FormTypePackage, 0x000000CD, 0)

	// PACKAGE_DATA at 28+shift.
	putU32(data, 28+shift, 0x1) // flags
	data[32+shift] = 3          // type <= 20
	putU16(data, 34+shift, 0)   // fallout flags
	putU16(data, 36+shift, 0)   // type specific

	// PackageSchedule at 56+shift.
	data[56+shift] = 5           // month
	data[56+shift+1] = 2         // day of week
	data[56+shift+2] = 1         // date
	data[56+shift+3] = 12        // time
	putU16(data, 56+shift+4, 60) // duration

	// Location pointer at 44+shift -> { type:0 (FormID), value }.
	putVA(data, 44+shift, locOffset)
	putU32(data, locOffset, 0)
	putVA(data, locOffset+4, formHeaderOffset)
	putTESFormHeader(data, formHeaderOffset, FormTypeMisc, 0x22334455, 0)

	// Target pointer at 48+shift -> { type:1 (FormID), value }.
	putVA(data, 48+shift, targetOffset)
	putU32(data, targetOffset, 1)
	putVA(data, targetOffset+4, formHeaderOffset)

	ctx := newTestContext(t, data, shift)
	candidate := FormCandidate{
		FileOffset:       0,
		ExpectedFormID:   0x000000CD,
		ExpectedFormType: FormTypePackage,
	}

	rec, ok := ReadPackage(ctx, candidate)
	if !ok {
		t.Fatalf("ReadPackage rejected a valid record")
	}
	if !rec.HasLocation || !rec.Location.HasFormID || rec.Location.FormID != 0x22334455 {
		t.Fatalf("unexpected Location: %+v", rec.Location)
	}
	if !rec.HasTarget || !rec.Target.HasFormID || rec.Target.FormID != 0x22334455 {
		t.Fatalf("unexpected Target: %+v", rec.Target)
	}
	if !rec.HasSchedule || rec.Schedule.Duration != 60 {
		t.Fatalf("unexpected Schedule: %+v", rec.Schedule)
	}
}

func TestReadProjectileBasic(t *testing.T) {
	size := uint32(ProjectileStructSize)
	soundHeaderOffset := size + 32
	data := make([]byte, soundHeaderOffset+16)

	putTESFormHeader(data, 0, FormTypeProjectile, 0x000000EE, 0)
	putF32(data, projGravityOffset, -9.8)
	putF32(data, projSpeedOffset, 4000)
	putF32(data, projRangeOffset, 10000)
	putF32(data, projFlashOffset, 0.1)
	putF32(data, projForceOffset, 50)
	putVA(data, projExplosionOffset, soundHeaderOffset)
	putTESFormHeader(data, soundHeaderOffset, FormTypeMisc, 0x99887766, 0)

	ctx := newTestContext(t, data, 0)
	candidate := FormCandidate{
		FileOffset:       0,
		ExpectedFormID:   0x000000EE,
		ExpectedFormType: FormTypeProjectile,
	}

	rec, ok := ReadProjectile(ctx, candidate)
	if !ok {
		t.Fatalf("ReadProjectile rejected a valid record")
	}
	if rec.Speed != 4000 {
		t.Fatalf("Speed = %v", rec.Speed)
	}
	if !rec.HasExplosion || rec.Explosion != 0x99887766 {
		t.Fatalf("unexpected Explosion: %+v", rec)
	}
}

func TestReadScriptVariablesAndReferences(t *testing.T) {
	size := uint32(ScriptStructSize)
	refNodeOffset := size
	refDataOffset := size + 8
	varNodeOffset := size + 24
	varDataOffset := size + 32
	nameOffset := size + 72
	srcOffset := size + 96
	data := make([]byte, srcOffset+32)

	putTESFormHeader(data, 0, FormTypeScript, 0x000000FF, 0)

	// SCRIPT_HEADER at 40: variable_count, ref_object_count, data_size,
	// last_variable_id, is_quest, is_magic_effect, is_compiled.
	putU32(data, 40, 1)
	putU32(data, 44, 1)
	putU32(data, 48, 0)
	putU32(data, 52, 0)
	data[56] = 0
	data[57] = 0
	data[58] = 1

	// source text char* at 16.
	putVA(data, scriptSourceTextOffset, srcOffset)
	copy(data[srcOffset:], "scn DoorScript\x00")

	// referenced-object list head at 24/28.
	putVA(data, scriptRefListOffset, refDataOffset)
	putVA(data, scriptRefListOffset+4, refNodeOffset)
	putU32(data, refDataOffset+8, 0) // p_form VA 0 -> no FormID
	putU32(data, refDataOffset+12, 7)
	putU32(data, refNodeOffset, 0) // terminate after first
	putU32(data, refNodeOffset+4, 0)

	// variable list head at 32/36.
	putVA(data, scriptVarListOffset, varDataOffset)
	putVA(data, scriptVarListOffset+4, varNodeOffset)
	putU32(data, varDataOffset, 3) // variable index
	data[varDataOffset+12] = 1     // is_integer
	putVA(data, varDataOffset+24, nameOffset)
	putU16(data, varDataOffset+24+4, 3)
	copy(data[nameOffset:], "foo")
	putU32(data, varNodeOffset, 0)
	putU32(data, varNodeOffset+4, 0)

	ctx := newTestContext(t, data, 0)
	candidate := FormCandidate{
		FileOffset:       0,
		ExpectedFormID:   0x000000FF,
		ExpectedFormType: FormTypeScript,
	}

	rec, ok := ReadScript(ctx, candidate)
	if !ok {
		t.Fatalf("ReadScript rejected a valid record")
	}
	if !rec.Header.IsCompiled {
		t.Fatalf("expected IsCompiled true")
	}
	if !rec.HasSourceText || rec.SourceText != "scn DoorScript" {
		t.Fatalf("SourceText = %q has=%v", rec.SourceText, rec.HasSourceText)
	}
	if len(rec.ReferencedObjects) != 1 || rec.ReferencedObjects[0].VariableID != 7 {
		t.Fatalf("unexpected ReferencedObjects: %+v", rec.ReferencedObjects)
	}
	if len(rec.Variables) != 1 || !rec.Variables[0].IsInteger || rec.Variables[0].Name != "foo" {
		t.Fatalf("unexpected Variables: %+v", rec.Variables)
	}
}
