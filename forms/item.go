// Copyright 2026 Fo3dump. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package forms

import "github.com/fo3dump/x360core/rtctx"

// Validation ceilings shared across every item reader.
const (
	maxCurrency = 1_000_000
	maxWeight   = 500
	maxHealth   = 100_000
	maxDamage   = 10_000
	maxCritPct  = 100
	maxRate     = 1_000
	maxRange    = 100_000
)

// SimpleItemLayout is the PDB-offset schema a basic item type (armor,
// ammo, misc, key, consumable) supplies to ReadSimpleItem. Every such
// type follows an identical "value/weight + optional script" shape
// shape; only the concrete field offsets differ by class.
type SimpleItemLayout struct {
	FormType     FormType
	StructSize   uint32 // before shift
	ValueOffset  uint32 // u32_be currency
	WeightOffset uint32 // f32_be weight
	HealthOffset uint32 // u32_be, 0 means "this type has no health field"
	ScriptOffset uint32 // pointer, 0 means "this type has no script field"
}

// SimpleItemRecord is the shared result shape for the basic item
// readers.
type SimpleItemRecord struct {
	Header      RecordHeader
	EditorID    string
	FullName    string
	Value       uint32
	Weight      float32
	Health      uint32
	HasHealth   bool
	Script      uint32
	ScriptValid bool
}

// ReadSimpleItem is the shared reader body for the item classes
// that are just "value + weight (+ optional health/script)": armor,
// ammo, misc, key, consumable. Out-of-range value/weight/health fields
// clamp to zero; the record is still returned.
func ReadSimpleItem(ctx *rtctx.Context, candidate FormCandidate, layout SimpleItemLayout) (SimpleItemRecord, bool) {
	if candidate.ExpectedFormType != layout.FormType {
		return SimpleItemRecord{}, false
	}

	shift := ctx.Shift()
	structSize := layout.StructSize + shift
	if candidate.FileOffset+structSize > ctx.FileSize {
		return SimpleItemRecord{}, false
	}

	buf, ok := ctx.ReadBytes(candidate.FileOffset, structSize)
	if !ok {
		return SimpleItemRecord{}, false
	}

	header, ok := readTESFormHeader(ctx, candidate.FileOffset, candidate)
	if !ok {
		return SimpleItemRecord{}, false
	}

	rec := SimpleItemRecord{
		Header:   header,
		EditorID: candidate.EditorID,
		FullName: candidate.DisplayName,
		Value:    clampU32(be32(buf, layout.ValueOffset+shift), maxCurrency),
		Weight:   clampF32(beF32(buf, layout.WeightOffset+shift), 0, maxWeight, rtctx.IsNormalFloat),
	}

	if layout.HealthOffset != 0 {
		rec.Health = clampU32(be32(buf, layout.HealthOffset+shift), maxHealth)
		rec.HasHealth = true
	}

	if layout.ScriptOffset != 0 {
		if script, ok := ctx.FollowPointerVAToFormID(be32(buf, layout.ScriptOffset+shift)); ok {
			rec.Script, rec.ScriptValid = script, true
		}
	}

	return rec, true
}

// Layouts for each basic item class. Offsets are recorded in DESIGN.md.
var (
	ArmorLayout = SimpleItemLayout{
		FormType: FormTypeArmor, StructSize: 112,
		ValueOffset: 16, WeightOffset: 20, HealthOffset: 24, ScriptOffset: 28,
	}
	AmmoLayout = SimpleItemLayout{
		FormType: FormTypeAmmo, StructSize: 64,
		ValueOffset: 16, WeightOffset: 20, HealthOffset: 0, ScriptOffset: 0,
	}
	MiscLayout = SimpleItemLayout{
		FormType: FormTypeMisc, StructSize: 56,
		ValueOffset: 16, WeightOffset: 20, HealthOffset: 0, ScriptOffset: 24,
	}
	KeyLayout = SimpleItemLayout{
		FormType: FormTypeKey, StructSize: 56,
		ValueOffset: 16, WeightOffset: 20, HealthOffset: 0, ScriptOffset: 24,
	}
	ConsumableLayout = SimpleItemLayout{
		FormType: FormTypeConsumable, StructSize: 96,
		ValueOffset: 16, WeightOffset: 20, HealthOffset: 0, ScriptOffset: 28,
	}
)

// ContainerStructSize is the base PDB-declared struct size for
// TESObjectCONT.
const ContainerStructSize = 48

// ContainerRecord is the full CONT typed record.
type ContainerRecord struct {
	Header    RecordHeader
	EditorID  string
	FullName  string
	Weight    float32
	Inventory []InventoryItem
}

// ReadContainer decodes a TESObjectCONT candidate. The
// inventory list uses the identical ContainerObject/Node walk as NPC
// and Creature inventories.
func ReadContainer(ctx *rtctx.Context, candidate FormCandidate) (ContainerRecord, bool) {
	if candidate.ExpectedFormType != FormTypeContainer {
		return ContainerRecord{}, false
	}

	shift := ctx.Shift()
	structSize := ContainerStructSize + shift
	if candidate.FileOffset+structSize > ctx.FileSize {
		return ContainerRecord{}, false
	}

	buf, ok := ctx.ReadBytes(candidate.FileOffset, structSize)
	if !ok {
		return ContainerRecord{}, false
	}

	header, ok := readTESFormHeader(ctx, candidate.FileOffset, candidate)
	if !ok {
		return ContainerRecord{}, false
	}

	rec := ContainerRecord{
		Header:   header,
		EditorID: candidate.EditorID,
		FullName: candidate.DisplayName,
		Weight:   clampF32(beF32(buf, 20+shift), 0, maxWeight, rtctx.IsNormalFloat),
	}

	itemVA, nextVA := be32(buf, 24+shift), be32(buf, 28+shift)
	rec.Inventory = walkInventory(ctx, itemVA, nextVA)

	return rec, true
}
