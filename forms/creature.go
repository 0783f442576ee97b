// Copyright 2026 Fo3dump. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package forms

import "github.com/fo3dump/x360core/rtctx"

// CreatureStructSize is the base PDB-declared struct size.
const CreatureStructSize = 352

// creaturePackageListOffset is where the inline BSSimpleList<TESPackage*>
// head sits in TESCreature, before shift.
const creaturePackageListOffset = 232

// CreatureRecord is the full CREA typed record.
type CreatureRecord struct {
	Header RecordHeader

	EditorID  string
	FullName  string
	ModelPath string
	HasModel  bool

	ACBS    ActorBaseStats
	HasACBS bool

	Skills       [3]uint8
	HasSkills    bool
	AttackDamage int16
	CreatureType uint8

	Script      uint32
	ScriptValid bool

	Packages []PackageRef
}

// ReadCreature decodes a TESCreature candidate. TESCreature inherits
// the TESActorBase layout, so its package list follows the same
// BSSimpleList pattern as NPC.
func ReadCreature(ctx *rtctx.Context, candidate FormCandidate) (CreatureRecord, bool) {
	if candidate.ExpectedFormType != FormTypeCreature {
		return CreatureRecord{}, false
	}

	shift := ctx.Shift()
	structSize := CreatureStructSize + shift
	if candidate.FileOffset+structSize > ctx.FileSize {
		return CreatureRecord{}, false
	}

	buf, ok := ctx.ReadBytes(candidate.FileOffset, structSize)
	if !ok {
		return CreatureRecord{}, false
	}

	header, ok := readTESFormHeader(ctx, candidate.FileOffset, candidate)
	if !ok {
		return CreatureRecord{}, false
	}

	rec := CreatureRecord{
		Header:   header,
		EditorID: candidate.EditorID,
		FullName: candidate.DisplayName,
	}

	if acbs, ok := readACBS(ctx, candidate.FileOffset+8+shift, ActorCreature); ok {
		rec.ACBS, rec.HasACBS = acbs, true
	}

	if model, ok := ctx.ReadBSString(candidate.FileOffset, 172+shift); ok {
		rec.ModelPath, rec.HasModel = model, true
	}

	var skills [3]uint8
	for i := 0; i < 3; i++ {
		skills[i] = buf[212+shift+uint32(i)]
	}
	rec.Skills, rec.HasSkills = skills, true

	rec.AttackDamage = bei16(buf, 216+shift)

	creatureType := buf[220+shift]
	if creatureType > 7 {
		creatureType = 0
	}
	rec.CreatureType = creatureType

	if script, ok := ctx.FollowPointerVAToFormID(be32(buf, 248+shift)); ok {
		rec.Script, rec.ScriptValid = script, true
	}

	// The package-list head cannot share NPC's +168 slot here: +172
	// already holds the model-path descriptor. See DESIGN.md for the
	// chosen offset.
	itemVA, nextVA := be32(buf, creaturePackageListOffset+shift), be32(buf, creaturePackageListOffset+4+shift)
	rec.Packages = walkPackageList(ctx, itemVA, nextVA)

	return rec, true
}
