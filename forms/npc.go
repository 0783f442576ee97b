// Copyright 2026 Fo3dump. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package forms

import "github.com/fo3dump/x360core/rtctx"

// NPCStructSize is the base PDB-declared struct size before the build
// shift is applied.
const NPCStructSize = 492

// NPCStats is populated only when ACBS validation succeeds.
type NPCStats struct {
	ACBS ActorBaseStats
}

// FaceGenMorphs holds the three optional FaceGen morph float arrays.
type FaceGenMorphs struct {
	SymmetricKeys  []float32
	AsymmetricKeys []float32
	TextureKeys    []float32
}

// NPCRecord is the full NPC_ typed record.
type NPCRecord struct {
	Header RecordHeader

	EditorID    string
	FullName    string
	Script      uint32
	ScriptValid bool

	// Stats/SpecialStats/Skills/AiData are absent on a "minimal NPC"
	// (ACBS rejected).
	Stats        NPCStats
	HasStats     bool
	SpecialStats [7]uint8
	HasSpecial   bool
	Skills       [14]uint8
	HasSkills    bool
	AiData       AIData
	HasAiData    bool

	DeathItem      uint32
	HasDeathItem   bool
	VoiceType      uint32
	HasVoiceType   bool
	Template       uint32
	HasTemplate    bool
	Race           uint32
	HasRace        bool
	Class          uint32
	HasClass       bool
	Hair           uint32
	HasHair        bool
	Eyes           uint32
	HasEyes        bool
	CombatStyle    uint32
	HasCombatStyle bool

	HairLength    float32
	HasHairLength bool

	Inventory []InventoryItem
	Factions  []FactionMembership
	Packages  []PackageRef

	FaceGen FaceGenMorphs
}

// ReadNPC decodes a TESNPC candidate, including the "minimal NPC"
// graceful-degradation path: if ACBS validation fails, a minimal
// record is still returned with FormID, EditorID, FullName, Script,
// and Offset populated.
func ReadNPC(ctx *rtctx.Context, candidate FormCandidate) (NPCRecord, bool) {
	if candidate.ExpectedFormType != FormTypeNPC {
		return NPCRecord{}, false
	}

	shift := ctx.Shift()
	structSize := NPCStructSize + shift
	if candidate.FileOffset+structSize > ctx.FileSize {
		return NPCRecord{}, false
	}

	buf, ok := ctx.ReadBytes(candidate.FileOffset, structSize)
	if !ok {
		return NPCRecord{}, false
	}

	header, ok := readTESFormHeader(ctx, candidate.FileOffset, candidate)
	if !ok {
		return NPCRecord{}, false
	}

	rec := NPCRecord{
		Header:   header,
		EditorID: candidate.EditorID,
		FullName: candidate.DisplayName,
	}

	if script, ok := ctx.FollowPointerVAToFormID(be32(buf, 248+shift)); ok {
		rec.Script = script
		rec.ScriptValid = true
	}

	acbs, acbsOK := readACBS(ctx, candidate.FileOffset+52+shift, ActorNPC)
	if !acbsOK {
		// Minimal NPC: FormID, EditorID, FullName, Script, Offset only.
		return rec, true
	}
	rec.Stats = NPCStats{ACBS: acbs}
	rec.HasStats = true

	if deathItem, ok := ctx.FollowPointerVAToFormID(be32(buf, 76+shift)); ok {
		rec.DeathItem, rec.HasDeathItem = deathItem, true
	}
	if voiceType, ok := ctx.FollowPointerVAToFormID(be32(buf, 80+shift)); ok {
		rec.VoiceType, rec.HasVoiceType = voiceType, true
	}
	if template, ok := ctx.FollowPointerVAToFormID(be32(buf, 84+shift)); ok {
		rec.Template, rec.HasTemplate = template, true
	}
	if race, ok := ctx.FollowPointerVAToFormID(be32(buf, 272+shift)); ok {
		rec.Race, rec.HasRace = race, true
	}
	if class, ok := ctx.FollowPointerVAToFormID(be32(buf, 304+shift)); ok {
		rec.Class, rec.HasClass = class, true
	}
	if hair, ok := ctx.FollowPointerVAToFormID(be32(buf, 440+shift)); ok {
		rec.Hair, rec.HasHair = hair, true
	}
	if eyes, ok := ctx.FollowPointerVAToFormID(be32(buf, 448+shift)); ok {
		rec.Eyes, rec.HasEyes = eyes, true
	}
	if combatStyle, ok := ctx.FollowPointerVAToFormID(be32(buf, 468+shift)); ok {
		rec.CombatStyle, rec.HasCombatStyle = combatStyle, true
	}

	rec.Inventory = walkInventory(ctx, be32(buf, 104+shift), be32(buf, 108+shift))

	factionHeadVA := be32(buf, 96+shift)
	rec.Factions = walkFactions(ctx, factionHeadVA)

	// S.P.E.C.I.A.L.: 7 bytes, each <= 15, sum > 0.
	var special [7]uint8
	sum := 0
	specialValid := true
	for i := 0; i < 7; i++ {
		v := buf[188+shift+uint32(i)]
		if v > 15 {
			specialValid = false
			break
		}
		special[i] = v
		sum += int(v)
	}
	if specialValid && sum > 0 {
		rec.SpecialStats = special
		rec.HasSpecial = true
	}

	// Skills: 14 bytes, each <= 100, sum > 0.
	var skills [14]uint8
	skillSum := 0
	skillsValid := true
	for i := 0; i < 14; i++ {
		v := buf[276+shift+uint32(i)]
		if v > 100 {
			skillsValid = false
			break
		}
		skills[i] = v
		skillSum += int(v)
	}
	if skillsValid && skillSum > 0 {
		rec.Skills = skills
		rec.HasSkills = true
	}

	if aiData, ok := readAIData(ctx, candidate.FileOffset+148+shift, candidate.FileOffset+152+shift,
		candidate.FileOffset+156+shift, candidate.FileOffset+162+shift); ok {
		rec.AiData = aiData
		rec.HasAiData = true
	}

	// Hair length: 0 means null/unset; otherwise validated in [0, 10].
	if hairLength, ok := ctx.ReadFloatBE(candidate.FileOffset + 444 + shift); ok {
		if rtctx.IsExactZeroBits(hairLength) {
			// unset, leave HasHairLength false
		} else if rtctx.IsNormalFloat(hairLength) && hairLength >= 0 && hairLength <= 10 {
			rec.HairLength, rec.HasHairLength = hairLength, true
		}
	}

	rec.FaceGen.SymmetricKeys = readFaceGenArray(ctx, be32(buf, 320+shift), be32(buf, 332+shift))
	rec.FaceGen.AsymmetricKeys = readFaceGenArray(ctx, be32(buf, 352+shift), be32(buf, 364+shift))
	rec.FaceGen.TextureKeys = readFaceGenArray(ctx, be32(buf, 384+shift), be32(buf, 396+shift))

	itemVA, nextVA := be32(buf, 168+shift), be32(buf, 172+shift)
	rec.Packages = walkPackageList(ctx, itemVA, nextVA)

	return rec, true
}

// readFaceGenArray follows a (pointer, count) pair describing a
// FaceGen morph float array, capping count at 200 and requiring at
// least 50% of the values to be normal and |value| < 100.
func readFaceGenArray(ctx *rtctx.Context, ptrVA, countRaw uint32) []float32 {
	count := countRaw
	if count == 0 || count > 200 {
		return nil
	}
	if !ctx.IsValidPointer(ptrVA) {
		return nil
	}
	offset, ok := ctx.VAToOffset(ptrVA)
	if !ok {
		return nil
	}

	floor := ctx.FaceGenMinValidFraction
	if floor <= 0 {
		floor = 0.5
	}

	values := make([]float32, 0, count)
	validCount := 0
	for i := uint32(0); i < count; i++ {
		v, ok := ctx.ReadFloatBE(offset + i*4)
		if !ok {
			return nil
		}
		values = append(values, v)
		if rtctx.IsNormalFloat(v) && absF32(v) < 100 {
			validCount++
		}
	}
	if len(values) == 0 || float64(validCount) < float64(len(values))*floor {
		return nil
	}
	return values
}

func absF32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
