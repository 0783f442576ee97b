// Copyright 2026 Fo3dump. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package forms

import "github.com/fo3dump/x360core/rtctx"

// WeaponStructSize is the base PDB-declared struct size.
const WeaponStructSize = 236

// WeaponType is derived from the animation-type byte.
type WeaponType uint8

// Known weapon animation types; valid values are [0, 11].
const (
	WeaponTypeHandToHand WeaponType = iota
	WeaponType1HMelee
	WeaponType2HMelee
	WeaponType1HPistol
	WeaponType2HRifle
	WeaponTypeShotgun
	WeaponTypeSMG
	WeaponTypeLauncher
	WeaponTypeMinigun
	WeaponTypeFlamer
	WeaponTypeGrenade
	WeaponTypeMine
)

// WeaponDNAM is the fixed-relative-offset DNAM data block (not
// shifted).
type WeaponDNAM struct {
	Reach       float32
	ShotsPerSec float32
	MinRange    float32
	MaxRange    float32
	CriticalPct float32
}

// SoundFormIDs is the 9-entry sound-pointer set every weapon reads.
type SoundFormIDs struct {
	IDs     [9]uint32
	Present [9]bool
}

// WeaponRecord is the full WEAP typed record.
type WeaponRecord struct {
	Header RecordHeader

	EditorID string
	FullName string

	Value  uint32
	Weight float32
	Health uint32
	Damage uint32

	WeaponType WeaponType

	Sounds SoundFormIDs

	ImpactDataSet    uint32
	HasImpactDataSet bool
	Projectile       uint32
	HasProjectile    bool
	Ammo             uint32
	HasAmmo          bool

	DNAM WeaponDNAM
}

// weapon field offsets (PDB offset + shift unless noted "fixed").
const (
	weaponValueOffset      = 16
	weaponWeightOffset     = 20
	weaponHealthOffset     = 24
	weaponDamageOffset     = 28
	weaponAnimTypeOffset   = 32
	weaponSoundsOffset     = 36 // 9 * 4 bytes
	weaponImpactDataOffset = 72
	weaponProjectileOffset = 76
	weaponAmmoOffset       = 80
	weaponDNAMOffset       = 84 // block base shifts; offsets inside the block do not
)

// ReadWeapon decodes a TESObjectWEAP candidate,
// deriving WeaponType from the animation-type byte, the 9 sound
// pointers, the impact-dataset/projectile/ammo FormID pointers, and
// the fixed-offset DNAM block.
func ReadWeapon(ctx *rtctx.Context, candidate FormCandidate) (WeaponRecord, bool) {
	if candidate.ExpectedFormType != FormTypeWeapon {
		return WeaponRecord{}, false
	}

	shift := ctx.Shift()
	structSize := WeaponStructSize + shift
	if candidate.FileOffset+structSize > ctx.FileSize {
		return WeaponRecord{}, false
	}

	buf, ok := ctx.ReadBytes(candidate.FileOffset, structSize)
	if !ok {
		return WeaponRecord{}, false
	}

	header, ok := readTESFormHeader(ctx, candidate.FileOffset, candidate)
	if !ok {
		return WeaponRecord{}, false
	}

	rec := WeaponRecord{
		Header:   header,
		EditorID: candidate.EditorID,
		FullName: candidate.DisplayName,
		Value:    clampU32(be32(buf, weaponValueOffset+shift), maxCurrency),
		Weight:   clampF32(beF32(buf, weaponWeightOffset+shift), 0, maxWeight, rtctx.IsNormalFloat),
		Health:   clampU32(be32(buf, weaponHealthOffset+shift), maxHealth),
		Damage:   clampU32(be32(buf, weaponDamageOffset+shift), maxDamage),
	}

	animType := buf[weaponAnimTypeOffset+shift]
	if animType > 11 {
		animType = 0
	}
	rec.WeaponType = WeaponType(animType)

	for i := 0; i < 9; i++ {
		ptrVA := be32(buf, weaponSoundsOffset+shift+uint32(i*4))
		if formID, ok := ctx.FollowPointerVAToFormID(ptrVA); ok {
			rec.Sounds.IDs[i] = formID
			rec.Sounds.Present[i] = true
		}
	}

	if impact, ok := ctx.FollowPointerVAToFormID(be32(buf, weaponImpactDataOffset+shift)); ok {
		rec.ImpactDataSet, rec.HasImpactDataSet = impact, true
	}
	if proj, ok := ctx.FollowPointerVAToFormID(be32(buf, weaponProjectileOffset+shift)); ok {
		rec.Projectile, rec.HasProjectile = proj, true
	}
	if ammo, ok := ctx.FollowPointerVAToFormID(be32(buf, weaponAmmoOffset+shift)); ok {
		rec.Ammo, rec.HasAmmo = ammo, true
	}

	// DNAM is a fixed-relative-offset block inside the struct; its own
	// fields are NOT individually shifted.
	dnamBase := weaponDNAMOffset + shift
	rec.DNAM = WeaponDNAM{
		Reach:       clampF32(beF32(buf, dnamBase+0), 0, maxRate, rtctx.IsNormalFloat),
		ShotsPerSec: clampF32(beF32(buf, dnamBase+4), 0, maxRate, rtctx.IsNormalFloat),
		MinRange:    clampF32(beF32(buf, dnamBase+8), 0, maxRange, rtctx.IsNormalFloat),
		MaxRange:    clampF32(beF32(buf, dnamBase+12), 0, maxRange, rtctx.IsNormalFloat),
		CriticalPct: clampF32(beF32(buf, dnamBase+16), 0, maxCritPct, rtctx.IsNormalFloat),
	}

	return rec, true
}
