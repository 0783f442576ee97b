// Copyright 2026 Fo3dump. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package forms

import "github.com/fo3dump/x360core/rtctx"

// ProjectileStructSize is the fixed struct size for
// TESProjectileData; it is never shifted.
const ProjectileStructSize = 224

// ProjectileRecord is the full PROJ typed record.
type ProjectileRecord struct {
	Header RecordHeader

	EditorID string
	FullName string

	Gravity             float32
	Speed               float32
	Range               float32
	MuzzleFlashDuration float32
	Force               float32

	Sounds       [4]uint32
	HasSound     [4]bool
	Explosion    uint32
	HasExplosion bool
}

// projectile field offsets (fixed, not shifted).
const (
	projGravityOffset   = 16
	projSpeedOffset     = 20
	projRangeOffset     = 24
	projFlashOffset     = 28
	projForceOffset     = 32
	projSoundsOffset    = 36 // 4 * 4 bytes
	projExplosionOffset = 52
)

// ReadProjectile decodes a projectile candidate: physics floats
// validated as finite non-NaN,
// four sound pointers, and one explosion pointer.
func ReadProjectile(ctx *rtctx.Context, candidate FormCandidate) (ProjectileRecord, bool) {
	if candidate.ExpectedFormType != FormTypeProjectile {
		return ProjectileRecord{}, false
	}

	if candidate.FileOffset+ProjectileStructSize > ctx.FileSize {
		return ProjectileRecord{}, false
	}

	buf, ok := ctx.ReadBytes(candidate.FileOffset, ProjectileStructSize)
	if !ok {
		return ProjectileRecord{}, false
	}

	header, ok := readTESFormHeader(ctx, candidate.FileOffset, candidate)
	if !ok {
		return ProjectileRecord{}, false
	}

	rec := ProjectileRecord{
		Header:   header,
		EditorID: candidate.EditorID,
		FullName: candidate.DisplayName,

		Gravity:             clampF32(beF32(buf, projGravityOffset), -maxRange, maxRange, rtctx.IsNormalFloat),
		Speed:               clampF32(beF32(buf, projSpeedOffset), 0, maxRange, rtctx.IsNormalFloat),
		Range:               clampF32(beF32(buf, projRangeOffset), 0, maxRange, rtctx.IsNormalFloat),
		MuzzleFlashDuration: clampF32(beF32(buf, projFlashOffset), 0, maxRate, rtctx.IsNormalFloat),
		Force:               clampF32(beF32(buf, projForceOffset), 0, maxRange, rtctx.IsNormalFloat),
	}

	for i := 0; i < 4; i++ {
		ptrVA := be32(buf, projSoundsOffset+uint32(i*4))
		if formID, ok := ctx.FollowPointerVAToFormID(ptrVA); ok {
			rec.Sounds[i] = formID
			rec.HasSound[i] = true
		}
	}

	if explosion, ok := ctx.FollowPointerVAToFormID(be32(buf, projExplosionOffset)); ok {
		rec.Explosion, rec.HasExplosion = explosion, true
	}

	return rec, true
}
