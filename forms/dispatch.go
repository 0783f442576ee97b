// Copyright 2026 Fo3dump. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package forms

import "github.com/fo3dump/x360core/rtctx"

// Dispatch routes a FormCandidate to the reader matching its
// ExpectedFormType and returns the record boxed as any, letting the
// orchestrator invoke readers generically. An unrecognized FormType rejects
// outright, matching every reader's own "gate on FormType" first step.
func Dispatch(ctx *rtctx.Context, candidate FormCandidate) (any, bool) {
	switch candidate.ExpectedFormType {
	case FormTypeFaction:
		return ReadFaction(ctx, candidate)
	case FormTypeScript:
		return ReadScript(ctx, candidate)
	case FormTypeArmor:
		return ReadSimpleItem(ctx, candidate, ArmorLayout)
	case FormTypeContainer:
		return ReadContainer(ctx, candidate)
	case FormTypeMisc:
		return ReadSimpleItem(ctx, candidate, MiscLayout)
	case FormTypeWeapon:
		return ReadWeapon(ctx, candidate)
	case FormTypeAmmo:
		return ReadSimpleItem(ctx, candidate, AmmoLayout)
	case FormTypeNPC:
		return ReadNPC(ctx, candidate)
	case FormTypeCreature:
		return ReadCreature(ctx, candidate)
	case FormTypeKey:
		return ReadSimpleItem(ctx, candidate, KeyLayout)
	case FormTypeConsumable:
		return ReadSimpleItem(ctx, candidate, ConsumableLayout)
	case FormTypeProjectile:
		return ReadProjectile(ctx, candidate)
	case FormTypePackage:
		return ReadPackage(ctx, candidate)
	case FormTypeLand:
		return ReadLand(ctx, candidate)
	default:
		return nil, false
	}
}

// FormIDOf extracts the RecordHeader.FormID from a Dispatch result via
// a type switch, used by the orchestrator to join reader outputs by
// FormID.
func FormIDOf(rec any) (uint32, bool) {
	switch r := rec.(type) {
	case FactionRecord:
		return r.Header.FormID, true
	case ScriptRecord:
		return r.Form.FormID, true
	case SimpleItemRecord:
		return r.Header.FormID, true
	case ContainerRecord:
		return r.Header.FormID, true
	case WeaponRecord:
		return r.Header.FormID, true
	case NPCRecord:
		return r.Header.FormID, true
	case CreatureRecord:
		return r.Header.FormID, true
	case ProjectileRecord:
		return r.Header.FormID, true
	case PackageRecord:
		return r.Header.FormID, true
	case LandRecord:
		return r.Header.FormID, true
	default:
		return 0, false
	}
}

// SourceOffsetOf extracts the RecordHeader.SourceOffset from a
// Dispatch result via a type switch, used by the orchestrator to join
// reader outputs against RTTI census entries by offset.
func SourceOffsetOf(rec any) (uint32, bool) {
	switch r := rec.(type) {
	case FactionRecord:
		return r.Header.SourceOffset, true
	case ScriptRecord:
		return r.Form.SourceOffset, true
	case SimpleItemRecord:
		return r.Header.SourceOffset, true
	case ContainerRecord:
		return r.Header.SourceOffset, true
	case WeaponRecord:
		return r.Header.SourceOffset, true
	case NPCRecord:
		return r.Header.SourceOffset, true
	case CreatureRecord:
		return r.Header.SourceOffset, true
	case ProjectileRecord:
		return r.Header.SourceOffset, true
	case PackageRecord:
		return r.Header.SourceOffset, true
	case LandRecord:
		return r.Header.SourceOffset, true
	default:
		return 0, false
	}
}
