// Copyright 2026 Fo3dump. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package forms

import "github.com/fo3dump/x360core/rtctx"

// PackageStructSize is the base PDB-declared struct size.
const PackageStructSize = 128

// PackageData is the inline 12-byte PACKAGE_DATA block.
type PackageData struct {
	Flags        uint32
	Type         uint8
	FalloutFlags uint16
	TypeSpecific uint16
}

// PackageSchedule is the inline 8-byte PackageSchedule block.
type PackageSchedule struct {
	Month     int8
	DayOfWeek int8
	Date      int8
	Time      int8
	Duration  uint16
}

// PackageLocationRef is the resolved PackageLocation union:
// for location type in {0,1,4} the embedded word is a TESForm* FormID;
// otherwise it is a raw enum value.
type PackageLocationRef struct {
	Type      uint32
	FormID    uint32
	HasFormID bool
	RawValue  uint32
}

// PackageTargetRef is the resolved PackageTarget union:
// location type in {0,1} resolves to a FormID.
type PackageTargetRef struct {
	Type      uint32
	FormID    uint32
	HasFormID bool
	RawValue  uint32
}

// PackageRecord is the full PACK typed record.
type PackageRecord struct {
	Header   RecordHeader
	EditorID string

	Data        PackageData
	HasData     bool
	Schedule    PackageSchedule
	HasSchedule bool

	Location    PackageLocationRef
	HasLocation bool
	Target      PackageTargetRef
	HasTarget   bool
}

// ReadPackage decodes a TESPackage candidate.
func ReadPackage(ctx *rtctx.Context, candidate FormCandidate) (PackageRecord, bool) {
	if candidate.ExpectedFormType != FormTypePackage {
		return PackageRecord{}, false
	}

	shift := ctx.Shift()
	structSize := PackageStructSize + shift
	if candidate.FileOffset+structSize > ctx.FileSize {
		return PackageRecord{}, false
	}

	buf, ok := ctx.ReadBytes(candidate.FileOffset, structSize)
	if !ok {
		return PackageRecord{}, false
	}

	header, ok := readTESFormHeader(ctx, candidate.FileOffset, candidate)
	if !ok {
		return PackageRecord{}, false
	}

	rec := PackageRecord{Header: header, EditorID: candidate.EditorID}

	if data, ok := readPackageData(buf, 28+shift); ok {
		rec.Data, rec.HasData = data, true
	}
	if sched, ok := readPackageSchedule(buf, 56+shift); ok {
		rec.Schedule, rec.HasSchedule = sched, true
	}

	if locPtrVA := be32(buf, 44+shift); locPtrVA != 0 {
		if loc, ok := readPackageLocation(ctx, locPtrVA); ok {
			rec.Location, rec.HasLocation = loc, true
		}
	}
	if targetPtrVA := be32(buf, 48+shift); targetPtrVA != 0 {
		if target, ok := readPackageTarget(ctx, targetPtrVA); ok {
			rec.Target, rec.HasTarget = target, true
		}
	}

	return rec, true
}

func readPackageData(buf []byte, offset uint32) (PackageData, bool) {
	if offset+12 > uint32(len(buf)) {
		return PackageData{}, false
	}
	d := PackageData{
		Flags:        be32(buf, offset),
		Type:         buf[offset+4],
		FalloutFlags: be16(buf, offset+6),
		TypeSpecific: be16(buf, offset+8),
	}
	if d.Type > 20 {
		return PackageData{}, false
	}
	return d, true
}

func readPackageSchedule(buf []byte, offset uint32) (PackageSchedule, bool) {
	if offset+8 > uint32(len(buf)) {
		return PackageSchedule{}, false
	}
	s := PackageSchedule{
		Month:     int8(buf[offset]),
		DayOfWeek: int8(buf[offset+1]),
		Date:      int8(buf[offset+2]),
		Time:      int8(buf[offset+3]),
		Duration:  be16(buf, offset+4),
	}
	if s.Month < -1 || s.Month > 11 {
		return PackageSchedule{}, false
	}
	if s.DayOfWeek < -1 || s.DayOfWeek > 6 {
		return PackageSchedule{}, false
	}
	if s.Time < -1 || s.Time > 23 {
		return PackageSchedule{}, false
	}
	if s.Duration > 744 {
		return PackageSchedule{}, false
	}
	return s, true
}

func readPackageLocation(ctx *rtctx.Context, ptrVA uint32) (PackageLocationRef, bool) {
	offset, ok := ctx.VAToOffset(ptrVA)
	if !ok {
		return PackageLocationRef{}, false
	}
	buf, ok := ctx.ReadBytes(offset, 12)
	if !ok {
		return PackageLocationRef{}, false
	}
	locType := be32(buf, 0)
	unionWord := be32(buf, 4)

	ref := PackageLocationRef{Type: locType}
	switch locType {
	case 0, 1, 4:
		if formID, ok := ctx.FollowPointerVAToFormID(unionWord); ok {
			ref.FormID, ref.HasFormID = formID, true
		}
	default:
		ref.RawValue = unionWord
	}
	return ref, true
}

func readPackageTarget(ctx *rtctx.Context, ptrVA uint32) (PackageTargetRef, bool) {
	offset, ok := ctx.VAToOffset(ptrVA)
	if !ok {
		return PackageTargetRef{}, false
	}
	buf, ok := ctx.ReadBytes(offset, 16)
	if !ok {
		return PackageTargetRef{}, false
	}
	targetType := be32(buf, 0)
	unionWord := be32(buf, 4)

	ref := PackageTargetRef{Type: targetType}
	switch targetType {
	case 0, 1:
		if formID, ok := ctx.FollowPointerVAToFormID(unionWord); ok {
			ref.FormID, ref.HasFormID = formID, true
		}
	default:
		ref.RawValue = unionWord
	}
	return ref, true
}
