// Copyright 2026 Fo3dump. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package forms implements the structural FormReaders: one
// reader per form class, each consuming a pre-located candidate
// (offset + expected FormID + expected FormType) and either returning
// a fully populated record or rejecting it. Every reader follows the
// same shared template: gate on FormType, range-check, bulk
// read, confirm identity, extract subrecords, validate fields, walk
// intrusive lists.
package forms

import (
	"math"

	"github.com/fo3dump/x360core/rtctx"
)

// FormType is the 8-bit record class discriminator at TESForm+4.
type FormType uint8

// Known form type codes.
const (
	FormTypeFaction    FormType = 0x08
	FormTypeScript     FormType = 0x11
	FormTypeArmor      FormType = 0x18
	FormTypeContainer  FormType = 0x1B
	FormTypeMisc       FormType = 0x1F
	FormTypeWeapon     FormType = 0x28
	FormTypeAmmo       FormType = 0x29
	FormTypeNPC        FormType = 0x2A
	FormTypeCreature   FormType = 0x2B
	FormTypeKey        FormType = 0x2E
	FormTypeConsumable FormType = 0x2F
	FormTypeProjectile FormType = 0x33
	FormTypePackage    FormType = 0x39
	FormTypeLand       FormType = 0x3A
)

// FormCandidate is produced by an external locator and consumed once
// per reader.
type FormCandidate struct {
	FileOffset       uint32
	ExpectedFormID   uint32
	ExpectedFormType FormType
	EditorID         string // optional, supplied by the locator
	DisplayName      string // optional, supplied by the locator
}

// RecordHeader is embedded in every produced record. FormID != 0
// and != 0xFFFFFFFF; FormType matches the candidate; SourceOffset is
// the dump file offset the struct was read from; IsBigEndian is always
// true for this PowerPC target.
type RecordHeader struct {
	FormID       uint32
	FormType     FormType
	Flags        uint32
	SourceOffset uint32
	IsBigEndian  bool
}

// TESFormHeaderSize is the fixed 16-byte header every form begins with.
const TESFormHeaderSize = 16

// readTESFormHeader validates the fixed header at offset against the
// candidate's expected FormID and FormType.
func readTESFormHeader(ctx *rtctx.Context, offset uint32, candidate FormCandidate) (RecordHeader, bool) {
	buf, ok := ctx.ReadBytes(offset, TESFormHeaderSize)
	if !ok {
		return RecordHeader{}, false
	}
	formType := FormType(buf[4])
	if formType != candidate.ExpectedFormType {
		return RecordHeader{}, false
	}
	flags := be32(buf, 8)
	formID := be32(buf, 12)
	if formID != candidate.ExpectedFormID {
		return RecordHeader{}, false
	}
	if formID == 0 || formID == 0xFFFFFFFF {
		return RecordHeader{}, false
	}
	return RecordHeader{
		FormID:       formID,
		FormType:     formType,
		Flags:        flags,
		SourceOffset: offset,
		IsBigEndian:  true,
	}, true
}

func be32(buf []byte, offset uint32) uint32 {
	return uint32(buf[offset])<<24 | uint32(buf[offset+1])<<16 | uint32(buf[offset+2])<<8 | uint32(buf[offset+3])
}

func be16(buf []byte, offset uint32) uint16 {
	return uint16(buf[offset])<<8 | uint16(buf[offset+1])
}

func bei16(buf []byte, offset uint32) int16 {
	return int16(be16(buf, offset))
}

func bei32(buf []byte, offset uint32) int32 {
	return int32(be32(buf, offset))
}

func beF32(buf []byte, offset uint32) float32 {
	return math.Float32frombits(be32(buf, offset))
}
