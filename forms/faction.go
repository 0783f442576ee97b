// Copyright 2026 Fo3dump. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package forms

import "github.com/fo3dump/x360core/rtctx"

// FactionStructSize is the base PDB-declared struct size.
const FactionStructSize = 76

// FactionRecord is the full FACT typed record.
type FactionRecord struct {
	Header   RecordHeader
	EditorID string
	FullName string
	Flags    uint32
}

// ReadFaction decodes a TESFaction candidate.
func ReadFaction(ctx *rtctx.Context, candidate FormCandidate) (FactionRecord, bool) {
	if candidate.ExpectedFormType != FormTypeFaction {
		return FactionRecord{}, false
	}

	shift := ctx.Shift()
	structSize := FactionStructSize + shift
	if candidate.FileOffset+structSize > ctx.FileSize {
		return FactionRecord{}, false
	}

	buf, ok := ctx.ReadBytes(candidate.FileOffset, structSize)
	if !ok {
		return FactionRecord{}, false
	}

	header, ok := readTESFormHeader(ctx, candidate.FileOffset, candidate)
	if !ok {
		return FactionRecord{}, false
	}

	rec := FactionRecord{
		Header:   header,
		EditorID: candidate.EditorID,
		FullName: candidate.DisplayName,
		Flags:    be32(buf, 52+shift),
	}

	if name, ok := ctx.ReadBSString(candidate.FileOffset, 28+shift); ok {
		rec.FullName = name
	}

	return rec, true
}
