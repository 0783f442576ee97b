// Copyright 2026 Fo3dump. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package forms

import "testing"

// buildLandDump lays out a TESObjectLAND at offset 0 with a
// LoadedLandData block and a positions array shaped like one canonical
// 32x32-quad cell (X/Y spanning 4096 world units).
func buildLandDump(shift uint32) []byte {
	const (
		loadedOff   = 0x100
		posOuterOff = 0x200
		posInnerOff = 0x300
	)
	data := make([]byte, posInnerOff+landVertexCount*3*4)

	putTESFormHeader(data, 0, FormTypeLand, 0x00C0FFEE, 0)
	putVA(data, 40+shift, loadedOff)

	putF32(data, loadedOff+24, -50)         // min height
	putF32(data, loadedOff+28, 350)         // max height
	putU32(data, loadedOff+152, 5)          // cell x
	putU32(data, loadedOff+156, 0xFFFFFFFD) // cell y = -3
	putF32(data, loadedOff+160, 100)        // base height

	putVA(data, loadedOff+4, posOuterOff)
	putVA(data, posOuterOff, posInnerOff)

	for row := 0; row < 33; row++ {
		for col := 0; col < 33; col++ {
			base := posInnerOff + uint32((row*33+col)*3*4)
			putF32(data, base, float32(col)*128)
			putF32(data, base+4, float32(row)*128)
			putF32(data, base+8, 100)
		}
	}
	return data
}

func TestReadLandWithTerrain(t *testing.T) {
	shift := uint32(16)
	data := buildLandDump(shift)

	ctx := newTestContext(t, data, shift)
	candidate := FormCandidate{
		FileOffset:       0,
		ExpectedFormID:   0x00C0FFEE,
		ExpectedFormType: FormTypeLand,
	}

	rec, ok := ReadLand(ctx, candidate)
	if !ok {
		t.Fatalf("ReadLand rejected a valid record")
	}
	if !rec.HasCell || rec.CellX != 5 || rec.CellY != -3 {
		t.Fatalf("cell = (%d, %d) has=%v", rec.CellX, rec.CellY, rec.HasCell)
	}
	if rec.BaseHeight != 100 || rec.MinHeight != -50 || rec.MaxHeight != 350 {
		t.Fatalf("heights = %v/%v/%v", rec.BaseHeight, rec.MinHeight, rec.MaxHeight)
	}
	if !rec.HasPositions || len(rec.Positions) != landVertexCount*3 {
		t.Fatalf("positions: has=%v len=%d", rec.HasPositions, len(rec.Positions))
	}
	if rec.HasNormals || rec.HasColors {
		t.Fatalf("normals/colors were never laid out, has=%v/%v", rec.HasNormals, rec.HasColors)
	}
}

func TestReadLandWithoutLoadedData(t *testing.T) {
	shift := uint32(0)
	data := make([]byte, LandStructSize+shift)
	putTESFormHeader(data, 0, FormTypeLand, 0x00C0FFEE, 0)
	// loaded-data pointer stays zero.

	ctx := newTestContext(t, data, shift)
	rec, ok := ReadLand(ctx, FormCandidate{
		ExpectedFormID:   0x00C0FFEE,
		ExpectedFormType: FormTypeLand,
	})
	if !ok {
		t.Fatalf("a LAND with no loaded terrain is still a valid record")
	}
	if rec.HasCell || rec.HasPositions {
		t.Fatalf("unexpected payload on an unloaded LAND: %+v", rec)
	}
}

func TestReadLandRejectsImplausibleExtent(t *testing.T) {
	shift := uint32(0)
	data := buildLandDump(shift)

	// Collapse the X axis: every column lands at the same coordinate, so
	// the X span drops below the 1000-unit floor.
	const posInnerOff = 0x300
	for row := 0; row < 33; row++ {
		for col := 0; col < 33; col++ {
			base := posInnerOff + uint32((row*33+col)*3*4)
			putF32(data, base, 42)
		}
	}

	ctx := newTestContext(t, data, shift)
	rec, ok := ReadLand(ctx, FormCandidate{
		ExpectedFormID:   0x00C0FFEE,
		ExpectedFormType: FormTypeLand,
	})
	if !ok {
		t.Fatalf("record itself must survive a rejected terrain mesh")
	}
	if rec.HasPositions {
		t.Fatalf("expected the degenerate-extent mesh to be rejected")
	}
	if !rec.HasCell {
		t.Fatalf("cell coordinates come from LoadedLandData and must survive")
	}
}
