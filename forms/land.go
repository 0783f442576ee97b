// Copyright 2026 Fo3dump. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package forms

import "github.com/fo3dump/x360core/rtctx"

// LandStructSize is the base PDB-declared struct size for
// TESObjectLAND.
const LandStructSize = 44

// LoadedLandDataSize is the size of the pointed-to terrain payload.
// It is a standalone fixed layout reached through a pointer, so the
// build shift never applies to its interior offsets.
const LoadedLandDataSize = 164

// terrain validation ceilings.
const (
	landCellCoordLimit  = 1000
	landHeightLimit     = 100000
	landVertexLimit     = 200000
	landExtentMin       = 1000
	landExtentMax       = 10000
	landNormalLimit     = 2.0
	landColorLimit      = 2.0
	landVertexCount     = 33 * 33 // a 32x32-quad Gamebryo cell
	landValidFloorRatio = 0.70
)

// LandRecord is the full LAND typed record.
type LandRecord struct {
	Header RecordHeader

	CellX, CellY int32
	HasCell      bool

	BaseHeight float32
	MinHeight  float32
	MaxHeight  float32

	Positions    []float32 // 3*1089 values when present
	HasPositions bool
	Normals      []float32
	HasNormals   bool
	Colors       []float32
	HasColors    bool
}

// ReadLand decodes a TESObjectLAND candidate: validate
// the header, follow the loaded-data pointer at +40+s to the 164-byte
// LoadedLandData block, extract the cell coordinates and heights from
// it, and optionally read the terrain mesh through its three
// double-indirected vertex arrays.
func ReadLand(ctx *rtctx.Context, candidate FormCandidate) (LandRecord, bool) {
	if candidate.ExpectedFormType != FormTypeLand {
		return LandRecord{}, false
	}

	shift := ctx.Shift()
	structSize := LandStructSize + shift
	if candidate.FileOffset+structSize > ctx.FileSize {
		return LandRecord{}, false
	}

	buf, ok := ctx.ReadBytes(candidate.FileOffset, structSize)
	if !ok {
		return LandRecord{}, false
	}

	header, ok := readTESFormHeader(ctx, candidate.FileOffset, candidate)
	if !ok {
		return LandRecord{}, false
	}

	rec := LandRecord{Header: header}

	loadedVA := be32(buf, 40+shift)
	if loadedVA == 0 {
		return rec, true
	}
	loadedOffset, ok := ctx.VAToOffset(loadedVA)
	if !ok {
		return rec, true
	}
	loaded, ok := ctx.ReadBytes(loadedOffset, LoadedLandDataSize)
	if !ok {
		return rec, true
	}

	cellX := bei32(loaded, 152)
	cellY := bei32(loaded, 156)
	if cellX >= -landCellCoordLimit && cellX <= landCellCoordLimit &&
		cellY >= -landCellCoordLimit && cellY <= landCellCoordLimit {
		rec.CellX, rec.CellY, rec.HasCell = cellX, cellY, true
	}

	rec.MinHeight = clampF32(beF32(loaded, 24), -landHeightLimit, landHeightLimit, rtctx.IsNormalFloat)
	rec.MaxHeight = clampF32(beF32(loaded, 28), -landHeightLimit, landHeightLimit, rtctx.IsNormalFloat)
	rec.BaseHeight = clampF32(beF32(loaded, 160), -landHeightLimit, landHeightLimit, rtctx.IsNormalFloat)

	// Positions are required for a terrain mesh; normals and colors
	// ride along only when positions validate.
	positions, ok := readLandVertexArray(ctx, loaded, 4, landVertexLimit)
	if !ok || !landExtentPlausible(positions) {
		return rec, true
	}
	rec.Positions, rec.HasPositions = positions, true

	if normals, ok := readLandVertexArray(ctx, loaded, 8, landNormalLimit); ok {
		rec.Normals, rec.HasNormals = normals, true
	}
	if colors, ok := readLandVertexArray(ctx, loaded, 12, landColorLimit); ok {
		rec.Colors, rec.HasColors = colors, true
	}

	return rec, true
}

// readLandVertexArray follows the double-indirected T** array pointer
// at offset within loaded and reads landVertexCount*3 float32 values.
// At least 70% of them must be normal floats within |limit| or the
// whole array is rejected; terrain is held to a stricter floor than
// FaceGen's 50%.
func readLandVertexArray(ctx *rtctx.Context, loaded []byte, offset uint32, limit float32) ([]float32, bool) {
	if offset+4 > uint32(len(loaded)) {
		return nil, false
	}
	outerVA := be32(loaded, offset)
	if outerVA == 0 {
		return nil, false
	}
	outerOffset, ok := ctx.VAToOffset(outerVA)
	if !ok {
		return nil, false
	}
	innerVA, ok := ctx.ReadU32BE(outerOffset)
	if !ok || innerVA == 0 {
		return nil, false
	}
	innerOffset, ok := ctx.VAToOffset(innerVA)
	if !ok {
		return nil, false
	}

	const n = landVertexCount * 3
	arr, ok := ctx.ReadBytes(innerOffset, n*4)
	if !ok {
		return nil, false
	}

	floor := ctx.TerrainMinValidFraction
	if floor <= 0 {
		floor = landValidFloorRatio
	}

	values := make([]float32, n)
	valid := 0
	for i := 0; i < n; i++ {
		v := beF32(arr, uint32(i*4))
		if rtctx.IsNormalFloat(v) && v >= -limit && v <= limit {
			values[i] = v
			valid++
		}
	}
	if float64(valid) < float64(n)*floor {
		return nil, false
	}
	return values, true
}

// landExtentPlausible checks the position array's X and Y spans
// against the canonical Gamebryo cell footprint: 32 x 32 quads x 128
// world units puts both spans in [1000, 10000].
func landExtentPlausible(positions []float32) bool {
	if len(positions) < 3 {
		return false
	}
	var minV, maxV [2]float32
	minV = [2]float32{positions[0], positions[1]}
	maxV = minV
	for i := 0; i+2 < len(positions); i += 3 {
		for axis := 0; axis < 2; axis++ {
			v := positions[i+axis]
			if v < minV[axis] {
				minV[axis] = v
			}
			if v > maxV[axis] {
				maxV[axis] = v
			}
		}
	}
	for axis := 0; axis < 2; axis++ {
		span := maxV[axis] - minV[axis]
		if span < landExtentMin || span > landExtentMax {
			return false
		}
	}
	return true
}
