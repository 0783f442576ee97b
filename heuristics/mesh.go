// Copyright 2026 Fo3dump. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package heuristics implements the non-FormID heap scanners:
// mesh, texture, and scene-graph extraction, each built on the same
// scan.Run engine. (The RTTI census in package rtti uses its own
// worker loop, not scan.Run.)
package heuristics

import (
	"hash/fnv"
	"sort"

	"github.com/fo3dump/x360core/rtctx"
	"github.com/fo3dump/x360core/scan"
)

// Gamebryo struct sizes: NiGeometryData is 64 bytes, NiTriBasedGeomData
// extends it to 68, NiTriShapeData to 88 and NiTriStripsData to 80.
const (
	niTriShapeDataSize  = 88
	niTriStripsDataSize = 80
	meshMinStructSize   = niTriStripsDataSize // smaller of the two bounds the tail
)

// mesh validation ceilings.
const (
	meshMaxVertexCount   = 65535
	meshMaxRefCount      = 10000
	meshMaxBoundRadius   = 200000
	meshMaxVertexValue   = 500000
	meshMinSpatialExtent = 0.1
	meshMaxSpatialExtent = 200000
	meshMaxNormalValue   = 2.0
	meshMaxUVValue       = 100
	meshMaxColorValue    = 2.0
	meshValidFloorRatio  = 0.50
	meshMaxStripCount    = 1000
)

// ExtractedMesh is one deduplicated mesh candidate.
type ExtractedMesh struct {
	SourceOffset uint32
	SourceVA     uint32
	VertexCount  int
	Vertices     []float32 // 3*VertexCount
	Normals      []float32
	UVs          []float32
	Colors       []float32
	Triangles    []uint16 // flat, 3 indices per triangle

	BoundCenter [3]float32
	BoundRadius float32
	VertexHash  uint64

	IsTriStrips bool
}

// ScanMeshes runs the mesh scanner over every heap region group
// of ctx, deduplicating by the first 24 vertex-float bit pattern,
// first-hit-wins under ascending source-offset order.
func ScanMeshes(ctx *rtctx.Context) []ExtractedMesh {
	gate := scan.NewDedupGate()
	bag := scan.NewResultBag[ExtractedMesh](gate)

	test := func(chunk []byte, off uint32) bool {
		return meshFastFilter(chunk, off)
	}
	process := func(chunk []byte, off uint32, fileOffset uint32) {
		mesh, ok := meshFullValidate(ctx, chunk, off, fileOffset)
		if !ok {
			return
		}
		bag.TryAdd(mesh.VertexHash, mesh)
	}

	scan.Run(ctx.ReadBytes, ctx.Map, scan.Options{MinStructSize: meshMinStructSize, MaxWorkers: ctx.MaxWorkers}, test, process)

	results := bag.Results()
	sort.Slice(results, func(i, j int) bool { return results[i].SourceOffset < results[j].SourceOffset })
	return results
}

func meshFastFilter(chunk []byte, off uint32) bool {
	if off+niTriShapeDataSize > uint32(len(chunk)) {
		return false
	}
	refCount := be32(chunk, off+4)
	if refCount == 0 || refCount > meshMaxRefCount {
		return false
	}
	vertexCount := be16(chunk, off+8)
	if vertexCount < 3 {
		return false
	}
	triangleCount := be16(chunk, off+64)
	if triangleCount == 0 {
		return false
	}
	boundRadius := beF32(chunk, off+28)
	if !rtctx.IsNormalFloat(boundRadius) || boundRadius <= 0 || boundRadius > meshMaxBoundRadius {
		return false
	}
	vertexPtr := be32(chunk, off+32)
	if vertexPtr == 0 {
		return false
	}
	normalPtr := be32(chunk, off+36)
	uvPtr := be32(chunk, off+44)
	if normalPtr == 0 && uvPtr == 0 {
		return false
	}
	return true
}

func meshFullValidate(ctx *rtctx.Context, chunk []byte, off uint32, fileOffset uint32) (ExtractedMesh, bool) {
	vertexCount := int(be16(chunk, off+8))
	triangleCount := int(be16(chunk, off+64))

	vertexPtr := be32(chunk, off+32)
	if !ctx.IsValidPointer(vertexPtr) {
		return ExtractedMesh{}, false
	}
	vertices, ok := readValidatedFloats(ctx, vertexPtr, vertexCount*3, meshMaxVertexValue)
	if !ok {
		return ExtractedMesh{}, false
	}

	if !withinSpatialExtent(vertices) {
		return ExtractedMesh{}, false
	}

	mesh := ExtractedMesh{
		SourceOffset: fileOffset,
		SourceVA:     fileOffsetToVA(ctx, fileOffset),
		VertexCount:  vertexCount,
		Vertices:     vertices,
		BoundCenter: [3]float32{
			beF32(chunk, off+16),
			beF32(chunk, off+20),
			beF32(chunk, off+24),
		},
		BoundRadius: beF32(chunk, off+28),
		VertexHash:  meshDedupHash(vertices),
	}

	if normalPtr := be32(chunk, off+36); normalPtr != 0 && ctx.IsValidPointer(normalPtr) {
		if normals, ok := readValidatedFloats(ctx, normalPtr, vertexCount*3, meshMaxNormalValue); ok {
			mesh.Normals = normals
		}
	}
	if uvPtr := be32(chunk, off+44); uvPtr != 0 && ctx.IsValidPointer(uvPtr) {
		if uvs, ok := readValidatedFloats(ctx, uvPtr, vertexCount*2, meshMaxUVValue); ok {
			mesh.UVs = uvs
		}
	}
	if colorPtr := be32(chunk, off+40); colorPtr != 0 && ctx.IsValidPointer(colorPtr) {
		if colors, ok := readValidatedFloats(ctx, colorPtr, vertexCount*4, meshMaxColorValue); ok {
			mesh.Colors = colors
		}
	}

	if tris, ok := readTriShapeIndices(ctx, chunk, off, vertexCount, triangleCount); ok {
		mesh.Triangles = tris
		return mesh, true
	}
	if tris, ok := readTriStripsIndices(ctx, chunk, off, vertexCount); ok {
		mesh.Triangles = tris
		mesh.IsTriStrips = true
		return mesh, true
	}
	return ExtractedMesh{}, false
}

// readTriShapeIndices implements the NiTriShapeData branch: a flat
// length-prefixed u16 index list.
func readTriShapeIndices(ctx *rtctx.Context, chunk []byte, off uint32, vertexCount, triangleCount int) ([]uint16, bool) {
	if off+niTriShapeDataSize > uint32(len(chunk)) {
		return nil, false
	}
	triListLength := be32(chunk, off+68)
	if triListLength%3 != 0 {
		return nil, false
	}
	if int(triListLength) != triangleCount*3 {
		return nil, false
	}
	if int(triListLength) > vertexCount*6 {
		return nil, false
	}
	triListPtr := be32(chunk, off+72)
	if !ctx.IsValidPointer(triListPtr) {
		return nil, false
	}
	offset, ok := ctx.VAToOffset(triListPtr)
	if !ok {
		return nil, false
	}
	indices := make([]uint16, triListLength)
	for i := range indices {
		v, ok := ctx.ReadU16BE(offset + uint32(i*2))
		if !ok || int(v) >= vertexCount {
			return nil, false
		}
		indices[i] = v
	}
	return indices, true
}

// readTriStripsIndices implements the NiTriStripsData fallback: per-
// strip lengths and index arrays, unrolled into a flat triangle list
// with alternating winding and degenerate-triangle skipping.
func readTriStripsIndices(ctx *rtctx.Context, chunk []byte, off uint32, vertexCount int) ([]uint16, bool) {
	if off+niTriStripsDataSize > uint32(len(chunk)) {
		return nil, false
	}
	stripCount := int(be16(chunk, off+68))
	if stripCount <= 0 || stripCount > meshMaxStripCount {
		return nil, false
	}
	lengthsPtr := be32(chunk, off+72)
	indicesPtr := be32(chunk, off+76)
	if !ctx.IsValidPointer(lengthsPtr) || !ctx.IsValidPointer(indicesPtr) {
		return nil, false
	}
	lengthsOffset, ok := ctx.VAToOffset(lengthsPtr)
	if !ok {
		return nil, false
	}
	indicesBasePtr, ok := ctx.VAToOffset(indicesPtr)
	if !ok {
		return nil, false
	}

	var tris []uint16
	stripBase := indicesBasePtr
	for s := 0; s < stripCount; s++ {
		length, ok := ctx.ReadU16BE(lengthsOffset + uint32(s*2))
		if !ok || length < 3 {
			continue
		}
		strip := make([]uint16, length)
		for i := range strip {
			v, ok := ctx.ReadU16BE(stripBase + uint32(i*2))
			if !ok || int(v) >= vertexCount {
				return nil, false
			}
			strip[i] = v
		}
		stripBase += uint32(length) * 2

		for i := 0; i+2 < int(length); i++ {
			a, b, c := strip[i], strip[i+1], strip[i+2]
			if a == b || b == c || a == c {
				continue
			}
			if i%2 == 1 {
				b, c = c, b
			}
			tris = append(tris, a, b, c)
		}
	}
	if len(tris) == 0 {
		return nil, false
	}
	return tris, true
}

// readValidatedFloats reads count big-endian floats starting at ptrVA,
// requiring at least meshValidFloorRatio of them to be normal and
// |value| <= limit.
func readValidatedFloats(ctx *rtctx.Context, ptrVA uint32, count int, limit float32) ([]float32, bool) {
	if count <= 0 {
		return nil, false
	}
	offset, ok := ctx.VAToOffset(ptrVA)
	if !ok {
		return nil, false
	}
	values := make([]float32, count)
	valid := 0
	for i := 0; i < count; i++ {
		v, ok := ctx.ReadFloatBE(offset + uint32(i*4))
		if !ok {
			return nil, false
		}
		values[i] = v
		if rtctx.IsNormalFloat(v) && absF32(v) <= limit {
			valid++
		}
	}
	if float64(valid) < float64(count)*meshValidFloorRatio {
		return nil, false
	}
	return values, true
}

func withinSpatialExtent(vertices []float32) bool {
	if len(vertices) < 3 {
		return false
	}
	var minV, maxV [3]float32
	minV = [3]float32{vertices[0], vertices[1], vertices[2]}
	maxV = minV
	for i := 0; i+2 < len(vertices); i += 3 {
		for axis := 0; axis < 3; axis++ {
			v := vertices[i+axis]
			if v < minV[axis] {
				minV[axis] = v
			}
			if v > maxV[axis] {
				maxV[axis] = v
			}
		}
	}
	var maxRange float32
	for axis := 0; axis < 3; axis++ {
		r := maxV[axis] - minV[axis]
		if r > maxRange {
			maxRange = r
		}
	}
	return maxRange >= meshMinSpatialExtent && maxRange <= meshMaxSpatialExtent
}

// meshDedupHash hashes up to the first 24 vertex floats' bit patterns.
func meshDedupHash(vertices []float32) uint64 {
	h := fnv.New64a()
	n := len(vertices)
	if n > 24 {
		n = 24
	}
	buf := make([]byte, 4)
	for i := 0; i < n; i++ {
		bits := float32bits(vertices[i])
		buf[0] = byte(bits >> 24)
		buf[1] = byte(bits >> 16)
		buf[2] = byte(bits >> 8)
		buf[3] = byte(bits)
		h.Write(buf)
	}
	return h.Sum64()
}

func fileOffsetToVA(ctx *rtctx.Context, fileOffset uint32) uint32 {
	va, ok := ctx.Map.OffsetToVA(fileOffset)
	if !ok {
		return 0
	}
	return va
}

func absF32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
