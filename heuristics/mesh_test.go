// Copyright 2026 Fo3dump. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package heuristics

import (
	"math"
	"testing"

	"github.com/fo3dump/x360core/accessor"
	"github.com/fo3dump/x360core/memmap"
	"github.com/fo3dump/x360core/rtctx"
)

const testBaseVA = 0x40000000

// newTestContext maps data as one heap segment at testBaseVA, so a
// file offset and its VA differ by exactly testBaseVA.
func newTestContext(t *testing.T, data []byte) *rtctx.Context {
	t.Helper()
	acc := accessor.OpenBytes(data, nil)
	mm := memmap.New([]memmap.MemorySegment{
		{VirtualAddress: testBaseVA, Size: uint32(len(data)), FileOffset: 0},
	}, nil)
	return rtctx.New(acc, mm, rtctx.BuildProfile{Kind: rtctx.BuildRelease, Shift: 16}, 0)
}

func putU32(buf []byte, offset uint32, v uint32) {
	buf[offset] = byte(v >> 24)
	buf[offset+1] = byte(v >> 16)
	buf[offset+2] = byte(v >> 8)
	buf[offset+3] = byte(v)
}

func putU16(buf []byte, offset uint32, v uint16) {
	buf[offset] = byte(v >> 8)
	buf[offset+1] = byte(v)
}

func putF32(buf []byte, offset uint32, v float32) {
	putU32(buf, offset, math.Float32bits(v))
}

func putVA(buf []byte, offset uint32, fileOffset uint32) {
	putU32(buf, offset, testBaseVA+fileOffset)
}

// putTriShapeData lays out a minimal valid NiTriShapeData at structOff
// referencing a 4-vertex, 2-triangle quad whose vertex floats live at
// vertsOff, UVs at uvsOff, and indices at trisOff.
func putTriShapeData(data []byte, structOff, vertsOff, uvsOff, trisOff uint32) {
	putU32(data, structOff+4, 1)    // ref_count
	putU16(data, structOff+8, 4)    // vertex_count
	putU16(data, structOff+64, 2)   // triangle_count
	putF32(data, structOff+16, 0.5) // bound center
	putF32(data, structOff+20, 0.5)
	putF32(data, structOff+24, 0)
	putF32(data, structOff+28, 1.0) // bound radius
	putVA(data, structOff+32, vertsOff)
	putVA(data, structOff+44, uvsOff)
	putU32(data, structOff+68, 6) // tri list length
	putVA(data, structOff+72, trisOff)

	quad := []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0}
	for i, v := range quad {
		putF32(data, vertsOff+uint32(i*4), v)
	}
	uvs := []float32{0, 0, 1, 0, 1, 1, 0, 1}
	for i, v := range uvs {
		putF32(data, uvsOff+uint32(i*4), v)
	}
	for i, idx := range []uint16{0, 1, 2, 0, 2, 3} {
		putU16(data, trisOff+uint32(i*2), idx)
	}
}

func TestScanMeshesFindsTriShape(t *testing.T) {
	data := make([]byte, 0x1000)
	putTriShapeData(data, 0x100, 0x400, 0x500, 0x600)

	meshes := ScanMeshes(newTestContext(t, data))
	if len(meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(meshes))
	}
	m := meshes[0]
	if m.SourceOffset != 0x100 {
		t.Fatalf("SourceOffset = %#x", m.SourceOffset)
	}
	if m.VertexCount != 4 || len(m.Vertices) != 12 {
		t.Fatalf("vertices: count=%d len=%d", m.VertexCount, len(m.Vertices))
	}
	if len(m.Triangles) != 6 || m.IsTriStrips {
		t.Fatalf("triangles: len=%d strips=%v", len(m.Triangles), m.IsTriStrips)
	}
	if len(m.UVs) != 8 {
		t.Fatalf("UVs: len=%d", len(m.UVs))
	}
	if m.BoundRadius != 1.0 {
		t.Fatalf("BoundRadius = %v", m.BoundRadius)
	}
}

func TestScanMeshesDedupsByVertexPrefix(t *testing.T) {
	// Two blocks sharing their vertex buffer dedup to
	// one mesh whose source offset is the first hit in ascending order.
	data := make([]byte, 0x2000)
	putTriShapeData(data, 0x100, 0x400, 0x500, 0x600)
	putTriShapeData(data, 0x1000, 0x400, 0x500, 0x600)

	meshes := ScanMeshes(newTestContext(t, data))
	if len(meshes) != 1 {
		t.Fatalf("expected dedup to one mesh, got %d", len(meshes))
	}
	if meshes[0].SourceOffset != 0x100 {
		t.Fatalf("first hit should win, got %#x", meshes[0].SourceOffset)
	}
}

func TestScanMeshesKeepsDistinctVertexPrefixes(t *testing.T) {
	data := make([]byte, 0x2000)
	putTriShapeData(data, 0x100, 0x400, 0x500, 0x600)
	putTriShapeData(data, 0x1000, 0x1400, 0x1500, 0x1600)
	putF32(data, 0x1400, 7.5) // diverge within the hashed prefix

	meshes := ScanMeshes(newTestContext(t, data))
	if len(meshes) != 2 {
		t.Fatalf("expected 2 distinct meshes, got %d", len(meshes))
	}
}

func TestScanMeshesUnrollsTriStrips(t *testing.T) {
	data := make([]byte, 0x1000)
	structOff := uint32(0x100)
	vertsOff := uint32(0x400)
	lengthsOff := uint32(0x500)
	indicesOff := uint32(0x600)

	putU32(data, structOff+4, 1)  // ref_count
	putU16(data, structOff+8, 5)  // vertex_count
	putU16(data, structOff+64, 3) // triangle_count
	putF32(data, structOff+28, 2.0)
	putVA(data, structOff+32, vertsOff)
	putVA(data, structOff+44, 0x700) // uv_ptr non-null
	putU16(data, structOff+68, 1)    // strip_count
	putVA(data, structOff+72, lengthsOff)
	putVA(data, structOff+76, indicesOff)

	verts := []float32{0, 0, 0, 1, 0, 0, 0, 1, 0, 1, 1, 0, 2, 1, 0}
	for i, v := range verts {
		putF32(data, vertsOff+uint32(i*4), v)
	}
	uvs := []float32{0, 0, 1, 0, 0, 1, 1, 1, 1, 1}
	for i, v := range uvs {
		putF32(data, 0x700+uint32(i*4), v)
	}

	putU16(data, lengthsOff, 5)
	for i, idx := range []uint16{0, 1, 2, 3, 4} {
		putU16(data, indicesOff+uint32(i*2), idx)
	}

	meshes := ScanMeshes(newTestContext(t, data))
	if len(meshes) != 1 {
		t.Fatalf("expected 1 strips mesh, got %d", len(meshes))
	}
	m := meshes[0]
	if !m.IsTriStrips {
		t.Fatalf("expected IsTriStrips")
	}
	// Strip [0 1 2 3 4] unrolls to 3 triangles with alternating
	// winding: (0,1,2), (1,3,2), (2,3,4).
	want := []uint16{0, 1, 2, 1, 3, 2, 2, 3, 4}
	if len(m.Triangles) != len(want) {
		t.Fatalf("triangles = %v", m.Triangles)
	}
	for i, idx := range want {
		if m.Triangles[i] != idx {
			t.Fatalf("triangles = %v, want %v", m.Triangles, want)
		}
	}
}

func TestScanMeshesRejectsDegenerateExtent(t *testing.T) {
	data := make([]byte, 0x1000)
	putTriShapeData(data, 0x100, 0x400, 0x500, 0x600)
	// Collapse every vertex onto one point: spatial extent below 0.1.
	for i := 0; i < 12; i++ {
		putF32(data, 0x400+uint32(i*4), 0.01)
	}

	if meshes := ScanMeshes(newTestContext(t, data)); len(meshes) != 0 {
		t.Fatalf("expected extent rejection, got %d meshes", len(meshes))
	}
}
