// Copyright 2026 Fo3dump. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package heuristics

import (
	"sort"
	"strings"

	"github.com/fo3dump/x360core/rtctx"
	"github.com/fo3dump/x360core/scan"
)

// niTriShapeSize is the fixed NiTriShape struct size.
const niTriShapeSize = 240

const sceneGraphMaxParentDepth = 32

// SceneGraphInfo binds an extracted mesh's source offset to the
// NiTriShape node that references it and to that node's parent-chain
// names, leaf first.
type SceneGraphInfo struct {
	MeshSourceOffset uint32
	TriShapeOffset   uint32
	NodeName         string
	HasNodeName      bool
	ParentNames      []string // leaf -> root order, unnamed parents omitted
	RootNodeVA       uint32
	Translation      [3]float32
	HasTranslation   bool
}

// FullPath renders the root-to-leaf slash path, e.g. "root/mid/leaf".
func (s SceneGraphInfo) FullPath() string {
	parts := make([]string, 0, len(s.ParentNames)+1)
	for i := len(s.ParentNames) - 1; i >= 0; i-- {
		parts = append(parts, s.ParentNames[i])
	}
	if s.HasNodeName {
		parts = append(parts, s.NodeName)
	}
	return strings.Join(parts, "/")
}

// WalkSceneGraph heap-scans for NiTriShape nodes whose m_spModelData
// points at one of meshes' VAs, then walks each match's parent chain
// up to sceneGraphMaxParentDepth steps.
func WalkSceneGraph(ctx *rtctx.Context, meshes []ExtractedMesh) []SceneGraphInfo {
	meshByVA := make(map[uint32]uint32, len(meshes))
	for _, m := range meshes {
		if m.SourceVA != 0 {
			meshByVA[m.SourceVA] = m.SourceOffset
		}
	}
	if len(meshByVA) == 0 {
		return nil
	}

	gate := scan.NewDedupGate()
	bag := scan.NewResultBag[SceneGraphInfo](gate)

	test := func(chunk []byte, off uint32) bool {
		return sceneGraphFastFilter(chunk, off, meshByVA)
	}
	process := func(chunk []byte, off uint32, fileOffset uint32) {
		info, ok := buildSceneGraphInfo(ctx, chunk, off, fileOffset, meshByVA)
		if !ok {
			return
		}
		bag.TryAdd(sceneGraphDedupHash(info.MeshSourceOffset, fileOffset), info)
	}

	scan.Run(ctx.ReadBytes, ctx.Map, scan.Options{MinStructSize: niTriShapeSize, MaxWorkers: ctx.MaxWorkers}, test, process)

	results := bag.Results()
	sort.Slice(results, func(i, j int) bool { return results[i].MeshSourceOffset < results[j].MeshSourceOffset })
	return results
}

func sceneGraphFastFilter(chunk []byte, off uint32, meshByVA map[uint32]uint32) bool {
	if off+niTriShapeSize > uint32(len(chunk)) {
		return false
	}
	refCount := be32(chunk, off+4)
	if refCount == 0 || refCount > meshMaxRefCount {
		return false
	}
	modelDataVA := be32(chunk, off+220)
	_, ok := meshByVA[modelDataVA]
	return ok
}

func buildSceneGraphInfo(ctx *rtctx.Context, chunk []byte, off uint32, fileOffset uint32, meshByVA map[uint32]uint32) (SceneGraphInfo, bool) {
	modelDataVA := be32(chunk, off+220)
	meshOffset, ok := meshByVA[modelDataVA]
	if !ok {
		return SceneGraphInfo{}, false
	}

	info := SceneGraphInfo{
		MeshSourceOffset: meshOffset,
		TriShapeOffset:   fileOffset,
	}

	// The world translation sits inside the 64-byte NiTransform at
	// +128: three floats at +176/+180/+184.
	info.Translation = [3]float32{
		beF32(chunk, off+176),
		beF32(chunk, off+180),
		beF32(chunk, off+184),
	}
	info.HasTranslation = rtctx.IsNormalFloat(info.Translation[0]) &&
		rtctx.IsNormalFloat(info.Translation[1]) &&
		rtctx.IsNormalFloat(info.Translation[2])

	if name, ok := readNodeName(ctx, be32(chunk, off+8)); ok {
		info.NodeName, info.HasNodeName = name, true
	}

	parentVA := be32(chunk, off+24)
	visited := make(map[uint32]struct{})
	lastVA := uint32(0)
	for step := 0; step < sceneGraphMaxParentDepth && parentVA != 0; step++ {
		if _, seen := visited[parentVA]; seen {
			break
		}
		visited[parentVA] = struct{}{}
		lastVA = parentVA

		parentOffset, ok := ctx.VAToOffset(parentVA)
		if !ok {
			break
		}
		parentBuf, ok := ctx.ReadBytes(parentOffset, 28)
		if !ok {
			break
		}
		if name, ok := readNodeName(ctx, be32(parentBuf, 8)); ok {
			info.ParentNames = append(info.ParentNames, name)
		}
		parentVA = be32(parentBuf, 24)
	}
	info.RootNodeVA = lastVA

	return info, true
}

// readNodeName dereferences a NiFixedString name pointer to its
// null-terminated ASCII value.
func readNodeName(ctx *rtctx.Context, namePtr uint32) (string, bool) {
	if namePtr == 0 || !ctx.IsValidPointer(namePtr) {
		return "", false
	}
	offset, ok := ctx.VAToOffset(namePtr)
	if !ok {
		return "", false
	}
	return readCString(ctx, offset, 255)
}

// readCString reads a null-terminated, printable-ASCII string of at
// most maxLen bytes starting at a file offset already in hand.
func readCString(ctx *rtctx.Context, offset, maxLen uint32) (string, bool) {
	buf := make([]byte, 0, 64)
	for i := uint32(0); i < maxLen; i++ {
		b, ok := ctx.ReadU8(offset + i)
		if !ok {
			return "", false
		}
		if b == 0 {
			if len(buf) == 0 {
				return "", false
			}
			return string(buf), true
		}
		if b < 32 || b > 126 {
			return "", false
		}
		buf = append(buf, b)
	}
	return "", false
}

func sceneGraphDedupHash(meshOffset, nodeOffset uint32) uint64 {
	return uint64(meshOffset)<<32 | uint64(nodeOffset)
}
