// Copyright 2026 Fo3dump. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package memmap holds the minidump's reconstructed memory map: the
// sorted virtual-address to file-offset segment table plus the loaded
// module list, and the VA <-> offset translation built on top of it.
// The map itself is produced by the minidump stream parser; this
// package models its shape and the total lookup functions over it.
package memmap

import "sort"

// Xbox 360 address windows.
const (
	ModuleBase = 0x82000000
	ModuleEnd  = 0x90000000 // exclusive
	HeapBase   = 0x40000000
	HeapEnd    = 0x80000000 // exclusive
)

// PointerClass is the result of classifying a VA against the Xbox 360
// address windows.
type PointerClass int

// Pointer classes.
const (
	PointerInvalid PointerClass = iota
	PointerModule
	PointerHeap
)

// MemorySegment is one contiguous captured VA range.
type MemorySegment struct {
	VirtualAddress uint32
	Size           uint32
	FileOffset     uint32
}

// End returns the exclusive end VA of the segment.
func (s MemorySegment) End() uint32 { return s.VirtualAddress + s.Size }

// Module is a loaded module entry from the minidump's module list.
type Module struct {
	Name      string
	BaseVA    uint32
	Size      uint32
	Timestamp uint32
}

// End returns the exclusive end VA of the module's image.
func (m Module) End() uint32 { return m.BaseVA + m.Size }

// MemoryMap is the immutable VA<->offset segment table plus module
// list. Build once via New; all lookups are total functions.
type MemoryMap struct {
	segments []MemorySegment // sorted by VirtualAddress
	modules  []Module
}

// New builds a MemoryMap from an unsorted segment and module list.
// Segments are sorted by VirtualAddress; overlapping segments (should
// never occur in a well-formed dump) are kept in sorted order as
// supplied — the map never panics; a VA lookup uses the last segment
// (in sorted order) that starts at or below the VA, and misses if that
// segment does not cover it.
func New(segments []MemorySegment, modules []Module) *MemoryMap {
	sorted := make([]MemorySegment, len(segments))
	copy(sorted, segments)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].VirtualAddress < sorted[j].VirtualAddress
	})
	mods := make([]Module, len(modules))
	copy(mods, modules)
	return &MemoryMap{segments: sorted, modules: mods}
}

// Modules returns the loaded module list.
func (m *MemoryMap) Modules() []Module { return m.modules }

// Segments returns the sorted segment table.
func (m *MemoryMap) Segments() []MemorySegment { return m.segments }

// segmentFor returns the segment containing va, or (zero, false).
func (m *MemoryMap) segmentFor(va uint32) (MemorySegment, bool) {
	// Binary search for the last segment whose VirtualAddress <= va.
	i := sort.Search(len(m.segments), func(i int) bool {
		return m.segments[i].VirtualAddress > va
	})
	if i == 0 {
		return MemorySegment{}, false
	}
	seg := m.segments[i-1]
	if va >= seg.VirtualAddress && va < seg.End() {
		return seg, true
	}
	return MemorySegment{}, false
}

// VAToOffset translates a VA to a dump file offset.
func (m *MemoryMap) VAToOffset(va uint32) (uint32, bool) {
	seg, ok := m.segmentFor(va)
	if !ok {
		return 0, false
	}
	return seg.FileOffset + (va - seg.VirtualAddress), true
}

// OffsetToVA translates a dump file offset back to a VA.
func (m *MemoryMap) OffsetToVA(offset uint32) (uint32, bool) {
	for _, seg := range m.segments {
		if offset >= seg.FileOffset && offset < seg.FileOffset+seg.Size {
			return seg.VirtualAddress + (offset - seg.FileOffset), true
		}
	}
	return 0, false
}

// ClassifyPointer sorts a VA into module, heap, or invalid by address
// window alone: a pointer may classify as module- or heap-range
// without necessarily resolving to a captured segment.
func ClassifyPointer(va uint32) PointerClass {
	switch {
	case va >= ModuleBase && va < ModuleEnd:
		return PointerModule
	case va >= HeapBase && va < HeapEnd:
		return PointerHeap
	default:
		return PointerInvalid
	}
}

// ValidPointer reports whether va lands in a known window. It only
// classifies the address
// window; callers needing an actual readable byte must additionally
// resolve VAToOffset.
func (m *MemoryMap) ValidPointer(va uint32) bool {
	return ClassifyPointer(va) != PointerInvalid
}

// ModuleForVA returns the module whose image contains va.
func (m *MemoryMap) ModuleForVA(va uint32) (Module, bool) {
	for _, mod := range m.modules {
		if va >= mod.BaseVA && va < mod.End() {
			return mod, true
		}
	}
	return Module{}, false
}

// ContiguousBytesFromOffset returns the number of bytes available
// starting at offset without crossing a VA discontinuity:
// segments are accumulated while each successor's VA follows directly
// from the previous segment's end.
func (m *MemoryMap) ContiguousBytesFromOffset(offset uint32) uint32 {
	idx := -1
	for i, seg := range m.segments {
		if offset >= seg.FileOffset && offset < seg.FileOffset+seg.Size {
			idx = i
			break
		}
	}
	if idx == -1 {
		return 0
	}

	seg := m.segments[idx]
	total := (seg.FileOffset + seg.Size) - offset
	endVA := seg.End()
	for i := idx + 1; i < len(m.segments); i++ {
		next := m.segments[i]
		if next.VirtualAddress != endVA {
			break
		}
		total += next.Size
		endVA = next.End()
	}
	return total
}

// RegionGroup is a maximal run of segments where each successor's VA
// equals the predecessor's end.
type RegionGroup struct {
	Segments []MemorySegment
}

// StartOffset returns the file offset of the first segment in the group.
func (g RegionGroup) StartOffset() uint32 { return g.Segments[0].FileOffset }

// TotalSize returns the combined byte size of the group.
func (g RegionGroup) TotalSize() uint32 {
	var total uint32
	for _, s := range g.Segments {
		total += s.Size
	}
	return total
}

// ContiguousRegionGroups partitions the sorted segment table into
// maximal contiguous-VA runs.
func (m *MemoryMap) ContiguousRegionGroups() []RegionGroup {
	var groups []RegionGroup
	var current []MemorySegment
	var expectedVA uint32

	for _, seg := range m.segments {
		if len(current) > 0 && seg.VirtualAddress != expectedVA {
			groups = append(groups, RegionGroup{Segments: current})
			current = nil
		}
		current = append(current, seg)
		expectedVA = seg.End()
	}
	if len(current) > 0 {
		groups = append(groups, RegionGroup{Segments: current})
	}
	return groups
}

// IsHeapRegion reports whether a segment's VA falls in the heap window
// and so is eligible for AlignedHeapScanner passes.
func IsHeapRegion(seg MemorySegment) bool {
	return ClassifyPointer(seg.VirtualAddress) == PointerHeap
}

// HeapRegionGroups returns only the contiguous region groups whose
// segments are heap-classified, the input AlignedHeapScanner consumes.
func (m *MemoryMap) HeapRegionGroups() []RegionGroup {
	all := m.ContiguousRegionGroups()
	out := make([]RegionGroup, 0, len(all))
	for _, g := range all {
		if len(g.Segments) > 0 && IsHeapRegion(g.Segments[0]) {
			out = append(out, g)
		}
	}
	return out
}
