// Copyright 2026 Fo3dump. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package scan implements the AlignedHeapScanner: a
// 16-byte-aligned fan-out over heap-classified contiguous region
// groups, hoisted into one engine parameterized by a fast filter and a
// processor, which the mesh, texture and scene-graph passes reuse. The
// RTTI census does not run through this engine; it has its own
// 4-byte-aligned pass in package rtti.
package scan

import (
	"sync"
	"sync/atomic"

	"github.com/shirou/gopsutil/cpu"

	"github.com/fo3dump/x360core/memmap"
)

const alignment = 16

// CandidateTest is the fast filter invoked at every aligned offset.
// chunk is the raw bytes of the region group starting at its base file
// offset; offsetInChunk is the candidate's position within chunk.
type CandidateTest func(chunk []byte, offsetInChunk uint32) bool

// Processor handles an accepted candidate. It MUST be safe for
// concurrent invocation from arbitrary worker goroutines.
type Processor func(chunk []byte, offsetInChunk uint32, fileOffset uint32)

// Options configures a scan pass.
type Options struct {
	// MinStructSize bounds the tail of each region: no candidate may
	// extend past region end.
	MinStructSize uint32

	// MaxWorkers caps concurrency; <= 0 derives from logical CPU count.
	MaxWorkers int
}

// workerCap resolves the effective worker cap, deriving from
// gopsutil's logical CPU count (rather than bare runtime.NumCPU()) so
// the cap reflects a cgroup-visible core count inside containers.
func workerCap(requested int) int {
	if requested > 0 {
		return requested
	}
	n, err := cpu.Counts(true)
	if err != nil || n <= 0 {
		return 1
	}
	return n
}

// Run fans the scan out across mm's heap region groups, one worker per
// group capped at opts.MaxWorkers, dispatching every 16-byte-aligned
// offset to test and, on acceptance, to process. Within a single
// region, offsets are visited in ascending order; across regions
// there is no ordering guarantee.
func Run(readRegion func(fileOffset, size uint32) ([]byte, bool), mm *memmap.MemoryMap, opts Options, test CandidateTest, process Processor) {
	groups := mm.HeapRegionGroups()
	if len(groups) == 0 {
		return
	}

	limit := workerCap(opts.MaxWorkers)
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	var scanned int64

	for _, group := range groups {
		group := group
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			scanGroup(readRegion, group, opts, test, process, &scanned)
		}()
	}

	wg.Wait()
}

func scanGroup(readRegion func(fileOffset, size uint32) ([]byte, bool), group memmap.RegionGroup, opts Options, test CandidateTest, process Processor, scanned *int64) {
	base := group.StartOffset()
	size := group.TotalSize()
	if size < opts.MinStructSize {
		return
	}

	chunk, ok := readRegion(base, size)
	if !ok {
		return
	}

	last := size - opts.MinStructSize
	for offset := uint32(0); offset <= last; offset += alignment {
		atomic.AddInt64(scanned, 1)
		if test(chunk, offset) {
			process(chunk, offset, base+offset)
		}
	}
}

// DedupGate is the concurrent first-writer-wins map the scanner
// pattern relies on for shared dedup under concurrency: the first
// goroutine to claim a content hash wins, everyone else skips.
type DedupGate struct {
	mu   sync.Mutex
	seen map[uint64]struct{}
}

// NewDedupGate builds an empty gate.
func NewDedupGate() *DedupGate {
	return &DedupGate{seen: make(map[uint64]struct{})}
}

// Claim returns true the first time hash is seen, false thereafter.
func (g *DedupGate) Claim(hash uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.seen[hash]; ok {
		return false
	}
	g.seen[hash] = struct{}{}
	return true
}

// ResultBag is a concurrency-safe append-only collector of results tied
// together with an owning DedupGate, the "concurrent bag plus
// concurrent dedup map" shape every scanner shares.
type ResultBag[T any] struct {
	gate    *DedupGate
	mu      sync.Mutex
	results []T
}

// NewResultBag builds a ResultBag sharing gate's dedup state.
func NewResultBag[T any](gate *DedupGate) *ResultBag[T] {
	return &ResultBag[T]{gate: gate}
}

// TryAdd claims hash and, if this goroutine wins the claim, appends
// value. Returns whether the add happened.
func (b *ResultBag[T]) TryAdd(hash uint64, value T) bool {
	if !b.gate.Claim(hash) {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.results = append(b.results, value)
	return true
}

// Results returns a snapshot of the collected results.
func (b *ResultBag[T]) Results() []T {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]T, len(b.results))
	copy(out, b.results)
	return out
}
