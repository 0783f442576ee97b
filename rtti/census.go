// Copyright 2026 Fo3dump. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package rtti

import (
	"sort"
	"sync"

	"github.com/shirou/gopsutil/cpu"

	"github.com/fo3dump/x360core/memmap"
	"github.com/fo3dump/x360core/rtctx"
)

// CensusEntry pairs a resolved RTTI Result with its heap occurrence
// count and the derived is_tes_form flag.
type CensusEntry struct {
	Result        Result
	InstanceCount int
	IsTESForm     bool
}

// Census scans every heap segment for 4-byte-aligned u32_be values
// that look like module-range pointers, counts occurrences, drops
// anything seen fewer than twice, resolves each remaining candidate
// via Resolve, and orders the result by descending frequency.
func Census(ctx *rtctx.Context, readRegion func(offset, size uint32) ([]byte, bool)) []CensusEntry {
	counts := countCandidatePointers(ctx, readRegion)

	type candidate struct {
		va    uint32
		count int
	}
	candidates := make([]candidate, 0, len(counts))
	for va, n := range counts {
		if n < 2 {
			continue
		}
		candidates = append(candidates, candidate{va: va, count: n})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].count != candidates[j].count {
			return candidates[i].count > candidates[j].count
		}
		return candidates[i].va < candidates[j].va
	})

	entries := make([]CensusEntry, 0, len(candidates))
	for _, c := range candidates {
		result, ok := Resolve(ctx, c.va)
		if !ok {
			continue
		}
		entries = append(entries, CensusEntry{
			Result:        result,
			InstanceCount: c.count,
			IsTESForm:     result.IsTESForm(),
		})
	}
	return entries
}

func countCandidatePointers(ctx *rtctx.Context, readRegion func(offset, size uint32) ([]byte, bool)) map[uint32]int {
	groups := ctx.Map.HeapRegionGroups()

	workers := workerCap(ctx)
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	counts := make(map[uint32]int)

	for _, group := range groups {
		group := group
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			base := group.StartOffset()
			size := group.TotalSize()
			if size < 4 {
				return
			}
			chunk, ok := readRegion(base, size)
			if !ok {
				return
			}

			local := make(map[uint32]int)
			for off := uint32(0); off+4 <= size; off += 4 {
				v := uint32(chunk[off])<<24 | uint32(chunk[off+1])<<16 | uint32(chunk[off+2])<<8 | uint32(chunk[off+3])
				if v >= memmap.ModuleBase && v < memmap.ModuleEnd {
					local[v]++
				}
			}

			mu.Lock()
			for v, n := range local {
				counts[v] += n
			}
			mu.Unlock()
		}()
	}

	wg.Wait()
	return counts
}

func workerCap(ctx *rtctx.Context) int {
	if ctx.MaxWorkers > 0 {
		return ctx.MaxWorkers
	}
	n, err := cpu.Counts(true)
	if err != nil || n <= 0 {
		return 1
	}
	return n
}
