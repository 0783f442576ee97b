// Copyright 2026 Fo3dump. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package orchestrator drives one full dump analysis: it composes
// RuntimeContext construction, BuildProfile selection, FormReader
// invocation over pre-located candidates, and HeuristicScanner launch
// into one driven pass, joining results by FormID and by source
// offset. It does not interpret or transform the collected records
// beyond that join.
package orchestrator

import (
	"context"
	"sort"
	"sync/atomic"

	"github.com/fo3dump/x360core/accessor"
	"github.com/fo3dump/x360core/config"
	"github.com/fo3dump/x360core/forms"
	"github.com/fo3dump/x360core/heuristics"
	"github.com/fo3dump/x360core/internal/xlog"
	"github.com/fo3dump/x360core/memmap"
	"github.com/fo3dump/x360core/rtctx"
	"github.com/fo3dump/x360core/rtti"
)

// Progress is the atomic progress counter threaded through a Run
// call. Callers may poll it
// from another goroutine while Run is in flight.
type Progress struct {
	candidatesProcessed int64
	scannersCompleted   int64
}

// CandidatesProcessed returns the number of FormCandidates dispatched
// so far, read-write race free under concurrent Run.
func (p *Progress) CandidatesProcessed() int64 {
	return atomic.LoadInt64(&p.candidatesProcessed)
}

// ScannersCompleted returns how many of the (up to three) heuristic
// scanners have finished.
func (p *Progress) ScannersCompleted() int64 {
	return atomic.LoadInt64(&p.scannersCompleted)
}

// Inputs composes everything an external collaborator supplies:
// the dump file path, the parsed MemoryMap, optional pre-located
// FormCandidates, and an optional pre-supplied BuildProfile.
type Inputs struct {
	FilePath     string
	Map          *memmap.MemoryMap
	Candidates   []forms.FormCandidate
	BuildProfile *rtctx.BuildProfile // nil derives from Map.Modules()
	Profile      config.Profile
	Logger       *xlog.Helper
}

// Result is everything a Run call produces: reader records by value,
// keyed by FormID; the scanner lists; and the RTTI census.
type Result struct {
	Records map[uint32]any

	Meshes    []heuristics.ExtractedMesh
	Textures  []heuristics.ExtractedTexture
	SceneInfo []heuristics.SceneGraphInfo

	Census []rtti.CensusEntry

	// UncoveredClasses holds census entries whose IsTESForm flag is set
	// but whose vtable VA doesn't match any produced reader record's
	// vfptr: classes the RTTI walk can already name but no FormReader
	// exists for yet. Only the class name and instance count are
	// reported; field layouts are never guessed.
	UncoveredClasses []rtti.CensusEntry

	BuildProfile rtctx.BuildProfile
}

// Run executes the full orchestration pass. ctx's cancellation
// is observed between phases (before the readers and before each
// scanner); a scanner pass already under way runs to completion, so
// cancellation is not observed between region groups, and it is
// never observed mid struct-read.
func Run(ctx context.Context, in Inputs, progress *Progress) (Result, error) {
	if progress == nil {
		progress = &Progress{}
	}
	logger := in.Logger
	if logger == nil {
		logger = xlog.NewHelper(nil)
	}

	acc, err := accessor.Open(in.FilePath, logger)
	if err != nil {
		return Result{}, err
	}
	defer acc.Close()

	build := selectBuildProfile(in)

	rc := rtctx.New(acc, in.Map, build, in.Profile.MaxListItems)
	rc.MaxWorkers = in.Profile.MaxWorkers
	if in.Profile.FaceGenMinValidFraction > 0 {
		rc.FaceGenMinValidFraction = in.Profile.FaceGenMinValidFraction
	}
	if in.Profile.TerrainMinValidFraction > 0 {
		rc.TerrainMinValidFraction = in.Profile.TerrainMinValidFraction
	}

	result := Result{Records: make(map[uint32]any), BuildProfile: build}

	if ctx.Err() != nil {
		return result, ctx.Err()
	}
	result.Records = runFormReaders(rc, in.Candidates, progress)

	if ctx.Err() != nil {
		return result, ctx.Err()
	}

	if in.Profile.EnableMeshScanner {
		result.Meshes = heuristics.ScanMeshes(rc)
		atomic.AddInt64(&progress.scannersCompleted, 1)
	}
	if ctx.Err() != nil {
		return result, ctx.Err()
	}

	if in.Profile.EnableTextureScanner {
		result.Textures = heuristics.ScanTextures(rc)
		atomic.AddInt64(&progress.scannersCompleted, 1)
	}
	if ctx.Err() != nil {
		return result, ctx.Err()
	}

	if in.Profile.EnableSceneGraph && len(result.Meshes) > 0 {
		result.SceneInfo = heuristics.WalkSceneGraph(rc, result.Meshes)
		atomic.AddInt64(&progress.scannersCompleted, 1)
	}
	if ctx.Err() != nil {
		return result, ctx.Err()
	}

	result.Census = rtti.Census(rc, rc.ReadBytes)
	result.UncoveredClasses = uncoveredCensusEntries(rc, result.Census, result.Records)

	sortSceneInfo(result.SceneInfo)
	return result, nil
}

// uncoveredCensusEntries joins each CensusEntry's resolved vtable VA
// against the vfptr word (TESForm header +0) of every produced
// record's source offset, and keeps only the TESForm-tagged entries
// with no matching record.
func uncoveredCensusEntries(rc *rtctx.Context, census []rtti.CensusEntry, records map[uint32]any) []rtti.CensusEntry {
	covered := make(map[uint32]struct{}, len(records))
	for _, rec := range records {
		offset, ok := forms.SourceOffsetOf(rec)
		if !ok {
			continue
		}
		if vfptr, ok := rc.ReadU32BE(offset); ok {
			covered[vfptr] = struct{}{}
		}
	}

	var out []rtti.CensusEntry
	for _, entry := range census {
		if !entry.IsTESForm {
			continue
		}
		if _, found := covered[entry.Result.VtableVA]; found {
			continue
		}
		out = append(out, entry)
	}
	return out
}

func selectBuildProfile(in Inputs) rtctx.BuildProfile {
	if in.BuildProfile != nil {
		return *in.BuildProfile
	}
	names := make([]string, 0, len(in.Map.Modules()))
	for _, m := range in.Map.Modules() {
		names = append(names, m.Name)
	}
	return rtctx.ResolveBuildProfile(names)
}

// runFormReaders dispatches every pre-located candidate and joins
// accepted records by FormID.
func runFormReaders(rc *rtctx.Context, candidates []forms.FormCandidate, progress *Progress) map[uint32]any {
	out := make(map[uint32]any, len(candidates))
	for _, candidate := range candidates {
		atomic.AddInt64(&progress.candidatesProcessed, 1)
		rec, ok := forms.Dispatch(rc, candidate)
		if !ok {
			continue
		}
		formID, ok := forms.FormIDOf(rec)
		if !ok {
			continue
		}
		out[formID] = rec
	}
	return out
}

func sortSceneInfo(infos []heuristics.SceneGraphInfo) {
	sort.Slice(infos, func(i, j int) bool { return infos[i].MeshSourceOffset < infos[j].MeshSourceOffset })
}
