// Copyright 2026 Fo3dump. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package config loads tunable ceilings for the runtime-reader engine.
// Defaults reproduce the engine's built-in ceilings exactly; a TOML file
// and environment overrides (in that order, file then env) let a
// harness tune them per run without recompiling, following the pattern
// holo-build decodes its manifests with (BurntSushi/toml) layered with
// xyproto/env/v2-style env overrides.
package config

import (
	"os"

	"github.com/BurntSushi/toml"
	env "github.com/xyproto/env/v2"
)

// Profile holds every tunable ceiling the engine consults. Zero-value
// Profile is meaningless; use Default().
type Profile struct {
	// MaxListItems bounds every intrusive-list traversal.
	MaxListItems int `toml:"max_list_items"`

	// MaxWorkers caps the AlignedHeapScanner / RTTI census fan-out.
	// Zero means "derive from logical CPU count at runtime".
	MaxWorkers int `toml:"max_workers"`

	// EnableMeshScanner, EnableTextureScanner, EnableSceneGraph toggle
	// the heuristic scanners independently of the FormReader pipeline.
	EnableMeshScanner    bool `toml:"enable_mesh_scanner"`
	EnableTextureScanner bool `toml:"enable_texture_scanner"`
	EnableSceneGraph     bool `toml:"enable_scene_graph"`

	// FaceGenMinValidFraction / TerrainMinValidFraction are the 50%
	// and 70% float-validity thresholds the FaceGen morph and terrain
	// vertex readers enforce.
	FaceGenMinValidFraction float64 `toml:"facegen_min_valid_fraction"`
	TerrainMinValidFraction float64 `toml:"terrain_min_valid_fraction"`
}

// Default returns the spec-mandated ceilings.
func Default() Profile {
	return Profile{
		MaxListItems:            4096,
		MaxWorkers:              0,
		EnableMeshScanner:       true,
		EnableTextureScanner:    true,
		EnableSceneGraph:        true,
		FaceGenMinValidFraction: 0.5,
		TerrainMinValidFraction: 0.7,
	}
}

// Load reads a Profile from a TOML file, falling back to defaults for
// unset fields, then layers environment overrides on top. path == ""
// skips the file and only applies defaults + env.
func Load(path string) (Profile, error) {
	p := Default()

	if path != "" {
		blob, err := os.ReadFile(path)
		if err != nil {
			return Profile{}, err
		}
		if _, err := toml.Decode(string(blob), &p); err != nil {
			return Profile{}, err
		}
	}

	applyEnvOverrides(&p)
	return p, nil
}

func applyEnvOverrides(p *Profile) {
	// xyproto/env/v2 snapshots os.Environ() into an internal cache on
	// first read and never refreshes it on its own; Load() forces a
	// fresh snapshot so changes made via os.Setenv after process start
	// (e.g. t.Setenv in tests) are actually observed.
	env.Load()
	p.MaxListItems = env.Int("X360_MAX_LIST_ITEMS", p.MaxListItems)
	p.MaxWorkers = env.Int("X360_MAX_WORKERS", p.MaxWorkers)
	p.EnableMeshScanner = envBool("X360_ENABLE_MESH_SCANNER", p.EnableMeshScanner)
	p.EnableTextureScanner = envBool("X360_ENABLE_TEXTURE_SCANNER", p.EnableTextureScanner)
	p.EnableSceneGraph = envBool("X360_ENABLE_SCENE_GRAPH", p.EnableSceneGraph)
}

// envBool preserves the existing default when the variable is unset,
// since xyproto/env/v2's Bool has no default-aware variant.
func envBool(name string, current bool) bool {
	if os.Getenv(name) == "" {
		return current
	}
	return env.Bool(name)
}
