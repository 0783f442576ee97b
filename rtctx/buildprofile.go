// Copyright 2026 Fo3dump. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package rtctx

import "strings"

// BuildKind identifies the captured build of the game executable.
type BuildKind int

// Known build kinds.
const (
	BuildUnknown BuildKind = iota
	BuildDebug
	BuildReleaseMemDebug
	BuildReleaseBeta
	BuildRelease
)

func (b BuildKind) String() string {
	switch b {
	case BuildDebug:
		return "Debug"
	case BuildReleaseMemDebug:
		return "Release MemDebug"
	case BuildReleaseBeta:
		return "Release Beta"
	case BuildRelease:
		return "Release"
	default:
		return "Unknown"
	}
}

// BuildProfile resolves the build-specific struct-offset shift s.
type BuildProfile struct {
	Kind  BuildKind
	Shift uint32
}

// ResolveBuildProfile inspects module filenames for build-identifying
// keywords and derives the shift s.
func ResolveBuildProfile(moduleNames []string) BuildProfile {
	hasDebug := false
	hasMemDebug := false
	hasReleaseBeta := false
	hasFalloutExe := false

	for _, name := range moduleNames {
		lower := strings.ToLower(name)
		switch {
		case strings.Contains(lower, "memdebug"):
			hasMemDebug = true
		case strings.Contains(lower, "debug"):
			hasDebug = true
		}
		if strings.Contains(lower, "release_beta") || strings.Contains(lower, "releasebeta") {
			hasReleaseBeta = true
		}
		if strings.HasPrefix(lower, "fallout") && strings.HasSuffix(lower, ".exe") {
			hasFalloutExe = true
		}
	}

	switch {
	case hasDebug && !hasMemDebug:
		return BuildProfile{Kind: BuildDebug, Shift: 4}
	case hasMemDebug:
		return BuildProfile{Kind: BuildReleaseMemDebug, Shift: 4}
	case hasReleaseBeta:
		return BuildProfile{Kind: BuildReleaseBeta, Shift: 16}
	case hasFalloutExe:
		return BuildProfile{Kind: BuildRelease, Shift: 16}
	default:
		return BuildProfile{Kind: BuildUnknown, Shift: 0}
	}
}
