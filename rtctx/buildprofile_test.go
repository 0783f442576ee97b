// Copyright 2026 Fo3dump. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package rtctx

import "testing"

func TestResolveBuildProfile(t *testing.T) {
	cases := []struct {
		name    string
		modules []string
		kind    BuildKind
		shift   uint32
	}{
		{"debug", []string{"Fallout3_Debug.xex", "xboxkrnl.exe"}, BuildDebug, 4},
		{"memdebug", []string{"Fallout3_MemDebug.xex"}, BuildReleaseMemDebug, 4},
		{"release beta underscore", []string{"Fallout3_Release_Beta.xex"}, BuildReleaseBeta, 16},
		{"release beta joined", []string{"Fallout3ReleaseBeta.xex"}, BuildReleaseBeta, 16},
		{"release", []string{"Fallout3.exe", "xam.xex"}, BuildRelease, 16},
		{"unknown", []string{"xboxkrnl.exe", "xam.xex"}, BuildUnknown, 0},
		{"empty", nil, BuildUnknown, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolveBuildProfile(tc.modules)
			if got.Kind != tc.kind || got.Shift != tc.shift {
				t.Fatalf("ResolveBuildProfile(%v) = %v/%d, want %v/%d",
					tc.modules, got.Kind, got.Shift, tc.kind, tc.shift)
			}
		})
	}
}

func TestResolveBuildProfileMemDebugBeatsDebug(t *testing.T) {
	// "MemDebug" contains "Debug"; the MemDebug rule must win.
	got := ResolveBuildProfile([]string{"Fallout3_MemDebug.xex"})
	if got.Kind != BuildReleaseMemDebug {
		t.Fatalf("Kind = %v", got.Kind)
	}
}
