// Copyright 2026 Fo3dump. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package forms

import "github.com/fo3dump/x360core/rtctx"

// DialogueProbeShifts are the candidate shifts scored by
// ProbeDialogueShift.
var DialogueProbeShifts = [4]uint32{0, 4, 8, 16}

// dialStructSize is the PDB-declared TESTopic size before shift. DIAL
// layout discovery has no confirmed reference the way the other form
// readers do, so this is the best-guess base size used only to
// bound the candidate read; production readers never consume it.
const dialStructSize = 40

// DialogueProbeResult is diagnostic output only: a best-scoring shift
// and a confidence in [0,1]. The shift it reports is a starting point
// for offline layout analysis, not something production runs should
// depend on without confirmation.
type DialogueProbeResult struct {
	BestShift  uint32
	Confidence float64
	Scores     map[uint32]float64
}

// ProbeDialogueShift scores each candidate shift against a DIAL
// candidate by checking how plausible the struct looks at that shift:
// FormID identity at +12, the FormType byte at +4 matching whatever
// type the candidate reports (no DIAL type code is hard-coded), and a quest-FormID
// pointer field whose presence is scored as a soft signal rather than
// a hard gate, since the layout itself is unconfirmed. Never wired
// into Orchestrator.
func ProbeDialogueShift(ctx *rtctx.Context, candidate FormCandidate) DialogueProbeResult {
	scores := make(map[uint32]float64, len(DialogueProbeShifts))

	for _, shift := range DialogueProbeShifts {
		structSize := dialStructSize + shift
		if candidate.FileOffset+structSize > ctx.FileSize {
			scores[shift] = 0
			continue
		}
		buf, ok := ctx.ReadBytes(candidate.FileOffset, structSize)
		if !ok {
			scores[shift] = 0
			continue
		}

		var score float64
		formType := FormType(buf[4])
		if formType == candidate.ExpectedFormType {
			score += 0.5
		}
		formID := be32(buf, 12)
		if formID == candidate.ExpectedFormID {
			score += 0.3
		}
		if formID != 0 && formID != 0xFFFFFFFF {
			score += 0.1
		}
		if questPtr := be32(buf, 16+shift); ctx.IsValidPointer(questPtr) {
			score += 0.1
		}
		scores[shift] = score
	}

	best, bestScore := uint32(0), -1.0
	for _, shift := range DialogueProbeShifts {
		if scores[shift] > bestScore {
			best, bestScore = shift, scores[shift]
		}
	}
	if bestScore < 0 {
		bestScore = 0
	}

	return DialogueProbeResult{BestShift: best, Confidence: bestScore, Scores: scores}
}
