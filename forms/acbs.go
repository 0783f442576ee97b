// Copyright 2026 Fo3dump. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package forms

import (
	"github.com/fo3dump/x360core/rtctx"
)

// ActorKind distinguishes the NPC vs. creature variant of ACBS field
// validation.
type ActorKind int

// Actor kinds.
const (
	ActorNPC ActorKind = iota
	ActorCreature
)

// ActorBaseStats is the decoded 24-byte ACBS block.
type ActorBaseStats struct {
	Flags         uint32
	Fatigue       uint16
	BarterGold    uint16
	Level         int16
	CalcMin       uint16
	CalcMax       uint16
	SpeedMult     uint16
	Karma         float32
	Disposition   int16
	TemplateFlags uint16
}

// readACBS reads and validates the 24-byte ACBS block at offset for
// the given actor kind. Any violation fails the whole subrecord.
func readACBS(ctx *rtctx.Context, offset uint32, kind ActorKind) (ActorBaseStats, bool) {
	buf, ok := ctx.ReadBytes(offset, 24)
	if !ok {
		return ActorBaseStats{}, false
	}

	stats := ActorBaseStats{
		Flags:         be32(buf, 0),
		Fatigue:       be16(buf, 4),
		BarterGold:    be16(buf, 6),
		Level:         bei16(buf, 8),
		CalcMin:       be16(buf, 10),
		CalcMax:       be16(buf, 12),
		SpeedMult:     be16(buf, 14),
		Karma:         beF32(buf, 16),
		Disposition:   bei16(buf, 20),
		TemplateFlags: be16(buf, 22),
	}

	if stats.Fatigue > 5000 {
		return ActorBaseStats{}, false
	}
	if stats.BarterGold > 50000 {
		return ActorBaseStats{}, false
	}
	if stats.SpeedMult > 500 {
		return ActorBaseStats{}, false
	}
	if !rtctx.IsNormalFloat(stats.Karma) {
		return ActorBaseStats{}, false
	}

	switch kind {
	case ActorNPC:
		if stats.Level < -128 || stats.Level > 100 {
			return ActorBaseStats{}, false
		}
		if stats.CalcMin > 100 || stats.CalcMax > 100 {
			return ActorBaseStats{}, false
		}
	case ActorCreature:
		if stats.Level < -127 || stats.Level > 255 {
			return ActorBaseStats{}, false
		}
		if stats.Karma < -1000 || stats.Karma > 1000 {
			return ActorBaseStats{}, false
		}
		if stats.Disposition < -200 || stats.Disposition > 200 {
			return ActorBaseStats{}, false
		}
	}

	return stats, true
}

// AIData is the decoded AI-data block.
type AIData struct {
	Aggression     uint8
	Confidence     uint8
	Energy         uint8
	Responsibility uint8
	Mood           uint8
	Flags          uint32
	Assistance     uint8
}

// readAIData reads the AI-data block, clamping mood to 0 when it
// exceeds 7 rather than rejecting
// the whole subrecord.
func readAIData(ctx *rtctx.Context, aiOffset, moodOffset, flagsOffset, assistanceOffset uint32) (AIData, bool) {
	aggression, ok1 := ctx.ReadU8(aiOffset)
	confidence, ok2 := ctx.ReadU8(aiOffset + 1)
	energy, ok3 := ctx.ReadU8(aiOffset + 2)
	responsibility, ok4 := ctx.ReadU8(aiOffset + 3)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return AIData{}, false
	}
	if aggression > 3 || confidence > 4 {
		return AIData{}, false
	}

	mood, ok := ctx.ReadU8(moodOffset)
	if !ok {
		return AIData{}, false
	}
	if mood > 7 {
		mood = 0
	}

	flags, ok := ctx.ReadU32BE(flagsOffset)
	if !ok {
		return AIData{}, false
	}

	assistance, ok := ctx.ReadU8(assistanceOffset)
	if !ok {
		return AIData{}, false
	}
	if assistance > 2 {
		return AIData{}, false
	}

	return AIData{
		Aggression:     aggression,
		Confidence:     confidence,
		Energy:         energy,
		Responsibility: responsibility,
		Mood:           mood,
		Flags:          flags,
		Assistance:     assistance,
	}, true
}
