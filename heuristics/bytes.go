// Copyright 2026 Fo3dump. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package heuristics

import "math"

func be32(buf []byte, offset uint32) uint32 {
	return uint32(buf[offset])<<24 | uint32(buf[offset+1])<<16 | uint32(buf[offset+2])<<8 | uint32(buf[offset+3])
}

func be16(buf []byte, offset uint32) uint16 {
	return uint16(buf[offset])<<8 | uint16(buf[offset+1])
}

func beF32(buf []byte, offset uint32) float32 {
	return math.Float32frombits(be32(buf, offset))
}

func float32bits(v float32) uint32 {
	return math.Float32bits(v)
}
