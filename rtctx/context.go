// Copyright 2026 Fo3dump. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package rtctx composes memmap.MemoryMap and accessor.Accessor into
// the derived primitives every FormReader and HeuristicScanner reads
// through: big-endian scalar reads, VA->offset translation,
// pointer-to-FormID following, and the BSStringT reader. Every reader
// here returns a zero value and false on any boundary violation,
// pointer miss, or validation failure — it never panics or returns an
// error: "this offset does not hold a valid instance" is the common
// case, not a fault.
package rtctx

import (
	"math"

	"github.com/fo3dump/x360core/accessor"
	"github.com/fo3dump/x360core/memmap"
)

// Context composes the MemoryMap and Accessor plus the resolved build
// shift for one dump analysis.
type Context struct {
	Accessor *accessor.Accessor
	Map      *memmap.MemoryMap
	FileSize uint32
	Build    BuildProfile

	// MaxListItems bounds every intrusive-list traversal.
	MaxListItems int

	// MaxWorkers caps heap-scan fan-out; 0 derives from the logical
	// CPU count at scan time.
	MaxWorkers int

	// FaceGenMinValidFraction and TerrainMinValidFraction are the
	// float-validity floors the FaceGen morph and terrain vertex
	// readers enforce.
	FaceGenMinValidFraction float64
	TerrainMinValidFraction float64
}

// New composes a Context. maxListItems <= 0 falls back to the
// spec-mandated default ceiling of 4096.
func New(acc *accessor.Accessor, mm *memmap.MemoryMap, build BuildProfile, maxListItems int) *Context {
	if maxListItems <= 0 {
		maxListItems = 4096
	}
	return &Context{
		Accessor:                acc,
		Map:                     mm,
		FileSize:                acc.Size(),
		Build:                   build,
		MaxListItems:            maxListItems,
		FaceGenMinValidFraction: 0.5,
		TerrainMinValidFraction: 0.7,
	}
}

// Shift returns the active build's struct-offset shift.
func (c *Context) Shift() uint32 { return c.Build.Shift }

// ReadBytes copies length bytes from offset.
func (c *Context) ReadBytes(offset, length uint32) ([]byte, bool) {
	b, ok := c.Accessor.Read(offset, length)
	if !ok {
		return nil, false
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, true
}

// ReadU32BE reads a big-endian u32 (PowerPC) at offset.
func (c *Context) ReadU32BE(offset uint32) (uint32, bool) {
	b, ok := c.Accessor.Read(offset, 4)
	if !ok {
		return 0, false
	}
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), true
}

// ReadU16BE reads a big-endian u16 at offset.
func (c *Context) ReadU16BE(offset uint32) (uint16, bool) {
	b, ok := c.Accessor.Read(offset, 2)
	if !ok {
		return 0, false
	}
	return uint16(b[0])<<8 | uint16(b[1]), true
}

// ReadI32BE reads a big-endian signed i32 at offset.
func (c *Context) ReadI32BE(offset uint32) (int32, bool) {
	v, ok := c.ReadU32BE(offset)
	if !ok {
		return 0, false
	}
	return int32(v), true
}

// ReadI16BE reads a big-endian signed i16 at offset.
func (c *Context) ReadI16BE(offset uint32) (int16, bool) {
	v, ok := c.ReadU16BE(offset)
	if !ok {
		return 0, false
	}
	return int16(v), true
}

// ReadU8 reads a single byte at offset.
func (c *Context) ReadU8(offset uint32) (uint8, bool) {
	b, ok := c.Accessor.Read(offset, 1)
	if !ok {
		return 0, false
	}
	return b[0], true
}

// ReadI8 reads a signed byte at offset.
func (c *Context) ReadI8(offset uint32) (int8, bool) {
	v, ok := c.ReadU8(offset)
	if !ok {
		return 0, false
	}
	return int8(v), true
}

// ReadFloatBE reads a big-endian IEEE-754 float32 at offset.
func (c *Context) ReadFloatBE(offset uint32) (float32, bool) {
	v, ok := c.ReadU32BE(offset)
	if !ok {
		return 0, false
	}
	return math.Float32frombits(v), true
}

// VAToOffset translates va to a dump file offset.
func (c *Context) VAToOffset(va uint32) (uint32, bool) {
	return c.Map.VAToOffset(va)
}

// IsValidPointer is the module/heap classifier.
func (c *Context) IsValidPointer(va uint32) bool {
	return c.Map.ValidPointer(va)
}

// FollowPointerToFormID reads a u32_be from buf at offset; if zero or
// not a valid pointer, returns false. Otherwise translates VA to a
// file offset and reads the FormID at file_offset+12, rejecting
// 0 and 0xFFFFFFFF.
func (c *Context) FollowPointerToFormID(buf []byte, offset uint32) (uint32, bool) {
	if offset+4 > uint32(len(buf)) {
		return 0, false
	}
	va := uint32(buf[offset])<<24 | uint32(buf[offset+1])<<16 | uint32(buf[offset+2])<<8 | uint32(buf[offset+3])
	if va == 0 || !c.IsValidPointer(va) {
		return 0, false
	}
	return c.FollowPointerVAToFormID(va)
}

// FollowPointerVAToFormID is FollowPointerToFormID starting from a VA
// already in hand rather than embedded in a local buffer.
func (c *Context) FollowPointerVAToFormID(va uint32) (uint32, bool) {
	if va == 0 || !c.IsValidPointer(va) {
		return 0, false
	}
	fileOffset, ok := c.VAToOffset(va)
	if !ok {
		return 0, false
	}
	formID, ok := c.ReadU32BE(fileOffset + 12)
	if !ok {
		return 0, false
	}
	if formID == 0 || formID == 0xFFFFFFFF {
		return 0, false
	}
	return formID, true
}

// ReadBSString reads an 8-byte BSStringT descriptor { char* data_va;
// u16 length; u16 capacity } at baseOffset+fieldOffset and, if the
// length and pointer validate, returns the decoded ASCII string.
func (c *Context) ReadBSString(baseOffset, fieldOffset uint32) (string, bool) {
	desc, ok := c.ReadBytes(baseOffset+fieldOffset, 8)
	if !ok {
		return "", false
	}
	dataVA := uint32(desc[0])<<24 | uint32(desc[1])<<16 | uint32(desc[2])<<8 | uint32(desc[3])
	length := uint16(desc[4])<<8 | uint16(desc[5])

	if length == 0 || length > 256 {
		return "", false
	}
	if !c.IsValidPointer(dataVA) {
		return "", false
	}
	fileOffset, ok := c.VAToOffset(dataVA)
	if !ok {
		return "", false
	}
	raw, ok := c.ReadBytes(fileOffset, uint32(length))
	if !ok {
		return "", false
	}
	for _, b := range raw {
		if b < 32 || b > 126 {
			return "", false
		}
	}
	return string(raw), true
}

// ReadFixedString reads a NiFixedString: a 4-byte char* at
// baseOffset+fieldOffset, dereferenced to a null-terminated ASCII
// string of at most maxLen bytes, rejecting non-printable content.
func (c *Context) ReadFixedString(baseOffset, fieldOffset, maxLen uint32) (string, bool) {
	ptrVA, ok := c.ReadU32BE(baseOffset + fieldOffset)
	if !ok || ptrVA == 0 || !c.IsValidPointer(ptrVA) {
		return "", false
	}
	fileOffset, ok := c.VAToOffset(ptrVA)
	if !ok {
		return "", false
	}
	return c.readCString(fileOffset, maxLen)
}

func (c *Context) readCString(offset, maxLen uint32) (string, bool) {
	buf := make([]byte, 0, 64)
	for i := uint32(0); i < maxLen; i++ {
		b, ok := c.ReadU8(offset + i)
		if !ok {
			return "", false
		}
		if b == 0 {
			if len(buf) == 0 {
				return "", false
			}
			return string(buf), true
		}
		if b < 32 || b > 126 {
			return "", false
		}
		buf = append(buf, b)
	}
	return "", false
}

// IsNormalFloat reports whether f is neither NaN, nor +-Inf, nor
// denormal. Normal zero passes.
func IsNormalFloat(f float32) bool {
	if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
		return false
	}
	if f == 0 {
		return true
	}
	bits := math.Float32bits(f)
	exponent := (bits >> 23) & 0xFF
	return exponent != 0
}

// IsExactZeroBits reports whether f's raw bit pattern is exactly zero,
// the check callers use to distinguish "unset" from a
// legitimate normal zero (e.g. the hair-length reader).
func IsExactZeroBits(f float32) bool {
	return math.Float32bits(f) == 0
}
