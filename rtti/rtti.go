// Copyright 2026 Fo3dump. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package rtti implements the MSVC RTTI walker: given a
// candidate vtable VA, it follows vtable[-1] -> CompleteObjectLocator
// -> TypeDescriptor -> ClassHierarchyDescriptor -> BaseClassDescriptor[*]
// to recover the C++ class name and inheritance chain, and runs the
// heap-wide vtable-frequency census on top of the same machinery. It
// shares VA resolution and pointer validation with rtctx.Context, the
// way the teacher's pe.File.ParseDataDirectories shares its
// section/offset resolution helpers (helper.go) across every directory
// parser.
package rtti

import (
	"strings"

	"github.com/fo3dump/x360core/memmap"
	"github.com/fo3dump/x360core/rtctx"
)

// BaseClass is one entry of a resolved inheritance chain.
type BaseClass struct {
	ClassName          string
	MemberDisplacement int32
}

// Result is a fully resolved RTTI chain for one vtable VA.
type Result struct {
	VtableVA           uint32
	ClassName          string
	MangledName        string
	ObjectOffset       uint32
	BaseClasses        []BaseClass
	HasMultipleInherit bool
	HasVirtualInherit  bool
}

const (
	classPrefix    = ".?AV"
	structPrefix   = ".?AU"
	maxBaseClasses = 32
)

// demangle strips the .?AV/.?AU prefix and everything from "@@" onward.
func demangle(mangled string) (string, bool) {
	var rest string
	switch {
	case strings.HasPrefix(mangled, classPrefix):
		rest = mangled[len(classPrefix):]
	case strings.HasPrefix(mangled, structPrefix):
		rest = mangled[len(structPrefix):]
	default:
		return "", false
	}
	if idx := strings.Index(rest, "@@"); idx >= 0 {
		rest = rest[:idx]
	}
	if rest == "" {
		return "", false
	}
	return rest, true
}

// Resolve walks the RTTI chain for vtableVA. Any failure anywhere in
// the chain yields (Result{}, false) — never a partial record.
func Resolve(ctx *rtctx.Context, vtableVA uint32) (Result, bool) {
	// Step 1: vtable[-4] is the COL pointer (u32_be, module pointer).
	colPtrVA, ok := readModulePointerBefore(ctx, vtableVA)
	if !ok {
		return Result{}, false
	}

	colOffset, ok := ctx.VAToOffset(colPtrVA)
	if !ok {
		return Result{}, false
	}

	// Step 2: CompleteObjectLocator (20 bytes, all u32_be).
	signature, ok := ctx.ReadU32BE(colOffset)
	if !ok || signature != 0 {
		return Result{}, false
	}
	objectOffset, ok := ctx.ReadU32BE(colOffset + 4)
	if !ok {
		return Result{}, false
	}
	pTypeDescriptor, ok := ctx.ReadU32BE(colOffset + 12)
	if !ok || !isModulePointer(pTypeDescriptor) {
		return Result{}, false
	}
	pCHD, ok := ctx.ReadU32BE(colOffset + 16)
	if !ok {
		return Result{}, false
	}

	// Step 3: TypeDescriptor: skip 8 bytes (vfptr + spare), read ASCII name.
	mangled, ok := readTypeDescriptorName(ctx, pTypeDescriptor)
	if !ok {
		return Result{}, false
	}
	className, ok := demangle(mangled)
	if !ok {
		return Result{}, false
	}

	// Step 4: ClassHierarchyDescriptor (16 bytes).
	chdOffset, ok := ctx.VAToOffset(pCHD)
	if !ok {
		return Result{}, false
	}
	attributes, ok := ctx.ReadU32BE(chdOffset + 4)
	if !ok {
		return Result{}, false
	}
	numBaseClasses, ok := ctx.ReadU32BE(chdOffset + 8)
	if !ok || numBaseClasses < 1 || numBaseClasses > maxBaseClasses {
		return Result{}, false
	}
	pBaseClassArray, ok := ctx.ReadU32BE(chdOffset + 12)
	if !ok || !ctx.IsValidPointer(pBaseClassArray) {
		return Result{}, false
	}
	baseArrayOffset, ok := ctx.VAToOffset(pBaseClassArray)
	if !ok {
		return Result{}, false
	}

	// Step 5: each BaseClassDescriptor pointer.
	bases := make([]BaseClass, 0, numBaseClasses)
	for i := uint32(0); i < numBaseClasses; i++ {
		bcdPtrVA, ok := ctx.ReadU32BE(baseArrayOffset + 4*i)
		if !ok || !ctx.IsValidPointer(bcdPtrVA) {
			return Result{}, false
		}
		bcdOffset, ok := ctx.VAToOffset(bcdPtrVA)
		if !ok {
			return Result{}, false
		}
		bcdTypeDescVA, ok := ctx.ReadU32BE(bcdOffset)
		if !ok || !ctx.IsValidPointer(bcdTypeDescVA) {
			return Result{}, false
		}
		displacement, ok := ctx.ReadI32BE(bcdOffset + 8)
		if !ok {
			return Result{}, false
		}
		bcMangled, ok := readTypeDescriptorName(ctx, bcdTypeDescVA)
		if !ok {
			return Result{}, false
		}
		bcName, ok := demangle(bcMangled)
		if !ok {
			return Result{}, false
		}
		bases = append(bases, BaseClass{ClassName: bcName, MemberDisplacement: displacement})
	}

	// Invariant: at least one base class entry equals self.
	foundSelf := false
	for _, b := range bases {
		if b.ClassName == className {
			foundSelf = true
			break
		}
	}
	if !foundSelf {
		return Result{}, false
	}

	return Result{
		VtableVA:           vtableVA,
		ClassName:          className,
		MangledName:        mangled,
		ObjectOffset:       objectOffset,
		BaseClasses:        bases,
		HasMultipleInherit: attributes&0x1 != 0,
		HasVirtualInherit:  attributes&0x2 != 0,
	}, true
}

// IsTESForm reports whether the resolved chain contains a base class
// named TESForm or TESObject.
func (r Result) IsTESForm() bool {
	for _, b := range r.BaseClasses {
		if b.ClassName == "TESForm" || b.ClassName == "TESObject" {
			return true
		}
	}
	return false
}

// isModulePointer gates the RTTI metadata pointers: the COL and
// TypeDescriptor always live in the executable image, so a heap-range
// value here means the candidate is not a vtable.
func isModulePointer(va uint32) bool {
	return memmap.ClassifyPointer(va) == memmap.PointerModule
}

func readModulePointerBefore(ctx *rtctx.Context, va uint32) (uint32, bool) {
	offset, ok := ctx.VAToOffset(va)
	if !ok || offset < 4 {
		return 0, false
	}
	colPtr, ok := ctx.ReadU32BE(offset - 4)
	if !ok || !isModulePointer(colPtr) {
		return 0, false
	}
	return colPtr, true
}

// readTypeDescriptorName reads the TypeDescriptor's 8-byte prefix
// (vfptr+spare) followed by a null-terminated ASCII name, bounded at
// 256 bytes (matching the demangled-class-name byte budget).
func readTypeDescriptorName(ctx *rtctx.Context, typeDescVA uint32) (string, bool) {
	offset, ok := ctx.VAToOffset(typeDescVA)
	if !ok {
		return "", false
	}
	nameOffset := offset + 8
	buf := make([]byte, 0, 64)
	for i := uint32(0); i < 256; i++ {
		b, ok := ctx.ReadU8(nameOffset + i)
		if !ok {
			return "", false
		}
		if b == 0 {
			if len(buf) == 0 {
				return "", false
			}
			return string(buf), true
		}
		buf = append(buf, b)
	}
	return "", false
}
