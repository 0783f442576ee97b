// Copyright 2026 Fo3dump. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package forms

import "github.com/fo3dump/x360core/rtctx"

// ScriptStructSize is the fixed struct size for TESScript; it is never
// shifted.
const ScriptStructSize = 100

// script validation ceilings.
const (
	scriptMaxVariables   = 1000
	scriptMaxRefObjects  = 1000
	scriptMaxDataSize    = 1_000_000
	scriptMaxSourceBytes = 16384
	scriptMaxVariableID  = 10000
)

// script field offsets, fixed layout. The pointer fields
// follow the 16-byte TESForm header; SCRIPT_HEADER occupies [40, 60).
const (
	scriptSourceTextOffset = 16
	scriptBytecodeOffset   = 20
	scriptRefListOffset    = 24 // inline list head: { item, next }
	scriptVarListOffset    = 32
	scriptHeaderOffset     = 40
)

// ScriptHeader is the inline SCRIPT_HEADER block at [40,60).
type ScriptHeader struct {
	VariableCount  uint32
	RefObjectCount uint32
	DataSize       uint32
	LastVariableID uint32
	IsQuest        bool
	IsMagicEffect  bool
	IsCompiled     bool
}

// ScriptReferencedObject is one 16-byte record in the referenced-object
// BSSimpleList.
type ScriptReferencedObject struct {
	EditorID   string
	FormID     uint32
	HasFormID  bool
	VariableID uint32
}

// ScriptVariable is one SCRIPT_LOCAL record from the variable list.
type ScriptVariable struct {
	IsInteger bool
	Name      string
}

// ScriptRecord is the full SCPT typed record.
type ScriptRecord struct {
	Header ScriptHeader

	SourceText        string
	HasSourceText     bool
	Bytecode          []byte
	HasBytecode       bool
	ReferencedObjects []ScriptReferencedObject
	Variables         []ScriptVariable

	Form RecordHeader
}

// ReadScript decodes a TESScript candidate.
func ReadScript(ctx *rtctx.Context, candidate FormCandidate) (ScriptRecord, bool) {
	if candidate.ExpectedFormType != FormTypeScript {
		return ScriptRecord{}, false
	}

	if candidate.FileOffset+ScriptStructSize > ctx.FileSize {
		return ScriptRecord{}, false
	}

	buf, ok := ctx.ReadBytes(candidate.FileOffset, ScriptStructSize)
	if !ok {
		return ScriptRecord{}, false
	}

	formHeader, ok := readTESFormHeader(ctx, candidate.FileOffset, candidate)
	if !ok {
		return ScriptRecord{}, false
	}

	header, ok := readScriptHeader(buf, scriptHeaderOffset)
	if !ok {
		return ScriptRecord{}, false
	}

	rec := ScriptRecord{Header: header, Form: formHeader}

	// Source text and bytecode are plain char* pointers, not BSStringT
	// descriptors. They sit directly after the TESForm header.
	if src, ok := ctx.ReadFixedString(candidate.FileOffset, scriptSourceTextOffset, scriptMaxSourceBytes); ok {
		rec.SourceText, rec.HasSourceText = src, true
	}

	if header.DataSize > 0 {
		if code, ok := readScriptBytecode(ctx, be32(buf, scriptBytecodeOffset), header.DataSize); ok {
			rec.Bytecode, rec.HasBytecode = code, true
		}
	}

	itemVA, nextVA := be32(buf, scriptRefListOffset), be32(buf, scriptRefListOffset+4)
	rec.ReferencedObjects = walkScriptReferencedObjects(ctx, itemVA, nextVA)

	itemVA, nextVA = be32(buf, scriptVarListOffset), be32(buf, scriptVarListOffset+4)
	rec.Variables = walkScriptVariables(ctx, itemVA, nextVA)

	return rec, true
}

func readScriptHeader(buf []byte, offset uint32) (ScriptHeader, bool) {
	if offset+20 > uint32(len(buf)) {
		return ScriptHeader{}, false
	}
	h := ScriptHeader{
		VariableCount:  be32(buf, offset),
		RefObjectCount: be32(buf, offset+4),
		DataSize:       be32(buf, offset+8),
		LastVariableID: be32(buf, offset+12),
		IsQuest:        buf[offset+16] != 0,
		IsMagicEffect:  buf[offset+17] != 0,
		IsCompiled:     buf[offset+18] != 0,
	}
	if h.VariableCount > scriptMaxVariables {
		return ScriptHeader{}, false
	}
	if h.RefObjectCount > scriptMaxRefObjects {
		return ScriptHeader{}, false
	}
	if h.DataSize > scriptMaxDataSize {
		return ScriptHeader{}, false
	}
	return h, true
}

func readScriptBytecode(ctx *rtctx.Context, ptrVA uint32, size uint32) ([]byte, bool) {
	if ptrVA == 0 {
		return nil, false
	}
	offset, ok := ctx.VAToOffset(ptrVA)
	if !ok {
		return nil, false
	}
	return ctx.ReadBytes(offset, size)
}

// walkScriptReferencedObjects walks the BSSimpleList<ReferencedObject>
// chain using the shared 8-byte node layout: each data
// pointer is a 16-byte record { cEditorID:BSStringT(8), p_form:u32,
// variable_id:u32 }.
func walkScriptReferencedObjects(ctx *rtctx.Context, dataVA, nextVA uint32) []ScriptReferencedObject {
	var out []ScriptReferencedObject
	visited := make(map[uint32]struct{})

	for i := 0; i < ctx.MaxListItems+1 && len(out) <= ctx.MaxListItems; i++ {
		if dataVA != 0 {
			if offset, ok := ctx.VAToOffset(dataVA); ok {
				if buf, ok := ctx.ReadBytes(offset, 16); ok {
					entry := ScriptReferencedObject{VariableID: be32(buf, 12)}
					if editorID, ok := ctx.ReadBSString(offset, 0); ok {
						entry.EditorID = editorID
					}
					if formID, ok := ctx.FollowPointerToFormID(buf, 8); ok {
						entry.FormID, entry.HasFormID = formID, true
					}
					out = append(out, entry)
				}
			}
		}

		if nextVA == 0 {
			break
		}
		if _, seen := visited[nextVA]; seen {
			break
		}
		visited[nextVA] = struct{}{}

		node, ok := readListNode(ctx, nextVA)
		if !ok {
			break
		}
		dataVA, nextVA = node.dataVA, node.nextVA
	}
	return out
}

// walkScriptVariables walks the BSSimpleList<SCRIPT_VAR> chain: each
// data pointer is a 32-byte record, SCRIPT_LOCAL(24) with is_integer
// at +12 followed by cName:BSStringT(8) at +24. Variable
// indices beyond scriptMaxVariableID terminate the walk.
func walkScriptVariables(ctx *rtctx.Context, dataVA, nextVA uint32) []ScriptVariable {
	var out []ScriptVariable
	visited := make(map[uint32]struct{})

	for i := 0; i < ctx.MaxListItems+1 && len(out) <= ctx.MaxListItems; i++ {
		if dataVA != 0 {
			offset, ok := ctx.VAToOffset(dataVA)
			if !ok {
				break
			}
			buf, ok := ctx.ReadBytes(offset, 32)
			if !ok {
				break
			}
			if be32(buf, 0) > scriptMaxVariableID {
				break
			}
			entry := ScriptVariable{IsInteger: buf[12] != 0}
			if name, ok := ctx.ReadBSString(offset, 24); ok {
				entry.Name = name
			}
			out = append(out, entry)
		}

		if nextVA == 0 {
			break
		}
		if _, seen := visited[nextVA]; seen {
			break
		}
		visited[nextVA] = struct{}{}

		node, ok := readListNode(ctx, nextVA)
		if !ok {
			break
		}
		dataVA, nextVA = node.dataVA, node.nextVA
	}
	return out
}
