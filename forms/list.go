// Copyright 2026 Fo3dump. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package forms

import "github.com/fo3dump/x360core/rtctx"

// InventoryItem is one resolved ContainerObject entry.
type InventoryItem struct {
	FormID uint32
	Count  int32
}

// walkInventory walks the BSSimpleList<ContainerObject*> pattern
// shared by NPC and Container inventories.
// firstDataVA/firstNextVA are the two inline words stored in the
// parent struct; the inline first_data_ptr is the first
// ContainerObject* (8 bytes: count:i32_be, item_ptr:u32_be). Walk caps
// at ctx.MaxListItems and carries a visited set keyed by node VA.
func walkInventory(ctx *rtctx.Context, firstDataVA, firstNextVA uint32) []InventoryItem {
	var items []InventoryItem
	visited := make(map[uint32]struct{})

	dataVA := firstDataVA
	nextVA := firstNextVA

	for i := 0; i < ctx.MaxListItems+1 && len(items) <= ctx.MaxListItems; i++ {
		if dataVA == 0 {
			break
		}
		if item, ok := readContainerObject(ctx, dataVA); ok {
			items = append(items, item)
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
		dataVA = node.dataVA
		nextVA = node.nextVA

		if len(items) >= ctx.MaxListItems {
			break
		}
	}
	return items
}

type listNode struct {
	dataVA uint32
	nextVA uint32
}

// readListNode reads an 8-byte { data_ptr, next_ptr } node.
func readListNode(ctx *rtctx.Context, va uint32) (listNode, bool) {
	if !ctx.IsValidPointer(va) {
		return listNode{}, false
	}
	offset, ok := ctx.VAToOffset(va)
	if !ok {
		return listNode{}, false
	}
	data, ok := ctx.ReadU32BE(offset)
	if !ok {
		return listNode{}, false
	}
	next, ok := ctx.ReadU32BE(offset + 4)
	if !ok {
		return listNode{}, false
	}
	return listNode{dataVA: data, nextVA: next}, true
}

// readContainerObject reads an 8-byte ContainerObject { count:i32_be,
// item_ptr:u32_be } at va, requiring count in (0, 100000] and item_ptr
// to resolve to a TESForm FormID.
func readContainerObject(ctx *rtctx.Context, va uint32) (InventoryItem, bool) {
	if !ctx.IsValidPointer(va) {
		return InventoryItem{}, false
	}
	offset, ok := ctx.VAToOffset(va)
	if !ok {
		return InventoryItem{}, false
	}
	count, ok := ctx.ReadI32BE(offset)
	if !ok || count <= 0 || count > 100000 {
		return InventoryItem{}, false
	}
	itemPtrVA, ok := ctx.ReadU32BE(offset + 4)
	if !ok {
		return InventoryItem{}, false
	}
	formID, ok := ctx.FollowPointerVAToFormID(itemPtrVA)
	if !ok {
		return InventoryItem{}, false
	}
	return InventoryItem{FormID: formID, Count: count}, true
}

// FactionMembership is one resolved NiTListItem faction rank entry.
type FactionMembership struct {
	FormID uint32
	Rank   int8
}

// walkFactions walks the NiTListItem faction-rank chain starting at
// headVA. Each node is 16 bytes { prev, next, faction_ptr, rank_data };
// the faction pointer must resolve to a FACT header with a non-null,
// non-sentinel FormID.
func walkFactions(ctx *rtctx.Context, headVA uint32) []FactionMembership {
	var out []FactionMembership
	visited := make(map[uint32]struct{})

	va := headVA
	for i := 0; i < ctx.MaxListItems+1 && len(out) <= ctx.MaxListItems; i++ {
		if va == 0 || !ctx.IsValidPointer(va) {
			break
		}
		if _, seen := visited[va]; seen {
			break
		}
		visited[va] = struct{}{}

		offset, ok := ctx.VAToOffset(va)
		if !ok {
			break
		}
		buf, ok := ctx.ReadBytes(offset, 16)
		if !ok {
			break
		}
		factionPtrVA := be32(buf, 8)
		rankData := buf[12]

		if membership, ok := resolveFactionPointer(ctx, factionPtrVA, int8(rankData)); ok {
			out = append(out, membership)
		}

		nextVA := be32(buf, 4)
		va = nextVA
	}
	return out
}

func resolveFactionPointer(ctx *rtctx.Context, factionPtrVA uint32, rank int8) (FactionMembership, bool) {
	if factionPtrVA == 0 || !ctx.IsValidPointer(factionPtrVA) {
		return FactionMembership{}, false
	}
	offset, ok := ctx.VAToOffset(factionPtrVA)
	if !ok {
		return FactionMembership{}, false
	}
	header, ok := ctx.ReadBytes(offset, TESFormHeaderSize)
	if !ok {
		return FactionMembership{}, false
	}
	if FormType(header[4]) != FormTypeFaction {
		return FactionMembership{}, false
	}
	formID := be32(header, 12)
	if formID == 0 || formID == 0xFFFFFFFF {
		return FactionMembership{}, false
	}
	return FactionMembership{FormID: formID, Rank: rank}, true
}

// PackageRef is one resolved package-list entry.
type PackageRef struct {
	FormID uint32
}

// walkPackageList walks the inline BSSimpleList<TESPackage*> head at
// (itemVA, nextVA), rejecting package pointers whose FormID is >=
// 0x01000000.
func walkPackageList(ctx *rtctx.Context, itemVA, nextVA uint32) []PackageRef {
	var out []PackageRef
	visited := make(map[uint32]struct{})

	item := itemVA
	next := nextVA
	for i := 0; i < ctx.MaxListItems+1 && len(out) <= ctx.MaxListItems; i++ {
		if item != 0 {
			if formID, ok := ctx.FollowPointerVAToFormID(item); ok && formID < 0x01000000 {
				out = append(out, PackageRef{FormID: formID})
			}
		}
		if next == 0 {
			break
		}
		if _, seen := visited[next]; seen {
			break
		}
		visited[next] = struct{}{}

		node, ok := readListNode(ctx, next)
		if !ok {
			break
		}
		item = node.dataVA
		next = node.nextVA
	}
	return out
}
