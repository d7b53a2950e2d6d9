// Copyright 2026 The PVA Server Authors
// SPDX-License-Identifier: Apache-2.0

package pvdata

import "fmt"

// maxTypeDepth bounds type-stream recursion. 20 is sufficient for any
// real telemetry structure; exceeding it is treated as a malformed or
// adversarial stream rather than a legitimately deep type.
const maxTypeDepth = 20

// EncodeType appends root's encoding (spec.md §4.2.1) to b. The
// encoder never itself emits Cache-Define/Cache-Ref tags; that is a
// sender-side policy layered on top by the caller (see
// EncodeTypeCached).
func EncodeType(b *Buffer, root *FieldDesc, typ *Type) {
	encodeTypeNode(b, root, typ)
}

func encodeTypeNode(b *Buffer, node *FieldDesc, typ *Type) {
	if !b.Good() {
		return
	}
	b.PutUint8(uint8(node.Code))
	switch {
	case node.Code == TypeNull:
		return
	case node.Code == StructA, node.Code == UnionA, node.Code == AnyA:
		if len(node.Miter) != 1 {
			b.Fault("EncodeType", fmt.Errorf("%w: array-of-compound node without element child", ErrInvalidSelector))
			return
		}
		encodeTypeNode(b, typ.Child(node, node.Miter[0]), typ)
	case node.Code.ScalarOf() == Struct || node.Code.ScalarOf() == Union:
		b.PutString(node.ID)
		b.PutSize(uint64(len(node.Miter)))
		for _, m := range node.Miter {
			b.PutString(m.Name)
			encodeTypeNode(b, typ.Child(node, m), typ)
		}
	default:
		// Scalars, Any, and scalar arrays carry no further type payload.
	}
}

// EncodeTypeCached wraps EncodeType with the Cache-Define/Cache-Ref
// sender policy: the first time a root with a given cache key is sent
// on a connection, it is wrapped in Cache-Define; subsequent sends of
// the same key emit only a Cache-Ref.
func EncodeTypeCached(b *Buffer, root *FieldDesc, typ *Type, cache *Cache, key uint16, defined *bool) {
	if !b.Good() {
		return
	}
	if *defined {
		b.PutUint8(uint8(CacheRef))
		b.PutUint16(key)
		return
	}
	b.PutUint8(uint8(CacheDefine))
	b.PutUint16(key)
	encodeTypeNode(b, root, typ)
	*defined = true
}

// DecodeType reads one type subtree from b into a fresh Type, using
// cache for Cache-Define/Cache-Ref resolution. Returns nil (with b
// unfaulted) if the stream held a bare Null tag.
func DecodeType(b *Buffer, cache *Cache) *Type {
	var nodes []FieldDesc
	decodeTypeNode(b, &nodes, cache, 0, -1)
	if !b.Good() {
		return nil
	}
	if len(nodes) == 0 {
		return nil
	}
	typ := &Type{Nodes: nodes}
	typ.CalculateOffsets()
	return typ
}

// decodeTypeNode implements spec.md §4.2.2's from_wire over a growable
// node slice, mirroring dataencode.cpp's recursive descent.
func decodeTypeNode(b *Buffer, nodes *[]FieldDesc, cache *Cache, depth int, parent int) {
	if !b.Good() {
		return
	}
	if depth > maxTypeDepth {
		b.Fault("DecodeType", ErrDepthExceeded)
		return
	}
	code := TypeCode(b.GetUint8())
	if !b.Good() {
		return
	}

	switch code {
	case TypeNull:
		return

	case CacheDefine:
		key := b.GetUint16()
		if !b.Good() {
			return
		}
		start := len(*nodes)
		decodeTypeNode(b, nodes, cache, depth+1, parent)
		if !b.Good() {
			return
		}
		if len(*nodes) == start {
			b.Fault("DecodeType", ErrEmptyCacheDefine)
			return
		}
		cache.Define(key, (*nodes)[start:])
		return

	case CacheRef:
		key := b.GetUint16()
		if !b.Good() {
			return
		}
		cached := cache.Lookup(key)
		if cached == nil {
			b.Fault("DecodeType", ErrCacheMiss)
			return
		}
		spliceCachedSubtree(nodes, cached, parent)
		return
	}

	if code.IsDeprecatedFixedLength() {
		b.Fault("DecodeType", ErrDeprecatedFixedLength)
		return
	}

	selfIndex := len(*nodes)
	*nodes = append(*nodes, FieldDesc{Code: code, Hash: uint64(code), Index: selfIndex, Parent: parent})

	switch {
	case code == StructA, code == UnionA, code == AnyA:
		decodeTypeNode(b, nodes, cache, depth+1, selfIndex)
		if !b.Good() {
			return
		}
		self := &(*nodes)[selfIndex]
		if len(*nodes) == selfIndex+1 {
			// No child decoded (e.g. nested Null) — the array has no
			// element description, which is never valid.
			b.Fault("DecodeType", ErrArrayElementCode)
			return
		}
		child := &(*nodes)[selfIndex+1]
		if child.Code != code.ScalarOf() {
			b.Fault("DecodeType", ErrArrayElementCode)
			return
		}
		self.Miter = []MiterEntry{{Name: "", Rel: 1}}
		self.Hash ^= child.Hash

	case code.ScalarOf() == Struct, code.ScalarOf() == Union:
		id := b.GetString()
		n := b.GetSize()
		if !b.Good() {
			return
		}
		self := &(*nodes)[selfIndex]
		self.ID = id
		self.Hash ^= fnv64a(id)
		self.Mlookup = make(map[string]int)
		for i := uint64(0); i < n; i++ {
			name := b.GetString()
			if !b.Good() {
				return
			}
			childIndex := len(*nodes)
			decodeTypeNode(b, nodes, cache, depth+1, selfIndex)
			if !b.Good() {
				return
			}
			self = &(*nodes)[selfIndex] // slice may have been reallocated
			child := &(*nodes)[childIndex]
			rel := childIndex - selfIndex
			self.Hash ^= fnv64a(name) ^ child.Hash
			self.Miter = append(self.Miter, MiterEntry{Name: name, Rel: rel})
			self.Mlookup[name] = rel
			if child.Code == code && child.Mlookup != nil {
				for subName, subRel := range child.Mlookup {
					self.Mlookup[name+"."+subName] = rel + subRel
				}
			}
		}

	default:
		// Scalars, Any, and scalar arrays: no further payload.
	}

	self := &(*nodes)[selfIndex]
	self.NumIndex = len(*nodes) - selfIndex
}

// spliceCachedSubtree appends a copy of a cached subtree onto nodes,
// re-parenting the subtree's root to parent and shifting every
// internal Parent reference (which is only ever a relative offset
// within the cached slice, since the slice was copied out of another
// tree with different absolute indices) to the new absolute position.
func spliceCachedSubtree(nodes *[]FieldDesc, cached []FieldDesc, parent int) {
	base := len(*nodes)
	for _, n := range cached {
		cp := n
		cp.Index = base + (n.Index - cached[0].Index)
		if n.Parent < cached[0].Index {
			cp.Parent = parent
		} else {
			cp.Parent = base + (n.Parent - cached[0].Index)
		}
		*nodes = append(*nodes, cp)
	}
}
