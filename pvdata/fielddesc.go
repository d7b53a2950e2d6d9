// Copyright 2026 The PVA Server Authors
// SPDX-License-Identifier: Apache-2.0

package pvdata

// MiterEntry is one ordered (name, child) pair of a Struct or Union
// node. Rel is the relative index from the owning node's position in
// the flat Type.nodes slice to the child's position; it is always
// positive and strictly less than the owning node's NumIndex (spec.md
// §3.2's invariant).
type MiterEntry struct {
	Name string
	Rel  int
}

// FieldDesc is one node of a flattened, depth-first type tree. The
// whole tree — root and every descendant — lives in a single Type's
// Nodes slice; FieldDesc itself holds only relative structure so that
// appending new nodes during incremental decode never invalidates
// indices computed so far (spec.md §9).
type FieldDesc struct {
	Code TypeCode

	// ID is the type identifier string. Non-empty only for Struct and
	// Union nodes.
	ID string

	// Miter lists this node's direct members in protocol order. Only
	// populated for Struct and Union.
	Miter []MiterEntry

	// Mlookup maps every reachable dotted-path descendant name (for
	// Struct and Union nodes) to a relative index from this node, flattened
	// across nested Structs of identical Code per spec.md §3.2.
	Mlookup map[string]int

	// Hash is a 64-bit structural fingerprint combining Code, ID, and
	// each (child name, child.Hash) via XOR (spec.md §3.2).
	Hash uint64

	// Index is this node's own position within its Type's Nodes slice.
	Index int

	// Parent is the Index of the enclosing Struct/Union/Any/StructA/
	// UnionA/AnyA node, or -1 for the root. Set by the type decoder
	// (or a Builder) as each child is appended.
	Parent int

	// NumIndex is the total node count of the subtree rooted here,
	// self-inclusive: descendants occupy
	// Nodes[Index+1 : Index+NumIndex].
	NumIndex int

	// Offset and NextOffset index into a Value's FieldStorage array:
	// Offset identifies this node's own storage cell, NextOffset is
	// the exclusive end of its subtree's cells. Populated by
	// CalculateOffsets, not by the type codec itself.
	Offset     int
	NextOffset int
}

// Type is an immutable, shared, depth-first flattened FieldDesc tree.
// Once built (by the type codec or a Builder), a *Type is read-only and
// may be freely shared by every Value constructed from it — sharing is
// a cheap copy of the pointer, not of the underlying slice.
type Type struct {
	Nodes []FieldDesc
}

// Root returns the tree's root node.
func (t *Type) Root() *FieldDesc { return &t.Nodes[0] }

// At returns the node at the given absolute index.
func (t *Type) At(index int) *FieldDesc { return &t.Nodes[index] }

// Child resolves a MiterEntry relative to its owning node's index.
func (t *Type) Child(owner *FieldDesc, entry MiterEntry) *FieldDesc {
	return &t.Nodes[owner.Index+entry.Rel]
}

// ChildByName resolves a direct or dotted-path descendant of node by
// name via its Mlookup, returning nil if no such path exists.
func (t *Type) ChildByName(node *FieldDesc, name string) *FieldDesc {
	rel, ok := node.Mlookup[name]
	if !ok {
		return nil
	}
	return &t.Nodes[node.Index+rel]
}

// CalculateOffsets assigns sequential FieldStorage cell offsets to
// every node in depth-first order, starting from the root. This is a
// separate pass from type decode per spec.md §4.2.2's closing
// paragraph: type decode only establishes structure (Miter, Mlookup,
// Hash, NumIndex); offsets are computed once the full tree is known.
func (t *Type) CalculateOffsets() {
	next := 0
	for i := range t.Nodes {
		node := &t.Nodes[i]
		node.Offset = next
		next++
	}
	// NextOffset for a node at flat index i is the storage-cell offset
	// one past the last descendant's offset, i.e. the offset of the
	// node at flat index i+NumIndex (or root.NumIndex if i+NumIndex
	// reaches the end of the tree).
	for i := range t.Nodes {
		node := &t.Nodes[i]
		end := i + node.NumIndex
		if end >= len(t.Nodes) {
			node.NextOffset = len(t.Nodes)
		} else {
			node.NextOffset = t.Nodes[end].Offset
		}
	}
}

// combineHash XORs a child's contribution into a parent's running
// structural hash. Plain XOR, matching the source protocol (spec.md
// §9 notes this is adequate for fingerprinting, not adversarial
// inputs).
func combineHash(h uint64, name string, childHash uint64) uint64 {
	return h ^ fnv64a(name) ^ childHash
}

// fnv64a is the 64-bit FNV-1a hash, used as the string-to-uint64
// primitive feeding the XOR combinator above. FNV-1a rather than a
// trivial byte-sum keeps distinct short names (e.g. "a" vs "b") from
// colliding in the low bits of the combined hash.
func fnv64a(s string) uint64 {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)
	h := uint64(offset64)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime64
	}
	return h
}
