// Copyright 2026 The PVA Server Authors
// SPDX-License-Identifier: Apache-2.0

package pvdata

import "fmt"

// StorageCategory classifies what kind of payload a FieldStorage cell
// holds, independent of the cell's exact TypeCode (spec.md §3.3).
type StorageCategory uint8

const (
	CategoryNull StorageCategory = iota
	CategoryInteger
	CategoryUInteger
	CategoryReal
	CategoryString
	CategoryArray
	CategoryCompound
)

// categoryFor derives a node's storage category from its TypeCode.
// Struct itself (not StructA) stores nothing directly — its value is
// implied by its members — so it gets CategoryNull alongside Union and
// Any's uninitialized-but-absent case is still CategoryCompound since a
// Union/Any cell always holds (possibly nil) a sub-Value pointer.
func categoryFor(code TypeCode) StorageCategory {
	if code.IsArray() {
		return CategoryArray
	}
	if code.IsCompound() {
		switch code.ScalarOf() {
		case Struct:
			return CategoryNull
		case Union, Any:
			return CategoryCompound
		}
	}
	switch code {
	case Bool, UInt8, UInt16, UInt32, UInt64:
		return CategoryUInteger
	case Int8, Int16, Int32, Int64:
		return CategoryInteger
	case Float32, Float64:
		return CategoryReal
	case String:
		return CategoryString
	}
	return CategoryNull
}

// ArrayValue is the type-erased payload of a CategoryArray cell: one of
// the scalar slices or Elements is populated, selected by Code (the
// array's element TypeCode, always a non-array code). Compound arrays
// (StructA/UnionA/AnyA) use Elements; a nil entry is an absent
// (not-present) element for a StructA, where no other nil state
// exists. A UnionA/AnyA element has two distinct nil-adjacent states
// the wire format tells apart — absent (the array presence byte was
// 0) and present-but-null (the byte was 1, but the Union/Any itself
// held a null selector) — both decode to a nil *Value, so Present
// carries the presence byte itself for those two codes; it is left
// nil for StructA and the scalar codes, where Elements[i] == nil (or
// the scalar slice's absence) already says everything there is to say.
type ArrayValue struct {
	Code TypeCode

	Bools   []bool
	Ints    []int64
	UInts   []uint64
	Reals   []float64
	Strings []string

	Elements []*Value
	Present  []bool
}

// Len reports the array's element count regardless of which backing
// slice is populated.
func (a *ArrayValue) Len() int {
	switch {
	case a.Bools != nil:
		return len(a.Bools)
	case a.Ints != nil:
		return len(a.Ints)
	case a.UInts != nil:
		return len(a.UInts)
	case a.Reals != nil:
		return len(a.Reals)
	case a.Strings != nil:
		return len(a.Strings)
	default:
		return len(a.Elements)
	}
}

// FieldStorage is one cell of a Value tree's storage array, holding
// the payload for a single FieldDesc node. Top locates the owning
// tree, letting code that only has a *FieldStorage (e.g. a Bitset
// iteration result) recover the Value it belongs to (spec.md §3.3).
type FieldStorage struct {
	Category StorageCategory

	I   int64   // CategoryInteger
	U   uint64  // CategoryUInteger (also Bool: 0 or 1)
	R   float64 // CategoryReal
	Str string  // CategoryString
	Arr ArrayValue
	Sub *Value // CategoryCompound: the selected Union/Any member, or nil

	Top *valueTree
}

// valueTree is the shared, root-owned backing storage of one Value
// tree: the FieldStorage cell array and its parallel valid bitset,
// indexed by FieldDesc.Offset relative to base. Every Value handle
// over the tree — the root, or a sub-Value reached by navigating to a
// Struct member — points at the same valueTree, per spec.md §3.4 ("the
// FieldStorage array is owned by a single Value tree").
//
// A StructA/UnionA/AnyA array element is its own independent valueTree
// sharing the parent's *Type but rooted at the element FieldDesc, with
// base/rootIndex offsetting into that node's own subtree rather than
// the whole type's node 0: arrays have a variable element count the
// type only describes once, so each element needs its own storage,
// not a slot in the parent's cells.
type valueTree struct {
	typ   *Type
	cells []FieldStorage
	valid Bitset

	base     int // FieldDesc.Offset of this tree's root
	rootIndex int // FieldDesc.Index of this tree's root
}

// Value is the handle applications and the codec operate on: a
// position (desc) within a shared tree (tree).
type Value struct {
	tree *valueTree
	desc *FieldDesc
}

// NewValue allocates a fresh Value tree rooted at typ, with every cell
// defaulted per its node's storage category and no valid bits set.
func NewValue(typ *Type) *Value {
	return newSubtreeValue(typ, typ.Root())
}

// newSubtreeValue allocates a fresh, independent storage tree for the
// subtree rooted at root (which may be the whole type's root, or a
// single array element's declared type).
func newSubtreeValue(typ *Type, root *FieldDesc) *Value {
	tree := &valueTree{
		typ:       typ,
		cells:     make([]FieldStorage, root.NumIndex),
		valid:     NewBitset(root.NumIndex),
		base:      root.Offset,
		rootIndex: root.Index,
	}
	for i := 0; i < root.NumIndex; i++ {
		node := &typ.Nodes[root.Index+i]
		cell := &tree.cells[i]
		cell.Category = categoryFor(node.Code)
		cell.Top = tree
		if cell.Category == CategoryArray {
			cell.Arr.Code = node.Code.ScalarOf()
		}
	}
	return &Value{tree: tree, desc: root}
}

// Desc returns the FieldDesc node this Value handle is positioned at.
func (v *Value) Desc() *FieldDesc { return v.desc }

// Type returns the shared type tree this Value's storage was built
// from.
func (v *Value) Type() *Type { return v.tree.typ }

func (v *Value) cell() *FieldStorage { return &v.tree.cells[v.desc.Offset-v.tree.base] }

// IsValid reports whether this node's valid bit is set.
func (v *Value) IsValid() bool { return v.tree.valid.Get(v.desc.Offset - v.tree.base) }

// MarkValid sets this node's own valid bit. The valid bitset marks
// which leaves carry meaningful data (spec.md §3.3); a Struct parent's
// bit is independent of its members' bits and is never implied by
// them, so setting a member's value does not touch any ancestor.
// Callers that need a Struct's own bit set (e.g. a full decode
// visiting every node) call MarkValid at that node directly.
func (v *Value) MarkValid() {
	v.tree.valid.Set(v.desc.Offset - v.tree.base)
}

// Child navigates to a direct or dotted-path descendant by name,
// returning nil if name does not resolve under this node.
func (v *Value) Child(name string) *Value {
	child := v.tree.typ.ChildByName(v.desc, name)
	if child == nil {
		return nil
	}
	return &Value{tree: v.tree, desc: child}
}

// childAt navigates to a direct Miter member without a name lookup, for
// codec paths that already have the MiterEntry in hand.
func (v *Value) childAt(m MiterEntry) *Value {
	return &Value{tree: v.tree, desc: v.tree.typ.Child(v.desc, m)}
}

// Bool/SetBool, Int64/SetInt64, UInt64/SetUInt64, Float64/SetFloat64,
// and String/SetString give typed access to a leaf cell. Each panics
// if the node's storage category does not match — a mismatch here is
// always a caller bug (wrong field navigated to), never a wire fault.

func (v *Value) Bool() bool {
	c := v.cell()
	v.mustCategory(CategoryUInteger, "Bool")
	return c.U != 0
}

func (v *Value) SetBool(b bool) {
	v.mustCategory(CategoryUInteger, "SetBool")
	c := v.cell()
	if b {
		c.U = 1
	} else {
		c.U = 0
	}
	v.MarkValid()
}

func (v *Value) Int64() int64 {
	v.mustCategory(CategoryInteger, "Int64")
	return v.cell().I
}

func (v *Value) SetInt64(n int64) {
	v.mustCategory(CategoryInteger, "SetInt64")
	v.cell().I = n
	v.MarkValid()
}

func (v *Value) UInt64() uint64 {
	v.mustCategory(CategoryUInteger, "UInt64")
	return v.cell().U
}

func (v *Value) SetUInt64(n uint64) {
	v.mustCategory(CategoryUInteger, "SetUInt64")
	v.cell().U = n
	v.MarkValid()
}

func (v *Value) Float64() float64 {
	v.mustCategory(CategoryReal, "Float64")
	return v.cell().R
}

func (v *Value) SetFloat64(f float64) {
	v.mustCategory(CategoryReal, "SetFloat64")
	v.cell().R = f
	v.MarkValid()
}

// Str and SetStr are named to avoid accidentally satisfying
// fmt.Stringer: a Value is not always a string cell, and String()
// panicking under fmt's %v formatting would be a surprising trap.

func (v *Value) Str() string {
	v.mustCategory(CategoryString, "Str")
	return v.cell().Str
}

func (v *Value) SetStr(s string) {
	v.mustCategory(CategoryString, "SetStr")
	v.cell().Str = s
	v.MarkValid()
}

// Array returns the cell's ArrayValue payload.
func (v *Value) Array() *ArrayValue {
	v.mustCategory(CategoryArray, "Array")
	return &v.cell().Arr
}

// Union returns the cell's currently selected sub-Value, or nil if the
// Union/Any is null.
func (v *Value) Union() *Value {
	v.mustCategory(CategoryCompound, "Union")
	return v.cell().Sub
}

// SetUnion selects sub as this Union/Any's current member. sub must
// have been obtained from one of this node's declared members (for a
// Union) or may be any Value (for Any); the codec's selector lookup
// (spec.md §4.3.4) enforces the Union membership constraint at encode
// time.
func (v *Value) SetUnion(sub *Value) {
	v.mustCategory(CategoryCompound, "SetUnion")
	v.cell().Sub = sub
	v.MarkValid()
}

func (v *Value) mustCategory(want StorageCategory, op string) {
	if v.cell().Category != want {
		panic(fmt.Sprintf("pvdata: %s: node %q has storage category %d, not %d", op, v.desc.ID, v.cell().Category, want))
	}
}
