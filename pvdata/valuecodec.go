// Copyright 2026 The PVA Server Authors
// SPDX-License-Identifier: Apache-2.0

package pvdata

import "math"

// EncodeFull writes every storage cell in v's subtree, depth-first
// (spec.md §4.3.1).
func EncodeFull(b *Buffer, v *Value) {
	encodeFullNode(b, v)
}

// DecodeFull reads every storage cell in v's subtree, depth-first, in
// the same order EncodeFull wrote them.
func DecodeFull(b *Buffer, v *Value) {
	decodeFullNode(b, v)
}

func encodeFullNode(b *Buffer, v *Value) {
	if !b.Good() {
		return
	}
	cell := v.cell()
	switch cell.Category {
	case CategoryNull:
		for _, m := range v.desc.Miter {
			encodeFullNode(b, v.childAt(m))
		}
	case CategoryUInteger:
		encodeUInteger(b, v.desc.Code, cell.U)
	case CategoryInteger:
		encodeInteger(b, v.desc.Code, cell.I)
	case CategoryReal:
		encodeReal(b, v.desc.Code, cell.R)
	case CategoryString:
		b.PutString(cell.Str)
	case CategoryArray:
		encodeFullArray(b, v, &cell.Arr)
	case CategoryCompound:
		encodeFullCompound(b, v, cell)
	}
}

func decodeFullNode(b *Buffer, v *Value) {
	if !b.Good() {
		return
	}
	cell := v.cell()
	switch cell.Category {
	case CategoryNull:
		for _, m := range v.desc.Miter {
			decodeFullNode(b, v.childAt(m))
		}
		v.MarkValid()
	case CategoryUInteger:
		cell.U = decodeUInteger(b, v.desc.Code)
		v.MarkValid()
	case CategoryInteger:
		cell.I = decodeInteger(b, v.desc.Code)
		v.MarkValid()
	case CategoryReal:
		cell.R = decodeReal(b, v.desc.Code)
		v.MarkValid()
	case CategoryString:
		cell.Str = b.GetString()
		v.MarkValid()
	case CategoryArray:
		decodeFullArray(b, v, &cell.Arr)
		v.MarkValid()
	case CategoryCompound:
		decodeFullCompound(b, v, cell)
		v.MarkValid()
	}
}

func encodeUInteger(b *Buffer, code TypeCode, u uint64) {
	switch code {
	case Bool:
		if u != 0 {
			b.PutUint8(1)
		} else {
			b.PutUint8(0)
		}
	case UInt8:
		b.PutUint8(uint8(u))
	case UInt16:
		b.PutUint16(uint16(u))
	case UInt32:
		b.PutUint32(uint32(u))
	case UInt64:
		b.PutUint64(u)
	}
}

func decodeUInteger(b *Buffer, code TypeCode) uint64 {
	switch code {
	case Bool:
		v := b.GetUint8()
		if v != 0 && v != 1 {
			b.Fault("DecodeFull", ErrInvalidPresenceByte)
			return 0
		}
		return uint64(v)
	case UInt8:
		return uint64(b.GetUint8())
	case UInt16:
		return uint64(b.GetUint16())
	case UInt32:
		return uint64(b.GetUint32())
	case UInt64:
		return b.GetUint64()
	}
	return 0
}

func encodeInteger(b *Buffer, code TypeCode, n int64) {
	switch code {
	case Int8:
		b.PutUint8(uint8(n))
	case Int16:
		b.PutUint16(uint16(n))
	case Int32:
		b.PutUint32(uint32(n))
	case Int64:
		b.PutUint64(uint64(n))
	}
}

func decodeInteger(b *Buffer, code TypeCode) int64 {
	switch code {
	case Int8:
		return int64(int8(b.GetUint8()))
	case Int16:
		return int64(int16(b.GetUint16()))
	case Int32:
		return int64(int32(b.GetUint32()))
	case Int64:
		return int64(b.GetUint64())
	}
	return 0
}

func encodeReal(b *Buffer, code TypeCode, f float64) {
	switch code {
	case Float32:
		b.PutUint32(math.Float32bits(float32(f)))
	case Float64:
		b.PutUint64(math.Float64bits(f))
	}
}

func decodeReal(b *Buffer, code TypeCode) float64 {
	switch code {
	case Float32:
		return float64(math.Float32frombits(b.GetUint32()))
	case Float64:
		return math.Float64frombits(b.GetUint64())
	}
	return 0
}

// encodeScalarArray writes a Size count followed by each raw element.
// Bool arrays are packed one byte per element, same as a scalar Bool,
// not bit-packed like a Bitset.
func encodeScalarArray(b *Buffer, a *ArrayValue) {
	switch a.Code {
	case Bool:
		b.PutSize(uint64(len(a.Bools)))
		for _, x := range a.Bools {
			if x {
				b.PutUint8(1)
			} else {
				b.PutUint8(0)
			}
		}
	case Int8:
		b.PutSize(uint64(len(a.Ints)))
		for _, x := range a.Ints {
			b.PutUint8(uint8(x))
		}
	case Int16:
		b.PutSize(uint64(len(a.Ints)))
		for _, x := range a.Ints {
			b.PutUint16(uint16(x))
		}
	case Int32:
		b.PutSize(uint64(len(a.Ints)))
		for _, x := range a.Ints {
			b.PutUint32(uint32(x))
		}
	case Int64:
		b.PutSize(uint64(len(a.Ints)))
		for _, x := range a.Ints {
			b.PutUint64(uint64(x))
		}
	case UInt8:
		b.PutSize(uint64(len(a.UInts)))
		for _, x := range a.UInts {
			b.PutUint8(uint8(x))
		}
	case UInt16:
		b.PutSize(uint64(len(a.UInts)))
		for _, x := range a.UInts {
			b.PutUint16(uint16(x))
		}
	case UInt32:
		b.PutSize(uint64(len(a.UInts)))
		for _, x := range a.UInts {
			b.PutUint32(uint32(x))
		}
	case UInt64:
		b.PutSize(uint64(len(a.UInts)))
		for _, x := range a.UInts {
			b.PutUint64(x)
		}
	case Float32:
		b.PutSize(uint64(len(a.Reals)))
		for _, x := range a.Reals {
			b.PutUint32(math.Float32bits(float32(x)))
		}
	case Float64:
		b.PutSize(uint64(len(a.Reals)))
		for _, x := range a.Reals {
			b.PutUint64(math.Float64bits(x))
		}
	case String:
		b.PutSize(uint64(len(a.Strings)))
		for _, s := range a.Strings {
			b.PutString(s)
		}
	}
}

func decodeScalarArray(b *Buffer, a *ArrayValue) {
	n := b.GetSize()
	if !b.Good() || n == sizeNull {
		b.Fault("DecodeFull", ErrShortBuffer)
		return
	}
	switch a.Code {
	case Bool:
		a.Bools = make([]bool, n)
		for i := range a.Bools {
			v := b.GetUint8()
			if v != 0 && v != 1 {
				b.Fault("DecodeFull", ErrInvalidPresenceByte)
				return
			}
			a.Bools[i] = v != 0
		}
	case Int8:
		a.Ints = make([]int64, n)
		for i := range a.Ints {
			a.Ints[i] = int64(int8(b.GetUint8()))
		}
	case Int16:
		a.Ints = make([]int64, n)
		for i := range a.Ints {
			a.Ints[i] = int64(int16(b.GetUint16()))
		}
	case Int32:
		a.Ints = make([]int64, n)
		for i := range a.Ints {
			a.Ints[i] = int64(int32(b.GetUint32()))
		}
	case Int64:
		a.Ints = make([]int64, n)
		for i := range a.Ints {
			a.Ints[i] = int64(b.GetUint64())
		}
	case UInt8:
		a.UInts = make([]uint64, n)
		for i := range a.UInts {
			a.UInts[i] = uint64(b.GetUint8())
		}
	case UInt16:
		a.UInts = make([]uint64, n)
		for i := range a.UInts {
			a.UInts[i] = uint64(b.GetUint16())
		}
	case UInt32:
		a.UInts = make([]uint64, n)
		for i := range a.UInts {
			a.UInts[i] = uint64(b.GetUint32())
		}
	case UInt64:
		a.UInts = make([]uint64, n)
		for i := range a.UInts {
			a.UInts[i] = b.GetUint64()
		}
	case Float32:
		a.Reals = make([]float64, n)
		for i := range a.Reals {
			a.Reals[i] = float64(math.Float32frombits(b.GetUint32()))
		}
	case Float64:
		a.Reals = make([]float64, n)
		for i := range a.Reals {
			a.Reals[i] = math.Float64frombits(b.GetUint64())
		}
	case String:
		a.Strings = make([]string, n)
		for i := range a.Strings {
			a.Strings[i] = b.GetString()
		}
	}
}

// elementDesc returns the declared element type of a StructA/UnionA/
// AnyA node: its sole Miter entry's target.
func elementDesc(v *Value) *FieldDesc {
	return v.tree.typ.Child(v.desc, v.desc.Miter[0])
}

func encodeFullArray(b *Buffer, v *Value, a *ArrayValue) {
	if !a.Code.IsCompound() {
		encodeScalarArray(b, a)
		return
	}
	elem := elementDesc(v)
	n := a.Len()
	b.PutSize(uint64(n))
	// Union/Any track presence independently of Elements[i] == nil, so
	// a present-but-null member survives a decode/re-encode round trip
	// instead of collapsing into an absent element (spec.md §8.1).
	tracksPresence := a.Code == Union || a.Code == Any
	for i := 0; i < n; i++ {
		sub := a.Elements[i]
		present := sub != nil
		if tracksPresence && i < len(a.Present) {
			present = a.Present[i]
		}
		if !present {
			b.PutUint8(0)
			continue
		}
		b.PutUint8(1)
		switch a.Code {
		case Struct:
			encodeFullNode(b, sub)
		case Union:
			encodeUnionValue(b, elem, v.tree.typ, sub)
		case Any:
			encodeAnyValue(b, sub)
		}
	}
}

func decodeFullArray(b *Buffer, v *Value, a *ArrayValue) {
	if !a.Code.IsCompound() {
		decodeScalarArray(b, a)
		return
	}
	elem := elementDesc(v)
	n := b.GetSize()
	if !b.Good() || n == sizeNull {
		b.Fault("DecodeFull", ErrShortBuffer)
		return
	}
	a.Elements = make([]*Value, n)
	tracksPresence := a.Code == Union || a.Code == Any
	if tracksPresence {
		a.Present = make([]bool, n)
	}
	for i := range a.Elements {
		presenceByte := b.GetUint8()
		if !b.Good() {
			return
		}
		if presenceByte != 0 && presenceByte != 1 {
			b.Fault("DecodeFull", ErrInvalidPresenceByte)
			return
		}
		if presenceByte == 0 {
			continue
		}
		if tracksPresence {
			a.Present[i] = true
		}
		switch a.Code {
		case Struct:
			sub := newSubtreeValue(v.tree.typ, elem)
			decodeFullNode(b, sub)
			a.Elements[i] = sub
		case Union:
			// decodeUnionValue may itself return nil (a present
			// element whose Union/Any held a null selector); that is
			// distinct from this element being absent, which already
			// short-circuited above via presenceByte == 0.
			a.Elements[i] = decodeUnionValue(b, elem, v.tree.typ)
		case Any:
			a.Elements[i] = decodeAnyValue(b)
		}
		if !b.Good() {
			return
		}
	}
}

func encodeFullCompound(b *Buffer, v *Value, cell *FieldStorage) {
	switch v.desc.Code {
	case Union:
		encodeUnionValue(b, v.desc, v.tree.typ, cell.Sub)
	case Any:
		encodeAnyValue(b, cell.Sub)
	}
}

func decodeFullCompound(b *Buffer, v *Value, cell *FieldStorage) {
	switch v.desc.Code {
	case Union:
		cell.Sub = decodeUnionValue(b, v.desc, v.tree.typ)
	case Any:
		cell.Sub = decodeAnyValue(b)
	}
}

// encodeUnionValue writes a Union's selector followed by the selected
// member's full value, or the null selector if sub is nil. sub must be
// a Value navigated from unionDesc's own Miter (e.g. via Value.Child);
// membership is checked by FieldDesc identity per spec.md §4.3.4.
func encodeUnionValue(b *Buffer, unionDesc *FieldDesc, typ *Type, sub *Value) {
	if !b.Good() {
		return
	}
	if sub == nil {
		b.PutSizeNull()
		return
	}
	for i, m := range unionDesc.Miter {
		if typ.Child(unionDesc, m) == sub.desc {
			b.PutSize(uint64(i))
			encodeFullNode(b, sub)
			return
		}
	}
	panic(&EncodeError{Op: "EncodeUnion", Reason: "sub-value is not a declared member of " + unionDesc.ID})
}

func decodeUnionValue(b *Buffer, unionDesc *FieldDesc, typ *Type) *Value {
	selector := b.GetSize()
	if !b.Good() {
		return nil
	}
	if selector == sizeNull {
		return nil
	}
	if selector >= uint64(len(unionDesc.Miter)) {
		b.Fault("DecodeFull", ErrInvalidSelector)
		return nil
	}
	member := typ.Child(unionDesc, unionDesc.Miter[selector])
	sub := newSubtreeValue(typ, member)
	decodeFullNode(b, sub)
	return sub
}

// encodeAnyValue writes a null tag, or the sub-Value's own FieldDesc
// (its type may be anything, unrelated to the enclosing tree) followed
// by its full value.
func encodeAnyValue(b *Buffer, sub *Value) {
	if !b.Good() {
		return
	}
	if sub == nil {
		b.PutUint8(uint8(TypeNull))
		return
	}
	EncodeType(b, sub.desc, sub.tree.typ)
	encodeFullNode(b, sub)
}

func decodeAnyValue(b *Buffer) *Value {
	cache := NewCache()
	return decodeAnyValueCached(b, cache)
}

func decodeAnyValueCached(b *Buffer, cache *Cache) *Value {
	typ := DecodeType(b, cache)
	if !b.Good() {
		return nil
	}
	if typ == nil {
		return nil
	}
	v := NewValue(typ)
	decodeFullNode(b, v)
	return v
}

// DecodeTypeValue implements from_wire_type_value (spec.md §4.3.3): an
// Any's on-the-wire form is (FieldDesc-via-type-codec, full value),
// using the connection's introspection cache for Cache-Define/Cache-Ref.
func DecodeTypeValue(b *Buffer, cache *Cache) *Value {
	return decodeAnyValueCached(b, cache)
}

// --- valid (delta) encoding ---

// EncodeValid writes root's valid bitset, then every set leaf cell in
// [root.Desc().Offset, root.Desc().NextOffset) as a standalone field —
// not recursively, since a Struct parent's own bit carries no bytes
// (spec.md §4.3.2).
func EncodeValid(b *Buffer, root *Value) {
	if !b.Good() {
		return
	}
	desc := root.desc
	width := desc.NumIndex
	b.PutBitset(root.tree.valid[:((width+7)/8)])
	for i := root.tree.valid.NextSet(0, width); i >= 0; i = root.tree.valid.NextSet(i+1, width) {
		leaf := &Value{tree: root.tree, desc: &root.tree.typ.Nodes[desc.Index+i]}
		encodeValidLeaf(b, leaf)
	}
}

// DecodeValid reads a valid bitset, replacing root's tree's current
// bitset outright, and decodes each bit it marks set as a standalone
// field. Cells whose bit is unset keep whatever value they held before
// this call (spec.md §8.1 invariant 3).
func DecodeValid(b *Buffer, root *Value) {
	if !b.Good() {
		return
	}
	desc := root.desc
	width := desc.NumIndex
	bits := b.GetBitset(width)
	if !b.Good() {
		return
	}
	root.tree.valid = bits
	for i := bits.NextSet(0, width); i >= 0; i = bits.NextSet(i+1, width) {
		leaf := &Value{tree: root.tree, desc: &root.tree.typ.Nodes[desc.Index+i]}
		decodeValidLeaf(b, leaf)
	}
}

// encodeValidLeaf/decodeValidLeaf encode one cell as a standalone
// field: unlike EncodeFull's depth-first recursion, a Struct's own
// valid bit carries no payload (its members' bits already did), and
// Array/Compound cells use their ordinary full encoding since they
// have no finer-grained validity of their own.
func encodeValidLeaf(b *Buffer, v *Value) {
	cell := v.cell()
	switch cell.Category {
	case CategoryNull:
		// Struct parent: its bit is set but carries no bytes.
	case CategoryUInteger:
		encodeUInteger(b, v.desc.Code, cell.U)
	case CategoryInteger:
		encodeInteger(b, v.desc.Code, cell.I)
	case CategoryReal:
		encodeReal(b, v.desc.Code, cell.R)
	case CategoryString:
		b.PutString(cell.Str)
	case CategoryArray:
		encodeFullArray(b, v, &cell.Arr)
	case CategoryCompound:
		encodeFullCompound(b, v, cell)
	}
}

func decodeValidLeaf(b *Buffer, v *Value) {
	cell := v.cell()
	switch cell.Category {
	case CategoryNull:
	case CategoryUInteger:
		cell.U = decodeUInteger(b, v.desc.Code)
	case CategoryInteger:
		cell.I = decodeInteger(b, v.desc.Code)
	case CategoryReal:
		cell.R = decodeReal(b, v.desc.Code)
	case CategoryString:
		cell.Str = b.GetString()
	case CategoryArray:
		decodeFullArray(b, v, &cell.Arr)
	case CategoryCompound:
		decodeFullCompound(b, v, cell)
	}
}
