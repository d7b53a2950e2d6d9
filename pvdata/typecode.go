// Copyright 2026 The PVA Server Authors
// SPDX-License-Identifier: Apache-2.0

package pvdata

import "fmt"

// TypeCode is a single byte encoding the kind of a field in the type
// stream. Bit 0x08 marks a variable-length array of the base kind, bit
// 0x10 marks the deprecated fixed-length array variants (spec.md
// §3.1), and bit 0x20 distinguishes a compound (Struct/Union/Any) from
// a scalar.
type TypeCode uint8

const (
	arrayBit    TypeCode = 0x08
	fixedLenBit TypeCode = 0x10
	compoundBit TypeCode = 0x20
)

// Scalar type codes. Each occupies a distinct value with none of the
// array, fixed-length or compound bits set, so that ScalarOf can be
// computed by masking the array bit off.
const (
	Bool    TypeCode = 0x00
	Int8    TypeCode = 0x01
	Int16   TypeCode = 0x02
	Int32   TypeCode = 0x03
	Int64   TypeCode = 0x04
	UInt8   TypeCode = 0x05
	UInt16  TypeCode = 0x06
	UInt32  TypeCode = 0x07
	UInt64  TypeCode = 0x40 // 0x08, 0x10 and 0x20 are the flag bits above.
	Float32 TypeCode = 0x41
	Float64 TypeCode = 0x42
	String  TypeCode = 0x43
)

// Compound type codes and their array variants.
const (
	Struct TypeCode = compoundBit | 0x01
	Union  TypeCode = compoundBit | 0x02
	Any    TypeCode = compoundBit | 0x03

	StructA TypeCode = Struct | arrayBit
	UnionA  TypeCode = Union | arrayBit
	AnyA    TypeCode = Any | arrayBit
)

// Scalar array variants: OR arrayBit onto the scalar code.
const (
	BoolA    TypeCode = Bool | arrayBit
	Int8A    TypeCode = Int8 | arrayBit
	Int16A   TypeCode = Int16 | arrayBit
	Int32A   TypeCode = Int32 | arrayBit
	Int64A   TypeCode = Int64 | arrayBit
	UInt8A   TypeCode = UInt8 | arrayBit
	UInt16A  TypeCode = UInt16 | arrayBit
	UInt32A  TypeCode = UInt32 | arrayBit
	UInt64A  TypeCode = UInt64 | arrayBit
	Float32A TypeCode = Float32 | arrayBit
	Float64A TypeCode = Float64 | arrayBit
	StringA  TypeCode = String | arrayBit
)

// Special tags used only in the type stream, never as a decoded
// FieldDesc's code.
const (
	// TypeNull terminates a type subtree with no node (e.g. a null
	// Any payload's absent type).
	TypeNull TypeCode = 0xFF

	// CacheDefine introduces a (key, subtree) pair: decode the
	// subtree normally, then bind it to key in the connection's
	// introspection cache.
	CacheDefine TypeCode = 0xFD

	// CacheRef splices a previously cached subtree (by key) in place
	// of encoding it again.
	CacheRef TypeCode = 0xFE
)

// IsArray reports whether c is a variable-length array variant
// (scalar or compound). The type-stream tag values are never arrays.
func (c TypeCode) IsArray() bool {
	if c == TypeNull || c == CacheDefine || c == CacheRef {
		return false
	}
	return c&arrayBit != 0
}

// IsCompound reports whether c (with the array bit masked off) names a
// Struct, Union, or Any.
func (c TypeCode) IsCompound() bool {
	return c.ScalarOf()&compoundBit != 0
}

// IsDeprecatedFixedLength reports whether c carries the fixed-length
// bit outside the three type-stream tag values — the deprecated,
// rejected encoding named in spec.md §1 and §3.1.
func (c TypeCode) IsDeprecatedFixedLength() bool {
	if c == TypeNull || c == CacheDefine || c == CacheRef {
		return false
	}
	return c&fixedLenBit != 0
}

// ScalarOf projects any array variant to its element type. It is the
// identity on already-scalar/compound codes.
func (c TypeCode) ScalarOf() TypeCode {
	return c &^ arrayBit
}

func (c TypeCode) String() string {
	switch c {
	case Bool:
		return "bool"
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case UInt8:
		return "uint8"
	case UInt16:
		return "uint16"
	case UInt32:
		return "uint32"
	case UInt64:
		return "uint64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case String:
		return "string"
	case Struct:
		return "struct"
	case Union:
		return "union"
	case Any:
		return "any"
	case TypeNull:
		return "null"
	case CacheDefine:
		return "cache-define"
	case CacheRef:
		return "cache-ref"
	}
	if c.IsArray() {
		return c.ScalarOf().String() + "[]"
	}
	return fmt.Sprintf("TypeCode(0x%02x)", uint8(c))
}
