// Copyright 2026 The PVA Server Authors
// SPDX-License-Identifier: Apache-2.0

package pvdata

import "errors"

// Sentinel fault reasons set on a Buffer by decode-side primitives.
// Wrap these with fmt.Errorf("%w: detail") when more context helps
// debugging; callers that only need to classify the failure can still
// errors.Is against the sentinel.
var (
	// ErrShortBuffer is set when a read runs past the end of the
	// decode source.
	ErrShortBuffer = errors.New("pvdata: short buffer")

	// ErrDeprecatedFixedLength is set when a type byte carries the
	// 0x10 bit outside the three type-stream tag values — the
	// deprecated fixed-length array encoding.
	ErrDeprecatedFixedLength = errors.New("pvdata: deprecated fixed-length array encoding")

	// ErrCacheMiss is set when a Cache-Ref tag names an unknown or
	// empty cache slot.
	ErrCacheMiss = errors.New("pvdata: type cache miss")

	// ErrEmptyCacheDefine is set when a Cache-Define tag's payload
	// decodes to an empty subtree.
	ErrEmptyCacheDefine = errors.New("pvdata: empty cache-define payload")

	// ErrDepthExceeded is set when type decode recursion exceeds the
	// bounded depth (20).
	ErrDepthExceeded = errors.New("pvdata: type recursion depth exceeded")

	// ErrInvalidPresenceByte is set when a StructA/UnionA/AnyA element
	// presence byte is neither 0 nor 1.
	ErrInvalidPresenceByte = errors.New("pvdata: invalid array element presence byte")

	// ErrArrayElementCode is set when a StructA/UnionA element's
	// decoded FieldDesc code does not match the array's declared
	// element code.
	ErrArrayElementCode = errors.New("pvdata: array element type mismatch")

	// ErrInvalidSelector is set when a Union selector read from the
	// wire names no declared member.
	ErrInvalidSelector = errors.New("pvdata: invalid union selector")
)

// EncodeError reports a logic error on the encode side: an operation
// that the protocol never allows a well-behaved sender to perform, as
// opposed to a Buffer fault (which reports a malformed wire decode).
// The canonical case is encoding a Union whose current sub-Value does
// not appear among the Union's declared members (spec.md §4.3.4): this
// is a programmer error in the caller, not a transport failure.
type EncodeError struct {
	Op     string
	Reason string
}

func (e *EncodeError) Error() string {
	return "pvdata: " + e.Op + ": " + e.Reason
}
