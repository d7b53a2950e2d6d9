// Copyright 2026 The PVA Server Authors
// SPDX-License-Identifier: Apache-2.0

package pvdata

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
)

// sizeNull is the Size encoding of the "null" sentinel (size_t(-1) in
// the original protocol), used by a null Union selector.
const sizeNull = math.MaxUint64

// Buffer is a bidirectional byte cursor over one protocol message. A
// Buffer is either a decoder (backed by a fixed byte slice) or an
// encoder (backed by a growable buffer) — never both. Calling an
// encode method on a decode Buffer panics (it has no output buffer);
// calling a decode method on an encode Buffer finds no input bytes and
// sets the fault flag with ErrShortBuffer.
//
// Every primitive checks Good() first and is a no-op if the fault flag
// is already set, so a decode call chain can run to completion and
// check the final Buffer state once instead of after every field.
type Buffer struct {
	order binary.ByteOrder

	// src/off hold decode-mode state. src is never mutated.
	src []byte
	off int

	// dst holds encode-mode state.
	dst *bytes.Buffer

	faulted    bool
	err        error
	faultLogOp string // the operation that first set the fault, logged once
	logger     *slog.Logger
}

// NewDecoder returns a Buffer that decodes data in the given byte
// order. The returned Buffer does not retain data past the lifetime of
// the calling decode — callers must not mutate data while decoding is
// in progress.
func NewDecoder(data []byte, order binary.ByteOrder, logger *slog.Logger) *Buffer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Buffer{order: order, src: data, logger: logger}
}

// NewEncoder returns a Buffer that encodes into a growable internal
// buffer using the given byte order.
func NewEncoder(order binary.ByteOrder, logger *slog.Logger) *Buffer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Buffer{order: order, dst: new(bytes.Buffer), logger: logger}
}

// Bytes returns the encoded bytes accumulated so far. Valid only on an
// encode Buffer.
func (b *Buffer) Bytes() []byte {
	if b.dst == nil {
		panic("pvdata: Bytes called on a decode Buffer")
	}
	return b.dst.Bytes()
}

// Remaining returns the count of unread bytes. Valid only on a decode
// Buffer.
func (b *Buffer) Remaining() int {
	if b.dst != nil {
		panic("pvdata: Remaining called on an encode Buffer")
	}
	return len(b.src) - b.off
}

// Good reports whether no fault has occurred yet.
func (b *Buffer) Good() bool { return !b.faulted }

// Err returns the reason the Buffer faulted, or nil if it has not.
func (b *Buffer) Err() error { return b.err }

// Fault sets the sticky fault flag with the given reason. Subsequent
// primitive calls become no-ops. Only the first Fault call is
// recorded and logged; later calls (including ones from no-op
// primitives that call Fault defensively) are themselves no-ops.
func (b *Buffer) Fault(op string, reason error) {
	if b.faulted {
		return
	}
	b.faulted = true
	b.err = reason
	b.faultLogOp = op
	b.logger.Debug("pvdata: buffer fault", "op", op, "reason", reason)
}

// --- fixed-width integers ---

func (b *Buffer) PutUint8(v uint8) {
	if !b.Good() {
		return
	}
	b.dst.WriteByte(v)
}

func (b *Buffer) GetUint8() uint8 {
	if !b.Good() {
		return 0
	}
	if b.off+1 > len(b.src) {
		b.Fault("GetUint8", ErrShortBuffer)
		return 0
	}
	v := b.src[b.off]
	b.off++
	return v
}

func (b *Buffer) PutUint16(v uint16) {
	if !b.Good() {
		return
	}
	var tmp [2]byte
	b.order.PutUint16(tmp[:], v)
	b.dst.Write(tmp[:])
}

func (b *Buffer) GetUint16() uint16 {
	if !b.Good() {
		return 0
	}
	if b.off+2 > len(b.src) {
		b.Fault("GetUint16", ErrShortBuffer)
		return 0
	}
	v := b.order.Uint16(b.src[b.off:])
	b.off += 2
	return v
}

func (b *Buffer) PutUint32(v uint32) {
	if !b.Good() {
		return
	}
	var tmp [4]byte
	b.order.PutUint32(tmp[:], v)
	b.dst.Write(tmp[:])
}

func (b *Buffer) GetUint32() uint32 {
	if !b.Good() {
		return 0
	}
	if b.off+4 > len(b.src) {
		b.Fault("GetUint32", ErrShortBuffer)
		return 0
	}
	v := b.order.Uint32(b.src[b.off:])
	b.off += 4
	return v
}

func (b *Buffer) PutUint64(v uint64) {
	if !b.Good() {
		return
	}
	var tmp [8]byte
	b.order.PutUint64(tmp[:], v)
	b.dst.Write(tmp[:])
}

func (b *Buffer) GetUint64() uint64 {
	if !b.Good() {
		return 0
	}
	if b.off+8 > len(b.src) {
		b.Fault("GetUint64", ErrShortBuffer)
		return 0
	}
	v := b.order.Uint64(b.src[b.off:])
	b.off += 8
	return v
}

// PutBytes writes raw bytes with no length prefix.
func (b *Buffer) PutBytes(p []byte) {
	if !b.Good() {
		return
	}
	b.dst.Write(p)
}

// GetBytes reads n raw bytes with no length prefix.
func (b *Buffer) GetBytes(n int) []byte {
	if !b.Good() {
		return nil
	}
	if n < 0 || b.off+n > len(b.src) {
		b.Fault("GetBytes", ErrShortBuffer)
		return nil
	}
	out := make([]byte, n)
	copy(out, b.src[b.off:b.off+n])
	b.off += n
	return out
}

// --- Size: variable-length counts ---
//
// n < 254            -> one byte n
// n == sizeNull       -> one byte 0xFF (the Union-null sentinel)
// otherwise           -> 0xFE, then a 32-bit count, or if that count
//                         would itself be 0xFFFFFFFF or larger, 0xFE
//                         0xFFFFFFFF followed by a 64-bit count.

const (
	sizeSmallMax    = 253
	sizeEscape32    = 0xFE
	sizeEscapeNull  = 0xFF
	sizeEscape64Tag = 0xFFFFFFFF
)

// PutSize writes n using the Size encoding. Pass sizeNull (or call
// PutSizeNull) to write the null sentinel used by a null Union
// selector.
func (b *Buffer) PutSize(n uint64) {
	if !b.Good() {
		return
	}
	switch {
	case n == sizeNull:
		b.PutUint8(sizeEscapeNull)
	case n <= sizeSmallMax:
		b.PutUint8(uint8(n))
	case n < sizeEscape64Tag:
		b.PutUint8(sizeEscape32)
		b.PutUint32(uint32(n))
	default:
		b.PutUint8(sizeEscape32)
		b.PutUint32(sizeEscape64Tag)
		b.PutUint64(n)
	}
}

// PutSizeNull writes the Size null sentinel (size_t(-1)).
func (b *Buffer) PutSizeNull() { b.PutSize(sizeNull) }

// GetSize reads a Size value. The returned value is sizeNull if the
// wire held the null sentinel; callers that only expect non-null
// counts should treat a returned sizeNull as a fault condition of
// their own.
func (b *Buffer) GetSize() uint64 {
	if !b.Good() {
		return 0
	}
	first := b.GetUint8()
	if !b.Good() {
		return 0
	}
	switch first {
	case sizeEscapeNull:
		return sizeNull
	case sizeEscape32:
		count := b.GetUint32()
		if !b.Good() {
			return 0
		}
		if count == sizeEscape64Tag {
			return b.GetUint64()
		}
		return uint64(count)
	default:
		return uint64(first)
	}
}

// --- strings ---

func (b *Buffer) PutString(s string) {
	if !b.Good() {
		return
	}
	b.PutSize(uint64(len(s)))
	b.dst.WriteString(s)
}

func (b *Buffer) GetString() string {
	if !b.Good() {
		return ""
	}
	n := b.GetSize()
	if !b.Good() || n == sizeNull {
		b.Fault("GetString", fmt.Errorf("%w: null string length", ErrShortBuffer))
		return ""
	}
	raw := b.GetBytes(int(n))
	if !b.Good() {
		return ""
	}
	return string(raw)
}

// --- bitsets ---
//
// Size{byteLen}, followed by byteLen little-endian bytes of bits. Bit
// i is (byte[i/8] >> (i%8)) & 1.

// PutBitset writes bits (see Bitset) using its backing byte length.
func (b *Buffer) PutBitset(bits Bitset) {
	if !b.Good() {
		return
	}
	b.PutSize(uint64(len(bits)))
	b.dst.Write(bits)
}

// GetBitset reads a bitset and truncates (or zero-extends) it to hold
// exactly nbits bits, per spec.md §4.1's "client MAY truncate to a
// known member count".
func (b *Buffer) GetBitset(nbits int) Bitset {
	if !b.Good() {
		return nil
	}
	n := b.GetSize()
	if !b.Good() || n == sizeNull {
		b.Fault("GetBitset", fmt.Errorf("%w: null bitset length", ErrShortBuffer))
		return nil
	}
	raw := b.GetBytes(int(n))
	if !b.Good() {
		return nil
	}
	want := (nbits + 7) / 8
	out := make(Bitset, want)
	copy(out, raw)
	return out
}
