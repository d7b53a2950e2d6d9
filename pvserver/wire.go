// Copyright 2026 The PVA Server Authors
// SPDX-License-Identifier: Apache-2.0

package pvserver

import (
	"encoding/binary"

	"github.com/pvaccess-go/pvaserver/pvdata"
)

// headerMagic is the fixed first byte of every message header.
const headerMagic = 0xCA

// headerSize is the fixed 8-byte header length: magic, version, flags,
// command, 4-byte body length.
const headerSize = 8

// protocolVersion is the single version this server speaks.
const protocolVersion = 2

// Message flag bits (spec.md §6.1).
const (
	flagServer    = 0x40 // message originates from a server
	flagBigEndian = 0x80 // body is encoded big-endian
)

// Command bytes used by the server spine. The full PVA command space
// (channel create/destroy, get/put/monitor, introspection) belongs to
// the TCP channel layer, which is out of scope here (spec.md §2
// Non-goals); only discovery-facing commands are defined.
const (
	cmdSearchResponse = 0x04
	cmdBeacon         = 0x00
)

// header is the 8-byte message header preceding every UDP datagram
// this server sends.
type header struct {
	command    uint8
	flags      uint8
	bodyLength uint32
}

// encodeHeader writes h directly into buf[0:8] using order, the
// connection/datagram's negotiated body byte order. This server only
// ever originates messages, so flags always carries flagServer.
func encodeHeader(buf []byte, h header, order binary.ByteOrder) {
	buf[0] = headerMagic
	buf[1] = protocolVersion
	buf[2] = h.flags
	buf[3] = h.command
	order.PutUint32(buf[4:8], h.bodyLength)
}

// byteOrderFlag returns the flags bit encoding order, so a sender can
// round-trip whichever endianness the connection negotiated.
func byteOrderFlag(order binary.ByteOrder) uint8 {
	if order == binary.BigEndian {
		return flagBigEndian
	}
	return 0
}

// newEncoder returns a pvdata.Buffer-equivalent encoder for one
// datagram body, sharing the Buffer primitives the type/value codec
// already uses (Size, String, Bitset encodings are identical between
// the two layers).
func newEncoder(order binary.ByteOrder) *pvdata.Buffer {
	return pvdata.NewEncoder(order, nil)
}
