// Copyright 2026 The PVA Server Authors
// SPDX-License-Identifier: Apache-2.0

package pvserver

import (
	"encoding/binary"
	"net"

	"github.com/pvaccess-go/pvaserver/pvdata"
)

// SearchName is one (channel id, channel name) pair from an incoming
// Search message.
type SearchName struct {
	ID   uint32
	Name string
}

// SearchOp is passed to every registered Source's OnSearch. A Source
// claims the names it serves by calling Claim with the name's index
// (as given by Names()).
type SearchOp struct {
	names  []SearchName
	claims []bool
}

// Names returns every requested (id, name) pair, including those an
// earlier Source in registry order has already claimed.
func (op *SearchOp) Names() []SearchName {
	return op.names
}

// Claim marks index (into Names()) as served by the calling Source.
// Claiming an already-claimed or out-of-range index is a no-op.
func (op *SearchOp) Claim(index int) {
	if index < 0 || index >= len(op.claims) {
		return
	}
	op.claims[index] = true
}

// searchMessage is the decoded form of an incoming Search datagram.
type searchMessage struct {
	searchID  uint32
	mustReply bool
	names     []SearchName
}

// decodeSearchMessage reads a Search message body (the bytes following
// the 8-byte header) using order, the byte order the header's endian
// flag named.
func decodeSearchMessage(body []byte, order binary.ByteOrder) (*searchMessage, error) {
	b := pvdata.NewDecoder(body, order, nil)
	searchID := b.GetUint32()
	flags := b.GetUint8()
	_ = b.GetBytes(3) // reserved
	_ = b.GetBytes(16) // sender-supplied response address, unused: we reply via the UDP socket's own source tracking
	_ = b.GetUint16()  // sender-supplied response port, likewise unused
	protoCount := b.GetUint8()
	for i := uint8(0); i < protoCount; i++ {
		_ = b.GetString()
	}
	n := b.GetUint16()
	names := make([]SearchName, 0, n)
	for i := uint16(0); i < n; i++ {
		id := b.GetUint32()
		name := b.GetString()
		if !b.Good() {
			break
		}
		names = append(names, SearchName{ID: id, Name: name})
	}
	if !b.Good() {
		return nil, b.Err()
	}
	return &searchMessage{
		searchID:  searchID,
		mustReply: flags&0x01 != 0,
		names:     names,
	}, nil
}

// buildSearchReply assembles a Search response datagram (spec.md
// §4.4.3 step 4) for the given claim results, or nil if no reply
// should be sent.
func buildSearchReply(guid GUID, tcpPort uint16, order binary.ByteOrder, msg *searchMessage, claims []bool) []byte {
	nreply := 0
	for _, c := range claims {
		if c {
			nreply++
		}
	}
	if nreply == 0 && !msg.mustReply {
		return nil
	}

	b := newEncoder(order)
	b.PutBytes(make([]byte, headerSize)) // placeholder, patched below
	b.PutBytes(guid[:])
	b.PutUint32(msg.searchID)
	b.PutBytes(net.IPv4zero.To16())
	b.PutUint16(tcpPort)
	b.PutString("tcp")
	if nreply != 0 {
		b.PutUint8(1)
	} else {
		b.PutUint8(0)
	}
	b.PutUint16(uint16(nreply))
	for i, c := range claims {
		if c {
			b.PutUint32(msg.names[i].ID)
		}
	}

	out := b.Bytes()
	encodeHeader(out, header{
		command:    cmdSearchResponse,
		flags:      flagServer | byteOrderFlag(order),
		bodyLength: uint32(len(out) - headerSize),
	}, order)
	return out
}
