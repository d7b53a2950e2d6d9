// Copyright 2026 The PVA Server Authors
// SPDX-License-Identifier: Apache-2.0

package pvserver

import (
	"encoding/binary"
	"testing"

	"github.com/pvaccess-go/pvaserver/pvdata"
)

// encodeTestSearchBody builds a Search message body matching
// decodeSearchMessage's expected layout, for round-trip testing.
func encodeTestSearchBody(searchID uint32, mustReply bool, names []SearchName) []byte {
	b := pvdata.NewEncoder(binary.BigEndian, nil)
	b.PutUint32(searchID)
	if mustReply {
		b.PutUint8(1)
	} else {
		b.PutUint8(0)
	}
	b.PutBytes(make([]byte, 3))
	b.PutBytes(make([]byte, 16))
	b.PutUint16(0)
	b.PutUint8(1)
	b.PutString("tcp")
	b.PutUint16(uint16(len(names)))
	for _, n := range names {
		b.PutUint32(n.ID)
		b.PutString(n.Name)
	}
	return b.Bytes()
}

func TestDecodeSearchMessageRoundTrip(t *testing.T) {
	names := []SearchName{{ID: 1, Name: "pv1"}, {ID: 2, Name: "pv2"}}
	body := encodeTestSearchBody(42, true, names)

	msg, err := decodeSearchMessage(body, binary.BigEndian)
	if err != nil {
		t.Fatalf("decodeSearchMessage: %v", err)
	}
	if msg.searchID != 42 {
		t.Errorf("searchID = %d, want 42", msg.searchID)
	}
	if !msg.mustReply {
		t.Error("expected mustReply true")
	}
	if len(msg.names) != 2 || msg.names[0].Name != "pv1" || msg.names[1].Name != "pv2" {
		t.Errorf("names = %+v", msg.names)
	}
}

func TestBuildSearchReplyOmittedWhenNoClaimsAndNoMustReply(t *testing.T) {
	msg := &searchMessage{searchID: 1, mustReply: false, names: []SearchName{{ID: 1, Name: "missing"}}}
	reply := buildSearchReply(GUID{}, 5075, binary.BigEndian, msg, []bool{false})
	if reply != nil {
		t.Error("expected nil reply when nothing was claimed and mustReply is false")
	}
}

func TestBuildSearchReplySentWhenMustReplyEvenWithoutClaims(t *testing.T) {
	msg := &searchMessage{searchID: 1, mustReply: true, names: []SearchName{{ID: 1, Name: "missing"}}}
	reply := buildSearchReply(GUID{}, 5075, binary.BigEndian, msg, []bool{false})
	if reply == nil {
		t.Fatal("expected a reply when mustReply is set, even with zero claims")
	}
	if reply[0] != headerMagic {
		t.Errorf("reply header magic = %x, want %x", reply[0], headerMagic)
	}
	if reply[3] != cmdSearchResponse {
		t.Errorf("reply command = %x, want %x", reply[3], cmdSearchResponse)
	}
}

func TestBuildSearchReplyIncludesClaimedIDs(t *testing.T) {
	msg := &searchMessage{searchID: 7, mustReply: false, names: []SearchName{
		{ID: 100, Name: "a"}, {ID: 200, Name: "b"},
	}}
	reply := buildSearchReply(GUID{1, 2, 3}, 5075, binary.BigEndian, msg, []bool{true, false})
	if reply == nil {
		t.Fatal("expected a reply since one name was claimed")
	}

	bodyLen := binary.BigEndian.Uint32(reply[4:8])
	body := reply[headerSize : headerSize+int(bodyLen)]
	dec := pvdata.NewDecoder(body, binary.BigEndian, nil)
	var guid GUID
	copy(guid[:], dec.GetBytes(12))
	if dec.GetUint32() != 7 {
		t.Error("expected echoed search ID 7")
	}
	dec.GetBytes(16) // address
	dec.GetUint16()  // port
	dec.GetString()  // "tcp"
	found := dec.GetUint8()
	if found != 1 {
		t.Errorf("found flag = %d, want 1", found)
	}
	count := dec.GetUint16()
	if count != 1 {
		t.Fatalf("claimed count = %d, want 1", count)
	}
	if dec.GetUint32() != 100 {
		t.Error("expected claimed ID 100 in reply")
	}
}
