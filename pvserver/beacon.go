// Copyright 2026 The PVA Server Authors
// SPDX-License-Identifier: Apache-2.0

package pvserver

import (
	"encoding/binary"
	"net"
	"time"
)

// beaconInterval is the fixed re-arm period (spec.md §4.4.4).
const beaconInterval = 15 * time.Second

// buildBeacon assembles one beacon datagram (spec.md §4.4.4).
func buildBeacon(guid GUID, tcpPort uint16, order binary.ByteOrder) []byte {
	b := newEncoder(order)
	b.PutBytes(make([]byte, headerSize))
	b.PutBytes(guid[:])
	b.PutBytes(make([]byte, 4)) // reserved/ignored
	b.PutBytes(net.IPv4zero.To16())
	b.PutUint16(tcpPort)
	b.PutString("tcp")
	b.PutUint8(0xFF) // null server-status

	out := b.Bytes()
	encodeHeader(out, header{
		command:    cmdBeacon,
		flags:      flagServer | byteOrderFlag(order),
		bodyLength: uint32(len(out) - headerSize),
	}, order)
	return out
}

// armBeacon schedules the next beacon transmission on s's clock, per
// spec.md §4.4.4: the timer is re-armed unconditionally after
// transmission, regardless of per-destination send errors.
func (s *Server) armBeacon() {
	s.beaconTimer = s.clock.AfterFunc(beaconInterval, func() {
		s.onLoop(s.transmitBeacon)
	})
}

func (s *Server) transmitBeacon() {
	if s.state != stateRunning {
		return
	}
	datagram := buildBeacon(s.guid, s.config.TCPPort, s.order)
	for _, dest := range s.beaconDest {
		if err := s.sendDatagram(dest, datagram); err != nil {
			s.logger.Warn("beacon transmit failed", "dest", dest, "error", err)
		}
	}
	s.armBeacon()
}
