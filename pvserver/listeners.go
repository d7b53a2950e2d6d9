// Copyright 2026 The PVA Server Authors
// SPDX-License-Identifier: Apache-2.0

package pvserver

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"

	"github.com/pvaccess-go/pvaserver/lib/netutil"
)

// bindListeners opens the UDP search socket and the TCP acceptor for
// the server's configured interfaces. Called only from Start, already
// running on the acceptor loop.
func (s *Server) bindListeners() error {
	bindAddr := s.interfaces[0]

	conn, err := listenUDPWithOptions(context.Background(), fmt.Sprintf("%s:%d", bindAddr, s.config.BroadcastPort))
	if err != nil {
		return fmt.Errorf("binding UDP search socket: %w", err)
	}
	s.udpConn = conn
	if s.config.BroadcastPort == 0 {
		s.config.BroadcastPort = uint16(conn.LocalAddr().(*net.UDPAddr).Port)
	}

	tcpAddr := fmt.Sprintf("%s:%d", bindAddr, s.config.TCPPort)
	listener, err := net.Listen("tcp4", tcpAddr)
	if err != nil {
		conn.Close()
		s.udpConn = nil
		return fmt.Errorf("binding TCP acceptor: %w", err)
	}
	s.tcpListener = listener
	if s.config.TCPPort == 0 {
		s.config.TCPPort = uint16(listener.Addr().(*net.TCPAddr).Port)
	}

	s.listenerWG.Add(2)
	go s.runUDPReader()
	go s.runTCPAcceptor()

	return nil
}

// closeListeners tears down the UDP and TCP sockets. Called only from
// Stop, already running on the acceptor loop; runUDPReader and
// runTCPAcceptor observe the resulting error and exit.
func (s *Server) closeListeners() {
	if s.udpConn != nil {
		s.udpConn.Close()
	}
	if s.tcpListener != nil {
		s.tcpListener.Close()
	}
}

// runUDPReader reads Search datagrams until the socket closes.
func (s *Server) runUDPReader() {
	defer s.listenerWG.Done()
	buf := make([]byte, 64*1024)
	for {
		n, src, err := s.udpConn.ReadFromUDP(buf)
		if err != nil {
			if !netutil.IsExpectedCloseError(err) {
				s.logger.Error("UDP search socket read error", "error", err)
			}
			return
		}
		s.handleDatagram(buf[:n], src)
	}
}

// cmdSearchRequest is the client-originated Search command this server
// answers with cmdSearchResponse.
const cmdSearchRequest = 0x03

// handleDatagram decodes one inbound datagram and dispatches it if it
// is a recognized command. Runs on the UDP reader goroutine, not the
// acceptor loop; it reaches server state only through the registry's
// reader lock and onLoop (spec.md §5).
func (s *Server) handleDatagram(data []byte, src *net.UDPAddr) {
	if len(data) < headerSize || data[0] != headerMagic {
		return
	}
	order := orderFromFlags(data[2])
	command := data[3]
	bodyLen := order.Uint32(data[4:8])
	if uint32(len(data)-headerSize) < bodyLen {
		return
	}
	body := data[headerSize : headerSize+int(bodyLen)]

	switch command {
	case cmdSearchRequest:
		s.handleSearch(body, order, src)
	default:
		// Unrecognized commands (including this server's own beacons,
		// which share the broadcast socket on some platforms) are
		// silently ignored.
	}
}

func orderFromFlags(flags byte) binary.ByteOrder {
	if flags&flagBigEndian != 0 {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// handleSearch decodes a Search message, dispatches it to every
// registered Source, and replies to src if warranted (spec.md §4.4.3).
func (s *Server) handleSearch(body []byte, order binary.ByteOrder, src *net.UDPAddr) {
	msg, err := decodeSearchMessage(body, order)
	if err != nil {
		s.logger.Debug("malformed search message", "error", err)
		return
	}

	op := &SearchOp{names: msg.names, claims: make([]bool, len(msg.names))}
	s.registry.dispatchSearch(op)

	reply := buildSearchReply(s.guid, s.config.TCPPort, order, msg, op.claims)
	if reply == nil {
		return
	}
	s.onLoop(func() {
		if s.state != stateRunning {
			return
		}
		if err := s.sendDatagram(src, reply); err != nil {
			s.logger.Warn("search reply send failed", "dest", src, "error", err)
		}
	})
}

// runTCPAcceptor accepts TCP connections and hands each one off. The
// full channel protocol (create/destroy, get/put/monitor) is out of
// scope for this package (spec.md §5); accepted connections are
// logged and closed, giving Sources and callers something concrete to
// observe the acceptor's liveness with.
func (s *Server) runTCPAcceptor() {
	defer s.listenerWG.Done()
	for {
		conn, err := s.tcpListener.Accept()
		if err != nil {
			if netutil.IsExpectedCloseError(err) || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Error("TCP accept error", "error", err)
			return
		}
		s.logger.Debug("TCP connection accepted", "remote", conn.RemoteAddr())
		conn.Close()
	}
}
