// Copyright 2026 The PVA Server Authors
// SPDX-License-Identifier: Apache-2.0

package pvserver

import (
	"context"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// udpListenConfig returns a net.ListenConfig whose Control callback sets
// SO_REUSEADDR and SO_BROADCAST on the search socket before bind. PVA
// servers on the same host all listen on the well-known broadcast port
// (spec.md §4.4.5); without SO_REUSEADDR the second server on a host
// fails to bind, and without SO_BROADCAST a bind to a specific interface
// address cannot send broadcast beacons on some platforms.
func udpListenConfig() net.ListenConfig {
	return net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				if setErr := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); setErr != nil {
					sockErr = setErr
					return
				}
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1)
			})
			if err != nil {
				return err
			}
			return sockErr
		},
	}
}

// listenUDPWithOptions binds a UDP socket at address with SO_REUSEADDR
// and SO_BROADCAST set. If either option cannot be set, the bind fails
// and that error is returned.
func listenUDPWithOptions(ctx context.Context, address string) (*net.UDPConn, error) {
	lc := udpListenConfig()
	conn, err := lc.ListenPacket(ctx, "udp4", address)
	if err != nil {
		return nil, err
	}
	return conn.(*net.UDPConn), nil
}
