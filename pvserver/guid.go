// Copyright 2026 The PVA Server Authors
// SPDX-License-Identifier: Apache-2.0

package pvserver

import (
	"encoding/binary"
	"net"
	"os"
	"time"
	"unsafe"
)

// GUID is the server's 12-byte globally-unique identifier, announced
// in every search reply and beacon.
type GUID [12]byte

// newGUID derives a GUID following spec.md §4.4.5: three 32-bit words,
// each XOR-folding a different entropy source, matching the original
// server's "pun" union of epics time, local/broadcast addresses, and
// process identity.
func newGUID(tcpPort uint16) GUID {
	var g GUID

	now := time.Now()
	binary.BigEndian.PutUint32(g[0:4], uint32(now.Unix())^uint32(now.Nanosecond()))

	host := localIPv4Word() ^ broadcastIPv4Fold()
	binary.BigEndian.PutUint32(g[4:8], host)

	proc := uint32(os.Getpid())
	proc ^= uint32(tcpPort) << 16
	// A fresh allocation's address stands in for the original
	// implementation's `size_t(this)` — process-local entropy distinct
	// across multiple in-process Server instances, without exposing an
	// unsafe.Pointer in the public API.
	proc ^= uint32(uintptr(unsafe.Pointer(entropyAddr())))
	binary.BigEndian.PutUint32(g[8:12], proc)

	return g
}

// entropyAddr returns the address of a fresh heap allocation, used
// only as a source of process-local bits (ASLR) for GUID derivation.
func entropyAddr() *byte {
	b := new(byte)
	return b
}

// localIPv4Word returns the first non-loopback IPv4 address found on
// the host, as a big-endian uint32, or 0 if none is found.
func localIPv4Word() uint32 {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return 0
	}
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		ip4 := ipNet.IP.To4()
		if ip4 == nil || ip4.IsLoopback() {
			continue
		}
		return binary.BigEndian.Uint32(ip4)
	}
	return 0
}

// broadcastIPv4Fold XORs together the broadcast address of every bound
// IPv4 interface, mirroring osiSockDiscoverBroadcastAddresses's
// contribution to the original GUID.
func broadcastIPv4Fold() uint32 {
	ifaces, err := net.Interfaces()
	if err != nil {
		return 0
	}
	var fold uint32
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ipNet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			ip4 := ipNet.IP.To4()
			if ip4 == nil {
				continue
			}
			mask := ipNet.Mask
			if len(mask) != 4 {
				continue
			}
			bcast := make(net.IP, 4)
			for i := range bcast {
				bcast[i] = ip4[i] | ^mask[i]
			}
			fold ^= binary.BigEndian.Uint32(bcast)
		}
	}
	return fold
}
