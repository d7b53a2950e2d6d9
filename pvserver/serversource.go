// Copyright 2026 The PVA Server Authors
// SPDX-License-Identifier: Apache-2.0

package pvserver

// serverSource is the distinguished (-1, "server") registry entry
// (spec.md §4.4.2): it claims the single channel name "server", giving
// clients a well-known PV that identifies this server instance.
// Building out that channel's actual Get payload belongs to the TCP
// channel layer, out of scope here; this Source only participates in
// discovery.
type serverSource struct {
	server *Server
}

func (ss *serverSource) OnSearch(op *SearchOp) {
	for i, name := range op.Names() {
		if name.Name == "server" {
			op.Claim(i)
		}
	}
}
