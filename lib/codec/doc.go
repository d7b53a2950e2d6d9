// Copyright 2026 The PVA Server Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the shared CBOR encoding configuration used by
// pva-server's admin control socket (see pvserver.AdminServer). The PVA
// wire protocol itself (search, beacon, type/value codec) is hand-rolled
// binary framing defined in packages pvdata and pvserver and has
// nothing to do with CBOR; this package exists solely for the
// operator-facing admin protocol, which is not part of the wire
// protocol and carries no interop requirement with other PVA
// implementations.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items. Same
// logical data always produces identical bytes.
//
// For buffer-oriented operations:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented operations (the admin socket):
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
package codec
