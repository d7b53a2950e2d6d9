// Copyright 2026 The PVA Server Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for pva-server packages.
//
// [SocketDir] creates a temporary directory in /tmp suitable for Unix
// domain sockets (the admin control socket). This exists because Unix
// domain sockets have a 108-byte path limit (sun_path in sockaddr_un),
// and t.TempDir() can exceed it on some systems. The directory is
// automatically removed when the test completes.
//
// [RequireReceive], [RequireSend], and [RequireClosed] encapsulate the
// timeout safety valve pattern (select with time.After fallback) so
// that individual tests do not need direct time.After calls. No test
// in this module calls them yet; the few tests that need a real
// wall-clock timeout (in lib/clock and the admin socket tests) use the
// time package directly.
//
// [UniqueID] generates monotonically increasing identifiers for test
// disambiguation. Use it instead of time.Now() when tests need unique
// search IDs or name IDs distinguishable across table-driven cases.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no pva-server-internal dependencies.
package testutil
