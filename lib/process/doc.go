// Copyright 2026 The PVA Server Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers for pva-server
// binaries. It centralizes the one legitimate raw I/O pattern that
// exists before or after the structured logger: reporting a fatal
// error to stderr and exiting when the logger may not yet be wired up.
package process
