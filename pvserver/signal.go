// Copyright 2026 The PVA Server Authors
// SPDX-License-Identifier: Apache-2.0

package pvserver

import (
	"errors"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
)

// errAlreadyOwnsSignals is returned by installSignalHandlers when
// another Server in this process already owns the signal slot.
var errAlreadyOwnsSignals = errors.New("pvserver: another Server already owns SIGINT/SIGTERM in this process")

// signalOwner is a process-global slot naming which *Server currently
// owns the SIGINT/SIGTERM handlers, enforced by compare-and-swap
// (spec.md §4.4.7: "claim is by atomic compare-exchange on a
// process-global slot"). Only one Server per process may call
// installSignalHandlers at a time.
var signalOwner atomic.Pointer[Server]

// installSignalHandlers claims the process-global signal slot for s
// and arranges for SIGINT/SIGTERM to call s.Interrupt. Returns a
// restore function that releases the slot and stops intercepting the
// signals (the closest Go analog to the original's "restore previous
// handler"); restore is idempotent.
//
// Returns an error if another Server already owns the slot.
func (s *Server) installSignalHandlers() (func(), error) {
	if !signalOwner.CompareAndSwap(nil, s) {
		return nil, errAlreadyOwnsSignals
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		select {
		case <-ch:
			s.Interrupt()
		case <-done:
		}
	}()

	var released int32
	restore := func() {
		if !atomic.CompareAndSwapInt32(&released, 0, 1) {
			return
		}
		signal.Stop(ch)
		close(done)
		signalOwner.CompareAndSwap(s, nil)
	}
	return restore, nil
}
