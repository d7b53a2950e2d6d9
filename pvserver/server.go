// Copyright 2026 The PVA Server Authors
// SPDX-License-Identifier: Apache-2.0

// Package pvserver implements the discovery/dispatch spine of a PVA
// server: the Source registry, UDP search and beacon handling, and the
// Stopped/Starting/Running/Stopping state machine. The TCP channel
// protocol (create/destroy, get/put/monitor) is out of scope; this
// package accepts TCP connections only far enough to hand them off.
package pvserver

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/pvaccess-go/pvaserver/lib/clock"
)

// Server is one PVA server instance: a Source registry plus the UDP
// search/beacon machinery and TCP acceptors that make those Sources
// discoverable. All mutation of server state happens on a single
// acceptor-loop goroutine; other goroutines submit work via onLoop
// (spec.md §4.4.1, §5).
type Server struct {
	config Config
	logger *slog.Logger
	clock  clock.Clock
	order  binary.ByteOrder

	guid       GUID
	interfaces []string
	beaconDest []*net.UDPAddr

	registry *registry

	loopWork chan func()
	state    runState

	beaconTimer *clock.Timer
	udpConn     *net.UDPConn
	tcpListener net.Listener
	listenerWG  sync.WaitGroup

	doneCh         chan struct{}
	doneOnce       sync.Once
	restoreSignals func()
}

// New constructs a Server from cfg. The Server does not start any
// network activity until Start or Run is called.
func New(cfg Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	beaconDestStrs, autoBeacon := cfg.resolveBeaconDest()
	cfg.BeaconDest = beaconDestStrs
	cfg.AutoBeacon = autoBeacon
	beaconDest := make([]*net.UDPAddr, 0, len(beaconDestStrs))
	for _, addr := range beaconDestStrs {
		udpAddr, err := net.ResolveUDPAddr("udp4", fmt.Sprintf("%s:%d", addr, cfg.BroadcastPort))
		if err != nil {
			logger.Error("unresolvable beacon destination, skipping", "addr", addr, "error", err)
			continue
		}
		beaconDest = append(beaconDest, udpAddr)
	}

	s := &Server{
		config:     cfg,
		logger:     logger,
		clock:      clock.Real(),
		order:      binary.BigEndian,
		interfaces: cfg.effectiveInterfaces(),
		beaconDest: beaconDest,
		registry:   newRegistry(logger),
		loopWork:   make(chan func()),
		doneCh:     make(chan struct{}),
	}
	s.guid = newGUID(cfg.TCPPort)

	if err := s.registry.add(-1, "server", &serverSource{server: s}); err != nil {
		return nil, err
	}

	go s.loopRun()
	return s, nil
}

// WithClock overrides the Server's clock, for deterministic beacon
// cadence tests. Must be called before Start.
func (s *Server) WithClock(c clock.Clock) *Server {
	s.clock = c
	return s
}

func (s *Server) loopRun() {
	for job := range s.loopWork {
		job()
	}
}

// onLoop submits fn to the acceptor loop and blocks until it has run.
// Callers must not call onLoop from within a function already running
// on the loop (it would deadlock waiting on itself); every Server
// method documented as loop-submitted is only ever called from
// external goroutines (the beacon timer, the UDP reader, or direct API
// calls), never from inside another onLoop call.
func (s *Server) onLoop(fn func()) {
	done := make(chan struct{})
	s.loopWork <- func() {
		fn()
		close(done)
	}
	<-done
}

// AddSource registers src under (order, name). Rejects a nil src or a
// duplicate key (spec.md §6.3).
func (s *Server) AddSource(order int, name string, src Source) error {
	return s.registry.add(order, name, src)
}

// RemoveSource deregisters (order, name), reporting whether it existed.
func (s *Server) RemoveSource(order int, name string) bool {
	return s.registry.remove(order, name)
}

// GetSource returns the Source at (order, name), or nil.
func (s *Server) GetSource(order int, name string) Source {
	return s.registry.get(order, name)
}

// ListSource returns every registered (order, name) key, in registry
// order.
func (s *Server) ListSource() []string {
	keys := s.registry.list()
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = fmt.Sprintf("(%d, %s)", k.order, k.name)
	}
	return out
}

// GUID returns the server's identifier.
func (s *Server) GUID() GUID { return s.guid }

// State reports the current lifecycle state.
func (s *Server) State() string {
	var st runState
	s.onLoop(func() { st = s.state })
	return st.String()
}

// Start transitions Stopped -> Starting -> Running: binds listeners,
// arms the beacon timer. A no-op if the server is not Stopped
// (spec.md §4.4.1).
func (s *Server) Start() error {
	var startErr error
	s.onLoop(func() {
		if s.state != stateStopped {
			s.logger.Debug("server start ignored, not stopped", "state", s.state)
			return
		}
		s.state = stateStarting
		if err := s.bindListeners(); err != nil {
			startErr = err
			s.state = stateStopped
			return
		}
		s.armBeacon()
		s.state = stateRunning
		s.logger.Info("server running", "guid", fmt.Sprintf("%x", s.guid), "tcp_port", s.config.TCPPort)
	})
	return startErr
}

// Stop transitions Running -> Stopping -> Stopped: cancels the beacon
// timer, closes listeners. A no-op if the server is not Running.
func (s *Server) Stop() {
	s.onLoop(func() {
		if s.state != stateRunning {
			return
		}
		s.state = stateStopping
		if s.beaconTimer != nil {
			s.beaconTimer.Stop()
			s.beaconTimer = nil
		}
		s.closeListeners()
		s.state = stateStopped
	})
	s.listenerWG.Wait()
}

// Run calls Start, blocks until Interrupt is called (directly, or via
// an installed SIGINT/SIGTERM handler), then calls Stop.
func (s *Server) Run() error {
	if err := s.Start(); err != nil {
		return err
	}
	restore, err := s.installSignalHandlers()
	if err == nil {
		s.restoreSignals = restore
		defer restore()
	}
	<-s.doneCh
	s.Stop()
	return nil
}

// Interrupt signals Run's internal "done" event without installing
// signal handlers. Idempotent.
func (s *Server) Interrupt() {
	s.doneOnce.Do(func() { close(s.doneCh) })
}

// sendDatagram writes a single UDP datagram to dest. Individual send
// failures are the caller's concern to log (spec.md §7: "operational
// error... logged, not fatal").
func (s *Server) sendDatagram(dest *net.UDPAddr, datagram []byte) error {
	if s.udpConn == nil {
		return fmt.Errorf("pvserver: no UDP socket bound")
	}
	n, err := s.udpConn.WriteToUDP(datagram, dest)
	if err != nil {
		return err
	}
	if n != len(datagram) {
		return fmt.Errorf("pvserver: truncated datagram to %s: wrote %d of %d bytes", dest, n, len(datagram))
	}
	return nil
}
