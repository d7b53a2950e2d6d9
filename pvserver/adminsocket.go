// Copyright 2026 The PVA Server Authors
// SPDX-License-Identifier: Apache-2.0

package pvserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/pvaccess-go/pvaserver/lib/codec"
)

// sealedConfigRequest is the "dump-config-sealed" action's request body:
// the operator's own age public key, so the response is only readable
// by whoever holds the matching private key.
type sealedConfigRequest struct {
	Action       string `cbor:"action"`
	RecipientKey string `cbor:"recipient_key"`
}

// AdminActionFunc processes one admin socket request. The raw
// parameter is the full CBOR request (including the "action" field);
// handlers decode action-specific fields from it themselves.
type AdminActionFunc func(ctx context.Context, raw []byte) (any, error)

// AdminResponse is the wire-format envelope for every admin socket
// response.
type AdminResponse struct {
	OK    bool             `cbor:"ok"`
	Error string           `cbor:"error,omitempty"`
	Data  codec.RawMessage `cbor:"data,omitempty"`
}

// AdminServer serves a CBOR request-response protocol on a Unix
// socket, giving operators a way to inspect and nudge a running Server
// without going through the PVA wire protocol itself (spec.md §4.4.9).
// Each connection handles exactly one request-response cycle.
//
// This is new ambient tooling, not part of the original protocol: the
// PVA wire protocol has no operator channel of its own, and an admin
// surface is the kind of thing any long-running server needs.
type AdminServer struct {
	socketPath string
	handlers   map[string]AdminActionFunc
	logger     *slog.Logger

	activeConnections sync.WaitGroup
}

// NewAdminServer creates an admin server that will listen on
// socketPath. Call Handle to register actions, then Serve.
func NewAdminServer(socketPath string, logger *slog.Logger) *AdminServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminServer{
		socketPath: socketPath,
		handlers:   make(map[string]AdminActionFunc),
		logger:     logger,
	}
}

// Handle registers handler for action. Panics on a duplicate
// registration, a programmer error caught at startup.
func (a *AdminServer) Handle(action string, handler AdminActionFunc) {
	if _, exists := a.handlers[action]; exists {
		panic(fmt.Sprintf("pvserver: duplicate admin action handler for %q", action))
	}
	a.handlers[action] = handler
}

const (
	adminReadTimeout    = 30 * time.Second
	adminWriteTimeout   = 10 * time.Second
	adminMaxRequestSize = 64 * 1024
)

// Serve accepts connections until ctx is cancelled, then stops
// accepting new ones and waits for in-flight requests to finish. Any
// stale socket file at socketPath is removed first; the file is
// removed again on return.
func (a *AdminServer) Serve(ctx context.Context) error {
	if err := os.Remove(a.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale admin socket %s: %w", a.socketPath, err)
	}

	listener, err := net.Listen("unix", a.socketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", a.socketPath, err)
	}
	defer func() {
		listener.Close()
		os.Remove(a.socketPath)
	}()

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	a.logger.Info("admin socket listening", "path", a.socketPath)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			a.logger.Error("admin socket accept failed", "error", err)
			continue
		}
		a.activeConnections.Add(1)
		go func() {
			defer a.activeConnections.Done()
			a.handleConnection(ctx, conn)
		}()
	}

	a.activeConnections.Wait()
	return nil
}

func (a *AdminServer) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(adminReadTimeout))

	var raw codec.RawMessage
	if err := codec.NewDecoder(io.LimitReader(conn, adminMaxRequestSize)).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return
		}
		a.writeError(conn, fmt.Sprintf("invalid request: %v", err))
		return
	}

	var header struct {
		Action string `cbor:"action"`
	}
	if err := codec.Unmarshal(raw, &header); err != nil {
		a.writeError(conn, fmt.Sprintf("invalid request: %v", err))
		return
	}
	if header.Action == "" {
		a.writeError(conn, "missing required field: action")
		return
	}

	handler, exists := a.handlers[header.Action]
	if !exists {
		a.writeError(conn, fmt.Sprintf("unknown action %q", header.Action))
		return
	}

	result, err := handler(ctx, []byte(raw))
	if err != nil {
		a.logger.Debug("admin action failed", "action", header.Action, "error", err)
		a.writeError(conn, err.Error())
		return
	}
	a.writeSuccess(conn, result)
}

func (a *AdminServer) writeError(conn net.Conn, message string) {
	conn.SetWriteDeadline(time.Now().Add(adminWriteTimeout))
	if err := codec.NewEncoder(conn).Encode(AdminResponse{OK: false, Error: message}); err != nil {
		a.logger.Debug("failed to write admin error response", "error", err)
	}
}

func (a *AdminServer) writeSuccess(conn net.Conn, result any) {
	conn.SetWriteDeadline(time.Now().Add(adminWriteTimeout))
	response := AdminResponse{OK: true}
	if result != nil {
		data, err := codec.Marshal(result)
		if err != nil {
			a.writeError(conn, fmt.Sprintf("internal: marshaling response: %v", err))
			return
		}
		response.Data = data
	}
	if err := codec.NewEncoder(conn).Encode(response); err != nil {
		a.logger.Debug("failed to write admin success response", "error", err)
	}
}

// RegisterServerActions wires the standard operator actions (spec.md
// §4.4.9) against s: "list-sources", "guid", "state", "beacon-now"
// and "dump-config-sealed".
func RegisterServerActions(a *AdminServer, s *Server) {
	a.Handle("list-sources", func(ctx context.Context, raw []byte) (any, error) {
		return s.ListSource(), nil
	})
	a.Handle("guid", func(ctx context.Context, raw []byte) (any, error) {
		return fmt.Sprintf("%x", s.GUID()), nil
	})
	a.Handle("state", func(ctx context.Context, raw []byte) (any, error) {
		return s.State(), nil
	})
	a.Handle("beacon-now", func(ctx context.Context, raw []byte) (any, error) {
		var triggered bool
		dests := []string{}
		s.onLoop(func() {
			if s.state == stateRunning {
				if s.beaconTimer != nil {
					s.beaconTimer.Stop()
				}
				s.transmitBeacon()
				triggered = true
				for _, d := range s.beaconDest {
					dests = append(dests, d.String())
				}
			}
		})
		if !triggered {
			return nil, errors.New("server is not running")
		}
		return dests, nil
	})
	a.Handle("dump-config-sealed", func(ctx context.Context, raw []byte) (any, error) {
		var req sealedConfigRequest
		if err := codec.Unmarshal(raw, &req); err != nil {
			return nil, fmt.Errorf("decoding request: %w", err)
		}
		if req.RecipientKey == "" {
			return nil, errors.New("missing required field: recipient_key")
		}
		return s.config.SealedDumpYAML([]string{req.RecipientKey})
	})
}
