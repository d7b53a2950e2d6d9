// Copyright 2026 The PVA Server Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pvaccess-go/pvaserver/lib/version"
	"github.com/pvaccess-go/pvaserver/pvserver"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		tcpPort       uint
		broadcastPort uint
		autoBeacon    bool
		adminSocket   string
		dumpConfig    bool
		showVersion   bool
	)

	flag.UintVar(&tcpPort, "tcp-port", 0, "TCP channel port (0 picks an ephemeral port)")
	flag.UintVar(&broadcastPort, "broadcast-port", 5076, "UDP search/beacon port")
	flag.BoolVar(&autoBeacon, "auto-beacon", true, "derive beacon destinations from bound interfaces' broadcast addresses")
	flag.StringVar(&adminSocket, "admin-socket", "/run/pva-server/admin.sock", "path for the operator admin control socket")
	flag.BoolVar(&dumpConfig, "dump-config", false, "print the effective configuration as YAML and exit")
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("pva-server %s\n", version.Info())
		return nil
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := pvserver.FromEnv(logger)
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "tcp-port":
			cfg.TCPPort = uint16(tcpPort)
		case "broadcast-port":
			cfg.BroadcastPort = uint16(broadcastPort)
		case "auto-beacon":
			cfg.AutoBeacon = autoBeacon
		}
	})

	if dumpConfig {
		yamlText, err := cfg.DumpYAML()
		if err != nil {
			return fmt.Errorf("rendering config: %w", err)
		}
		fmt.Print(yamlText)
		return nil
	}

	server, err := pvserver.New(cfg)
	if err != nil {
		return fmt.Errorf("constructing server: %w", err)
	}

	counter := pvserver.NewCounterSource()
	if err := server.AddSource(0, "counter", counter); err != nil {
		return fmt.Errorf("registering demonstration source: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	admin := pvserver.NewAdminServer(adminSocket, logger)
	pvserver.RegisterServerActions(admin, server)
	adminDone := make(chan error, 1)
	go func() { adminDone <- admin.Serve(ctx) }()

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	logger.Info("pva-server running",
		"version", version.Short(),
		"tcp_port", cfg.TCPPort,
		"broadcast_port", cfg.BroadcastPort,
		"admin_socket", adminSocket,
	)

	<-ctx.Done()
	logger.Info("shutting down")
	server.Stop()

	if err := <-adminDone; err != nil {
		logger.Error("admin socket error", "error", err)
	}

	return nil
}
