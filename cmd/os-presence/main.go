// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Os-presence publishes the host's kernel release, distribution,
// desktop, and boot time to presenced as a rich-presence activity. It
// reconnects whenever the daemon goes away.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bureau-foundation/presenced/ipc"
	"github.com/bureau-foundation/presenced/lib/clock"
	"github.com/bureau-foundation/presenced/lib/process"
	"github.com/bureau-foundation/presenced/lib/service"
	"github.com/bureau-foundation/presenced/lib/version"
	"github.com/bureau-foundation/presenced/osinfo"
	"github.com/bureau-foundation/presenced/publish"
)

const reconnectDelay = 10 * time.Second

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		socketPath  string
		clientID    string
		logLevel    string
		showVersion bool
	)

	flag.StringVar(&socketPath, "socket", defaultSocketPath(), "presenced IPC socket")
	flag.StringVar(&clientID, "client-id", publish.OSPresenceClientID, "client identity sent in the handshake")
	flag.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("os-presence %s\n", version.Info())
		return nil
	}

	logger, err := service.NewLogger(logLevel)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	info, err := osinfo.Collector{}.Collect()
	if err != nil {
		return err
	}
	logger.Info("collected host information",
		"kernel", info.Kernel,
		"distro", info.Distro,
		"desktop", info.Desktop,
		"boot_time", info.BootTime,
	)
	if _, err := service.Notify(service.NotifyReady); err != nil {
		logger.Warn("service manager notification failed", "error", err)
	}

	bootTime := info.BootTime.Unix()
	activity := ipc.Activity{
		State:      info.Kernel,
		Details:    info.Details(),
		Timestamps: &ipc.Timestamps{Start: &bootTime},
	}

	clk := clock.Real()
	for {
		if err := publishOnce(ctx, socketPath, clientID, activity, logger); err != nil && ctx.Err() == nil {
			logger.Warn("presence session ended", "socket", socketPath, "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-clk.After(reconnectDelay):
		}
	}
}

// publishOnce holds one session: connect, handshake, set the activity,
// then stay connected until the daemon closes the stream.
func publishOnce(ctx context.Context, socketPath, clientID string, activity ipc.Activity, logger *slog.Logger) error {
	client, err := ipc.Dial(ctx, socketPath)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Handshake(ctx, clientID); err != nil {
		return err
	}
	if err := client.SetActivity(activity); err != nil {
		return err
	}
	logger.Info("activity set", "socket", socketPath)
	return client.Wait(ctx)
}

func defaultSocketPath() string {
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		runtimeDir = "/tmp"
	}
	return filepath.Join(runtimeDir, "discord-ipc-0")
}
