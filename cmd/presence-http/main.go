// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Presence-http receives presence snapshots from presenced and serves
// them as an HTML page and as JSON.
package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/bureau-foundation/presenced/lib/clock"
	"github.com/bureau-foundation/presenced/lib/config"
	"github.com/bureau-foundation/presenced/lib/metrics"
	"github.com/bureau-foundation/presenced/lib/process"
	"github.com/bureau-foundation/presenced/lib/service"
	"github.com/bureau-foundation/presenced/lib/version"
	"github.com/bureau-foundation/presenced/publish"
	"github.com/bureau-foundation/presenced/sink"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		configPath  string
		listen      string
		logLevel    string
		showVersion bool
	)

	flag.StringVar(&configPath, "config", "", "path to YAML config (default $PRESENCED_CONFIG)")
	flag.StringVar(&listen, "listen", "", "override sink.listen_address")
	flag.StringVar(&logLevel, "log-level", "", "override log_level (debug, info, warn, error)")
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("presence-http %s\n", version.Info())
		return nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.Sink.ListenAddress = listen
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := cfg.ValidateSink(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := service.NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handler, err := sink.New(sink.Config{
		State:             publish.NewMemorySink(clock.Real()),
		Token:             cfg.Sink.Token,
		ConstantTimeToken: cfg.Sink.ConstantTimeToken,
		Metrics:           metrics.New(),
		Logger:            logger,
	})
	if err != nil {
		return err
	}

	server := service.NewHTTPServer(service.HTTPServerConfig{
		Address: cfg.Sink.ListenAddress,
		Handler: handler,
		Logger:  logger,
	})
	go func() {
		select {
		case <-server.Ready():
			logger.Info("presence-http running", "version", version.Info(), "address", server.Addr().String())
			if _, err := service.Notify(service.NotifyReady); err != nil {
				logger.Warn("service manager notification failed", "error", err)
			}
		case <-ctx.Done():
		}
	}()
	return server.Serve(ctx)
}
