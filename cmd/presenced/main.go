// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Presenced accepts rich-presence IPC connections from local
// applications, keeps the latest activity each one reports, and
// publishes the collected snapshot on a fixed interval: POSTed to a
// presence-http sink in push mode, or served directly in display
// mode.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os/signal"
	"sync"
	"syscall"

	"github.com/bureau-foundation/presenced/activity"
	"github.com/bureau-foundation/presenced/control"
	"github.com/bureau-foundation/presenced/ipc"
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
		configPath     string
		logLevel       string
		mode           string
		upstream       string
		encoding       string
		metricsAddress string
		showVersion    bool
	)

	flag.StringVar(&configPath, "config", "", "path to YAML config (default $PRESENCED_CONFIG)")
	flag.StringVar(&logLevel, "log-level", "", "override log_level (debug, info, warn, error)")
	flag.StringVar(&mode, "mode", "", "override publish.mode (push or display)")
	flag.StringVar(&upstream, "upstream", "", "override publish.upstream")
	flag.StringVar(&encoding, "encoding", "", "override publish.encoding (identity, gzip, zstd, lz4)")
	flag.StringVar(&metricsAddress, "metrics-address", "", "serve Prometheus metrics on this TCP address")
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("presenced %s\n", version.Info())
		return nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if mode != "" {
		cfg.Publish.Mode = config.PublishMode(mode)
	}
	if upstream != "" {
		cfg.Publish.Upstream = upstream
	}
	if encoding != "" {
		cfg.Publish.Encoding = encoding
	}
	if metricsAddress != "" {
		cfg.Daemon.MetricsAddress = metricsAddress
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := service.NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var overrides map[string]string
	if cfg.Publish.NamesFile != "" {
		overrides, err = config.LoadNames(cfg.Publish.NamesFile)
		if err != nil {
			return err
		}
	}
	names := publish.NewNames(overrides)

	clk := clock.Real()
	startedAt := clk.Now()
	store := activity.NewStore()
	registry := metrics.New()

	paths := cfg.Daemon.SocketPaths
	if len(paths) == 0 {
		paths = ipc.DefaultSocketPaths(cfg.Daemon.RuntimeDir)
	}
	supervisor := ipc.NewSupervisor(ipc.SupervisorConfig{
		Paths:    paths,
		Store:    store,
		Logger:   logger,
		Observer: registry,
	})
	if err := supervisor.Listen(); err != nil {
		return err
	}

	var (
		workers sync.WaitGroup
		servers []func(context.Context) error
	)
	runWorker := func(name string, serve func(context.Context) error) {
		workers.Add(1)
		go func() {
			defer workers.Done()
			if err := serve(ctx); err != nil {
				logger.Error("worker failed", "worker", name, "error", err)
				stop()
			}
		}()
	}

	var (
		snapshotSink publish.Sink
		sinkLabel    string
	)
	switch cfg.Publish.Mode {
	case config.ModePush:
		httpSink, err := publish.NewHTTPSink(publish.HTTPSinkConfig{
			Upstream: cfg.Publish.Upstream,
			Token:    cfg.Publish.Token,
			Timeout:  cfg.Publish.Timeout.Std(),
			Encoding: cfg.Publish.Encoding,
		})
		if err != nil {
			return err
		}
		snapshotSink, sinkLabel = httpSink, httpSink.Endpoint()
	case config.ModeDisplay:
		memory := publish.NewMemorySink(clk)
		view, err := sink.New(sink.Config{
			State:    memory,
			ReadOnly: true,
			Metrics:  registry,
			Logger:   logger,
		})
		if err != nil {
			return err
		}
		display := service.NewHTTPServer(service.HTTPServerConfig{
			Address: cfg.Publish.ListenAddress,
			Handler: view,
			Logger:  logger,
		})
		servers = append(servers, display.Serve)
		snapshotSink, sinkLabel = memory, "http://"+cfg.Publish.ListenAddress
	}

	publisher, err := publish.NewPublisher(publish.PublisherConfig{
		Store:    store,
		Sink:     snapshotSink,
		Names:    names,
		Interval: cfg.Publish.Interval.Std(),
		Clock:    clk,
		Logger:   logger,
		Metrics:  registry,
	})
	if err != nil {
		return err
	}

	if cfg.Daemon.MetricsAddress != "" {
		metricsServer := service.NewHTTPServer(service.HTTPServerConfig{
			Address: cfg.Daemon.MetricsAddress,
			Handler: registry.Handler(),
			Logger:  logger,
		})
		servers = append(servers, metricsServer.Serve)
	}

	if cfg.Daemon.ControlSocket != "" {
		controlServer := service.NewSocketServer(cfg.Daemon.ControlSocket, logger)
		handlers := &control.Handlers{
			Publisher:  publisher,
			Supervisor: supervisor,
			Mode:       string(cfg.Publish.Mode),
			Sink:       sinkLabel,
			Clock:      clk,
			StartedAt:  startedAt,
		}
		handlers.Register(controlServer)
		servers = append(servers, controlServer.Serve)
	}

	runWorker("ipc", supervisor.Serve)
	for index, serve := range servers {
		runWorker(fmt.Sprintf("server-%d", index), serve)
	}
	workers.Add(1)
	go func() {
		defer workers.Done()
		publisher.Run(ctx)
	}()

	logger.Info("presenced running",
		"version", version.Info(),
		"mode", cfg.Publish.Mode,
		"sink", sinkLabel,
		"endpoints", supervisor.Endpoints(),
		"interval", publisher.Interval(),
		"names", names.Len(),
	)
	notifyState(logger, service.NotifyReady)

	<-ctx.Done()
	logger.Info("shutting down")
	notifyState(logger, service.NotifyStopping)
	workers.Wait()
	return nil
}

func notifyState(logger *slog.Logger, state string) {
	if _, err := service.Notify(state); err != nil {
		logger.Warn("service manager notification failed", "state", state, "error", err)
	}
}
