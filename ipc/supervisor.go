// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/bureau-foundation/presenced/activity"
	"github.com/bureau-foundation/presenced/lib/netutil"
)

// BindError reports a socket path that could not be bound. The
// supervisor logs it and continues with the remaining paths.
type BindError struct {
	Path string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("binding %s: %v", e.Path, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// DefaultSocketPaths returns the two paths desktop presence clients
// try: the sandboxed-app location and the plain one, both under
// runtimeDir. An empty runtimeDir means $XDG_RUNTIME_DIR, falling back
// to /tmp.
func DefaultSocketPaths(runtimeDir string) []string {
	if runtimeDir == "" {
		runtimeDir = os.Getenv("XDG_RUNTIME_DIR")
	}
	if runtimeDir == "" {
		runtimeDir = "/tmp"
	}
	return []string{
		filepath.Join(runtimeDir, "app", "com.discordapp.Discord", "discord-ipc-0"),
		filepath.Join(runtimeDir, "discord-ipc-0"),
	}
}

// SupervisorConfig holds the parameters for NewSupervisor.
type SupervisorConfig struct {
	// Paths are the Unix socket paths to bind. Required.
	Paths []string

	// Store is shared by every accepted connection. Required.
	Store *activity.Store

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Observer receives connection events. May be nil.
	Observer Observer
}

// Supervisor owns the listening sockets and every connection accepted
// on them.
type Supervisor struct {
	paths    []string
	store    *activity.Store
	logger   *slog.Logger
	observer Observer

	mu        sync.Mutex
	endpoints []endpoint

	active      atomic.Int64
	connections sync.WaitGroup
}

type endpoint struct {
	path     string
	listener net.Listener
}

// NewSupervisor creates a supervisor. Nothing is bound until Listen.
func NewSupervisor(config SupervisorConfig) *Supervisor {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		paths:    config.Paths,
		store:    config.Store,
		logger:   logger.With("component", "ipc"),
		observer: config.Observer,
	}
}

// Listen binds every configured path. A path that fails is logged as a
// *BindError and skipped. Listen returns an error only when no path
// could be bound; the error joins every BindError.
func (s *Supervisor) Listen() error {
	var failures []error
	var bound []endpoint
	for _, path := range s.paths {
		listener, err := bind(path)
		if err != nil {
			bindErr := &BindError{Path: path, Err: err}
			s.logger.Error("socket bind failed", "path", path, "error", err)
			failures = append(failures, bindErr)
			continue
		}
		s.logger.Info("listening", "path", path)
		bound = append(bound, endpoint{path: path, listener: listener})
	}
	if len(bound) == 0 {
		if len(failures) == 0 {
			return errors.New("no socket paths configured")
		}
		return fmt.Errorf("no socket path could be bound: %w", errors.Join(failures...))
	}

	s.mu.Lock()
	s.endpoints = bound
	s.mu.Unlock()
	return nil
}

// bind replaces any stale socket file at path and listens on it.
func bind(path string) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating parent directory: %w", err)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("removing stale socket: %w", err)
	}
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	return listener, nil
}

// Endpoints returns the paths currently bound.
func (s *Supervisor) Endpoints() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	paths := make([]string, len(s.endpoints))
	for index, endpoint := range s.endpoints {
		paths[index] = endpoint.path
	}
	return paths
}

// ActiveConnections returns the number of connections being served.
func (s *Supervisor) ActiveConnections() int {
	return int(s.active.Load())
}

// Serve accepts on every bound endpoint until ctx is cancelled, then
// closes the listeners (which removes the socket files) and waits for
// every connection goroutine to return. Listen must have succeeded.
//
// An accept error stops that endpoint's loop only; the others keep
// running. Serve returns when every accept loop has stopped and every
// connection has finished.
func (s *Supervisor) Serve(ctx context.Context) error {
	s.mu.Lock()
	endpoints := s.endpoints
	s.mu.Unlock()
	if len(endpoints) == 0 {
		return errors.New("serve called without a bound endpoint")
	}

	var loops sync.WaitGroup
	for _, endpoint := range endpoints {
		loops.Add(1)
		go func() {
			defer loops.Done()
			s.acceptLoop(ctx, endpoint)
		}()
	}

	stop := context.AfterFunc(ctx, func() {
		for _, endpoint := range endpoints {
			endpoint.listener.Close()
		}
	})
	defer stop()

	loops.Wait()
	s.connections.Wait()

	s.mu.Lock()
	s.endpoints = nil
	s.mu.Unlock()
	return nil
}

func (s *Supervisor) acceptLoop(ctx context.Context, endpoint endpoint) {
	defer endpoint.listener.Close()
	for {
		stream, err := endpoint.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.logger.Debug("accept loop stopped", "path", endpoint.path)
				return
			}
			s.logger.Error("accept failed, endpoint stopped", "path", endpoint.path, "error", err)
			return
		}

		s.connections.Add(1)
		s.active.Add(1)
		go func() {
			defer s.connections.Done()
			defer s.active.Add(-1)
			s.serveConn(ctx, endpoint.path, stream)
		}()
	}
}

func (s *Supervisor) serveConn(ctx context.Context, path string, stream net.Conn) {
	logger := s.logger.With("endpoint", path)
	if credentials, ok := peerCredentials(stream); ok {
		logger = logger.With("peer_pid", credentials.PID, "peer_uid", credentials.UID)
	}

	conn := NewConn(stream, ConnConfig{
		Store:    s.store,
		Logger:   logger,
		Observer: s.observer,
	})
	err := conn.Serve(ctx)
	switch {
	case err == nil, ctx.Err() != nil:
		logger.Debug("connection closed")
	case netutil.IsExpectedCloseError(err):
		logger.Debug("connection closed", "error", err)
	default:
		logger.Warn("connection terminated", "error", err)
	}
}
