// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/presenced/lib/codec"
	"github.com/bureau-foundation/presenced/lib/testutil"
)

const testTimeout = 5 * time.Second

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// startSocketServer registers handlers, serves, and waits for the
// socket to accept. The server is stopped at cleanup.
func startSocketServer(t *testing.T, handlers map[string]ActionFunc) (string, context.CancelFunc, <-chan error) {
	t.Helper()
	socketPath := filepath.Join(testutil.SocketDir(t), "control.sock")
	server := NewSocketServer(socketPath, testLogger())
	for action, handler := range handlers {
		server.Handle(action, handler)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx) }()
	testutil.RequireClosed(t, server.Ready(), testTimeout, "waiting for socket server")
	t.Cleanup(cancel)
	return socketPath, cancel, done
}

// sendRequest sends a raw CBOR request and returns the envelope.
func sendRequest(t *testing.T, socketPath string, request any) Response {
	t.Helper()
	conn, err := net.DialTimeout("unix", socketPath, testTimeout)
	if err != nil {
		t.Fatalf("connecting to socket: %v", err)
	}
	defer conn.Close()
	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		t.Fatalf("writing request: %v", err)
	}
	var response Response
	if err := codec.NewDecoder(conn).Decode(&response); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return response
}

func TestSocketServerCall(t *testing.T) {
	t.Parallel()
	type status struct {
		Records int    `cbor:"records"`
		Echo    string `cbor:"echo"`
	}
	socketPath, _, _ := startSocketServer(t, map[string]ActionFunc{
		"status": func(ctx context.Context, raw []byte) (any, error) {
			var request struct {
				Echo string `cbor:"echo"`
			}
			if err := codec.Unmarshal(raw, &request); err != nil {
				return nil, err
			}
			return status{Records: 3, Echo: request.Echo}, nil
		},
	})

	client := NewServiceClient(socketPath)
	var result status
	if err := client.Call(context.Background(), "status", map[string]any{"echo": "hi"}, &result); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if result.Records != 3 || result.Echo != "hi" {
		t.Fatalf("result = %+v", result)
	}
}

func TestSocketServerErrors(t *testing.T) {
	t.Parallel()
	socketPath, _, _ := startSocketServer(t, map[string]ActionFunc{
		"fail": func(context.Context, []byte) (any, error) {
			return nil, errors.New("publisher is not running")
		},
	})

	tests := []struct {
		name    string
		request any
		want    string
	}{
		{"unknown action", map[string]any{"action": "reboot"}, `unknown action "reboot"`},
		{"missing action", map[string]any{"other": 1}, "missing required field: action"},
		{"handler error", map[string]any{"action": "fail"}, "publisher is not running"},
		{"not a map", []int{1, 2}, "invalid request"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			response := sendRequest(t, socketPath, test.request)
			if response.OK {
				t.Fatal("response ok, want failure")
			}
			if !strings.Contains(response.Error, test.want) {
				t.Fatalf("error = %q, want %q", response.Error, test.want)
			}
		})
	}
}

func TestServiceClientReturnsServiceError(t *testing.T) {
	t.Parallel()
	socketPath, _, _ := startSocketServer(t, map[string]ActionFunc{
		"fail": func(context.Context, []byte) (any, error) { return nil, errors.New("nope") },
	})
	err := NewServiceClient(socketPath).Call(context.Background(), "fail", nil, nil)
	var serviceErr *ServiceError
	if !errors.As(err, &serviceErr) {
		t.Fatalf("err = %v, want *ServiceError", err)
	}
	if serviceErr.Action != "fail" || serviceErr.Message != "nope" {
		t.Fatalf("ServiceError = %+v", serviceErr)
	}
}

func TestServiceClientNoServer(t *testing.T) {
	t.Parallel()
	path := filepath.Join(testutil.SocketDir(t), "absent.sock")
	err := NewServiceClient(path).Call(context.Background(), "status", nil, nil)
	if err == nil {
		t.Fatal("Call succeeded without a server")
	}
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		t.Fatalf("transport failure reported as ServiceError: %v", err)
	}
}

func TestSocketServerNilResult(t *testing.T) {
	t.Parallel()
	socketPath, _, _ := startSocketServer(t, map[string]ActionFunc{
		"publish": func(context.Context, []byte) (any, error) { return nil, nil },
	})
	response := sendRequest(t, socketPath, map[string]any{"action": "publish"})
	if !response.OK || len(response.Data) != 0 {
		t.Fatalf("response = %+v, want ok with no data", response)
	}
}

func TestSocketServerConcurrentRequests(t *testing.T) {
	t.Parallel()
	socketPath, _, _ := startSocketServer(t, map[string]ActionFunc{
		"echo": func(_ context.Context, raw []byte) (any, error) {
			var request struct {
				N int `cbor:"n"`
			}
			err := codec.Unmarshal(raw, &request)
			return request.N, err
		},
	})

	client := NewServiceClient(socketPath)
	var wait sync.WaitGroup
	for n := 0; n < 20; n++ {
		wait.Add(1)
		go func() {
			defer wait.Done()
			var got int
			if err := client.Call(context.Background(), "echo", map[string]any{"n": n}, &got); err != nil {
				t.Errorf("Call %d: %v", n, err)
				return
			}
			if got != n {
				t.Errorf("Call %d returned %d", n, got)
			}
		}()
	}
	wait.Wait()
}

func TestSocketServerGracefulShutdown(t *testing.T) {
	t.Parallel()
	started := make(chan struct{})
	release := make(chan struct{})
	socketPath, cancel, done := startSocketServer(t, map[string]ActionFunc{
		"slow": func(context.Context, []byte) (any, error) {
			close(started)
			<-release
			return "finished", nil
		},
	})

	result := make(chan string, 1)
	go func() {
		var got string
		if err := NewServiceClient(socketPath).Call(context.Background(), "slow", nil, &got); err != nil {
			result <- fmt.Sprintf("error: %v", err)
			return
		}
		result <- got
	}()
	testutil.RequireClosed(t, started, testTimeout, "waiting for handler")

	cancel()
	close(release)
	if got := testutil.RequireReceive(t, result, testTimeout, "waiting for in-flight call"); got != "finished" {
		t.Fatalf("in-flight call = %q, want finished", got)
	}
	if err := testutil.RequireReceive(t, done, testTimeout, "waiting for Serve"); err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if _, err := os.Stat(socketPath); !os.IsNotExist(err) {
		t.Fatalf("socket file survived shutdown: %v", err)
	}
}

func TestSocketServerReplacesStaleSocket(t *testing.T) {
	t.Parallel()
	socketPath := filepath.Join(testutil.SocketDir(t), "nested", "control.sock")
	if err := os.MkdirAll(filepath.Dir(socketPath), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(socketPath, []byte("stale"), 0o600); err != nil {
		t.Fatal(err)
	}
	server := NewSocketServer(socketPath, testLogger())
	server.Handle("ping", func(context.Context, []byte) (any, error) { return "pong", nil })
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go server.Serve(ctx)
	testutil.RequireClosed(t, server.Ready(), testTimeout, "waiting for socket server")

	var got string
	if err := NewServiceClient(socketPath).Call(context.Background(), "ping", nil, &got); err != nil || got != "pong" {
		t.Fatalf("Call = %q, %v", got, err)
	}
}

func TestSocketServerDuplicateHandlerPanics(t *testing.T) {
	t.Parallel()
	server := NewSocketServer("/unused", testLogger())
	server.Handle("status", func(context.Context, []byte) (any, error) { return nil, nil })
	defer func() {
		if recover() == nil {
			t.Fatal("duplicate Handle did not panic")
		}
	}()
	server.Handle("status", func(context.Context, []byte) (any, error) { return nil, nil })
}
