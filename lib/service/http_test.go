// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/bureau-foundation/presenced/lib/testutil"
)

func TestHTTPServerServesAndShutsDown(t *testing.T) {
	t.Parallel()
	server := NewHTTPServer(HTTPServerConfig{
		Address: "127.0.0.1:0",
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "presence")
		}),
		Logger: testLogger(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx) }()
	testutil.RequireClosed(t, server.Ready(), testTimeout, "waiting for http server")

	response, err := http.Get("http://" + server.Addr().String() + "/")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	body, _ := io.ReadAll(response.Body)
	response.Body.Close()
	if string(body) != "presence" {
		t.Fatalf("body = %q", body)
	}

	cancel()
	if err := testutil.RequireReceive(t, done, testTimeout, "waiting for shutdown"); err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if _, err := http.Get("http://" + server.Addr().String() + "/"); err == nil {
		t.Fatal("server still accepting after shutdown")
	}
}

func TestHTTPServerBindFailure(t *testing.T) {
	t.Parallel()
	server := NewHTTPServer(HTTPServerConfig{
		Address: "127.0.0.1:-1",
		Handler: http.NotFoundHandler(),
		Logger:  testLogger(),
	})
	if err := server.Serve(context.Background()); err == nil {
		t.Fatal("Serve succeeded on an invalid address")
	}
}

func TestNewHTTPServerRequiresFields(t *testing.T) {
	t.Parallel()
	for name, config := range map[string]HTTPServerConfig{
		"address": {Handler: http.NotFoundHandler(), Logger: testLogger()},
		"handler": {Address: ":0", Logger: testLogger()},
		"logger":  {Address: ":0", Handler: http.NotFoundHandler()},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			defer func() {
				if recover() == nil {
					t.Fatalf("missing %s did not panic", name)
				}
			}()
			NewHTTPServer(config)
		})
	}
}
