// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for presenced packages.
//
// [SocketDir] creates a short-named temporary directory for Unix domain
// sockets. sun_path is limited to 108 bytes, and t.TempDir() paths
// under a deeply nested TMPDIR exceed it.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// pattern so individual tests never call time.After themselves. They
// are the only place in the test suite that uses wall-clock timeouts.
//
// [UniqueID] hands out distinct client identities for tests that share
// one activity store.
//
// Helpers call t.Fatalf on failure; setup failures are not recoverable.
package testutil
