// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ipc implements the server side of the desktop presence IPC
// protocol: a binary-framed JSON exchange over local Unix stream
// sockets.
//
// The package is organized around the connection data flow:
//
//   - frame.go: wire format (4-byte opcode, 4-byte length, JSON payload)
//   - conn.go: per-connection state machine (handshake, dispatch, teardown)
//   - supervisor.go: socket binding, accept loops, connection goroutines
//   - client.go: the client side, used by the demo client and tests
//
// Every accepted connection shares one [activity.Store]. A connection
// owns exactly one store entry, keyed by the client identity it sent
// in its handshake, and removes that entry when it terminates.
package ipc
