// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package service provides the process scaffolding shared by the
// presenced daemon and the presence-http sink:
//
//   - Socket server: a CBOR request/response Unix socket with action
//     dispatch, one request per connection, connection timeouts, and
//     graceful shutdown. The daemon's control socket is built on it.
//   - Service client: the matching caller, used by presencectl.
//   - HTTP server: TCP listener lifecycle with graceful shutdown.
//   - Logger construction and systemd readiness notification.
//
// Binaries compose these in their own main() rather than subclassing
// a framework.
//
// # Authentication
//
// The control socket has no caller authentication. Its file mode and
// the permissions of the runtime directory decide who can reach it.
package service
