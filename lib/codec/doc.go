// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR encoding used on the daemon's control
// socket.
//
// presenced speaks two serialization formats with a clear boundary:
//
//   - JSON for everything that faces a presence client or the sink: the
//     IPC frame payloads and the snapshot push body.
//   - CBOR for the operator control socket between presencectl and the
//     daemon.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2), so the
// same status response always produces the same bytes.
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
package codec
