// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package activity holds the daemon's only shared mutable state: the
// last activity each connected presence client reported.
//
// A [Store] maps a client identity (the client_id from the IPC
// handshake) to a [Record]. Connections write to it, the publisher and
// the control socket read [Snapshot]s from it. The store is created
// once by the daemon and passed by reference to every consumer; there
// is no package-level instance.
//
// Lifecycle of an entry:
//
//   - A connection completes its handshake. Nothing is stored yet.
//   - Each accepted SET_ACTIVITY replaces the identity's record
//     wholesale via [Store.Upsert].
//   - When the connection terminates for any reason, the connection
//     calls [Store.Remove]. Entries are never expired otherwise.
//
// [NormalizeTimestamp] converts the numeric start/end timestamps that
// clients send into instants, guessing the unit from the magnitude.
package activity
