// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides network and HTTP helpers shared by the
// daemon, the sink, and the demo client.
//
// [IsExpectedCloseError] separates a client hanging up (EOF, reset,
// broken pipe, closed listener) from a real failure, so connection
// teardown can be logged at the right level.
//
// [ErrorBody] and [ReadBody] bound body reads so a misbehaving peer
// cannot make the reader allocate without limit.
package netutil
