// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import "io"

// MaxBodySize bounds request and response body reads: 8 MB. A
// snapshot of every live presence client is a few kilobytes; the
// limit only guards against a pathological peer.
const MaxBodySize int64 = 8 << 20

// maxErrorBodySize bounds how much of an error response ends up in a
// log line.
const maxErrorBodySize int64 = 4 << 10

// ReadBody reads r up to MaxBodySize bytes.
func ReadBody(r io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, MaxBodySize))
}

// ErrorBody reads the head of an error response body for diagnostics.
// Read errors are ignored; a partial body is still useful.
func ErrorBody(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	return string(data)
}
