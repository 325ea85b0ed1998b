// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ipc

// PeerCredentials identifies the process on the other end of a Unix
// socket, as reported by the kernel at connect time. They are logged
// for diagnostics only; connections are never refused because of them.
type PeerCredentials struct {
	PID int32
	UID uint32
	GID uint32
}
