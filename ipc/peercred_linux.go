// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ipc

import (
	"net"

	"golang.org/x/sys/unix"
)

func peerCredentials(conn net.Conn) (PeerCredentials, bool) {
	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		return PeerCredentials{}, false
	}
	raw, err := unixConn.SyscallConn()
	if err != nil {
		return PeerCredentials{}, false
	}

	var ucred *unix.Ucred
	var sockoptErr error
	if err := raw.Control(func(fd uintptr) {
		ucred, sockoptErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	}); err != nil || sockoptErr != nil {
		return PeerCredentials{}, false
	}
	return PeerCredentials{PID: ucred.Pid, UID: ucred.Uid, GID: ucred.Gid}, true
}
