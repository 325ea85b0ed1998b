// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"fmt"
	"net"
	"os"
	"strings"
)

// Systemd notification states.
const (
	NotifyReady    = "READY=1"
	NotifyStopping = "STOPPING=1"
)

// Notify sends state to the service manager's notification socket.
// It does nothing and returns false when NOTIFY_SOCKET is unset, so
// binaries call it unconditionally.
func Notify(state string) (bool, error) {
	socketPath := os.Getenv("NOTIFY_SOCKET")
	if socketPath == "" {
		return false, nil
	}
	// A leading '@' names a Linux abstract socket.
	if strings.HasPrefix(socketPath, "@") {
		socketPath = "\x00" + socketPath[1:]
	}

	conn, err := net.DialUnix("unixgram", nil, &net.UnixAddr{Name: socketPath, Net: "unixgram"})
	if err != nil {
		return false, fmt.Errorf("connecting to notify socket: %w", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(state)); err != nil {
		return false, fmt.Errorf("writing notify state: %w", err)
	}
	return true, nil
}
