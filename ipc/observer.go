// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ipc

// Observer receives connection lifecycle events. Implementations must
// be safe for concurrent use; every connection goroutine calls the
// same Observer. Methods are called inline and must not block.
type Observer interface {
	ConnectionOpened()
	ConnectionClosed(err error)
	FrameReceived(opcode uint32)
	ActivityUpdated()
	CommandIgnored(command string)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) ConnectionOpened() {}
func (NopObserver) ConnectionClosed(error) {}
func (NopObserver) FrameReceived(uint32) {}
func (NopObserver) ActivityUpdated() {}
func (NopObserver) CommandIgnored(string) {}
