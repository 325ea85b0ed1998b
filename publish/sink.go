// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"context"
	"sync"
	"time"

	"github.com/bureau-foundation/presenced/lib/clock"
)

// Sink receives snapshots. Deliver must not retain states after it
// returns unless it copies them.
type Sink interface {
	Deliver(ctx context.Context, states []PresenceState) error
}

// MemorySink holds the most recent snapshot in memory.
type MemorySink struct {
	clock clock.Clock

	mu          sync.RWMutex
	states      []PresenceState
	lastUpdated time.Time
}

// NewMemorySink returns an empty sink. Its last-updated time starts at
// construction, as if an empty snapshot had just arrived.
func NewMemorySink(clk clock.Clock) *MemorySink {
	return &MemorySink{clock: clk, lastUpdated: clk.Now()}
}

// Deliver replaces the held snapshot.
func (s *MemorySink) Deliver(_ context.Context, states []PresenceState) error {
	copied := append([]PresenceState{}, states...)
	now := s.clock.Now()

	s.mu.Lock()
	s.states = copied
	s.lastUpdated = now
	s.mu.Unlock()
	return nil
}

// Load returns a copy of the held snapshot and when it arrived. The
// slice is never nil.
func (s *MemorySink) Load() ([]PresenceState, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]PresenceState{}, s.states...), s.lastUpdated
}
