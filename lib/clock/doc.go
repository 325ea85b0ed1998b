// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides the time source used by presenced components.
//
// The snapshot publisher ticks on a fixed interval, snapshots carry a
// generation timestamp, the sink records when it last received an
// update, and the demo client sleeps between reconnect attempts. All of
// them take a Clock rather than calling the time package directly so
// that tests can drive them deterministically:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	publisher := publish.NewPublisher(publish.PublisherConfig{Clock: fake, ...})
//	go publisher.Run(ctx)
//	fake.WaitForTimers(1)       // publisher has created its ticker
//	fake.Advance(5 * time.Second) // exactly one tick
//
// Production code uses Real().
package clock
