// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/presenced/activity"
	"github.com/bureau-foundation/presenced/lib/clock"
	"github.com/bureau-foundation/presenced/lib/metrics"
)

// DefaultInterval is the time between snapshots.
const DefaultInterval = 5 * time.Second

// PublisherConfig holds the parameters for NewPublisher.
type PublisherConfig struct {
	// Store is read on every tick. Required.
	Store *activity.Store

	// Sink receives every snapshot. Required.
	Sink Sink

	// Names resolves identities. Nil passes identities through.
	Names *Names

	// Interval defaults to DefaultInterval.
	Interval time.Duration

	// Clock defaults to clock.Real().
	Clock clock.Clock

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Metrics may be nil.
	Metrics *metrics.Metrics
}

// Publisher sends store snapshots to a sink on a fixed interval.
type Publisher struct {
	store    *activity.Store
	sink     Sink
	names    *Names
	interval time.Duration
	clock    clock.Clock
	logger   *slog.Logger
	metrics  *metrics.Metrics

	// deliverMu keeps an out-of-band PublishOnce from interleaving
	// with a tick, so the sink sees snapshots in the order taken.
	deliverMu sync.Mutex

	succeeded atomic.Uint64
	failed    atomic.Uint64

	statusMu    sync.Mutex
	lastAttempt time.Time
	lastError   string
}

// NewPublisher validates config and returns a publisher.
func NewPublisher(config PublisherConfig) (*Publisher, error) {
	if config.Store == nil {
		return nil, errors.New("publisher: Store is required")
	}
	if config.Sink == nil {
		return nil, errors.New("publisher: Sink is required")
	}
	interval := config.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		store:    config.Store,
		sink:     config.Sink,
		names:    config.Names,
		interval: interval,
		clock:    clk,
		logger:   logger.With("component", "publisher"),
		metrics:  config.Metrics,
	}, nil
}

// Interval returns the tick interval.
func (p *Publisher) Interval() time.Duration { return p.interval }

// Run publishes one snapshot per interval until ctx is cancelled. The
// first snapshot goes out one full interval after Run starts.
func (p *Publisher) Run(ctx context.Context) {
	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// Failures are already logged; the next tick retries
			// with fresh data.
			_ = p.PublishOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// PublishOnce takes a snapshot and delivers it. A failure is logged at
// warn, counted, and returned; nothing is retried.
func (p *Publisher) PublishOnce(ctx context.Context) error {
	p.deliverMu.Lock()
	defer p.deliverMu.Unlock()

	states := States(p.store.Snapshot(), p.names)
	err := p.sink.Deliver(ctx, states)

	p.statusMu.Lock()
	p.lastAttempt = p.clock.Now()
	if err != nil {
		p.lastError = err.Error()
	} else {
		p.lastError = ""
	}
	p.statusMu.Unlock()

	if err != nil {
		p.failed.Add(1)
		p.metrics.PublishFailed()
		if ctx.Err() == nil {
			p.logger.Warn("snapshot delivery failed", "records", len(states), "error", err)
		}
		return err
	}
	p.succeeded.Add(1)
	p.metrics.PublishSucceeded(len(states))
	p.logger.Debug("snapshot delivered", "records", len(states))
	return nil
}

// Snapshot returns the current store contents as they would be
// delivered, without delivering them.
func (p *Publisher) Snapshot() activity.Snapshot {
	return activity.Snapshot{
		TakenAt: p.clock.Now(),
		Entries: p.store.Snapshot(),
	}
}

// Names returns the publisher's name table.
func (p *Publisher) Names() *Names { return p.names }

// Status summarizes delivery history.
type Status struct {
	Succeeded   uint64
	Failed      uint64
	LastAttempt time.Time
	LastError   string
}

// Status returns delivery counters and the outcome of the last
// attempt.
func (p *Publisher) Status() Status {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	return Status{
		Succeeded:   p.succeeded.Load(),
		Failed:      p.failed.Load(),
		LastAttempt: p.lastAttempt,
		LastError:   p.lastError,
	}
}
