// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/presenced/activity"
	"github.com/bureau-foundation/presenced/lib/clock"
	"github.com/bureau-foundation/presenced/lib/metrics"
	"github.com/bureau-foundation/presenced/lib/testutil"
)

const testTimeout = 5 * time.Second

var testEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeSink records deliveries and returns queued errors in order.
// delivered signals after every call so tests never poll.
type fakeSink struct {
	mu        sync.Mutex
	calls     [][]PresenceState
	errors    []error
	delivered chan struct{}
}

func newFakeSink(errs ...error) *fakeSink {
	return &fakeSink{errors: errs, delivered: make(chan struct{}, 16)}
}

func (f *fakeSink) Deliver(_ context.Context, states []PresenceState) error {
	f.mu.Lock()
	f.calls = append(f.calls, append([]PresenceState{}, states...))
	var err error
	if len(f.errors) > 0 {
		err, f.errors = f.errors[0], f.errors[1:]
	}
	f.mu.Unlock()
	f.delivered <- struct{}{}
	return err
}

func (f *fakeSink) call(index int) []PresenceState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[index]
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestPublisher(t *testing.T, store *activity.Store, sink Sink, clk clock.Clock) *Publisher {
	t.Helper()
	publisher, err := NewPublisher(PublisherConfig{
		Store:    store,
		Sink:     sink,
		Names:    NewNames(map[string]string{"abc": "Editor"}),
		Interval: 5 * time.Second,
		Clock:    clk,
		Logger:   slog.New(slog.DiscardHandler),
		Metrics:  metrics.New(),
	})
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}
	return publisher
}

func TestPublisherTicks(t *testing.T) {
	t.Parallel()
	store := activity.NewStore()
	store.Upsert("abc", activity.Record{State: "S"})
	store.Upsert("zzz", activity.Record{State: "T"})
	sink := newFakeSink()
	fake := clock.Fake(testEpoch)
	publisher := newTestPublisher(t, store, sink, fake)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		publisher.Run(ctx)
		close(done)
	}()
	fake.WaitForTimers(1)

	// Nothing goes out before the first interval.
	fake.Advance(4 * time.Second)
	if sink.count() != 0 {
		t.Fatalf("%d deliveries before the first interval", sink.count())
	}

	fake.Advance(time.Second)
	testutil.RequireReceive(t, sink.delivered, testTimeout, "waiting for first tick")
	first := sink.call(0)
	if len(first) != 2 || first[0].Client != "Editor" || first[1].Client != "zzz" {
		t.Fatalf("first delivery = %+v", first)
	}

	store.Remove("abc")
	fake.Advance(5 * time.Second)
	testutil.RequireReceive(t, sink.delivered, testTimeout, "waiting for second tick")
	if second := sink.call(1); len(second) != 1 || second[0].Client != "zzz" {
		t.Fatalf("second delivery = %+v", second)
	}

	cancel()
	testutil.RequireClosed(t, done, testTimeout, "waiting for Run to stop")
}

func TestPublisherDeliversEmptySnapshots(t *testing.T) {
	t.Parallel()
	sink := newFakeSink()
	publisher := newTestPublisher(t, activity.NewStore(), sink, clock.Fake(testEpoch))
	if err := publisher.PublishOnce(context.Background()); err != nil {
		t.Fatalf("PublishOnce: %v", err)
	}
	if states := sink.call(0); len(states) != 0 {
		t.Fatalf("delivered %+v, want an empty snapshot", states)
	}
}

func TestPublisherFailureThenSuccess(t *testing.T) {
	t.Parallel()
	store := activity.NewStore()
	store.Upsert("abc", activity.Record{State: "S"})
	sink := newFakeSink(&DeliveryError{StatusCode: 502})
	fake := clock.Fake(testEpoch)
	publisher := newTestPublisher(t, store, sink, fake)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go publisher.Run(ctx)
	fake.WaitForTimers(1)

	fake.Advance(5 * time.Second)
	testutil.RequireReceive(t, sink.delivered, testTimeout, "waiting for failing tick")
	fake.Advance(5 * time.Second)
	testutil.RequireReceive(t, sink.delivered, testTimeout, "waiting for next tick")

	// The failed snapshot is not retried; the next tick carries
	// fresh data.
	if sink.count() != 2 {
		t.Fatalf("deliveries = %d, want 2", sink.count())
	}
	cancel()

	status := publisher.Status()
	if status.Failed != 1 || status.Succeeded < 1 {
		t.Fatalf("status = %+v", status)
	}
}

func TestPublishOnceReturnsError(t *testing.T) {
	t.Parallel()
	sink := newFakeSink(errors.New("connection refused"))
	fake := clock.Fake(testEpoch)
	publisher := newTestPublisher(t, activity.NewStore(), sink, fake)

	err := publisher.PublishOnce(context.Background())
	if err == nil || err.Error() != "connection refused" {
		t.Fatalf("PublishOnce = %v", err)
	}
	status := publisher.Status()
	if status.LastError != "connection refused" || !status.LastAttempt.Equal(testEpoch) {
		t.Fatalf("status = %+v", status)
	}

	if err := publisher.PublishOnce(context.Background()); err != nil {
		t.Fatalf("second PublishOnce: %v", err)
	}
	if status := publisher.Status(); status.LastError != "" || status.Succeeded != 1 {
		t.Fatalf("status after success = %+v", status)
	}
}

func TestPublisherSnapshot(t *testing.T) {
	t.Parallel()
	store := activity.NewStore()
	store.Upsert("b", activity.Record{State: "2"})
	store.Upsert("a", activity.Record{State: "1"})
	publisher := newTestPublisher(t, store, newFakeSink(), clock.Fake(testEpoch))

	snapshot := publisher.Snapshot()
	if !snapshot.TakenAt.Equal(testEpoch) {
		t.Errorf("TakenAt = %v", snapshot.TakenAt)
	}
	if len(snapshot.Entries) != 2 || snapshot.Entries[0].Identity != "a" {
		t.Fatalf("entries = %+v", snapshot.Entries)
	}
}

func TestNewPublisherValidation(t *testing.T) {
	t.Parallel()
	if _, err := NewPublisher(PublisherConfig{Sink: newFakeSink()}); err == nil {
		t.Error("missing store accepted")
	}
	if _, err := NewPublisher(PublisherConfig{Store: activity.NewStore()}); err == nil {
		t.Error("missing sink accepted")
	}
	publisher, err := NewPublisher(PublisherConfig{Store: activity.NewStore(), Sink: newFakeSink()})
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}
	if publisher.Interval() != DefaultInterval {
		t.Errorf("interval = %v, want %v", publisher.Interval(), DefaultInterval)
	}
}

// A client sending a far-future timestamp must not block delivery of
// everyone else's records.
func TestPublishOnceFarFutureTimestamp(t *testing.T) {
	t.Parallel()
	server, requests := newCaptureServer(t, http.StatusOK, "")
	sink, err := NewHTTPSink(HTTPSinkConfig{Upstream: server.URL, Token: "secret"})
	if err != nil {
		t.Fatalf("NewHTTPSink: %v", err)
	}

	goodStart := activity.NormalizeTimestamp([]byte("1700000000"))
	store := activity.NewStore()
	store.Upsert("good", activity.Record{State: "ok", StartTime: goodStart})
	store.Upsert("late", activity.Record{
		State:     "far future",
		StartTime: activity.NormalizeTimestamp([]byte("300000000000000")),
		EndTime:   activity.NormalizeTimestamp([]byte("99999999999999999999")),
	})
	publisher := newTestPublisher(t, store, sink, clock.Fake(testEpoch))

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	if err := publisher.PublishOnce(ctx); err != nil {
		t.Fatalf("PublishOnce: %v", err)
	}

	request := testutil.RequireReceive(t, requests, testTimeout, "waiting for delivery")
	if len(request.update.State) != 2 {
		t.Fatalf("delivered %d states, want 2: %+v", len(request.update.State), request.update.State)
	}
	byClient := map[string]PresenceState{}
	for _, state := range request.update.State {
		byClient[state.Client] = state
	}
	if good := byClient["good"]; good.StartTime == nil || !good.StartTime.Equal(*goodStart) {
		t.Fatalf("good record start = %v, want %v", good.StartTime, *goodStart)
	}
	if late := byClient["late"]; late.State != "far future" || late.StartTime != nil || late.EndTime != nil {
		t.Fatalf("far-future record = %+v, want timestamps dropped", late)
	}
	if status := publisher.Status(); status.Failed != 0 || status.Succeeded != 1 {
		t.Fatalf("status = %+v", status)
	}
}
