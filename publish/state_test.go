// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/bureau-foundation/presenced/activity"
	"github.com/bureau-foundation/presenced/lib/clock"
)

func TestStates(t *testing.T) {
	t.Parallel()
	start := time.Unix(1700000000, 0).UTC()
	entries := []activity.Entry{
		{Identity: OSPresenceClientID, Record: activity.Record{State: "up 3 days", StartTime: &start}},
		{Identity: "unmapped", Record: activity.Record{LargeText: "L", SmallText: "s", Details: "D"}},
	}

	states := States(entries, NewNames(nil))
	if states[0].Client != "Operating System" {
		t.Errorf("client = %q, want the built-in name", states[0].Client)
	}
	if states[1].Client != "unmapped" || states[1].LargeText != "L" || states[1].Details != "D" {
		t.Errorf("second state = %+v", states[1])
	}
	if states[0].StartTime == nil || !states[0].StartTime.Equal(start) || states[0].StartTime.Location() != time.Local {
		t.Errorf("start time = %v, want %v in the local zone", states[0].StartTime, start)
	}
	if states[0].EndTime != nil {
		t.Errorf("end time = %v, want nil", states[0].EndTime)
	}
}

func TestStateUpdateWireShape(t *testing.T) {
	t.Parallel()
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	data, err := json.Marshal(StateUpdate{
		Token: "secret",
		State: []PresenceState{{Client: "c", State: "S", StartTime: &start}},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"token":"secret","state":[{"client":"c","large_text":"","small_text":"","state":"S","details":"","start_time":"2026-01-02T03:04:05Z","end_time":null}]}`
	if string(data) != want {
		t.Fatalf("wire = %s\nwant %s", data, want)
	}
}

func TestNames(t *testing.T) {
	t.Parallel()
	names := NewNames(map[string]string{
		"abc":              "Editor",
		OSPresenceClientID: "",
	})
	if got := names.Resolve("abc"); got != "Editor" {
		t.Errorf("Resolve(abc) = %q", got)
	}
	if got := names.Resolve(OSPresenceClientID); got != OSPresenceClientID {
		t.Errorf("removed built-in still resolves to %q", got)
	}
	if got := names.Resolve(""); got != "" {
		t.Errorf("Resolve(\"\") = %q", got)
	}

	var none *Names
	if none.Resolve("x") != "x" || none.Len() != 0 {
		t.Error("nil Names should pass identities through")
	}

	// Overrides must not leak into the built-in table.
	if NewNames(nil).Resolve("abc") != "abc" {
		t.Error("override leaked into a later table")
	}
}

func TestMemorySink(t *testing.T) {
	t.Parallel()
	fake := clock.Fake(testEpoch)
	sink := NewMemorySink(fake)

	states, updated := sink.Load()
	if states == nil || len(states) != 0 || !updated.Equal(testEpoch) {
		t.Fatalf("initial Load = %v, %v", states, updated)
	}

	delivered := []PresenceState{{Client: "a", State: "S"}}
	fake.Advance(time.Minute)
	if err := sink.Deliver(context.Background(), delivered); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	delivered[0].State = "mutated"

	states, updated = sink.Load()
	if len(states) != 1 || states[0].State != "S" {
		t.Fatalf("Load = %+v; the sink must copy on Deliver", states)
	}
	if !updated.Equal(testEpoch.Add(time.Minute)) {
		t.Fatalf("last updated = %v", updated)
	}

	states[0].State = "mutated"
	if again, _ := sink.Load(); again[0].State != "S" {
		t.Fatal("Load returned shared storage")
	}

	if err := sink.Deliver(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	if states, _ := sink.Load(); states == nil || len(states) != 0 {
		t.Fatalf("Load after empty delivery = %v", states)
	}
}
