// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"time"

	"github.com/bureau-foundation/presenced/activity"
)

// PresenceState is one client's activity as sent to the sink.
// Times are RFC 3339 in the publisher's local zone, or null.
type PresenceState struct {
	Client    string     `json:"client"`
	LargeText string     `json:"large_text"`
	SmallText string     `json:"small_text"`
	State     string     `json:"state"`
	Details   string     `json:"details"`
	StartTime *time.Time `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
}

// StateUpdate is the body of POST /state. The sink replaces its whole
// state with State.
type StateUpdate struct {
	Token string          `json:"token"`
	State []PresenceState `json:"state"`
}

// States converts store entries to wire states, resolving each
// identity through names. Entry order is preserved.
func States(entries []activity.Entry, names *Names) []PresenceState {
	states := make([]PresenceState, 0, len(entries))
	for _, entry := range entries {
		states = append(states, PresenceState{
			Client:    names.Resolve(entry.Identity),
			LargeText: entry.Record.LargeText,
			SmallText: entry.Record.SmallText,
			State:     entry.Record.State,
			Details:   entry.Record.Details,
			StartTime: localTime(entry.Record.StartTime),
			EndTime:   localTime(entry.Record.EndTime),
		})
	}
	return states
}

func localTime(instant *time.Time) *time.Time {
	if instant == nil {
		return nil
	}
	local := instant.Local()
	return &local
}
