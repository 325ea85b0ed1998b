// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package activity

import (
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
)

// Record is one client's current presence as shown to the sink.
type Record struct {
	LargeText string
	SmallText string
	State     string
	Details   string

	// StartTime and EndTime are nil when the client did not send the
	// corresponding timestamp or sent a non-numeric value.
	StartTime *time.Time
	EndTime   *time.Time
}

// MillisecondThreshold is the magnitude at which a numeric timestamp
// is read as milliseconds instead of seconds since the Unix epoch.
// 10,000,000,000 seconds is the year 2286, while the same number of
// milliseconds is April 1970, so real clients fall cleanly on either
// side.
const MillisecondThreshold = 10_000_000_000

// maxYear is the last year a normalized timestamp may fall in.
const maxYear = 9999

// NormalizeTimestamp interprets a raw JSON timestamp value.
//
// Numbers below MillisecondThreshold are seconds since the epoch;
// anything at or above it is milliseconds. Fractional values are
// truncated. Negative values clamp to the epoch. Any non-numeric value
// (absent, null, string, bool, object) yields nil, as does a value too
// large to represent or one that lands after the year 9999.
//
// The returned time is in the local zone.
func NormalizeTimestamp(raw []byte) *time.Time {
	if len(raw) == 0 {
		return nil
	}
	value := gjson.ParseBytes(raw)
	if value.Type != gjson.Number {
		return nil
	}
	if value.Num < 0 {
		instant := time.Unix(0, 0)
		return &instant
	}

	units, ok := wholeUnits(value)
	if !ok {
		return nil
	}

	var instant time.Time
	if units < MillisecondThreshold {
		instant = time.Unix(int64(units), 0)
	} else {
		instant = time.UnixMilli(int64(units))
	}
	// Snapshots are serialized as RFC 3339, which stops at year 9999.
	if instant.Year() > maxYear || instant.UTC().Year() > maxYear {
		return nil
	}
	return &instant
}

// wholeUnits returns the non-negative number's integer part, or false
// when it does not fit in an int64. Plain integer literals are parsed
// exactly; fractions and exponents go through the float value.
func wholeUnits(value gjson.Result) (uint64, bool) {
	if units, err := strconv.ParseUint(value.Raw, 10, 64); err == nil {
		return units, units <= math.MaxInt64
	} else if errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	if value.Num >= math.MaxInt64 {
		return 0, false
	}
	return uint64(math.Trunc(value.Num)), true
}
