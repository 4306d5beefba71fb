package common

import (
	"fmt"
	"time"
)

// Standard time format constants
const (
	// TimestampKey is the compact UTC format used for scratch directories,
	// mosaic file names and progress messages (e.g. 20190514_1730)
	TimestampKey = "20060102_1504"

	// DefaultCadence is the interval between successive imagery products
	// published by the WMS
	DefaultCadence = 30 * time.Minute
)

// FormatTimestampKey formats a time for use as a per-step artifact key
func FormatTimestampKey(t time.Time) string {
	return t.UTC().Format(TimestampKey)
}

// ParseRequestTime parses a request timestamp in RFC 3339 form, accepting a
// trailing Z or a numeric offset.
func ParseRequestTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("timestamp is empty")
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// TimeSteps enumerates the fixed-cadence sequence from start through end,
// inclusive of both endpoints when the range divides evenly. The comparison
// is inclusive-of-end, so no step ever overshoots end.
func TimeSteps(start, end time.Time, cadence time.Duration) []time.Time {
	if cadence <= 0 || end.Before(start) {
		return nil
	}
	var steps []time.Time
	for cur := start; !cur.After(end); cur = cur.Add(cadence) {
		steps = append(steps, cur)
	}
	return steps
}
