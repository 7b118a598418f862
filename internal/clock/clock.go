// Package clock holds the pure arithmetic on remaining-time deltas.
// Clocks are persisted as integer microseconds; anything shown to a client
// is rounded down to whole seconds.
package clock

import (
	"strconv"
	"time"
)

// Micros encodes a remaining duration for storage.
func Micros(d time.Duration) int64 {
	return d.Microseconds()
}

// FromMicros decodes a stored remaining duration.
func FromMicros(us int64) time.Duration {
	return time.Duration(us) * time.Microsecond
}

// ParseMicros parses the stored string form, returning 0 for empty or
// malformed input.
func ParseMicros(s string) time.Duration {
	if s == "" {
		return 0
	}
	us, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return FromMicros(us)
}

// FormatMicros is the storage string form of a remaining duration.
func FormatMicros(d time.Duration) string {
	return strconv.FormatInt(Micros(d), 10)
}

// Deduct subtracts the time elapsed between lastMove and now from a
// remaining clock. The result may be negative; the caller decides whether a
// flag fell.
func Deduct(remaining time.Duration, lastMove, now time.Time) time.Duration {
	return remaining - now.Sub(lastMove)
}

// Seconds converts a remaining duration to the whole seconds sent in event
// payloads. Never negative.
func Seconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(d / time.Second)
}

// WaitSeconds is the whole seconds left until a timer's ETA. Never negative.
func WaitSeconds(eta, now time.Time) int {
	return Seconds(eta.Sub(now))
}
