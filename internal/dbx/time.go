package dbx

import "time"

// Timestamps are stored as unix milliseconds so the same column type and
// comparison semantics hold on every dialect.

// Millis converts t to unix milliseconds.
func Millis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

// FromMillis converts unix milliseconds back to a UTC time.
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
