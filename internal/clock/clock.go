// Package clock abstracts wall-clock time so leaderboard windows can be pinned in tests.
package clock

import "time"

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

// Real is the system clock in UTC.
type Real struct{}

// Now returns time.Now in UTC.
func (Real) Now() time.Time { return time.Now().UTC() }

// Fixed always reports the same instant.
type Fixed time.Time

// Now returns the fixed instant in UTC.
func (f Fixed) Now() time.Time { return time.Time(f).UTC() }

// Func adapts a function to Clock.
type Func func() time.Time

// Now calls f.
func (f Func) Now() time.Time { return f() }

// StartOfDay truncates t to UTC midnight.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Day returns the UTC calendar day containing t as [midnight, next midnight).
func Day(t time.Time) (from, to time.Time) {
	from = StartOfDay(t)
	return from, from.AddDate(0, 0, 1)
}

// TrailingDays returns the instant n*24h before t.
func TrailingDays(t time.Time, n int) time.Time {
	return t.UTC().Add(-time.Duration(n) * 24 * time.Hour)
}
