// Package timeutil provides the clock abstraction and calendar-date helpers
// used by the progression use cases. Session and promotion dates are calendar
// days; they are stored as UTC midnight.
package timeutil

import (
	"sync"
	"time"
)

// Clock returns the current time. Use cases take a Clock so tests can pin dates.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// FixedClock is a manually driven clock for tests.
type FixedClock struct {
	mu sync.Mutex
	t  time.Time
}

// NewFixedClock creates a clock stopped at t.
func NewFixedClock(t time.Time) *FixedClock {
	return &FixedClock{t: t}
}

// Now returns the pinned time.
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Advance moves the clock forward.
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// Date creates a UTC midnight date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOf truncates t to its calendar day in t's own location and returns it as UTC midnight.
func DateOf(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return Date(y, m, d)
}

// IsSameDay reports whether both times fall on the same calendar day.
func IsSameDay(t1, t2 time.Time) bool {
	y1, m1, d1 := t1.Date()
	y2, m2, d2 := t2.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// DaysBetween returns the number of whole calendar days from t1 to t2.
// Negative when t2 is before t1.
func DaysBetween(t1, t2 time.Time) int {
	return int(DateOf(t2).Sub(DateOf(t1)).Hours() / 24)
}

// AgeOn returns the age in full years of someone born on birthday at the given date.
// Zero birthday gives 0.
func AgeOn(birthday, at time.Time) int {
	if birthday.IsZero() || at.Before(birthday) {
		return 0
	}
	age := at.Year() - birthday.Year()
	if at.Month() < birthday.Month() || (at.Month() == birthday.Month() && at.Day() < birthday.Day()) {
		age--
	}
	return age
}
