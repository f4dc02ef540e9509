package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDateOf(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	got := DateOf(time.Date(2026, 3, 9, 23, 30, 0, 0, loc))
	assert.Equal(t, Date(2026, 3, 9), got)
	assert.True(t, DateOf(time.Time{}).IsZero())
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 3, DaysBetween(Date(2026, 1, 30), Date(2026, 2, 2)))
	assert.Equal(t, -1, DaysBetween(Date(2026, 1, 2), Date(2026, 1, 1)))
	assert.Equal(t, 0, DaysBetween(time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC), time.Date(2026, 1, 1, 23, 0, 0, 0, time.UTC)))
}

func TestAgeOn(t *testing.T) {
	born := Date(2017, 4, 12)
	assert.Equal(t, 8, AgeOn(born, Date(2026, 4, 11)))
	assert.Equal(t, 9, AgeOn(born, Date(2026, 4, 12)))
	assert.Equal(t, 0, AgeOn(time.Time{}, Date(2026, 4, 12)))
	assert.Equal(t, 0, AgeOn(born, Date(2016, 1, 1)))
}

func TestFixedClock(t *testing.T) {
	c := NewFixedClock(Date(2026, 5, 1))
	c.Advance(36 * time.Hour)
	assert.Equal(t, time.Date(2026, 5, 2, 12, 0, 0, 0, time.UTC), c.Now())
	assert.True(t, IsSameDay(c.Now(), Date(2026, 5, 2)))
	assert.Equal(t, time.UTC, SystemClock{}.Now().Location())
}
