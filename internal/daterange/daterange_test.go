package daterange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBoundaries(t *testing.T) {
	loc := time.FixedZone("PDT", -7*3600)
	// Thursday.
	now := time.Date(2026, 10, 15, 14, 30, 0, 0, loc)

	assert.Equal(t, time.Date(2026, 10, 15, 0, 0, 0, 0, loc), StartOfDay(now))
	assert.Equal(t, time.Date(2026, 10, 15, 23, 59, 59, 999999999, loc), EndOfDay(now))
	assert.Equal(t, 3, DaysSinceMonday(now))
	assert.Equal(t, time.Date(2026, 10, 12, 0, 0, 0, 0, loc), StartOfWeek(now))
	assert.Equal(t, time.Date(2026, 10, 18, 23, 59, 59, 999999999, loc), EndOfWeek(now))
	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, loc), StartOfMonth(now))
	assert.Equal(t, time.Date(2026, 10, 31, 23, 59, 59, 999999999, loc), EndOfMonth(now))
	assert.Equal(t, time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC), UTCDate(now))
}

func TestWeekOnSunday(t *testing.T) {
	sunday := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, 6, DaysSinceMonday(sunday))
	assert.Equal(t, time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC), StartOfWeek(sunday))
}
