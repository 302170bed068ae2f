package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupThirdFriday(t *testing.T) {
	e, ok := Default().Lookup("20250321")
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 3, 21, 0, 0, 0, 0, time.UTC), e.Date)
	assert.Equal(t, "Março 2025 (21/03)", e.Description)

	_, ok = Default().Lookup("20250320")
	assert.False(t, ok)
}

func TestLookupBeyondAnyFixedRange(t *testing.T) {
	e, ok := Default().Lookup("20310321")
	require.True(t, ok)
	assert.Equal(t, "Março 2031 (21/03)", e.Description)

	for _, code := range []string{"2031032", "2031-3-21", "20311321", "20310314"} {
		_, ok := Default().Lookup(code)
		assert.False(t, ok, code)
	}
}

func TestUpcomingRollsWithTheClock(t *testing.T) {
	now := time.Date(2029, 11, 30, 9, 0, 0, 0, time.UTC)
	up := Default().Upcoming(now)

	require.Len(t, up, DefaultHorizonMonths-1)
	assert.Equal(t, "20291221", up[0].Code)
	for _, e := range up {
		assert.Equal(t, time.Friday, e.Date.Weekday(), e.Code)
		assert.True(t, e.Date.Day() >= 15 && e.Date.Day() <= 21, e.Code)
	}
	assert.Equal(t, time.October, up[len(up)-1].Date.Month())
	assert.Equal(t, 2031, up[len(up)-1].Date.Year())
}

func TestUpcomingDropsPastAndSorts(t *testing.T) {
	now := time.Date(2025, 3, 21, 15, 0, 0, 0, time.UTC)
	up := Default().Upcoming(now)
	require.NotEmpty(t, up)
	assert.Equal(t, "20250321", up[0].Code)
	assert.Equal(t, 0, up[0].DaysUntil)
	assert.Equal(t, "20250418", up[1].Code)
	assert.Equal(t, 28, up[1].DaysUntil)
	for i := 1; i < len(up); i++ {
		assert.LessOrEqual(t, up[i-1].DaysUntil, up[i].DaysUntil)
	}
}
