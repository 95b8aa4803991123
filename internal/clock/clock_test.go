package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayWindow(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	tests := []struct {
		name      string
		at        time.Time
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "midday utc",
			at:        time.Date(2026, 10, 16, 12, 30, 0, 0, time.UTC),
			wantStart: time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "exactly midnight",
			at:        time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC),
			wantStart: time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "last nanosecond of the day",
			at:        time.Date(2026, 10, 16, 23, 59, 59, 999999999, time.UTC),
			wantStart: time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "dst change day is 25 hours",
			at:        time.Date(2026, 10, 25, 15, 0, 0, 0, berlin),
			wantStart: time.Date(2026, 10, 25, 0, 0, 0, 0, berlin),
			wantEnd:   time.Date(2026, 10, 26, 0, 0, 0, 0, berlin),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := DayWindow(tt.at)
			assert.True(t, tt.wantStart.Equal(w.Start), "start = %v", w.Start)
			assert.True(t, tt.wantEnd.Equal(w.End), "end = %v", w.End)
			assert.True(t, w.Contains(tt.at))
		})
	}
}

func TestWindowContainsIsHalfOpen(t *testing.T) {
	w := DayWindow(time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC))

	assert.True(t, w.Contains(w.Start))
	assert.False(t, w.Contains(w.End))
	assert.False(t, w.Contains(w.Start.Add(-time.Nanosecond)))
}

func TestFixedClock(t *testing.T) {
	start := time.Date(2026, 10, 16, 23, 0, 0, 0, time.UTC)
	c := NewFixedClock(start)

	assert.Equal(t, start, c.Now())
	today := Today(c)

	c.Advance(2 * time.Hour)
	assert.False(t, today.Contains(c.Now()))
	assert.Equal(t, today.End, Today(c).Start)
}

func TestSystemClockUsesLocation(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	c := NewSystemClock(tokyo)
	assert.Equal(t, tokyo, c.Now().Location())
	assert.Equal(t, time.UTC, NewSystemClock(nil).Now().Location())
}
