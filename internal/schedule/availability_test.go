package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tuesday is an arbitrary fixed Tuesday.
var tuesday = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func window(start, end string) WorkingWindow {
	s, err := ParseClock(start)
	if err != nil {
		panic(err)
	}
	e, err := ParseClock(end)
	if err != nil {
		panic(err)
	}
	return WorkingWindow{Start: s, End: e}
}

func block(start, end string) TimeOffBlock {
	w := window(start, end)
	return TimeOffBlock{Start: w.Start, End: w.End}
}

func TestSlots(t *testing.T) {
	t.Run("plain morning window", func(t *testing.T) {
		got := Slots(tuesday, window("08:00", "12:00"), nil, nil, 15)
		require.Len(t, got, 16)
		assert.Equal(t, "08:00", got[0])
		assert.Equal(t, "08:15", got[1])
		assert.Equal(t, "11:45", got[15])
	})

	t.Run("unaligned window rounds outward", func(t *testing.T) {
		// 08:07 down to 08:00, 11:52 up to 12:00.
		got := Slots(tuesday, window("08:07", "11:52"), nil, nil, 15)
		exact := Slots(tuesday, window("08:00", "12:00"), nil, nil, 15)
		assert.Equal(t, exact, got)
	})

	t.Run("booked appointment removes its slot", func(t *testing.T) {
		booked := []time.Time{time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
		got := Slots(tuesday, window("08:00", "12:00"), booked, nil, 15)
		assert.Len(t, got, 15)
		assert.NotContains(t, got, "09:00")
		assert.Contains(t, got, "08:45")
		assert.Contains(t, got, "09:15")
	})

	t.Run("booked match is by minute of day, not instant", func(t *testing.T) {
		// Matching is by (hour, minute) alone: an appointment instant
		// from a different date still blocks the matching wall-clock
		// slot.
		booked := []time.Time{time.Date(2025, 12, 25, 9, 0, 0, 0, time.UTC)}
		got := Slots(tuesday, window("08:00", "12:00"), booked, nil, 15)
		assert.NotContains(t, got, "09:00")
	})

	t.Run("time off removes covered slots half-open", func(t *testing.T) {
		got := Slots(tuesday, window("08:00", "12:00"), nil, []TimeOffBlock{block("10:00", "10:30")}, 15)
		assert.Len(t, got, 14)
		assert.NotContains(t, got, "10:00")
		assert.NotContains(t, got, "10:15")
		assert.Contains(t, got, "10:30")
	})

	t.Run("multiple time off blocks apply independently", func(t *testing.T) {
		blocks := []TimeOffBlock{block("08:00", "08:30"), block("11:30", "12:00")}
		got := Slots(tuesday, window("08:00", "12:00"), nil, blocks, 15)
		assert.Len(t, got, 12)
		assert.Equal(t, "08:30", got[0])
		assert.Equal(t, "11:15", got[len(got)-1])
	})

	t.Run("inverted time off blocks nothing", func(t *testing.T) {
		// Read path is permissive about bad ordering; the write path
		// validates it.
		got := Slots(tuesday, window("08:00", "12:00"), nil, []TimeOffBlock{block("11:00", "09:00")}, 15)
		assert.Len(t, got, 16)
	})

	t.Run("collapsed window yields empty not undefined", func(t *testing.T) {
		got := Slots(tuesday, window("09:00", "09:00"), nil, nil, 15)
		assert.Empty(t, got)

		// 09:05-09:10 rounds to 09:00-09:15, one slot.
		got = Slots(tuesday, window("09:05", "09:10"), nil, nil, 15)
		assert.Equal(t, []string{"09:00"}, got)
	})

	t.Run("window ending at midnight keeps the last slot", func(t *testing.T) {
		got := Slots(tuesday, window("23:00", "23:50"), nil, nil, 15)
		assert.Equal(t, []string{"23:00", "23:15", "23:30", "23:45"}, got)
	})

	t.Run("ascending order no duplicates", func(t *testing.T) {
		got := Slots(tuesday, window("00:00", "23:59"), nil, nil, 15)
		require.Len(t, got, 96)
		seen := make(map[string]struct{}, len(got))
		for i, s := range got {
			if i > 0 {
				assert.Greater(t, s, got[i-1])
			}
			_, dup := seen[s]
			assert.False(t, dup, "duplicate slot %s", s)
			seen[s] = struct{}{}
		}
	})

	t.Run("idempotent for identical inputs", func(t *testing.T) {
		booked := []time.Time{time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
		blocks := []TimeOffBlock{block("10:00", "10:30")}
		first := Slots(tuesday, window("08:00", "12:00"), booked, blocks, 15)
		second := Slots(tuesday, window("08:00", "12:00"), booked, blocks, 15)
		assert.Equal(t, first, second)
	})

	t.Run("non-default interval", func(t *testing.T) {
		got := Slots(tuesday, window("08:00", "10:00"), nil, nil, 30)
		assert.Equal(t, []string{"08:00", "08:30", "09:00", "09:30"}, got)
	})
}
