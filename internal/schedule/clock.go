package schedule

import (
	"fmt"
	"time"
)

// DefaultInterval is the slot granularity in minutes.
const DefaultInterval = 15

const minutesPerDay = 24 * 60

// Direction selects which way rounding moves a time that is not already
// aligned to the interval.
type Direction int

const (
	RoundDown Direction = iota
	RoundUp
)

// ClockTime is a wall-clock time of day with minute precision.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM" in 24-hour notation.
func ParseClock(s string) (ClockTime, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return ClockTime{}, fmt.Errorf("parse clock time %q: %w", s, err)
	}
	return ClockTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// ClockFromMinutes converts a minute-of-day value into a ClockTime.
func ClockFromMinutes(m int) ClockTime {
	return ClockTime{Hour: m / 60, Minute: m % 60}
}

func (c ClockTime) Minutes() int {
	return c.Hour*60 + c.Minute
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// snapMinutes rounds a minute-of-day value to a multiple of interval.
// Negative inputs are clamped to 0 first. The result is not clamped at the
// top: rounding up can yield minutesPerDay (midnight of the next day).
func snapMinutes(m, interval int, dir Direction) int {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if m < 0 {
		m = 0
	}
	switch dir {
	case RoundUp:
		return ((m + interval - 1) / interval) * interval
	default:
		return (m / interval) * interval
	}
}

// Snap rounds a minute-of-day value to a multiple of interval and clamps the
// result into [0, minutesPerDay-interval], so a slot of length interval
// always fits before midnight. A window end that would round past that bound
// is truncated, never wrapped to the next day.
func Snap(m, interval int, dir Direction) int {
	if interval <= 0 {
		interval = DefaultInterval
	}
	snapped := snapMinutes(m, interval, dir)
	if snapped > minutesPerDay-interval {
		snapped = minutesPerDay - interval
	}
	return snapped
}

// RoundTime rounds a wall-clock time to the interval, truncating at the end
// of the day per Snap.
func RoundTime(c ClockTime, interval int, dir Direction) ClockTime {
	return ClockFromMinutes(Snap(c.Minutes(), interval, dir))
}

// RoundDateTime rounds the minute-of-day component of an instant to the
// interval. Unlike RoundTime it does not truncate at the day boundary:
// rounding up to 24:00 overflows into midnight of the following day.
func RoundDateTime(t time.Time, interval int, dir Direction) time.Time {
	snapped := snapMinutes(t.Hour()*60+t.Minute(), interval, dir)
	// time.Date normalizes minute 1440 into the next day.
	return time.Date(t.Year(), t.Month(), t.Day(), 0, snapped, 0, 0, t.Location())
}

// At combines a calendar date with a wall-clock time in the date's location.
func At(date time.Time, c ClockTime) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), c.Hour, c.Minute, 0, 0, date.Location())
}

// ISOWeekday maps an instant's weekday to ISO numbering, Monday=1 through
// Sunday=7.
func ISOWeekday(t time.Time) int {
	d := int(t.Weekday())
	if d == 0 {
		return 7
	}
	return d
}
