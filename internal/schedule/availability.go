package schedule

import "time"

// WorkingWindow is one weekday's recurring availability window.
type WorkingWindow struct {
	Start ClockTime
	End   ClockTime
}

// TimeOffBlock removes availability inside an otherwise open window. The
// block is half-open: a slot at time t is covered when Start <= t < End.
type TimeOffBlock struct {
	Start ClockTime
	End   ClockTime
}

// Slots computes the bookable slot starts for one doctor-day, as ordered
// "HH:MM" strings. The window start rounds down and the end rounds up to the
// interval; a window that collapses after rounding yields no slots.
//
// Booked instants knock out candidates by (hour, minute) alone, regardless
// of which date the instant carries. Time-off blocks are applied
// independently of each other; a block whose end does not follow its start
// covers nothing.
//
// The caller is responsible for distinguishing "no working window configured"
// from an empty result; Slots is only called once a window exists.
func Slots(date time.Time, w WorkingWindow, booked []time.Time, timeOff []TimeOffBlock, interval int) []string {
	if interval <= 0 {
		interval = DefaultInterval
	}

	start := RoundDateTime(At(date, w.Start), interval, RoundDown)
	end := RoundDateTime(At(date, w.End), interval, RoundUp)
	if !start.Before(end) {
		return nil
	}

	startMin := start.Hour()*60 + start.Minute()
	endMin := end.Hour()*60 + end.Minute()
	if end.Day() != start.Day() {
		// End rounded up past midnight; the day's last slot still starts
		// before it.
		endMin = minutesPerDay
	}

	taken := make(map[int]struct{}, len(booked))
	for _, b := range booked {
		taken[b.Hour()*60+b.Minute()] = struct{}{}
	}

	var slots []string
	for m := startMin; m < endMin; m += interval {
		if _, ok := taken[m]; ok {
			continue
		}
		if coveredByTimeOff(m, timeOff) {
			continue
		}
		slots = append(slots, ClockFromMinutes(m).String())
	}
	return slots
}

func coveredByTimeOff(m int, blocks []TimeOffBlock) bool {
	for _, b := range blocks {
		if b.Start.Minutes() <= m && m < b.End.Minutes() {
			return true
		}
	}
	return false
}
