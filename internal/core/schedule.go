package core

import "time"

// NextOccurrence computes the occurrence that follows prev for the given
// interval. anchor is the date the series was seeded with: it supplies
// the day-of-month (and, for yearly series, the month) so that a series
// anchored on the 31st returns to the 31st after shorter months instead
// of drifting to the clamped day. Feb 29 anchors clamp to Feb 28 on
// non-leap years.
func NextOccurrence(prev time.Time, interval RecurringInterval, anchor time.Time) time.Time {
	prev = DateOnly(prev)
	anchor = DateOnly(anchor)

	switch interval {
	case Daily:
		return prev.AddDate(0, 0, 1)
	case Weekly:
		return prev.AddDate(0, 0, 7)
	case Monthly:
		year, month, _ := prev.Date()
		return clampedDate(year, month+1, anchor.Day())
	case Yearly:
		return clampedDate(prev.Year()+1, anchor.Month(), anchor.Day())
	}
	return time.Time{}
}

// clampedDate builds a UTC date, pulling day back to the last valid day
// of the month when it would overflow (Jan 31 -> Feb 28/29).
func clampedDate(year int, month time.Month, day int) time.Time {
	if last := lastDayOfMonth(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func lastDayOfMonth(year int, month time.Month) int {
	// Day zero of the following month.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
