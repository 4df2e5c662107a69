package dailyaccess

import "time"

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// AddMonth moves t one calendar month forward and places it on anchorDay,
// clamped to the last day of shorter months. Jan 31 -> Feb 28 -> Mar 31.
func AddMonth(t time.Time, anchorDay int) time.Time {
	year, month := t.Year(), t.Month()+1
	if month > time.December {
		month = time.January
		year++
	}
	day := anchorDay
	if last := daysIn(year, month, t.Location()); day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return time.Date(year, month, day, t.Hour(), t.Minute(), t.Second(), 0, t.Location())
}

// NextBillingDate returns the first billing date strictly after now for a
// cycle that started at start with the given anchor day.
func NextBillingDate(start time.Time, anchorDay int, now time.Time) time.Time {
	next := AddMonth(start, anchorDay)
	for !next.After(now) {
		next = AddMonth(next, anchorDay)
	}
	return next
}
