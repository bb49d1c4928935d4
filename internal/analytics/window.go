package analytics

import "time"

// allTimeLowerBound is the epoch-like floor used for all_time windows.
var allTimeLowerBound = time.Unix(0, 0).UTC()

// Window resolves a time period to a concrete [start, end] range ending
// at now. Weeks start on Sunday regardless of locale.
func Window(now time.Time, period TimePeriod) (time.Time, time.Time) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch period {
	case PeriodToday:
		return midnight, now
	case PeriodThisWeek:
		start := midnight.AddDate(0, 0, -int(now.Weekday()))
		return start, now
	case PeriodThisMonth:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return start, now
	case PeriodThisYear:
		start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
		return start, now
	default:
		return allTimeLowerBound, now
	}
}
