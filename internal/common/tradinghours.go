package common

import "time"

// Mainland exchange trading sessions, local exchange time (UTC+8).
// Morning 09:30-11:30, afternoon 13:00-15:00.
var tradingSessions = [][2]int{
	{9*60 + 30, 11*60 + 30},
	{13 * 60, 15 * 60},
}

// IsTradingDay reports whether t falls on a weekday. Exchange holidays are
// not tracked; callers that need holiday awareness should consult the
// provider's trading calendar.
func IsTradingDay(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	default:
		return true
	}
}

// IsTradingHours reports whether t falls inside a trading session on a
// trading day.
func IsTradingHours(t time.Time) bool {
	if !IsTradingDay(t) {
		return false
	}
	minutes := t.Hour()*60 + t.Minute()
	for _, session := range tradingSessions {
		if minutes >= session[0] && minutes < session[1] {
			return true
		}
	}
	return false
}
