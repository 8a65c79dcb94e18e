package signal

import "time"

const secondsPerDay = 24 * 60 * 60

func dayNumber(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / secondsPerDay
}

// CalendarDays returns the number of calendar days from `from` to `to`, each
// taken at face value in its own location. Elapsed hours are ignored.
func CalendarDays(from, to time.Time) int {
	return int(dayNumber(to) - dayNumber(from))
}

// DaysSince counts calendar days between a timestamp and now, judged in now's location.
func DaysSince(ts, now time.Time) int {
	return CalendarDays(ts.In(now.Location()), now)
}

// DaysPastDate counts calendar days since a civil date. Zero for today, negative for the future.
func DaysPastDate(date, now time.Time) int {
	return CalendarDays(date, now)
}

// Day truncates t to midnight of its civil day in loc.
func Day(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
