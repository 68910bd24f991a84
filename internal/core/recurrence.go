package core

import (
	"math"
)

// Occurs reports whether the task definition occurs on day. It is a pure
// predicate: malformed repeat configurations resolve to "does not occur"
// rather than an error.
func (t *Task) Occurs(day Date) bool {
	data := t.data
	switch data.RepeatType {
	case RepeatNone:
		return DateOf(data.ScheduledStart.In(t.location)) == day

	case RepeatMonthly:
		// No clamping for short months: day 31 never matches in April.
		return day.Day == data.RepeatInfo

	case RepeatMonthlyDay:
		weekday, ok := weekdayFromDigit(data.RepeatInfo % 10)
		if !ok {
			return false
		}
		week := (data.RepeatInfo / 10) % 10
		if day.Weekday(t.location) != weekday {
			return false
		}
		// Full-date comparison: an ordinal that overflows the month lands in
		// the next month and never matches.
		return day == NthWeekdayOfMonth(weekday, week, day, t.location)

	case RepeatSpecifiedDays:
		target := day.Weekday(t.location)
		for info := data.RepeatInfo; info > 0; info /= 10 {
			if weekday, ok := weekdayFromDigit(info % 10); ok && weekday == target {
				return true
			}
		}
		return false

	case RepeatWithInterval:
		k := int64(data.RepeatInfo)
		if k <= 0 {
			// Rejected at creation time; guarded here as well so a
			// hand-edited record cannot trigger a zero modulus.
			return false
		}
		start := midnight(data.ScheduledStart, t.location)
		target := day.At(0, 0, t.location)
		// Rounding absorbs the one-hour skew of DST transitions between
		// the two midnights.
		days := int64(math.Round(target.Sub(start).Hours() / 24))
		return days%k == 0
	}
	return false
}
