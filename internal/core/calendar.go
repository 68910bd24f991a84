package core

import (
	"fmt"
	"time"
)

// Date is a civil calendar date without a time-of-day.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf projects an absolute time onto its civil date in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(value string) (Date, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", value, err)
	}
	return DateOf(t), nil
}

// At combines the date with a time-of-day into an absolute time using the
// civil calendar rules of loc.
func (d Date) At(hour, minute int, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, hour, minute, 0, 0, loc)
}

// Weekday returns the weekday of the date in loc.
func (d Date) Weekday(loc *time.Location) time.Weekday {
	return d.At(0, 0, loc).Weekday()
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// NthWeekdayOfMonth returns the date of the n-th occurrence of weekday in the
// month containing in. It walks from day 1 to the first matching weekday and
// adds (n-1) weeks. There is no bound check against the month length: an
// overflowing n lands in the next month, and callers comparing day-of-month
// simply never match it.
func NthWeekdayOfMonth(weekday time.Weekday, n int, in Date, loc *time.Location) Date {
	t := time.Date(in.Year, in.Month, 1, 0, 0, 0, 0, loc)
	for t.Weekday() != weekday {
		t = t.AddDate(0, 0, 1)
	}
	t = t.AddDate(0, 0, (n-1)*7)
	return DateOf(t)
}

// weekdayFromDigit decodes the weekday digit convention shared by the
// monthly_day and specified_days repeat types: 1=Monday .. 6=Saturday,
// 7=Sunday. Anything else is invalid and matches no weekday.
func weekdayFromDigit(digit int) (time.Weekday, bool) {
	if digit < 1 || digit > 7 {
		return 0, false
	}
	return time.Weekday(digit % 7), true
}

// midnight truncates t to 00:00 of its civil date in loc.
func midnight(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
