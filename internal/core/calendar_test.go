package core

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2023-08-11")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if d.Year != 2023 || d.Month != time.August || d.Day != 11 {
		t.Errorf("expected 2023-08-11, got %v", d)
	}
	if d.String() != "2023-08-11" {
		t.Errorf("expected string 2023-08-11, got %q", d.String())
	}

	if _, err := ParseDate("11.8.2023"); err == nil {
		t.Error("expected error for non ISO date")
	}
}

func TestDateAt(t *testing.T) {
	d := Date{Year: 2023, Month: time.January, Day: 1}
	at := d.At(9, 30, time.Local)
	if at.Hour() != 9 || at.Minute() != 30 {
		t.Errorf("expected 09:30, got %s", at.Format("15:04"))
	}
	if DateOf(at) != d {
		t.Errorf("DateOf round trip: got %v", DateOf(at))
	}
}

func TestDateWeekday(t *testing.T) {
	// 2023-08-11 was a Friday, 2023-08-13 a Sunday.
	if wd := (Date{2023, time.August, 11}).Weekday(time.Local); wd != time.Friday {
		t.Errorf("expected Friday, got %s", wd)
	}
	if wd := (Date{2023, time.August, 13}).Weekday(time.Local); wd != time.Sunday {
		t.Errorf("expected Sunday, got %s", wd)
	}
}

func TestNthWeekdayOfMonth(t *testing.T) {
	august := Date{Year: 2023, Month: time.August, Day: 20}

	second := NthWeekdayOfMonth(time.Friday, 2, august, time.Local)
	if second != (Date{2023, time.August, 11}) {
		t.Errorf("second Friday of August 2023: expected 2023-08-11, got %v", second)
	}

	first := NthWeekdayOfMonth(time.Tuesday, 1, august, time.Local)
	if first != (Date{2023, time.August, 1}) {
		t.Errorf("first Tuesday of August 2023: expected 2023-08-01, got %v", first)
	}

	// The fifth Friday of August 2023 does not exist; the walk lands in
	// September and a full-date comparison against August never matches.
	overflow := NthWeekdayOfMonth(time.Friday, 5, august, time.Local)
	if overflow.Month != time.September {
		t.Errorf("expected overflow into September, got %v", overflow)
	}
}

func TestWeekdayFromDigit(t *testing.T) {
	cases := []struct {
		digit   int
		weekday time.Weekday
		ok      bool
	}{
		{1, time.Monday, true},
		{2, time.Tuesday, true},
		{6, time.Saturday, true},
		{7, time.Sunday, true},
		{0, 0, false},
		{8, 0, false},
		{-1, 0, false},
	}
	for _, tc := range cases {
		wd, ok := weekdayFromDigit(tc.digit)
		if ok != tc.ok {
			t.Errorf("digit %d: expected ok=%v", tc.digit, tc.ok)
			continue
		}
		if ok && wd != tc.weekday {
			t.Errorf("digit %d: expected %s, got %s", tc.digit, tc.weekday, wd)
		}
	}
}
