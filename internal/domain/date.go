package domain

import (
	"fmt"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
	ClockLayout = "15:04"
)

// DayOf truncates t to the start of its calendar day, keeping the location.
func DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return DateIn(y, m, d, t.Location())
}

// DateIn returns the first instant of the civil date y-m-d in loc. Out of
// range days and months are normalised the way time.Date does. Usually the
// result is midnight; where a DST jump skips midnight it is the first wall
// clock time that exists on that day.
func DateIn(year int, month time.Month, day int, loc *time.Location) time.Time {
	y, m, d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Date()

	t := time.Date(y, m, d, 0, 0, 0, 0, loc)
	for i := 0; i < 4*24 && !onDay(t, y, m, d); i++ {
		t = t.Add(15 * time.Minute)
	}
	return t
}

func onDay(t time.Time, y int, m time.Month, d int) bool {
	ty, tm, td := t.Date()
	return ty == y && tm == m && td == d
}

// SameDay compares year, month and day, ignoring time-of-day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// ValidClock reports whether s is a zero-padded 24-hour "HH:MM" value.
func ValidClock(s string) bool {
	if len(s) != 5 {
		return false
	}
	_, err := time.Parse(ClockLayout, s)
	return err == nil
}

// AtClock returns the day of t at the given "HH:MM" wall-clock time.
func AtClock(t time.Time, clock string) time.Time {
	c, err := time.Parse(ClockLayout, clock)
	if err != nil {
		return DayOf(t)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, c.Hour(), c.Minute(), 0, 0, t.Location())
}

// ParseDate parses "YYYY-MM-DD" in loc
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateIn(t.Year(), t.Month(), t.Day(), loc), nil
}
