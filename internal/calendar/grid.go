package calendar

import (
	"time"

	"github.com/tazhate/familycal/internal/domain"
)

const DaysPerWeek = 7

// Cell is one day in the visible month grid.
type Cell struct {
	Date           time.Time `json:"date"`
	IsCurrentMonth bool      `json:"isCurrentMonth"`
	IsSelected     bool      `json:"isSelected"`
	IsToday        bool      `json:"isToday"`
}

// Week is a Sunday-to-Saturday row of cells
type Week [DaysPerWeek]Cell

// Month is the rendered grid for a reference month.
type Month struct {
	Reference time.Time `json:"reference"` // first day of the month
	Title     string    `json:"title"`
	Weeks     []Week    `json:"weeks"`
}

// BuildMonth lays out the weeks covering the reference month, including the
// leading and trailing days of the adjacent months. selected may be nil.
func BuildMonth(reference time.Time, selected *time.Time, now time.Time) Month {
	monthStart := MonthStart(reference)
	year, month, _ := monthStart.Date()
	loc := monthStart.Location()

	// Day arithmetic runs on civil dates; local midnights are not evenly spaced
	lead := int(civilWeekday(year, month, 1))
	days := daysIn(year, month)
	total := (lead + days + DaysPerWeek - 1) / DaysPerWeek * DaysPerWeek

	m := Month{
		Reference: monthStart,
		Title:     Title(monthStart),
	}

	var week Week
	for i := 0; i < total; i++ {
		d := domain.DateIn(year, month, 1-lead+i, loc)
		week[i%DaysPerWeek] = Cell{
			Date:           d,
			IsCurrentMonth: d.Year() == year && d.Month() == month,
			IsSelected:     selected != nil && domain.SameDay(d, *selected),
			IsToday:        domain.SameDay(d, now),
		}
		if i%DaysPerWeek == DaysPerWeek-1 {
			m.Weeks = append(m.Weeks, week)
			week = Week{}
		}
	}

	return m
}

func civilWeekday(year int, month time.Month, day int) time.Weekday {
	return time.Date(year, month, day, 12, 0, 0, 0, time.UTC).Weekday()
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 12, 0, 0, 0, time.UTC).Day()
}

// Cells flattens the grid in display order
func (m Month) Cells() []Cell {
	cells := make([]Cell, 0, len(m.Weeks)*DaysPerWeek)
	for _, w := range m.Weeks {
		cells = append(cells, w[:]...)
	}
	return cells
}

// MonthStart returns the start of the first day of t's month.
func MonthStart(t time.Time) time.Time {
	return domain.DateIn(t.Year(), t.Month(), 1, t.Location())
}

// MonthEnd returns the start of the last day of t's month.
func MonthEnd(t time.Time) time.Time {
	return domain.DateIn(t.Year(), t.Month()+1, 0, t.Location())
}

// NextMonth returns the first day of the month after t. The day of t is
// irrelevant, so Jan 31 moves to Feb 1 rather than overflowing into March.
func NextMonth(t time.Time) time.Time {
	return domain.DateIn(t.Year(), t.Month()+1, 1, t.Location())
}

// PrevMonth returns the first day of the month before t.
func PrevMonth(t time.Time) time.Time {
	return domain.DateIn(t.Year(), t.Month()-1, 1, t.Location())
}

// Title formats the month header, e.g. "October 2026"
func Title(t time.Time) string {
	return t.Format("January 2006")
}

// WeekdayHeaders returns the column headers, starting on Sunday
func WeekdayHeaders() []string {
	return []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
}

// ParseMonth parses "YYYY-MM" in loc and returns the first day of that month.
func ParseMonth(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.Parse(domain.MonthLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return domain.DateIn(t.Year(), t.Month(), 1, loc), nil
}
