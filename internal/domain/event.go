package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Category string

const (
	CategoryWork     Category = "work"
	CategoryPersonal Category = "personal"
	CategoryOthers   Category = "others"
)

// Categories lists every valid category in display order.
var Categories = []Category{CategoryWork, CategoryPersonal, CategoryOthers}

// ParseCategory parses a category name, case-insensitively
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: unknown category %q", ErrInvalidEvent, s)
	}
	return c, nil
}

func (c Category) Valid() bool {
	switch c {
	case CategoryWork, CategoryPersonal, CategoryOthers:
		return true
	}
	return false
}

// Color returns the accent colour used for the category
func (c Category) Color() string {
	switch c {
	case CategoryWork:
		return "blue"
	case CategoryPersonal:
		return "green"
	default:
		return "orange"
	}
}

func (c Category) Emoji() string {
	switch c {
	case CategoryWork:
		return "🔵"
	case CategoryPersonal:
		return "🟢"
	default:
		return "🟠"
	}
}

// Event is a timed item attached to a single calendar day.
type Event struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	StartTime   string    `json:"startTime"` // "HH:MM"
	EndTime     string    `json:"endTime"`   // "HH:MM"
	Description string    `json:"description,omitempty"`
	Category    Category  `json:"category"`
	Date        time.Time `json:"date"`
}

// NewEvent builds a validated event without an ID. The store assigns one on add.
func NewEvent(name, start, end, description string, category Category, date time.Time) (Event, error) {
	e := Event{
		Name:        strings.TrimSpace(name),
		StartTime:   strings.TrimSpace(start),
		EndTime:     strings.TrimSpace(end),
		Description: strings.TrimSpace(description),
		Category:    category,
		Date:        DayOf(date),
	}
	if err := e.Validate(); err != nil {
		return Event{}, err
	}
	return e, nil
}

// NewID returns a fresh event identifier
func NewID() string {
	return uuid.NewString()
}

// Validate checks the event invariants
func (e *Event) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidEvent)
	}
	if !ValidClock(e.StartTime) {
		return fmt.Errorf("%w: bad start time %q", ErrInvalidEvent, e.StartTime)
	}
	if !ValidClock(e.EndTime) {
		return fmt.Errorf("%w: bad end time %q", ErrInvalidEvent, e.EndTime)
	}
	if e.StartTime >= e.EndTime {
		return fmt.Errorf("%w: start %s must be before end %s", ErrInvalidEvent, e.StartTime, e.EndTime)
	}
	if !e.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidEvent, e.Category)
	}
	if e.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidEvent)
	}
	return nil
}

// Overlaps reports whether both events fall on the same day and their
// half-open [start, end) intervals intersect.
func (e *Event) Overlaps(other *Event) bool {
	if !SameDay(e.Date, other.Date) {
		return false
	}
	return e.StartTime < other.EndTime && e.EndTime > other.StartTime
}

// TimeRange returns formatted time range
func (e *Event) TimeRange() string {
	return e.StartTime + "-" + e.EndTime
}

// Start returns the event start as an absolute time on its date
func (e *Event) Start() time.Time {
	return AtClock(e.Date, e.StartTime)
}

// End returns the event end as an absolute time on its date
func (e *Event) End() time.Time {
	return AtClock(e.Date, e.EndTime)
}

// DisplayDate formats the date as "October 19, 2026"
func (e *Event) DisplayDate() string {
	return e.Date.Format("January 2, 2006")
}
