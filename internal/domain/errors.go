package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrOverlap is matched by *OverlapError
	ErrOverlap = errors.New("event times overlap")
	// ErrIndexOutOfRange is matched by *IndexError
	ErrIndexOutOfRange = errors.New("event index out of range")
	// ErrEventNotFound is returned by id-based operations on unknown ids
	ErrEventNotFound = errors.New("event not found")
	// ErrInvalidEvent is returned when an event breaks a field invariant
	ErrInvalidEvent = errors.New("invalid event")
	// ErrMalformedStorage is returned by persistence adapters on unreadable data
	ErrMalformedStorage = errors.New("malformed event storage")
)

// OverlapError carries the stored event a rejected event collides with.
type OverlapError struct {
	Event    Event
	Conflict Event
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("%s %s on %s overlaps %q (%s)",
		e.Event.Name, e.Event.TimeRange(), e.Event.Date.Format(DateLayout),
		e.Conflict.Name, e.Conflict.TimeRange())
}

func (e *OverlapError) Is(target error) bool {
	return target == ErrOverlap
}

type IndexError struct {
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("event index %d out of range [0, %d)", e.Index, e.Len)
}

func (e *IndexError) Is(target error) bool {
	return target == ErrIndexOutOfRange
}
