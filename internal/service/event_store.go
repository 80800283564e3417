package service

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tazhate/familycal/internal/domain"
)

// Persistence loads and saves the full event list.
type Persistence interface {
	Load() ([]domain.Event, error)
	Save(events []domain.Event) error
}

// EventStore owns the canonical event list and keeps same-day events free of
// overlapping time ranges.
type EventStore struct {
	mu          sync.Mutex
	events      []domain.Event
	persistence Persistence
	log         zerolog.Logger
}

// NewEventStore loads the stored events once. Unreadable storage leaves the
// store empty.
func NewEventStore(p Persistence, log zerolog.Logger) *EventStore {
	s := &EventStore{persistence: p, log: log}

	events, err := p.Load()
	if err != nil {
		if errors.Is(err, domain.ErrMalformedStorage) {
			log.Warn().Err(err).Msg("Stored events are malformed, starting with an empty calendar")
		} else {
			log.Error().Err(err).Msg("Failed to load events, starting with an empty calendar")
		}
		events = nil
	}

	assigned := 0
	for _, e := range events {
		if e.ID == "" {
			e.ID = domain.NewID()
			assigned++
		}
		s.events = append(s.events, e)
	}

	// Keep ids stable across restarts
	if assigned > 0 {
		log.Info().Int("count", assigned).Msg("Assigned ids to stored events")
		s.save()
	}

	log.Debug().Int("count", len(s.events)).Msg("Event store loaded")
	return s
}

// Add validates e and appends it unless it overlaps a same-day event.
func (s *EventStore) Add(e domain.Event) (domain.Event, error) {
	if err := e.Validate(); err != nil {
		return domain.Event{}, err
	}
	e.Date = domain.DayOf(e.Date)
	if e.ID == "" {
		e.ID = domain.NewID()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(e.ID) >= 0 {
		return domain.Event{}, fmt.Errorf("%w: duplicate id %s", domain.ErrInvalidEvent, e.ID)
	}
	if err := s.checkOverlap(e, -1); err != nil {
		return domain.Event{}, err
	}

	s.events = append(s.events, e)
	s.save()
	return e, nil
}

// UpdateAt replaces the event at a store position.
func (s *EventStore) UpdateAt(index int, e domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.replace(index, e)
	return err
}

// DeleteAt removes the event at a store position; later events shift down.
func (s *EventStore) DeleteAt(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.remove(index)
}

// Update replaces the event with the given id, keeping its id and position.
func (s *EventStore) Update(id string, e domain.Event) (domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return domain.Event{}, fmt.Errorf("update %s: %w", id, domain.ErrEventNotFound)
	}
	return s.replace(i, e)
}

// Delete removes the event with the given id.
func (s *EventStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("delete %s: %w", id, domain.ErrEventNotFound)
	}
	return s.remove(i)
}

// UpdateForDay replaces the index-th event of EventsForDay(date).
func (s *EventStore) UpdateForDay(date time.Time, index int, e domain.Event) (domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.dayPosition(date, index)
	if err != nil {
		return domain.Event{}, err
	}
	return s.replace(i, e)
}

// DeleteForDay removes the index-th event of EventsForDay(date).
func (s *EventStore) DeleteForDay(date time.Time, index int) (domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.dayPosition(date, index)
	if err != nil {
		return domain.Event{}, err
	}
	removed := s.events[i]
	return removed, s.remove(i)
}

// EventsForDay returns the events of a calendar day in store order.
func (s *EventStore) EventsForDay(date time.Time) []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Event
	for _, e := range s.events {
		if domain.SameDay(e.Date, date) {
			out = append(out, e)
		}
	}
	return out
}

// EventsInRange returns events dated within [from, to] by calendar day.
func (s *EventStore) EventsInRange(from, to time.Time) []domain.Event {
	from, to = domain.DayOf(from), domain.DayOf(to)

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Event
	for _, e := range s.events {
		d := domain.DayOf(e.Date.In(from.Location()))
		if !d.Before(from) && !d.After(to) {
			out = append(out, e)
		}
	}
	return out
}

func (s *EventStore) Get(id string) (domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return domain.Event{}, fmt.Errorf("get %s: %w", id, domain.ErrEventNotFound)
	}
	return s.events[i], nil
}

// Events returns a copy of all events in store order.
func (s *EventStore) Events() []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Event, len(s.events))
	copy(out, s.events)
	return out
}

func (s *EventStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// replace must be called with mu held.
func (s *EventStore) replace(index int, e domain.Event) (domain.Event, error) {
	if index < 0 || index >= len(s.events) {
		return domain.Event{}, &domain.IndexError{Index: index, Len: len(s.events)}
	}
	if err := e.Validate(); err != nil {
		return domain.Event{}, err
	}
	e.Date = domain.DayOf(e.Date)
	e.ID = s.events[index].ID

	if err := s.checkOverlap(e, index); err != nil {
		return domain.Event{}, err
	}

	s.events[index] = e
	s.save()
	return e, nil
}

// remove must be called with mu held.
func (s *EventStore) remove(index int) error {
	if index < 0 || index >= len(s.events) {
		return &domain.IndexError{Index: index, Len: len(s.events)}
	}
	s.events = append(s.events[:index], s.events[index+1:]...)
	s.save()
	return nil
}

// checkOverlap compares e with every stored event except the one at skip.
func (s *EventStore) checkOverlap(e domain.Event, skip int) error {
	for i := range s.events {
		if i == skip {
			continue
		}
		if e.Overlaps(&s.events[i]) {
			return &domain.OverlapError{Event: e, Conflict: s.events[i]}
		}
	}
	return nil
}

// dayPosition maps an index within the day view to a store position.
func (s *EventStore) dayPosition(date time.Time, index int) (int, error) {
	n := 0
	for i, e := range s.events {
		if !domain.SameDay(e.Date, date) {
			continue
		}
		if n == index {
			return i, nil
		}
		n++
	}
	return -1, &domain.IndexError{Index: index, Len: n}
}

func (s *EventStore) indexOf(id string) int {
	for i := range s.events {
		if s.events[i].ID == id {
			return i
		}
	}
	return -1
}

// save hands a snapshot to persistence. Failures are logged only.
func (s *EventStore) save() {
	snapshot := make([]domain.Event, len(s.events))
	copy(snapshot, s.events)

	if err := s.persistence.Save(snapshot); err != nil {
		s.log.Error().Err(err).Int("count", len(snapshot)).Msg("Failed to save events")
	}
}
