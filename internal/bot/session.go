package bot

import (
	"sync"
	"time"

	"github.com/tazhate/familycal/internal/calendar"
	"github.com/tazhate/familycal/internal/domain"
)

// session is the calendar view state of one chat.
type session struct {
	month    time.Time // first day of the displayed month
	selected time.Time // selected day, local midnight
}

type sessions struct {
	mu sync.Mutex
	m  map[int64]session
}

func newSessions() *sessions {
	return &sessions{m: make(map[int64]session)}
}

// get returns the chat's view, starting on today's month and day.
func (s *sessions) get(chatID int64, now time.Time) session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.m[chatID]; ok {
		return sess
	}
	return session{month: calendar.MonthStart(now), selected: domain.DayOf(now)}
}

func (s *sessions) set(chatID int64, sess session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[chatID] = sess
}

// selectDay moves the selection and shows the month containing it.
func (s *sessions) selectDay(chatID int64, day time.Time) session {
	sess := session{month: calendar.MonthStart(day), selected: domain.DayOf(day)}
	s.set(chatID, sess)
	return sess
}
