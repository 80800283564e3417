package scheduler

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/tazhate/familycal/config"
	"github.com/tazhate/familycal/internal/domain"
	"github.com/tazhate/familycal/internal/service"
)

type MessageSender interface {
	SendMessage(chatID int64, text string) error
}

type Scheduler struct {
	cron   *cron.Cron
	cfg    *config.Config
	store  *service.EventStore
	sender MessageSender
	log    zerolog.Logger
	now    func() time.Time

	mu       sync.Mutex
	notified map[string]time.Time // event key -> start it was announced for
}

func New(cfg *config.Config, store *service.EventStore, log zerolog.Logger) *Scheduler {
	c := cron.New(
		cron.WithLocation(cfg.Timezone),
		cron.WithChain(cron.Recover(cronLogger{log})),
	)

	return &Scheduler{
		cron:     c,
		cfg:      cfg,
		store:    store,
		log:      log,
		now:      time.Now,
		notified: make(map[string]time.Time),
	}
}

func (s *Scheduler) SetSender(sender MessageSender) {
	s.sender = sender
}

func (s *Scheduler) Start(ctx context.Context) error {
	// Утренняя сводка
	spec, err := dailySpec(s.cfg.MorningTime)
	if err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(spec, s.morningAgenda); err != nil {
		return fmt.Errorf("add morning agenda: %w", err)
	}

	// Напоминания о начале событий каждую минуту
	if s.cfg.RemindBefore > 0 {
		if _, err := s.cron.AddFunc("* * * * *", s.checkUpcoming); err != nil {
			return fmt.Errorf("add upcoming check: %w", err)
		}
	}

	s.cron.Start()
	s.log.Info().
		Str("tz", s.cfg.Timezone.String()).
		Str("morning", s.cfg.MorningTime).
		Int("remind_before", s.cfg.RemindBefore).
		Msg("Scheduler started")

	<-ctx.Done()
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// dailySpec turns "HH:MM" into a cron spec firing once a day at that time.
func dailySpec(clock string) (string, error) {
	t, err := time.Parse(domain.ClockLayout, clock)
	if err != nil {
		return "", fmt.Errorf("parse daily time %q: %w", clock, err)
	}
	return fmt.Sprintf("%d %d * * *", t.Minute(), t.Hour()), nil
}

func (s *Scheduler) morningAgenda() {
	if s.sender == nil {
		return
	}

	today := s.now().In(s.cfg.Timezone)
	text := formatAgenda(today, s.store.EventsForDay(today))

	if err := s.sender.SendMessage(s.cfg.OwnerChatID, text); err != nil {
		s.log.Error().Err(err).Int64("chat_id", s.cfg.OwnerChatID).Msg("Failed to send morning agenda")
	}
}

func formatAgenda(day time.Time, events []domain.Event) string {
	var sb strings.Builder
	sb.WriteString("☀️ <b>Доброе утро!</b>\n\n")

	if len(events) == 0 {
		sb.WriteString("На сегодня событий нет. Свободный день!")
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("<b>Сегодня, %s, событий: %d</b>\n\n", day.Format("02.01.2006"), len(events)))
	for _, e := range events {
		sb.WriteString(fmt.Sprintf("%s <b>%s</b> %s\n", e.Category.Emoji(), e.TimeRange(), html.EscapeString(e.Name)))
	}
	sb.WriteString("\n/today — открыть день")
	return sb.String()
}

// checkUpcoming announces events that start within RemindBefore minutes.
// Each event start is announced once; a rescheduled event is announced again.
func (s *Scheduler) checkUpcoming() {
	if s.sender == nil {
		return
	}

	now := s.now().In(s.cfg.Timezone)
	window := time.Duration(s.cfg.RemindBefore) * time.Minute

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, start := range s.notified {
		if start.Before(now.Add(-time.Hour)) {
			delete(s.notified, key)
		}
	}

	for _, e := range s.store.EventsInRange(now, now.Add(window)) {
		start := e.Start()
		if !start.After(now) || start.After(now.Add(window)) {
			continue
		}

		key := e.ID + "|" + start.Format(time.RFC3339)
		if _, done := s.notified[key]; done {
			continue
		}

		minutes := int(start.Sub(now).Round(time.Minute) / time.Minute)
		text := fmt.Sprintf("⏰ <b>Через %d мин</b>\n\n%s <b>%s</b> %s",
			minutes, e.Category.Emoji(), e.TimeRange(), html.EscapeString(e.Name))
		if e.Description != "" {
			text += "\n<i>" + html.EscapeString(e.Description) + "</i>"
		}

		if err := s.sender.SendMessage(s.cfg.OwnerChatID, text); err != nil {
			s.log.Error().Err(err).Str("id", e.ID).Msg("Failed to send event reminder")
			continue
		}
		s.notified[key] = start
	}
}

// cronLogger adapts zerolog to cron.Logger
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
