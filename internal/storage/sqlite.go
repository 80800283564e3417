package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/tazhate/familycal/internal/domain"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite keeps the event list in a single table, one row per event,
// ordered by position.
type SQLite struct {
	db  *sqlx.DB
	loc *time.Location
}

type eventRow struct {
	ID          string `db:"id"`
	Position    int    `db:"position"`
	Name        string `db:"name"`
	StartTime   string `db:"start_time"`
	EndTime     string `db:"end_time"`
	Description string `db:"description"`
	Category    string `db:"category"`
	Date        string `db:"date"`
}

// New opens (and creates when missing) the database at dbPath. Loaded dates
// are converted to loc when it is non-nil.
func New(dbPath string, loc *time.Location) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sqlx.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &SQLite{db: db, loc: loc}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			name TEXT NOT NULL,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			description TEXT DEFAULT '',
			category TEXT NOT NULL DEFAULT 'work',
			date TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_position ON events(position)`,
		`CREATE INDEX IF NOT EXISTS idx_events_date ON events(date)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}

// Load returns all events in stored order. Any row that does not decode into
// a valid event makes the whole table malformed.
func (s *SQLite) Load() ([]domain.Event, error) {
	var rows []eventRow
	err := s.db.Select(&rows,
		`SELECT id, position, name, start_time, end_time, description, category, date
		 FROM events ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("select events: %w", err)
	}

	events := make([]domain.Event, 0, len(rows))
	for _, r := range rows {
		e, err := r.event(s.loc)
		if err != nil {
			return nil, fmt.Errorf("%w: row %s: %v", domain.ErrMalformedStorage, r.ID, err)
		}
		events = append(events, e)
	}
	return events, nil
}

// Save replaces the stored list in one transaction.
func (s *SQLite) Save(events []domain.Event) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM events`); err != nil {
		return fmt.Errorf("clear events: %w", err)
	}

	for i, e := range events {
		row := rowFromEvent(i, e)
		_, err := tx.NamedExec(
			`INSERT INTO events (id, position, name, start_time, end_time, description, category, date)
			 VALUES (:id, :position, :name, :start_time, :end_time, :description, :category, :date)`,
			row,
		)
		if err != nil {
			return fmt.Errorf("insert event %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func rowFromEvent(position int, e domain.Event) eventRow {
	return eventRow{
		ID:          e.ID,
		Position:    position,
		Name:        e.Name,
		StartTime:   e.StartTime,
		EndTime:     e.EndTime,
		Description: e.Description,
		Category:    string(e.Category),
		Date:        e.Date.Format(time.RFC3339),
	}
}

func (r eventRow) event(loc *time.Location) (domain.Event, error) {
	date, err := time.Parse(time.RFC3339, r.Date)
	if err != nil {
		return domain.Event{}, err
	}
	if loc != nil {
		date = domain.DayOf(date.In(loc))
	}

	e := domain.Event{
		ID:          r.ID,
		Name:        r.Name,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		Description: r.Description,
		Category:    domain.Category(r.Category),
		Date:        date,
	}
	if err := e.Validate(); err != nil {
		return domain.Event{}, err
	}
	return e, nil
}
