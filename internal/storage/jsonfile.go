package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/tazhate/familycal/internal/atomicfile"
	"github.com/tazhate/familycal/internal/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONFile stores the event list as a JSON array with one object per event.
// The field names match the browser widget's localStorage format, so an
// exported "events" value can be dropped in as-is.
type JSONFile struct {
	path string
	loc  *time.Location
}

func NewJSONFile(path string, loc *time.Location) *JSONFile {
	return &JSONFile{path: path, loc: loc}
}

// Load returns the stored events. A missing file is an empty calendar.
func (f *JSONFile) Load() ([]domain.Event, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read events file: %w", err)
	}

	var events []domain.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedStorage, err)
	}

	for i := range events {
		if f.loc != nil {
			events[i].Date = domain.DayOf(events[i].Date.In(f.loc))
		}
		if err := events[i].Validate(); err != nil {
			return nil, fmt.Errorf("%w: event %d: %v", domain.ErrMalformedStorage, i, err)
		}
	}
	return events, nil
}

// Save writes atomically via a temp file + rename.
func (f *JSONFile) Save(events []domain.Event) error {
	if events == nil {
		events = []domain.Event{}
	}

	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal events: %w", err)
	}

	return atomicfile.WriteFile(f.path, data, 0o644)
}
