package export_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tazhate/familycal/internal/domain"
	"github.com/tazhate/familycal/internal/export"
)

func twoEvents() []domain.Event {
	return []domain.Event{
		{
			ID: "e1", Name: "Standup", StartTime: "09:00", EndTime: "09:15",
			Description: "daily", Category: domain.CategoryWork,
			Date: time.Date(2026, time.October, 5, 0, 0, 0, 0, time.UTC),
		},
		{
			ID: "e2", Name: "Gym", StartTime: "18:00", EndTime: "19:00",
			Category: domain.CategoryPersonal,
			Date:     time.Date(2026, time.November, 21, 0, 0, 0, 0, time.UTC),
		},
	}
}

func Test_CSV_TwoEventsOnDifferentDays(t *testing.T) {
	got := string(export.CSV(twoEvents()))

	lines := strings.Split(got, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Standup,09:00,09:15,daily,work,October 05, 2026", lines[0])
	assert.Equal(t, "Gym,18:00,19:00,N/A,personal,November 21, 2026", lines[1])
	assert.False(t, strings.HasSuffix(got, "\n"))
}

func Test_CSV_Empty(t *testing.T) {
	assert.Empty(t, export.CSV(nil))
}

func Test_Filenames(t *testing.T) {
	month := time.Date(2026, time.October, 19, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "events-October-2026.csv", export.CSVFilename(month))
	assert.Equal(t, "events-October-2026.ics", export.ICSFilename(month))
}

func Test_ICS_RoundTripsThroughDecoder(t *testing.T) {
	stamp := time.Date(2026, time.October, 19, 7, 0, 0, 0, time.UTC)
	data, err := export.ICS(twoEvents(), stamp)
	require.NoError(t, err)

	cal, err := ical.NewDecoder(bytes.NewReader(data)).Decode()
	require.NoError(t, err)

	events := cal.Events()
	require.Len(t, events, 2)

	first := events[0]
	assert.Equal(t, "e1@familycal", first.Props.Get(ical.PropUID).Value)
	assert.Equal(t, "Standup", first.Props.Get(ical.PropSummary).Value)
	assert.Equal(t, "daily", first.Props.Get(ical.PropDescription).Value)
	assert.Equal(t, "work", first.Props.Get(ical.PropCategories).Value)

	start, err := first.Props.Get(ical.PropDateTimeStart).DateTime(time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.October, 5, 9, 0, 0, 0, time.UTC), start)
	end, err := first.Props.Get(ical.PropDateTimeEnd).DateTime(time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.October, 5, 9, 15, 0, 0, time.UTC), end)

	assert.Nil(t, events[1].Props.Get(ical.PropDescription))
}

func Test_FileExporter(t *testing.T) {
	dir := t.TempDir()
	e := export.NewFileExporter(filepath.Join(dir, "exports"))

	require.NoError(t, e.Export("events-October-2026.csv", []byte("a,b")))
	data, err := os.ReadFile(e.Path("events-October-2026.csv"))
	require.NoError(t, err)
	assert.Equal(t, "a,b", string(data))

	assert.Error(t, e.Export("../escape.csv", []byte("x")))
	assert.Error(t, e.Export("", []byte("x")))
}
