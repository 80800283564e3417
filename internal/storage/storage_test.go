package storage_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tazhate/familycal/internal/domain"
	"github.com/tazhate/familycal/internal/storage"
)

var sampleZone = time.FixedZone("UTC+3", 3*60*60)

func sampleEvents(t *testing.T) []domain.Event {
	t.Helper()
	loc := sampleZone
	return []domain.Event{
		{
			ID: "b2a7c3d0-0000-4000-8000-000000000001", Name: "Standup", StartTime: "09:00", EndTime: "09:15",
			Description: "daily sync", Category: domain.CategoryWork,
			Date: time.Date(2026, time.October, 19, 0, 0, 0, 0, loc),
		},
		{
			ID: "b2a7c3d0-0000-4000-8000-000000000002", Name: "Gym", StartTime: "18:00", EndTime: "19:30",
			Category: domain.CategoryPersonal,
			Date:     time.Date(2026, time.October, 20, 0, 0, 0, 0, loc),
		},
		{
			ID: "b2a7c3d0-0000-4000-8000-000000000003", Name: "Dentist, downtown", StartTime: "07:30", EndTime: "08:00",
			Category: domain.CategoryOthers,
			Date:     time.Date(2026, time.February, 28, 0, 0, 0, 0, loc),
		},
	}
}

func assertSameEvents(t *testing.T, want, got []domain.Event) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Name, got[i].Name)
		assert.Equal(t, want[i].StartTime, got[i].StartTime)
		assert.Equal(t, want[i].EndTime, got[i].EndTime)
		assert.Equal(t, want[i].Description, got[i].Description)
		assert.Equal(t, want[i].Category, got[i].Category)
		assert.True(t, want[i].Date.Equal(got[i].Date), "date %s != %s", want[i].Date, got[i].Date)
		assert.True(t, domain.SameDay(want[i].Date, got[i].Date))
	}
}

func Test_JSONFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "events.json")
	f := storage.NewJSONFile(path, nil)
	want := sampleEvents(t)

	require.NoError(t, f.Save(want))
	got, err := f.Load()
	require.NoError(t, err)
	assertSameEvents(t, want, got)
}

func Test_JSONFile_MissingFileIsEmpty(t *testing.T) {
	f := storage.NewJSONFile(filepath.Join(t.TempDir(), "none.json"), nil)

	got, err := f.Load()
	assert.NoError(t, err)
	assert.Empty(t, got)
}

func Test_JSONFile_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "not_json", content: "{{{"},
		{name: "wrong_shape", content: `{"name":"x"}`},
		{name: "bad_date", content: `[{"name":"x","startTime":"09:00","endTime":"10:00","category":"work","date":"yesterday"}]`},
		{name: "bad_category", content: `[{"name":"x","startTime":"09:00","endTime":"10:00","category":"fun","date":"2026-10-19T00:00:00Z"}]`},
		{name: "inverted_times", content: `[{"name":"x","startTime":"11:00","endTime":"10:00","category":"work","date":"2026-10-19T00:00:00Z"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "events.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			got, err := storage.NewJSONFile(path, nil).Load()
			assert.ErrorIs(t, err, domain.ErrMalformedStorage)
			assert.Empty(t, got)
		})
	}
}

func Test_JSONFile_ReadsBrowserExport(t *testing.T) {
	// Shape written by JSON.stringify in the browser widget: no ids,
	// milliseconds in the date, description may be missing.
	content := `[
		{"name":"Standup","startTime":"09:00","endTime":"09:30","description":"","category":"work","date":"2026-10-19T00:00:00.000Z"},
		{"name":"Call mom","startTime":"20:00","endTime":"20:30","category":"personal","date":"2026-10-21T00:00:00.000Z"}
	]`
	path := filepath.Join(t.TempDir(), "events.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	got, err := storage.NewJSONFile(path, time.UTC).Load()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Empty(t, got[0].ID)
	assert.Equal(t, time.Date(2026, time.October, 21, 0, 0, 0, 0, time.UTC), got[1].Date)
	assert.Equal(t, domain.CategoryPersonal, got[1].Category)
}

func Test_SQLite_RoundTrip(t *testing.T) {
	db, err := storage.New(filepath.Join(t.TempDir(), "data", "familycal.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	empty, err := db.Load()
	require.NoError(t, err)
	assert.Empty(t, empty)

	want := sampleEvents(t)
	require.NoError(t, db.Save(want))
	got, err := db.Load()
	require.NoError(t, err)
	assertSameEvents(t, want, got)

	// Save replaces the previous list and keeps the given order.
	reordered := []domain.Event{want[2], want[0]}
	require.NoError(t, db.Save(reordered))
	got, err = db.Load()
	require.NoError(t, err)
	assertSameEvents(t, reordered, got)
}

func Test_SQLite_ReopenKeepsEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "familycal.db")

	db, err := storage.New(path, nil)
	require.NoError(t, err)
	require.NoError(t, db.Save(sampleEvents(t)))
	require.NoError(t, db.Close())

	db, err = storage.New(path, sampleZone)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	got, err := db.Load()
	require.NoError(t, err)
	assertSameEvents(t, sampleEvents(t), got)
	assert.Equal(t, sampleZone, got[0].Date.Location())
}

func Test_SQLite_KeepsDayWhenMidnightIsSkipped(t *testing.T) {
	loc, err := time.LoadLocation("America/Santiago")
	require.NoError(t, err)
	date, err := domain.ParseDate("2026-09-06", loc)
	require.NoError(t, err)
	e, err := domain.NewEvent("Asado", "13:00", "16:00", "", domain.CategoryPersonal, date)
	require.NoError(t, err)
	e.ID = "b2a7c3d0-0000-4000-8000-000000000010"

	db, err := storage.New(filepath.Join(t.TempDir(), "familycal.db"), loc)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Save([]domain.Event{e}))

	got, err := db.Load()
	require.NoError(t, err)
	require.Len(t, got, 1)
	y, m, d := got[0].Date.Date()
	assert.Equal(t, []int{2026, 9, 6}, []int{y, int(m), d})
	assert.True(t, e.Date.Equal(got[0].Date))
}
