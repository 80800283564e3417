package domain_test

import (
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tazhate/familycal/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func Test_NewEvent_Validation(t *testing.T) {
	date := day(2026, time.October, 19)

	tests := []struct {
		name     string
		evName   string
		start    string
		end      string
		category domain.Category
		wantErr  bool
	}{
		{name: "valid", evName: "Standup", start: "09:00", end: "09:15", category: domain.CategoryWork},
		{name: "empty_name", evName: "   ", start: "09:00", end: "10:00", category: domain.CategoryWork, wantErr: true},
		{name: "start_equals_end", evName: "x", start: "10:00", end: "10:00", category: domain.CategoryWork, wantErr: true},
		{name: "start_after_end", evName: "x", start: "11:00", end: "10:00", category: domain.CategoryWork, wantErr: true},
		{name: "unpadded_time", evName: "x", start: "9:00", end: "10:00", category: domain.CategoryWork, wantErr: true},
		{name: "hour_out_of_range", evName: "x", start: "09:00", end: "24:30", category: domain.CategoryWork, wantErr: true},
		{name: "unknown_category", evName: "x", start: "09:00", end: "10:00", category: "leisure", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := domain.NewEvent(tt.evName, tt.start, tt.end, "", tt.category, date)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidEvent)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func Test_NewEvent_TruncatesDateToDay(t *testing.T) {
	e, err := domain.NewEvent("Lunch", "12:00", "13:00", "", domain.CategoryPersonal,
		time.Date(2026, time.October, 19, 15, 42, 7, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, day(2026, time.October, 19), e.Date)
	assert.Equal(t, time.Date(2026, time.October, 19, 12, 0, 0, 0, time.UTC), e.Start())
	assert.Equal(t, time.Date(2026, time.October, 19, 13, 0, 0, 0, time.UTC), e.End())
}

func Test_Event_Overlaps(t *testing.T) {
	d := day(2026, time.March, 3)
	base := domain.Event{Name: "a", StartTime: "09:00", EndTime: "10:00", Category: domain.CategoryWork, Date: d}

	tests := []struct {
		name  string
		start string
		end   string
		date  time.Time
		want  bool
	}{
		{name: "overlaps_end", start: "09:30", end: "10:30", date: d, want: true},
		{name: "overlaps_start", start: "08:30", end: "09:30", date: d, want: true},
		{name: "contains", start: "08:00", end: "11:00", date: d, want: true},
		{name: "contained", start: "09:10", end: "09:20", date: d, want: true},
		{name: "identical", start: "09:00", end: "10:00", date: d, want: true},
		{name: "touches_after", start: "10:00", end: "11:00", date: d, want: false},
		{name: "touches_before", start: "08:00", end: "09:00", date: d, want: false},
		{name: "other_day", start: "09:00", end: "10:00", date: d.AddDate(0, 0, 1), want: false},
		{name: "same_day_other_clock", start: "09:30", end: "09:45", date: d.Add(5 * time.Hour), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other := domain.Event{Name: "b", StartTime: tt.start, EndTime: tt.end, Category: domain.CategoryWork, Date: tt.date}
			assert.Equal(t, tt.want, base.Overlaps(&other))
			assert.Equal(t, tt.want, other.Overlaps(&base))
		})
	}
}

func Test_ParseCategory(t *testing.T) {
	c, err := domain.ParseCategory(" Personal ")
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryPersonal, c)

	_, err = domain.ParseCategory("holiday")
	assert.ErrorIs(t, err, domain.ErrInvalidEvent)
}

func Test_Errors_MatchSentinels(t *testing.T) {
	var err error = &domain.IndexError{Index: 3, Len: 2}
	assert.True(t, errors.Is(err, domain.ErrIndexOutOfRange))
	assert.False(t, errors.Is(err, domain.ErrOverlap))

	err = &domain.OverlapError{}
	assert.True(t, errors.Is(err, domain.ErrOverlap))
}

func Test_SameDay_IgnoresClock(t *testing.T) {
	a := time.Date(2026, time.January, 31, 0, 0, 0, 0, time.UTC)
	b := time.Date(2026, time.January, 31, 23, 59, 0, 0, time.UTC)
	assert.True(t, domain.SameDay(a, b))
	assert.False(t, domain.SameDay(a, b.Add(time.Minute)))
}

func Test_ParseDate_DayWithoutMidnight(t *testing.T) {
	// Santiago moves clocks from 00:00 to 01:00 on 2026-09-06
	loc, err := time.LoadLocation("America/Santiago")
	require.NoError(t, err)

	date, err := domain.ParseDate("2026-09-06", loc)
	require.NoError(t, err)
	assert.Equal(t, time.September, date.Month())
	assert.Equal(t, 6, date.Day())
	assert.Equal(t, 1, date.Hour())

	e, err := domain.NewEvent("Asado", "13:00", "16:00", "", domain.CategoryPersonal, date)
	require.NoError(t, err)
	assert.Equal(t, 6, e.Date.Day())
	assert.Equal(t, "September 6, 2026", e.DisplayDate())
	assert.Equal(t, time.Date(2026, time.September, 6, 13, 0, 0, 0, loc), e.Start())

	prev, err := domain.NewEvent("Asado", "13:00", "16:00", "", domain.CategoryPersonal,
		time.Date(2026, time.September, 5, 12, 0, 0, 0, loc))
	require.NoError(t, err)
	assert.False(t, e.Overlaps(&prev), "same hours on the previous day")
	assert.Equal(t, 5, prev.Date.Day())
}

func Test_DateIn(t *testing.T) {
	loc, err := time.LoadLocation("America/Santiago")
	require.NoError(t, err)

	// Regular day: plain midnight
	assert.Equal(t, time.Date(2026, time.September, 5, 0, 0, 0, 0, loc), domain.DateIn(2026, time.September, 5, loc))
	// Day overflow is normalised like time.Date
	assert.Equal(t, domain.DateIn(2026, time.October, 1, loc), domain.DateIn(2026, time.September, 31, loc))
	// DayOf of any instant on the skipped-midnight day stays on that day
	got := domain.DayOf(time.Date(2026, time.September, 6, 18, 30, 0, 0, loc))
	assert.Equal(t, 6, got.Day())
	assert.True(t, domain.SameDay(got, time.Date(2026, time.September, 6, 23, 0, 0, 0, loc)))
}
