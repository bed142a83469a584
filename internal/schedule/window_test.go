package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamecal/internal/model"
)

func dates(ss ...string) []model.Date {
	out := make([]model.Date, 0, len(ss))
	for _, s := range ss {
		out = append(out, model.MustParseDate(s))
	}
	return out
}

func TestWindow_FridaysThroughEndOfNextMonth(t *testing.T) {
	cfg := WindowConfig{PlayWeekdays: []time.Weekday{time.Friday}, WindowMonths: 1}
	got, err := Window(cfg, model.MustParseDate("2025-01-15"))
	require.NoError(t, err)

	assert.Equal(t, dates(
		"2025-01-17", "2025-01-24", "2025-01-31",
		"2025-02-07", "2025-02-14", "2025-02-21", "2025-02-28",
	), got)
	for _, d := range got {
		assert.Equal(t, time.Friday, d.Weekday())
	}
}

func TestWindow_IncludesReferenceDayWhenItQualifies(t *testing.T) {
	cfg := WindowConfig{PlayWeekdays: []time.Weekday{time.Friday}, WindowMonths: 0}
	got, err := Window(cfg, model.MustParseDate("2025-01-17"))
	require.NoError(t, err)

	assert.Equal(t, dates("2025-01-17", "2025-01-24", "2025-01-31"), got)
}

func TestWindow_SpecialDates(t *testing.T) {
	cfg := WindowConfig{
		PlayWeekdays: []time.Weekday{time.Friday},
		SpecialDates: dates(
			"2025-01-20", // Monday inside the window
			"2025-01-10", // before reference
			"2025-03-01", // past the window end
			"2025-01-17", // already a Friday
		),
		WindowMonths: 1,
	}
	got, err := Window(cfg, model.MustParseDate("2025-01-15"))
	require.NoError(t, err)

	assert.Equal(t, dates(
		"2025-01-17", "2025-01-20", "2025-01-24", "2025-01-31",
		"2025-02-07", "2025-02-14", "2025-02-21", "2025-02-28",
	), got)
}

func TestWindow_OnlySpecialDates(t *testing.T) {
	cfg := WindowConfig{SpecialDates: dates("2025-02-02", "2025-01-16"), WindowMonths: 1}
	got, err := Window(cfg, model.MustParseDate("2025-01-15"))
	require.NoError(t, err)

	assert.Equal(t, dates("2025-01-16", "2025-02-02"), got)
}

func TestWindow_EmptyRules(t *testing.T) {
	got, err := Window(WindowConfig{WindowMonths: 3}, model.MustParseDate("2025-01-15"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWindow_CrossesYearBoundary(t *testing.T) {
	cfg := WindowConfig{PlayWeekdays: []time.Weekday{time.Saturday, time.Saturday}, WindowMonths: 1}
	got, err := Window(cfg, model.MustParseDate("2025-12-28"))
	require.NoError(t, err)

	require.NotEmpty(t, got)
	assert.Equal(t, model.MustParseDate("2026-01-03"), got[0])
	assert.Equal(t, model.MustParseDate("2026-01-31"), got[len(got)-1])
	assert.Len(t, got, 5)
}

func TestWindow_InvalidInput(t *testing.T) {
	ref := model.MustParseDate("2025-01-15")

	_, err := Window(WindowConfig{WindowMonths: -1}, ref)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = Window(WindowConfig{PlayWeekdays: []time.Weekday{7}, WindowMonths: 1}, ref)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = Window(WindowConfig{WindowMonths: 1}, model.Date{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCandidateDates_Restartable(t *testing.T) {
	cfg := WindowConfig{
		PlayWeekdays: []time.Weekday{time.Tuesday, time.Thursday},
		SpecialDates: dates("2025-01-18"),
		WindowMonths: 2,
	}
	ref := model.MustParseDate("2025-01-15")
	seq, err := CandidateDates(cfg, ref)
	require.NoError(t, err)

	var first, second []model.Date
	for d := range seq {
		first = append(first, d)
	}
	for d := range seq {
		second = append(second, d)
	}
	assert.Equal(t, first, second)

	end := WindowEnd(ref, cfg.WindowMonths)
	for i, d := range first {
		assert.False(t, d.Before(ref))
		assert.False(t, d.After(end))
		assert.True(t, IsPlayDate(d, cfg.PlayWeekdays, cfg.SpecialDates))
		if i > 0 {
			assert.True(t, first[i-1].Before(d), "dates must be strictly ascending")
		}
	}
}

func TestCandidateDates_EarlyBreak(t *testing.T) {
	cfg := WindowConfig{PlayWeekdays: []time.Weekday{time.Monday}, WindowMonths: 6}
	seq, err := CandidateDates(cfg, model.MustParseDate("2025-01-15"))
	require.NoError(t, err)

	var got []model.Date
	for d := range seq {
		got = append(got, d)
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, dates("2025-01-20", "2025-01-27"), got)
}

func TestWindowEnd(t *testing.T) {
	assert.Equal(t, model.MustParseDate("2025-02-28"), WindowEnd(model.MustParseDate("2025-01-31"), 1))
	assert.Equal(t, model.MustParseDate("2024-02-29"), WindowEnd(model.MustParseDate("2024-01-01"), 1))
	assert.Equal(t, model.MustParseDate("2026-03-31"), WindowEnd(model.MustParseDate("2025-11-05"), 4))
}
