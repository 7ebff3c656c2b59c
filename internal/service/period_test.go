package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/trackmate/internal/repository"
)

// Wednesday afternoon
var refNow = time.Date(2025, time.March, 12, 14, 30, 0, 0, time.Local)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func TestStatsRange(t *testing.T) {
	tests := []struct {
		name       string
		period     string
		date       string
		wantPeriod string
		wantStart  time.Time
		wantEnd    time.Time
	}{
		{"today default", "today", "", "today", day(2025, 3, 12), day(2025, 3, 13)},
		{"week is monday to sunday", "week", "", "week", day(2025, 3, 10), day(2025, 3, 17)},
		{"week anchored on sunday", "week", "2025-03-16", "week", day(2025, 3, 10), day(2025, 3, 17)},
		{"month", "month", "2025-02-14", "month", day(2025, 2, 1), day(2025, 3, 1)},
		{"year", "year", "2024-07-01", "year", day(2024, 1, 1), day(2025, 1, 1)},
		{"unknown period behaves like today", "fortnight", "2025-02-03", "today", day(2025, 2, 3), day(2025, 2, 4)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			period, rng, err := StatsRange(tt.period, tt.date, refNow)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPeriod, period)
			assert.True(t, rng.Start.Equal(tt.wantStart), "start %s", rng.Start)
			assert.True(t, rng.End.Equal(tt.wantEnd), "end %s", rng.End)
		})
	}
}

func TestStatsRangeInvalidDate(t *testing.T) {
	_, _, err := StatsRange("today", "2025-13-01", refNow)
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestMonthRange(t *testing.T) {
	month, rng, err := MonthRange("", refNow)
	require.NoError(t, err)
	assert.Equal(t, "2025-03", month)
	assert.True(t, rng.Start.Equal(day(2025, 3, 1)))

	month, rng, err = MonthRange("2024-02", refNow)
	require.NoError(t, err)
	assert.Equal(t, "2024-02", month)
	assert.True(t, rng.End.Equal(day(2024, 3, 1)))

	_, _, err = MonthRange("2024/02", refNow)
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestReportRangeNamedPeriods(t *testing.T) {
	tests := []struct {
		period    string
		want      string
		series    repository.Granularity
		start     time.Time
		end       time.Time
		prevStart time.Time
	}{
		{"daily", "daily", repository.ByHour, day(2025, 3, 12), day(2025, 3, 13), day(2025, 3, 11)},
		{"", "daily", repository.ByHour, day(2025, 3, 12), day(2025, 3, 13), day(2025, 3, 11)},
		{"week", "week", repository.ByWeekday, day(2025, 3, 10), day(2025, 3, 17), day(2025, 3, 3)},
		{"monthly", "monthly", repository.ByDay, day(2025, 3, 1), day(2025, 4, 1), day(2025, 2, 1)},
		{"yearly", "yearly", repository.ByMonth, day(2025, 1, 1), day(2026, 1, 1), day(2024, 1, 1)},
		{"last7days", "last7days", repository.ByDay, day(2025, 3, 5), day(2025, 3, 13), day(2025, 2, 25)},
		{"last30days", "last30days", repository.ByDay, day(2025, 2, 10), day(2025, 3, 13), day(2025, 1, 10)},
	}

	for _, tt := range tests {
		t.Run(tt.want+"/"+tt.period, func(t *testing.T) {
			w, err := ReportRange(tt.period, "", "", refNow)
			require.NoError(t, err)
			assert.Equal(t, tt.want, w.Period)
			assert.Equal(t, tt.series, w.Series)
			assert.True(t, w.Range.Start.Equal(tt.start), "start %s", w.Range.Start)
			assert.True(t, w.Range.End.Equal(tt.end), "end %s", w.Range.End)

			prev := w.Previous()
			assert.True(t, prev.Range.Start.Equal(tt.prevStart), "previous start %s", prev.Range.Start)
			assert.True(t, prev.Range.End.Equal(w.Range.Start))
		})
	}
}

func TestReportRangeCustom(t *testing.T) {
	w, err := ReportRange("daily", "2025-03-01", "2025-03-05", refNow)
	require.NoError(t, err)
	assert.True(t, w.Custom)
	assert.Equal(t, repository.ByDay, w.Series)
	assert.Equal(t, "2025-03-01", w.StartDate())
	assert.Equal(t, "2025-03-05", w.EndDate())
	assert.True(t, w.Range.End.Equal(day(2025, 3, 6)))

	prev := w.Previous()
	assert.True(t, prev.Range.Start.Equal(day(2025, 2, 24)))
	assert.True(t, prev.Range.End.Equal(day(2025, 3, 1)))

	single, err := ReportRange("", "2025-03-04", "2025-03-04", refNow)
	require.NoError(t, err)
	assert.Equal(t, repository.ByHour, single.Series)
	assert.Equal(t, "15:00", single.Label("15"))

	_, err = ReportRange("", "2025-03-05", "2025-03-01", refNow)
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = ReportRange("", "yesterday", "2025-03-01", refNow)
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestReportWindowDisplayDates(t *testing.T) {
	w, err := ReportRange("monthly", "", "", refNow)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-01", w.StartDate())
	assert.Equal(t, "2025-03-31", w.EndDate())
	assert.Equal(t, "2025-03-05", w.Label("2025-03-05"))
}
