package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/trackmate/internal/infrastructure/database"
	"github.com/menta2k/trackmate/internal/logging"
	"github.com/menta2k/trackmate/internal/model"
	"github.com/menta2k/trackmate/internal/repository"
	"github.com/menta2k/trackmate/pkg/types"
)

func newTestRepo(t *testing.T) repository.ActivityRepo {
	t.Helper()
	db, err := database.Open(database.Config{
		Driver:       "sqlite",
		DSN:          ":memory:",
		AutoMigrate:  true,
		MaxOpenConns: 1,
	}, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return repository.NewActivityRepo(db)
}

func newTestStats(t *testing.T, repo repository.ActivityRepo) *StatsService {
	t.Helper()
	s := NewStatsService(repo, StatsConfig{
		Categories:          types.DefaultCategoryTable(),
		SecondsPerDetection: 3,
		RecentLimit:         20,
	})
	s.now = func() time.Time { return refNow }
	return s
}

func seed(t *testing.T, repo repository.ActivityRepo, userID uint64, c types.Category, ts time.Time, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, repo.Create(context.Background(), &model.Detection{
			UserID:       userID,
			Category:     c,
			ActivityName: types.DefaultCategoryTable().Name(c),
			Description:  "seeded",
			Confidence:   types.DefaultConfidence,
			Method:       "ollama",
			DetectedAt:   ts.Add(time.Duration(i) * time.Second),
		}))
	}
}

func TestStatsToday(t *testing.T) {
	repo := newTestRepo(t)
	s := newTestStats(t, repo)

	seed(t, repo, 1, types.CategoryWorking, day(2025, 3, 12).Add(9*time.Hour), 6)
	seed(t, repo, 1, types.CategoryPhone, day(2025, 3, 12).Add(10*time.Hour), 3)
	seed(t, repo, 1, types.CategoryEating, day(2025, 3, 12).Add(12*time.Hour), 1)
	seed(t, repo, 1, types.CategoryWorking, day(2025, 3, 11).Add(9*time.Hour), 4) // yesterday
	seed(t, repo, 2, types.CategoryWorking, day(2025, 3, 12).Add(9*time.Hour), 4) // other user

	stats, err := s.Stats(context.Background(), 1, "today", "")
	require.NoError(t, err)

	assert.Equal(t, "today", stats.Period)
	assert.Equal(t, "2025-03-12 00:00:00", stats.StartDate)
	assert.Equal(t, "2025-03-12 23:59:59", stats.EndDate)
	assert.Equal(t, int64(10), stats.TotalDetections)
	assert.Equal(t, 60, stats.ProductivityScore)

	var sum int64
	for _, c := range stats.Summary {
		sum += c.Count
	}
	assert.Equal(t, stats.TotalDetections, sum)

	require.Len(t, stats.Summary, 3)
	phone := stats.Summary[0]
	assert.Equal(t, types.CategoryPhone, phone.Category)
	assert.Equal(t, "Phone Usage", phone.Name)
	assert.Equal(t, int64(9), phone.TimeSeconds)
	assert.Equal(t, "0h 0m", phone.TimeFormatted)
	assert.Equal(t, "2025-03-12 10:00:00", phone.FirstDetection)
	assert.Equal(t, "2025-03-12 10:00:02", phone.LastDetection)

	assert.Len(t, stats.RecentActivities, 10)
	assert.Equal(t, "Eating", stats.RecentActivities[0].ActivityType)

	require.Len(t, stats.HourlyBreakdown, 3)
	assert.Equal(t, HourlyCount{Hour: 9, Category: types.CategoryWorking, Count: 6}, stats.HourlyBreakdown[0])
	require.Len(t, stats.DailyBreakdown, 3)
	assert.Equal(t, "2025-03-12", stats.DailyBreakdown[0].Date)

	assert.Equal(t, "Drinking", stats.CategoryNames[types.CategoryDrinking])
}

func TestStatsEmptyPeriod(t *testing.T) {
	s := newTestStats(t, newTestRepo(t))

	stats, err := s.Stats(context.Background(), 1, "week", "")
	require.NoError(t, err)
	assert.Zero(t, stats.TotalDetections)
	assert.Zero(t, stats.ProductivityScore)
	assert.Empty(t, stats.Summary)
	assert.NotNil(t, stats.RecentActivities)
}

func TestStatsRecentLimit(t *testing.T) {
	repo := newTestRepo(t)
	s := newTestStats(t, repo)
	seed(t, repo, 1, types.CategoryWorking, day(2025, 3, 12).Add(8*time.Hour), 25)

	stats, err := s.Stats(context.Background(), 1, "today", "")
	require.NoError(t, err)
	assert.Len(t, stats.RecentActivities, 20)
	assert.Equal(t, int64(25), stats.TotalDetections)
}

func TestStatsInvalidDate(t *testing.T) {
	s := newTestStats(t, newTestRepo(t))
	_, err := s.Stats(context.Background(), 1, "today", "12/03/2025")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestLatest(t *testing.T) {
	repo := newTestRepo(t)
	s := newTestStats(t, repo)

	latest, err := s.Latest(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, latest)

	seed(t, repo, 1, types.CategoryDrinking, refNow.Add(-5*time.Minute), 1)

	latest, err = s.Latest(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, types.CategoryDrinking, latest.Category)
	assert.Equal(t, "Drinking", latest.ActivityType)
	assert.Equal(t, "5 minutes ago", latest.TimeAgo)
}

func TestCalendar(t *testing.T) {
	repo := newTestRepo(t)
	s := newTestStats(t, repo)

	seed(t, repo, 1, types.CategoryWorking, day(2025, 3, 3).Add(9*time.Hour), 2)
	seed(t, repo, 1, types.CategoryPhone, day(2025, 3, 3).Add(11*time.Hour), 1)
	seed(t, repo, 1, types.CategoryWorking, day(2025, 3, 20).Add(9*time.Hour), 3)
	seed(t, repo, 1, types.CategoryWorking, day(2025, 4, 1).Add(9*time.Hour), 3) // next month

	cal, err := s.Calendar(context.Background(), 1, "2025-03")
	require.NoError(t, err)

	assert.Equal(t, "2025-03", cal.Month)
	assert.Equal(t, "2025-03-01 00:00:00", cal.StartDate)
	assert.Equal(t, "2025-03-31 23:59:59", cal.EndDate)

	require.Len(t, cal.Calendar, 2)
	first := cal.Calendar[0]
	assert.Equal(t, "2025-03-03", first.Date)
	assert.Equal(t, int64(3), first.TotalCount)
	require.Len(t, first.Categories, 2)
	assert.Equal(t, CalendarCategory{Category: types.CategoryPhone, Count: 1, Activities: "Phone Usage"}, first.Categories[0])

	require.Len(t, cal.MonthlyStats, 2)
	assert.Equal(t, MonthlyStat{Category: types.CategoryWorking, Count: 5, ActiveDays: 2}, cal.MonthlyStats[1])
}

func TestCalendarInvalidMonth(t *testing.T) {
	s := newTestStats(t, newTestRepo(t))
	_, err := s.Calendar(context.Background(), 1, "March")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestReportDaily(t *testing.T) {
	repo := newTestRepo(t)
	s := newTestStats(t, repo)

	// 1200 detections x 3s = 1h
	seed(t, repo, 1, types.CategoryWorking, day(2025, 3, 12).Add(9*time.Hour), 1200)
	seed(t, repo, 1, types.CategoryPhone, day(2025, 3, 12).Add(11*time.Hour), 600)
	seed(t, repo, 1, types.CategoryEating, day(2025, 3, 12).Add(12*time.Hour), 600)

	v, err := s.Report(context.Background(), 1, ReportQuery{Period: "daily"})
	require.NoError(t, err)
	report, ok := v.(*Report)
	require.True(t, ok)

	assert.Equal(t, "daily", report.Period)
	assert.Equal(t, "2025-03-12", report.StartDate)
	assert.Equal(t, "2025-03-12", report.EndDate)
	assert.Equal(t, int64(2400), report.TotalActivities)
	assert.Equal(t, 2.0, report.TotalHours)

	require.Len(t, report.Summary, 3)
	assert.Equal(t, types.CategoryWorking, report.Summary[0].Category)
	assert.Equal(t, 1.0, report.Summary[0].Hours)
	assert.Equal(t, 50.0, report.Summary[0].Percentage)

	assert.Contains(t, report.TimeSeries, "09:00")
	assert.Contains(t, report.TimeSeries, "11:00")
	assert.Equal(t, "Working", report.TimeSeries["09:00"][0].Name)

	assert.Equal(t, Productivity{Score: 50, ProductiveHours: 1, UnproductiveHours: 0.5, NeutralHours: 0.5}, report.Productivity)
}

func TestReportComparison(t *testing.T) {
	repo := newTestRepo(t)
	s := newTestStats(t, repo)

	seed(t, repo, 1, types.CategoryWorking, day(2025, 3, 12).Add(9*time.Hour), 1200) // 1h today
	seed(t, repo, 1, types.CategoryWorking, day(2025, 3, 11).Add(9*time.Hour), 600)  // 0.5h yesterday
	seed(t, repo, 1, types.CategoryPhone, day(2025, 3, 11).Add(10*time.Hour), 600)   // 0.5h yesterday

	v, err := s.Report(context.Background(), 1, ReportQuery{Period: "daily", Compare: true})
	require.NoError(t, err)
	cmp, ok := v.(*Comparison)
	require.True(t, ok)

	assert.Equal(t, 1.0, cmp.Current.TotalHours)
	assert.Equal(t, 1.0, cmp.Previous.TotalHours)
	assert.Equal(t, "2025-03-11", cmp.Previous.StartDate)
	assert.Equal(t, Changes{Hours: 0, HoursPercent: 0, Productivity: 50}, cmp.Changes)
}

func TestReportComparisonWithEmptyPrevious(t *testing.T) {
	repo := newTestRepo(t)
	s := newTestStats(t, repo)
	seed(t, repo, 1, types.CategoryWorking, day(2025, 3, 10).Add(9*time.Hour), 1200)

	v, err := s.Report(context.Background(), 1, ReportQuery{Period: "weekly", Compare: true})
	require.NoError(t, err)
	cmp := v.(*Comparison)

	assert.Equal(t, 1.0, cmp.Changes.Hours)
	assert.Zero(t, cmp.Changes.HoursPercent)
	assert.Contains(t, cmp.Current.TimeSeries, "Monday")
}

func TestReportCustomRange(t *testing.T) {
	repo := newTestRepo(t)
	s := newTestStats(t, repo)
	seed(t, repo, 1, types.CategorySleeping, day(2025, 3, 1).Add(23*time.Hour), 2)
	seed(t, repo, 1, types.CategorySleeping, day(2025, 3, 2).Add(1*time.Hour), 2)

	v, err := s.Report(context.Background(), 1, ReportQuery{StartDate: "2025-03-01", EndDate: "2025-03-02"})
	require.NoError(t, err)
	report := v.(*Report)

	assert.Equal(t, int64(4), report.TotalActivities)
	assert.Len(t, report.TimeSeries, 2)
	assert.Contains(t, report.TimeSeries, "2025-03-01")
	assert.Zero(t, report.Productivity.Score)

	_, err = s.Report(context.Background(), 1, ReportQuery{StartDate: "2025-03-02", EndDate: "2025-03-01"})
	assert.ErrorIs(t, err, ErrInvalidDate)
}
