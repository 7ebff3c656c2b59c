package service

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/menta2k/trackmate/internal/repository"
	"github.com/menta2k/trackmate/internal/utils"
	"github.com/menta2k/trackmate/pkg/types"
)

// StatsConfig holds the values used to derive durations and lists
type StatsConfig struct {
	Categories          types.CategoryTable
	SecondsPerDetection int
	RecentLimit         int
}

// StatsService answers the dashboard, calendar and report queries
type StatsService struct {
	repo repository.ActivityRepo
	cfg  StatsConfig
	now  func() time.Time
}

// NewStatsService creates a read service over repo
func NewStatsService(repo repository.ActivityRepo, cfg StatsConfig) *StatsService {
	if cfg.SecondsPerDetection < 1 {
		cfg.SecondsPerDetection = 3
	}
	if cfg.RecentLimit < 1 {
		cfg.RecentLimit = 20
	}
	return &StatsService{repo: repo, cfg: cfg, now: time.Now}
}

// CategorySummary is one category's share of a dashboard period
type CategorySummary struct {
	Category       types.Category `json:"category"`
	Name           string         `json:"name"`
	Count          int64          `json:"count"`
	TimeSeconds    int64          `json:"time_seconds"`
	TimeFormatted  string         `json:"time_formatted"`
	Hours          float64        `json:"hours"`
	FirstDetection string         `json:"first_detection"`
	LastDetection  string         `json:"last_detection"`
}

// ActivityEntry is one stored detection as listed to clients
type ActivityEntry struct {
	ID           uint64         `json:"id"`
	ActivityType string         `json:"activity_type"`
	Category     types.Category `json:"category"`
	Description  string         `json:"description"`
	DetectedAt   string         `json:"detected_at"`
}

// HourlyCount counts one category in one hour of the day
type HourlyCount struct {
	Hour     int            `json:"hour"`
	Category types.Category `json:"category"`
	Count    int64          `json:"count"`
}

// DailyCount counts one category on one day
type DailyCount struct {
	Date     string         `json:"date"`
	Category types.Category `json:"category"`
	Count    int64          `json:"count"`
}

// Stats is the dashboard payload for one period
type Stats struct {
	Period            string                    `json:"period"`
	StartDate         string                    `json:"start_date"`
	EndDate           string                    `json:"end_date"`
	TotalDetections   int64                     `json:"total_detections"`
	ProductivityScore int                       `json:"productivity_score"`
	Summary           []CategorySummary         `json:"summary"`
	RecentActivities  []ActivityEntry           `json:"recent_activities"`
	HourlyBreakdown   []HourlyCount             `json:"hourly_breakdown"`
	DailyBreakdown    []DailyCount              `json:"daily_breakdown"`
	CategoryNames     map[types.Category]string `json:"category_names"`
}

// Stats summarizes a user's detections for a dashboard period
func (s *StatsService) Stats(ctx context.Context, userID uint64, period, date string) (*Stats, error) {
	period, rng, err := StatsRange(period, date, s.now())
	if err != nil {
		return nil, err
	}

	agg, err := s.repo.Aggregate(ctx, userID, rng, repository.ByHour, repository.ByDay)
	if err != nil {
		return nil, err
	}
	recent, err := s.repo.Recent(ctx, userID, rng, s.cfg.RecentLimit)
	if err != nil {
		return nil, err
	}

	out := &Stats{
		Period:           period,
		StartDate:        rng.Start.Format(dateTimeLayout),
		EndDate:          lastInstant(rng.End),
		TotalDetections:  agg.Total,
		Summary:          make([]CategorySummary, 0, len(agg.Categories)),
		RecentActivities: make([]ActivityEntry, 0, len(recent)),
		HourlyBreakdown:  make([]HourlyCount, 0, len(agg.Series[repository.ByHour])),
		DailyBreakdown:   make([]DailyCount, 0, len(agg.Series[repository.ByDay])),
		CategoryNames:    s.cfg.Categories.Map(),
	}

	for _, c := range agg.Categories {
		secs := c.Count * int64(s.cfg.SecondsPerDetection)
		out.Summary = append(out.Summary, CategorySummary{
			Category:       c.Category,
			Name:           s.cfg.Categories.Name(c.Category),
			Count:          c.Count,
			TimeSeconds:    secs,
			TimeFormatted:  utils.FormatDuration(secs),
			Hours:          utils.Hours(secs, 1),
			FirstDetection: c.FirstDetection.Format(dateTimeLayout),
			LastDetection:  c.LastDetection.Format(dateTimeLayout),
		})
	}

	for _, d := range recent {
		out.RecentActivities = append(out.RecentActivities, ActivityEntry{
			ID:           d.ID,
			ActivityType: d.ActivityName,
			Category:     d.Category,
			Description:  d.Description,
			DetectedAt:   d.DetectedAt.In(rng.Start.Location()).Format(dateTimeLayout),
		})
	}

	for _, b := range agg.Series[repository.ByHour] {
		hour, _ := strconv.Atoi(b.Key)
		out.HourlyBreakdown = append(out.HourlyBreakdown, HourlyCount{Hour: hour, Category: b.Category, Count: b.Count})
	}
	for _, b := range agg.Series[repository.ByDay] {
		out.DailyBreakdown = append(out.DailyBreakdown, DailyCount{Date: b.Key, Category: b.Category, Count: b.Count})
	}

	out.ProductivityScore = int(utils.Percent(float64(agg.Count(types.CategoryWorking)), float64(agg.Total), 0))
	return out, nil
}

// LatestActivity is the newest detection with a relative age
type LatestActivity struct {
	ActivityEntry
	TimeAgo string `json:"time_ago"`
}

// Latest returns the user's newest detection, or nil when there is none
func (s *StatsService) Latest(ctx context.Context, userID uint64) (*LatestActivity, error) {
	d, err := s.repo.Latest(ctx, userID)
	if err != nil || d == nil {
		return nil, err
	}
	now := s.now()
	return &LatestActivity{
		ActivityEntry: ActivityEntry{
			ID:           d.ID,
			ActivityType: d.ActivityName,
			Category:     d.Category,
			Description:  d.Description,
			DetectedAt:   d.DetectedAt.In(now.Location()).Format(dateTimeLayout),
		},
		TimeAgo: utils.TimeAgo(d.DetectedAt, now),
	}, nil
}

// CalendarCategory counts one category on one calendar day
type CalendarCategory struct {
	Category   types.Category `json:"category"`
	Count      int64          `json:"count"`
	Activities string         `json:"activities"`
}

// CalendarDay lists the categories seen on one day
type CalendarDay struct {
	Date       string             `json:"date"`
	Categories []CalendarCategory `json:"categories"`
	TotalCount int64              `json:"total_count"`
}

// MonthlyStat summarizes one category over the month
type MonthlyStat struct {
	Category   types.Category `json:"category"`
	Count      int64          `json:"count"`
	ActiveDays int            `json:"active_days"`
}

// Calendar is the month view payload
type Calendar struct {
	Month        string        `json:"month"`
	StartDate    string        `json:"start_date"`
	EndDate      string        `json:"end_date"`
	Calendar     []CalendarDay `json:"calendar"`
	MonthlyStats []MonthlyStat `json:"monthly_stats"`
}

// Calendar returns per-day category counts for a month (YYYY-MM)
func (s *StatsService) Calendar(ctx context.Context, userID uint64, month string) (*Calendar, error) {
	month, rng, err := MonthRange(month, s.now())
	if err != nil {
		return nil, err
	}

	agg, err := s.repo.Aggregate(ctx, userID, rng, repository.ByDay)
	if err != nil {
		return nil, err
	}

	out := &Calendar{
		Month:        month,
		StartDate:    rng.Start.Format(dateTimeLayout),
		EndDate:      lastInstant(rng.End),
		Calendar:     []CalendarDay{},
		MonthlyStats: make([]MonthlyStat, 0, len(agg.Categories)),
	}

	// buckets arrive sorted by day then category
	for _, b := range agg.Series[repository.ByDay] {
		if n := len(out.Calendar); n == 0 || out.Calendar[n-1].Date != b.Key {
			out.Calendar = append(out.Calendar, CalendarDay{Date: b.Key})
		}
		day := &out.Calendar[len(out.Calendar)-1]
		day.Categories = append(day.Categories, CalendarCategory{
			Category:   b.Category,
			Count:      b.Count,
			Activities: strings.Join(b.Activities, ", "),
		})
		day.TotalCount += b.Count
	}

	for _, c := range agg.Categories {
		out.MonthlyStats = append(out.MonthlyStats, MonthlyStat{Category: c.Category, Count: c.Count, ActiveDays: c.ActiveDays})
	}
	return out, nil
}

// ReportItem is one category's share of a report period
type ReportItem struct {
	Category   types.Category `json:"category"`
	Name       string         `json:"name"`
	Count      int64          `json:"count"`
	Seconds    int64          `json:"seconds"`
	Hours      float64        `json:"hours"`
	Percentage float64        `json:"percentage"`
}

// SeriesItem is one category inside one time series label
type SeriesItem struct {
	Category types.Category `json:"category"`
	Name     string         `json:"name"`
	Count    int64          `json:"count"`
	Hours    float64        `json:"hours"`
}

// Productivity splits tracked time into productive, unproductive and neutral
type Productivity struct {
	Score             float64 `json:"score"`
	ProductiveHours   float64 `json:"productive_hours"`
	UnproductiveHours float64 `json:"unproductive_hours"`
	NeutralHours      float64 `json:"neutral_hours"`
}

// Report is the report payload for one window
type Report struct {
	Period          string                  `json:"period"`
	StartDate       string                  `json:"start_date"`
	EndDate         string                  `json:"end_date"`
	Summary         []ReportItem            `json:"summary"`
	TotalHours      float64                 `json:"total_hours"`
	TotalActivities int64                   `json:"total_activities"`
	TimeSeries      map[string][]SeriesItem `json:"time_series"`
	Productivity    Productivity            `json:"productivity"`
}

// Changes compares a report with the previous period
type Changes struct {
	Hours        float64 `json:"hours"`
	HoursPercent float64 `json:"hours_percent"`
	Productivity float64 `json:"productivity"`
}

// Comparison is a report plus the previous period
type Comparison struct {
	Current  *Report `json:"current"`
	Previous *Report `json:"previous"`
	Changes  Changes `json:"changes"`
}

// ReportQuery selects a report window
type ReportQuery struct {
	Period    string
	StartDate string
	EndDate   string
	Compare   bool
}

// Report builds a report, or a Comparison when q.Compare is set
func (s *StatsService) Report(ctx context.Context, userID uint64, q ReportQuery) (any, error) {
	w, err := ReportRange(q.Period, q.StartDate, q.EndDate, s.now())
	if err != nil {
		return nil, err
	}

	current, err := s.report(ctx, userID, w)
	if err != nil {
		return nil, err
	}
	if !q.Compare {
		return current, nil
	}

	previous, err := s.report(ctx, userID, w.Previous())
	if err != nil {
		return nil, err
	}

	hoursChange := current.TotalHours - previous.TotalHours
	return &Comparison{
		Current:  current,
		Previous: previous,
		Changes: Changes{
			Hours:        utils.Round(hoursChange, 2),
			HoursPercent: utils.Percent(hoursChange, previous.TotalHours, 1),
			Productivity: utils.Round(current.Productivity.Score-previous.Productivity.Score, 1),
		},
	}, nil
}

func (s *StatsService) report(ctx context.Context, userID uint64, w ReportWindow) (*Report, error) {
	agg, err := s.repo.Aggregate(ctx, userID, w.Range, w.Series)
	if err != nil {
		return nil, err
	}

	spd := int64(s.cfg.SecondsPerDetection)
	totalSeconds := agg.Total * spd

	out := &Report{
		Period:          w.Period,
		StartDate:       w.StartDate(),
		EndDate:         w.EndDate(),
		Summary:         make([]ReportItem, 0, len(agg.Categories)),
		TotalHours:      utils.Hours(totalSeconds, 2),
		TotalActivities: agg.Total,
		TimeSeries:      make(map[string][]SeriesItem),
	}

	var productive, unproductive int64
	for _, c := range agg.Categories {
		secs := c.Count * spd
		out.Summary = append(out.Summary, ReportItem{
			Category:   c.Category,
			Name:       s.cfg.Categories.Name(c.Category),
			Count:      c.Count,
			Seconds:    secs,
			Hours:      utils.Hours(secs, 2),
			Percentage: utils.Percent(float64(secs), float64(totalSeconds), 1),
		})
		switch c.Category {
		case types.CategoryWorking:
			productive += secs
		case types.CategoryPhone, types.CategoryPhoneAndWork:
			unproductive += secs
		}
	}
	sort.SliceStable(out.Summary, func(i, j int) bool {
		return out.Summary[i].Count > out.Summary[j].Count
	})

	for _, b := range agg.Series[w.Series] {
		label := w.Label(b.Key)
		out.TimeSeries[label] = append(out.TimeSeries[label], SeriesItem{
			Category: b.Category,
			Name:     s.cfg.Categories.Name(b.Category),
			Count:    b.Count,
			Hours:    utils.Hours(b.Count*spd, 2),
		})
	}

	out.Productivity = Productivity{
		Score:             utils.Percent(float64(productive), float64(totalSeconds), 1),
		ProductiveHours:   utils.Hours(productive, 2),
		UnproductiveHours: utils.Hours(unproductive, 2),
		NeutralHours:      utils.Hours(totalSeconds-productive-unproductive, 2),
	}
	return out, nil
}
