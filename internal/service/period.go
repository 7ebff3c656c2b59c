package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/menta2k/trackmate/internal/repository"
)

// ErrInvalidDate is returned for malformed or inverted date parameters
var ErrInvalidDate = errors.New("invalid date")

const (
	dateLayout     = "2006-01-02"
	monthLayout    = "2006-01"
	dateTimeLayout = "2006-01-02 15:04:05"
)

// startOfDay returns local midnight of t's calendar day
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func startOfWeek(t time.Time) time.Time {
	day := startOfDay(t)
	return day.AddDate(0, 0, -((int(day.Weekday()) + 6) % 7))
}

func startOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

func startOfYear(t time.Time) time.Time {
	return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not YYYY-MM-DD", ErrInvalidDate, s)
	}
	return t, nil
}

// lastInstant is the display form of an exclusive end bound
func lastInstant(end time.Time) string {
	return end.Add(-time.Second).Format(dateTimeLayout)
}

// StatsRange resolves a dashboard period anchored at date (YYYY-MM-DD, today
// when empty). Unknown periods behave like "today".
func StatsRange(period, date string, now time.Time) (string, repository.Range, error) {
	anchor := startOfDay(now)
	if date != "" {
		t, err := parseDate(date, now.Location())
		if err != nil {
			return "", repository.Range{}, err
		}
		anchor = t
	}

	switch period {
	case "week":
		start := startOfWeek(anchor)
		return period, repository.Range{Start: start, End: start.AddDate(0, 0, 7)}, nil
	case "month":
		start := startOfMonth(anchor)
		return period, repository.Range{Start: start, End: start.AddDate(0, 1, 0)}, nil
	case "year":
		start := startOfYear(anchor)
		return period, repository.Range{Start: start, End: start.AddDate(1, 0, 0)}, nil
	default:
		return "today", repository.Range{Start: anchor, End: anchor.AddDate(0, 0, 1)}, nil
	}
}

// MonthRange resolves a calendar month (YYYY-MM, current month when empty)
func MonthRange(month string, now time.Time) (string, repository.Range, error) {
	start := startOfMonth(now)
	if month != "" {
		t, err := time.ParseInLocation(monthLayout, month, now.Location())
		if err != nil {
			return "", repository.Range{}, fmt.Errorf("%w: %q is not YYYY-MM", ErrInvalidDate, month)
		}
		start = t
	}
	return start.Format(monthLayout), repository.Range{Start: start, End: start.AddDate(0, 1, 0)}, nil
}

// ReportWindow is a resolved report period
type ReportWindow struct {
	Period string
	Range  repository.Range
	Series repository.Granularity
	Custom bool
	// step moves the window to the previous period
	step func(time.Time) time.Time
}

// Label formats a series bucket key for display
func (w ReportWindow) Label(key string) string {
	if w.Series == repository.ByHour {
		return key + ":00"
	}
	return key
}

// StartDate is the first day of the window
func (w ReportWindow) StartDate() string {
	return w.Range.Start.Format(dateLayout)
}

// EndDate is the last day of the window, inclusive
func (w ReportWindow) EndDate() string {
	return w.Range.End.Add(-time.Second).Format(dateLayout)
}

// ReportRange resolves a report period. A start/end pair (inclusive days)
// overrides the named period's range but keeps its series granularity.
func ReportRange(period, startDate, endDate string, now time.Time) (ReportWindow, error) {
	today := startOfDay(now)
	tomorrow := today.AddDate(0, 0, 1)

	var w ReportWindow
	switch period {
	case "weekly", "week":
		start := startOfWeek(today)
		w = ReportWindow{Range: repository.Range{Start: start, End: start.AddDate(0, 0, 7)}, Series: repository.ByWeekday,
			step: func(t time.Time) time.Time { return t.AddDate(0, 0, -7) }}
	case "monthly", "month":
		start := startOfMonth(today)
		w = ReportWindow{Range: repository.Range{Start: start, End: start.AddDate(0, 1, 0)}, Series: repository.ByDay,
			step: func(t time.Time) time.Time { return t.AddDate(0, -1, 0) }}
	case "yearly", "year":
		start := startOfYear(today)
		w = ReportWindow{Range: repository.Range{Start: start, End: start.AddDate(1, 0, 0)}, Series: repository.ByMonth,
			step: func(t time.Time) time.Time { return t.AddDate(-1, 0, 0) }}
	case "last7days":
		w = ReportWindow{Range: repository.Range{Start: today.AddDate(0, 0, -7), End: tomorrow}, Series: repository.ByDay,
			step: func(t time.Time) time.Time { return t.AddDate(0, 0, -8) }}
	case "last30days":
		w = ReportWindow{Range: repository.Range{Start: today.AddDate(0, 0, -30), End: tomorrow}, Series: repository.ByDay,
			step: func(t time.Time) time.Time { return t.AddDate(0, 0, -31) }}
	default:
		period = "daily"
		w = ReportWindow{Range: repository.Range{Start: today, End: tomorrow}, Series: repository.ByHour,
			step: func(t time.Time) time.Time { return t.AddDate(0, 0, -1) }}
	}
	w.Period = period

	if startDate == "" || endDate == "" {
		return w, nil
	}

	start, err := parseDate(startDate, now.Location())
	if err != nil {
		return ReportWindow{}, err
	}
	end, err := parseDate(endDate, now.Location())
	if err != nil {
		return ReportWindow{}, err
	}
	if end.Before(start) {
		return ReportWindow{}, fmt.Errorf("%w: end_date %s is before start_date %s", ErrInvalidDate, endDate, startDate)
	}

	days := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days++
	}
	w.Range = repository.Range{Start: start, End: end.AddDate(0, 0, 1)}
	w.Custom = true
	w.step = func(t time.Time) time.Time { return t.AddDate(0, 0, -days) }
	if w.Series == repository.ByHour && days > 1 {
		w.Series = repository.ByDay
	}
	return w, nil
}

// Previous returns the window immediately preceding w with the same length
func (w ReportWindow) Previous() ReportWindow {
	prev := w
	prev.Range = repository.Range{Start: w.step(w.Range.Start), End: w.Range.Start}
	return prev
}
