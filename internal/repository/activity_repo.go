package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/menta2k/trackmate/internal/model"
	"github.com/menta2k/trackmate/pkg/types"
)

// Range is a half-open time interval [Start, End)
type Range struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the range
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Granularity selects a time series bucketing
type Granularity string

const (
	ByHour    Granularity = "hour"    // "00".."23"
	ByWeekday Granularity = "weekday" // "Monday".."Sunday"
	ByDay     Granularity = "day"     // "2006-01-02"
	ByMonth   Granularity = "month"   // "2006-01"
)

// CategoryTotal summarizes one category inside a range
type CategoryTotal struct {
	Category       types.Category
	Count          int64
	FirstDetection time.Time
	LastDetection  time.Time
	ActiveDays     int
}

// Bucket counts one category inside one time bucket
type Bucket struct {
	Key        string
	Category   types.Category
	Count      int64
	Activities []string // distinct activity names, first seen first
}

// Aggregate is the result of one pass over a user's detections in a range.
// Total always equals the sum of the per-category counts.
type Aggregate struct {
	Range      Range
	Total      int64
	Categories []CategoryTotal
	Series     map[Granularity][]Bucket
}

// Count returns the number of detections for c
func (a *Aggregate) Count(c types.Category) int64 {
	for _, ct := range a.Categories {
		if ct.Category == c {
			return ct.Count
		}
	}
	return 0
}

// ActivityRepo is the activity store
type ActivityRepo interface {
	Create(ctx context.Context, d *model.Detection) error
	Latest(ctx context.Context, userID uint64) (*model.Detection, error)
	Recent(ctx context.Context, userID uint64, rng Range, limit int) ([]model.Detection, error)
	Aggregate(ctx context.Context, userID uint64, rng Range, series ...Granularity) (*Aggregate, error)
}

type activityRepo struct {
	db  *gorm.DB
	loc *time.Location
}

// NewActivityRepo creates a store that buckets by the server's local calendar
func NewActivityRepo(db *gorm.DB) ActivityRepo {
	return NewActivityRepoInLocation(db, time.Local)
}

// NewActivityRepoInLocation creates a store that buckets by loc
func NewActivityRepoInLocation(db *gorm.DB, loc *time.Location) ActivityRepo {
	return &activityRepo{db: db, loc: loc}
}

// Create inserts one row and sets its ID
func (r *activityRepo) Create(ctx context.Context, d *model.Detection) error {
	if !d.Category.Valid() {
		return fmt.Errorf("invalid category %d", d.Category)
	}
	return r.db.WithContext(ctx).Create(d).Error
}

// Latest returns the newest detection of the user, or nil when there is none
func (r *activityRepo) Latest(ctx context.Context, userID uint64) (*model.Detection, error) {
	var d model.Detection
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("detected_at DESC").Order("id DESC").
		First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Recent returns up to limit detections in the range, newest first
func (r *activityRepo) Recent(ctx context.Context, userID uint64, rng Range, limit int) ([]model.Detection, error) {
	var list []model.Detection
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND detected_at >= ? AND detected_at < ?", userID, rng.Start, rng.End).
		Order("detected_at DESC").Order("id DESC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

// Aggregate streams the user's detections in the range once and buckets them
// in Go, so calendar boundaries follow r.loc regardless of the SQL dialect.
func (r *activityRepo) Aggregate(ctx context.Context, userID uint64, rng Range, series ...Granularity) (*Aggregate, error) {
	rows, err := r.db.WithContext(ctx).
		Model(&model.Detection{}).
		Select("category", "activity_name", "detected_at").
		Where("user_id = ? AND detected_at >= ? AND detected_at < ?", userID, rng.Start, rng.End).
		Order("detected_at").
		Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to query detections: %w", err)
	}
	defer rows.Close()

	b := newAggregator(rng, r.loc, series)
	for rows.Next() {
		var (
			category   int64
			name       string
			detectedAt time.Time
		)
		if err := rows.Scan(&category, &name, &detectedAt); err != nil {
			return nil, fmt.Errorf("failed to scan detection: %w", err)
		}
		b.add(types.Category(category), name, detectedAt.In(r.loc))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read detections: %w", err)
	}

	return b.result(), nil
}

type bucketKey struct {
	key      string
	category types.Category
}

type bucketAcc struct {
	order      int
	count      int64
	activities []string
}

type categoryAcc struct {
	CategoryTotal
	days map[string]struct{}
}

type aggregator struct {
	rng        Range
	loc        *time.Location
	total      int64
	categories map[types.Category]*categoryAcc
	series     map[Granularity]map[bucketKey]*bucketAcc
}

func newAggregator(rng Range, loc *time.Location, series []Granularity) *aggregator {
	a := &aggregator{
		rng:        rng,
		loc:        loc,
		categories: make(map[types.Category]*categoryAcc),
		series:     make(map[Granularity]map[bucketKey]*bucketAcc, len(series)),
	}
	for _, g := range series {
		a.series[g] = make(map[bucketKey]*bucketAcc)
	}
	return a
}

func (a *aggregator) add(c types.Category, name string, t time.Time) {
	a.total++

	day := t.Format("2006-01-02")
	ca, ok := a.categories[c]
	if !ok {
		ca = &categoryAcc{
			CategoryTotal: CategoryTotal{Category: c, FirstDetection: t},
			days:          make(map[string]struct{}),
		}
		a.categories[c] = ca
	}
	ca.Count++
	if t.Before(ca.FirstDetection) {
		ca.FirstDetection = t
	}
	if t.After(ca.LastDetection) {
		ca.LastDetection = t
	}
	ca.days[day] = struct{}{}

	for g, buckets := range a.series {
		key, order := bucketFor(g, t)
		k := bucketKey{key: key, category: c}
		acc, ok := buckets[k]
		if !ok {
			acc = &bucketAcc{order: order}
			buckets[k] = acc
		}
		acc.count++
		if name != "" && !containsString(acc.activities, name) {
			acc.activities = append(acc.activities, name)
		}
	}
}

func (a *aggregator) result() *Aggregate {
	out := &Aggregate{
		Range:  a.rng,
		Total:  a.total,
		Series: make(map[Granularity][]Bucket, len(a.series)),
	}

	for _, ca := range a.categories {
		ct := ca.CategoryTotal
		ct.ActiveDays = len(ca.days)
		out.Categories = append(out.Categories, ct)
	}
	sort.Slice(out.Categories, func(i, j int) bool {
		return out.Categories[i].Category < out.Categories[j].Category
	})

	for g, buckets := range a.series {
		type entry struct {
			k   bucketKey
			acc *bucketAcc
		}
		entries := make([]entry, 0, len(buckets))
		for k, acc := range buckets {
			entries = append(entries, entry{k, acc})
		}
		sort.Slice(entries, func(i, j int) bool {
			ei, ej := entries[i], entries[j]
			if ei.acc.order != ej.acc.order {
				return ei.acc.order < ej.acc.order
			}
			if ei.k.key != ej.k.key {
				return ei.k.key < ej.k.key
			}
			return ei.k.category < ej.k.category
		})

		list := make([]Bucket, 0, len(entries))
		for _, e := range entries {
			list = append(list, Bucket{
				Key:        e.k.key,
				Category:   e.k.category,
				Count:      e.acc.count,
				Activities: e.acc.activities,
			})
		}
		out.Series[g] = list
	}

	return out
}

// bucketFor returns the bucket label of t and its sort position. Day and
// month labels sort lexically, so their position is zero.
func bucketFor(g Granularity, t time.Time) (string, int) {
	switch g {
	case ByHour:
		return fmt.Sprintf("%02d", t.Hour()), t.Hour()
	case ByWeekday:
		return t.Weekday().String(), (int(t.Weekday()) + 6) % 7
	case ByMonth:
		return t.Format("2006-01"), 0
	default:
		return t.Format("2006-01-02"), 0
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
