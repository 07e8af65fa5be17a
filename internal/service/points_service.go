package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"questboard/internal/model"
	"questboard/internal/repository"
)

// streakLookback bounds how far back Streak reads records.
const streakLookback = 366

// PointsService maintains and reads the per-day points records.
type PointsService struct {
	points PointsStore
}

func NewPointsService(points PointsStore) *PointsService {
	return &PointsService{points: points}
}

// Record adds delta to the record for the day of at, creating it when needed.
// A new record's cumulative continues from the latest earlier record.
func (s *PointsService) Record(ctx context.Context, email string, delta int, at time.Time) error {
	day := model.DayKey(at)
	rec, err := s.points.FindByDate(ctx, email, day)
	switch {
	case err == nil:
		return s.points.Increment(ctx, rec.RecordID, delta)
	case !errors.Is(err, repository.ErrNotFound):
		return err
	}

	seed, err := s.cumulativeBefore(ctx, email, day)
	if err != nil {
		return err
	}
	err = s.points.Insert(ctx, &model.PointsRecord{
		Email:            email,
		Date:             day,
		DailyPoints:      delta,
		CumulativePoints: seed + delta,
	})
	if !errors.Is(err, repository.ErrDuplicate) {
		return err
	}

	// another completion created today's record first
	rec, err = s.points.FindByDate(ctx, email, day)
	if err != nil {
		return err
	}
	return s.points.Increment(ctx, rec.RecordID, delta)
}

// History returns one entry per day for the days ending on the day of now.
func (s *PointsService) History(ctx context.Context, email string, days int, now time.Time) ([]model.DayPoints, error) {
	if days <= 0 {
		return []model.DayPoints{}, nil
	}
	start := startOfDay(now).AddDate(0, 0, -(days - 1))
	startKey := model.DayKey(start)

	seed, err := s.cumulativeBefore(ctx, email, startKey)
	if err != nil {
		return nil, err
	}
	records, err := s.points.Since(ctx, email, startKey)
	if err != nil {
		return nil, err
	}
	return BuildHistory(seed, records, start, days), nil
}

// Today returns the record for the day of now, or zeros.
func (s *PointsService) Today(ctx context.Context, email string, now time.Time) (model.DayPoints, error) {
	day := model.DayKey(now)
	rec, err := s.points.FindByDate(ctx, email, day)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return model.DayPoints{Date: day}, nil
	case err != nil:
		return model.DayPoints{}, err
	}
	return model.DayPoints{Date: day, DailyPoints: rec.DailyPoints, CumulativePoints: rec.CumulativePoints}, nil
}

// LatestCumulative is the cumulative total of the newest record up to now.
func (s *PointsService) LatestCumulative(ctx context.Context, email string, now time.Time) (int, error) {
	return s.cumulativeBefore(ctx, email, model.DayKey(startOfDay(now).AddDate(0, 0, 1)))
}

// Streak counts consecutive days with a points record, ending today or, when
// nothing was earned yet today, yesterday.
func (s *PointsService) Streak(ctx context.Context, email string, now time.Time) (int, error) {
	today := startOfDay(now)
	records, err := s.points.Since(ctx, email, model.DayKey(today.AddDate(0, 0, -streakLookback)))
	if err != nil {
		return 0, err
	}
	active := make(map[string]bool, len(records))
	for _, rec := range records {
		active[rec.Date] = true
	}

	day := today
	if !active[model.DayKey(day)] {
		day = day.AddDate(0, 0, -1)
	}
	streak := 0
	for active[model.DayKey(day)] {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak, nil
}

func (s *PointsService) cumulativeBefore(ctx context.Context, email, day string) (int, error) {
	rec, err := s.points.LatestBefore(ctx, email, day)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("seed cumulative points: %w", err)
	}
	return rec.CumulativePoints, nil
}

// BuildHistory expands sparse records into exactly days entries starting at
// start. Missing days earn 0 and carry the running cumulative; the cumulative
// column never decreases. seed is the cumulative total before start.
func BuildHistory(seed int, records []model.PointsRecord, start time.Time, days int) []model.DayPoints {
	if days <= 0 {
		return []model.DayPoints{}
	}
	byDate := make(map[string]model.PointsRecord, len(records))
	for _, rec := range records {
		byDate[rec.Date] = rec
	}

	running := seed
	if running < 0 {
		running = 0
	}
	first := startOfDay(start)
	out := make([]model.DayPoints, 0, days)
	for i := 0; i < days; i++ {
		key := model.DayKey(first.AddDate(0, 0, i))
		daily := 0
		if rec, ok := byDate[key]; ok {
			daily = rec.DailyPoints
			if daily < 0 {
				daily = 0
			}
			cum := rec.CumulativePoints
			if cum <= 0 || cum < running {
				cum = running + daily
			}
			running = cum
		}
		out = append(out, model.DayPoints{Date: key, DailyPoints: daily, CumulativePoints: running})
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
