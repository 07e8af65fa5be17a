package repository

import (
	"context"
	"errors"
	"testing"

	"questboard/internal/model"
)

func TestPointsRepositoryLifecycle(t *testing.T) {
	repo := NewPointsRepository(newTestDB(t))
	ctx := context.Background()

	for _, rec := range []model.PointsRecord{
		{Email: "Ann@example.com", Date: "2025-06-01", DailyPoints: 10, CumulativePoints: 10},
		{Email: "ann@example.com", Date: "2025-06-03", DailyPoints: 5, CumulativePoints: 15},
		{Email: "bob@example.com", Date: "2025-06-02", DailyPoints: 99, CumulativePoints: 99},
	} {
		rec := rec
		if err := repo.Insert(ctx, &rec); err != nil {
			t.Fatalf("insert record: %v", err)
		}
	}

	dup := model.PointsRecord{Email: "ann@example.com", Date: "2025-06-01"}
	if err := repo.Insert(ctx, &dup); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	latest, err := repo.LatestBefore(ctx, "ann@example.com", "2025-06-03")
	if err != nil {
		t.Fatalf("latest before: %v", err)
	}
	if latest.Date != "2025-06-01" {
		t.Fatalf("expected 2025-06-01, got %s", latest.Date)
	}
	if _, err := repo.LatestBefore(ctx, "ann@example.com", "2025-06-01"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	rec, err := repo.FindByDate(ctx, "ann@example.com", "2025-06-03")
	if err != nil {
		t.Fatalf("find record: %v", err)
	}
	if err := repo.Increment(ctx, rec.RecordID, 20); err != nil {
		t.Fatalf("increment record: %v", err)
	}
	rec, err = repo.FindByDate(ctx, "ann@example.com", "2025-06-03")
	if err != nil {
		t.Fatalf("find record: %v", err)
	}
	if rec.DailyPoints != 25 || rec.CumulativePoints != 35 {
		t.Fatalf("expected 25/35, got %d/%d", rec.DailyPoints, rec.CumulativePoints)
	}

	records, err := repo.Since(ctx, "ann@example.com", "2025-06-02")
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(records) != 1 || records[0].Date != "2025-06-03" {
		t.Fatalf("unexpected records %+v", records)
	}
}
