package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"questboard/internal/model"
)

// PointsRepository manages per-day point records.
type PointsRepository struct {
	db *gorm.DB
}

func NewPointsRepository(db *gorm.DB) *PointsRepository {
	return &PointsRepository{db: db}
}

func (r *PointsRepository) FindByDate(ctx context.Context, email, date string) (*model.PointsRecord, error) {
	var records []model.PointsRecord
	if err := r.db.WithContext(ctx).
		Where("email = ? AND date = ?", model.NormalizeEmail(email), date).
		Limit(1).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("find points record: %w", classify(err))
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return &records[0], nil
}

// LatestBefore returns the most recent record strictly before date.
func (r *PointsRepository) LatestBefore(ctx context.Context, email, date string) (*model.PointsRecord, error) {
	var records []model.PointsRecord
	if err := r.db.WithContext(ctx).
		Where("email = ? AND date < ?", model.NormalizeEmail(email), date).
		Order("date DESC").
		Limit(1).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("latest points record: %w", classify(err))
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return &records[0], nil
}

// Since returns records dated on or after date in ascending order.
func (r *PointsRepository) Since(ctx context.Context, email, date string) ([]model.PointsRecord, error) {
	var records []model.PointsRecord
	if err := r.db.WithContext(ctx).
		Where("email = ? AND date >= ?", model.NormalizeEmail(email), date).
		Order("date ASC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list points records: %w", classify(err))
	}
	return records, nil
}

func (r *PointsRepository) Insert(ctx context.Context, record *model.PointsRecord) error {
	record.Email = model.NormalizeEmail(record.Email)
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("insert points record: %w", classify(err))
	}
	return nil
}

// Increment adds delta to both counters of an existing record in one statement.
func (r *PointsRepository) Increment(ctx context.Context, recordID uint, delta int) error {
	res := r.db.WithContext(ctx).Model(&model.PointsRecord{}).
		Where("record_id = ?", recordID).
		Updates(map[string]any{
			"daily_points":      gorm.Expr("daily_points + ?", delta),
			"cumulative_points": gorm.Expr("cumulative_points + ?", delta),
		})
	if res.Error != nil {
		return fmt.Errorf("increment points record: %w", classify(res.Error))
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
