package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"questboard/internal/model"
)

// ActivityRepository appends to and reads the activity log.
type ActivityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) Append(ctx context.Context, entry *model.ActivityLogEntry) error {
	entry.Email = model.NormalizeEmail(entry.Email)
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("append activity: %w", classify(err))
	}
	return nil
}

func (r *ActivityRepository) Recent(ctx context.Context, email string, limit int) ([]model.ActivityLogEntry, error) {
	if limit <= 0 {
		limit = 30
	}
	var entries []model.ActivityLogEntry
	if err := r.db.WithContext(ctx).
		Where("email = ?", model.NormalizeEmail(email)).
		Order(clause.OrderBy{Columns: []clause.OrderByColumn{
			{Column: clause.Column{Name: "timestamp"}, Desc: true},
			{Column: clause.Column{Name: "id"}, Desc: true},
		}}).
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("recent activity: %w", classify(err))
	}
	return entries, nil
}
