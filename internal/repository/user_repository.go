package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"questboard/internal/model"
)

// UserRepository handles CRUD for users.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("create user: %w", classify(err))
	}
	return nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).Where("email = ?", model.NormalizeEmail(email)).Limit(1).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("find user: %w", classify(err))
	}
	if len(users) == 0 {
		return nil, ErrNotFound
	}
	return &users[0], nil
}

func (r *UserRepository) TouchLastActive(ctx context.Context, email string, at time.Time) error {
	return r.UpdateFields(ctx, email, map[string]any{"last_active": model.NewNaiveTime(at)})
}

func (r *UserRepository) UpdatePasswordHash(ctx context.Context, email, hash string) error {
	return r.UpdateFields(ctx, email, map[string]any{"password_hash": hash})
}

// UpdateFields writes the given columns in a single statement. Unknown columns
// surface as *SchemaMismatchError.
func (r *UserRepository) UpdateFields(ctx context.Context, email string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Table("users").Where("email = ?", model.NormalizeEmail(email)).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("update user: %w", classify(res.Error))
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AddPoints increments total_points and rederives level in one statement, so
// concurrent completions cannot lose an increment.
func (r *UserRepository) AddPoints(ctx context.Context, email string, delta int, at time.Time) (*model.User, error) {
	res := r.db.WithContext(ctx).Table("users").Where("email = ?", model.NormalizeEmail(email)).Updates(map[string]any{
		"total_points": gorm.Expr("total_points + ?", delta),
		"level":        gorm.Expr("(total_points + ?) / ? + 1", delta, model.PointsPerLevel),
		"last_active":  model.NewNaiveTime(at),
	})
	if res.Error != nil {
		return nil, fmt.Errorf("add points: %w", classify(res.Error))
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.FindByEmail(ctx, email)
}

// Leaderboard returns the top users by total points.
func (r *UserRepository) Leaderboard(ctx context.Context, limit int) ([]model.User, error) {
	if limit <= 0 {
		limit = 10
	}
	var users []model.User
	if err := r.db.WithContext(ctx).
		Select("email", "name", "avatar_url", "level", "total_points").
		Order("total_points DESC, email ASC").
		Limit(limit).
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("leaderboard: %w", classify(err))
	}
	return users, nil
}
