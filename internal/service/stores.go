package service

import (
	"context"
	"errors"
	"time"

	"questboard/internal/model"
	"questboard/internal/repository"
	"questboard/internal/session"
)

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrNotSignedIn  = errors.New("not signed in")
	ErrInvalidInput = errors.New("invalid input")
)

// UserStore is the user persistence the services depend on.
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	TouchLastActive(ctx context.Context, email string, at time.Time) error
	UpdatePasswordHash(ctx context.Context, email, hash string) error
	UpdateFields(ctx context.Context, email string, fields map[string]any) error
	AddPoints(ctx context.Context, email string, delta int, at time.Time) (*model.User, error)
	Leaderboard(ctx context.Context, limit int) ([]model.User, error)
}

// TaskStore is the task persistence the services depend on.
type TaskStore interface {
	repository.RowLookup
	Create(ctx context.Context, task *model.Task) error
	ListByUser(ctx context.Context, email string, completed bool) ([]model.Task, error)
	Get(ctx context.Context, key repository.TaskKey) (*model.Task, error)
	MarkCompleted(ctx context.Context, key repository.TaskKey, completedAt time.Time) error
	Delete(ctx context.Context, key repository.TaskKey) error
	ListOverdue(ctx context.Context, email string, now time.Time) ([]model.Task, error)
}

// PointsStore is the per-day points persistence.
type PointsStore interface {
	FindByDate(ctx context.Context, email, date string) (*model.PointsRecord, error)
	LatestBefore(ctx context.Context, email, date string) (*model.PointsRecord, error)
	Since(ctx context.Context, email, date string) ([]model.PointsRecord, error)
	Insert(ctx context.Context, record *model.PointsRecord) error
	Increment(ctx context.Context, recordID uint, delta int) error
}

// ActivityStore is the activity log persistence.
type ActivityStore interface {
	Append(ctx context.Context, entry *model.ActivityLogEntry) error
	Recent(ctx context.Context, email string, limit int) ([]model.ActivityLogEntry, error)
}

func requireUser(sess *session.Session) (string, error) {
	if !sess.LoggedIn() {
		return "", ErrNotSignedIn
	}
	return sess.Email, nil
}
