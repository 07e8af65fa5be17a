package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"questboard/internal/model"
)

// TaskKey addresses one task row by whichever primary-key column the schema uses.
type TaskKey struct {
	Column string
	Value  any
}

func (k TaskKey) String() string {
	return fmt.Sprintf("%s=%v", k.Column, k.Value)
}

// TaskRepository handles CRUD for tasks.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", classify(err))
	}
	return nil
}

// ListByUser returns pending tasks by deadline, or completed ones newest first.
func (r *TaskRepository) ListByUser(ctx context.Context, email string, completed bool) ([]model.Task, error) {
	order := "deadline ASC, id ASC"
	if completed {
		order = "completed_at DESC, id DESC"
	}
	var tasks []model.Task
	if err := r.db.WithContext(ctx).
		Where("email = ? AND is_completed = ?", model.NormalizeEmail(email), completed).
		Order(order).
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", classify(err))
	}
	return tasks, nil
}

func (r *TaskRepository) Get(ctx context.Context, key TaskKey) (*model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where(keyClause(key)).Limit(1).Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("get task: %w", classify(err))
	}
	if len(tasks) == 0 {
		return nil, ErrNotFound
	}
	return &tasks[0], nil
}

// LookupTask fetches the raw row whose column equals value. A nil row means no match.
func (r *TaskRepository) LookupTask(ctx context.Context, column string, value any) (map[string]any, error) {
	var rows []map[string]any
	err := r.quiet(ctx).Table("tasks").Where(keyClause(TaskKey{Column: column, Value: value})).Limit(1).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("lookup task: %w", classify(err))
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// RecentTasks returns the user's newest raw task rows.
func (r *TaskRepository) RecentTasks(ctx context.Context, email string, limit int) ([]map[string]any, error) {
	var rows []map[string]any
	err := r.quiet(ctx).Table("tasks").
		Where("email = ?", model.NormalizeEmail(email)).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("recent tasks: %w", classify(err))
	}
	return rows, nil
}

// MarkCompleted flips a pending task to completed. Completing twice returns
// ErrAlreadyCompleted so points are only credited once.
func (r *TaskRepository) MarkCompleted(ctx context.Context, key TaskKey, completedAt time.Time) error {
	res := r.db.WithContext(ctx).Table("tasks").
		Where(keyClause(key)).
		Where("is_completed = ?", false).
		Updates(map[string]any{
			"is_completed": true,
			"completed_at": model.NewNaiveTime(completedAt),
		})
	if res.Error != nil {
		return fmt.Errorf("complete task: %w", classify(res.Error))
	}
	if res.RowsAffected > 0 {
		return nil
	}

	row, err := r.LookupTask(ctx, key.Column, key.Value)
	if err != nil {
		return err
	}
	if row == nil {
		return ErrNotFound
	}
	return ErrAlreadyCompleted
}

func (r *TaskRepository) Delete(ctx context.Context, key TaskKey) error {
	res := r.db.WithContext(ctx).Where(keyClause(key)).Delete(&model.Task{})
	if res.Error != nil {
		return fmt.Errorf("delete task: %w", classify(res.Error))
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListOverdue returns pending tasks whose deadline is before now.
func (r *TaskRepository) ListOverdue(ctx context.Context, email string, now time.Time) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).
		Where("email = ? AND is_completed = ? AND deadline IS NOT NULL AND deadline < ?", model.NormalizeEmail(email), false, model.NewNaiveTime(now)).
		Order("deadline ASC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list overdue tasks: %w", classify(err))
	}
	return tasks, nil
}

// quiet silences the gorm logger for probes that are expected to hit missing columns.
func (r *TaskRepository) quiet(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Session(&gorm.Session{Logger: r.db.Logger.LogMode(logger.Silent)})
}

func keyClause(key TaskKey) clause.Expression {
	return clause.Eq{Column: clause.Column{Name: key.Column}, Value: key.Value}
}
