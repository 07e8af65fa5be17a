package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"questboard/internal/model"
	"questboard/internal/repository"
	"questboard/internal/session"
)

const (
	MinQuestPoints = 1
	MaxQuestPoints = 500
	MaxRepeatDays  = 365
)

// TaskInput represents data required to create a quest.
type TaskInput struct {
	Title       string
	Description string
	Category    string
	// Activity picks a preset from Category; it fills Title and Points when
	// those are empty.
	Activity   string
	Points     int
	Deadline   *time.Time
	RepeatDays int
}

// TaskService wraps quest-related business logic.
type TaskService struct {
	tasks TaskStore
}

func NewTaskService(tasks TaskStore) *TaskService {
	return &TaskService{tasks: tasks}
}

func (s *TaskService) CreateTask(ctx context.Context, sess *session.Session, input TaskInput, now time.Time) (*model.Task, error) {
	email, err := requireUser(sess)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	category := strings.TrimSpace(input.Category)
	points := input.Points
	if cat, ok := model.FindCategory(category); ok {
		category = cat.Name
		if input.Activity != "" {
			act, ok := cat.FindActivity(input.Activity)
			if !ok {
				return nil, fmt.Errorf("%w: unknown activity %q in %s", ErrInvalidInput, input.Activity, cat.Name)
			}
			if title == "" {
				title = act.Name
			}
			if points == 0 {
				points = act.Points
			}
		}
	}

	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if points < MinQuestPoints || points > MaxQuestPoints {
		return nil, fmt.Errorf("%w: points must be between %d and %d", ErrInvalidInput, MinQuestPoints, MaxQuestPoints)
	}
	if input.RepeatDays < 0 || input.RepeatDays > MaxRepeatDays {
		return nil, fmt.Errorf("%w: repeat days must be between 0 and %d", ErrInvalidInput, MaxRepeatDays)
	}

	deadline := now.Add(24 * time.Hour)
	if input.Deadline != nil && !input.Deadline.IsZero() {
		deadline = *input.Deadline
	}

	task := model.Task{
		Email:       email,
		Title:       title,
		Category:    category,
		Points:      points,
		Deadline:    model.NewNaiveTime(deadline),
		Description: strings.TrimSpace(input.Description),
		CreatedAt:   model.NewNaiveTime(now),
		RepeatDays:  input.RepeatDays,
	}
	if err := s.tasks.Create(ctx, &task); err != nil {
		sess.RecordError("create task", err)
		return nil, err
	}

	log.Printf("[info] task created id=%d user=%s points=%d", task.ID, email, task.Points)
	return &task, nil
}

func (s *TaskService) ListPending(ctx context.Context, sess *session.Session) ([]model.Task, error) {
	return s.list(ctx, sess, false)
}

func (s *TaskService) ListCompleted(ctx context.Context, sess *session.Session) ([]model.Task, error) {
	return s.list(ctx, sess, true)
}

func (s *TaskService) list(ctx context.Context, sess *session.Session, completed bool) ([]model.Task, error) {
	email, err := requireUser(sess)
	if err != nil {
		return nil, err
	}
	tasks, err := s.tasks.ListByUser(ctx, email, completed)
	if err != nil {
		sess.RecordError("list tasks", err)
		return nil, err
	}
	return tasks, nil
}

// GetTask resolves ref to one of the signed-in user's quests.
func (s *TaskService) GetTask(ctx context.Context, sess *session.Session, ref string) (*model.Task, error) {
	email, err := requireUser(sess)
	if err != nil {
		return nil, err
	}
	res, err := resolveOwned(ctx, s.tasks, email, ref)
	if err != nil {
		return nil, err
	}
	task, err := s.tasks.Get(ctx, res.Key)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		sess.RecordError("get task", err)
		return nil, err
	}
	return task, nil
}

// DeleteTask removes a quest whether pending or completed. Points already
// earned are kept.
func (s *TaskService) DeleteTask(ctx context.Context, sess *session.Session, ref string) (string, error) {
	email, err := requireUser(sess)
	if err != nil {
		return "", err
	}
	res, err := resolveOwned(ctx, s.tasks, email, ref)
	if err != nil {
		return "", err
	}
	err = s.tasks.Delete(ctx, res.Key)
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrTaskNotFound
	}
	if err != nil {
		sess.RecordError("delete task", err)
		return "", err
	}
	title := rowString(res.Row, "title")
	log.Printf("[info] task deleted %s user=%s", res.Key, email)
	return title, nil
}
