package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"questboard/internal/model"
	"questboard/internal/repository"
	"questboard/internal/session"
)

// Secondary effects run after a completion is recorded.
const (
	EffectActivityLog = "activity_log"
	EffectUserPoints  = "user_points"
	EffectRepeat      = "repeat"
)

// EffectOutcome reports how one secondary effect went.
type EffectOutcome struct {
	Name string
	Err  error
}

func (e EffectOutcome) OK() bool {
	return e.Err == nil
}

// CompletionResult describes a completed quest. PointsPersisted is false when
// the quest was marked done but the user's total could not be written; the
// New* values are then computed locally and shown through the session override.
type CompletionResult struct {
	OK              bool
	Title           string
	Key             repository.TaskKey
	Points          int
	NewPoints       int
	NewLevel        int
	PointsPersisted bool
	PointsErr       error
	Effects         []EffectOutcome
	NextTask        *model.Task
}

// FailedEffects lists effects that did not succeed.
func (r CompletionResult) FailedEffects() []EffectOutcome {
	var failed []EffectOutcome
	for _, effect := range r.Effects {
		if !effect.OK() {
			failed = append(failed, effect)
		}
	}
	return failed
}

// ScoringService completes quests and credits points.
type ScoringService struct {
	users    UserStore
	tasks    TaskStore
	activity ActivityStore
	points   *PointsService
}

func NewScoringService(users UserStore, tasks TaskStore, activity ActivityStore, points *PointsService) *ScoringService {
	return &ScoringService{users: users, tasks: tasks, activity: activity, points: points}
}

// CompleteQuest completes ref and credits the quest's own point value.
func (s *ScoringService) CompleteQuest(ctx context.Context, sess *session.Session, ref string, at time.Time) (CompletionResult, error) {
	email, err := requireUser(sess)
	if err != nil {
		return CompletionResult{}, err
	}
	res, err := resolveOwned(ctx, s.tasks, email, ref)
	if err != nil {
		return CompletionResult{}, err
	}
	return s.complete(ctx, sess, email, ref, res, rowInt(res.Row, "points"), at)
}

// CompleteTask completes ref and credits points to the signed-in user.
func (s *ScoringService) CompleteTask(ctx context.Context, sess *session.Session, ref string, points int, at time.Time) (CompletionResult, error) {
	email, err := requireUser(sess)
	if err != nil {
		return CompletionResult{}, err
	}
	res, err := resolveOwned(ctx, s.tasks, email, ref)
	if err != nil {
		return CompletionResult{}, err
	}
	return s.complete(ctx, sess, email, ref, res, points, at)
}

func (s *ScoringService) complete(ctx context.Context, sess *session.Session, email, ref string, res repository.Resolution, points int, at time.Time) (CompletionResult, error) {
	if points < 0 {
		points = 0
	}

	if err := s.tasks.MarkCompleted(ctx, res.Key, at); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return CompletionResult{}, ErrTaskNotFound
		case errors.Is(err, repository.ErrAlreadyCompleted):
			return CompletionResult{}, err
		}
		sess.RecordError("complete task", err)
		return CompletionResult{}, fmt.Errorf("complete task %s: %w", res.Key, err)
	}

	result := CompletionResult{
		OK:     true,
		Title:  rowString(res.Row, "title"),
		Key:    res.Key,
		Points: points,
	}
	if result.Title == "" {
		result.Title = "task " + ref
	}

	user, err := s.users.AddPoints(ctx, email, points, at)
	if err == nil {
		result.NewPoints = user.TotalPoints
		result.NewLevel = user.Level
		result.PointsPersisted = true
	} else {
		result.PointsErr = err
		result.NewPoints = s.currentTotal(ctx, sess, email) + points
		result.NewLevel = model.LevelFor(result.NewPoints)
		sess.RecordError("add points", err)
		log.Printf("add points for %s: %v", email, err)
	}

	result.Effects = append(result.Effects, EffectOutcome{
		Name: EffectActivityLog,
		Err: s.activity.Append(ctx, &model.ActivityLogEntry{
			Email:        email,
			Action:       "Completed task: " + result.Title,
			PointsEarned: points,
			Timestamp:    model.NewNaiveTime(at),
		}),
	})
	result.Effects = append(result.Effects, EffectOutcome{
		Name: EffectUserPoints,
		Err:  s.points.Record(ctx, email, points, at),
	})
	if rowInt(res.Row, "repeat_days") > 0 {
		next, err := s.spawnNext(ctx, res.Key, at)
		result.NextTask = next
		result.Effects = append(result.Effects, EffectOutcome{Name: EffectRepeat, Err: err})
	}
	for _, effect := range result.FailedEffects() {
		sess.RecordError(effect.Name, effect.Err)
	}

	sess.Display.Override(session.Standing{TotalPoints: result.NewPoints, Level: result.NewLevel})
	if result.PointsPersisted {
		sess.Refresh(user)
	}

	log.Printf("[info] task completed %s user=%s points=%d total=%d persisted=%t",
		res.Key, email, points, result.NewPoints, result.PointsPersisted)
	return result, nil
}

// currentTotal is the base for a locally computed total: the stored value, or
// the held override when that is ahead of the store.
func (s *ScoringService) currentTotal(ctx context.Context, sess *session.Session, email string) int {
	total := session.StandingOf(sess.User).TotalPoints
	if user, err := s.users.FindByEmail(ctx, email); err == nil {
		total = user.TotalPoints
	}
	if held, ok := sess.Display.Overridden(); ok && held.TotalPoints > total {
		total = held.TotalPoints
	}
	return total
}

// spawnNext schedules the next occurrence of a repeating quest.
func (s *ScoringService) spawnNext(ctx context.Context, key repository.TaskKey, at time.Time) (*model.Task, error) {
	done, err := s.tasks.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load repeating task: %w", err)
	}
	base := done.Deadline.Time
	if base.IsZero() {
		base = at
	}
	next := model.Task{
		Email:       done.Email,
		Title:       done.Title,
		Category:    done.Category,
		Points:      done.Points,
		Deadline:    model.NewNaiveTime(base.AddDate(0, 0, done.RepeatDays)),
		Description: done.Description,
		CreatedAt:   model.NewNaiveTime(at),
		RepeatDays:  done.RepeatDays,
		RepeatCount: done.RepeatCount + 1,
	}
	if err := s.tasks.Create(ctx, &next); err != nil {
		return nil, err
	}
	return &next, nil
}
