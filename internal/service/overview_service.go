package service

import (
	"context"
	"time"

	"questboard/internal/model"
	"questboard/internal/session"
)

// Overview is everything a profile header shows.
type Overview struct {
	User          *model.User      `json:"user"`
	Standing      session.Standing `json:"standing"`
	Overridden    bool             `json:"overridden"`
	LevelProgress int              `json:"level_progress"`
	Today         model.DayPoints  `json:"today"`
	Streak        int              `json:"streak"`
	Pending       int              `json:"pending"`
	Completed     int              `json:"completed"`
	Overdue       int              `json:"overdue"`
	Discipline    *int             `json:"discipline,omitempty"`
}

// OverviewService assembles the signed-in user's profile header.
type OverviewService struct {
	accounts *AccountService
	tasks    TaskStore
	points   *PointsService
}

func NewOverviewService(accounts *AccountService, tasks TaskStore, points *PointsService) *OverviewService {
	return &OverviewService{accounts: accounts, tasks: tasks, points: points}
}

// Overview reloads the user, reconciles the session and derives the displayed
// standing. Failures of the auxiliary reads leave their fields zero.
func (s *OverviewService) Overview(ctx context.Context, sess *session.Session, now time.Time) (Overview, error) {
	user, err := s.accounts.Reload(ctx, sess)
	if err != nil {
		return Overview{}, err
	}
	email := sess.Email

	cumulative, err := s.points.LatestCumulative(ctx, email, now)
	if err != nil {
		sess.RecordError("points history", err)
	}
	standing := sess.Standing(cumulative)
	_, overridden := sess.Display.Overridden()

	out := Overview{
		User:          user,
		Standing:      standing,
		Overridden:    overridden,
		LevelProgress: model.LevelProgress(standing.TotalPoints),
	}
	if out.Today, err = s.points.Today(ctx, email, now); err != nil {
		sess.RecordError("today points", err)
	}
	if out.Streak, err = s.points.Streak(ctx, email, now); err != nil {
		sess.RecordError("streak", err)
	}

	pending, err := s.tasks.ListByUser(ctx, email, false)
	if err != nil {
		sess.RecordError("list tasks", err)
		return out, nil
	}
	completed, err := s.tasks.ListByUser(ctx, email, true)
	if err != nil {
		sess.RecordError("list tasks", err)
		return out, nil
	}
	out.Pending = len(pending)
	out.Completed = len(completed)
	for _, task := range pending {
		if task.IsOverdue(now) {
			out.Overdue++
		}
	}
	if score, ok := model.DisciplineScore(append(pending, completed...), now); ok {
		out.Discipline = &score
	}
	return out, nil
}
