package service

import (
	"context"
	"time"

	"questboard/internal/session"
)

// DefaultLeaderboardSize is used when no limit is configured.
const DefaultLeaderboardSize = 10

// LeaderboardEntry is one ranked row.
type LeaderboardEntry struct {
	Rank          int    `json:"rank"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	AvatarURL     string `json:"avatar_url"`
	Level         int    `json:"level"`
	TotalPoints   int    `json:"total_points"`
	IsCurrentUser bool   `json:"is_current_user"`
}

type LeaderboardService struct {
	users  UserStore
	points *PointsService
	limit  int
}

func NewLeaderboardService(users UserStore, points *PointsService, limit int) *LeaderboardService {
	if limit <= 0 {
		limit = DefaultLeaderboardSize
	}
	return &LeaderboardService{users: users, points: points, limit: limit}
}

// Top returns the highest-scoring users. The signed-in user's row shows the
// same standing as the profile header; every other row shows stored values.
func (s *LeaderboardService) Top(ctx context.Context, sess *session.Session, limit int, now time.Time) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = s.limit
	}
	users, err := s.users.Leaderboard(ctx, limit)
	if err != nil {
		sess.RecordError("leaderboard", err)
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(users))
	for i, u := range users {
		entry := LeaderboardEntry{
			Rank:        i + 1,
			Email:       u.Email,
			Name:        u.DisplayName(),
			AvatarURL:   u.AvatarURL,
			Level:       u.Level,
			TotalPoints: u.TotalPoints,
		}
		if sess.LoggedIn() && u.Email == sess.Email {
			entry.IsCurrentUser = true
			stored := session.Standing{TotalPoints: u.TotalPoints, Level: u.Level}
			sess.Display.Reconcile(stored)
			shown := sess.Display.Resolve(stored, s.historyCumulative(ctx, sess, now))
			entry.TotalPoints = shown.TotalPoints
			entry.Level = shown.Level
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *LeaderboardService) historyCumulative(ctx context.Context, sess *session.Session, now time.Time) int {
	if s.points == nil {
		return 0
	}
	cumulative, err := s.points.LatestCumulative(ctx, sess.Email, now)
	if err != nil {
		sess.RecordError("points history", err)
		return 0
	}
	return cumulative
}
