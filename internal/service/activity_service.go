package service

import (
	"context"

	"questboard/internal/model"
	"questboard/internal/session"
)

// DefaultActivityLimit is the size of the recent activity feed.
const DefaultActivityLimit = 30

type ActivityService struct {
	activity ActivityStore
}

func NewActivityService(activity ActivityStore) *ActivityService {
	return &ActivityService{activity: activity}
}

// Recent returns the signed-in user's newest activity entries.
func (s *ActivityService) Recent(ctx context.Context, sess *session.Session, limit int) ([]model.ActivityLogEntry, error) {
	email, err := requireUser(sess)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	entries, err := s.activity.Recent(ctx, email, limit)
	if err != nil {
		sess.RecordError("recent activity", err)
		return nil, err
	}
	return entries, nil
}
