package service

import (
	"context"
	"testing"
	"time"

	"questboard/internal/model"
	"questboard/internal/repository"
	"questboard/internal/session"
)

var testNow = time.Date(2025, 6, 10, 14, 0, 0, 0, time.Local)

type testEnv struct {
	users    *repository.UserRepository
	tasks    *repository.TaskRepository
	points   *repository.PointsRepository
	activity *repository.ActivityRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := repository.NewDB(":memory:", true)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return &testEnv{
		users:    repository.NewUserRepository(db),
		tasks:    repository.NewTaskRepository(db),
		points:   repository.NewPointsRepository(db),
		activity: repository.NewActivityRepository(db),
	}
}

// signIn stores a user with the given total and returns a session bound to it.
func (e *testEnv) signIn(t *testing.T, email string, total int) *session.Session {
	t.Helper()
	user := &model.User{Email: email, TotalPoints: total, Level: model.LevelFor(total)}
	if err := e.users.Create(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	sess := session.New()
	sess.SignIn(user)
	return sess
}

func (e *testEnv) addTask(t *testing.T, task model.Task) model.Task {
	t.Helper()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = model.NewNaiveTime(testNow.Add(-time.Hour))
	}
	if err := e.tasks.Create(context.Background(), &task); err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func newSignedInSession(t *testing.T, users UserStore, email string) *session.Session {
	t.Helper()
	user, err := users.FindByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	sess := session.New()
	sess.SignIn(user)
	return sess
}
