package service

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"questboard/internal/model"
	"questboard/internal/repository"
)

type readOnlyUsers struct {
	*repository.UserRepository
}

func (readOnlyUsers) AddPoints(context.Context, string, int, time.Time) (*model.User, error) {
	return nil, errors.New("permission denied for table users")
}

type brokenActivity struct {
	*repository.ActivityRepository
}

func (brokenActivity) Append(context.Context, *model.ActivityLogEntry) error {
	return errors.New("permission denied for table activity_log")
}

func newScoring(env *testEnv, users UserStore, activity ActivityStore) *ScoringService {
	if users == nil {
		users = env.users
	}
	if activity == nil {
		activity = env.activity
	}
	return NewScoringService(users, env.tasks, activity, NewPointsService(env.points))
}

func ref(task model.Task) string {
	return strconv.FormatUint(uint64(task.ID), 10)
}

func TestCompleteTaskCreditsPoints(t *testing.T) {
	env := newTestEnv(t)
	sess := env.signIn(t, "ann@example.com", 95)
	task := env.addTask(t, model.Task{Email: "ann@example.com", Title: "Run 5K", Points: 40})
	ctx := context.Background()

	result, err := newScoring(env, nil, nil).CompleteTask(ctx, sess, ref(task), 10, testNow)
	if err != nil {
		t.Fatalf("complete task: %v", err)
	}
	if !result.OK || !result.PointsPersisted {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.NewPoints != 105 || result.NewLevel != 2 {
		t.Fatalf("expected 105/2, got %d/%d", result.NewPoints, result.NewLevel)
	}
	if result.Title != "Run 5K" {
		t.Fatalf("unexpected title %q", result.Title)
	}
	if len(result.Effects) != 2 || len(result.FailedEffects()) != 0 {
		t.Fatalf("unexpected effects %+v", result.Effects)
	}
	if _, ok := sess.Display.Overridden(); ok {
		t.Fatalf("a persisted total must reconcile immediately")
	}

	entries, err := env.activity.Recent(ctx, "ann@example.com", 5)
	if err != nil {
		t.Fatalf("recent activity: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != "Completed task: Run 5K" || entries[0].PointsEarned != 10 {
		t.Fatalf("unexpected activity %+v", entries)
	}
	rec, err := env.points.FindByDate(ctx, "ann@example.com", model.DayKey(testNow))
	if err != nil {
		t.Fatalf("find points record: %v", err)
	}
	if rec.DailyPoints != 10 || rec.CumulativePoints != 10 {
		t.Fatalf("unexpected points record %+v", rec)
	}
}

func TestCompleteQuestUsesStoredPoints(t *testing.T) {
	env := newTestEnv(t)
	sess := env.signIn(t, "ann@example.com", 0)
	task := env.addTask(t, model.Task{Email: "ann@example.com", Title: "Gym Session", Points: 50})

	result, err := newScoring(env, nil, nil).CompleteQuest(context.Background(), sess, ref(task), testNow)
	if err != nil {
		t.Fatalf("complete quest: %v", err)
	}
	if result.Points != 50 || result.NewPoints != 50 {
		t.Fatalf("expected 50 points credited, got %+v", result)
	}
}

func TestCompleteTaskPointsWriteFailureKeepsOverride(t *testing.T) {
	env := newTestEnv(t)
	sess := env.signIn(t, "ann@example.com", 95)
	task := env.addTask(t, model.Task{Email: "ann@example.com", Title: "Read Chapter", Points: 10})
	ctx := context.Background()

	result, err := newScoring(env, readOnlyUsers{env.users}, nil).CompleteTask(ctx, sess, ref(task), 10, testNow)
	if err != nil {
		t.Fatalf("complete task: %v", err)
	}
	if !result.OK || result.PointsPersisted || result.PointsErr == nil {
		t.Fatalf("expected partial success, got %+v", result)
	}
	if result.NewPoints != 105 || result.NewLevel != 2 {
		t.Fatalf("expected locally computed 105/2, got %d/%d", result.NewPoints, result.NewLevel)
	}
	if sess.LastError == "" {
		t.Fatalf("expected the failure in the diagnostic slot")
	}

	accounts := NewAccountService(env.users)
	if _, err := accounts.Reload(ctx, sess); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := sess.Standing(0); got.TotalPoints != 105 || got.Level != 2 {
		t.Fatalf("expected override to survive a stale reload, got %+v", got)
	}
	if sess.User.TotalPoints != 95 {
		t.Fatalf("expected the stale store value in the session, got %d", sess.User.TotalPoints)
	}

	if _, err := env.users.AddPoints(ctx, "ann@example.com", 10, testNow); err != nil {
		t.Fatalf("add points: %v", err)
	}
	if _, err := accounts.Reload(ctx, sess); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if _, ok := sess.Display.Overridden(); ok {
		t.Fatalf("expected synced once the store matches")
	}
}

func TestCompleteTaskTwiceCreditsOnce(t *testing.T) {
	env := newTestEnv(t)
	sess := env.signIn(t, "ann@example.com", 0)
	task := env.addTask(t, model.Task{Email: "ann@example.com", Title: "Meditation", Points: 20})
	scoring := newScoring(env, nil, nil)
	ctx := context.Background()

	if _, err := scoring.CompleteTask(ctx, sess, ref(task), 20, testNow); err != nil {
		t.Fatalf("complete task: %v", err)
	}
	if _, err := scoring.CompleteTask(ctx, sess, ref(task), 20, testNow); !errors.Is(err, repository.ErrAlreadyCompleted) {
		t.Fatalf("expected ErrAlreadyCompleted, got %v", err)
	}

	user, err := env.users.FindByEmail(ctx, "ann@example.com")
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if user.TotalPoints != 20 {
		t.Fatalf("expected points credited once, got %d", user.TotalPoints)
	}
}

func TestCompleteTaskNotFound(t *testing.T) {
	env := newTestEnv(t)
	sess := env.signIn(t, "ann@example.com", 0)
	env.signIn(t, "bob@example.com", 0)
	bobs := env.addTask(t, model.Task{Email: "bob@example.com", Title: "Bob's quest", Points: 20})
	scoring := newScoring(env, nil, nil)

	if _, err := scoring.CompleteTask(context.Background(), sess, "12345", 10, testNow); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
	if _, err := scoring.CompleteTask(context.Background(), sess, ref(bobs), 10, testNow); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected another user's task to be invisible, got %v", err)
	}
}

func TestCompleteTaskRequiresSignIn(t *testing.T) {
	env := newTestEnv(t)
	if _, err := newScoring(env, nil, nil).CompleteTask(context.Background(), nil, "1", 10, testNow); !errors.Is(err, ErrNotSignedIn) {
		t.Fatalf("expected ErrNotSignedIn, got %v", err)
	}
}

func TestCompleteTaskSurfacesEffectFailures(t *testing.T) {
	env := newTestEnv(t)
	sess := env.signIn(t, "ann@example.com", 0)
	task := env.addTask(t, model.Task{Email: "ann@example.com", Title: "Healthy Meal", Points: 15})

	result, err := newScoring(env, nil, brokenActivity{env.activity}).CompleteTask(context.Background(), sess, ref(task), 15, testNow)
	if err != nil {
		t.Fatalf("complete task: %v", err)
	}
	if !result.OK || !result.PointsPersisted {
		t.Fatalf("effects must not fail the completion: %+v", result)
	}
	failed := result.FailedEffects()
	if len(failed) != 1 || failed[0].Name != EffectActivityLog {
		t.Fatalf("expected only the activity log effect to fail, got %+v", failed)
	}
	if sess.LastError == "" {
		t.Fatalf("expected the effect failure in the diagnostic slot")
	}
}

func TestCompleteRepeatingTaskSpawnsNext(t *testing.T) {
	env := newTestEnv(t)
	sess := env.signIn(t, "ann@example.com", 0)
	deadline := testNow.Add(2 * time.Hour)
	task := env.addTask(t, model.Task{
		Email:      "ann@example.com",
		Title:      "Practice Skill",
		Points:     30,
		Deadline:   model.NewNaiveTime(deadline),
		RepeatDays: 2,
	})

	result, err := newScoring(env, nil, nil).CompleteTask(context.Background(), sess, ref(task), 30, testNow)
	if err != nil {
		t.Fatalf("complete task: %v", err)
	}
	if len(result.Effects) != 3 || result.Effects[2].Name != EffectRepeat || !result.Effects[2].OK() {
		t.Fatalf("expected a successful repeat effect, got %+v", result.Effects)
	}
	next := result.NextTask
	if next == nil || next.ID == task.ID {
		t.Fatalf("expected a new task, got %+v", next)
	}
	if next.RepeatCount != 1 || !next.Deadline.Equal(deadline.AddDate(0, 0, 2)) || next.IsCompleted {
		t.Fatalf("unexpected next task %+v", next)
	}
}
