package session

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"questboard/internal/model"
)

func exerciseRegistry(t *testing.T, reg Registry) {
	t.Helper()
	ctx := context.Background()

	s := New()
	s.SignIn(&model.User{Email: "ann@example.com", TotalPoints: 10, Level: 1})
	s.Display.Override(Standing{TotalPoints: 20, Level: 1})
	if err := reg.Save(ctx, s); err != nil {
		t.Fatalf("save session: %v", err)
	}

	got, err := reg.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.Email != "ann@example.com" || got.User == nil || got.User.TotalPoints != 10 {
		t.Fatalf("unexpected session %+v", got)
	}
	if held, ok := got.Display.Overridden(); !ok || held.TotalPoints != 20 {
		t.Fatalf("override not persisted")
	}

	if err := reg.Delete(ctx, s.ID); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, err := reg.Get(ctx, s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryRegistry(t *testing.T) {
	exerciseRegistry(t, NewMemoryRegistry(time.Hour))
}

func TestMemoryRegistryExpires(t *testing.T) {
	reg := NewMemoryRegistry(time.Minute)
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return now }

	s := New()
	if err := reg.Save(context.Background(), s); err != nil {
		t.Fatalf("save session: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if removed := reg.Purge(); removed != 1 {
		t.Fatalf("expected 1 purged session, got %d", removed)
	}
	if _, err := reg.Get(context.Background(), s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired session, got %v", err)
	}
}

func TestRedisRegistry(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR is not set")
	}
	rdb, err := NewRedisClient(context.Background(), addr, os.Getenv("REDIS_PASSWORD"))
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	defer rdb.Close()
	exerciseRegistry(t, NewRedisRegistry(rdb, time.Minute))
}
