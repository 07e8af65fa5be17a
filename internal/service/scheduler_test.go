package service

import (
	"testing"
	"time"
)

func TestParseClock(t *testing.T) {
	hour, minute, err := ParseClock(" 09:30 ")
	if err != nil || hour != 9 || minute != 30 {
		t.Fatalf("unexpected %d:%d %v", hour, minute, err)
	}
	for _, bad := range []string{"", "9", "24:00", "12:60", "ab:cd", "1:2:3"} {
		if _, _, err := ParseClock(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestSchedulerRegistersJobs(t *testing.T) {
	s := NewScheduler(time.UTC)
	if _, err := s.Daily("digest", "07:05", func() {}); err != nil {
		t.Fatalf("schedule daily: %v", err)
	}
	if _, err := s.Every("purge", time.Hour, func() {}); err != nil {
		t.Fatalf("schedule interval: %v", err)
	}
	if _, err := s.Every("bad", 0, func() {}); err == nil {
		t.Fatalf("expected a zero interval to be rejected")
	}
	if _, err := s.Daily("bad", "25:00", func() {}); err == nil {
		t.Fatalf("expected an invalid clock to be rejected")
	}
	if got := len(s.cron.Entries()); got != 2 {
		t.Fatalf("expected 2 entries, got %d", got)
	}

	spec, err := dailySpec("07:05")
	if err != nil || spec != "5 7 * * *" {
		t.Fatalf("unexpected spec %q %v", spec, err)
	}
}
