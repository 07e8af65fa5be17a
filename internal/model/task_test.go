package model

import (
	"testing"
	"time"
)

func TestTaskIsOverdue(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.Local)
	past := Task{Deadline: NewNaiveTime(now.Add(-time.Minute))}
	future := Task{Deadline: NewNaiveTime(now.Add(time.Hour))}
	done := Task{Deadline: NewNaiveTime(now.Add(-time.Hour)), IsCompleted: true}

	if !past.IsOverdue(now) {
		t.Fatalf("expected past deadline to be overdue")
	}
	if future.IsOverdue(now) {
		t.Fatalf("expected future deadline to be pending")
	}
	if done.IsOverdue(now) {
		t.Fatalf("completed tasks are never overdue")
	}
	if (Task{}).IsOverdue(now) {
		t.Fatalf("tasks without deadline are never overdue")
	}
}

func TestConsequenceBands(t *testing.T) {
	seen := map[string]struct{}{}
	for _, points := range []int{5, 50, 100, 200, 500} {
		seen[Consequence(points)] = struct{}{}
	}
	if len(seen) != 5 {
		t.Fatalf("expected a distinct consequence per band, got %d", len(seen))
	}
	if Consequence(20) != Consequence(50) {
		t.Fatalf("20 and 50 share a band")
	}
}

func TestDisciplineScore(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.Local)
	tasks := []Task{
		{IsCompleted: true},
		{IsCompleted: true},
		{IsCompleted: true},
		{Deadline: NewNaiveTime(now.Add(-time.Hour))},
	}
	score, ok := DisciplineScore(tasks, now)
	if !ok {
		t.Fatalf("expected a score")
	}
	if score != 47 {
		t.Fatalf("expected 3*70/4-5 = 47, got %d", score)
	}
	if _, ok := DisciplineScore(nil, now); ok {
		t.Fatalf("expected no score for an empty board")
	}
}

func TestFindCategoryAndActivity(t *testing.T) {
	cat, ok := FindCategory("  fitness ")
	if !ok {
		t.Fatalf("expected fitness category")
	}
	act, ok := cat.FindActivity("gym session")
	if !ok || act.Points != 50 {
		t.Fatalf("expected Gym Session worth 50, got %+v ok=%v", act, ok)
	}
	if _, ok := FindCategory("Chores"); ok {
		t.Fatalf("unexpected category")
	}
}
