package service

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"questboard/internal/model"
)

// dueSoonWindow marks pending quests whose deadline is close.
const dueSoonWindow = 48 * time.Hour

// DigestService builds human-readable summaries for daily notifications.
type DigestService struct {
	tasks  TaskStore
	points *PointsService
}

func NewDigestService(tasks TaskStore, points *PointsService) *DigestService {
	return &DigestService{tasks: tasks, points: points}
}

func (s *DigestService) DailySummary(ctx context.Context, email string, now time.Time) (string, error) {
	pending, err := s.tasks.ListByUser(ctx, email, false)
	if err != nil {
		return "", err
	}
	completed, err := s.tasks.ListByUser(ctx, email, true)
	if err != nil {
		return "", err
	}
	today, err := s.points.Today(ctx, email, now)
	if err != nil {
		return "", err
	}
	streak, err := s.points.Streak(ctx, email, now)
	if err != nil {
		return "", err
	}

	var overdue, open []model.Task
	for _, task := range pending {
		if task.IsOverdue(now) {
			overdue = append(overdue, task)
		} else {
			open = append(open, task)
		}
	}
	sortByDeadline(overdue)
	sortByDeadline(open)

	var builder strings.Builder
	builder.WriteString("📋 <b>Daily quest report</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", now.Format("2006-01-02")))

	builder.WriteString(fmt.Sprintf("⭐ Today: <b>%d XP</b> · streak %s\n", today.DailyPoints, pluralDays(streak)))
	if score, ok := model.DisciplineScore(append(pending, completed...), now); ok {
		builder.WriteString(fmt.Sprintf("🎯 Discipline score: %d/100\n", score))
	}

	if len(overdue) > 0 {
		builder.WriteString("\n⚠️ <b>Overdue quests</b>\n")
		for _, task := range overdue {
			builder.WriteString(formatTask(task, now))
			builder.WriteString(fmt.Sprintf("   💡 %s\n", html.EscapeString(model.Consequence(task.Points))))
		}
	}

	builder.WriteString("\n🔥 <b>Open quests</b>\n")
	if len(open) == 0 {
		builder.WriteString("— nothing open, add one with /newquest\n")
	} else {
		for _, task := range open {
			builder.WriteString(formatTask(task, now))
		}
	}

	return strings.TrimSpace(builder.String()), nil
}

func sortByDeadline(tasks []model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		di, dj := tasks[i].Deadline, tasks[j].Deadline
		switch {
		case di.IsZero() && dj.IsZero():
			return tasks[i].CreatedAt.After(tasks[j].CreatedAt.Time)
		case di.IsZero():
			return false
		case dj.IsZero():
			return true
		default:
			return di.Before(dj.Time)
		}
	})
}

func formatTask(task model.Task, now time.Time) string {
	var sb strings.Builder

	icon := "🟢"
	if !task.Deadline.IsZero() {
		switch d := task.Deadline.Time; {
		case now.After(d):
			icon = "⚠️"
		case d.Sub(now) <= dueSoonWindow:
			icon = "⏳"
		}
	}

	sb.WriteString(fmt.Sprintf("%s %s · %d XP", icon, html.EscapeString(strings.TrimSpace(task.Title)), task.Points))
	if category := strings.TrimSpace(task.Category); category != "" {
		sb.WriteString(fmt.Sprintf(" <i>(%s)</i>", html.EscapeString(category)))
	}

	if !task.Deadline.IsZero() {
		d := task.Deadline.Time
		if now.After(d) {
			sb.WriteString(fmt.Sprintf("\n   ⏰ due %s, <b>overdue</b>", d.Format("2006-01-02 15:04")))
		} else {
			sb.WriteString(fmt.Sprintf("\n   ⏰ due %s", d.Format("2006-01-02 15:04")))
		}
	}
	if task.IsRepeating() {
		sb.WriteString(fmt.Sprintf("\n   🔁 every %s", pluralDays(task.RepeatDays)))
	}

	sb.WriteByte('\n')
	return sb.String()
}

func pluralDays(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}
