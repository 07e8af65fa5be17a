package model

import "time"

// Task represents a single quest on a user's board.
type Task struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Email       string    `gorm:"index;size:255" json:"email"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	Points      int       `json:"points"`
	Deadline    NaiveTime `json:"deadline"`
	Description string    `json:"description"`
	IsCompleted bool      `gorm:"default:false" json:"is_completed"`
	CompletedAt NaiveTime `json:"completed_at"`
	CreatedAt   NaiveTime `json:"created_at"`
	RepeatDays  int       `gorm:"default:0" json:"repeat_days"`
	RepeatCount int       `gorm:"default:0" json:"repeat_count"`
}

// IsOverdue reports whether a pending task has passed its deadline.
func (t Task) IsOverdue(now time.Time) bool {
	if t.IsCompleted || t.Deadline.IsZero() {
		return false
	}
	return t.Deadline.Before(stripZone(now))
}

// IsRepeating reports whether completing the task schedules another one.
func (t Task) IsRepeating() bool {
	return t.RepeatDays > 0
}

// Consequence suggests a constructive follow-up for a missed quest worth points.
func Consequence(points int) string {
	switch {
	case points < 20:
		return "Write a reflection: why did I miss this?"
	case points <= 50:
		return "15 minute planning session for tomorrow"
	case points <= 100:
		return "Create an action plan to prevent future misses"
	case points <= 200:
		return "Weekly review and adjust goals"
	default:
		return "Full system audit and restart protocol"
	}
}

// DisciplineScore rates a board from 0 to 100: completion share weighted at 70
// minus 5 per overdue quest.
func DisciplineScore(tasks []Task, now time.Time) (int, bool) {
	if len(tasks) == 0 {
		return 0, false
	}
	completed, overdue := 0, 0
	for _, task := range tasks {
		if task.IsCompleted {
			completed++
		} else if task.IsOverdue(now) {
			overdue++
		}
	}
	score := completed*70/len(tasks) - overdue*5
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score, true
}
