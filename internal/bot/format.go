package bot

import (
	"errors"
	"fmt"
	"html"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"questboard/internal/auth"
	"questboard/internal/model"
	"questboard/internal/repository"
	"questboard/internal/service"
)

const (
	noCategory     = "No category"
	noCategoryKey  = "__no_category__"
	iconDefault    = "🟢"
	iconDue        = "⏳"
	iconOverdue    = "⚠️"
	historyBarSize = 12
	progressSlots  = 10
)

var medals = []string{"🥇", "🥈", "🥉"}

func escape(s string) string {
	return html.EscapeString(s)
}

// userError turns a service failure into a chat reply.
func userError(err error) string {
	var mismatch *repository.SchemaMismatchError
	switch {
	case errors.Is(err, service.ErrNotSignedIn):
		return "🔒 Sign in first: /login &lt;email&gt; &lt;password&gt; or /register &lt;email&gt; &lt;password&gt; [name]."
	case errors.Is(err, service.ErrTaskNotFound):
		return "Quest not found."
	case errors.Is(err, repository.ErrAlreadyCompleted):
		return "This quest is already completed."
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "Wrong email or password."
	case errors.Is(err, repository.ErrDuplicate):
		return "An account with this email already exists. Use /login instead."
	case errors.Is(err, service.ErrInvalidInput):
		return "⚠️ " + escape(err.Error())
	case errors.As(err, &mismatch):
		return "⚠️ The store is missing column(s): " + escape(strings.Join(mismatch.Columns, ", "))
	default:
		return "Something went wrong: " + escape(err.Error())
	}
}

func normalizeTitle(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	runes := []rune(value)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	clean = normalizeTitle(clean)
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func categoryLabel(name string) string {
	base := strings.TrimSpace(name)
	if base == "" {
		base = noCategory
	}
	var icon string
	switch strings.ToLower(base) {
	case "fitness":
		icon = "💪"
	case "study":
		icon = "🎓"
	case "work":
		icon = "💼"
	case "health":
		icon = "🩺"
	case "skills":
		icon = "🛠"
	case strings.ToLower(noCategory):
		icon = "📁"
	default:
		icon = "🏷️"
	}
	return fmt.Sprintf("%s %s", icon, escape(normalizeTitle(base)))
}

func categoryKey(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return noCategoryKey
	}
	return strings.ToLower(trimmed)
}

func activityLabel(act model.Activity) string {
	return fmt.Sprintf("%s · %d XP", act.Name, act.Points)
}

// parseActivityLabel accepts either a keyboard label or a bare activity name.
func parseActivityLabel(cat model.Category, text string) (model.Activity, bool) {
	name := strings.TrimSpace(text)
	if i := strings.LastIndex(name, " · "); i >= 0 && strings.HasSuffix(name, " XP") {
		name = name[:i]
	}
	return cat.FindActivity(name)
}

func taskRef(task model.Task) string {
	return strconv.FormatUint(uint64(task.ID), 10)
}

func formatQuest(task model.Task, now time.Time) string {
	var b strings.Builder
	icon := iconDefault
	if !task.Deadline.IsZero() {
		if task.IsOverdue(now) {
			icon = iconOverdue
		} else if task.Deadline.Sub(now) <= 48*time.Hour {
			icon = iconDue
		}
	}
	b.WriteString(fmt.Sprintf("%s <b>#%d</b> %s · %d XP\n", icon, task.ID, escape(normalizeTitle(task.Title)), task.Points))
	if !task.Deadline.IsZero() {
		d := task.Deadline.Time
		if task.IsOverdue(now) {
			b.WriteString(fmt.Sprintf("   ⏰ Due: %s · <b>overdue</b>\n", d.Format("2006-01-02 15:04")))
		} else {
			daysLeft := int(d.Sub(now).Hours()/24) + 1
			b.WriteString(fmt.Sprintf("   ⏰ Due: %s · ≈%d d left\n", d.Format("2006-01-02 15:04"), daysLeft))
		}
	}
	if task.IsRepeating() {
		b.WriteString(fmt.Sprintf("   🔁 Every %d d (run #%d)\n", task.RepeatDays, task.RepeatCount+1))
	}
	if task.Description != "" {
		b.WriteString(fmt.Sprintf("   📝 %s\n", escape(task.Description)))
	}
	b.WriteByte('\n')
	return b.String()
}

func formatCreated(task *model.Task) string {
	var summary strings.Builder
	summary.WriteString("✅ <b>Quest saved</b>\n")
	summary.WriteString(fmt.Sprintf("• <b>ID:</b> %d\n", task.ID))
	summary.WriteString(fmt.Sprintf("• <b>Title:</b> %s\n", escape(normalizeTitle(task.Title))))
	summary.WriteString(fmt.Sprintf("• <b>Reward:</b> %d XP\n", task.Points))
	if task.Category != "" {
		summary.WriteString(fmt.Sprintf("• <b>Category:</b> %s\n", categoryLabel(task.Category)))
	}
	if task.Description != "" {
		summary.WriteString(fmt.Sprintf("• <b>Description:</b> %s\n", escape(task.Description)))
	}
	if !task.Deadline.IsZero() {
		summary.WriteString(fmt.Sprintf("• <b>Due:</b> %s\n", task.Deadline.Format("2006-01-02 15:04")))
	}
	if task.IsRepeating() {
		summary.WriteString(fmt.Sprintf("• <b>Repeats:</b> every %d d\n", task.RepeatDays))
	}
	return strings.TrimSpace(summary.String())
}

// formatCompletion reports a completion, including the parts that could not
// be recorded.
func formatCompletion(res service.CompletionResult, prevLevel int) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("✅ Quest «%s» completed! <b>+%d XP</b>\n", escape(normalizeTitle(res.Title)), res.Points))
	b.WriteString(fmt.Sprintf("⭐ Total: %d XP · level %d\n", res.NewPoints, res.NewLevel))
	if res.NewLevel > prevLevel {
		b.WriteString(fmt.Sprintf("🎉 Level up! You reached level %d.\n", res.NewLevel))
	}
	if !res.PointsPersisted {
		b.WriteString("⚠️ Your points could not be saved right now. They are shown locally until the next sync.\n")
	}
	if failed := res.FailedEffects(); len(failed) > 0 {
		names := make([]string, 0, len(failed))
		for _, effect := range failed {
			names = append(names, effect.Name)
		}
		b.WriteString(fmt.Sprintf("⚠️ Not recorded: %s\n", strings.Join(names, ", ")))
	}
	if res.NextTask != nil {
		b.WriteString(fmt.Sprintf("🔁 Next run: #%d due %s\n", res.NextTask.ID, res.NextTask.Deadline.Format("2006-01-02")))
	}
	return strings.TrimSpace(b.String())
}

func formatLeaderboard(entries []service.LeaderboardEntry) string {
	if len(entries) == 0 {
		return "🏆 The leaderboard is empty. Complete a quest to get on it."
	}
	var b strings.Builder
	b.WriteString("🏆 <b>Leaderboard</b>\n")
	for _, entry := range entries {
		rank := fmt.Sprintf("%d.", entry.Rank)
		if entry.Rank <= len(medals) {
			rank = medals[entry.Rank-1]
		}
		line := fmt.Sprintf("%s %s · L%d · %d XP", rank, escape(entry.Name), entry.Level, entry.TotalPoints)
		if entry.IsCurrentUser {
			line = "<b>" + line + "</b> ← you"
		}
		b.WriteString(line + "\n")
	}
	return strings.TrimSpace(b.String())
}

func formatProfile(ov service.Overview) string {
	var b strings.Builder
	name, email := "", ""
	if ov.User != nil {
		name, email = ov.User.DisplayName(), ov.User.Email
	}
	b.WriteString(fmt.Sprintf("👤 <b>%s</b> (%s)\n", escape(name), escape(email)))
	b.WriteString(fmt.Sprintf("⭐ Level %d · %d XP\n", ov.Standing.Level, ov.Standing.TotalPoints))
	b.WriteString(fmt.Sprintf("%s %d/%d to next level\n", progressBar(ov.LevelProgress), ov.LevelProgress, model.PointsPerLevel))
	if ov.Overridden {
		b.WriteString("⏳ Waiting for the store to catch up with your latest points.\n")
	}
	b.WriteString(fmt.Sprintf("📅 Today: %d XP · streak %d d\n", ov.Today.DailyPoints, ov.Streak))
	b.WriteString(fmt.Sprintf("📋 Open %d · done %d · overdue %d\n", ov.Pending, ov.Completed, ov.Overdue))
	if ov.Discipline != nil {
		b.WriteString(fmt.Sprintf("🎯 Discipline: %d/100\n", *ov.Discipline))
	}
	if ov.User != nil {
		if bio := strings.TrimSpace(ov.User.Bio); bio != "" {
			b.WriteString(fmt.Sprintf("📝 %s\n", escape(bio)))
		}
		if len(ov.User.PreferredCategories) > 0 {
			b.WriteString(fmt.Sprintf("❤️ %s\n", escape(strings.Join(ov.User.PreferredCategories, ", "))))
		}
		if ov.User.AvatarURL != "" {
			b.WriteString(fmt.Sprintf("🖼 %s\n", escape(ov.User.AvatarURL)))
		}
	}
	return strings.TrimSpace(b.String())
}

func progressBar(progress int) string {
	filled := progress * progressSlots / model.PointsPerLevel
	if filled > progressSlots {
		filled = progressSlots
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("▰", filled) + strings.Repeat("▱", progressSlots-filled)
}

// formatHistory draws one bar per day scaled to the best day of the window.
func formatHistory(days []model.DayPoints) string {
	if len(days) == 0 {
		return "📈 No history yet."
	}
	best := 0
	for _, day := range days {
		if day.DailyPoints > best {
			best = day.DailyPoints
		}
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📈 <b>Points, last %d days</b>\n<pre>", len(days)))
	for _, day := range days {
		width := 0
		if best > 0 {
			width = day.DailyPoints * historyBarSize / best
		}
		if day.DailyPoints > 0 && width == 0 {
			width = 1
		}
		b.WriteString(fmt.Sprintf("%s %-*s %4d Σ%d\n", day.Date[5:], historyBarSize, strings.Repeat("█", width), day.DailyPoints, day.CumulativePoints))
	}
	b.WriteString("</pre>")
	return b.String()
}

func formatActivity(entries []model.ActivityLogEntry) string {
	if len(entries) == 0 {
		return "🗒 No activity yet."
	}
	var b strings.Builder
	b.WriteString("🗒 <b>Recent activity</b>\n")
	for _, entry := range entries {
		b.WriteString(fmt.Sprintf("• %s %s", entry.Timestamp.Format("01-02 15:04"), escape(entry.Action)))
		if entry.PointsEarned > 0 {
			b.WriteString(fmt.Sprintf(" · +%d XP", entry.PointsEarned))
		}
		b.WriteByte('\n')
	}
	return strings.TrimSpace(b.String())
}

func formatCompleted(tasks []model.Task, limit int) string {
	if len(tasks) == 0 {
		return "Nothing completed yet."
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].CompletedAt.After(tasks[j].CompletedAt.Time)
	})
	if len(tasks) > limit {
		tasks = tasks[:limit]
	}
	var b strings.Builder
	b.WriteString("🏁 <b>Completed quests</b>\n")
	for _, task := range tasks {
		b.WriteString(fmt.Sprintf("✔️ <b>#%d</b> %s · %d XP", task.ID, escape(normalizeTitle(task.Title)), task.Points))
		if !task.CompletedAt.IsZero() {
			b.WriteString(" · " + task.CompletedAt.Format("2006-01-02"))
		}
		b.WriteByte('\n')
	}
	return strings.TrimSpace(b.String())
}

func formatNegotiation(res service.NegotiationResult) string {
	switch {
	case !res.OK && len(res.NotSaved) == 0:
		return "Nothing to update."
	case !res.OK:
		return "⚠️ Profile was not saved: " + escape(strings.Join(res.NotSaved, ", "))
	case len(res.NotSaved) > 0:
		return "✅ Profile updated, but these fields are not supported by the store: " + escape(strings.Join(res.NotSaved, ", "))
	default:
		return "✅ Profile updated."
	}
}
