package bot

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"questboard/internal/model"
	"questboard/internal/service"
	"questboard/internal/session"
)

const completedListLimit = 20

const commandList = "• /newquest — add a quest step by step\n" +
	"• /quests — open quests with complete and delete buttons\n" +
	"• /done — recently completed quests\n" +
	"• /complete &lt;id&gt; — complete a quest (e.g. /complete 3)\n" +
	"• /delete &lt;id&gt; — delete a quest\n" +
	"• /profile — level, streak and discipline\n" +
	"• /leaderboard — top players\n" +
	"• /history [days] — points per day\n" +
	"• /activity — recent activity\n" +
	"• /categories [names] — preset activities, or set your favourites\n" +
	"• /setname, /setbio, /setavatar — edit your profile\n" +
	"• /report — today's quest report\n" +
	"• /register &lt;email&gt; &lt;password&gt; [name], /login, /logout\n" +
	"• /debug — last error seen\n" +
	"• /cancel — cancel the current input"

func (b *Bot) handleStart(sess *session.Session, msg *tgbotapi.Message) error {
	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "adventurer"
	}

	status := "Create an account with /register &lt;email&gt; &lt;password&gt; or sign in with /login."
	if sess.LoggedIn() {
		status = fmt.Sprintf("Signed in as <b>%s</b>.", escape(sess.Email))
	}

	text := fmt.Sprintf("👋 Hi, %s!\n<b>Turn your to-dos into quests and level up.</b>\n%s\n\nCommands:\n%s",
		escape(name), status, commandList)
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	return b.sendText(msg.Chat.ID, "ℹ️ <b>Commands</b>\n"+commandList)
}

// deleteCredentials removes a message that carried a password.
func (b *Bot) deleteCredentials(msg *tgbotapi.Message) {
	if _, err := b.client.Request(tgbotapi.NewDeleteMessage(msg.Chat.ID, msg.MessageID)); err != nil {
		log.Printf("delete credentials message: %v", err)
	}
}

func (b *Bot) handleRegister(ctx context.Context, sess *session.Session, msg *tgbotapi.Message) error {
	args := strings.Fields(msg.CommandArguments())
	if len(args) > 1 {
		b.deleteCredentials(msg)
	}
	if len(args) < 2 {
		return b.sendText(msg.Chat.ID, "Usage: /register &lt;email&gt; &lt;password&gt; [name]")
	}

	name := strings.Join(args[2:], " ")
	if name == "" {
		name = msg.From.FirstName
	}
	user, err := b.svc.Accounts.Register(ctx, sess, service.RegisterInput{
		Email:    args[0],
		Password: args[1],
		Name:     name,
	}, b.now())
	if err != nil {
		return b.sendText(msg.Chat.ID, userError(err))
	}
	b.clearConversation(msg.From.ID)
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🎉 Welcome, %s! Level %d · %d XP.\nAdd your first quest with /newquest.",
		escape(user.DisplayName()), user.Level, user.TotalPoints))
}

func (b *Bot) handleLogin(ctx context.Context, sess *session.Session, msg *tgbotapi.Message) error {
	args := strings.Fields(msg.CommandArguments())
	if len(args) > 1 {
		b.deleteCredentials(msg)
	}
	if len(args) != 2 {
		return b.sendText(msg.Chat.ID, "Usage: /login &lt;email&gt; &lt;password&gt;")
	}

	user, err := b.svc.Accounts.Login(ctx, sess, args[0], args[1], b.now())
	if err != nil {
		return b.sendText(msg.Chat.ID, userError(err))
	}
	b.clearConversation(msg.From.ID)
	return b.sendText(msg.Chat.ID, fmt.Sprintf("👋 Welcome back, %s! Level %d · %d XP.",
		escape(user.DisplayName()), user.Level, user.TotalPoints))
}

func (b *Bot) handleLogout(sess *session.Session, msg *tgbotapi.Message) error {
	if !sess.LoggedIn() {
		return b.sendText(msg.Chat.ID, "You are not signed in.")
	}
	b.svc.Accounts.Logout(sess)
	b.clearConversation(msg.From.ID)
	b.clearConfirmation(msg.From.ID)
	return b.sendText(msg.Chat.ID, "👋 Signed out.")
}

func (b *Bot) handleListQuests(ctx context.Context, sess *session.Session, msg *tgbotapi.Message) error {
	log.Printf("[info] list quests for %s", sess.Email)
	return b.sendQuestList(ctx, sess, msg.Chat.ID)
}

// sendQuestList shows open quests grouped by category with inline buttons.
func (b *Bot) sendQuestList(ctx context.Context, sess *session.Session, chatID int64) error {
	tasks, err := b.svc.Tasks.ListPending(ctx, sess)
	if err != nil {
		return b.sendText(chatID, userError(err))
	}
	if len(tasks) == 0 {
		return b.sendText(chatID, "You have no open quests. Add one with /newquest.")
	}

	type categoryGroup struct {
		Name  string
		Tasks []model.Task
	}
	groups := make(map[string]*categoryGroup)
	order := make([]string, 0, len(tasks))
	for _, task := range tasks {
		key := categoryKey(task.Category)
		group, ok := groups[key]
		if !ok {
			group = &categoryGroup{Name: categoryLabel(task.Category)}
			groups[key] = group
			order = append(order, key)
		}
		group.Tasks = append(group.Tasks, task)
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i] == noCategoryKey {
			return false
		}
		if order[j] == noCategoryKey {
			return true
		}
		return strings.Compare(groups[order[i]].Name, groups[order[j]].Name) < 0
	})

	now := b.now()
	var builder strings.Builder
	builder.WriteString("📋 <b>Open quests</b>\n")
	builder.WriteString("Tap a button to complete or delete a quest.\n\n")

	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, key := range order {
		section := groups[key]
		sort.SliceStable(section.Tasks, func(i, j int) bool {
			a, c := section.Tasks[i], section.Tasks[j]
			if !a.Deadline.Equal(c.Deadline.Time) {
				if a.Deadline.IsZero() || c.Deadline.IsZero() {
					return !a.Deadline.IsZero()
				}
				return a.Deadline.Before(c.Deadline.Time)
			}
			return a.ID < c.ID
		})

		builder.WriteString(fmt.Sprintf("<b>%s</b>\n", section.Name))
		for _, task := range section.Tasks {
			builder.WriteString(formatQuest(task, now))
			buttons = append(buttons, questButtons(taskRef(task), task.Title))
		}
	}

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err = b.client.Send(msg)
	return err
}

func (b *Bot) handleDone(ctx context.Context, sess *session.Session, msg *tgbotapi.Message) error {
	tasks, err := b.svc.Tasks.ListCompleted(ctx, sess)
	if err != nil {
		return b.sendText(msg.Chat.ID, userError(err))
	}
	return b.sendText(msg.Chat.ID, formatCompleted(tasks, completedListLimit))
}

func (b *Bot) handleComplete(ctx context.Context, sess *session.Session, msg *tgbotapi.Message) error {
	ref := strings.TrimSpace(msg.CommandArguments())
	if ref == "" {
		return b.sendText(msg.Chat.ID, "Send the quest id: /complete 12")
	}
	text, err := b.completeQuest(ctx, sess, ref)
	if err != nil {
		return b.sendText(msg.Chat.ID, userError(err))
	}
	return b.sendText(msg.Chat.ID, text)
}

// completeQuest credits ref and renders the outcome.
func (b *Bot) completeQuest(ctx context.Context, sess *session.Session, ref string) (string, error) {
	prevLevel := sess.Standing(0).Level
	res, err := b.svc.Scoring.CompleteQuest(ctx, sess, ref, b.now())
	if err != nil {
		return "", err
	}
	return formatCompletion(res, prevLevel), nil
}

func (b *Bot) handleDelete(ctx context.Context, sess *session.Session, msg *tgbotapi.Message) error {
	ref := strings.TrimSpace(msg.CommandArguments())
	if ref == "" {
		return b.sendText(msg.Chat.ID, "Send the quest id: /delete 12")
	}
	title, err := b.svc.Tasks.DeleteTask(ctx, sess, ref)
	if err != nil {
		return b.sendText(msg.Chat.ID, userError(err))
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🗑 Quest «%s» deleted.", escape(normalizeTitle(title))))
}

func (b *Bot) handleLeaderboard(ctx context.Context, sess *session.Session, msg *tgbotapi.Message) error {
	entries, err := b.svc.Leaderboard.Top(ctx, sess, 0, b.now())
	if err != nil {
		return b.sendText(msg.Chat.ID, userError(err))
	}
	return b.sendText(msg.Chat.ID, formatLeaderboard(entries))
}

func (b *Bot) handleProfile(ctx context.Context, sess *session.Session, msg *tgbotapi.Message) error {
	ov, err := b.svc.Overview.Overview(ctx, sess, b.now())
	if err != nil {
		return b.sendText(msg.Chat.ID, userError(err))
	}
	return b.sendText(msg.Chat.ID, formatProfile(ov))
}

func (b *Bot) handleSetField(ctx context.Context, sess *session.Session, msg *tgbotapi.Message, field string) error {
	value := strings.TrimSpace(msg.CommandArguments())
	if value == "" && field != "bio" {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Usage: /%s &lt;value&gt;", msg.Command()))
	}

	var input service.ProfileInput
	switch field {
	case "name":
		input.Name = &value
	case "bio":
		input.Bio = &value
	case "avatar_url":
		input.AvatarURL = &value
	}
	res, err := b.svc.Accounts.UpdateProfile(ctx, sess, input)
	if err != nil {
		return b.sendText(msg.Chat.ID, userError(err))
	}
	return b.sendText(msg.Chat.ID, formatNegotiation(res))
}

// handleCategories lists the presets, or stores the named categories as the
// user's favourites.
func (b *Bot) handleCategories(ctx context.Context, sess *session.Session, msg *tgbotapi.Message) error {
	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		return b.sendText(msg.Chat.ID, formatCategories(sess))
	}

	var names []string
	for _, raw := range strings.FieldsFunc(args, func(r rune) bool { return r == ',' || r == ' ' }) {
		cat, ok := model.FindCategory(raw)
		if !ok {
			return b.sendText(msg.Chat.ID, fmt.Sprintf("Unknown category %q. See /categories.", escape(raw)))
		}
		names = append(names, cat.Name)
	}
	res, err := b.svc.Accounts.UpdateProfile(ctx, sess, service.ProfileInput{PreferredCategories: names})
	if err != nil {
		return b.sendText(msg.Chat.ID, userError(err))
	}
	return b.sendText(msg.Chat.ID, formatNegotiation(res))
}

func formatCategories(sess *session.Session) string {
	preferred := make(map[string]bool)
	if sess.User != nil {
		for _, name := range sess.User.PreferredCategories {
			preferred[strings.ToLower(name)] = true
		}
	}
	var builder strings.Builder
	builder.WriteString("📂 <b>Categories</b>\n")
	for _, cat := range model.DefaultCategories {
		star := ""
		if preferred[strings.ToLower(cat.Name)] {
			star = " ⭐"
		}
		builder.WriteString(fmt.Sprintf("<b>%s</b>%s\n", categoryLabel(cat.Name), star))
		for _, act := range cat.Activities {
			builder.WriteString(fmt.Sprintf("   • %s\n", escape(activityLabel(act))))
		}
	}
	builder.WriteString("\nMark favourites with /categories Fitness, Study")
	return builder.String()
}

func (b *Bot) handleHistory(ctx context.Context, sess *session.Session, msg *tgbotapi.Message) error {
	if !sess.LoggedIn() {
		return b.sendText(msg.Chat.ID, userError(service.ErrNotSignedIn))
	}
	days := b.config.HistoryDays
	if args := strings.TrimSpace(msg.CommandArguments()); args != "" {
		n, err := strconv.Atoi(args)
		if err != nil || n < 1 || n > 365 {
			return b.sendText(msg.Chat.ID, "Days must be a number from 1 to 365, e.g. /history 14")
		}
		days = n
	}
	if days <= 0 {
		days = 7
	}

	history, err := b.svc.Points.History(ctx, sess.Email, days, b.now())
	if err != nil {
		sess.RecordError("points history", err)
		return b.sendText(msg.Chat.ID, userError(err))
	}
	return b.sendText(msg.Chat.ID, formatHistory(history))
}

func (b *Bot) handleActivity(ctx context.Context, sess *session.Session, msg *tgbotapi.Message) error {
	entries, err := b.svc.Activity.Recent(ctx, sess, 0)
	if err != nil {
		return b.sendText(msg.Chat.ID, userError(err))
	}
	return b.sendText(msg.Chat.ID, formatActivity(entries))
}

func (b *Bot) handleReport(ctx context.Context, sess *session.Session, msg *tgbotapi.Message) error {
	if !sess.LoggedIn() {
		return b.sendText(msg.Chat.ID, userError(service.ErrNotSignedIn))
	}
	text, err := b.svc.Digest.DailySummary(ctx, sess.Email, b.now())
	if err != nil {
		sess.RecordError("daily report", err)
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not build the report: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleDebug(sess *session.Session, msg *tgbotapi.Message) error {
	var builder strings.Builder
	builder.WriteString("🛠 <b>Session</b>\n")
	builder.WriteString(fmt.Sprintf("id: <code>%s</code>\n", escape(sess.ID)))
	if sess.LoggedIn() {
		builder.WriteString(fmt.Sprintf("user: %s\n", escape(sess.Email)))
	} else {
		builder.WriteString("user: anonymous\n")
	}
	if held, ok := sess.Display.Overridden(); ok {
		builder.WriteString(fmt.Sprintf("override: %d XP · L%d\n", held.TotalPoints, held.Level))
	} else {
		builder.WriteString("override: none\n")
	}
	lastError := sess.LastError
	if lastError == "" {
		lastError = "none"
	}
	builder.WriteString(fmt.Sprintf("last error: %s", escape(lastError)))
	return b.sendText(msg.Chat.ID, builder.String())
}

func (b *Bot) handleMenuAlias(ctx context.Context, sess *session.Session, msg *tgbotapi.Message) (bool, error) {
	text := strings.TrimSpace(strings.ToLower(msg.Text))
	switch text {
	case strings.ToLower(menuLabelNewQuest):
		return true, b.startNewQuestConversation(sess, msg)
	case strings.ToLower(menuLabelQuests):
		return true, b.handleListQuests(ctx, sess, msg)
	case strings.ToLower(menuLabelProfile):
		return true, b.handleProfile(ctx, sess, msg)
	case strings.ToLower(menuLabelLeaderboard):
		return true, b.handleLeaderboard(ctx, sess, msg)
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}
