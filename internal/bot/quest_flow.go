package bot

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"questboard/internal/model"
	"questboard/internal/service"
	"questboard/internal/session"
)

func (b *Bot) startNewQuestConversation(sess *session.Session, msg *tgbotapi.Message) error {
	if !sess.LoggedIn() {
		return b.sendText(msg.Chat.ID, userError(service.ErrNotSignedIn))
	}
	log.Printf("[info] start new quest conversation user=%d", msg.From.ID)
	b.clearConfirmation(msg.From.ID)
	b.setConversation(msg.From.ID, &conversationState{stage: stageCategory})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 New quest.\n<b>Step 1:</b> pick a category, or tap «Custom» for a quest of your own.", categoryKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, sess *session.Session, msg *tgbotapi.Message) error {
	state := b.getConversation(msg.From.ID)
	if state == nil {
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	switch state.stage {
	case stageCategory:
		state.stage = stageTitle
		if isCustomCategoryInput(text) || isSkipInput(text) {
			return b.sendWithReplyMarkup(msg.Chat.ID, "✏️ <b>Step 2:</b> what is the quest called?", cancelKeyboard())
		}
		if cat, ok := model.FindCategory(text); ok {
			state.input.Category = cat.Name
			return b.sendWithReplyMarkup(msg.Chat.ID,
				fmt.Sprintf("✏️ <b>Step 2:</b> pick a %s activity or type your own title.", categoryLabel(cat.Name)),
				activityKeyboard(cat))
		}
		state.input.Category = text
		return b.sendWithReplyMarkup(msg.Chat.ID, "✏️ <b>Step 2:</b> what is the quest called?", cancelKeyboard())
	case stageTitle:
		if text == "" {
			return b.sendWithReplyMarkup(msg.Chat.ID, "The title cannot be empty.", cancelKeyboard())
		}
		if cat, ok := model.FindCategory(state.input.Category); ok {
			if act, ok := parseActivityLabel(cat, text); ok {
				state.input.Activity = act.Name
				state.stage = stageDeadline
				return b.askDeadline(msg.Chat.ID)
			}
		}
		state.input.Title = text
		state.stage = stagePoints
		return b.sendWithReplyMarkup(msg.Chat.ID,
			fmt.Sprintf("⭐ How many XP is it worth? (%d–%d)", service.MinQuestPoints, service.MaxQuestPoints), cancelKeyboard())
	case stagePoints:
		points, err := strconv.Atoi(text)
		if err != nil || points < service.MinQuestPoints || points > service.MaxQuestPoints {
			return b.sendWithReplyMarkup(msg.Chat.ID,
				fmt.Sprintf("XP must be a number from %d to %d.", service.MinQuestPoints, service.MaxQuestPoints), cancelKeyboard())
		}
		state.input.Points = points
		state.stage = stageDeadline
		return b.askDeadline(msg.Chat.ID)
	case stageDeadline:
		if !isSkipInput(text) {
			parsed, err := model.ParseNaive(text)
			if err != nil {
				return b.sendWithReplyMarkup(msg.Chat.ID, "I cannot read that date. Use <code>2025-11-30</code> or <code>2025-11-30 18:00</code>, or skip.", skipKeyboard())
			}
			state.input.Deadline = &parsed
		}
		state.stage = stageRepeat
		return b.sendWithReplyMarkup(msg.Chat.ID,
			fmt.Sprintf("🔁 Repeat every how many days? (1–%d, or skip for a one-off)", service.MaxRepeatDays), skipKeyboard())
	case stageRepeat:
		if !isSkipInput(text) {
			days, err := strconv.Atoi(text)
			if err != nil || days < 0 || days > service.MaxRepeatDays {
				return b.sendWithReplyMarkup(msg.Chat.ID,
					fmt.Sprintf("Repeat must be a number from 0 to %d.", service.MaxRepeatDays), skipKeyboard())
			}
			state.input.RepeatDays = days
		}
		state.stage = stageDescription
		return b.sendWithReplyMarkup(msg.Chat.ID, "📝 Add a short description (or skip).", skipKeyboard())
	case stageDescription:
		if !isSkipInput(text) {
			state.input.Description = text
		}
		err := b.finishQuestCreation(ctx, sess, state.input, msg.Chat.ID)
		b.clearConversation(msg.From.ID)
		return err
	default:
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "The dialog was reset. Start again with /newquest.")
	}
}

func (b *Bot) askDeadline(chatID int64) error {
	return b.sendWithReplyMarkup(chatID, "⏰ When is it due? <code>2025-11-30</code> or <code>2025-11-30 18:00</code>. Skip for this time tomorrow.", skipKeyboard())
}

func (b *Bot) finishQuestCreation(ctx context.Context, sess *session.Session, input service.TaskInput, chatID int64) error {
	task, err := b.svc.Tasks.CreateTask(ctx, sess, input, b.now())
	if err != nil {
		return b.sendTextWithRemove(chatID, fmt.Sprintf("Could not save the quest. %s", userError(err)))
	}

	msg := tgbotapi.NewMessage(chatID, formatCreated(task))
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.client.Send(msg); err != nil {
		return err
	}
	return b.sendQuestList(ctx, sess, chatID)
}
