package bot

import (
	"context"
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"questboard/internal/session"
)

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}
	b.ack(cb)

	sess, err := b.loadSession(ctx, cb.From.ID, cb.Message.Chat.ID)
	if err != nil {
		return err
	}
	defer b.saveSession(ctx, sess)

	data := cb.Data
	switch {
	case strings.HasPrefix(data, cbCompletePrefix):
		ref := parseRef(data, cbCompletePrefix)
		log.Printf("[info] callback complete request user=%d quest=%s", cb.From.ID, ref)
		if ref == "" {
			return nil
		}
		return b.askCompleteConfirmation(ctx, sess, cb.Message.Chat.ID, cb.From.ID, ref)
	case strings.HasPrefix(data, cbDeletePrefix):
		ref := parseRef(data, cbDeletePrefix)
		log.Printf("[info] callback delete request user=%d quest=%s", cb.From.ID, ref)
		if ref == "" {
			return nil
		}
		return b.askDeleteConfirmation(ctx, sess, cb.Message.Chat.ID, cb.From.ID, ref)
	default:
		return nil
	}
}

func parseRef(data, prefix string) string {
	return strings.TrimSpace(strings.TrimPrefix(data, prefix))
}

func (b *Bot) askCompleteConfirmation(ctx context.Context, sess *session.Session, chatID, userID int64, ref string) error {
	task, err := b.svc.Tasks.GetTask(ctx, sess, ref)
	if err != nil {
		return b.sendText(chatID, userError(err))
	}
	if task.IsCompleted {
		return b.sendText(chatID, "This quest is already completed.")
	}

	text := fmt.Sprintf("Complete quest «%s» (#%d) for %d XP?", escape(normalizeTitle(task.Title)), task.ID, task.Points)
	b.setConfirmation(userID, confirmationRequest{ref: ref, action: actionComplete})
	return b.sendWithReplyMarkup(chatID, text, confirmKeyboard())
}

func (b *Bot) askDeleteConfirmation(ctx context.Context, sess *session.Session, chatID, userID int64, ref string) error {
	task, err := b.svc.Tasks.GetTask(ctx, sess, ref)
	if err != nil {
		return b.sendText(chatID, userError(err))
	}

	text := fmt.Sprintf("Delete quest «%s» (#%d)?", escape(normalizeTitle(task.Title)), task.ID)
	b.setConfirmation(userID, confirmationRequest{ref: ref, action: actionDelete})
	return b.sendWithReplyMarkup(chatID, text, confirmKeyboard())
}

func (b *Bot) handleConfirmationResponse(ctx context.Context, sess *session.Session, msg *tgbotapi.Message, req confirmationRequest) error {
	text := strings.TrimSpace(msg.Text)
	switch {
	case isConfirmInput(text):
		b.clearConfirmation(msg.From.ID)
		if req.action == actionDelete {
			return b.deleteAndRefresh(ctx, sess, msg.Chat.ID, req.ref)
		}
		return b.completeAndRefresh(ctx, sess, msg.Chat.ID, req.ref)
	case isCancelInput(text):
		b.clearConfirmation(msg.From.ID)
		return b.sendMenuPlaceholder(msg.Chat.ID)
	default:
		prompt := "Confirm or cancel completing the quest."
		if req.action == actionDelete {
			prompt = "Confirm or cancel deleting the quest."
		}
		return b.sendWithReplyMarkup(msg.Chat.ID, prompt, confirmKeyboard())
	}
}

func (b *Bot) completeAndRefresh(ctx context.Context, sess *session.Session, chatID int64, ref string) error {
	text, err := b.completeQuest(ctx, sess, ref)
	if err != nil {
		return b.sendTextWithRemove(chatID, userError(err))
	}
	if err := b.sendTextWithRemove(chatID, text); err != nil {
		return err
	}
	return b.sendQuestList(ctx, sess, chatID)
}

func (b *Bot) deleteAndRefresh(ctx context.Context, sess *session.Session, chatID int64, ref string) error {
	title, err := b.svc.Tasks.DeleteTask(ctx, sess, ref)
	if err != nil {
		return b.sendTextWithRemove(chatID, userError(err))
	}
	log.Printf("[info] quest deleted ref=%s user=%s", ref, sess.Email)
	if err := b.sendTextWithRemove(chatID, fmt.Sprintf("🗑 Quest «%s» deleted.", escape(normalizeTitle(title)))); err != nil {
		return err
	}
	return b.sendQuestList(ctx, sess, chatID)
}
