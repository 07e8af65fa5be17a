package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"questboard/internal/config"
	"questboard/internal/service"
	"questboard/internal/session"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageCategory
	stageTitle
	stagePoints
	stageDeadline
	stageRepeat
	stageDescription
)

const (
	cbCompletePrefix = "complete:"
	cbDeletePrefix   = "delete:"
)

type conversationState struct {
	stage conversationStage
	input service.TaskInput
}

type confirmationAction int

const (
	actionComplete confirmationAction = iota
	actionDelete
)

type confirmationRequest struct {
	ref    string
	action confirmationAction
}

// sender is the part of the Telegram client the handlers use.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot aggregates Telegram API with services.
type Bot struct {
	api           *tgbotapi.BotAPI
	client        sender
	svc           *service.Services
	sessions      session.Registry
	config        config.Config
	now           func() time.Time
	conversations map[int64]*conversationState
	confirmations map[int64]confirmationRequest
	chats         map[int64]int64
	mu            sync.Mutex
}

func New(cfg config.Config, svc *service.Services, sessions session.Registry) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[info] bot authorized on account %s", api.Self.UserName)

	b := newBot(api, svc, sessions, cfg)
	b.api = api
	return b, nil
}

func newBot(client sender, svc *service.Services, sessions session.Registry, cfg config.Config) *Bot {
	return &Bot{
		client:        client,
		svc:           svc,
		sessions:      sessions,
		config:        cfg,
		now:           time.Now,
		conversations: make(map[int64]*conversationState),
		confirmations: make(map[int64]confirmationRequest),
		chats:         make(map[int64]int64),
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	if b.api == nil {
		return errors.New("bot api is not initialised")
	}
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				log.Printf("handle callback: %v", err)
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				log.Printf("handle message: %v", err)
			}
		}
	}

	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	sess, err := b.loadSession(ctx, msg.From.ID, msg.Chat.ID)
	if err != nil {
		return err
	}
	defer b.saveSession(ctx, sess)

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Quest creation cancelled.")
	}

	if !msg.IsCommand() {
		if handled, err := b.handleMenuAlias(ctx, sess, msg); handled {
			return err
		}
	}

	if msg.IsCommand() {
		log.Printf("[info] command from %d: /%s", msg.From.ID, msg.Command())
		return b.handleCommand(ctx, sess, msg)
	}

	if pending, ok := b.getConfirmation(msg.From.ID); ok {
		return b.handleConfirmationResponse(ctx, sess, msg, pending)
	}

	if b.hasConversation(msg.From.ID) {
		log.Printf("[info] conversation step %d from %d", b.getConversation(msg.From.ID).stage, msg.From.ID)
		return b.handleConversation(ctx, sess, msg)
	}

	return b.sendText(msg.Chat.ID, "I did not get that. Send /newquest to add a quest or /help for the command list.")
}

func (b *Bot) handleCommand(ctx context.Context, sess *session.Session, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(sess, msg)
	case "help":
		return b.handleHelp(msg)
	case "register":
		return b.handleRegister(ctx, sess, msg)
	case "login":
		return b.handleLogin(ctx, sess, msg)
	case "logout":
		return b.handleLogout(sess, msg)
	case "newquest":
		return b.startNewQuestConversation(sess, msg)
	case "quests":
		return b.handleListQuests(ctx, sess, msg)
	case "done":
		return b.handleDone(ctx, sess, msg)
	case "complete":
		return b.handleComplete(ctx, sess, msg)
	case "delete":
		return b.handleDelete(ctx, sess, msg)
	case "leaderboard":
		return b.handleLeaderboard(ctx, sess, msg)
	case "profile":
		return b.handleProfile(ctx, sess, msg)
	case "setname":
		return b.handleSetField(ctx, sess, msg, "name")
	case "setbio":
		return b.handleSetField(ctx, sess, msg, "bio")
	case "setavatar":
		return b.handleSetField(ctx, sess, msg, "avatar_url")
	case "categories":
		return b.handleCategories(ctx, sess, msg)
	case "history":
		return b.handleHistory(ctx, sess, msg)
	case "activity":
		return b.handleActivity(ctx, sess, msg)
	case "report":
		return b.handleReport(ctx, sess, msg)
	case "debug":
		return b.handleDebug(sess, msg)
	case "cancel":
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Quest creation cancelled.")
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. Check /help.")
	}
}

// SendDailyDigest sends the daily report to every chat with a signed-in session.
func (b *Bot) SendDailyDigest(ctx context.Context) error {
	b.mu.Lock()
	chats := make(map[int64]int64, len(b.chats))
	for userID, chatID := range b.chats {
		chats[userID] = chatID
	}
	b.mu.Unlock()

	now := b.now()
	for userID, chatID := range chats {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		sess, err := b.sessions.Get(ctx, sessionID(userID))
		if err != nil {
			if !errors.Is(err, session.ErrNotFound) {
				log.Printf("load session for %d: %v", userID, err)
			}
			continue
		}
		if !sess.LoggedIn() {
			continue
		}
		text, err := b.svc.Digest.DailySummary(ctx, sess.Email, now)
		if err != nil {
			log.Printf("build digest for %s: %v", sess.Email, err)
			continue
		}
		if err := b.sendText(chatID, text); err != nil {
			log.Printf("send digest to %d: %v", chatID, err)
		}
	}
	return nil
}

func sessionID(userID int64) string {
	return "telegram-" + strconv.FormatInt(userID, 10)
}

// loadSession returns the session bound to a Telegram user, creating an
// anonymous one on first contact.
func (b *Bot) loadSession(ctx context.Context, userID, chatID int64) (*session.Session, error) {
	b.mu.Lock()
	b.chats[userID] = chatID
	b.mu.Unlock()

	sess, err := b.sessions.Get(ctx, sessionID(userID))
	switch {
	case err == nil:
		return sess, nil
	case errors.Is(err, session.ErrNotFound):
		return session.NewWithID(sessionID(userID)), nil
	default:
		return nil, fmt.Errorf("load session: %w", err)
	}
}

func (b *Bot) saveSession(ctx context.Context, sess *session.Session) {
	if err := b.sessions.Save(ctx, sess); err != nil {
		log.Printf("save session %s: %v", sess.ID, err)
	}
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.client.Send(msg)
	return err
}

func (b *Bot) sendTextWithRemove(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	if _, err := b.client.Send(msg); err != nil {
		return err
	}
	return b.sendMenuPlaceholder(chatID)
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.client.Send(msg)
	return err
}

func (b *Bot) sendMenuPlaceholder(chatID int64) error {
	msg := tgbotapi.NewMessage(chatID, "🔹 Main menu")
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.client.Send(msg)
	return err
}

func (b *Bot) ack(cb *tgbotapi.CallbackQuery) {
	if _, err := b.client.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Printf("callback ack: %v", err)
	}
}

func (b *Bot) getConfirmation(userID int64) (confirmationRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	req, ok := b.confirmations[userID]
	return req, ok
}

func (b *Bot) setConfirmation(userID int64, req confirmationRequest) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.confirmations[userID] = req
}

func (b *Bot) clearConfirmation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.confirmations, userID)
}

func (b *Bot) setConversation(userID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[userID] = state
}

func (b *Bot) getConversation(userID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[userID]
}

func (b *Bot) hasConversation(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.conversations[userID]
	return ok
}

func (b *Bot) clearConversation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, userID)
}
