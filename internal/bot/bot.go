// Package bot is the Telegram front end of the revision workflow.
package bot

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/example/revisionbot/internal/database"
	"github.com/example/revisionbot/internal/study"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// MenuButton represents a button in the menu
type MenuButton struct {
	Text         string
	CallbackData string
}

// createKeyboard creates a keyboard from menu buttons
func createKeyboard(buttons [][]MenuButton) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range buttons {
		var keyboardRow []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.CallbackData))
		}
		keyboard = append(keyboard, keyboardRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

// telegramAPI is the part of the Bot API the handlers use
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// ReminderChecker sends a user the reminder for the topics due now
type ReminderChecker interface {
	RunManualCheck(ctx context.Context, userID int64) (int, error)
}

// Bot represents the Telegram bot application
type Bot struct {
	botAPI       *tgbotapi.BotAPI
	api          telegramAPI
	svc          *study.Service
	userRepo     *database.UserRepository
	config       *BotConfig
	adminUserIDs map[int64]bool
	httpClient   *http.Client
	reminders    ReminderChecker // nil when the scheduler is off

	mu       sync.Mutex
	sessions map[int64]*study.Session // last study per chat, used by the revised button
}

// New connects to Telegram and creates a new bot instance
func New(token string, svc *study.Service, users *database.UserRepository, config *BotConfig) (*Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable is not set")
	}

	botAPI, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("unable to create bot: %w", err)
	}
	log.Printf("Authorized on account %s", botAPI.Self.UserName)

	b := newBot(botAPI, svc, users, config)
	b.botAPI = botAPI
	return b, nil
}

func newBot(api telegramAPI, svc *study.Service, users *database.UserRepository, config *BotConfig) *Bot {
	if config == nil {
		config = DefaultConfig()
	}
	b := &Bot{
		api:          api,
		svc:          svc,
		userRepo:     users,
		config:       config,
		adminUserIDs: make(map[int64]bool),
		httpClient:   &http.Client{Timeout: time.Minute},
		sessions:     make(map[int64]*study.Session),
	}
	for _, id := range config.AdminUserIDs {
		b.adminUserIDs[id] = true
	}
	return b
}

// Start handles updates until ctx is done
func (b *Bot) Start(ctx context.Context) error {
	if b.botAPI == nil {
		return fmt.Errorf("bot is not connected")
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.botAPI.GetUpdatesChan(updateConfig)

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			b.botAPI.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.handleUpdate(ctx, update)
			}()
		}
	}
}

// SetReminders enables the /remind command
func (b *Bot) SetReminders(r ReminderChecker) {
	b.reminders = r
}

// SendReminders implements the scheduler.Notifier interface
func (b *Bot) SendReminders(userID int64, count int) error {
	// private chats share the user id
	chatID := userID

	topicForm := "topics"
	if count == 1 {
		topicForm = "topic"
	}

	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("🔔 You have %d %s due for revision! Press Next topic to start.", count, topicForm))
	msg.ReplyMarkup = createKeyboard(b.MainMenuButtons())
	_, err := b.api.Send(msg)
	if err != nil {
		log.Printf("Error sending reminder to user %d: %v", userID, err)
	} else {
		log.Printf("Successfully sent reminder to user %d for %d topics", userID, count)
	}
	return err
}

// isAdmin checks if a user is an admin
func (b *Bot) isAdmin(userID int64) bool {
	return b.adminUserIDs[userID]
}

// handleUpdate handles incoming updates from Telegram
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	var err error
	switch {
	case update.Message != nil && update.Message.IsCommand():
		err = b.HandleCommand(ctx, update.Message)
	case update.Message != nil && update.Message.Document != nil:
		err = b.handleDocument(ctx, update.Message)
	case update.Message != nil:
		msg := tgbotapi.NewMessage(update.Message.Chat.ID, "I don't understand. Use /help to see the commands.")
		msg.ReplyMarkup = createKeyboard(b.MainMenuButtons())
		err = b.sendMessage(msg)
	case update.CallbackQuery != nil:
		err = b.HandleCallback(ctx, update.CallbackQuery)
	}
	if err != nil {
		log.Printf("Error handling update %d: %v", update.UpdateID, err)
	}
}

// MainMenuButtons returns the buttons shown under most replies
func (b *Bot) MainMenuButtons() [][]MenuButton {
	return [][]MenuButton{
		{
			{Text: "📚 Next topic", CallbackData: callbackNext},
			{Text: "🎲 Random topic", CallbackData: callbackRandom},
		},
	}
}

// sendMessage sends msg, splitting text longer than the Telegram limit.
// The reply markup goes with the last part.
func (b *Bot) sendMessage(msg tgbotapi.MessageConfig) error {
	parts := splitText(msg.Text, b.config.MaxMessageLength)
	for i, part := range parts {
		out := msg
		out.Text = part
		if i < len(parts)-1 {
			out.ReplyMarkup = nil
		}
		if _, err := b.api.Send(out); err != nil {
			return fmt.Errorf("failed to send message: %w", err)
		}
	}
	return nil
}

func (b *Bot) reply(chatID int64, text string) error {
	return b.sendMessage(tgbotapi.NewMessage(chatID, text))
}

// splitText cuts text into chunks of at most max runes, preferring line breaks
func splitText(text string, max int) []string {
	runes := []rune(text)
	if max <= 0 || len(runes) <= max {
		return []string{text}
	}

	var parts []string
	for len(runes) > max {
		cut := max
		if i := strings.LastIndex(string(runes[:max]), "\n"); i > 0 {
			cut = len([]rune(string(runes[:max])[:i])) + 1
		}
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}

func (b *Bot) setSession(chatID int64, s *study.Session) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions[chatID] = s
}

// takeSession returns and forgets the last session of a chat when it is about topicID
func (b *Bot) takeSession(chatID, topicID int64) *study.Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[chatID]
	if !ok || s.Topic.ID != topicID {
		return nil
	}
	delete(b.sessions, chatID)
	return s
}
