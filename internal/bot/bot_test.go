package bot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/example/revisionbot/internal/database"
	"github.com/example/revisionbot/internal/scheduler"
	"github.com/example/revisionbot/internal/study"
	"github.com/example/revisionbot/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const adminID = 1

type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	fileURL  string
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetFileDirectURL(fileID string) (string, error) {
	return f.fileURL + "/" + fileID, nil
}

func (f *fakeAPI) lastMessage(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if msg, ok := f.sent[i].(tgbotapi.MessageConfig); ok {
			return msg
		}
	}
	t.Fatal("no message sent")
	return tgbotapi.MessageConfig{}
}

type fixture struct {
	bot    *Bot
	api    *fakeAPI
	svc    *study.Service
	users  *database.UserRepository
	topics []models.Topic
}

func newFixture(t *testing.T, names ...string) *fixture {
	t.Helper()

	db, err := database.Connect(database.DriverSQLite, filepath.Join(t.TempDir(), "bot.db"))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo := database.NewTopicRepository(db)
	var topics []models.Topic
	for _, name := range names {
		topic := &models.Topic{Name: name, Title: strings.TrimSuffix(filepath.Base(name), ".md"), URL: "https://example.com/" + name}
		if err := repo.Create(context.Background(), topic); err != nil {
			t.Fatalf("create topic: %v", err)
		}
		topics = append(topics, *topic)
	}

	api := &fakeAPI{}
	svc := study.NewService(db, nil, nil, study.Config{})
	users := database.NewUserRepository(db)
	config := DefaultConfig()
	config.AdminUserIDs = []int64{adminID}
	return &fixture{bot: newBot(api, svc, users, config), api: api, svc: svc, users: users, topics: topics}
}

func command(userID int64, text string) *tgbotapi.Message {
	length := len(text)
	if i := strings.Index(text, " "); i >= 0 {
		length = i
	}
	return &tgbotapi.Message{
		From:     &tgbotapi.User{ID: userID, UserName: "tester"},
		Chat:     &tgbotapi.Chat{ID: userID},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}},
	}
}

func (f *fixture) run(t *testing.T, userID int64, text string) string {
	t.Helper()
	if err := f.bot.HandleCommand(context.Background(), command(userID, text)); err != nil {
		t.Fatalf("%s: %v", text, err)
	}
	return f.api.lastMessage(t).Text
}

func (f *fixture) press(t *testing.T, userID int64, data string) string {
	t.Helper()
	cb := &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: userID},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: userID}},
		Data:    data,
	}
	if err := f.bot.HandleCallback(context.Background(), cb); err != nil {
		t.Fatalf("callback %s: %v", data, err)
	}
	return f.api.lastMessage(t).Text
}

func TestStartRegistersUser(t *testing.T) {
	f := newFixture(t)

	text := f.run(t, 5, "/start")
	if !strings.Contains(text, "Welcome") {
		t.Fatalf("unexpected reply %q", text)
	}
	user, err := f.users.GetByID(context.Background(), 5)
	if err != nil {
		t.Fatalf("expected user to be stored: %v", err)
	}
	if !user.NotificationEnabled || user.NotificationHour != 9 || user.IsAdmin {
		t.Fatalf("unexpected user %+v", user)
	}
}

func TestNextShowsTopicCard(t *testing.T) {
	f := newFixture(t, "Java/streams.md", "Java/generics.md")

	text := f.run(t, 5, "/next")
	if !strings.Contains(text, "generics") || !strings.Contains(text, "Never revised") {
		t.Fatalf("unexpected card %q", text)
	}

	markup, ok := f.api.lastMessage(t).ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok {
		t.Fatal("expected inline keyboard")
	}
	data := markup.InlineKeyboard[0][0].CallbackData
	if data == nil || *data != "ask_2" {
		t.Fatalf("expected ask_2 button, got %v", data)
	}
}

func TestNextWithoutTopics(t *testing.T) {
	f := newFixture(t)
	if text := f.run(t, 5, "/next"); !strings.Contains(text, "no topics") {
		t.Fatalf("unexpected reply %q", text)
	}
}

func TestStudyThenRevisedButtonStoresResponse(t *testing.T) {
	f := newFixture(t, "Java/generics.md")
	id := f.topics[0].ID

	text := f.run(t, 5, "/study 1 quiz")
	if !strings.Contains(text, "Quiz: generics") || !strings.Contains(text, f.topics[0].URL) {
		t.Fatalf("unexpected study reply %q", text)
	}

	text = f.press(t, 5, "revised_1")
	if !strings.Contains(text, "marked revised") || !strings.Contains(text, "Next review") {
		t.Fatalf("unexpected revised reply %q", text)
	}

	history, err := f.svc.History(context.Background(), id)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 || history[0].UserID != 5 || !strings.Contains(history[0].Response, "No AI answer") {
		t.Fatalf("unexpected history %+v", history)
	}
	if len(f.api.requests) < 2 {
		t.Fatalf("expected chat action and callback answer, got %d requests", len(f.api.requests))
	}
}

func TestStudyUnknownTopicAndMode(t *testing.T) {
	f := newFixture(t, "Java/generics.md")

	if text := f.run(t, 5, "/study 99"); !strings.Contains(text, "#99 not found") {
		t.Fatalf("unexpected reply %q", text)
	}
	if text := f.run(t, 5, "/study 1 poem"); !strings.Contains(text, "unknown prompt mode") {
		t.Fatalf("unexpected reply %q", text)
	}
	if text := f.run(t, 5, "/prompt 1 summary"); !strings.Contains(text, "cheat sheet") {
		t.Fatalf("unexpected prompt %q", text)
	}
}

func TestPriorityCommand(t *testing.T) {
	f := newFixture(t, "Java/generics.md")

	if text := f.run(t, 5, "/priority 1 2"); !strings.Contains(text, "set to 2") {
		t.Fatalf("unexpected reply %q", text)
	}
	if text := f.run(t, 5, "/priority 1 0"); !strings.Contains(text, "1 or greater") {
		t.Fatalf("unexpected reply %q", text)
	}
	if text := f.run(t, 5, "/priority 1 none"); !strings.Contains(text, "cleared") {
		t.Fatalf("unexpected reply %q", text)
	}
	if text := f.run(t, 5, "/priority 1"); !strings.Contains(text, "/priority <id>") {
		t.Fatalf("unexpected reply %q", text)
	}
}

func TestBookmarkCommands(t *testing.T) {
	f := newFixture(t, "Java/generics.md")

	if text := f.run(t, 5, "/bookmark 1 type erasure"); !strings.Contains(text, "Bookmarked") {
		t.Fatalf("unexpected reply %q", text)
	}
	if text := f.run(t, 5, "/bookmarks"); !strings.Contains(text, "type erasure") {
		t.Fatalf("unexpected bookmarks %q", text)
	}
	if text := f.run(t, 6, "/bookmarks"); !strings.Contains(text, "no bookmarks") {
		t.Fatalf("bookmarks should be per user, got %q", text)
	}
	if text := f.run(t, 5, "/unbookmark 1"); !strings.Contains(text, "removed") {
		t.Fatalf("unexpected reply %q", text)
	}
	if text := f.run(t, 5, "/unbookmark 1"); !strings.Contains(text, "not bookmarked") {
		t.Fatalf("unexpected reply %q", text)
	}
	if text := f.press(t, 5, "bookmark_1"); !strings.Contains(text, "Bookmarked") {
		t.Fatalf("unexpected reply %q", text)
	}
}

func TestBookmarkButtonKeepsNote(t *testing.T) {
	f := newFixture(t, "Java/generics.md")

	f.run(t, 5, "/bookmark 1 type erasure")
	if text := f.press(t, 5, "bookmark_1"); !strings.Contains(text, "Bookmarked") {
		t.Fatalf("unexpected reply %q", text)
	}
	if text := f.run(t, 5, "/bookmarks"); !strings.Contains(text, "type erasure") {
		t.Fatalf("button bookmark dropped the note, got %q", text)
	}
}

func TestRemindCommand(t *testing.T) {
	f := newFixture(t, "Java/generics.md", "Java/streams.md")

	if text := f.run(t, 5, "/remind"); !strings.Contains(text, "switched off") {
		t.Fatalf("expected reminders to be off, got %q", text)
	}

	f.bot.SetReminders(scheduler.New(f.users, f.svc, f.bot, nil, scheduler.Config{}))
	if text := f.run(t, 5, "/remind"); !strings.Contains(text, "2 topics due") {
		t.Fatalf("unexpected reminder %q", text)
	}

	f.run(t, 5, "/revised 1")
	f.run(t, 5, "/revised 2")
	if text := f.run(t, 5, "/remind"); !strings.Contains(text, "Nothing is due") {
		t.Fatalf("unexpected reply %q", text)
	}
}

func TestNotificationSettings(t *testing.T) {
	f := newFixture(t)

	f.run(t, 5, "/notify off")
	if text := f.run(t, 5, "/time 7"); !strings.Contains(text, "07:00") {
		t.Fatalf("unexpected reply %q", text)
	}
	if text := f.run(t, 5, "/time 24"); !strings.Contains(text, "valid hour") {
		t.Fatalf("unexpected reply %q", text)
	}

	user, err := f.users.GetByID(context.Background(), 5)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if user.NotificationEnabled || user.NotificationHour != 7 {
		t.Fatalf("unexpected settings %+v", user)
	}
}

func TestAdminCommands(t *testing.T) {
	f := newFixture(t, "Java/generics.md")

	if text := f.run(t, 5, "/sync"); !strings.Contains(text, "administrators") {
		t.Fatalf("expected admin check, got %q", text)
	}
	if text := f.run(t, adminID, "/sync"); !strings.Contains(text, "NOTES_REPO_URL") {
		t.Fatalf("unexpected reply %q", text)
	}

	if err := f.bot.HandleCommand(context.Background(), command(adminID, "/export xlsx")); err != nil {
		t.Fatalf("export: %v", err)
	}
	doc, ok := f.api.sent[len(f.api.sent)-1].(tgbotapi.DocumentConfig)
	if !ok {
		t.Fatalf("expected a document, got %T", f.api.sent[len(f.api.sent)-1])
	}
	file, ok := doc.File.(tgbotapi.FileBytes)
	if !ok || file.Name != "topics.xlsx" || len(file.Bytes) == 0 {
		t.Fatalf("unexpected export file %+v", doc.File)
	}
}

func TestDocumentImport(t *testing.T) {
	f := newFixture(t, "Java/generics.md")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("articleName,articleUrl\nJava/generics.md,https://x/g\nSpring/aop.md,https://x/aop\n"))
	}))
	defer srv.Close()
	f.api.fileURL = srv.URL

	upload := &tgbotapi.Message{
		From:     &tgbotapi.User{ID: adminID},
		Chat:     &tgbotapi.Chat{ID: adminID},
		Document: &tgbotapi.Document{FileID: "file-1", FileName: "topics.csv"},
	}
	f.bot.handleUpdate(context.Background(), tgbotapi.Update{Message: upload})

	text := f.api.lastMessage(t).Text
	if !strings.Contains(text, "New: 1") || !strings.Contains(text, "Updated: 1") {
		t.Fatalf("unexpected import reply %q", text)
	}

	upload.From.ID = 5
	upload.Chat.ID = 5
	f.bot.handleUpdate(context.Background(), tgbotapi.Update{Message: upload})
	if text := f.api.lastMessage(t).Text; !strings.Contains(text, "Only administrators") {
		t.Fatalf("unexpected reply %q", text)
	}
}

func TestSendReminders(t *testing.T) {
	f := newFixture(t)
	if err := f.bot.SendReminders(9, 1); err != nil {
		t.Fatalf("send reminders: %v", err)
	}
	msg := f.api.lastMessage(t)
	if msg.ChatID != 9 || !strings.Contains(msg.Text, "1 topic due") {
		t.Fatalf("unexpected reminder %+v", msg)
	}
}

func TestLongMessagesAreSplit(t *testing.T) {
	f := newFixture(t)
	f.bot.config.MaxMessageLength = 10

	if err := f.bot.reply(1, "line one\nline two\nline three"); err != nil {
		t.Fatalf("reply: %v", err)
	}
	if len(f.api.sent) != 3 {
		t.Fatalf("expected 3 parts, got %d", len(f.api.sent))
	}

	parts := splitText("abcdefghijkl", 5)
	if len(parts) != 3 || parts[2] != "kl" {
		t.Fatalf("unexpected parts %q", parts)
	}
}
