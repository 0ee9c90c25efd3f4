package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/revisionbot/internal/database"
	"github.com/example/revisionbot/internal/excel"
	"github.com/example/revisionbot/internal/prompt"
	"github.com/example/revisionbot/internal/revision"
	"github.com/example/revisionbot/internal/study"
	"github.com/example/revisionbot/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Constants for callback data
const (
	callbackNext     = "next"
	callbackRandom   = "random"
	callbackAsk      = "ask_"
	callbackRevised  = "revised_"
	callbackBookmark = "bookmark_"
)

const dateFormat = "2006-01-02"

// HandleCommand handles bot commands
func (b *Bot) HandleCommand(ctx context.Context, message *tgbotapi.Message) error {
	if message == nil || message.From == nil || message.Chat == nil {
		return fmt.Errorf("invalid message: required fields are missing")
	}

	args := strings.Fields(message.CommandArguments())
	var err error
	switch message.Command() {
	case "start":
		err = b.handleStart(ctx, message)
	case "help":
		err = b.handleHelp(message)
	case "next":
		err = b.handleNext(ctx, message.Chat.ID)
	case "random":
		err = b.handleRandom(ctx, message.Chat.ID)
	case "topics":
		err = b.handleListTopics(ctx, message, args)
	case "study":
		err = b.handleStudy(ctx, message.Chat.ID, message.From.ID, args)
	case "prompt":
		err = b.handlePrompt(ctx, message.Chat.ID, args)
	case "revised":
		err = b.handleRevised(ctx, message.Chat.ID, message.From.ID, args)
	case "priority":
		err = b.handlePriority(ctx, message.Chat.ID, args)
	case "bookmark":
		err = b.handleBookmark(ctx, message.Chat.ID, message.From.ID, args)
	case "unbookmark":
		err = b.handleUnbookmark(ctx, message.Chat.ID, message.From.ID, args)
	case "bookmarks":
		err = b.handleBookmarks(ctx, message.Chat.ID, message.From.ID)
	case "stats":
		err = b.handleStats(ctx, message.Chat.ID, message.From.ID)
	case "notify":
		err = b.handleNotifyCommand(ctx, message, args)
	case "time":
		err = b.handleTimeCommand(ctx, message, args)
	case "remind":
		err = b.handleRemind(ctx, message.Chat.ID, message.From.ID)
	case "sync", "export":
		if !b.isAdmin(message.From.ID) {
			err = b.reply(message.Chat.ID, "This command is only available for administrators.")
			break
		}
		if message.Command() == "sync" {
			err = b.handleSync(ctx, message.Chat.ID)
		} else {
			err = b.handleExport(ctx, message.Chat.ID, args)
		}
	default:
		err = b.handleUnknownCommand(message)
	}
	return err
}

func (b *Bot) handleStart(ctx context.Context, message *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, message.From); err != nil {
		return err
	}

	text := "👋 Welcome to the interview revision bot!\n\n" +
		"I keep track of your notes and tell you what to revise next.\n\n" +
		"🔹 How it works:\n" +
		"1. Ask for the next topic\n" +
		"2. Study it, with an AI generated explanation or quiz\n" +
		"3. Mark it revised\n" +
		"4. Get reminded when topics are due again"

	msg := tgbotapi.NewMessage(message.Chat.ID, text)
	msg.ReplyMarkup = createKeyboard(b.MainMenuButtons())
	return b.sendMessage(msg)
}

func (b *Bot) handleHelp(message *tgbotapi.Message) error {
	text := "📖 Commands\n\n" +
		"/next - Topic to revise now\n" +
		"/random - Random topic\n" +
		"/topics [category] - Upcoming topics\n" +
		"/study [id] [mode] - Study a topic (modes: " + modeList() + ")\n" +
		"/prompt [id] [mode] - Show the study prompt only\n" +
		"/revised <id> - Mark a topic revised\n" +
		"/priority <id> <n|none> - Set the priority, 1 is the most important\n" +
		"/bookmark <id> [note] - Bookmark a topic\n" +
		"/unbookmark <id> - Remove a bookmark\n" +
		"/bookmarks - Your bookmarks\n" +
		"/stats - Progress\n" +
		"/notify on|off - Daily reminders\n" +
		"/time <hour> - Reminder hour (0-23, UTC)\n" +
		"/remind - Check for due topics now\n\n" +
		"🔄 Review intervals after each revision: " + intervalList() + " days"

	if b.isAdmin(message.From.ID) {
		text += "\n\n🛠 Admin:\n/sync - Refresh topics from the notes repository\n" +
			"/export [csv|xlsx] - Download the topic list\n" +
			"Send a .csv or .xlsx file to import topics"
	}
	return b.reply(message.Chat.ID, text)
}

func (b *Bot) handleNext(ctx context.Context, chatID int64) error {
	topic, err := b.svc.NextTopic(ctx)
	if errors.Is(err, study.ErrNoTopics) {
		return b.reply(chatID, "📭 There are no topics yet. An administrator has to run /sync first.")
	}
	if err != nil {
		return err
	}
	return b.sendTopicCard(chatID, "📚 Next topic", *topic)
}

func (b *Bot) handleRandom(ctx context.Context, chatID int64) error {
	topic, err := b.svc.RandomTopic(ctx)
	if errors.Is(err, study.ErrNoTopics) {
		return b.reply(chatID, "📭 There are no topics yet. An administrator has to run /sync first.")
	}
	if err != nil {
		return err
	}
	return b.sendTopicCard(chatID, "🎲 Random topic", *topic)
}

func (b *Bot) sendTopicCard(chatID int64, heading string, topic models.Topic) error {
	msg := tgbotapi.NewMessage(chatID, heading+"\n\n"+formatTopic(topic, time.Now()))
	msg.ReplyMarkup = createKeyboard(topicButtons(topic.ID))
	return b.sendMessage(msg)
}

func topicButtons(topicID int64) [][]MenuButton {
	id := strconv.FormatInt(topicID, 10)
	return [][]MenuButton{
		{
			{Text: "🤖 Study", CallbackData: callbackAsk + id},
			{Text: "✅ Revised", CallbackData: callbackRevised + id},
		},
		{
			{Text: "🔖 Bookmark", CallbackData: callbackBookmark + id},
			{Text: "⏭ Next", CallbackData: callbackNext},
		},
	}
}

func formatTopic(topic models.Topic, now time.Time) string {
	var text strings.Builder
	fmt.Fprintf(&text, "#%d %s\n", topic.ID, topic.DisplayName())
	if topic.Category != "" {
		fmt.Fprintf(&text, "📂 %s\n", topic.Category)
	}
	if topic.Priority != nil {
		fmt.Fprintf(&text, "⭐ Priority %d\n", *topic.Priority)
	}
	if topic.LastRevisionDate != nil {
		fmt.Fprintf(&text, "🕑 Last revised %s (%d times)\n", topic.LastRevisionDate.Format(dateFormat), topic.RevisionCount)
	} else {
		text.WriteString("🆕 Never revised\n")
	}
	if next := revision.NextReviewDate(topic); next != nil && !revision.IsDue(topic, now) {
		fmt.Fprintf(&text, "📅 Next review %s\n", next.Format(dateFormat))
	}
	if topic.URL != "" {
		fmt.Fprintf(&text, "🔗 %s\n", topic.URL)
	}
	return text.String()
}

func (b *Bot) handleListTopics(ctx context.Context, message *tgbotapi.Message, args []string) error {
	category := strings.Join(args, " ")

	var topics []models.Topic
	var err error
	if category == "" {
		topics, err = b.svc.Upcoming(ctx, b.config.TopicListLimit)
		if errors.Is(err, study.ErrNoTopics) {
			return b.reply(message.Chat.ID, "📭 There are no topics yet.")
		}
	} else {
		topics, err = b.svc.Topics(ctx, category)
		if err == nil {
			topics = revision.Next(topics, time.Now(), b.config.TopicListLimit)
		}
	}
	if err != nil {
		return err
	}
	if len(topics) == 0 {
		return b.reply(message.Chat.ID, fmt.Sprintf("📭 No topics in category %q.", category))
	}

	var text strings.Builder
	if category == "" {
		text.WriteString("📚 Upcoming topics:\n\n")
	} else {
		fmt.Fprintf(&text, "📚 Upcoming topics in %s:\n\n", category)
	}
	now := time.Now()
	for _, t := range topics {
		mark := "▫️"
		if revision.IsDue(t, now) {
			mark = "🔸"
		}
		fmt.Fprintf(&text, "%s #%d %s", mark, t.ID, t.DisplayName())
		if category == "" && t.Category != "" {
			fmt.Fprintf(&text, " (%s)", t.Category)
		}
		text.WriteString("\n")
	}

	if category == "" {
		categories, err := b.svc.Categories(ctx)
		if err != nil {
			return err
		}
		if len(categories) > 0 {
			text.WriteString("\n📂 Categories: " + strings.Join(categories, ", "))
		}
	}
	return b.reply(message.Chat.ID, text.String())
}

// parseStudyArgs accepts "[id] [mode]" in any order
func parseStudyArgs(args []string) (int64, prompt.Mode, error) {
	var topicID int64
	mode := prompt.ModeExplain
	for _, arg := range args {
		if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
			topicID = id
			continue
		}
		m, err := prompt.ParseMode(arg)
		if err != nil {
			return 0, "", err
		}
		mode = m
	}
	return topicID, mode, nil
}

func (b *Bot) handleStudy(ctx context.Context, chatID, userID int64, args []string) error {
	topicID, mode, err := parseStudyArgs(args)
	if err != nil {
		return b.reply(chatID, "❌ "+err.Error())
	}
	return b.studyTopic(ctx, chatID, userID, topicID, mode)
}

func (b *Bot) studyTopic(ctx context.Context, chatID, userID, topicID int64, mode prompt.Mode) error {
	if _, err := b.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		log.Printf("Warning: Failed to send chat action: %v", err)
	}

	session, err := b.svc.Study(ctx, study.Request{UserID: userID, TopicID: topicID, Mode: mode})
	if handled, replyErr := b.replyLookupError(chatID, topicID, err); handled {
		return replyErr
	}
	if err != nil {
		return err
	}
	b.setSession(chatID, session)

	text := fmt.Sprintf("🤖 %s: %s\n\n%s", cases.Title(language.English).String(string(session.Mode)), session.Topic.DisplayName(), session.Response)
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = createKeyboard(topicButtons(session.Topic.ID))
	return b.sendMessage(msg)
}

func (b *Bot) handlePrompt(ctx context.Context, chatID int64, args []string) error {
	topicID, mode, err := parseStudyArgs(args)
	if err != nil {
		return b.reply(chatID, "❌ "+err.Error())
	}
	if topicID == 0 {
		next, err := b.svc.NextTopic(ctx)
		if errors.Is(err, study.ErrNoTopics) {
			return b.reply(chatID, "📭 There are no topics yet.")
		}
		if err != nil {
			return err
		}
		topicID = next.ID
	}

	session, err := b.svc.Prepare(ctx, topicID, mode)
	if handled, replyErr := b.replyLookupError(chatID, topicID, err); handled {
		return replyErr
	}
	if err != nil {
		return err
	}
	return b.reply(chatID, session.Prompt.User)
}

func (b *Bot) handleRevised(ctx context.Context, chatID, userID int64, args []string) error {
	topicID, ok := parseID(args)
	if !ok {
		return b.reply(chatID, "Please give a topic id: /revised <id>")
	}
	return b.markRevised(ctx, chatID, userID, topicID)
}

func (b *Bot) markRevised(ctx context.Context, chatID, userID, topicID int64) error {
	var promptText, response string
	if s := b.takeSession(chatID, topicID); s != nil {
		promptText, response = s.Prompt.User, s.Response
	}

	rev, err := b.svc.MarkRevised(ctx, userID, topicID, promptText, response)
	if handled, replyErr := b.replyLookupError(chatID, topicID, err); handled {
		return replyErr
	}
	if err != nil {
		return err
	}

	topic, err := b.svc.Topic(ctx, topicID)
	if err != nil {
		return err
	}
	text := fmt.Sprintf("✅ %s marked revised on %s.", rev.TopicName, rev.RevisedAt.Format(dateFormat))
	if next := revision.NextReviewDate(*topic); next != nil {
		text += fmt.Sprintf("\n📅 Next review %s.", next.Format(dateFormat))
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = createKeyboard(b.MainMenuButtons())
	return b.sendMessage(msg)
}

func (b *Bot) handlePriority(ctx context.Context, chatID int64, args []string) error {
	usage := "Please use /priority <id> <n|none>"
	if len(args) != 2 {
		return b.reply(chatID, usage)
	}
	topicID, ok := parseID(args[:1])
	if !ok {
		return b.reply(chatID, usage)
	}

	var priority *int
	if !strings.EqualFold(args[1], "none") {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return b.reply(chatID, usage)
		}
		priority = &n
	}

	topic, err := b.svc.SetPriority(ctx, topicID, priority)
	if errors.Is(err, study.ErrInvalidPriority) {
		return b.reply(chatID, "❌ Priority must be 1 or greater.")
	}
	if handled, replyErr := b.replyLookupError(chatID, topicID, err); handled {
		return replyErr
	}
	if err != nil {
		return err
	}

	if topic.Priority == nil {
		return b.reply(chatID, fmt.Sprintf("✅ Priority of %s cleared.", topic.DisplayName()))
	}
	return b.reply(chatID, fmt.Sprintf("✅ Priority of %s set to %d.", topic.DisplayName(), *topic.Priority))
}

func (b *Bot) handleBookmark(ctx context.Context, chatID, userID int64, args []string) error {
	topicID, ok := parseID(args)
	if !ok {
		return b.reply(chatID, "Please use /bookmark <id> [note]")
	}
	return b.bookmark(ctx, chatID, userID, topicID, strings.Join(args[1:], " "))
}

func (b *Bot) bookmark(ctx context.Context, chatID, userID, topicID int64, note string) error {
	bookmark, err := b.svc.Bookmark(ctx, userID, topicID, note)
	if handled, replyErr := b.replyLookupError(chatID, topicID, err); handled {
		return replyErr
	}
	if err != nil {
		return err
	}
	return b.reply(chatID, fmt.Sprintf("🔖 Bookmarked %s.", bookmark.TopicName))
}

func (b *Bot) handleUnbookmark(ctx context.Context, chatID, userID int64, args []string) error {
	topicID, ok := parseID(args)
	if !ok {
		return b.reply(chatID, "Please use /unbookmark <id>")
	}
	err := b.svc.Unbookmark(ctx, userID, topicID)
	if errors.Is(err, database.ErrNotFound) {
		return b.reply(chatID, fmt.Sprintf("Topic #%d is not bookmarked.", topicID))
	}
	if err != nil {
		return err
	}
	return b.reply(chatID, fmt.Sprintf("🗑 Bookmark for topic #%d removed.", topicID))
}

func (b *Bot) handleBookmarks(ctx context.Context, chatID, userID int64) error {
	bookmarks, err := b.svc.Bookmarks(ctx, userID)
	if err != nil {
		return err
	}
	if len(bookmarks) == 0 {
		return b.reply(chatID, "You have no bookmarks yet. Use /bookmark <id>.")
	}

	var text strings.Builder
	text.WriteString("🔖 Your bookmarks:\n\n")
	for _, bm := range bookmarks {
		fmt.Fprintf(&text, "#%d %s\n", bm.TopicID, bm.TopicName)
		if bm.Note != "" {
			fmt.Fprintf(&text, "   📝 %s\n", bm.Note)
		}
		if bm.URL != "" {
			fmt.Fprintf(&text, "   🔗 %s\n", bm.URL)
		}
	}
	return b.reply(chatID, text.String())
}

func (b *Bot) handleStats(ctx context.Context, chatID, userID int64) error {
	stats, err := b.svc.Stats(ctx, userID)
	if err != nil {
		return err
	}

	var text strings.Builder
	text.WriteString("📊 Progress\n\n")
	fmt.Fprintf(&text, "📚 Topics: %d\n", stats.TotalTopics)
	fmt.Fprintf(&text, "✅ Revised at least once: %d\n", stats.RevisedTopics)
	fmt.Fprintf(&text, "🆕 Never revised: %d\n", stats.NeverRevised)
	fmt.Fprintf(&text, "🔸 Due now: %d\n", stats.DueNow)
	fmt.Fprintf(&text, "🔄 Your revisions: %d of %d\n", stats.UserRevisions, stats.TotalRevisions)
	fmt.Fprintf(&text, "🔖 Bookmarks: %d\n", stats.Bookmarks)
	if len(stats.Categories) > 0 {
		text.WriteString("\n📂 By category:\n")
		for _, c := range stats.Categories {
			name := c.Category
			if name == "" {
				name = "(root)"
			}
			fmt.Fprintf(&text, "%s: %d/%d\n", name, c.Revised, c.Topics)
		}
	}
	return b.reply(chatID, text.String())
}

func (b *Bot) handleRemind(ctx context.Context, chatID, userID int64) error {
	if b.reminders == nil {
		return b.reply(chatID, "Reminders are switched off on this bot.")
	}
	due, err := b.reminders.RunManualCheck(ctx, userID)
	if err != nil {
		return err
	}
	if due == 0 {
		return b.reply(chatID, "🎉 Nothing is due right now.")
	}
	return nil
}

func (b *Bot) handleNotifyCommand(ctx context.Context, message *tgbotapi.Message, args []string) error {
	usage := "Please use /notify <on|off>"
	if len(args) != 1 {
		return b.reply(message.Chat.ID, usage)
	}

	var enabled bool
	switch strings.ToLower(args[0]) {
	case "on":
		enabled = true
	case "off":
		enabled = false
	default:
		return b.reply(message.Chat.ID, usage)
	}

	user, err := b.ensureUser(ctx, message.From)
	if err != nil {
		return err
	}
	if err := b.userRepo.SetNotification(ctx, user.ID, enabled, user.NotificationHour); err != nil {
		return err
	}

	return b.reply(message.Chat.ID, fmt.Sprintf("✅ Reminders %s", boolToEnabledString(enabled)))
}

func (b *Bot) handleTimeCommand(ctx context.Context, message *tgbotapi.Message, args []string) error {
	if len(args) != 1 {
		return b.reply(message.Chat.ID, "Please give an hour (0-23): /time <hour>")
	}
	hour, err := strconv.Atoi(args[0])
	if err != nil || hour < 0 || hour > 23 {
		return b.reply(message.Chat.ID, "Please give a valid hour (0-23)")
	}

	user, err := b.ensureUser(ctx, message.From)
	if err != nil {
		return err
	}
	if err := b.userRepo.SetNotification(ctx, user.ID, user.NotificationEnabled, hour); err != nil {
		return err
	}

	return b.reply(message.Chat.ID, fmt.Sprintf("✅ Reminder time set to %02d:00 UTC", hour))
}

func (b *Bot) handleSync(ctx context.Context, chatID int64) error {
	if !b.svc.HasNotes() {
		return b.reply(chatID, "❌ No notes repository is configured (NOTES_REPO_URL).")
	}
	if err := b.reply(chatID, "🔄 Syncing topics..."); err != nil {
		return err
	}

	result, err := b.svc.Sync(ctx)
	if err != nil {
		return b.reply(chatID, "❌ Sync failed: "+err.Error())
	}

	text := fmt.Sprintf("✅ Sync finished\nFound: %d\nNew: %d\nUpdated: %d\nRemoved: %d",
		result.Found, result.Created, result.Updated, result.Removed)
	if len(result.Errors) > 0 {
		text += fmt.Sprintf("\n⚠️ Errors: %d\n%s", len(result.Errors), strings.Join(firstN(result.Errors, 5), "\n"))
	}
	return b.reply(chatID, text)
}

func (b *Bot) handleExport(ctx context.Context, chatID int64, args []string) error {
	format := excel.FormatCSV
	if len(args) > 0 {
		f, err := excel.ParseFormat(strings.ToLower(args[0]))
		if err != nil {
			return b.reply(chatID, "❌ "+err.Error())
		}
		format = f
	}

	topics, err := b.svc.Topics(ctx, "")
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := excel.Export(&buf, format, topics); err != nil {
		return err
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  "topics." + string(format),
		Bytes: buf.Bytes(),
	})
	doc.Caption = fmt.Sprintf("📤 %d topics", len(topics))
	if _, err := b.api.Send(doc); err != nil {
		return fmt.Errorf("failed to send export: %w", err)
	}
	return nil
}

// handleDocument imports an uploaded topic list
func (b *Bot) handleDocument(ctx context.Context, message *tgbotapi.Message) error {
	if message.From == nil || !b.isAdmin(message.From.ID) {
		return b.reply(message.Chat.ID, "Only administrators can import topics.")
	}

	format, err := excel.FormatFromPath(message.Document.FileName)
	if err != nil {
		return b.reply(message.Chat.ID, "❌ "+err.Error())
	}

	url, err := b.api.GetFileDirectURL(message.Document.FileID)
	if err != nil {
		return fmt.Errorf("failed to get file url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download file: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	result, err := excel.Import(ctx, b.svc.TopicRepository(), bytes.NewReader(body), format, excel.DefaultImportConfig())
	if err != nil {
		return b.reply(message.Chat.ID, "❌ Import failed: "+err.Error())
	}

	text := fmt.Sprintf("📥 Import finished\nRows: %d\nNew: %d\nUpdated: %d\nSkipped: %d",
		result.TotalProcessed, result.Created, result.Updated, result.Skipped)
	if len(result.Errors) > 0 {
		text += fmt.Sprintf("\n⚠️ Errors: %d\n%s", len(result.Errors), strings.Join(firstN(result.Errors, 5), "\n"))
	}
	return b.reply(message.Chat.ID, text)
}

func (b *Bot) handleUnknownCommand(message *tgbotapi.Message) error {
	return b.reply(message.Chat.ID, "Unknown command. Use /help to see the available commands.")
}

// HandleCallback handles inline button presses
func (b *Bot) HandleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	if callback == nil || callback.Message == nil || callback.From == nil {
		return fmt.Errorf("invalid callback data: required fields are missing")
	}

	// Always answer the callback query to remove the loading state
	answer := tgbotapi.NewCallback(callback.ID, "")
	if _, err := b.api.Request(answer); err != nil {
		log.Printf("Warning: Failed to answer callback: %v", err)
	}

	chatID := callback.Message.Chat.ID
	userID := callback.From.ID
	data := callback.Data

	switch {
	case data == callbackNext:
		return b.handleNext(ctx, chatID)
	case data == callbackRandom:
		return b.handleRandom(ctx, chatID)
	case strings.HasPrefix(data, callbackAsk):
		if id, ok := parseCallbackID(data, callbackAsk); ok {
			return b.studyTopic(ctx, chatID, userID, id, prompt.ModeExplain)
		}
	case strings.HasPrefix(data, callbackRevised):
		if id, ok := parseCallbackID(data, callbackRevised); ok {
			return b.markRevised(ctx, chatID, userID, id)
		}
	case strings.HasPrefix(data, callbackBookmark):
		if id, ok := parseCallbackID(data, callbackBookmark); ok {
			return b.bookmark(ctx, chatID, userID, id, "")
		}
	}
	return fmt.Errorf("unknown callback data %q", data)
}

// ensureUser returns the stored user, registering it on first contact
func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*models.User, error) {
	user, err := b.userRepo.GetByID(ctx, from.ID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	user = &models.User{
		ID:                  from.ID,
		Username:            from.UserName,
		FirstName:           from.FirstName,
		LastName:            from.LastName,
		IsAdmin:             b.isAdmin(from.ID),
		NotificationEnabled: true,
		NotificationHour:    b.config.DefaultNotificationHour,
		TopicsPerDay:        b.config.DefaultTopicsPerDay,
	}
	if err := b.userRepo.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// replyLookupError answers unknown topic ids and an empty store. It reports whether err was handled.
func (b *Bot) replyLookupError(chatID, topicID int64, err error) (bool, error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		return true, b.reply(chatID, fmt.Sprintf("❌ Topic #%d not found.", topicID))
	case errors.Is(err, study.ErrNoTopics):
		return true, b.reply(chatID, "📭 There are no topics yet.")
	}
	return false, nil
}

func parseID(args []string) (int64, bool) {
	if len(args) == 0 {
		return 0, false
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func parseCallbackID(data, prefix string) (int64, bool) {
	return parseID([]string{strings.TrimPrefix(data, prefix)})
}

// boolToEnabledString converts a boolean to a human-readable enabled/disabled string
func boolToEnabledString(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}

func modeList() string {
	names := make([]string, len(prompt.Modes))
	for i, m := range prompt.Modes {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}

func intervalList() string {
	parts := make([]string, len(revision.Intervals))
	for i, d := range revision.Intervals {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, ", ")
}

func firstN(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
