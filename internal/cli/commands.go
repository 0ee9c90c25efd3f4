package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/example/revisionbot/internal/bot"
	"github.com/example/revisionbot/internal/database"
	"github.com/example/revisionbot/internal/excel"
	"github.com/example/revisionbot/internal/httpapi"
	"github.com/example/revisionbot/internal/notes"
	"github.com/example/revisionbot/internal/prompt"
	"github.com/example/revisionbot/internal/revision"
	"github.com/example/revisionbot/internal/scheduler"
	"github.com/example/revisionbot/internal/study"
	"github.com/example/revisionbot/pkg/models"
)

func (a *app) schedulerConfig() scheduler.Config {
	return scheduler.Config{
		StartHour:    a.cfg.NotificationStartHour,
		EndHour:      a.cfg.NotificationEndHour,
		SyncInterval: a.cfg.SyncInterval,
	}
}

// syncer is nil without a notes repository so the scheduler skips the sync job
func (a *app) syncer() scheduler.Syncer {
	if a.notes == nil {
		return nil
	}
	return a.svc
}

func runBot(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("bot", a.out)
	noScheduler := fs.Bool("no-scheduler", !a.cfg.EnableScheduler, "do not send reminders or sync periodically")
	if err := a.parse(ctx, fs, args); err != nil {
		return err
	}

	users := database.NewUserRepository(a.db)
	cfg := bot.DefaultConfig()
	cfg.AdminUserIDs = a.cfg.AdminUserIDs

	b, err := bot.New(a.cfg.TelegramToken, a.svc, users, cfg)
	if err != nil {
		return err
	}

	if !*noScheduler {
		sched := scheduler.New(users, a.svc, b, a.syncer(), a.schedulerConfig())
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		defer sched.Stop()
		b.SetReminders(sched)
		log.Printf("Scheduler started with %d jobs", sched.Jobs())
	}

	log.Println("Bot started. Press Ctrl+C to stop.")
	if err := b.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Println("Bot stopped successfully")
	return nil
}

func runServe(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("serve", a.out)
	addr := fs.String("addr", a.cfg.HTTPAddr, "listen address")
	if err := a.parse(ctx, fs, args); err != nil {
		return err
	}

	if a.cfg.EnableScheduler && a.notes != nil {
		sched := scheduler.New(nil, nil, nil, a.svc, a.schedulerConfig())
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		defer sched.Stop()
	}

	log.Printf("Listening on %s", *addr)
	return httpapi.NewServer(a.svc).ListenAndServe(ctx, *addr)
}

func runSync(ctx context.Context, a *app, args []string) error {
	if err := a.parse(ctx, newFlagSet("sync", a.out), args); err != nil {
		return err
	}

	result, err := a.svc.Sync(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Found %d notes: %d created, %d updated, %d removed\n",
		result.Found, result.Created, result.Updated, result.Removed)
	for _, e := range result.Errors {
		fmt.Fprintf(a.out, "  %s\n", e)
	}
	return nil
}

func runNext(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("next", a.out)
	n := fs.Int("n", 1, "number of topics")
	if err := a.parse(ctx, fs, args); err != nil {
		return err
	}

	topics, err := a.svc.Upcoming(ctx, *n)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, t := range topics {
		printTopic(a, t, now)
	}
	return nil
}

func runRandom(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("random", a.out)
	live := fs.Bool("live", false, "pick from the repository instead of the stored topics")
	subdir := fs.String("subdir", a.subdir, "directory to pick from with -live")
	download := fs.String("download", "", "save the picked note into this directory")
	link := fs.Bool("link", false, "print only the link")
	if err := a.parse(ctx, fs, args); err != nil {
		return err
	}

	if !*live {
		if *download != "" {
			return fmt.Errorf("%w: -download needs -live", ErrUsage)
		}
		t, err := a.svc.RandomTopic(ctx)
		if err != nil {
			return err
		}
		if *link {
			fmt.Fprintln(a.out, t.URL)
			return nil
		}
		printTopic(a, *t, time.Now())
		return nil
	}

	if err := a.requireNotes(); err != nil {
		return err
	}
	listing, err := a.notes.List(ctx, *subdir, a.cfg.NotesMaxDepth)
	if err != nil {
		return err
	}
	for _, e := range listing.Errors {
		log.Printf("Warning: %s", e)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	f, err := notes.Random(listing.Files, rng)
	if err != nil {
		return err
	}
	if *link {
		fmt.Fprintln(a.out, f.HTMLURL)
	} else {
		fmt.Fprintf(a.out, "%s\n  %s\n", notes.TitleFromPath(f.Path), f.HTMLURL)
	}

	if *download != "" {
		content, err := a.notes.Fetch(ctx, f.Path)
		if err != nil {
			return err
		}
		p, err := notes.SaveFile(*download, f.Name, content)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Saved %s\n", p)
	}
	return nil
}

func runStudy(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("study", a.out)
	id := fs.Int64("id", 0, "topic id, 0 for the next topic")
	mode := fs.String("mode", string(prompt.ModeExplain), "prompt mode: "+modeList())
	noMark := fs.Bool("no-mark", false, "do not record a revision")
	noAI := fs.Bool("no-ai", false, "do not call the language model")
	if err := a.parse(ctx, fs, args); err != nil {
		return err
	}

	m, err := prompt.ParseMode(*mode)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	session, err := a.svc.Study(ctx, study.Request{
		TopicID:     *id,
		Mode:        m,
		MarkRevised: !*noMark,
		SkipAI:      *noAI,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "#%d %s (%s)\n%s\n\n", session.Topic.ID, session.Topic.Title, session.Mode, session.Topic.URL)
	if *noAI {
		fmt.Fprintln(a.out, session.Prompt.User)
	} else {
		fmt.Fprintln(a.out, session.Response)
	}
	if session.Revision != nil {
		fmt.Fprintf(a.out, "\nRevision recorded at %s\n", session.Revision.RevisedAt.Format(time.RFC3339))
	}
	return nil
}

func runPrompt(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("prompt", a.out)
	id := fs.Int64("id", 0, "topic id, 0 for the next topic")
	mode := fs.String("mode", string(prompt.ModeExplain), "prompt mode: "+modeList())
	if err := a.parse(ctx, fs, args); err != nil {
		return err
	}

	m, err := prompt.ParseMode(*mode)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	topicID := *id
	if topicID == 0 {
		t, err := a.svc.NextTopic(ctx)
		if err != nil {
			return err
		}
		topicID = t.ID
	}

	session, err := a.svc.Prepare(ctx, topicID, m)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, session.Prompt.System)
	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, session.Prompt.User)
	return nil
}

func runRevise(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("revise", a.out)
	id := fs.Int64("id", 0, "topic id")
	if err := a.parse(ctx, fs, args); err != nil {
		return err
	}
	if *id <= 0 {
		return fmt.Errorf("%w: -id is required", ErrUsage)
	}

	rev, err := a.svc.MarkRevised(ctx, 0, *id, "", "")
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Marked %s revised at %s\n", rev.TopicName, rev.RevisedAt.Format(time.RFC3339))
	return nil
}

func runPriority(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("priority", a.out)
	id := fs.Int64("id", 0, "topic id")
	value := fs.String("value", "", "priority, 1 is the most important, none clears it")
	if err := a.parse(ctx, fs, args); err != nil {
		return err
	}
	if *id <= 0 || *value == "" {
		return fmt.Errorf("%w: -id and -value are required", ErrUsage)
	}

	priority, err := parsePriority(*value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	t, err := a.svc.SetPriority(ctx, *id, priority)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s: priority %s\n", t.Title, formatPriority(t.Priority))
	return nil
}

func runBookmark(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("bookmark", a.out)
	id := fs.Int64("id", 0, "topic id")
	note := fs.String("note", "", "bookmark note")
	remove := fs.Bool("remove", false, "remove the bookmark")
	if err := a.parse(ctx, fs, args); err != nil {
		return err
	}
	if *id <= 0 {
		return fmt.Errorf("%w: -id is required", ErrUsage)
	}

	if *remove {
		if err := a.svc.Unbookmark(ctx, 0, *id); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Removed bookmark for topic %d\n", *id)
		return nil
	}

	bm, err := a.svc.Bookmark(ctx, 0, *id, *note)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Bookmarked %s\n", bm.TopicName)
	return nil
}

func runBookmarks(ctx context.Context, a *app, args []string) error {
	if err := a.parse(ctx, newFlagSet("bookmarks", a.out), args); err != nil {
		return err
	}

	bookmarks, err := a.svc.Bookmarks(ctx, 0)
	if err != nil {
		return err
	}
	if len(bookmarks) == 0 {
		fmt.Fprintln(a.out, "No bookmarks")
		return nil
	}
	for _, bm := range bookmarks {
		fmt.Fprintf(a.out, "#%d %s", bm.TopicID, bm.TopicName)
		if bm.Note != "" {
			fmt.Fprintf(a.out, " - %s", bm.Note)
		}
		fmt.Fprintln(a.out)
	}
	return nil
}

func runStats(ctx context.Context, a *app, args []string) error {
	if err := a.parse(ctx, newFlagSet("stats", a.out), args); err != nil {
		return err
	}

	stats, err := a.svc.Stats(ctx, 0)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Topics: %d (%d revised, %d never revised, %d due)\n",
		stats.TotalTopics, stats.RevisedTopics, stats.NeverRevised, stats.DueNow)
	fmt.Fprintf(a.out, "Revisions: %d\n", stats.TotalRevisions)
	fmt.Fprintf(a.out, "Bookmarks: %d\n", stats.Bookmarks)
	for _, c := range stats.Categories {
		name := c.Category
		if name == "" {
			name = "(root)"
		}
		fmt.Fprintf(a.out, "  %-30s %d/%d\n", name, c.Revised, c.Topics)
	}
	return nil
}

func runExport(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("export", a.out)
	out := fs.String("o", "", "output file, .csv or .xlsx")
	category := fs.String("category", "", "only export this category")
	if err := a.parse(ctx, fs, args); err != nil {
		return err
	}

	topics, err := a.svc.Topics(ctx, *category)
	if err != nil {
		return err
	}

	if *out == "" {
		return excel.Export(a.out, excel.FormatCSV, topics)
	}
	if err := excel.ExportFile(*out, topics); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Exported %d topics to %s\n", len(topics), *out)
	return nil
}

func runImport(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("import", a.out)
	file := fs.String("f", "", "input file, .csv or .xlsx")
	if err := a.parse(ctx, fs, args); err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("%w: -f is required", ErrUsage)
	}

	result, err := excel.ImportFile(ctx, a.svc.TopicRepository(), *file, excel.DefaultImportConfig())
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Processed %d rows: %d created, %d updated, %d skipped\n",
		result.TotalProcessed, result.Created, result.Updated, result.Skipped)
	for _, e := range result.Errors {
		fmt.Fprintf(a.out, "  %s\n", e)
	}
	return nil
}

func runLinks(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("links", a.out)
	subdir := fs.String("subdir", a.subdir, "directory to crawl")
	out := fs.String("o", "", "output CSV file, standard output when empty")
	if err := a.parse(ctx, fs, args); err != nil {
		return err
	}
	if err := a.requireNotes(); err != nil {
		return err
	}

	listing, err := a.notes.List(ctx, *subdir, a.cfg.NotesMaxDepth)
	if err != nil {
		return err
	}
	for _, e := range listing.Errors {
		log.Printf("Warning: %s", e)
	}

	rows := make([][2]string, 0, len(listing.Files))
	for _, f := range listing.Files {
		rows = append(rows, [2]string{f.Path, f.HTMLURL})
	}

	if *out == "" {
		return excel.Links(a.out, rows)
	}

	file, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("create %s: %w", *out, err)
	}
	if err := excel.Links(file, rows); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Wrote %d links to %s\n", len(rows), *out)
	return nil
}

func printTopic(a *app, t models.Topic, now time.Time) {
	fmt.Fprintf(a.out, "#%d %s", t.ID, t.Title)
	if t.Category != "" {
		fmt.Fprintf(a.out, " [%s]", t.Category)
	}
	fmt.Fprintln(a.out)
	fmt.Fprintf(a.out, "  priority %s, revised %d times", formatPriority(t.Priority), t.RevisionCount)
	if t.LastRevisionDate != nil {
		fmt.Fprintf(a.out, ", last %s", t.LastRevisionDate.Format("2006-01-02"))
	}
	if revision.IsDue(t, now) {
		fmt.Fprint(a.out, ", due")
	}
	fmt.Fprintln(a.out)
	if t.URL != "" {
		fmt.Fprintf(a.out, "  %s\n", t.URL)
	}
}

func parsePriority(s string) (*int, error) {
	if strings.EqualFold(s, "none") {
		return nil, nil
	}
	p, err := strconv.Atoi(s)
	if err != nil || p < 1 {
		return nil, fmt.Errorf("invalid priority %q", s)
	}
	return &p, nil
}

func formatPriority(p *int) string {
	if p == nil {
		return "none"
	}
	return strconv.Itoa(*p)
}

func modeList() string {
	modes := make([]string, len(prompt.Modes))
	for i, m := range prompt.Modes {
		modes[i] = string(m)
	}
	return strings.Join(modes, ", ")
}
