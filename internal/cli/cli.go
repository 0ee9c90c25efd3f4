// Package cli implements the revisionbot sub commands.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"

	"github.com/example/revisionbot/internal/ai"
	"github.com/example/revisionbot/internal/config"
	"github.com/example/revisionbot/internal/database"
	"github.com/example/revisionbot/internal/notes"
	"github.com/example/revisionbot/internal/study"
	"github.com/example/revisionbot/internal/telemetry"
	"github.com/jmoiron/sqlx"
)

// ErrUsage is returned for unknown commands and bad flags
var ErrUsage = errors.New("usage error")

type command struct {
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"bot":       {"run the Telegram bot and the reminder scheduler", runBot},
	"serve":     {"serve the JSON API", runServe},
	"sync":      {"refresh topics from the notes repository", runSync},
	"next":      {"show the next topics to revise", runNext},
	"random":    {"pick a random topic or note", runRandom},
	"study":     {"study a topic with the language model", runStudy},
	"prompt":    {"print the study prompt for a topic", runPrompt},
	"revise":    {"mark a topic revised", runRevise},
	"priority":  {"set or clear the priority of a topic", runPriority},
	"bookmark":  {"bookmark a topic or remove a bookmark", runBookmark},
	"bookmarks": {"list bookmarks", runBookmarks},
	"stats":     {"show revision progress", runStats},
	"export":    {"export topics to .csv or .xlsx", runExport},
	"import":    {"import topics from .csv or .xlsx", runImport},
	"links":     {"write every note link of the repository as CSV", runLinks},
}

// Run executes the sub command named by args[0]
func Run(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	if len(args) == 0 {
		usage(out)
		return ErrUsage
	}
	if args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		usage(out)
		return nil
	}

	cmd, ok := commands[args[0]]
	if !ok {
		usage(out)
		return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}

	log.SetPrefix("[" + args[0] + "] ")

	a := newApp(cfg, out)
	defer a.close()

	if err := cmd.run(ctx, a, args[1:]); err != nil && !errors.Is(err, flag.ErrHelp) {
		return err
	}
	return nil
}

func usage(out io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(out, "Usage: revisionbot <command> [flags]")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Commands:")
	for _, name := range names {
		fmt.Fprintf(out, "  %-10s %s\n", name, commands[name].summary)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Run revisionbot <command> -h for the flags of a command.")
}

// app holds the dependencies shared by the commands. They are opened by parse,
// after the flags of a command are known, so -h never touches the database.
type app struct {
	cfg   *config.Config
	out   io.Writer
	db    *sqlx.DB
	notes *notes.Client // nil without NOTES_REPO_URL
	ai    *ai.Client
	svc   *study.Service
	// subdir is NOTES_SUBDIR or the directory named in NOTES_REPO_URL
	subdir   string
	shutdown func(context.Context) error
}

func newApp(cfg *config.Config, out io.Writer) *app {
	a := &app{cfg: cfg, out: out, subdir: cfg.NotesSubdir}
	if a.subdir == "" && cfg.NotesRepoURL != "" {
		// a bad URL is reported by open
		if repo, err := notes.ParseRepoURL(cfg.NotesRepoURL); err == nil {
			a.subdir = repo.Subdir
		}
	}
	return a
}

// parse parses the command flags and then opens the dependencies
func (a *app) parse(ctx context.Context, fs *flag.FlagSet, args []string) error {
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	return a.open(ctx)
}

func (a *app) open(ctx context.Context) error {
	cfg := a.cfg
	if err := cfg.Validate(); err != nil {
		return err
	}

	var src study.NoteSource
	if cfg.NotesRepoURL != "" {
		repo, err := notes.ParseRepoURL(cfg.NotesRepoURL)
		if err != nil {
			return err
		}
		if cfg.NotesRef != "" {
			repo.Ref = cfg.NotesRef
		}

		a.notes, err = notes.NewClient(notes.Config{
			Repo:       repo,
			Token:      cfg.GitHubToken,
			Extensions: cfg.NotesExtensions,
			BaseURL:    cfg.GitHubAPIURL,
		})
		if err != nil {
			return err
		}
		src = a.notes
	}

	shutdown, err := telemetry.Setup(ctx, "revisionbot", cfg.OTelEndpoint, cfg.OTelEnabled)
	if err != nil {
		log.Printf("Warning: tracing disabled: %v", err)
	}
	a.shutdown = shutdown

	db, err := database.Connect(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	a.db = db

	a.ai = ai.New(ai.Config{
		APIKey:      cfg.OpenAIAPIKey,
		BaseURL:     cfg.OpenAIBaseURL,
		Model:       cfg.OpenAIModel,
		MaxTokens:   cfg.OpenAIMaxTokens,
		Temperature: cfg.OpenAITemperature,
		MaxRetries:  cfg.OpenAIMaxRetries,
		Timeout:     cfg.OpenAITimeout,
	})

	a.svc = study.NewService(db, src, a.ai, study.Config{
		Subdir:       a.subdir,
		MaxDepth:     cfg.NotesMaxDepth,
		Prune:        cfg.NotesPrune,
		MaxNoteChars: cfg.PromptMaxChars,
	})
	return nil
}

func (a *app) close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}
	if a.shutdown != nil {
		if err := a.shutdown(context.Background()); err != nil {
			log.Printf("Error flushing traces: %v", err)
		}
	}
}

// requireNotes fails when no notes repository is configured
func (a *app) requireNotes() error {
	if a.notes == nil {
		return errors.New("NOTES_REPO_URL is not set")
	}
	return nil
}

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

// parseFlags wraps flag errors in ErrUsage. -h returns flag.ErrHelp unchanged.
func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: unexpected arguments %s", ErrUsage, strings.Join(fs.Args(), " "))
	}
	return nil
}
