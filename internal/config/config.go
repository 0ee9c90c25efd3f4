// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every setting the binaries read from the environment
type Config struct {
	DBDriver string `env:"DB_DRIVER" envDefault:"sqlite3"`
	DBDSN    string `env:"DB_DSN" envDefault:"data/revisionbot.db"`

	NotesRepoURL    string   `env:"NOTES_REPO_URL"`
	NotesSubdir     string   `env:"NOTES_SUBDIR"`
	NotesRef        string   `env:"NOTES_REF"`
	NotesMaxDepth   int      `env:"NOTES_MAX_DEPTH" envDefault:"-1"`
	NotesExtensions []string `env:"NOTES_EXTENSIONS" envDefault:".md" envSeparator:","`
	NotesPrune      bool     `env:"NOTES_PRUNE" envDefault:"false"`
	GitHubToken     string   `env:"GITHUB_TOKEN"`
	GitHubAPIURL    string   `env:"GITHUB_API_URL"`

	OpenAIAPIKey      string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL     string        `env:"OPENAI_BASE_URL"`
	OpenAIModel       string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	OpenAIMaxTokens   int           `env:"OPENAI_MAX_TOKENS" envDefault:"600"`
	OpenAITemperature float64       `env:"OPENAI_TEMPERATURE" envDefault:"0.7"`
	OpenAIMaxRetries  int           `env:"OPENAI_MAX_RETRIES" envDefault:"2"`
	OpenAITimeout     time.Duration `env:"OPENAI_TIMEOUT" envDefault:"60s"`
	PromptMaxChars    int           `env:"PROMPT_MAX_NOTE_CHARS" envDefault:"6000"`

	TelegramToken string  `env:"TELEGRAM_BOT_TOKEN"`
	AdminUserIDs  []int64 `env:"ADMIN_USER_IDS" envSeparator:","`

	EnableScheduler       bool          `env:"ENABLE_SCHEDULER" envDefault:"true"`
	NotificationStartHour int           `env:"NOTIFICATION_START_HOUR" envDefault:"8"`
	NotificationEndHour   int           `env:"NOTIFICATION_END_HOUR" envDefault:"22"`
	SyncInterval          time.Duration `env:"SYNC_INTERVAL" envDefault:"6h"`

	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	OTelEndpoint string `env:"OTEL_ENDPOINT"`
	OTelEnabled  bool   `env:"OTEL_ENABLED" envDefault:"true"`
}

// Load reads the optional .env files and parses the environment.
// Missing .env files are ignored.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate checks values env parsing cannot
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "sqlite3", "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.DBDSN == "" {
		return errors.New("DB_DSN is empty")
	}
	if c.NotificationStartHour < 0 || c.NotificationStartHour > 23 {
		return fmt.Errorf("NOTIFICATION_START_HOUR must be between 0 and 23, got %d", c.NotificationStartHour)
	}
	if c.NotificationEndHour < 0 || c.NotificationEndHour > 23 {
		return fmt.Errorf("NOTIFICATION_END_HOUR must be between 0 and 23, got %d", c.NotificationEndHour)
	}
	if c.NotesMaxDepth < -1 {
		return fmt.Errorf("NOTES_MAX_DEPTH must be -1 or greater, got %d", c.NotesMaxDepth)
	}
	if c.SyncInterval < 0 {
		return fmt.Errorf("SYNC_INTERVAL must not be negative, got %s", c.SyncInterval)
	}
	if c.PromptMaxChars < 0 {
		return fmt.Errorf("PROMPT_MAX_NOTE_CHARS must not be negative, got %d", c.PromptMaxChars)
	}
	return nil
}

// IsAdmin reports whether the telegram user may run admin commands
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}
