package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	os.Unsetenv("DB_DRIVER")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBDriver != "sqlite3" {
		t.Fatalf("expected default driver sqlite3, got %q", cfg.DBDriver)
	}
	if cfg.NotesMaxDepth != -1 {
		t.Fatalf("expected unlimited depth, got %d", cfg.NotesMaxDepth)
	}
	if len(cfg.NotesExtensions) != 1 || cfg.NotesExtensions[0] != ".md" {
		t.Fatalf("expected .md extension, got %v", cfg.NotesExtensions)
	}
	if cfg.SyncInterval != 6*time.Hour {
		t.Fatalf("expected 6h sync interval, got %s", cfg.SyncInterval)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("ADMIN_USER_IDS", "10,20")
	t.Setenv("NOTES_EXTENSIONS", ".md,.txt")
	t.Setenv("OPENAI_TIMEOUT", "5s")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBDriver != "postgres" {
		t.Fatalf("expected postgres, got %q", cfg.DBDriver)
	}
	if !cfg.IsAdmin(20) || cfg.IsAdmin(30) {
		t.Fatalf("unexpected admin ids %v", cfg.AdminUserIDs)
	}
	if len(cfg.NotesExtensions) != 2 {
		t.Fatalf("expected two extensions, got %v", cfg.NotesExtensions)
	}
	if cfg.OpenAITimeout != 5*time.Second {
		t.Fatalf("expected 5s timeout, got %s", cfg.OpenAITimeout)
	}
}

func TestLoadDotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("NOTES_REPO_URL=https://github.com/o/r\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// godotenv does not override variables that are already set
	t.Setenv("NOTES_REPO_URL", "")
	os.Unsetenv("NOTES_REPO_URL")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.NotesRepoURL != "https://github.com/o/r" {
		t.Fatalf("expected repo url from file, got %q", cfg.NotesRepoURL)
	}
}

func TestLoadParseError(t *testing.T) {
	t.Setenv("OPENAI_MAX_TOKENS", "many")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	base := Config{DBDriver: "sqlite", DBDSN: "x.db", NotesMaxDepth: -1, NotificationEndHour: 22}
	if err := base.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	cases := map[string]func(c *Config){
		"driver":     func(c *Config) { c.DBDriver = "mysql" },
		"dsn":        func(c *Config) { c.DBDSN = "" },
		"start hour": func(c *Config) { c.NotificationStartHour = 24 },
		"end hour":   func(c *Config) { c.NotificationEndHour = -1 },
		"depth":      func(c *Config) { c.NotesMaxDepth = -2 },
		"interval":   func(c *Config) { c.SyncInterval = -time.Second },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base
			mutate(&c)
			if err := c.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
