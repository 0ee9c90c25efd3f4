package notes

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/go-github/v66/github"
)

// ErrNoFiles is returned when a listing has nothing to pick from
var ErrNoFiles = errors.New("no files found")

// File is one note in the repository
type File struct {
	Path        string
	Name        string
	Dir         string
	HTMLURL     string
	DownloadURL string
	Size        int
}

// Listing is the result of a crawl. Errors holds per-directory failures that did not stop it.
type Listing struct {
	Files  []File
	Errors []string
}

// Config configures a Client
type Config struct {
	Repo       Repo
	Token      string
	Extensions []string // empty means every file
	HTTPClient *http.Client
	// BaseURL overrides the GitHub API endpoint, used against GitHub Enterprise and in tests
	BaseURL string
}

// Client crawls a repository through the GitHub contents API
type Client struct {
	gh         *github.Client
	repo       Repo
	extensions map[string]struct{}
}

// NewClient creates a new GitHub notes client
func NewClient(cfg Config) (*Client, error) {
	if cfg.Repo.Owner == "" || cfg.Repo.Name == "" {
		return nil, ErrInvalidRepoURL
	}

	gh := github.NewClient(cfg.HTTPClient)
	if cfg.Token != "" {
		gh = gh.WithAuthToken(cfg.Token)
	}
	if cfg.BaseURL != "" {
		base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("parse GitHub base URL: %w", err)
		}
		gh.BaseURL = base
	}

	exts := make(map[string]struct{}, len(cfg.Extensions))
	for _, ext := range cfg.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts[ext] = struct{}{}
	}

	return &Client{gh: gh, repo: cfg.Repo, extensions: exts}, nil
}

// Repo returns the repository the client reads from
func (c *Client) Repo() Repo {
	return c.repo
}

// List crawls subdir breadth first. maxDepth counts directory levels below subdir:
// 0 lists only subdir itself, a negative value walks the whole tree.
// A failure on subdir itself is returned as an error, failures further down are collected.
func (c *Client) List(ctx context.Context, subdir string, maxDepth int) (Listing, error) {
	var listing Listing

	root := strings.Trim(subdir, "/")
	dirs := []string{root}
	for depth := 0; len(dirs) > 0; depth++ {
		var next []string
		for _, dir := range dirs {
			files, subdirs, err := c.readDir(ctx, dir)
			if err != nil {
				if depth == 0 {
					return Listing{}, fmt.Errorf("list %s: %w", displayDir(dir), err)
				}
				listing.Errors = append(listing.Errors, fmt.Sprintf("error accessing directory %s: %v", dir, err))
				continue
			}
			listing.Files = append(listing.Files, files...)
			next = append(next, subdirs...)
		}
		if maxDepth >= 0 && depth >= maxDepth {
			break
		}
		dirs = next
	}

	return listing, nil
}

func (c *Client) readDir(ctx context.Context, dir string) ([]File, []string, error) {
	_, entries, _, err := c.gh.Repositories.GetContents(ctx, c.repo.Owner, c.repo.Name, dir, c.contentOptions())
	if err != nil {
		return nil, nil, err
	}

	var files []File
	var dirs []string
	for _, entry := range entries {
		switch entry.GetType() {
		case "file":
			if !c.accepts(entry.GetName()) {
				continue
			}
			files = append(files, File{
				Path:        entry.GetPath(),
				Name:        entry.GetName(),
				Dir:         path.Dir(entry.GetPath()),
				HTMLURL:     entry.GetHTMLURL(),
				DownloadURL: entry.GetDownloadURL(),
				Size:        entry.GetSize(),
			})
		case "dir":
			dirs = append(dirs, entry.GetPath())
		}
	}
	return files, dirs, nil
}

// Fetch returns the decoded content of the file at p
func (c *Client) Fetch(ctx context.Context, p string) (string, error) {
	file, _, _, err := c.gh.Repositories.GetContents(ctx, c.repo.Owner, c.repo.Name, p, c.contentOptions())
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", p, err)
	}
	if file == nil {
		return "", fmt.Errorf("fetch %s: path is a directory", p)
	}
	content, err := file.GetContent()
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", p, err)
	}
	return content, nil
}

func (c *Client) contentOptions() *github.RepositoryContentGetOptions {
	if c.repo.Ref == "" {
		return nil
	}
	return &github.RepositoryContentGetOptions{Ref: c.repo.Ref}
}

func (c *Client) accepts(name string) bool {
	if len(c.extensions) == 0 {
		return true
	}
	_, ok := c.extensions[strings.ToLower(path.Ext(name))]
	return ok
}

// Random picks a file uniformly
func Random(files []File, rng *rand.Rand) (File, error) {
	if len(files) == 0 {
		return File{}, ErrNoFiles
	}
	if rng == nil {
		return files[rand.Intn(len(files))], nil
	}
	return files[rng.Intn(len(files))], nil
}

// SaveFile writes content to dir/name, creating dir when needed
func SaveFile(dir, name, content string) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	p := filepath.Join(dir, filepath.Base(name))
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", p, err)
	}
	return p, nil
}

func displayDir(dir string) string {
	if dir == "" {
		return "repository root"
	}
	return dir
}
