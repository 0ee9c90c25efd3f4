// Package notes reads the revision notes from a GitHub repository.
package notes

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrInvalidRepoURL is returned for URLs that do not name an owner and a repository
var ErrInvalidRepoURL = errors.New("invalid GitHub repository URL")

// Repo identifies a GitHub repository and an optional starting point inside it
type Repo struct {
	Owner  string
	Name   string
	Ref    string
	Subdir string
}

// ParseRepoURL accepts https://github.com/owner/repo, https://github.com/owner/repo/tree/ref/sub/dir
// and the short owner/repo form.
func ParseRepoURL(raw string) (Repo, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Repo{}, fmt.Errorf("%w: empty", ErrInvalidRepoURL)
	}

	p := raw
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return Repo{}, fmt.Errorf("%w: %v", ErrInvalidRepoURL, err)
		}
		p = u.Path
	}

	parts := strings.Split(strings.Trim(p, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return Repo{}, fmt.Errorf("%w: %s", ErrInvalidRepoURL, raw)
	}

	repo := Repo{
		Owner: parts[0],
		Name:  strings.TrimSuffix(parts[1], ".git"),
	}
	if len(parts) >= 4 && (parts[2] == "tree" || parts[2] == "blob") {
		repo.Ref = parts[3]
		repo.Subdir = strings.Join(parts[4:], "/")
	}
	return repo, nil
}

// String returns the owner/name form
func (r Repo) String() string {
	return r.Owner + "/" + r.Name
}

// TitleFromPath turns "SpringFramework/bean-life_cycle.md" into "Bean Life Cycle"
func TitleFromPath(p string) string {
	base := path.Base(p)
	base = strings.TrimSuffix(base, path.Ext(base))
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	base = strings.Join(strings.Fields(base), " ")
	return cases.Title(language.English, cases.NoLower).String(base)
}

// CategoryFromPath returns the top-level directory of p, empty for root files
func CategoryFromPath(p string) string {
	p = strings.Trim(p, "/")
	if i := strings.Index(p, "/"); i >= 0 {
		return p[:i]
	}
	return ""
}
