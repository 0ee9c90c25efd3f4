// Package notestest provides an in-memory GitHub contents API for tests.
package notestest

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path"
	"sort"
	"strings"
	"sync"
	"testing"
)

// Server fakes the parts of the GitHub contents API used by the notes client
type Server struct {
	*httptest.Server

	Owner string
	Repo  string

	mu       sync.Mutex
	files    map[string]string
	failDirs map[string]bool
	requests []string
}

type entry struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Path        string `json:"path"`
	Size        int    `json:"size"`
	HTMLURL     string `json:"html_url"`
	DownloadURL string `json:"download_url,omitempty"`
	Encoding    string `json:"encoding,omitempty"`
	Content     string `json:"content,omitempty"`
}

// NewServer starts a fake repository owner/repo holding files (path to content)
func NewServer(t testing.TB, owner, repo string, files map[string]string) *Server {
	t.Helper()

	s := &Server{
		Owner:    owner,
		Repo:     repo,
		files:    files,
		failDirs: map[string]bool{},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// FailDir makes every request for dir answer with a server error
func (s *Server) FailDir(dir string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failDirs[dir] = true
}

// Requests returns the content paths requested so far
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// HTMLURL is the link the fake reports for a file
func (s *Server) HTMLURL(p string) string {
	return "https://github.com/" + s.Owner + "/" + s.Repo + "/blob/main/" + p
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	prefix := "/repos/" + s.Owner + "/" + s.Repo + "/contents"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		notFound(w)
		return
	}
	p := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")

	s.mu.Lock()
	s.requests = append(s.requests, p)
	fail := s.failDirs[p]
	s.mu.Unlock()

	if fail {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"boom"}`))
		return
	}

	if content, ok := s.files[p]; ok {
		writeJSON(w, entry{
			Type:        "file",
			Name:        path.Base(p),
			Path:        p,
			Size:        len(content),
			HTMLURL:     s.HTMLURL(p),
			DownloadURL: s.URL + "/raw/" + p,
			Encoding:    "base64",
			Content:     base64.StdEncoding.EncodeToString([]byte(content)),
		})
		return
	}

	entries := s.list(p)
	if len(entries) == 0 {
		notFound(w)
		return
	}
	writeJSON(w, entries)
}

func (s *Server) list(dir string) []entry {
	seenDirs := map[string]bool{}
	var entries []entry
	for p, content := range s.files {
		rest := p
		if dir != "" {
			if !strings.HasPrefix(p, dir+"/") {
				continue
			}
			rest = strings.TrimPrefix(p, dir+"/")
		}
		if i := strings.Index(rest, "/"); i >= 0 {
			name := rest[:i]
			if seenDirs[name] {
				continue
			}
			seenDirs[name] = true
			entries = append(entries, entry{Type: "dir", Name: name, Path: path.Join(dir, name)})
			continue
		}
		entries = append(entries, entry{
			Type:        "file",
			Name:        rest,
			Path:        p,
			Size:        len(content),
			HTMLURL:     s.HTMLURL(p),
			DownloadURL: s.URL + "/raw/" + p,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func notFound(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte(`{"message":"Not Found"}`))
}
