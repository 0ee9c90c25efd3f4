// Package study ties the topic store, the notes repository and the language model together.
package study

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/example/revisionbot/internal/database"
	"github.com/example/revisionbot/internal/notes"
	"github.com/example/revisionbot/internal/prompt"
	"github.com/example/revisionbot/internal/revision"
	"github.com/example/revisionbot/internal/telemetry"
	"github.com/example/revisionbot/pkg/models"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("internal/study")

var (
	// ErrNoTopics is returned when the topic store is empty
	ErrNoTopics = revision.ErrNoTopics
	// ErrNotesDisabled is returned by Sync when no notes repository is configured
	ErrNotesDisabled = errors.New("notes repository is not configured")
	// ErrInvalidPriority is returned for priorities below 1
	ErrInvalidPriority = errors.New("priority must be 1 or greater")
)

// NoteSource lists and reads notes
type NoteSource interface {
	List(ctx context.Context, subdir string, maxDepth int) (notes.Listing, error)
	Fetch(ctx context.Context, path string) (string, error)
}

// Answerer produces study answers for a prompt. It returns fallback when no
// model answer is available and reports whether the answer came from the model.
type Answerer interface {
	CompleteWithFallback(ctx context.Context, p prompt.Prompt, fallback string) (string, bool)
}

// Config controls syncing and prompt building
type Config struct {
	Subdir       string
	MaxDepth     int
	Prune        bool
	MaxNoteChars int
}

// Service implements the study workflow
type Service struct {
	topics    *database.TopicRepository
	revisions *database.RevisionRepository
	bookmarks *database.BookmarkRepository
	stats     *database.StatisticsRepository
	notes     NoteSource
	ai        Answerer
	cfg       Config
	now       func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// NewService creates a new study service. src and ai may be nil.
func NewService(db *sqlx.DB, src NoteSource, ai Answerer, cfg Config) *Service {
	return &Service{
		topics:    database.NewTopicRepository(db),
		revisions: database.NewRevisionRepository(db),
		bookmarks: database.NewBookmarkRepository(db),
		stats:     database.NewStatisticsRepository(db),
		notes:     src,
		ai:        ai,
		cfg:       cfg,
		now:       time.Now,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetClock replaces the clock used for due dates and revisions
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// SetRand replaces the random source used by RandomTopic
func (s *Service) SetRand(rng *rand.Rand) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rng = rng
}

// HasNotes reports whether a notes repository is configured
func (s *Service) HasNotes() bool {
	return s.notes != nil
}

// Topics returns every topic, or the topics of one category
func (s *Service) Topics(ctx context.Context, category string) ([]models.Topic, error) {
	if category != "" {
		return s.topics.ListByCategory(ctx, category)
	}
	return s.topics.List(ctx)
}

// Categories returns the known categories
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	return s.topics.Categories(ctx)
}

// Topic returns one topic
func (s *Service) Topic(ctx context.Context, topicID int64) (*models.Topic, error) {
	return s.topics.GetByID(ctx, topicID)
}

// TopicRepository exposes the topic store to importers
func (s *Service) TopicRepository() *database.TopicRepository {
	return s.topics
}

// NextTopic returns the topic that should be revised now
func (s *Service) NextTopic(ctx context.Context) (*models.Topic, error) {
	upcoming, err := s.Upcoming(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(upcoming) == 0 {
		return nil, ErrNoTopics
	}
	return &upcoming[0], nil
}

// Upcoming returns the next n topics in revision order, n <= 0 returns all
func (s *Service) Upcoming(ctx context.Context, n int) ([]models.Topic, error) {
	topics, err := s.topics.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(topics) == 0 {
		return nil, ErrNoTopics
	}
	return revision.Next(topics, s.now(), n), nil
}

// DueCount returns how many topics are due now
func (s *Service) DueCount(ctx context.Context) (int, error) {
	topics, err := s.topics.List(ctx)
	if err != nil {
		return 0, err
	}
	return revision.CountDue(topics, s.now()), nil
}

// RandomTopic picks any stored topic
func (s *Service) RandomTopic(ctx context.Context) (*models.Topic, error) {
	topics, err := s.topics.List(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	topic, err := revision.Random(topics, s.rng)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return &topic, nil
}

// SetPriority sets or clears (nil) the priority of a topic
func (s *Service) SetPriority(ctx context.Context, topicID int64, priority *int) (*models.Topic, error) {
	if priority != nil && *priority < 1 {
		return nil, ErrInvalidPriority
	}
	if err := s.topics.SetPriority(ctx, topicID, priority); err != nil {
		return nil, err
	}
	return s.topics.GetByID(ctx, topicID)
}

// MarkRevised records a revision now and moves the topic's last revision date
func (s *Service) MarkRevised(ctx context.Context, userID, topicID int64, promptText, response string) (*models.Revision, error) {
	rev := &models.Revision{
		TopicID:   topicID,
		UserID:    userID,
		RevisedAt: s.now().UTC(),
		Prompt:    promptText,
		Response:  response,
	}
	if err := s.revisions.Record(ctx, rev); err != nil {
		return nil, err
	}
	return rev, nil
}

// History returns the revisions of a topic, newest first
func (s *Service) History(ctx context.Context, topicID int64) ([]models.Revision, error) {
	if _, err := s.topics.GetByID(ctx, topicID); err != nil {
		return nil, err
	}
	return s.revisions.ListByTopic(ctx, topicID)
}

// RecentRevisions returns the latest revisions across all topics
func (s *Service) RecentRevisions(ctx context.Context, limit int) ([]models.Revision, error) {
	return s.revisions.ListRecent(ctx, limit)
}

// Bookmark saves a topic for a user, bookmarking again replaces the note
func (s *Service) Bookmark(ctx context.Context, userID, topicID int64, note string) (*models.Bookmark, error) {
	b := &models.Bookmark{UserID: userID, TopicID: topicID, Note: note}
	if err := s.bookmarks.Add(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Unbookmark removes a bookmark
func (s *Service) Unbookmark(ctx context.Context, userID, topicID int64) error {
	return s.bookmarks.Remove(ctx, userID, topicID)
}

// IsBookmarked reports whether the user bookmarked the topic
func (s *Service) IsBookmarked(ctx context.Context, userID, topicID int64) (bool, error) {
	return s.bookmarks.Exists(ctx, userID, topicID)
}

// Bookmarks returns the bookmarks of a user
func (s *Service) Bookmarks(ctx context.Context, userID int64) ([]models.Bookmark, error) {
	return s.bookmarks.ListByUser(ctx, userID)
}

// Stats returns the progress summary for a user
func (s *Service) Stats(ctx context.Context, userID int64) (*models.Statistics, error) {
	stats, err := s.stats.Summary(ctx, userID)
	if err != nil {
		return nil, err
	}
	due, err := s.DueCount(ctx)
	if err != nil {
		return nil, err
	}
	stats.DueNow = due
	return stats, nil
}

// SyncResult reports what a sync changed
type SyncResult struct {
	Found   int      `json:"found"`
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Removed int      `json:"removed"`
	Errors  []string `json:"errors,omitempty"`
}

// Sync refreshes the topic list from the notes repository. Topics missing from
// the repository are removed only when pruning is enabled and the crawl was complete.
func (s *Service) Sync(ctx context.Context) (SyncResult, error) {
	if s.notes == nil {
		return SyncResult{}, ErrNotesDisabled
	}

	ctx, span := tracer.Start(ctx, "study.Sync")
	defer span.End()

	listing, err := s.notes.List(ctx, s.cfg.Subdir, s.cfg.MaxDepth)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list notes failed")
		return SyncResult{}, fmt.Errorf("sync notes: %w", err)
	}

	result := SyncResult{Found: len(listing.Files), Errors: listing.Errors}
	names := make([]string, 0, len(listing.Files))
	for _, f := range listing.Files {
		topic := &models.Topic{
			Name:     f.Path,
			Title:    notes.TitleFromPath(f.Path),
			Category: notes.CategoryFromPath(f.Path),
			URL:      f.HTMLURL,
		}
		created, err := s.topics.Upsert(ctx, topic)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", f.Path, err))
			continue
		}
		names = append(names, f.Path)
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	if s.cfg.Prune && len(result.Errors) == 0 && len(names) > 0 {
		removed, err := s.topics.DeleteMissing(ctx, names)
		if err != nil {
			return result, fmt.Errorf("prune topics: %w", err)
		}
		result.Removed = removed
	}

	span.SetAttributes(
		attribute.Int("sync.found", result.Found),
		attribute.Int("sync.created", result.Created),
		attribute.Int("sync.removed", result.Removed),
		attribute.Int("sync.errors", len(result.Errors)),
	)
	log.Printf("Synced notes: %d found, %d created, %d updated, %d removed, %d errors",
		result.Found, result.Created, result.Updated, result.Removed, len(result.Errors))
	return result, nil
}
