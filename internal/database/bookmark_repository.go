package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/revisionbot/pkg/models"
	"github.com/jmoiron/sqlx"
)

// BookmarkRepository handles database operations for bookmarks
type BookmarkRepository struct {
	db *sqlx.DB
}

// NewBookmarkRepository creates a new repository instance
func NewBookmarkRepository(db *sqlx.DB) *BookmarkRepository {
	return &BookmarkRepository{db: db}
}

// Add bookmarks a topic for a user. Bookmarking twice only replaces the note,
// an empty note keeps the stored one.
func (r *BookmarkRepository) Add(ctx context.Context, bookmark *models.Bookmark) error {
	var exists int
	err := r.db.GetContext(ctx, &exists, r.db.Rebind("SELECT 1 FROM topics WHERE id = ?"), bookmark.TopicID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("topic %d: %w", bookmark.TopicID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check topic: %w", err)
	}

	now := time.Now().UTC()
	query := r.db.Rebind(`
		INSERT INTO bookmarks (user_id, topic_id, note, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, topic_id) DO UPDATE SET
			note = CASE WHEN excluded.note = '' THEN bookmarks.note ELSE excluded.note END
	`)
	if _, err := r.db.ExecContext(ctx, query, bookmark.UserID, bookmark.TopicID, bookmark.Note, now); err != nil {
		return fmt.Errorf("failed to add bookmark: %w", err)
	}

	stored, err := r.get(ctx, bookmark.UserID, bookmark.TopicID)
	if err != nil {
		return err
	}
	*bookmark = *stored
	return nil
}

// Remove deletes a bookmark
func (r *BookmarkRepository) Remove(ctx context.Context, userID, topicID int64) error {
	query := r.db.Rebind("DELETE FROM bookmarks WHERE user_id = ? AND topic_id = ?")
	result, err := r.db.ExecContext(ctx, query, userID, topicID)
	if err != nil {
		return fmt.Errorf("failed to remove bookmark: %w", err)
	}
	return expectAffected(result, fmt.Sprintf("bookmark for topic %d", topicID))
}

// Exists reports whether the user bookmarked the topic
func (r *BookmarkRepository) Exists(ctx context.Context, userID, topicID int64) (bool, error) {
	_, err := r.get(ctx, userID, topicID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListByUser returns the user's bookmarks, newest first
func (r *BookmarkRepository) ListByUser(ctx context.Context, userID int64) ([]models.Bookmark, error) {
	query := r.db.Rebind(`
		SELECT b.id, b.user_id, b.topic_id, t.name AS topic_name, t.url, b.note, b.created_at
		FROM bookmarks b
		JOIN topics t ON b.topic_id = t.id
		WHERE b.user_id = ?
		ORDER BY b.created_at DESC, b.id DESC
	`)
	bookmarks := []models.Bookmark{}
	if err := r.db.SelectContext(ctx, &bookmarks, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get bookmarks: %w", err)
	}
	return bookmarks, nil
}

func (r *BookmarkRepository) get(ctx context.Context, userID, topicID int64) (*models.Bookmark, error) {
	query := r.db.Rebind(`
		SELECT b.id, b.user_id, b.topic_id, t.name AS topic_name, t.url, b.note, b.created_at
		FROM bookmarks b
		JOIN topics t ON b.topic_id = t.id
		WHERE b.user_id = ? AND b.topic_id = ?
	`)
	var bookmark models.Bookmark
	err := r.db.GetContext(ctx, &bookmark, query, userID, topicID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("bookmark for topic %d: %w", topicID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bookmark: %w", err)
	}
	return &bookmark, nil
}
