package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/revisionbot/pkg/models"
	"github.com/jmoiron/sqlx"
)

// RevisionRepository handles database operations for revisions
type RevisionRepository struct {
	db *sqlx.DB
}

// NewRevisionRepository creates a new repository instance
func NewRevisionRepository(db *sqlx.DB) *RevisionRepository {
	return &RevisionRepository{db: db}
}

// Record stores a revision and moves the topic's last revision date forward
func (r *RevisionRepository) Record(ctx context.Context, rev *models.Revision) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	var name string
	err = tx.GetContext(ctx, &name, tx.Rebind("SELECT name FROM topics WHERE id = ?"), rev.TopicID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("topic %d: %w", rev.TopicID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to get topic: %w", err)
	}

	query := tx.Rebind(`
		INSERT INTO revisions (topic_id, user_id, revised_at, prompt, response)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`)
	err = tx.QueryRowxContext(ctx, query,
		rev.TopicID,
		rev.UserID,
		rev.RevisedAt,
		rev.Prompt,
		rev.Response,
	).Scan(&rev.ID)
	if err != nil {
		return fmt.Errorf("failed to create revision: %w", err)
	}

	update := tx.Rebind(`
		UPDATE topics SET
			last_revision_date = ?,
			revision_count = revision_count + 1,
			updated_at = ?
		WHERE id = ?
	`)
	if _, err := tx.ExecContext(ctx, update, rev.RevisedAt, rev.RevisedAt, rev.TopicID); err != nil {
		return fmt.Errorf("failed to update topic revision date: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	rev.TopicName = name
	return nil
}

// ListByTopic returns the revisions of a topic, newest first
func (r *RevisionRepository) ListByTopic(ctx context.Context, topicID int64) ([]models.Revision, error) {
	query := r.db.Rebind(`
		SELECT r.id, r.topic_id, t.name AS topic_name, r.user_id, r.revised_at, r.prompt, r.response
		FROM revisions r
		JOIN topics t ON r.topic_id = t.id
		WHERE r.topic_id = ?
		ORDER BY r.revised_at DESC, r.id DESC
	`)
	revisions := []models.Revision{}
	if err := r.db.SelectContext(ctx, &revisions, query, topicID); err != nil {
		return nil, fmt.Errorf("failed to get revisions: %w", err)
	}
	return revisions, nil
}

// ListRecent returns the latest revisions across all topics
func (r *RevisionRepository) ListRecent(ctx context.Context, limit int) ([]models.Revision, error) {
	if limit <= 0 {
		limit = 10
	}
	query := r.db.Rebind(`
		SELECT r.id, r.topic_id, t.name AS topic_name, r.user_id, r.revised_at, r.prompt, r.response
		FROM revisions r
		JOIN topics t ON r.topic_id = t.id
		ORDER BY r.revised_at DESC, r.id DESC
		LIMIT ?
	`)
	revisions := []models.Revision{}
	if err := r.db.SelectContext(ctx, &revisions, query, limit); err != nil {
		return nil, fmt.Errorf("failed to get revisions: %w", err)
	}
	return revisions, nil
}
