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

const topicColumns = `id, name, title, category, url, priority, last_revision_date,
	revision_count, created_at, updated_at`

// TopicRepository handles database operations for topics
type TopicRepository struct {
	db *sqlx.DB
}

// NewTopicRepository creates a new repository instance
func NewTopicRepository(db *sqlx.DB) *TopicRepository {
	return &TopicRepository{db: db}
}

// List returns all topics ordered by name
func (r *TopicRepository) List(ctx context.Context) ([]models.Topic, error) {
	topics := []models.Topic{}
	query := "SELECT " + topicColumns + " FROM topics ORDER BY name"
	if err := r.db.SelectContext(ctx, &topics, query); err != nil {
		return nil, fmt.Errorf("failed to get topics: %w", err)
	}
	return topics, nil
}

// ListByCategory returns the topics of one category ordered by name
func (r *TopicRepository) ListByCategory(ctx context.Context, category string) ([]models.Topic, error) {
	topics := []models.Topic{}
	query := r.db.Rebind("SELECT " + topicColumns + " FROM topics WHERE category = ? ORDER BY name")
	if err := r.db.SelectContext(ctx, &topics, query, category); err != nil {
		return nil, fmt.Errorf("failed to get topics for category %q: %w", category, err)
	}
	return topics, nil
}

// Categories returns the distinct categories in use
func (r *TopicRepository) Categories(ctx context.Context) ([]string, error) {
	categories := []string{}
	query := "SELECT DISTINCT category FROM topics ORDER BY category"
	if err := r.db.SelectContext(ctx, &categories, query); err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	return categories, nil
}

// GetByID returns a topic by ID
func (r *TopicRepository) GetByID(ctx context.Context, topicID int64) (*models.Topic, error) {
	var topic models.Topic
	query := r.db.Rebind("SELECT " + topicColumns + " FROM topics WHERE id = ?")
	err := r.db.GetContext(ctx, &topic, query, topicID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("topic %d: %w", topicID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get topic: %w", err)
	}
	return &topic, nil
}

// GetByName returns a topic by its name
func (r *TopicRepository) GetByName(ctx context.Context, name string) (*models.Topic, error) {
	var topic models.Topic
	query := r.db.Rebind("SELECT " + topicColumns + " FROM topics WHERE name = ?")
	err := r.db.GetContext(ctx, &topic, query, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("topic %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get topic: %w", err)
	}
	return &topic, nil
}

// Create inserts a new topic
func (r *TopicRepository) Create(ctx context.Context, topic *models.Topic) error {
	now := time.Now().UTC()
	query := r.db.Rebind(`
		INSERT INTO topics (name, title, category, url, priority, last_revision_date,
			revision_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	err := r.db.QueryRowxContext(ctx, query,
		topic.Name,
		topic.Title,
		topic.Category,
		topic.URL,
		topic.Priority,
		topic.LastRevisionDate,
		topic.RevisionCount,
		now,
		now,
	).Scan(&topic.ID)
	if err != nil {
		return fmt.Errorf("failed to create topic: %w", err)
	}

	topic.CreatedAt = now
	topic.UpdatedAt = now
	return nil
}

// Upsert inserts the topic or refreshes the title, category and URL of an existing
// topic with the same name in one statement. An empty URL keeps the stored one.
// Priority and revision data of existing topics are kept.
// It reports whether a new row was created.
func (r *TopicRepository) Upsert(ctx context.Context, topic *models.Topic) (bool, error) {
	now := time.Now().UTC()
	query := r.db.Rebind(`
		INSERT INTO topics (name, title, category, url, priority, last_revision_date,
			revision_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			title = excluded.title,
			category = excluded.category,
			url = CASE WHEN excluded.url = '' THEN topics.url ELSE excluded.url END,
			updated_at = excluded.updated_at
		RETURNING ` + topicColumns)

	err := r.db.QueryRowxContext(ctx, query,
		topic.Name,
		topic.Title,
		topic.Category,
		topic.URL,
		topic.Priority,
		topic.LastRevisionDate,
		topic.RevisionCount,
		now,
		now,
	).StructScan(topic)
	if err != nil {
		return false, fmt.Errorf("failed to create/update topic: %w", err)
	}

	// an updated row keeps its original created_at
	return topic.CreatedAt.Equal(topic.UpdatedAt), nil
}

// SetPriority updates the priority of a topic, nil clears it
func (r *TopicRepository) SetPriority(ctx context.Context, topicID int64, priority *int) error {
	query := r.db.Rebind("UPDATE topics SET priority = ?, updated_at = ? WHERE id = ?")
	result, err := r.db.ExecContext(ctx, query, priority, time.Now().UTC(), topicID)
	if err != nil {
		return fmt.Errorf("failed to update priority: %w", err)
	}
	return expectAffected(result, fmt.Sprintf("topic %d", topicID))
}

// SetRevision overwrites the revision data of a topic. Used by imports.
func (r *TopicRepository) SetRevision(ctx context.Context, topicID int64, last *time.Time, count int) error {
	query := r.db.Rebind(`
		UPDATE topics SET last_revision_date = ?, revision_count = ?, updated_at = ?
		WHERE id = ?
	`)
	result, err := r.db.ExecContext(ctx, query, last, count, time.Now().UTC(), topicID)
	if err != nil {
		return fmt.Errorf("failed to update revision data: %w", err)
	}
	return expectAffected(result, fmt.Sprintf("topic %d", topicID))
}

// Delete removes a topic with its revisions and bookmarks
func (r *TopicRepository) Delete(ctx context.Context, topicID int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteTopicTx(ctx, tx, topicID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteMissing removes every topic whose name is not in keep and returns how many were removed
func (r *TopicRepository) DeleteMissing(ctx context.Context, keep []string) (int, error) {
	keepSet := make(map[string]struct{}, len(keep))
	for _, name := range keep {
		keepSet[name] = struct{}{}
	}

	var all []struct {
		ID   int64  `db:"id"`
		Name string `db:"name"`
	}
	if err := r.db.SelectContext(ctx, &all, "SELECT id, name FROM topics"); err != nil {
		return 0, fmt.Errorf("failed to get topics: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	removed := 0
	for _, t := range all {
		if _, ok := keepSet[t.Name]; ok {
			continue
		}
		if err := deleteTopicTx(ctx, tx, t.ID); err != nil {
			return 0, err
		}
		removed++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return removed, nil
}

func deleteTopicTx(ctx context.Context, tx *sqlx.Tx, topicID int64) error {
	if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM revisions WHERE topic_id = ?"), topicID); err != nil {
		return fmt.Errorf("failed to delete revisions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM bookmarks WHERE topic_id = ?"), topicID); err != nil {
		return fmt.Errorf("failed to delete bookmarks: %w", err)
	}
	result, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM topics WHERE id = ?"), topicID)
	if err != nil {
		return fmt.Errorf("failed to delete topic: %w", err)
	}
	return expectAffected(result, fmt.Sprintf("topic %d", topicID))
}

func expectAffected(result sql.Result, what string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}
