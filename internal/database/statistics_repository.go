package database

import (
	"context"
	"fmt"

	"github.com/example/revisionbot/pkg/models"
	"github.com/jmoiron/sqlx"
)

// StatisticsRepository aggregates revision progress
type StatisticsRepository struct {
	db *sqlx.DB
}

// NewStatisticsRepository creates a new repository instance
func NewStatisticsRepository(db *sqlx.DB) *StatisticsRepository {
	return &StatisticsRepository{db: db}
}

// Summary returns the stored counters. DueNow is left for the caller, it depends on the clock.
func (r *StatisticsRepository) Summary(ctx context.Context, userID int64) (*models.Statistics, error) {
	stats := &models.Statistics{Categories: []models.CategoryCount{}}

	counts := []struct {
		dest  *int
		query string
		args  []interface{}
	}{
		{&stats.TotalTopics, "SELECT COUNT(*) FROM topics", nil},
		{&stats.RevisedTopics, "SELECT COUNT(*) FROM topics WHERE last_revision_date IS NOT NULL", nil},
		{&stats.TotalRevisions, "SELECT COUNT(*) FROM revisions", nil},
		{&stats.UserRevisions, "SELECT COUNT(*) FROM revisions WHERE user_id = ?", []interface{}{userID}},
		{&stats.Bookmarks, "SELECT COUNT(*) FROM bookmarks WHERE user_id = ?", []interface{}{userID}},
	}
	for _, c := range counts {
		if err := r.db.GetContext(ctx, c.dest, r.db.Rebind(c.query), c.args...); err != nil {
			return nil, fmt.Errorf("failed to get statistics: %w", err)
		}
	}
	stats.NeverRevised = stats.TotalTopics - stats.RevisedTopics

	query := `
		SELECT category,
			COUNT(*) AS topics,
			COUNT(last_revision_date) AS revised
		FROM topics
		GROUP BY category
		ORDER BY category
	`
	if err := r.db.SelectContext(ctx, &stats.Categories, query); err != nil {
		return nil, fmt.Errorf("failed to get category statistics: %w", err)
	}

	return stats, nil
}
