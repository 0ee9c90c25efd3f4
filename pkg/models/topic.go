package models

import "time"

// Topic represents a single note in the notes repository that needs to be revised
type Topic struct {
	ID               int64      `json:"id" db:"id"`
	Name             string     `json:"name" db:"name"` // Path inside the notes repository
	Title            string     `json:"title" db:"title"`
	Category         string     `json:"category" db:"category"`
	URL              string     `json:"url" db:"url"`
	Priority         *int       `json:"priority,omitempty" db:"priority"` // 1 is the most important
	LastRevisionDate *time.Time `json:"last_revision_date,omitempty" db:"last_revision_date"`
	RevisionCount    int        `json:"revision_count" db:"revision_count"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

// DisplayName returns the title when known, otherwise the path
func (t Topic) DisplayName() string {
	if t.Title != "" {
		return t.Title
	}
	return t.Name
}
