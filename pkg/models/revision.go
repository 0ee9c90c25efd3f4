package models

import "time"

// Revision records one completed study of a topic
type Revision struct {
	ID        int64     `json:"id" db:"id"`
	TopicID   int64     `json:"topic_id" db:"topic_id"`
	TopicName string    `json:"topic_name" db:"topic_name"`
	UserID    int64     `json:"user_id" db:"user_id"` // 0 for the CLI and the HTTP API
	RevisedAt time.Time `json:"revised_at" db:"revised_at"`
	Prompt    string    `json:"prompt,omitempty" db:"prompt"`
	Response  string    `json:"response,omitempty" db:"response"`
}
