package models

import "time"

// Bookmark marks a topic a user wants to come back to
type Bookmark struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	TopicID   int64     `json:"topic_id" db:"topic_id"`
	TopicName string    `json:"topic_name" db:"topic_name"`
	URL       string    `json:"url" db:"url"`
	Note      string    `json:"note,omitempty" db:"note"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
