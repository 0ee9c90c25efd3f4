// Package revision decides which topic should be revised next.
package revision

import (
	"errors"
	"math/rand"
	"sort"
	"time"

	"github.com/example/revisionbot/pkg/models"
)

// ErrNoTopics is returned when there is nothing to choose from
var ErrNoTopics = errors.New("no topics")

// Intervals are the review intervals in days after the 1st, 2nd, ... revision.
// Topics revised more often than len(Intervals) keep the last interval.
var Intervals = []int{1, 2, 3, 7, 15, 25, 40}

// NextReviewDate returns when the topic is due again, nil when it was never revised
func NextReviewDate(topic models.Topic) *time.Time {
	if topic.LastRevisionDate == nil {
		return nil
	}
	n := topic.RevisionCount - 1
	if n < 0 {
		n = 0
	}
	if n >= len(Intervals) {
		n = len(Intervals) - 1
	}
	next := topic.LastRevisionDate.AddDate(0, 0, Intervals[n])
	return &next
}

// IsDue reports whether the topic should be revised at now
func IsDue(topic models.Topic, now time.Time) bool {
	next := NextReviewDate(topic)
	return next == nil || !next.After(now)
}

// CountDue returns how many topics are due at now
func CountDue(topics []models.Topic, now time.Time) int {
	n := 0
	for _, t := range topics {
		if IsDue(t, now) {
			n++
		}
	}
	return n
}

// Order sorts a copy of topics into revision order:
// due topics first, then by priority (unset last), then by last revision date
// (never revised first), then by name and ID.
func Order(topics []models.Topic, now time.Time) []models.Topic {
	ordered := make([]models.Topic, len(topics))
	copy(ordered, topics)

	sort.SliceStable(ordered, func(i, j int) bool {
		return less(ordered[i], ordered[j], now)
	})
	return ordered
}

func less(a, b models.Topic, now time.Time) bool {
	dueA, dueB := IsDue(a, now), IsDue(b, now)
	if dueA != dueB {
		return dueA
	}

	switch {
	case a.Priority != nil && b.Priority == nil:
		return true
	case a.Priority == nil && b.Priority != nil:
		return false
	case a.Priority != nil && b.Priority != nil && *a.Priority != *b.Priority:
		return *a.Priority < *b.Priority
	}

	switch {
	case a.LastRevisionDate == nil && b.LastRevisionDate != nil:
		return true
	case a.LastRevisionDate != nil && b.LastRevisionDate == nil:
		return false
	case a.LastRevisionDate != nil && b.LastRevisionDate != nil && !a.LastRevisionDate.Equal(*b.LastRevisionDate):
		return a.LastRevisionDate.Before(*b.LastRevisionDate)
	}

	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.ID < b.ID
}

// Next returns the first limit topics in revision order. A limit of 0 or less returns all.
func Next(topics []models.Topic, now time.Time, limit int) []models.Topic {
	ordered := Order(topics, now)
	if limit > 0 && len(ordered) > limit {
		return ordered[:limit]
	}
	return ordered
}

// Random picks a topic uniformly
func Random(topics []models.Topic, rng *rand.Rand) (models.Topic, error) {
	if len(topics) == 0 {
		return models.Topic{}, ErrNoTopics
	}
	if rng == nil {
		return topics[rand.Intn(len(topics))], nil
	}
	return topics[rng.Intn(len(topics))], nil
}
