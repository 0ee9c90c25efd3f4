package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/revisionbot/pkg/models"
)

func TestRevisionRecordAndList(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	topics := NewTopicRepository(db)
	revisions := NewRevisionRepository(db)

	topic := &models.Topic{Name: "GC/g1.md"}
	if err := topics.Create(ctx, topic); err != nil {
		t.Fatalf("create: %v", err)
	}

	first := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	second := first.Add(48 * time.Hour)
	for _, at := range []time.Time{first, second} {
		rev := &models.Revision{TopicID: topic.ID, UserID: 5, RevisedAt: at, Prompt: "p", Response: "r"}
		if err := revisions.Record(ctx, rev); err != nil {
			t.Fatalf("record: %v", err)
		}
		if rev.ID == 0 || rev.TopicName != "GC/g1.md" {
			t.Fatalf("expected id and topic name to be filled, got %+v", rev)
		}
	}

	list, err := revisions.ListByTopic(ctx, topic.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || !list[0].RevisedAt.Equal(second) {
		t.Fatalf("expected newest revision first, got %+v", list)
	}

	recent, err := revisions.ListRecent(ctx, 1)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("expected 1 recent revision, got %d", len(recent))
	}

	stored, err := topics.GetByID(ctx, topic.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.RevisionCount != 2 || stored.LastRevisionDate == nil || !stored.LastRevisionDate.Equal(second) {
		t.Fatalf("expected count 2 and last revision %v, got %+v", second, stored)
	}
}

func TestRevisionRecordUnknownTopic(t *testing.T) {
	revisions := NewRevisionRepository(openTestDB(t))

	err := revisions.Record(context.Background(), &models.Revision{TopicID: 99, RevisedAt: time.Now()})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
