package study

import (
	"context"
	"fmt"
	"log"

	"github.com/example/revisionbot/internal/prompt"
	"github.com/example/revisionbot/pkg/models"
	"go.opentelemetry.io/otel/attribute"
)

// Session is one study of one topic
type Session struct {
	Topic    models.Topic     `json:"topic"`
	Mode     prompt.Mode      `json:"mode"`
	Note     string           `json:"-"`
	Prompt   prompt.Prompt    `json:"prompt"`
	Response string           `json:"response,omitempty"`
	FromAI   bool             `json:"from_ai"`
	Revision *models.Revision `json:"revision,omitempty"`
}

// Request describes a study run. TopicID 0 studies the next topic.
type Request struct {
	UserID      int64
	TopicID     int64
	Mode        prompt.Mode
	MarkRevised bool
	SkipAI      bool
}

// Prepare loads the topic and its note and builds the prompt.
// A note that cannot be fetched leaves the prompt without note content.
func (s *Service) Prepare(ctx context.Context, topicID int64, mode prompt.Mode) (*Session, error) {
	topic, err := s.topics.GetByID(ctx, topicID)
	if err != nil {
		return nil, err
	}

	var note string
	if s.notes != nil {
		note, err = s.notes.Fetch(ctx, topic.Name)
		if err != nil {
			log.Printf("Error fetching note %s: %v", topic.Name, err)
			note = ""
		}
	}

	p, err := prompt.Build(*topic, note, mode, s.cfg.MaxNoteChars)
	if err != nil {
		return nil, err
	}

	return &Session{Topic: *topic, Mode: p.Mode, Note: note, Prompt: p}, nil
}

// Ask fills the session response from the language model, or with a link to the
// note when the model is disabled or fails
func (s *Service) Ask(ctx context.Context, session *Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fallback := Fallback(session.Topic)
	if s.ai == nil {
		session.Response = fallback
		return nil
	}

	session.Response, session.FromAI = s.ai.CompleteWithFallback(ctx, session.Prompt, fallback)
	return nil
}

// Study prepares a session, asks the model unless skipped and optionally records a revision
func (s *Service) Study(ctx context.Context, req Request) (*Session, error) {
	ctx, span := tracer.Start(ctx, "study.Study")
	defer span.End()

	topicID := req.TopicID
	if topicID == 0 {
		next, err := s.NextTopic(ctx)
		if err != nil {
			return nil, err
		}
		topicID = next.ID
	}
	span.SetAttributes(attribute.Int64("topic.id", topicID), attribute.String("prompt.mode", string(req.Mode)))

	session, err := s.Prepare(ctx, topicID, req.Mode)
	if err != nil {
		return nil, err
	}

	if !req.SkipAI {
		if err := s.Ask(ctx, session); err != nil {
			return nil, err
		}
	}

	if req.MarkRevised {
		rev, err := s.MarkRevised(ctx, req.UserID, topicID, session.Prompt.User, session.Response)
		if err != nil {
			return nil, err
		}
		session.Revision = rev
		session.Topic.LastRevisionDate = &rev.RevisedAt
		session.Topic.RevisionCount++
	}
	return session, nil
}

// Fallback is the response used when no model answer is available
func Fallback(topic models.Topic) string {
	if topic.URL == "" {
		return fmt.Sprintf("No AI answer available. Revise %s from your notes.", topic.DisplayName())
	}
	return fmt.Sprintf("No AI answer available. Revise %s from your notes: %s", topic.DisplayName(), topic.URL)
}
