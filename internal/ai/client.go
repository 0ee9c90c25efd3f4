// Package ai fetches study answers from an OpenAI compatible chat completions API.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/example/revisionbot/internal/prompt"
	"github.com/example/revisionbot/internal/telemetry"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("internal/ai")

var (
	// ErrDisabled is returned when no API key is configured
	ErrDisabled = errors.New("language model is not configured")
	// ErrEmptyResponse is returned when the model answers without content
	ErrEmptyResponse = errors.New("no response choices returned")
)

// Config configures the client
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	MaxRetries  int
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// Client talks to the chat completions endpoint
type Client struct {
	client openai.Client
	cfg    Config
}

// New creates a new client. Without an API key the client is disabled and every
// request fails with ErrDisabled.
func New(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = openai.ChatModelGPT4oMini
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 600
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")+"/"))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &Client{client: openai.NewClient(opts...), cfg: cfg}
}

// Enabled reports whether an API key is configured
func (c *Client) Enabled() bool {
	return c != nil && c.cfg.APIKey != ""
}

// Model returns the configured model name
func (c *Client) Model() string {
	return c.cfg.Model
}

// Complete sends the prompt and returns the trimmed answer
func (c *Client) Complete(ctx context.Context, p prompt.Prompt) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}

	ctx, span := tracer.Start(ctx, "ai.Complete")
	defer span.End()
	span.SetAttributes(
		attribute.String("ai.model", c.cfg.Model),
		attribute.String("ai.prompt_mode", string(p.Mode)),
	)

	messages := []openai.ChatCompletionMessageParamUnion{}
	if p.System != "" {
		messages = append(messages, openai.SystemMessage(p.System))
	}
	messages = append(messages, openai.UserMessage(p.User))

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.cfg.Model),
		Messages:    messages,
		MaxTokens:   openai.Int(int64(c.cfg.MaxTokens)),
		Temperature: openai.Float(c.cfg.Temperature),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "chat completion failed")
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("API error (status %d): %w", apiErr.StatusCode, err)
		}
		return "", fmt.Errorf("failed to send request: %w", err)
	}

	if len(resp.Choices) == 0 {
		span.SetStatus(codes.Error, ErrEmptyResponse.Error())
		return "", ErrEmptyResponse
	}
	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		span.SetStatus(codes.Error, ErrEmptyResponse.Error())
		return "", ErrEmptyResponse
	}
	return answer, nil
}

// CompleteWithFallback returns the model answer, or fallback when the client is
// disabled or the request fails. The flag reports whether the answer came from the model.
func (c *Client) CompleteWithFallback(ctx context.Context, p prompt.Prompt, fallback string) (string, bool) {
	answer, err := c.Complete(ctx, p)
	if err != nil {
		if !errors.Is(err, ErrDisabled) {
			log.Printf("Error generating study response: %v", err)
		}
		return fallback, false
	}
	return answer, true
}
