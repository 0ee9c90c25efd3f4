// Package prompt builds study prompts for a topic.
package prompt

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/example/revisionbot/pkg/models"
)

// Mode selects the kind of study prompt
type Mode string

const (
	ModeExplain   Mode = "explain"
	ModeQuiz      Mode = "quiz"
	ModeInterview Mode = "interview"
	ModeSummary   Mode = "summary"
)

// Modes lists every supported mode
var Modes = []Mode{ModeExplain, ModeQuiz, ModeInterview, ModeSummary}

// DefaultMaxNoteChars caps how much of a note is sent to the model
const DefaultMaxNoteChars = 6000

const truncatedMarker = "\n[truncated]"

const systemPrompt = "You are a senior software engineer helping a candidate revise for technical interviews. " +
	"Be precise, use short sections and code snippets where they help, and point out common interview traps."

var instructions = map[Mode]string{
	ModeExplain: "Explain the topic below as if revising it the day before an interview. " +
		"Cover the key concepts, how they work internally and the trade-offs, then list three things people usually get wrong.",
	ModeQuiz: "Write five interview questions about the topic below, ordered from easy to hard. " +
		"After each question give a concise model answer.",
	ModeInterview: "Act as the interviewer. Ask one challenging question about the topic below, " +
		"then describe what a strong answer must mention and which follow-up questions you would ask.",
	ModeSummary: "Turn the topic below into a one-page cheat sheet: definitions, key facts, " +
		"typical code patterns and one-line answers to the most common questions.",
}

// Prompt is a ready to send chat prompt
type Prompt struct {
	Mode   Mode   `json:"mode"`
	System string `json:"system"`
	User   string `json:"user"`
}

// ParseMode converts a user supplied mode, empty means ModeExplain
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ModeExplain, nil
	}
	for _, m := range Modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown prompt mode %q (want one of %s)", s, joinModes())
}

// Build creates the prompt for topic. noteContent may be empty, in which case the
// prompt only names the topic. maxNoteChars <= 0 uses DefaultMaxNoteChars.
func Build(topic models.Topic, noteContent string, mode Mode, maxNoteChars int) (Prompt, error) {
	if mode == "" {
		mode = ModeExplain
	}
	instruction, ok := instructions[mode]
	if !ok {
		return Prompt{}, fmt.Errorf("unknown prompt mode %q (want one of %s)", mode, joinModes())
	}
	if maxNoteChars <= 0 {
		maxNoteChars = DefaultMaxNoteChars
	}

	var b strings.Builder
	b.WriteString(instruction)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Topic: %s\n", topic.DisplayName())
	if topic.Category != "" {
		fmt.Fprintf(&b, "Area: %s\n", topic.Category)
	}
	if topic.URL != "" {
		fmt.Fprintf(&b, "Source: %s\n", topic.URL)
	}

	note := strings.TrimSpace(noteContent)
	if note != "" {
		b.WriteString("\nMy notes on this topic:\n---\n")
		b.WriteString(Truncate(note, maxNoteChars))
		b.WriteString("\n---\n")
	} else {
		b.WriteString("\nI have no notes for this topic yet, rely on your own knowledge.\n")
	}

	return Prompt{Mode: mode, System: systemPrompt, User: b.String()}, nil
}

// Truncate shortens s to at most max runes, marking the cut
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + truncatedMarker
}

func joinModes() string {
	names := make([]string, len(Modes))
	for i, m := range Modes {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}
