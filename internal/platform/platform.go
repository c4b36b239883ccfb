package platform

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Platform identifies one of the monitored AI chat sites.
type Platform string

const (
	ChatGPT    Platform = "ChatGPT"
	Claude     Platform = "Claude"
	Gemini     Platform = "Gemini"
	Perplexity Platform = "Perplexity"
)

// All lists every supported platform, in no particular order of preference.
var All = []Platform{ChatGPT, Claude, Gemini, Perplexity}

// Parse returns the canonical Platform for a wire-level string.
func Parse(s string) (Platform, error) {
	for _, p := range All {
		if strings.EqualFold(s, string(p)) {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown platform %q", s)
}

// Valid reports whether p is one of the known platform identifiers.
func (p Platform) Valid() bool {
	for _, known := range All {
		if p == known {
			return true
		}
	}
	return false
}

// Turn is one captured conversation message, user or assistant.
// Turns are append-only: the store assigns a monotonically increasing ID
// and the record is never mutated afterwards.
type Turn struct {
	ID        int64    `json:"id,omitempty"`
	Platform  Platform `json:"platform"`
	Text      string   `json:"text"`
	IsUser    bool     `json:"isUser"`
	Timestamp string   `json:"timestamp"` // ISO-8601 capture time
	SourceURL string   `json:"url"`
}

// NewTurn builds a Turn stamped with the current capture time. The text is
// trimmed; an empty result is rejected by Validate, not here.
func NewTurn(p Platform, text string, isUser bool, sourceURL string) Turn {
	return Turn{
		Platform:  p,
		Text:      strings.TrimSpace(text),
		IsUser:    isUser,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		SourceURL: sourceURL,
	}
}

// Validate enforces the turn invariants: non-empty trimmed text and a known
// platform.
func (t Turn) Validate() error {
	if !t.Platform.Valid() {
		return fmt.Errorf("unknown platform %q", t.Platform)
	}
	if strings.TrimSpace(t.Text) == "" {
		return fmt.Errorf("empty turn text")
	}
	return nil
}

// Fact is a derived unit of user context extracted from a conversation turn.
type Fact struct {
	ID            uuid.UUID `json:"id"`
	Text          string    `json:"text"`
	Category      string    `json:"category"`
	Confidence    float64   `json:"confidence"`
	Platform      Platform  `json:"platform"`
	Timestamp     string    `json:"timestamp"`
	ExtractedAt   string    `json:"extractedAt,omitempty"`
	SourceMessage string    `json:"sourceMessage,omitempty"`
}

// Validate enforces the fact invariants.
func (f Fact) Validate() error {
	if f.Confidence < 0 || f.Confidence > 1 {
		return fmt.Errorf("confidence %v out of range [0,1]", f.Confidence)
	}
	if !f.Platform.Valid() {
		return fmt.Errorf("unknown platform %q", f.Platform)
	}
	if strings.TrimSpace(f.Text) == "" {
		return fmt.Errorf("empty fact text")
	}
	return nil
}
