package adapter

import (
	"time"

	"github.com/crosstalk-ai/crosstalk/internal/platform"
)

// Strategy selects how an adapter intercepts an outgoing message. Sites
// differ in whether Enter is the dominant send path (chat composers) or a
// click on a stably present button is the reliable hook.
type Strategy int

const (
	// KeyIntercept suppresses the Enter keypress synchronously, fetches
	// context, rewrites the composer, and re-invokes the submit control
	// after a settle delay.
	KeyIntercept Strategy = iota

	// ClickIntercept hooks the submit button, prevents the click when
	// context is available, rewrites the composer, and re-clicks.
	ClickIntercept
)

// SiteConfig is the per-site selector table plus classification rules and
// interception strategy. The engine is generic; this data is the only
// thing that differs between platforms.
type SiteConfig struct {
	Platform platform.Platform

	// MessageSelectors locate rendered conversation turns. Tried in
	// order; the first selector yielding any nodes wins, because some
	// sites vary their message markup between views.
	MessageSelectors []string

	// RoleAttr, when present on a message node, is the authoritative
	// user/assistant signal: the node is a user turn iff the attribute
	// equals RoleUserValue.
	RoleAttr      string
	RoleUserValue string

	// Class-substring hints, consulted on the node and then up the parent
	// chain when no role attribute is present. Ambiguous nodes default to
	// assistant turns; the walk is a documented heuristic, not a
	// guarantee.
	UserClassHints      []string
	AssistantClassHints []string

	// ComposerSelectors locate the live input field, tried in order on
	// every attempt since frameworks replace the node freely.
	ComposerSelectors []string

	// SubmitSelectors locate the send control. Disabled controls are
	// skipped.
	SubmitSelectors []string

	Strategy Strategy

	// SettleDelay is how long to wait after rewriting the composer before
	// re-invoking submission, so the host framework re-renders from the
	// mutated field first.
	SettleDelay time.Duration
}

// Sites is the selector table for the four supported platforms.
var Sites = map[platform.Platform]SiteConfig{
	platform.ChatGPT: {
		Platform:          platform.ChatGPT,
		MessageSelectors:  []string{`div[data-message-author-role]`},
		RoleAttr:          "data-message-author-role",
		RoleUserValue:     "user",
		ComposerSelectors: []string{`#prompt-textarea`},
		SubmitSelectors:   []string{`button[data-testid="send-button"]`},
		Strategy:          KeyIntercept,
		SettleDelay:       500 * time.Millisecond,
	},
	platform.Claude: {
		Platform:          platform.Claude,
		MessageSelectors:  []string{`[data-testid*="message"]`},
		RoleAttr:          "data-testid",
		RoleUserValue:     "user-message",
		ComposerSelectors: []string{`div[contenteditable="true"]`},
		SubmitSelectors:   []string{`button[aria-label*="Send"]`},
		Strategy:          KeyIntercept,
		SettleDelay:       500 * time.Millisecond,
	},
	platform.Gemini: {
		Platform: platform.Gemini,
		MessageSelectors: []string{
			`message-content`,
			`[class*="message"]`,
			`[data-test-id*="message"]`,
			`.model-response-text`,
			`.user-query`,
		},
		UserClassHints:      []string{"user-query", "user-message", "user"},
		AssistantClassHints: []string{"model-response", "model-message", "assistant"},
		ComposerSelectors: []string{
			`div[contenteditable="true"]`,
			`textarea[placeholder*="Enter"]`,
			`rich-textarea`,
			`[data-test-id*="input"]`,
		},
		SubmitSelectors: []string{`button[aria-label*="Send"]`},
		Strategy:        ClickIntercept,
		SettleDelay:     100 * time.Millisecond,
	},
	platform.Perplexity: {
		Platform:            platform.Perplexity,
		MessageSelectors:    []string{`div[class*="prose"]`},
		UserClassHints:      []string{"user"},
		AssistantClassHints: []string{"assistant"},
		ComposerSelectors:   []string{`textarea`},
		SubmitSelectors:     []string{`button[type="submit"]`},
		Strategy:            ClickIntercept,
		SettleDelay:         100 * time.Millisecond,
	},
}
