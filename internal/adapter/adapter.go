// Package adapter turns a platform's page into two standardized
// operations: reporting newly appeared conversation turns and intercepting
// outgoing messages to prepend cross-platform context. The engine is
// generic; everything site-specific lives in SiteConfig.
//
// The governing rule on every error path is fail open: the user's own
// message must never be blocked by a missing selector, a dead backend, or
// a failed cross-context call.
package adapter

import (
	"context"
	"log/slog"
	"strings"

	"github.com/crosstalk-ai/crosstalk/internal/clock"
	"github.com/crosstalk-ai/crosstalk/internal/dom"
	"github.com/crosstalk-ai/crosstalk/internal/platform"
)

// ContextMarker prefixes every injected message. Its presence in the
// composer is the idempotence guard: an already-enhanced message is never
// intercepted again, which is also what lets the programmatic resubmit
// pass through untouched.
const ContextMarker = "[Context from other AI conversations:"

// ContextPrefix renders retrieved context items into the injectable
// prefix.
func ContextPrefix(items []string) string {
	return ContextMarker + " " + strings.Join(items, "; ") + "]\n\n"
}

// Coordinator is the adapter's view of the capture-and-injection
// coordinator on the other side of the message-passing boundary.
type Coordinator interface {
	// ExtractContext reports one captured turn. The adapter does not act
	// on the result; persistence and fallback are the coordinator's
	// business.
	ExtractContext(ctx context.Context, turn platform.Turn) error

	// RelevantContext fetches injectable context strings for an outgoing
	// message.
	RelevantContext(ctx context.Context, query string, origin platform.Platform) ([]string, error)
}

// Adapter watches one page. All state here lives for a single page
// lifetime and is reset by constructing a new Adapter; nothing is
// persisted.
type Adapter struct {
	cfg       SiteConfig
	doc       *dom.Document
	coord     Coordinator
	clk       clock.Clock
	logger    *slog.Logger
	sourceURL string

	enabled   bool
	processed int  // watermark: message elements already reported
	busy      bool // re-entrancy latch for the interception cycle
	unobserve func()
}

func New(cfg SiteConfig, doc *dom.Document, coord Coordinator, clk clock.Clock, logger *slog.Logger, sourceURL string) *Adapter {
	return &Adapter{
		cfg:       cfg,
		doc:       doc,
		coord:     coord,
		clk:       clk,
		logger:    logger,
		sourceURL: sourceURL,
		enabled:   true,
	}
}

// Start seeds the watermark with the messages already rendered (a page
// reload must not re-capture history), then subscribes to structural
// changes and installs the interception hooks.
func (a *Adapter) Start() {
	existing := a.discoverMessages()
	a.processed = len(existing)
	a.logger.Info("adapter started",
		"platform", a.cfg.Platform,
		"existing_messages", a.processed,
	)

	a.unobserve = a.doc.Observe(a.onStructuralChange)
	a.installHooks()
}

// Stop unsubscribes from structural changes.
func (a *Adapter) Stop() {
	if a.unobserve != nil {
		a.unobserve()
		a.unobserve = nil
	}
}

// SetEnabled updates the adapter's local copy of the process-wide flag.
// While disabled, structural-change callbacks capture nothing and
// interception lets everything through.
func (a *Adapter) SetEnabled(enabled bool) {
	a.enabled = enabled
	a.logger.Info("adapter toggled", "platform", a.cfg.Platform, "enabled", enabled)
}

func (a *Adapter) onStructuralChange() {
	if !a.enabled {
		return
	}
	a.captureNew()
	a.installHooks()
}

// discoverMessages returns all rendered message turns in document order.
// Selectors are tried in order and the first non-empty result wins. Cheap
// and safe to call repeatedly; zero results just means the page has not
// rendered yet.
func (a *Adapter) discoverMessages() []*dom.Node {
	for _, sel := range a.cfg.MessageSelectors {
		if nodes := a.doc.QuerySelectorAll(sel); len(nodes) > 0 {
			return nodes
		}
	}
	return nil
}

// captureNew reports every message element beyond the watermark exactly
// once. The watermark advances before any reporting can fail, so a turn
// is delivered at most once even when the coordinator call errors.
func (a *Adapter) captureNew() {
	messages := a.discoverMessages()
	if len(messages) <= a.processed {
		return
	}

	fresh := messages[a.processed:]
	a.processed = len(messages)

	for _, node := range fresh {
		turn := platform.NewTurn(a.cfg.Platform, node.Text(), a.classify(node), a.sourceURL)
		if err := turn.Validate(); err != nil {
			continue // empty or malformed node, skip silently
		}
		if err := a.coord.ExtractContext(context.Background(), turn); err != nil {
			a.logger.Error("failed to report captured turn",
				"platform", a.cfg.Platform, "error", err)
		}
	}
}

// classify decides user vs assistant for a message node: explicit role
// attribute first, class hints second, parent-chain inspection last.
// Anything still ambiguous defaults to assistant, a heuristic default
// rather than an error.
func (a *Adapter) classify(node *dom.Node) bool {
	if a.cfg.RoleAttr != "" && node.HasAttr(a.cfg.RoleAttr) {
		return node.Attr(a.cfg.RoleAttr) == a.cfg.RoleUserValue
	}

	if verdict, ok := a.classHint(node); ok {
		return verdict
	}

	for p := node.Parent(); p != nil; p = p.Parent() {
		if verdict, ok := a.classHint(p); ok {
			return verdict
		}
	}
	return false
}

func (a *Adapter) classHint(node *dom.Node) (isUser, ok bool) {
	class := node.Attr("class")
	for _, hint := range a.cfg.AssistantClassHints {
		if strings.Contains(class, hint) {
			return false, true
		}
	}
	for _, hint := range a.cfg.UserClassHints {
		if strings.Contains(class, hint) {
			return true, true
		}
	}
	return false, false
}

// composer re-locates the live input field. Never cached: frameworks
// replace the node between turns.
func (a *Adapter) composer() *dom.Node {
	for _, sel := range a.cfg.ComposerSelectors {
		if node := a.doc.QuerySelector(sel); node != nil {
			return node
		}
	}
	return nil
}

// submitControl locates the send control, skipping disabled ones.
func (a *Adapter) submitControl() *dom.Node {
	for _, sel := range a.cfg.SubmitSelectors {
		if node := a.doc.QuerySelector(sel); node != nil && !node.Disabled() {
			return node
		}
	}
	return nil
}

// composerText reads the outgoing message through whichever channel the
// field kind uses.
func composerText(field *dom.Node) string {
	if field.ValueBacked() {
		return field.Value()
	}
	return field.Text()
}

// setComposerText writes through the correct channel for the field's kind
// and synthesizes the events the host framework's reactivity listens for.
// Without those events the write is invisible to the host's internal state
// and the eventual submission would send stale text.
func setComposerText(field *dom.Node, text string) {
	if field.ValueBacked() {
		field.SetValue(text)
	} else {
		field.SetText(text)
	}
	field.Dispatch(&dom.Event{Type: "input"})
	field.Dispatch(&dom.Event{Type: "change"})
}

const hookedAttr = "data-crosstalk-hooked"

// installHooks attaches the strategy's listener once per node. The hooked
// marker attribute survives until the framework replaces the node, at
// which point the next structural change re-installs.
func (a *Adapter) installHooks() {
	switch a.cfg.Strategy {
	case KeyIntercept:
		field := a.composer()
		if field == nil || field.HasAttr(hookedAttr) {
			return
		}
		field.SetAttr(hookedAttr, "true")
		field.AddEventListener("keydown", a.onComposerKeydown, dom.ListenerOptions{Capture: true})
		a.logger.Debug("hooked composer", "platform", a.cfg.Platform)

	case ClickIntercept:
		field := a.composer()
		button := a.submitControl()
		if field == nil || button == nil || button.HasAttr(hookedAttr) {
			return
		}
		button.SetAttr(hookedAttr, "true")
		button.AddEventListener("click", a.onSubmitClick, dom.ListenerOptions{Capture: true})
		a.logger.Debug("hooked submit button", "platform", a.cfg.Platform)
	}
}

// onComposerKeydown is the key-intercept strategy: Enter without Shift is
// suppressed synchronously, context is fetched, and the located submit
// control is re-invoked after the settle delay.
func (a *Adapter) onComposerKeydown(ev *dom.Event) {
	if ev.Key != "Enter" || ev.Shift {
		return
	}
	if !a.enabled || a.busy {
		return // latch held or disabled: the user's Enter proceeds as-is
	}

	field := ev.Target()
	text := strings.TrimSpace(composerText(field))
	if text == "" || strings.Contains(text, ContextMarker) {
		return // nothing to send, or already enhanced
	}

	// The keypress is consumed before any suspension point; from here the
	// engine owns the submission.
	ev.PreventDefault()
	ev.StopPropagation()
	a.busy = true

	items, err := a.coord.RelevantContext(context.Background(), text, a.cfg.Platform)
	if err != nil || len(items) == 0 {
		// Fail open: release the latch and send the original message.
		a.busy = false
		if err != nil {
			a.logger.Error("context fetch failed", "platform", a.cfg.Platform, "error", err)
		}
		a.resubmit()
		return
	}

	setComposerText(field, ContextPrefix(items)+text)
	a.clk.AfterFunc(a.cfg.SettleDelay, func() {
		a.busy = false
		a.resubmit()
	})
}

// onSubmitClick is the click-intercept strategy. The click is only
// prevented after context has actually arrived, so every failure mode
// falls through to the host's own submission.
func (a *Adapter) onSubmitClick(ev *dom.Event) {
	if !a.enabled || a.busy {
		return
	}

	field := a.composer()
	if field == nil {
		return
	}
	text := strings.TrimSpace(composerText(field))
	if text == "" || strings.Contains(text, ContextMarker) {
		return // the marker check is what lets our own re-click through
	}

	items, err := a.coord.RelevantContext(context.Background(), text, a.cfg.Platform)
	if err != nil || len(items) == 0 {
		if err != nil {
			a.logger.Error("context fetch failed", "platform", a.cfg.Platform, "error", err)
		}
		return
	}

	ev.PreventDefault()
	ev.StopPropagation()
	a.busy = true

	setComposerText(field, ContextPrefix(items)+text)
	a.clk.AfterFunc(a.cfg.SettleDelay, func() {
		a.busy = false
		if button := a.submitControl(); button != nil {
			button.Dispatch(&dom.Event{Type: "click"})
		}
	})
}

// resubmit programmatically invokes the submit control. A missing or
// disabled control is logged and skipped; there is nothing else safe to
// do.
func (a *Adapter) resubmit() {
	button := a.submitControl()
	if button == nil {
		a.logger.Warn("submit control not found", "platform", a.cfg.Platform)
		return
	}
	button.Dispatch(&dom.Event{Type: "click"})
}
