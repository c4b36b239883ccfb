package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/crosstalk-ai/crosstalk/internal/platform"
	"github.com/crosstalk-ai/crosstalk/internal/store"
)

type fakeBackend struct {
	extractFacts []platform.Fact
	extractErr   error

	retrieveItems []string
	retrieveErr   error

	retrieveCalls int
}

func (f *fakeBackend) Extract(_ context.Context, _ platform.Turn) ([]platform.Fact, error) {
	return f.extractFacts, f.extractErr
}

func (f *fakeBackend) Retrieve(_ context.Context, _ string, _ platform.Platform) ([]string, error) {
	f.retrieveCalls++
	return f.retrieveItems, f.retrieveErr
}

type fakeBroadcaster struct {
	toggles []bool
	err     error
}

func (f *fakeBroadcaster) BroadcastToggle(enabled bool) error {
	f.toggles = append(f.toggles, enabled)
	return f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestCoordinator(be Backend) (*Coordinator, *store.Memory, *fakeBroadcaster) {
	mem := store.NewMemory()
	bc := &fakeBroadcaster{}
	return New(mem, be, bc, testLogger()), mem, bc
}

func userTurn(text string) platform.Turn {
	return platform.Turn{
		Platform:  platform.ChatGPT,
		Text:      text,
		IsUser:    true,
		Timestamp: "2025-06-01T12:00:00Z",
		SourceURL: "https://chat.openai.com/c/abc",
	}
}

func TestCaptureTurn_RemotePath(t *testing.T) {
	be := &fakeBackend{extractFacts: []platform.Fact{
		{Text: "loves hiking", Category: "preference", Confidence: 0.9},
	}}
	c, mem, _ := newTestCoordinator(be)

	result, err := c.CaptureTurn(context.Background(), userTurn("I love hiking"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Fallback {
		t.Error("expected remote path, got fallback")
	}
	if result.FactsStored != 1 {
		t.Errorf("expected 1 fact stored, got %d", result.FactsStored)
	}

	facts, _ := mem.AllFacts(context.Background())
	if len(facts) != 1 {
		t.Fatalf("expected 1 persisted fact, got %d", len(facts))
	}
	f := facts[0]
	if f.Platform != platform.ChatGPT {
		t.Errorf("backend fact missing origin platform, got %q", f.Platform)
	}
	if f.SourceMessage != "I love hiking" {
		t.Errorf("expected source message to trace to the turn, got %q", f.SourceMessage)
	}
	if f.ExtractedAt == "" {
		t.Error("expected extractedAt to be stamped")
	}
	if len(mem.Turns()) != 1 {
		t.Errorf("expected the raw turn persisted, got %d", len(mem.Turns()))
	}
}

func TestCaptureTurn_FallbackOnBackendError(t *testing.T) {
	be := &fakeBackend{extractErr: errors.New("connection refused")}
	c, mem, _ := newTestCoordinator(be)

	result, err := c.CaptureTurn(context.Background(), userTurn("I love hiking and I am a software engineer."))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Fallback {
		t.Error("expected fallback flag")
	}
	if result.FactsStored < 2 {
		t.Errorf("expected at least 2 heuristic facts, got %d", result.FactsStored)
	}

	// The raw turn is persisted even when extraction degrades.
	if len(mem.Turns()) != 1 {
		t.Errorf("expected 1 persisted turn, got %d", len(mem.Turns()))
	}
	facts, _ := mem.AllFacts(context.Background())
	for _, f := range facts {
		if f.Confidence != 0.5 {
			t.Errorf("expected fallback confidence 0.5, got %v", f.Confidence)
		}
		if f.Category != "preference" {
			t.Errorf("expected category preference, got %q", f.Category)
		}
	}
}

func TestCaptureTurn_FallbackNoMatches(t *testing.T) {
	be := &fakeBackend{extractErr: errors.New("503")}
	c, mem, _ := newTestCoordinator(be)

	result, err := c.CaptureTurn(context.Background(), userTurn("The weather looks fine."))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Fallback || result.FactsStored != 0 {
		t.Errorf("expected fallback with 0 facts, got %+v", result)
	}
	if len(mem.Turns()) != 1 {
		t.Error("raw turn must still be persisted")
	}
}

func TestCaptureTurn_InvalidTurnFails(t *testing.T) {
	c, _, _ := newTestCoordinator(&fakeBackend{})

	_, err := c.CaptureTurn(context.Background(), platform.Turn{Platform: "Bing", Text: "hi"})
	if err == nil {
		t.Error("expected error for invalid turn")
	}
}

func TestRelevantContext_RemotePath(t *testing.T) {
	be := &fakeBackend{retrieveItems: []string{"loves hiking"}}
	c, _, _ := newTestCoordinator(be)

	items, err := c.RelevantContext(context.Background(), "what gear", platform.Gemini)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0] != "loves hiking" {
		t.Errorf("unexpected items: %v", items)
	}
}

func TestRelevantContext_FallbackExcludesOrigin(t *testing.T) {
	be := &fakeBackend{retrieveErr: errors.New("unreachable")}
	c, mem, _ := newTestCoordinator(be)
	ctx := context.Background()

	mem.InsertFact(ctx, platform.Fact{Text: "i love hiking", Confidence: 0.5, Platform: platform.Claude, Timestamp: "2025-06-01T10:00:00Z"})
	mem.InsertFact(ctx, platform.Fact{Text: "hiking boots are essential", Confidence: 0.5, Platform: platform.ChatGPT, Timestamp: "2025-06-01T10:01:00Z"})

	items, err := c.RelevantContext(ctx, "hiking trips", platform.ChatGPT)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0] != "i love hiking" {
		t.Errorf("fallback leaked origin-platform facts: %v", items)
	}
}

func TestGetStats(t *testing.T) {
	c, mem, _ := newTestCoordinator(&fakeBackend{})
	ctx := context.Background()

	mem.InsertFact(ctx, platform.Fact{Text: "older", Confidence: 0.5, Platform: platform.Claude, Timestamp: "2025-06-01T09:00:00Z"})
	mem.InsertFact(ctx, platform.Fact{Text: "newer", Confidence: 0.5, Platform: platform.Claude, Timestamp: "2025-06-01T11:00:00Z"})

	stats := c.GetStats(ctx)
	if stats.Count != 2 {
		t.Errorf("expected count 2, got %d", stats.Count)
	}
	if len(stats.RecentFacts) != 2 || stats.RecentFacts[0].Text != "newer" {
		t.Errorf("expected newest first, got %+v", stats.RecentFacts)
	}
}

func TestClearAll_ThenStatsEmpty(t *testing.T) {
	c, mem, _ := newTestCoordinator(&fakeBackend{})
	ctx := context.Background()

	mem.InsertFact(ctx, platform.Fact{Text: "x", Confidence: 0.5, Platform: platform.Claude, Timestamp: "2025-06-01T09:00:00Z"})
	mem.InsertTurn(ctx, userTurn("hello"))

	if err := c.ClearAll(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}

	stats := c.GetStats(ctx)
	if stats.Count != 0 {
		t.Errorf("expected count 0 after clear, got %d", stats.Count)
	}
	if stats.RecentFacts == nil || len(stats.RecentFacts) != 0 {
		t.Errorf("expected empty recent facts slice, got %#v", stats.RecentFacts)
	}
}

func TestSetEnabled_PersistsAndBroadcasts(t *testing.T) {
	c, mem, bc := newTestCoordinator(&fakeBackend{})
	ctx := context.Background()

	if err := c.SetEnabled(ctx, false); err != nil {
		t.Fatalf("set enabled: %v", err)
	}

	enabled, _ := mem.Enabled(ctx)
	if enabled {
		t.Error("flag not persisted")
	}
	if len(bc.toggles) != 1 || bc.toggles[0] != false {
		t.Errorf("expected one broadcast of false, got %v", bc.toggles)
	}

	// A failing broadcast does not fail the toggle.
	bc.err = errors.New("no subscribers")
	if err := c.SetEnabled(ctx, true); err != nil {
		t.Errorf("toggle failed on broadcast error: %v", err)
	}
}

func TestHandleRequest_ExtractContext(t *testing.T) {
	be := &fakeBackend{extractErr: errors.New("down")}
	c, _, _ := newTestCoordinator(be)

	req, _ := json.Marshal(map[string]any{
		"action":  ActionExtractContext,
		"message": userTurn("I love hiking"),
	})
	var resp struct {
		Success        bool `json:"success"`
		FactsExtracted int  `json:"factsExtracted"`
		Fallback       bool `json:"fallback"`
	}
	if err := json.Unmarshal(c.HandleRequest(context.Background(), req), &resp); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if !resp.Success || !resp.Fallback {
		t.Errorf("expected success with fallback, got %+v", resp)
	}
	if resp.FactsExtracted < 1 {
		t.Errorf("expected at least 1 fact, got %d", resp.FactsExtracted)
	}
}

func TestHandleRequest_GetRelevantContext(t *testing.T) {
	be := &fakeBackend{retrieveItems: []string{"prefers trains"}}
	c, _, _ := newTestCoordinator(be)

	req, _ := json.Marshal(map[string]any{
		"action":   ActionGetRelevantContext,
		"query":    "travel plans",
		"platform": "Claude",
	})
	var resp struct {
		Context []string `json:"context"`
	}
	if err := json.Unmarshal(c.HandleRequest(context.Background(), req), &resp); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if len(resp.Context) != 1 || resp.Context[0] != "prefers trains" {
		t.Errorf("unexpected context: %v", resp.Context)
	}
}

func TestHandleRequest_DisabledReturnsNoContext(t *testing.T) {
	be := &fakeBackend{retrieveItems: []string{"should not appear"}}
	c, mem, _ := newTestCoordinator(be)
	mem.SetEnabled(context.Background(), false)

	req, _ := json.Marshal(map[string]any{
		"action":   ActionGetRelevantContext,
		"query":    "anything",
		"platform": "Claude",
	})
	var resp struct {
		Context []string `json:"context"`
	}
	json.Unmarshal(c.HandleRequest(context.Background(), req), &resp)
	if len(resp.Context) != 0 {
		t.Errorf("disabled coordinator served context: %v", resp.Context)
	}
	if be.retrieveCalls != 0 {
		t.Error("disabled coordinator still hit the backend")
	}
}

func TestHandleRequest_Toggle(t *testing.T) {
	c, mem, bc := newTestCoordinator(&fakeBackend{})

	req, _ := json.Marshal(map[string]any{
		"action":  ActionToggleExtension,
		"enabled": false,
	})
	var resp struct {
		Success bool `json:"success"`
	}
	json.Unmarshal(c.HandleRequest(context.Background(), req), &resp)
	if !resp.Success {
		t.Error("expected success")
	}
	enabled, _ := mem.Enabled(context.Background())
	if enabled {
		t.Error("flag not persisted through protocol")
	}
	if len(bc.toggles) != 1 {
		t.Errorf("expected broadcast, got %v", bc.toggles)
	}
}

func TestHandleRequest_UnknownAction(t *testing.T) {
	c, _, _ := newTestCoordinator(&fakeBackend{})

	resp := c.HandleRequest(context.Background(), []byte(`{"action":"selfDestruct"}`))
	var body map[string]string
	json.Unmarshal(resp, &body)
	if body["error"] != "Unknown action" {
		t.Errorf("expected Unknown action error, got %v", body)
	}
}

func TestHandleRequest_Malformed(t *testing.T) {
	c, _, _ := newTestCoordinator(&fakeBackend{})

	resp := c.HandleRequest(context.Background(), []byte(`{not json`))
	var body map[string]string
	if err := json.Unmarshal(resp, &body); err != nil {
		t.Fatalf("malformed request must still get a JSON answer: %v", err)
	}
	if body["error"] == "" {
		t.Errorf("expected structured error, got %v", body)
	}
}

func TestHandleRequest_ClearAll(t *testing.T) {
	c, mem, _ := newTestCoordinator(&fakeBackend{})
	mem.InsertFact(context.Background(), platform.Fact{Text: "x", Confidence: 0.5, Platform: platform.Claude, Timestamp: "2025-06-01T09:00:00Z"})

	var resp struct {
		Success bool `json:"success"`
	}
	json.Unmarshal(c.HandleRequest(context.Background(), []byte(`{"action":"clearAllContext"}`)), &resp)
	if !resp.Success {
		t.Error("expected success")
	}
	count, _ := mem.FactCount(context.Background())
	if count != 0 {
		t.Errorf("expected empty store, got %d facts", count)
	}
}
