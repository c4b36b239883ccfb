package backend

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/crosstalk-ai/crosstalk/internal/clock"
	"github.com/crosstalk-ai/crosstalk/internal/platform"
)

func TestExtract_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/extract" {
			t.Errorf("expected /api/extract, got %s", r.URL.Path)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected json content type, got %q", r.Header.Get("Content-Type"))
		}

		var req extractRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.Message.Text != "I love hiking" {
			t.Errorf("unexpected message text %q", req.Message.Text)
		}
		if req.Message.Platform != platform.ChatGPT {
			t.Errorf("unexpected platform %q", req.Message.Platform)
		}

		json.NewEncoder(w).Encode(extractResponse{
			Success: true,
			Facts: []platform.Fact{
				{Text: "loves hiking", Category: "preference", Confidence: 0.9, Platform: platform.ChatGPT},
			},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL)
	facts, err := c.Extract(context.Background(), platform.Turn{
		Platform: platform.ChatGPT, Text: "I love hiking", IsUser: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(facts) != 1 || facts[0].Text != "loves hiking" {
		t.Errorf("unexpected facts: %+v", facts)
	}
}

func TestExtract_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewClient(server.URL)
	_, err := c.Extract(context.Background(), platform.Turn{Platform: platform.Claude, Text: "hi"})
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestRetrieve_SendsLimitAndPlatform(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/retrieve" {
			t.Errorf("expected /api/retrieve, got %s", r.URL.Path)
		}

		var req retrieveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.Limit != 5 {
			t.Errorf("expected limit 5, got %d", req.Limit)
		}
		if req.Platform != "Gemini" {
			t.Errorf("expected platform Gemini, got %q", req.Platform)
		}
		if req.Query != "what hikes" {
			t.Errorf("unexpected query %q", req.Query)
		}

		json.NewEncoder(w).Encode(retrieveResponse{Context: []string{"loves hiking"}})
	}))
	defer server.Close()

	c := NewClient(server.URL)
	ctx, err := c.Retrieve(context.Background(), "what hikes", platform.Gemini)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ctx) != 1 || ctx[0] != "loves hiking" {
		t.Errorf("unexpected context: %v", ctx)
	}
}

func TestRetrieve_Unreachable(t *testing.T) {
	c := NewClient("http://127.0.0.1:1") // nothing listens here
	_, err := c.Retrieve(context.Background(), "query", platform.Claude)
	if err == nil {
		t.Fatal("expected error for unreachable backend")
	}
}

func TestHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("expected /health, got %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := NewClient(server.URL)
	if err := c.Health(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestHealth_Unhealthy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := NewClient(server.URL)
	if err := c.Health(context.Background()); err == nil {
		t.Error("expected error for 503 response")
	}
}

func TestMonitor_ProbesOnSchedule(t *testing.T) {
	probes := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		probes++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	fake := clock.NewFake(time.Unix(0, 0))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mon := NewMonitor(NewClient(server.URL), time.Minute, fake, logger)

	cancel := mon.Start()
	defer cancel()

	if probes != 0 {
		t.Errorf("monitor probed before the first interval: %d", probes)
	}

	fake.Advance(2 * time.Minute)
	if probes != 2 {
		t.Errorf("expected 2 probes after 2 minutes, got %d", probes)
	}

	cancel()
	fake.Advance(10 * time.Minute)
	if probes != 2 {
		t.Errorf("expected no probes after cancel, got %d", probes)
	}
}
