// Package coordinator is the single process-wide mediator between page
// adapters, the store, and the backend extraction/retrieval service. It
// holds no DOM access; adapters reach it only through message passing.
// Transient service failures never travel upward; they are absorbed by
// the local fallback paths.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/crosstalk-ai/crosstalk/internal/heuristic"
	"github.com/crosstalk-ai/crosstalk/internal/platform"
	"github.com/crosstalk-ai/crosstalk/internal/store"
)

// recentStatsLimit is how many facts Stats returns alongside the total
// count.
const recentStatsLimit = 10

// Backend is the extraction/retrieval service surface the coordinator
// consumes. Any returned error routes the operation down the fallback
// path.
type Backend interface {
	Extract(ctx context.Context, turn platform.Turn) ([]platform.Fact, error)
	Retrieve(ctx context.Context, query string, origin platform.Platform) ([]string, error)
}

// ToggleBroadcaster pushes the enabled flag to every open page so
// adapters update their local state without re-polling storage.
type ToggleBroadcaster interface {
	BroadcastToggle(enabled bool) error
}

type Coordinator struct {
	store     store.Store
	backend   Backend
	broadcast ToggleBroadcaster // may be nil
	logger    *slog.Logger
}

func New(st store.Store, be Backend, broadcast ToggleBroadcaster, logger *slog.Logger) *Coordinator {
	return &Coordinator{store: st, backend: be, broadcast: broadcast, logger: logger}
}

// CaptureResult reports what CaptureTurn did with one turn.
type CaptureResult struct {
	FactsStored int
	Fallback    bool
}

// Stats is the administration view of the fact collection.
type Stats struct {
	Count       int             `json:"count"`
	RecentFacts []platform.Fact `json:"recentFacts"`
}

// CaptureTurn persists the raw turn unconditionally, then extracts facts
// (remotely when the backend cooperates, locally otherwise) and persists
// every resulting fact before returning. A storage failure on the turn
// itself is the only error surfaced to the caller.
func (c *Coordinator) CaptureTurn(ctx context.Context, turn platform.Turn) (CaptureResult, error) {
	if _, err := c.store.InsertTurn(ctx, turn); err != nil {
		return CaptureResult{}, fmt.Errorf("persist turn: %w", err)
	}

	facts, err := c.backend.Extract(ctx, turn)
	fallback := false
	if err != nil {
		c.logger.Info("remote extraction failed, using local patterns",
			"platform", turn.Platform, "error", err)
		facts = heuristic.ExtractFacts(turn)
		fallback = true
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for i := range facts {
		if facts[i].Platform == "" {
			facts[i].Platform = turn.Platform
		}
		if facts[i].Timestamp == "" {
			facts[i].Timestamp = turn.Timestamp
		}
		facts[i].ExtractedAt = now
		facts[i].SourceMessage = turn.Text
	}

	stored := 0
	for _, fact := range facts {
		if _, err := c.store.InsertFact(ctx, fact); err != nil {
			c.logger.Error("failed to store fact", "error", err)
			continue
		}
		stored++
	}

	c.logger.Info("turn captured",
		"platform", turn.Platform,
		"is_user", turn.IsUser,
		"facts_stored", stored,
		"fallback", fallback,
	)
	return CaptureResult{FactsStored: stored, Fallback: fallback}, nil
}

// RelevantContext returns injectable context strings for an outgoing
// message: the backend's ranked results when reachable, otherwise the
// keyword search over stored facts. Only display-ready strings cross this
// boundary, never structured facts.
func (c *Coordinator) RelevantContext(ctx context.Context, query string, origin platform.Platform) ([]string, error) {
	items, err := c.backend.Retrieve(ctx, query, origin)
	if err == nil {
		return items, nil
	}
	c.logger.Info("remote retrieval failed, using keyword fallback",
		"platform", origin, "error", err)

	facts, err := c.store.AllFacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("read facts for fallback search: %w", err)
	}
	return heuristic.SearchFacts(query, origin, facts), nil
}

// GetStats returns the total fact count and the most recent facts by
// capture time. Storage read errors degrade to an empty view rather than
// failing the caller.
func (c *Coordinator) GetStats(ctx context.Context) Stats {
	count, err := c.store.FactCount(ctx)
	if err != nil {
		c.logger.Error("failed to count facts", "error", err)
		return Stats{RecentFacts: []platform.Fact{}}
	}
	recent, err := c.store.RecentFacts(ctx, recentStatsLimit)
	if err != nil {
		c.logger.Error("failed to read recent facts", "error", err)
		return Stats{RecentFacts: []platform.Fact{}}
	}
	if recent == nil {
		recent = []platform.Fact{}
	}
	return Stats{Count: count, RecentFacts: recent}
}

// SetEnabled persists the flag and broadcasts it to every open page.
func (c *Coordinator) SetEnabled(ctx context.Context, enabled bool) error {
	if err := c.store.SetEnabled(ctx, enabled); err != nil {
		return fmt.Errorf("persist enabled flag: %w", err)
	}
	c.logger.Info("capture toggled", "enabled", enabled)

	if c.broadcast != nil {
		if err := c.broadcast.BroadcastToggle(enabled); err != nil {
			// Pages that missed the broadcast pick the flag up on their
			// next load.
			c.logger.Warn("toggle broadcast failed", "error", err)
		}
	}
	return nil
}

// Enabled reads the persisted flag.
func (c *Coordinator) Enabled(ctx context.Context) (bool, error) {
	return c.store.Enabled(ctx)
}

// ClearAll deletes every fact and every conversation turn.
func (c *Coordinator) ClearAll(ctx context.Context) error {
	if err := c.store.ClearAll(ctx); err != nil {
		return fmt.Errorf("clear all: %w", err)
	}
	c.logger.Info("all context cleared")
	return nil
}

// DeleteFact removes one fact by identifier.
func (c *Coordinator) DeleteFact(ctx context.Context, id uuid.UUID) error {
	if err := c.store.DeleteFact(ctx, id); err != nil {
		return fmt.Errorf("delete fact: %w", err)
	}
	return nil
}
