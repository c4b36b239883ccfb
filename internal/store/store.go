// Package store owns the two durable record collections, facts and
// conversation turns, plus the persisted enabled flag. Records are
// append-only: turns get monotonically increasing IDs, facts get UUIDs,
// and neither is ever updated in place.
package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/crosstalk-ai/crosstalk/internal/platform"
)

// Store is the persistence contract consumed by the coordinator and the
// admin API. Two implementations exist: Postgres for production and Memory
// for dev mode and tests. Every operation is a single self-contained
// transaction; callers never span multi-step read-modify-write across
// calls.
type Store interface {
	// InsertTurn appends one captured conversation turn and returns its
	// assigned ID.
	InsertTurn(ctx context.Context, turn platform.Turn) (int64, error)

	// InsertFact persists one fact. A zero fact ID is assigned here.
	InsertFact(ctx context.Context, fact platform.Fact) (uuid.UUID, error)

	// AllFacts returns every stored fact in insertion order.
	AllFacts(ctx context.Context) ([]platform.Fact, error)

	// RecentFacts returns at most limit facts, newest capture time first.
	RecentFacts(ctx context.Context, limit int) ([]platform.Fact, error)

	// FactCount returns the total number of stored facts.
	FactCount(ctx context.Context) (int, error)

	// FactsByPlatform returns facts originating from one platform, in
	// insertion order.
	FactsByPlatform(ctx context.Context, p platform.Platform) ([]platform.Fact, error)

	// DeleteFact removes a single fact by ID. Deleting a missing fact is
	// not an error.
	DeleteFact(ctx context.Context, id uuid.UUID) error

	// ClearAll deletes every fact and every conversation turn.
	ClearAll(ctx context.Context) error

	// Enabled reads the persisted capture/injection flag. Missing value
	// means enabled: the flag defaults on.
	Enabled(ctx context.Context) (bool, error)

	// SetEnabled persists the capture/injection flag.
	SetEnabled(ctx context.Context, enabled bool) error
}
