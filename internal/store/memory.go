package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/crosstalk-ai/crosstalk/internal/platform"
)

// Memory is a mutex-guarded in-process Store with the same ordering
// semantics as Postgres: insertion order for AllFacts, capture-time
// descending for RecentFacts. Used in dev mode and tests.
type Memory struct {
	mu         sync.Mutex
	turns      []platform.Turn
	facts      []platform.Fact
	nextTurnID int64
	enabledSet bool
	enabled    bool
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{nextTurnID: 1}
}

func (m *Memory) InsertTurn(_ context.Context, turn platform.Turn) (int64, error) {
	if err := turn.Validate(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	turn.ID = m.nextTurnID
	m.nextTurnID++
	m.turns = append(m.turns, turn)
	return turn.ID, nil
}

func (m *Memory) InsertFact(_ context.Context, fact platform.Fact) (uuid.UUID, error) {
	if err := fact.Validate(); err != nil {
		return uuid.Nil, err
	}
	if fact.ID == uuid.Nil {
		fact.ID = uuid.New()
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.facts = append(m.facts, fact)
	return fact.ID, nil
}

func (m *Memory) AllFacts(_ context.Context) ([]platform.Fact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]platform.Fact, len(m.facts))
	copy(out, m.facts)
	return out, nil
}

func (m *Memory) RecentFacts(_ context.Context, limit int) ([]platform.Fact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]platform.Fact, len(m.facts))
	copy(out, m.facts)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp > out[j].Timestamp
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) FactCount(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.facts), nil
}

func (m *Memory) FactsByPlatform(_ context.Context, p platform.Platform) ([]platform.Fact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []platform.Fact
	for _, f := range m.facts {
		if f.Platform == p {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *Memory) DeleteFact(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, f := range m.facts {
		if f.ID == id {
			m.facts = append(m.facts[:i], m.facts[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *Memory) ClearAll(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.facts = nil
	m.turns = nil
	return nil
}

func (m *Memory) Enabled(_ context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.enabledSet {
		return true, nil
	}
	return m.enabled, nil
}

func (m *Memory) SetEnabled(_ context.Context, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.enabledSet = true
	m.enabled = enabled
	return nil
}

// Turns returns a copy of the captured turn log, oldest first. Not part of
// the Store contract; used by tests and dev tooling.
func (m *Memory) Turns() []platform.Turn {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]platform.Turn, len(m.turns))
	copy(out, m.turns)
	return out
}
