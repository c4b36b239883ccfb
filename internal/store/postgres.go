package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crosstalk-ai/crosstalk/internal/platform"
)

// Postgres is the production Store backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ Store = (*Postgres)(nil)

func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (s *Postgres) Close() {
	s.pool.Close()
}

// Migrate creates the two record tables, their platform/timestamp/category
// indexes, and the settings table. Safe to run on every startup.
func (s *Postgres) Migrate(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS conversation_turns (
			id bigserial PRIMARY KEY,
			platform text NOT NULL,
			body text NOT NULL,
			is_user boolean NOT NULL,
			captured_at text NOT NULL,
			source_url text NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_turns_platform ON conversation_turns (platform)`,
		`CREATE INDEX IF NOT EXISTS idx_turns_captured_at ON conversation_turns (captured_at)`,
		`CREATE TABLE IF NOT EXISTS facts (
			id uuid PRIMARY KEY,
			body text NOT NULL,
			category text NOT NULL DEFAULT '',
			confidence double precision NOT NULL,
			platform text NOT NULL,
			captured_at text NOT NULL,
			extracted_at text NOT NULL DEFAULT '',
			source_message text NOT NULL DEFAULT '',
			inserted_at timestamptz NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_facts_platform ON facts (platform)`,
		`CREATE INDEX IF NOT EXISTS idx_facts_captured_at ON facts (captured_at)`,
		`CREATE INDEX IF NOT EXISTS idx_facts_category ON facts (category)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key text PRIMARY KEY,
			value text NOT NULL
		)`,
	}
	for _, stmt := range ddl {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *Postgres) InsertTurn(ctx context.Context, turn platform.Turn) (int64, error) {
	if err := turn.Validate(); err != nil {
		return 0, fmt.Errorf("invalid turn: %w", err)
	}
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO conversation_turns (platform, body, is_user, captured_at, source_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		turn.Platform, turn.Text, turn.IsUser, turn.Timestamp, turn.SourceURL,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert turn: %w", err)
	}
	return id, nil
}

func (s *Postgres) InsertFact(ctx context.Context, fact platform.Fact) (uuid.UUID, error) {
	if err := fact.Validate(); err != nil {
		return uuid.Nil, fmt.Errorf("invalid fact: %w", err)
	}
	if fact.ID == uuid.Nil {
		fact.ID = uuid.New()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO facts (id, body, category, confidence, platform, captured_at, extracted_at, source_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		fact.ID, fact.Text, fact.Category, fact.Confidence, fact.Platform,
		fact.Timestamp, fact.ExtractedAt, fact.SourceMessage,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert fact: %w", err)
	}
	return fact.ID, nil
}

const factColumns = `id, body, category, confidence, platform, captured_at, extracted_at, source_message`

func (s *Postgres) AllFacts(ctx context.Context) ([]platform.Fact, error) {
	return s.queryFacts(ctx, `SELECT `+factColumns+` FROM facts ORDER BY inserted_at, id`)
}

func (s *Postgres) RecentFacts(ctx context.Context, limit int) ([]platform.Fact, error) {
	return s.queryFacts(ctx, `SELECT `+factColumns+` FROM facts ORDER BY captured_at DESC LIMIT $1`, limit)
}

func (s *Postgres) FactsByPlatform(ctx context.Context, p platform.Platform) ([]platform.Fact, error) {
	return s.queryFacts(ctx, `SELECT `+factColumns+` FROM facts WHERE platform = $1 ORDER BY inserted_at, id`, p)
}

func (s *Postgres) queryFacts(ctx context.Context, query string, args ...any) ([]platform.Fact, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query facts: %w", err)
	}
	defer rows.Close()

	var facts []platform.Fact
	for rows.Next() {
		var f platform.Fact
		if err := rows.Scan(&f.ID, &f.Text, &f.Category, &f.Confidence, &f.Platform,
			&f.Timestamp, &f.ExtractedAt, &f.SourceMessage); err != nil {
			return nil, fmt.Errorf("scan fact row: %w", err)
		}
		facts = append(facts, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fact rows: %w", err)
	}
	return facts, nil
}

func (s *Postgres) FactCount(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM facts`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count facts: %w", err)
	}
	return count, nil
}

func (s *Postgres) DeleteFact(ctx context.Context, id uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM facts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete fact: %w", err)
	}
	return nil
}

func (s *Postgres) ClearAll(ctx context.Context) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM facts`); err != nil {
		return fmt.Errorf("clear facts: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM conversation_turns`); err != nil {
		return fmt.Errorf("clear turns: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

const enabledKey = "enabled"

func (s *Postgres) Enabled(ctx context.Context) (bool, error) {
	var value string
	err := s.pool.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, enabledKey).Scan(&value)
	if err != nil {
		// No row yet: the flag defaults on.
		if errors.Is(err, pgx.ErrNoRows) {
			return true, nil
		}
		return false, fmt.Errorf("read enabled flag: %w", err)
	}
	return value != "false", nil
}

func (s *Postgres) SetEnabled(ctx context.Context, enabled bool) error {
	value := "true"
	if !enabled {
		value = "false"
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		enabledKey, value,
	)
	if err != nil {
		return fmt.Errorf("write enabled flag: %w", err)
	}
	return nil
}
