// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store implements the document store backing the dedup engine's
// "record" and "dedup" collections, each addressable by primary id and by
// equality on indexed fields, over DuckDB: a Store struct owning a
// *sql.DB, schema bootstrap on New, and one file per concern.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/sony/gobreaker/v2"

	"github.com/bibliodedup/core/internal/logging"
)

// Config configures the document store's DuckDB backing file.
type Config struct {
	// Path is the DuckDB database file path, or ":memory:" for an
	// in-memory store (used in tests).
	Path string

	// Threads bounds DuckDB's internal thread pool; 0 means DuckDB's
	// default.
	Threads int

	// QueryTimeout bounds any single store operation.
	QueryTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Path:         "dedup.duckdb",
		QueryTimeout: 30 * time.Second,
	}
}

// Store wraps the DuckDB connection backing the record and dedup
// collections.
type Store struct {
	conn    *sql.DB
	cfg     Config
	breaker *gobreaker.CircuitBreaker[any]
}

// New opens (creating if necessary) the DuckDB file at cfg.Path, applies
// the schema, and returns a ready Store.
func New(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		cfg.Path = DefaultConfig().Path
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = DefaultConfig().QueryTimeout
	}

	if cfg.Path != ":memory:" {
		if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("store: create data directory %s: %w", dir, err)
			}
		}
	}

	conn, err := sql.Open("duckdb", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("store: open duckdb: %w", err)
	}

	if cfg.Threads > 0 {
		if _, err := conn.Exec(fmt.Sprintf("PRAGMA threads=%d", cfg.Threads)); err != nil {
			logging.Warn().Err(err).Msg("store: failed to set thread pragma")
		}
	}

	s := &Store{
		conn: conn,
		cfg:  cfg,
		breaker: gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
			Name:        "document-store",
			MaxRequests: 1,
			Interval:    0,
			Timeout:     10 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("store circuit breaker state change")
			},
		}),
	}

	if err := s.migrate(context.Background()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("store: migrate schema: %w", err)
	}

	return s, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// ensureContext applies the store's default query timeout when the
// caller hasn't already set a deadline.
func (s *Store) ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.cfg.QueryTimeout)
}

// guarded runs fn through the store's circuit breaker, so a run of
// consecutive store failures fails fast for subsequent callers instead of
// queuing every worker behind a wedged database.
func (s *Store) guarded(fn func() error) error {
	_, err := s.breaker.Execute(func() (any, error) {
		return nil, fn()
	})
	return err
}

func (s *Store) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS records (
			id TEXT PRIMARY KEY,
			source_id TEXT NOT NULL,
			format TEXT NOT NULL,
			oai_id TEXT,
			deleted BOOLEAN NOT NULL DEFAULT false,
			raw BLOB,
			host_record_id TEXT,
			linking_id TEXT,
			dedup_id TEXT,
			update_needed BOOLEAN NOT NULL DEFAULT false,
			updated TIMESTAMP,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_source ON records(source_id)`,
		`CREATE INDEX IF NOT EXISTS idx_records_dedup ON records(dedup_id)`,
		`CREATE INDEX IF NOT EXISTS idx_records_host ON records(source_id, host_record_id)`,

		`CREATE TABLE IF NOT EXISTS record_title_keys (
			record_id TEXT NOT NULL,
			key TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_title_keys ON record_title_keys(key)`,
		`CREATE INDEX IF NOT EXISTS idx_title_keys_record ON record_title_keys(record_id)`,

		`CREATE TABLE IF NOT EXISTS record_isbn_keys (
			record_id TEXT NOT NULL,
			key TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_isbn_keys ON record_isbn_keys(key)`,
		`CREATE INDEX IF NOT EXISTS idx_isbn_keys_record ON record_isbn_keys(record_id)`,

		`CREATE TABLE IF NOT EXISTS record_id_keys (
			record_id TEXT NOT NULL,
			key TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_id_keys ON record_id_keys(key)`,
		`CREATE INDEX IF NOT EXISTS idx_id_keys_record ON record_id_keys(record_id)`,

		`CREATE TABLE IF NOT EXISTS dedup_groups (
			id TEXT PRIMARY KEY,
			deleted BOOLEAN NOT NULL DEFAULT false,
			changed TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS dedup_group_members (
			group_id TEXT NOT NULL,
			record_id TEXT NOT NULL,
			ordinal INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_group_members_group ON dedup_group_members(group_id)`,
		`CREATE INDEX IF NOT EXISTS idx_group_members_record ON dedup_group_members(record_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.conn.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
