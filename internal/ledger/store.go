// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ledger provides a Postgres-backed history of sync runs. Purely
// operational: the dedup guarantees never depend on it, so a run proceeds
// normally when no database is configured.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Run represents one completed sync run persisted in Postgres.
type Run struct {
	RunID         string
	Label         string
	SpreadsheetID string
	Fetched       int
	Appended      int
	Skipped       int
	Errors        int
	StartedAt     time.Time
	ElapsedMs     int64
}

// Store provides run-history persistence in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a run ledger backed by the given Postgres pool.
// It ensures the sync_runs table exists on creation.
func NewStore(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	s := &Store{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure ledger schema: %w", err)
	}
	slog.Info("run ledger initialised")
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS sync_runs (
			id             BIGSERIAL PRIMARY KEY,
			run_id         TEXT NOT NULL UNIQUE,
			label          TEXT NOT NULL,
			spreadsheet_id TEXT DEFAULT '',
			fetched        INT DEFAULT 0,
			appended       INT DEFAULT 0,
			skipped        INT DEFAULT 0,
			errors         INT DEFAULT 0,
			started_at     TIMESTAMPTZ NOT NULL,
			elapsed_ms     BIGINT DEFAULT 0,
			created_at     TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_sync_runs_label ON sync_runs(label);
		CREATE INDEX IF NOT EXISTS idx_sync_runs_started ON sync_runs(started_at);
	`)
	return err
}

// SaveRun records a completed run.
func (s *Store) SaveRun(ctx context.Context, r Run) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sync_runs
			(run_id, label, spreadsheet_id, fetched, appended, skipped, errors, started_at, elapsed_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, r.RunID, r.Label, r.SpreadsheetID, r.Fetched, r.Appended, r.Skipped, r.Errors, r.StartedAt, r.ElapsedMs)
	return err
}

// LastRun returns the most recent run for a label, or nil when the label has
// never been synced.
func (s *Store) LastRun(ctx context.Context, label string) (*Run, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT run_id, label, spreadsheet_id, fetched, appended, skipped, errors, started_at, elapsed_ms
		FROM sync_runs
		WHERE label = $1
		ORDER BY started_at DESC
		LIMIT 1
	`, label)

	var r Run
	err := row.Scan(
		&r.RunID, &r.Label, &r.SpreadsheetID, &r.Fetched, &r.Appended,
		&r.Skipped, &r.Errors, &r.StartedAt, &r.ElapsedMs,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}
