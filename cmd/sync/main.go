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

// Mailsheet Gmail label sync command.
//
// Batch CLI that fetches messages from a Gmail label, extracts a plain-text
// body from each, and idempotently appends derived rows to a Google Sheet.
//
// Usage:
//
//	go run ./cmd/sync/ [--label INBOX] [--max-messages 10] [--spreadsheet-id ID] [--sheet Sheet1]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/mailsheet/ingestion/internal/auth"
	"github.com/mailsheet/ingestion/internal/config"
	"github.com/mailsheet/ingestion/internal/dedup"
	"github.com/mailsheet/ingestion/internal/gmail"
	"github.com/mailsheet/ingestion/internal/ledger"
	"github.com/mailsheet/ingestion/internal/sheets"
	syncpkg "github.com/mailsheet/ingestion/internal/sync"
)

func main() {
	// Structured JSON logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// --- CLI Flags ---
	labelFlag := flag.String("label", "INBOX", "Gmail label name to list messages from (e.g. INBOX, Follow Up)")
	maxFlag := flag.Int("max-messages", 10, "Maximum number of messages to fetch")
	bodyLenFlag := flag.Int("body-length", 200, "Max characters of body text to print per message (0 = no limit)")
	spreadsheetFlag := flag.String("spreadsheet-id", "", "Spreadsheet ID to append rows to; sync only runs if set")
	sheetFlag := flag.String("sheet", "Sheet1", "Sheet (tab) name within the spreadsheet")
	contentLimitFlag := flag.Int("content-limit", 5000, "Max characters of content per cell when writing rows")
	intervalFlag := flag.Duration("interval", 0, "Re-run the sync at this interval (0 = run once)")
	flag.Parse()

	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Authorised HTTP client ---
	httpClient, err := auth.NewHTTPClient(ctx, cfg.CredentialsPath, cfg.TokenPath, config.Scopes)
	if err != nil {
		slog.Error("failed to build authorised client", "error", err)
		os.Exit(1)
	}

	source := gmail.NewClient(httpClient, cfg.GmailBaseURL)

	var sink syncpkg.RowSink
	if *spreadsheetFlag != "" {
		sink = sheets.NewClient(httpClient, cfg.SheetsBaseURL, *spreadsheetFlag, *sheetFlag)
	}

	// --- Optional seen-message filter ---
	var seen syncpkg.SeenFilter
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("invalid redis URL", "error", err)
			os.Exit(1)
		}
		rdb := redis.NewClient(opt)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Warn("redis unreachable, seen-filter disabled", "error", err)
		} else {
			seen = dedup.NewFilter(rdb)
			slog.Info("seen-message filter enabled")
		}
	}

	// --- Optional run ledger ---
	var runLedger *ledger.Store
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("invalid database URL", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		runLedger, err = ledger.NewStore(ctx, pool)
		if err != nil {
			slog.Error("failed to initialise run ledger", "error", err)
			os.Exit(1)
		}

		if last, err := runLedger.LastRun(ctx, *labelFlag); err != nil {
			slog.Warn("failed to read last run", "error", err)
		} else if last != nil {
			slog.Info("previous run",
				"run_id", last.RunID,
				"started_at", last.StartedAt,
				"appended", last.Appended,
			)
		}
	}

	runner := syncpkg.NewRunner(syncpkg.RunnerConfig{
		Source: source,
		Sink:   sink,
		Seen:   seen,
	})

	opts := syncpkg.Options{
		Label:        *labelFlag,
		MaxMessages:  *maxFlag,
		BodyPreview:  *bodyLenFlag,
		ContentLimit: *contentLimitFlag,
		SyncSheet:    sink != nil,
	}

	runOnce(ctx, runner, runLedger, opts, *spreadsheetFlag)

	// Watch mode: repeat until interrupted. Each cycle is independent and
	// the append is idempotent by fingerprint, so repeats are safe.
	if *intervalFlag > 0 {
		slog.Info("watch mode enabled", "interval", *intervalFlag)
		ticker := time.NewTicker(*intervalFlag)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				slog.Info("shutting down")
				return
			case <-ticker.C:
				runOnce(ctx, runner, runLedger, opts, *spreadsheetFlag)
			}
		}
	}
}

// runOnce executes a single sync cycle and records it in the ledger. Remote
// API failures end the run with a diagnostic but no error exit code; the
// job is best-effort and the next run picks up where this one stopped.
func runOnce(ctx context.Context, runner *syncpkg.Runner, runLedger *ledger.Store, opts syncpkg.Options, spreadsheetID string) {
	runID := uuid.New().String()
	startedAt := time.Now().UTC()

	slog.Info("starting sync run",
		"run_id", runID,
		"label", opts.Label,
		"max_messages", opts.MaxMessages,
		"sync_sheet", opts.SyncSheet,
	)

	result, err := runner.Run(ctx, opts)
	if err != nil {
		if errors.Is(err, gmail.ErrLabelNotFound) {
			fmt.Printf("Label %q not found.\n", opts.Label)
		}
		slog.Error("sync run failed", "run_id", runID, "error", err)
	} else {
		slog.Info("sync run complete",
			"run_id", runID,
			"fetched", result.Fetched,
			"appended", result.Appended,
			"skipped", result.Skipped,
			"errors", result.Errors,
			"elapsed", result.Elapsed,
		)
	}

	if runLedger != nil && result != nil {
		rec := ledger.Run{
			RunID:         runID,
			Label:         opts.Label,
			SpreadsheetID: spreadsheetID,
			Fetched:       result.Fetched,
			Appended:      result.Appended,
			Skipped:       result.Skipped,
			Errors:        result.Errors,
			StartedAt:     startedAt,
			ElapsedMs:     result.Elapsed.Milliseconds(),
		}
		if err := runLedger.SaveRun(ctx, rec); err != nil {
			slog.Warn("failed to record run", "run_id", runID, "error", err)
		}
	}
}
