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

package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mailsheet/ingestion/internal/extract"
	"github.com/mailsheet/ingestion/internal/models"
)

// MessageSource lists and fetches messages. Implemented by gmail.Client.
type MessageSource interface {
	ResolveLabel(ctx context.Context, name string) (string, error)
	ListMessages(ctx context.Context, labelID string, max int) ([]string, error)
	FetchMessage(ctx context.Context, messageID string) (*models.Message, error)
}

// RowSink reads back and appends persisted rows. Implemented by
// sheets.Client.
type RowSink interface {
	ExistingFingerprints(ctx context.Context, contentLimit int) (map[string]bool, error)
	AppendRows(ctx context.Context, rows []models.Row, contentLimit int) error
}

// SeenFilter is an optional fast-path filter on message IDs already
// processed by an earlier run. Implemented by dedup.Filter. Checking and
// marking are separate so IDs are only marked once their rows have landed;
// a run that dies before the append leaves every message retryable.
type SeenFilter interface {
	Seen(ctx context.Context, messageID string) (bool, error)
	Mark(ctx context.Context, messageIDs ...string) error
}

// Options defines the scope of one sync run.
type Options struct {
	Label        string // label name to sync from
	MaxMessages  int    // fetch cap
	BodyPreview  int    // console preview length, 0 = unlimited
	ContentLimit int    // per-cell content truncation
	SyncSheet    bool   // false = preview only, nothing is appended
}

// Result summarises a completed run.
type Result struct {
	Fetched  int
	Appended int
	Skipped  int
	Errors   int
	Elapsed  time.Duration
}

// Runner drives one full sync cycle: fetch, extract, reconcile, append.
type Runner struct {
	source MessageSource
	sink   RowSink
	seen   SeenFilter
}

// RunnerConfig holds dependencies for the runner. Sink may be nil when no
// spreadsheet is configured; Seen may be nil to disable the fast-path
// filter.
type RunnerConfig struct {
	Source MessageSource
	Sink   RowSink
	Seen   SeenFilter
}

// NewRunner creates a sync runner.
func NewRunner(cfg RunnerConfig) *Runner {
	return &Runner{
		source: cfg.Source,
		sink:   cfg.Sink,
		seen:   cfg.Seen,
	}
}

// Run executes one sync cycle. Messages are processed strictly in listing
// order; rows accumulate in memory and are appended once at the end. A
// malformed message body is logged and skipped; any remote API failure
// aborts the remainder of the run; the idempotent append makes a plain
// re-run the recovery mechanism.
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()
	result := &Result{}

	labelID, err := r.source.ResolveLabel(ctx, opts.Label)
	if err != nil {
		return result, err
	}
	slog.Info("label resolved", "label", opts.Label, "label_id", labelID)

	ids, err := r.source.ListMessages(ctx, labelID, opts.MaxMessages)
	if err != nil {
		return result, err
	}
	slog.Info("listed messages", "label", opts.Label, "count", len(ids))

	var rows []models.Row
	var rowIDs []string
	for _, id := range ids {
		if r.seen != nil {
			seen, err := r.seen.Seen(ctx, id)
			if err != nil {
				slog.Warn("seen-filter check failed", "message_id", id, "error", err)
			} else if seen {
				result.Skipped++
				continue
			}
		}

		msg, err := r.source.FetchMessage(ctx, id)
		if err != nil {
			result.Elapsed = time.Since(start)
			return result, fmt.Errorf("fetch message %s: %w", id, err)
		}
		result.Fetched++

		plain, ok := extractPlain(msg, opts.BodyPreview)
		if !ok {
			result.Errors++
			continue
		}

		if opts.SyncSheet {
			rows = append(rows, buildRow(msg.SentDate(), plain))
			rowIDs = append(rowIDs, id)
		}
	}

	if opts.SyncSheet && len(rows) > 0 {
		appended, skipped, err := r.flush(ctx, rows, opts.ContentLimit)
		if err != nil {
			result.Elapsed = time.Since(start)
			return result, err
		}
		result.Appended = appended
		result.Skipped += skipped

		// Only now is it safe to remember these IDs: their rows are either
		// freshly appended or were already on the sheet.
		if r.seen != nil {
			if err := r.seen.Mark(ctx, rowIDs...); err != nil {
				slog.Warn("marking messages seen failed", "error", err)
			}
		}
	}

	result.Elapsed = time.Since(start)
	return result, nil
}

// extractPlain resolves and normalizes a message body, printing the console
// preview. ok is false only for a decode failure; a missing body yields an
// empty string, which still produces a row.
func extractPlain(msg *models.Message, previewLen int) (string, bool) {
	body, err := extract.FromPayload(msg.Payload)
	if err != nil {
		// Skip the message rather than aborting the run: one corrupt leaf
		// should not block the rest of the batch, and the diagnostic keeps
		// it from vanishing silently.
		slog.Error("body extraction failed", "message_id", msg.ID, "error", err)
		return "", false
	}
	if body == nil {
		slog.Info("no body found for message", "message_id", msg.ID)
		return "", true
	}

	plain := extract.PlainText(body.ContentType, body.Text)
	fmt.Println(extract.PlainMarker + truncatePreview(plain, previewLen))
	return plain, true
}

// truncatePreview limits the console preview to n characters, counted as
// runes so multibyte text is never cut mid-character. n <= 0 means
// unlimited.
func truncatePreview(s string, n int) string {
	if n <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

// buildRow assembles a row, promoting it to the structured schema when the
// body matches the known form-notification template.
func buildRow(sentDate, plain string) models.Row {
	row := models.Row{SentDate: sentDate, Content: plain}
	if f := extract.TryExtract(plain); f != nil {
		row.Name = f.Name
		row.Address = f.Address
		row.Email1 = f.Email1
		row.Email2 = f.Email2
	}
	return row
}

// flush reconciles the batch against the sheet and appends the remainder.
func (r *Runner) flush(ctx context.Context, rows []models.Row, contentLimit int) (appended, skipped int, err error) {
	existing, err := r.sink.ExistingFingerprints(ctx, contentLimit)
	if err != nil {
		// Availability over strict dedup: treat everything as new rather
		// than failing the run on a transient read error.
		slog.Warn("reading existing rows failed, treating all rows as new", "error", err)
		existing = map[string]bool{}
	}

	newRows := Reconcile(rows, existing, contentLimit)
	skipped = len(rows) - len(newRows)
	if skipped > 0 {
		slog.Info("skipping rows already on sheet", "count", skipped)
	}
	if len(newRows) == 0 {
		slog.Info("all fetched messages already on sheet, nothing to append")
		return 0, skipped, nil
	}

	if err := r.sink.AppendRows(ctx, newRows, contentLimit); err != nil {
		return 0, skipped, fmt.Errorf("append rows: %w", err)
	}
	return len(newRows), skipped, nil
}
