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

// Package sync reconciles freshly derived rows against rows already on the
// sheet and drives the whole fetch, extract, and append run.
package sync

import (
	"github.com/mailsheet/ingestion/internal/fingerprint"
	"github.com/mailsheet/ingestion/internal/models"
)

// Reconcile filters rows down to those whose fingerprint is absent from the
// existing set, preserving relative order. It is a pure function: deciding
// what to append is separate from appending it. Callers that fail to read
// the existing set pass an empty one: a transient read failure degrades to
// "everything is new" rather than blocking the run, and the append-only,
// fingerprint-idempotent store makes the re-run safe.
func Reconcile(rows []models.Row, existing map[string]bool, contentLimit int) []models.Row {
	if len(rows) == 0 {
		return nil
	}
	out := make([]models.Row, 0, len(rows))
	for _, row := range rows {
		if existing[fingerprint.FromRow(row, contentLimit)] {
			continue
		}
		out = append(out, row)
	}
	return out
}
