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

// Package fingerprint computes stable SHA-256 digests for sheet rows so
// repeated runs never append duplicates. Two key schemes coexist: rows that
// matched the notification template hash their five non-content fields; all
// other rows hash sent date plus canonicalized content. Scheme selection
// depends only on the row's data, so digests derived from freshly fetched
// messages and from rows read back off the sheet always agree.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/mailsheet/ingestion/internal/models"
)

const ellipsis = "..."

// CanonicalContent trims surrounding whitespace and truncates to limit
// characters, marking truncation with an ellipsis. The limit counts
// characters, not bytes, so multibyte content never gets cut mid-rune. The
// exact same transformation is applied when writing sheet cells and when
// hashing, or dedup silently breaks. Limits of 3 or less truncate to the
// bare ellipsis rather than slicing with a negative length.
func CanonicalContent(s string, limit int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	if limit <= len(ellipsis) {
		return ellipsis
	}
	return string(runes[:limit-len(ellipsis)]) + ellipsis
}

// FromRow computes the dedup digest for a row as lowercase hex.
func FromRow(row models.Row, contentLimit int) string {
	var key string
	if row.Structured() {
		// Content is excluded: identity for a matched form submission is
		// the extracted fields, not the free text they came from.
		key = strings.Join([]string{
			strings.TrimSpace(row.SentDate),
			strings.TrimSpace(row.Name),
			strings.TrimSpace(row.Address),
			strings.TrimSpace(row.Email1),
			strings.TrimSpace(row.Email2),
		}, "\n")
	} else {
		key = strings.TrimSpace(row.SentDate) + "\n" + CanonicalContent(row.Content, contentLimit)
	}
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
