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

package fingerprint

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/mailsheet/ingestion/internal/models"
)

// TestCanonicalContent verifies trim and truncate behaviour, including the
// tiny-limit guard.
func TestCanonicalContent(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{"under limit", "hello", 10, "hello"},
		{"exactly limit", "hello", 5, "hello"},
		{"over limit", "hello world", 8, "hello..."},
		{"trimmed", "  padded  ", 20, "padded"},
		{"trim then fits", "  hello  ", 5, "hello"},
		{"limit 3", "hello", 3, "..."},
		{"limit 1", "hello", 1, "..."},
		{"limit 0", "hello", 0, "..."},
		{"empty", "", 5, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanonicalContent(tt.in, tt.limit); got != tt.want {
				t.Errorf("CanonicalContent(%q, %d) = %q, want %q", tt.in, tt.limit, got, tt.want)
			}
		})
	}
}

// TestCanonicalContent_LimitCountsCharacters verifies the limit applies to
// characters rather than bytes, and that truncation never splits a rune.
func TestCanonicalContent_LimitCountsCharacters(t *testing.T) {
	if got := CanonicalContent("ééééé", 8); got != "ééééé" {
		t.Errorf("five characters under an eight-character limit should pass through, got %q", got)
	}

	got := CanonicalContent(strings.Repeat("é", 10), 8)
	if want := strings.Repeat("é", 5) + "..."; got != want {
		t.Errorf("CanonicalContent = %q, want %q", got, want)
	}
	if !utf8.ValidString(got) {
		t.Errorf("truncated content %q is not valid UTF-8", got)
	}
}

// TestFromRow_Deterministic verifies identical rows hash identically.
func TestFromRow_Deterministic(t *testing.T) {
	row := models.Row{SentDate: "2024-01-01 00:00:00 UTC", Content: "some content"}

	a := FromRow(row, 5000)
	b := FromRow(row, 5000)
	if a != b {
		t.Errorf("same row hashed differently: %s vs %s", a, b)
	}
	if len(a) != 64 || a != strings.ToLower(a) {
		t.Errorf("digest %q is not lowercase hex sha256", a)
	}
}

// TestFromRow_TruncationMakesPrefixesEqual verifies content differing only
// past the truncation point yields the same digest.
func TestFromRow_TruncationMakesPrefixesEqual(t *testing.T) {
	prefix := strings.Repeat("x", 100)
	a := models.Row{SentDate: "d", Content: prefix + "tail one"}
	b := models.Row{SentDate: "d", Content: prefix + "completely different tail"}

	if FromRow(a, 50) != FromRow(b, 50) {
		t.Error("rows sharing the truncated prefix should hash identically")
	}
	if FromRow(a, 5000) == FromRow(b, 5000) {
		t.Error("rows with differing content under the limit should hash differently")
	}
}

// TestFromRow_StructuredExcludesContent verifies structured rows hash only
// the five non-content fields.
func TestFromRow_StructuredExcludesContent(t *testing.T) {
	a := models.Row{SentDate: "d", Name: "Jane", Address: "1 Main St", Email1: "a@x.com", Email2: "b@x.com", Content: "one rendering"}
	b := a
	b.Content = "a totally different rendering"

	if FromRow(a, 5000) != FromRow(b, 5000) {
		t.Error("structured rows should ignore content")
	}

	c := a
	c.Email2 = "other@x.com"
	if FromRow(a, 5000) == FromRow(c, 5000) {
		t.Error("changing a structured field should change the digest")
	}
}

// TestFromRow_EmptyStructuredMatchesUnstructured verifies the
// backward-compatibility contract: a six-column row with empty structured
// fields hashes exactly like the old two-column row.
func TestFromRow_EmptyStructuredMatchesUnstructured(t *testing.T) {
	old := models.Row{SentDate: "2024-01-01", Content: "body text"}
	migrated := models.Row{
		SentDate: "2024-01-01",
		Name:     "",
		Address:  "",
		Email1:   "",
		Email2:   "",
		Content:  "body text",
	}

	if FromRow(old, 5000) != FromRow(migrated, 5000) {
		t.Error("empty-structured row must hash like an unstructured row")
	}
}

// TestFromRow_FieldsTrimmed verifies fields are trimmed independently before
// joining.
func TestFromRow_FieldsTrimmed(t *testing.T) {
	a := models.Row{SentDate: " d ", Name: " Jane ", Address: "addr", Email1: "a@x", Email2: "b@x"}
	b := models.Row{SentDate: "d", Name: "Jane", Address: "addr", Email1: "a@x", Email2: "b@x"}

	if FromRow(a, 100) != FromRow(b, 100) {
		t.Error("surrounding whitespace on fields should not affect the digest")
	}
}
