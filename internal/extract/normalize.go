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

package extract

import (
	"strings"

	"golang.org/x/net/html"
)

// PlainText reduces a message body to normalized plain text. HTML bodies are
// tokenized and their visible text nodes joined with single spaces, with all
// whitespace runs collapsed; anything else is returned unchanged. The result
// feeds both console previews and row fingerprints, so it must be
// deterministic and idempotent.
func PlainText(contentType, text string) string {
	if !strings.EqualFold(contentType, "text/html") {
		return text
	}
	return htmlToText(text)
}

func htmlToText(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt == html.TextToken {
			t := strings.TrimSpace(string(z.Text()))
			if t != "" {
				if b.Len() > 0 {
					b.WriteByte(' ')
				}
				b.WriteString(t)
			}
		}
	}
	// Collapse any remaining intra-token whitespace runs.
	return strings.Join(strings.Fields(b.String()), " ")
}
