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
	"regexp"
	"strings"
)

// Fields holds the structured values mined from one known form-notification
// template. This is deliberately narrow: it encodes a single source form,
// not a general entity extractor.
type Fields struct {
	Name    string
	Address string
	Email1  string
	Email2  string
}

// PlainMarker prefixes the normalized body text before the template is
// applied; the pattern is anchored to it.
const PlainMarker = "[plain]: "

var fieldTemplate = regexp.MustCompile(
	`^\[plain\]: it's electric (.+?) The user has an address of (.+?) and has an email of (\S+) Email address submitted in form (\S+)`,
)

// TryExtract applies the notification template to normalized body text.
// Returns nil unless the template matches in full; there are no partial
// results. The marker is prepended when the caller hasn't already.
func TryExtract(text string) *Fields {
	if !strings.HasPrefix(text, PlainMarker) {
		text = PlainMarker + text
	}
	m := fieldTemplate.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	return &Fields{Name: m[1], Address: m[2], Email1: m[3], Email2: m[4]}
}
