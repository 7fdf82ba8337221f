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

// Package extract resolves a message payload tree into one canonical body
// and reduces it to plain text. Single-part messages carry their content in
// the root node; multipart messages (including multipart nested inside
// multipart) are flattened into a candidate list and one candidate is chosen
// by content-type preference.
package extract

import (
	"encoding/base64"
	"fmt"

	"github.com/mailsheet/ingestion/internal/models"
)

// Body is the canonical extracted body of a message.
type Body struct {
	ContentType string
	Text        string
}

// defaultMimeType is assumed when a payload node omits its content type.
const defaultMimeType = "text/plain"

// FromPayload resolves a payload tree into its canonical body.
// Returns (nil, nil) when no node in the tree carries content.
// A malformed base64 leaf is an error for the whole extraction; the caller
// decides whether to skip the message or abort the run.
func FromPayload(root *models.PayloadNode) (*Body, error) {
	if root == nil {
		return nil, nil
	}

	// Single-part: no child parts, content (if any) lives on the root node.
	if len(root.Parts) == 0 {
		data := nodeData(root)
		if data == "" {
			return nil, nil
		}
		text, err := decodeBody(data)
		if err != nil {
			return nil, fmt.Errorf("decode %s body: %w", nodeMimeType(root), err)
		}
		return &Body{ContentType: nodeMimeType(root), Text: text}, nil
	}

	// Multipart: collect every node carrying content, at any depth. A node
	// with both content and children contributes a candidate and is still
	// walked; the tree shape is not trusted to be well-formed.
	var candidates []Body
	var walk func(n *models.PayloadNode) error
	walk = func(n *models.PayloadNode) error {
		if data := nodeData(n); data != "" {
			text, err := decodeBody(data)
			if err != nil {
				return fmt.Errorf("decode %s part: %w", nodeMimeType(n), err)
			}
			candidates = append(candidates, Body{ContentType: nodeMimeType(n), Text: text})
		}
		for i := range n.Parts {
			if err := walk(&n.Parts[i]); err != nil {
				return err
			}
		}
		return nil
	}
	for i := range root.Parts {
		if err := walk(&root.Parts[i]); err != nil {
			return nil, err
		}
	}

	if len(candidates) == 0 {
		return nil, nil
	}

	// Prefer text/html, then text/plain, then whatever came first.
	for _, want := range []string{"text/html", "text/plain"} {
		for i := range candidates {
			if candidates[i].ContentType == want {
				return &candidates[i], nil
			}
		}
	}
	return &candidates[0], nil
}

func nodeData(n *models.PayloadNode) string {
	if n.Body == nil {
		return ""
	}
	return n.Body.Data
}

func nodeMimeType(n *models.PayloadNode) string {
	if n.MimeType == "" {
		return defaultMimeType
	}
	return n.MimeType
}

// decodeBody decodes URL-safe base64 message content to UTF-8 text. The API
// usually omits padding, but padded content shows up too, so both encodings
// are tried.
func decodeBody(data string) (string, error) {
	if b, err := base64.RawURLEncoding.DecodeString(data); err == nil {
		return string(b), nil
	}
	b, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
