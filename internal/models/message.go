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

// Package models defines the data structures shared across the sync pipeline.
package models

import (
	"strconv"
	"time"
)

// Header is a single RFC 822 message header as the Gmail API returns it.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// PayloadBody carries inline content for a payload node. Data is URL-safe
// base64; it is empty on container nodes and on attachment stubs.
type PayloadBody struct {
	Size int    `json:"size,omitempty"`
	Data string `json:"data,omitempty"`
}

// PayloadNode is one node of a message body tree. A node either carries
// inline content in Body.Data or has child Parts (multipart containers may
// nest arbitrarily, e.g. multipart/alternative inside multipart/mixed).
type PayloadNode struct {
	MimeType string        `json:"mimeType,omitempty"`
	Headers  []Header      `json:"headers,omitempty"`
	Body     *PayloadBody  `json:"body,omitempty"`
	Parts    []PayloadNode `json:"parts,omitempty"`
}

// Message represents a fetched Gmail message with the fields the pipeline
// needs. InternalDate is epoch milliseconds encoded as a decimal string,
// exactly as the API delivers it.
type Message struct {
	ID           string       `json:"id"`
	ThreadID     string       `json:"threadId,omitempty"`
	InternalDate string       `json:"internalDate,omitempty"`
	Payload      *PayloadNode `json:"payload,omitempty"`
}

// Header returns the value of the named payload header, or empty string.
func (m *Message) Header(name string) string {
	if m.Payload == nil {
		return ""
	}
	for _, h := range m.Payload.Headers {
		if h.Name == name {
			return h.Value
		}
	}
	return ""
}

// SentDate renders a human-readable sent date for the message. It prefers
// the internal epoch-ms timestamp (formatted as UTC), falls back to the raw
// Date header, and returns empty string when neither is usable.
func (m *Message) SentDate() string {
	if m.InternalDate != "" {
		if ms, err := strconv.ParseInt(m.InternalDate, 10, 64); err == nil {
			return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04:05 UTC")
		}
	}
	return m.Header("Date")
}

// Row is one reconciliation unit destined for the sheet. All six columns are
// always present; the four middle fields are filled only when the body
// matched the known notification template.
type Row struct {
	SentDate string
	Name     string
	Address  string
	Email1   string
	Email2   string
	Content  string
}

// Structured reports whether any extracted field is set. The tag is always
// reconstructed from the data itself, never from a stored discriminator,
// so rows persisted before the structured columns existed reconcile cleanly
// against rows written today.
func (r Row) Structured() bool {
	return r.Name != "" || r.Address != "" || r.Email1 != "" || r.Email2 != ""
}
