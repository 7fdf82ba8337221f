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
	"encoding/base64"
	"testing"

	"github.com/mailsheet/ingestion/internal/models"
)

func enc(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func leaf(mimeType, text string) models.PayloadNode {
	return models.PayloadNode{
		MimeType: mimeType,
		Body:     &models.PayloadBody{Data: enc(text)},
	}
}

// TestFromPayload_SinglePart verifies that a leaf-only payload yields its
// decoded content.
func TestFromPayload_SinglePart(t *testing.T) {
	root := leaf("text/plain", "hello world")

	body, err := FromPayload(&root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body == nil {
		t.Fatal("expected a body, got nil")
	}
	if body.ContentType != "text/plain" || body.Text != "hello world" {
		t.Errorf("got (%q, %q), want (text/plain, hello world)", body.ContentType, body.Text)
	}
}

// TestFromPayload_EmptyLeaf verifies that a leaf with no content is absent.
func TestFromPayload_EmptyLeaf(t *testing.T) {
	root := models.PayloadNode{MimeType: "text/plain"}

	body, err := FromPayload(&root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body != nil {
		t.Errorf("expected absent body, got %+v", body)
	}
}

// TestFromPayload_PrefersHTML verifies the content-type preference: html
// wins over plain regardless of sibling order.
func TestFromPayload_PrefersHTML(t *testing.T) {
	for _, order := range [][]models.PayloadNode{
		{leaf("text/plain", "A"), leaf("text/html", "B")},
		{leaf("text/html", "B"), leaf("text/plain", "A")},
	} {
		root := models.PayloadNode{MimeType: "multipart/alternative", Parts: order}

		body, err := FromPayload(&root)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if body == nil {
			t.Fatal("expected a body, got nil")
		}
		if body.ContentType != "text/html" || body.Text != "B" {
			t.Errorf("got (%q, %q), want (text/html, B)", body.ContentType, body.Text)
		}
	}
}

// TestFromPayload_FallsBackToPlain verifies text/plain is chosen when no
// html part exists, ahead of other types.
func TestFromPayload_FallsBackToPlain(t *testing.T) {
	root := models.PayloadNode{
		MimeType: "multipart/mixed",
		Parts: []models.PayloadNode{
			leaf("application/json", "{}"),
			leaf("text/plain", "plain body"),
		},
	}

	body, err := FromPayload(&root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body.ContentType != "text/plain" || body.Text != "plain body" {
		t.Errorf("got (%q, %q), want (text/plain, plain body)", body.ContentType, body.Text)
	}
}

// TestFromPayload_FirstCandidateWhenNoTextType verifies traversal-order
// fallback when neither preferred type is present.
func TestFromPayload_FirstCandidateWhenNoTextType(t *testing.T) {
	root := models.PayloadNode{
		MimeType: "multipart/mixed",
		Parts: []models.PayloadNode{
			leaf("application/json", "first"),
			leaf("application/xml", "second"),
		},
	}

	body, err := FromPayload(&root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body.Text != "first" {
		t.Errorf("got %q, want first candidate in traversal order", body.Text)
	}
}

// TestFromPayload_NestedMultipart verifies that a grandchild leaf two
// containers deep is found and decoded.
func TestFromPayload_NestedMultipart(t *testing.T) {
	root := models.PayloadNode{
		MimeType: "multipart/mixed",
		Parts: []models.PayloadNode{
			{
				MimeType: "multipart/alternative",
				Parts: []models.PayloadNode{
					leaf("text/plain", "deep text"),
				},
			},
		},
	}

	body, err := FromPayload(&root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body == nil {
		t.Fatal("expected a body, got nil")
	}
	if body.ContentType != "text/plain" || body.Text != "deep text" {
		t.Errorf("got (%q, %q), want (text/plain, deep text)", body.ContentType, body.Text)
	}
}

// TestFromPayload_NodeWithContentAndChildren verifies that a malformed node
// carrying both content and children contributes a candidate and still has
// its children walked.
func TestFromPayload_NodeWithContentAndChildren(t *testing.T) {
	inner := leaf("text/html", "nested html")
	root := models.PayloadNode{
		MimeType: "multipart/mixed",
		Parts: []models.PayloadNode{
			{
				MimeType: "text/plain",
				Body:     &models.PayloadBody{Data: enc("outer plain")},
				Parts:    []models.PayloadNode{inner},
			},
		},
	}

	body, err := FromPayload(&root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// html preference still applies across the flattened candidate list
	if body.ContentType != "text/html" || body.Text != "nested html" {
		t.Errorf("got (%q, %q), want (text/html, nested html)", body.ContentType, body.Text)
	}
}

// TestFromPayload_DefaultMimeType verifies the text/plain default for nodes
// that omit their content type.
func TestFromPayload_DefaultMimeType(t *testing.T) {
	root := models.PayloadNode{
		Body: &models.PayloadBody{Data: enc("untyped")},
	}

	body, err := FromPayload(&root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body.ContentType != "text/plain" {
		t.Errorf("content type = %q, want text/plain default", body.ContentType)
	}
}

// TestFromPayload_MalformedBase64 verifies that a corrupt leaf fails the
// whole extraction instead of being silently replaced with empty text.
func TestFromPayload_MalformedBase64(t *testing.T) {
	root := models.PayloadNode{
		MimeType: "multipart/alternative",
		Parts: []models.PayloadNode{
			{MimeType: "text/plain", Body: &models.PayloadBody{Data: "!!! not base64 !!!"}},
		},
	}

	if _, err := FromPayload(&root); err == nil {
		t.Fatal("expected decode error, got nil")
	}
}

// TestFromPayload_Nil verifies a nil payload is treated as no body.
func TestFromPayload_Nil(t *testing.T) {
	body, err := FromPayload(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body != nil {
		t.Errorf("expected nil body, got %+v", body)
	}
}

// TestDecodeBody_RoundTrip verifies decode(encode(x)) == x for both padded
// and unpadded URL-safe encodings.
func TestDecodeBody_RoundTrip(t *testing.T) {
	const text = "round trip? /+= special bytes"

	for _, data := range []string{
		base64.RawURLEncoding.EncodeToString([]byte(text)),
		base64.URLEncoding.EncodeToString([]byte(text)),
	} {
		got, err := decodeBody(data)
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if got != text {
			t.Errorf("got %q, want %q", got, text)
		}
	}
}
