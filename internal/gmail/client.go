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

// Package gmail is a minimal Gmail REST API client covering the three calls
// the pipeline needs: label resolution, message listing, and full message
// fetch. The HTTP client is expected to carry OAuth2 credentials.
package gmail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/mailsheet/ingestion/internal/models"
)

// DefaultBaseURL is the production Gmail API endpoint.
const DefaultBaseURL = "https://gmail.googleapis.com/gmail/v1"

// ErrLabelNotFound is returned when no label matches the requested name.
var ErrLabelNotFound = errors.New("label not found")

// Client calls the Gmail API for the authenticated user ("me").
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a Gmail API client. httpClient must inject the OAuth2
// bearer token (see the auth package).
func NewClient(httpClient *http.Client, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{httpClient: httpClient, baseURL: baseURL}
}

// label is one entry of the labels list response.
type label struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type labelsResponse struct {
	Labels []label `json:"labels"`
}

// ResolveLabel looks up the label ID for a label name (e.g. "INBOX",
// "Follow Up"). Returns ErrLabelNotFound when the account has no label with
// that name.
func (c *Client) ResolveLabel(ctx context.Context, name string) (string, error) {
	var resp labelsResponse
	if err := c.getJSON(ctx, c.baseURL+"/users/me/labels", &resp); err != nil {
		return "", fmt.Errorf("list labels: %w", err)
	}
	if len(resp.Labels) == 0 {
		return "", fmt.Errorf("resolve label %q: %w", name, ErrLabelNotFound)
	}
	for _, l := range resp.Labels {
		if l.Name == name {
			slog.Debug("label resolved", "label", name, "label_id", l.ID)
			return l.ID, nil
		}
	}
	return "", fmt.Errorf("resolve label %q: %w", name, ErrLabelNotFound)
}

// messageStub is a minimal message from the list endpoint.
type messageStub struct {
	ID string `json:"id"`
}

type messagesResponse struct {
	Messages      []messageStub `json:"messages"`
	NextPageToken string        `json:"nextPageToken"`
}

// ListMessages returns up to max message IDs carrying the given label, in
// the API's listing order (newest first). Pages are followed until the cap
// is reached or the listing is exhausted, since the API may return fewer
// results per page than requested.
func (c *Client) ListMessages(ctx context.Context, labelID string, max int) ([]string, error) {
	if max <= 0 {
		return nil, nil
	}

	ids := make([]string, 0, max)
	pageToken := ""
	for {
		params := url.Values{}
		params.Set("labelIds", labelID)
		params.Set("maxResults", strconv.Itoa(max-len(ids)))
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		var resp messagesResponse
		if err := c.getJSON(ctx, fmt.Sprintf("%s/users/me/messages?%s", c.baseURL, params.Encode()), &resp); err != nil {
			return nil, fmt.Errorf("list messages: %w", err)
		}

		for _, m := range resp.Messages {
			ids = append(ids, m.ID)
			if len(ids) == max {
				return ids, nil
			}
		}
		if resp.NextPageToken == "" || len(resp.Messages) == 0 {
			return ids, nil
		}
		pageToken = resp.NextPageToken
	}
}

// FetchMessage retrieves the full message, including the recursive payload
// tree with base64 body data.
func (c *Client) FetchMessage(ctx context.Context, messageID string) (*models.Message, error) {
	var msg models.Message
	url := fmt.Sprintf("%s/users/me/messages/%s", c.baseURL, messageID)
	if err := c.getJSON(ctx, url, &msg); err != nil {
		return nil, fmt.Errorf("fetch message %s: %w", messageID, err)
	}
	return &msg, nil
}

// getJSON performs a GET and decodes the JSON response into out.
func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		slog.Error("gmail API error", "status", resp.StatusCode, "body", string(body))
		return fmt.Errorf("gmail API returned HTTP %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
