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

// Package sheets is a minimal Google Sheets API client for the append-only
// row store. It reads the data range to re-derive existing row fingerprints
// and appends new rows, synthesizing the header when the sheet is empty.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/mailsheet/ingestion/internal/fingerprint"
	"github.com/mailsheet/ingestion/internal/models"
)

// DefaultBaseURL is the production Sheets API endpoint.
const DefaultBaseURL = "https://sheets.googleapis.com/v4"

// headerRow is written once, when the sheet has no rows yet.
var headerRow = []string{"Sent Date", "Name", "Address", "Email 1", "Email 2", "Content"}

// dataRange spans all six row columns: date, name, address, two emails,
// content.
const dataRange = "A:F"

// Client reads and appends rows on one sheet of one spreadsheet.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	spreadsheetID string
	sheet         string
}

// NewClient creates a Sheets API client. httpClient must inject the OAuth2
// bearer token (see the auth package).
func NewClient(httpClient *http.Client, baseURL, spreadsheetID, sheet string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient:    httpClient,
		baseURL:       baseURL,
		spreadsheetID: spreadsheetID,
		sheet:         sheet,
	}
}

// valuesResponse is the body of a values.get call.
type valuesResponse struct {
	Values [][]string `json:"values"`
}

// ReadRows returns every row in the data range, including the header row if
// one exists.
func (c *Client) ReadRows(ctx context.Context) ([][]string, error) {
	var resp valuesResponse
	if err := c.getValues(ctx, dataRange, &resp); err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return resp.Values, nil
}

// ExistingFingerprints reads the sheet and re-derives the fingerprint of
// every data row, using the same schema detection as freshly built rows.
// Row 1 is the header and is skipped. Rows written before the structured
// columns existed have only two cells (date, content); missing cells are
// treated as empty, which routes them to the unstructured key scheme.
func (c *Client) ExistingFingerprints(ctx context.Context, contentLimit int) (map[string]bool, error) {
	values, err := c.ReadRows(ctx)
	if err != nil {
		return nil, err
	}
	if len(values) <= 1 {
		return map[string]bool{}, nil
	}

	existing := make(map[string]bool, len(values)-1)
	for _, cells := range values[1:] {
		existing[fingerprint.FromRow(rowFromCells(cells), contentLimit)] = true
	}
	return existing, nil
}

// rowFromCells maps a read-back sheet row onto the Row schema. Two-cell rows
// predate the structured columns: their second cell is content, not name.
func rowFromCells(cells []string) models.Row {
	get := func(i int) string {
		if i < len(cells) {
			return cells[i]
		}
		return ""
	}
	if len(cells) <= 2 {
		return models.Row{SentDate: get(0), Content: get(1)}
	}
	return models.Row{
		SentDate: get(0),
		Name:     get(1),
		Address:  get(2),
		Email1:   get(3),
		Email2:   get(4),
		Content:  get(5),
	}
}

// appendRequest is the body of a values.append call.
type appendRequest struct {
	Values [][]string `json:"values"`
}

// AppendRows appends rows below the existing data. When the sheet has no
// header row yet, one is prepended. Content cells are canonicalized with the
// same trim+truncate used for fingerprinting. No-op for an empty batch.
func (c *Client) AppendRows(ctx context.Context, rows []models.Row, contentLimit int) error {
	if len(rows) == 0 {
		return nil
	}

	values := make([][]string, 0, len(rows)+1)
	if !c.hasHeader(ctx) {
		values = append(values, headerRow)
	}
	for _, row := range rows {
		values = append(values, []string{
			row.SentDate,
			row.Name,
			row.Address,
			row.Email1,
			row.Email2,
			fingerprint.CanonicalContent(row.Content, contentLimit),
		})
	}

	body, err := json.Marshal(appendRequest{Values: values})
	if err != nil {
		return fmt.Errorf("marshal append request: %w", err)
	}

	params := url.Values{}
	params.Set("valueInputOption", "USER_ENTERED")
	params.Set("insertDataOption", "INSERT_ROWS")
	appendURL := fmt.Sprintf("%s/spreadsheets/%s/values/%s:append?%s",
		c.baseURL, c.spreadsheetID, c.escapedRange(dataRange), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, appendURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build append request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("append rows: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		slog.Error("sheets append error", "status", resp.StatusCode, "body", string(respBody))
		return fmt.Errorf("sheets append returned HTTP %d", resp.StatusCode)
	}

	slog.Info("appended rows to sheet", "sheet", c.sheet, "rows", len(rows))
	return nil
}

// hasHeader reports whether the first row holds any values. A failed read
// counts as no header; worst case the header is written twice, which the
// fingerprint scheme tolerates.
func (c *Client) hasHeader(ctx context.Context) bool {
	var resp valuesResponse
	if err := c.getValues(ctx, "A1:F1", &resp); err != nil {
		return false
	}
	return len(resp.Values) > 0
}

// getValues performs a values.get for a cell range on the configured sheet.
func (c *Client) getValues(ctx context.Context, cellRange string, out *valuesResponse) error {
	getURL := fmt.Sprintf("%s/spreadsheets/%s/values/%s",
		c.baseURL, c.spreadsheetID, c.escapedRange(cellRange))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, getURL, nil)
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
		slog.Error("sheets API error", "status", resp.StatusCode, "body", string(body))
		return fmt.Errorf("sheets API returned HTTP %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// escapedRange qualifies a cell range with the quoted sheet name.
func (c *Client) escapedRange(cellRange string) string {
	return url.PathEscape(fmt.Sprintf("'%s'!%s", c.sheet, cellRange))
}
