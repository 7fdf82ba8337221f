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

// Package auth builds an authorised HTTP client from installed-app OAuth2
// credentials. The token file must be provisioned out of band (the consent
// flow is interactive and has no place in a batch job); expired access
// tokens are refreshed automatically and the refreshed token is written
// back.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"golang.org/x/oauth2"
)

// credentialsFile mirrors the installed-app section of a Google Cloud
// OAuth client credentials download.
type credentialsFile struct {
	Installed struct {
		ClientID     string   `json:"client_id"`
		ClientSecret string   `json:"client_secret"`
		AuthURI      string   `json:"auth_uri"`
		TokenURI     string   `json:"token_uri"`
		RedirectURIs []string `json:"redirect_uris"`
	} `json:"installed"`
}

// NewHTTPClient returns an *http.Client that injects a bearer token for the
// given scopes, refreshing and persisting the token as needed.
func NewHTTPClient(ctx context.Context, credentialsPath, tokenPath string, scopes []string) (*http.Client, error) {
	conf, err := loadConfig(credentialsPath, scopes)
	if err != nil {
		return nil, err
	}

	tok, err := loadToken(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("load token %s (run the authorisation flow to provision it): %w", tokenPath, err)
	}

	src := &persistingSource{
		path: tokenPath,
		src:  conf.TokenSource(ctx, tok),
		last: tok,
	}
	return oauth2.NewClient(ctx, src), nil
}

func loadConfig(path string, scopes []string) (*oauth2.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read credentials file %s: %w", path, err)
	}
	var creds credentialsFile
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parse credentials file %s: %w", path, err)
	}
	if creds.Installed.ClientID == "" || creds.Installed.ClientSecret == "" {
		return nil, fmt.Errorf("credentials file %s has no installed-app client", path)
	}

	conf := &oauth2.Config{
		ClientID:     creds.Installed.ClientID,
		ClientSecret: creds.Installed.ClientSecret,
		Scopes:       scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  creds.Installed.AuthURI,
			TokenURL: creds.Installed.TokenURI,
		},
	}
	if len(creds.Installed.RedirectURIs) > 0 {
		conf.RedirectURL = creds.Installed.RedirectURIs[0]
	}
	return conf, nil
}

func loadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("parse token file: %w", err)
	}
	return &tok, nil
}

// persistingSource wraps a token source and writes the token file whenever a
// refresh produces a new access token.
type persistingSource struct {
	path string
	src  oauth2.TokenSource

	mu   sync.Mutex
	last *oauth2.Token
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.src.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil || tok.AccessToken != p.last.AccessToken {
		p.last = tok
		if err := saveToken(p.path, tok); err != nil {
			// Losing the refreshed token is recoverable (the old refresh
			// token still works), so warn instead of failing the request.
			slog.Warn("failed to persist refreshed token", "path", p.path, "error", err)
		} else {
			slog.Info("saved refreshed token", "path", p.path)
		}
	}
	return tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
