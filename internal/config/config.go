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

// Package config loads configuration from config.yaml and environment variables.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scopes are the OAuth2 scopes the pipeline needs: read-only mail access and
// spreadsheet writes. Changing them invalidates provisioned tokens.
var Scopes = []string{
	"https://www.googleapis.com/auth/gmail.readonly",
	"https://www.googleapis.com/auth/spreadsheets",
}

// Config holds all configuration for the sync pipeline.
type Config struct {
	// OAuth2 client and token files
	CredentialsPath string
	TokenPath       string

	// API endpoints (overridable for tests)
	GmailBaseURL  string
	SheetsBaseURL string

	// Optional collaborators; empty = disabled
	RedisURL    string
	DatabaseURL string
}

// rawConfig mirrors the YAML structure for unmarshalling.
type rawConfig struct {
	Auth struct {
		CredentialsPath string `yaml:"credentials_path"`
		TokenPath       string `yaml:"token_path"`
	} `yaml:"auth"`
	API struct {
		GmailBaseURL  string `yaml:"gmail_base_url"`
		SheetsBaseURL string `yaml:"sheets_base_url"`
	} `yaml:"api"`
	Redis struct {
		URL string `yaml:"url"`
	} `yaml:"redis"`
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
}

// Load reads configuration from config.yaml (with env var expansion) and
// environment variables. A missing config file is fine; the tool runs on
// defaults plus environment alone.
func Load() (*Config, error) {
	configPath := envOrDefault("CONFIG_PATH", "config.yaml")

	var raw rawConfig
	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err):
		// No file: env and defaults only
	case err != nil:
		return nil, fmt.Errorf("read config file %s: %w", configPath, err)
	default:
		// Expand ${VAR} references in the YAML
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
			return nil, fmt.Errorf("parse config YAML: %w", err)
		}
	}

	cfg := &Config{
		CredentialsPath: firstNonEmpty(raw.Auth.CredentialsPath, envOrDefault("CREDENTIALS_PATH", "credentials.json")),
		TokenPath:       firstNonEmpty(raw.Auth.TokenPath, envOrDefault("TOKEN_PATH", "token.json")),
		GmailBaseURL:    firstNonEmpty(raw.API.GmailBaseURL, os.Getenv("GMAIL_BASE_URL")),
		SheetsBaseURL:   firstNonEmpty(raw.API.SheetsBaseURL, os.Getenv("SHEETS_BASE_URL")),
		RedisURL:        firstNonEmpty(raw.Redis.URL, os.Getenv("REDIS_URL")),
		DatabaseURL:     firstNonEmpty(raw.Database.URL, os.Getenv("DATABASE_URL")),
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
