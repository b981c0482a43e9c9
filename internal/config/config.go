// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config provides configuration management for issue-downloader with
// support for multiple configuration sources and a well-defined precedence
// order.
//
// Configuration sources (in precedence order, highest to lowest):
//  1. Command-line flags
//  2. Environment variables
//  3. Configuration file (YAML or TOML)
//  4. Built-in defaults
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from multiple sources and applies them in
// the correct precedence order. If configPath is provided, it loads from
// that specific file. Otherwise, it searches standard locations:
//   - .issue-downloader.yaml (current directory)
//   - .issue-downloader.yml (current directory)
//   - .issue-downloader.toml (current directory)
//   - ~/.config/issue-downloader/config.yaml
//   - ~/.config/issue-downloader/config.toml
//
// Environment variables are applied after loading the config file. Path
// expansion (~ and environment variables) is performed on file and
// directory paths.
//
// Returns an error if the specified config file cannot be loaded, but will
// succeed with defaults if no config file is found in standard locations.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if err := loadConfigFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else {
		home := homeDir()
		defaultPaths := []string{
			".issue-downloader.yaml",
			".issue-downloader.yml",
			".issue-downloader.toml",
			filepath.Join(home, ".config", "issue-downloader", "config.yaml"),
			filepath.Join(home, ".config", "issue-downloader", "config.toml"),
		}

		for _, path := range defaultPaths {
			if _, err := os.Stat(path); err == nil {
				if err := loadConfigFile(path, cfg); err != nil {
					return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
				}
				break
			}
		}
	}

	applyEnvOverrides(cfg)

	cfg.Download.SaveDir = expandPath(cfg.Download.SaveDir)
	cfg.State.File = expandPath(cfg.State.File)
	cfg.Export.NDJSON = expandPath(cfg.Export.NDJSON)
	cfg.Export.SQLite = expandPath(cfg.Export.SQLite)

	return cfg, nil
}

// loadConfigFile reads and parses a config file, choosing the format by
// extension. Files without a .toml extension are parsed as YAML.
func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		return nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(cfg *Config) {
	if url := os.Getenv("GITHUB_API_URL"); url != "" {
		cfg.GitHub.URL = url
	}

	if dir := os.Getenv("ISSUE_DOWNLOADER_SAVE_DIR"); dir != "" {
		cfg.Download.SaveDir = dir
	}
	if pageSize := os.Getenv("ISSUE_DOWNLOADER_SEARCH_PAGE_SIZE"); pageSize != "" {
		if size, err := parsePositiveInt(pageSize); err == nil {
			cfg.Download.SearchPageSize = size
		}
	}
	if archived := os.Getenv("ISSUE_DOWNLOADER_INCLUDE_ARCHIVED"); archived != "" {
		cfg.Download.IncludeArchived = parseBool(archived)
	}
	if closed := os.Getenv("ISSUE_DOWNLOADER_INCLUDE_CLOSED"); closed != "" {
		cfg.Download.IncludeClosed = parseBool(closed)
	}

	if file := os.Getenv("ISSUE_DOWNLOADER_STATE_FILE"); file != "" {
		cfg.State.File = file
	}

	if bucket := os.Getenv("ISSUE_DOWNLOADER_S3_BUCKET"); bucket != "" {
		cfg.Export.S3.Bucket = bucket
	}
	if url := os.Getenv("ISSUE_DOWNLOADER_NATS_URL"); url != "" {
		cfg.Events.NATSURL = url
	}
}

func homeDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home = os.Getenv("USERPROFILE") // Windows
	}
	return home
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "~/") {
		path = filepath.Join(homeDir(), path[2:])
	}
	return os.ExpandEnv(path)
}

// ExpandPath expands ~ and environment variables in a path given on the
// command line.
func ExpandPath(path string) string {
	return expandPath(path)
}

// parsePositiveInt parses a string to a positive integer
func parsePositiveInt(s string) (int, error) {
	var i int
	_, err := fmt.Sscanf(s, "%d", &i)
	if err != nil {
		return 0, fmt.Errorf("failed to parse integer from '%s': %w", s, err)
	}
	if i <= 0 {
		return 0, fmt.Errorf("value must be positive, got: %d", i)
	}
	return i, nil
}

// parseBool parses various boolean representations
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "yes" || s == "1" || s == "on"
}

// NormalizeFormats upper-cases formats and drops duplicates. An empty list
// selects every format.
func NormalizeFormats(formats []string) ([]string, error) {
	if len(formats) == 0 {
		return []string{FormatMarkdown, FormatJSON}, nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, f := range formats {
		f = strings.ToUpper(strings.TrimSpace(f))
		if f == "MARKDOWN" {
			f = FormatMarkdown
		}
		if f != FormatMarkdown && f != FormatJSON {
			return nil, fmt.Errorf("unknown format %q, expected MD or JSON", f)
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out, nil
}

// Validate checks if the configuration contains valid values. It ensures
// page sizes are within GitHub's limits, the URL is not empty, and
// formats are known. This should be called after loading configuration
// to catch invalid settings early.
func (c *Config) Validate() error {
	if c.GitHub.URL == "" {
		return fmt.Errorf("GitHub API URL cannot be empty")
	}

	pageSizes := []struct {
		name string
		size int
	}{
		{"search page size", c.Download.SearchPageSize},
		{"nested page size", c.Download.NestedPageSize},
		{"nested overflow page size", c.Download.NestedOverflowPageSize},
	}
	for _, p := range pageSizes {
		if p.size <= 0 {
			return fmt.Errorf("%s must be positive, got: %d", p.name, p.size)
		}
		if p.size > 100 {
			return fmt.Errorf("%s %d exceeds GitHub API limit of 100", p.name, p.size)
		}
	}

	if c.Download.ResultCeiling <= 0 {
		return fmt.Errorf("result ceiling must be positive, got: %d", c.Download.ResultCeiling)
	}
	if _, err := NormalizeFormats(c.Download.Formats); err != nil {
		return err
	}
	return nil
}
