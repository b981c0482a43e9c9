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

// Package config types define the configuration structures used throughout
// issue-downloader. These types represent settings that can be loaded from
// YAML or TOML configuration files, environment variables, or command-line
// flags.
package config

import "github.com/vikahl/issue-downloader/internal/state"

// Config represents the complete configuration for issue-downloader.
type Config struct {
	GitHub   GitHubConfig   `yaml:"github" toml:"github"`
	Download DownloadConfig `yaml:"download" toml:"download"`
	State    StateConfig    `yaml:"state" toml:"state"`
	Export   ExportConfig   `yaml:"export" toml:"export"`
	Events   EventsConfig   `yaml:"events" toml:"events"`
}

// GitHubConfig contains the API location and where to find the token. A
// custom URL points the tool at a GitHub Enterprise Server.
type GitHubConfig struct {
	URL      string `yaml:"url" toml:"url"`
	TokenEnv string `yaml:"token_env" toml:"token_env"`
}

// DownloadConfig controls which issues are downloaded, how they are saved
// and the page sizes used while paginating.
type DownloadConfig struct {
	SaveDir         string   `yaml:"save_dir" toml:"save_dir"`
	Formats         []string `yaml:"formats" toml:"formats"`
	IncludeArchived bool     `yaml:"include_archived" toml:"include_archived"`
	IncludeClosed   bool     `yaml:"include_closed" toml:"include_closed"`

	SearchPageSize         int `yaml:"search_page_size" toml:"search_page_size"`
	NestedPageSize         int `yaml:"nested_page_size" toml:"nested_page_size"`
	NestedOverflowPageSize int `yaml:"nested_overflow_page_size" toml:"nested_overflow_page_size"`
	ResultCeiling          int `yaml:"result_ceiling" toml:"result_ceiling"`
}

// StateConfig locates the resume state file.
type StateConfig struct {
	File string `yaml:"file" toml:"file"`
}

// ExportConfig enables optional copies of the downloaded issues.
type ExportConfig struct {
	NDJSON      string   `yaml:"ndjson" toml:"ndjson"`
	SQLite      string   `yaml:"sqlite" toml:"sqlite"`
	PostgresURL string   `yaml:"postgres_url" toml:"postgres_url"`
	S3          S3Config `yaml:"s3" toml:"s3"`
}

// S3Config describes an S3 compatible bucket the rendered files are
// mirrored to. An empty bucket disables the mirror.
type S3Config struct {
	Bucket   string `yaml:"bucket" toml:"bucket"`
	Prefix   string `yaml:"prefix" toml:"prefix"`
	Region   string `yaml:"region" toml:"region"`
	Endpoint string `yaml:"endpoint" toml:"endpoint"`
}

// EventsConfig enables publishing run events to NATS.
type EventsConfig struct {
	NATSURL       string `yaml:"nats_url" toml:"nats_url"`
	SubjectPrefix string `yaml:"subject_prefix" toml:"subject_prefix"`
}

// Output formats.
const (
	FormatMarkdown = "MD"
	FormatJSON     = "JSON"
)

// DefaultConfig returns a Config with sensible defaults suitable for most
// use cases. These defaults target public GitHub.com.
func DefaultConfig() *Config {
	return &Config{
		GitHub: GitHubConfig{
			URL:      "https://api.github.com/",
			TokenEnv: "GITHUB_TOKEN",
		},
		Download: DownloadConfig{
			SaveDir:                ".",
			Formats:                []string{FormatMarkdown, FormatJSON},
			IncludeArchived:        true,
			IncludeClosed:          true,
			SearchPageSize:         100,
			NestedPageSize:         10,
			NestedOverflowPageSize: 100,
			ResultCeiling:          1000,
		},
		State: StateConfig{
			File: state.DefaultStateFile(),
		},
		Events: EventsConfig{
			SubjectPrefix: "issue-downloader",
		},
	}
}
