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

// Package main implements the issue-downloader command-line interface.
// It downloads GitHub issues or pull requests with their labels and
// comments and saves every one of them as a Markdown and/or JSON file in
// <save-dir>/<owner>/<repo>/<number>.<ext>.
//
// The CLI supports:
//   - Downloading all issues of an organization or of selected repositories
//   - Incremental runs with --date or --resume
//   - Optional exports to NDJSON, SQLite, PostgreSQL and S3
//   - Optional run events published to NATS
//
// Usage:
//
//	issue-downloader github (--org <org> | --repo <owner>/<repo>...) [flags]
//
// Example:
//
//	export GITHUB_TOKEN=your_token
//	issue-downloader github --repo golang/go --save-dir issues --resume
//
// Exit codes:
//   - 0: Success
//   - 1: General error
//   - 2: Authentication, rate limit or not found error
//   - 3: Network error
package main
