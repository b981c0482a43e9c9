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

package output

import (
	"context"

	"github.com/vikahl/issue-downloader/internal/github"
)

// RecordWriter defines the interface for streaming issue records.
// This abstraction allows for different stream formats to be implemented
// without changing the download command.
type RecordWriter interface {
	// Write writes a single record to the output.
	// The record should be immediately flushed to avoid memory accumulation.
	Write(rec github.IssueRecord) error

	// Close closes the underlying writer and releases any resources.
	// This should be called when all writing is complete.
	Close() error
}

// Sink stores rendered files. Keys are slash-separated relative paths such
// as "owner/repo/42.md".
type Sink interface {
	Put(ctx context.Context, key string, data []byte) error
}
