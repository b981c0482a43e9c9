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

// Package index keeps a queryable copy of downloaded issues in a SQL
// database. SQLiteStore writes to a local file and PostgresStore to a
// shared server; both replace the stored labels and comments of an issue
// every time it is upserted, so an index always mirrors the latest
// download.
package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/vikahl/issue-downloader/internal/github"
)

// Store indexes downloaded issues.
type Store interface {
	// Upsert inserts or replaces every issue, its labels, and its comments.
	Upsert(ctx context.Context, issues []github.IssueRecord) error
	Close() error
}

// execer is the interface satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTimePtr(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// reactionsJSON encodes reactions for a JSON column. No reactions is NULL.
func reactionsJSON(reactions []github.Reaction) []byte {
	if len(reactions) == 0 {
		return nil
	}
	data, err := json.Marshal(reactions)
	if err != nil {
		return nil
	}
	return data
}

func joinAssignees(assignees []string) string {
	return strings.Join(assignees, ",")
}
