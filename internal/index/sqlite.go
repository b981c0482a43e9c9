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

package index

import (
	"context"
	"database/sql"

	_ "github.com/mattn/go-sqlite3" // register sqlite3 sql driver
	"github.com/pkg/errors"

	"github.com/vikahl/issue-downloader/internal/github"
)

var sqliteSchema = []string{
	`
CREATE TABLE IF NOT EXISTS issues (
	id TEXT PRIMARY KEY,
	repository TEXT NOT NULL,
	number INT NOT NULL,
	title TEXT NOT NULL,
	body TEXT NOT NULL,
	author TEXT NOT NULL,
	state TEXT NOT NULL,
	state_reason TEXT,
	url TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	closed_at DATETIME,
	archived BOOLEAN NOT NULL DEFAULT 0,
	assignees TEXT NOT NULL DEFAULT '',
	reactions TEXT
)`,
	`CREATE INDEX IF NOT EXISTS issues_updated_at ON issues (updated_at)`,
	`CREATE INDEX IF NOT EXISTS issues_by_number ON issues (repository, number)`,
	`
CREATE TABLE IF NOT EXISTS labels (
	issue_id TEXT NOT NULL,
	name TEXT NOT NULL,
	description TEXT,
	PRIMARY KEY (issue_id, name)
)`,
	`
CREATE TABLE IF NOT EXISTS comments (
	id TEXT PRIMARY KEY,
	issue_id TEXT NOT NULL,
	author TEXT NOT NULL,
	body TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	reactions TEXT
)`,
	`CREATE INDEX IF NOT EXISTS comments_by_issue ON comments (issue_id)`,
}

// SQLiteStore indexes issues in a local SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the database at path and ensures
// its schema exists.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open sqlite database %s", path)
	}

	for _, stmt := range sqliteSchema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, errors.Wrap(err, "create sqlite schema")
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Upsert replaces every issue in a single transaction.
func (s *SQLiteStore) Upsert(ctx context.Context, issues []github.IssueRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}

	for _, rec := range issues {
		if err := sqliteUpsertIssue(ctx, tx, rec); err != nil {
			_ = tx.Rollback()
			return errors.Wrapf(err, "index issue %s", rec.ID)
		}
	}

	return errors.Wrap(tx.Commit(), "commit transaction")
}

func sqliteUpsertIssue(ctx context.Context, db execer, rec github.IssueRecord) error {
	_, err := db.ExecContext(ctx, `
		INSERT OR REPLACE INTO issues (
			id, repository, number, title, body, author, state, state_reason, url,
			created_at, updated_at, closed_at, archived, assignees, reactions
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.Repository.NameWithOwner,
		rec.Number,
		rec.Title,
		rec.Body,
		rec.Author,
		rec.State,
		nullString(rec.StateReason),
		rec.URL,
		rec.CreatedAt,
		rec.UpdatedAt,
		nullTimePtr(rec.ClosedAt),
		rec.Repository.IsArchived,
		joinAssignees(rec.Assignees),
		reactionsJSON(rec.Reactions),
	)
	if err != nil {
		return errors.Wrap(err, "insert issue")
	}

	if _, err := db.ExecContext(ctx, `DELETE FROM labels WHERE issue_id = ?`, rec.ID); err != nil {
		return errors.Wrap(err, "delete labels")
	}
	for _, l := range rec.Labels {
		if _, err := db.ExecContext(ctx,
			`INSERT OR REPLACE INTO labels (issue_id, name, description) VALUES (?, ?, ?)`,
			rec.ID, l.Name, nullString(l.Description),
		); err != nil {
			return errors.Wrapf(err, "insert label %s", l.Name)
		}
	}

	if _, err := db.ExecContext(ctx, `DELETE FROM comments WHERE issue_id = ?`, rec.ID); err != nil {
		return errors.Wrap(err, "delete comments")
	}
	for _, c := range rec.Comments {
		if _, err := db.ExecContext(ctx,
			`INSERT OR REPLACE INTO comments (id, issue_id, author, body, created_at, reactions) VALUES (?, ?, ?, ?, ?, ?)`,
			c.ID, rec.ID, c.Author, c.Body, c.CreatedAt, reactionsJSON(c.Reactions),
		); err != nil {
			return errors.Wrapf(err, "insert comment %s", c.ID)
		}
	}
	return nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
