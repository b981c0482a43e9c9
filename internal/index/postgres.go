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
	"embed"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/vikahl/issue-downloader/internal/github"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore indexes issues in a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

// OpenPostgres connects to the database at databaseURL and runs any
// pending migrations.
func OpenPostgres(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "ping database")
	}

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "run migrations")
	}

	return &PostgresStore{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return errors.Wrap(err, "create migration source")
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return errors.Wrap(err, "create migration db driver")
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return errors.Wrap(err, "create migrator")
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return errors.Wrap(err, "apply migrations")
	}
	return nil
}

// Upsert writes every issue in one transaction. Any failure rolls back the
// whole batch.
func (s *PostgresStore) Upsert(ctx context.Context, issues []github.IssueRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}

	for _, rec := range issues {
		if err := postgresUpsertIssue(ctx, tx, rec); err != nil {
			_ = tx.Rollback()
			return errors.Wrapf(err, "index issue %s", rec.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit transaction")
	}
	return nil
}

func postgresUpsertIssue(ctx context.Context, db execer, rec github.IssueRecord) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO issues (
			id, repository, number, title, body, author, state, state_reason, url,
			created_at, updated_at, closed_at, archived, assignees, reactions
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			repository = EXCLUDED.repository,
			number = EXCLUDED.number,
			title = EXCLUDED.title,
			body = EXCLUDED.body,
			author = EXCLUDED.author,
			state = EXCLUDED.state,
			state_reason = EXCLUDED.state_reason,
			url = EXCLUDED.url,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at,
			closed_at = EXCLUDED.closed_at,
			archived = EXCLUDED.archived,
			assignees = EXCLUDED.assignees,
			reactions = EXCLUDED.reactions`,
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
		return errors.Wrap(err, "upsert issue")
	}

	if _, err := db.ExecContext(ctx, `DELETE FROM labels WHERE issue_id = $1`, rec.ID); err != nil {
		return errors.Wrap(err, "delete labels")
	}
	for _, l := range rec.Labels {
		if _, err := db.ExecContext(ctx, `
			INSERT INTO labels (issue_id, name, description) VALUES ($1, $2, $3)
			ON CONFLICT (issue_id, name) DO UPDATE SET description = EXCLUDED.description`,
			rec.ID, l.Name, nullString(l.Description),
		); err != nil {
			return errors.Wrapf(err, "upsert label %s", l.Name)
		}
	}

	if _, err := db.ExecContext(ctx, `DELETE FROM comments WHERE issue_id = $1`, rec.ID); err != nil {
		return errors.Wrap(err, "delete comments")
	}
	for _, c := range rec.Comments {
		if _, err := db.ExecContext(ctx, `
			INSERT INTO comments (id, issue_id, author, body, created_at, reactions) VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET
				issue_id = EXCLUDED.issue_id,
				author = EXCLUDED.author,
				body = EXCLUDED.body,
				reactions = EXCLUDED.reactions`,
			c.ID, rec.ID, c.Author, c.Body, c.CreatedAt, reactionsJSON(c.Reactions),
		); err != nil {
			return errors.Wrapf(err, "upsert comment %s", c.ID)
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
