// Package repomanager provides a concrete RepositoryManager over database/sql,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
	"github.com/tumbsky/tumbsky/internal/dbx"
	"github.com/tumbsky/tumbsky/internal/server/migrations"
	"github.com/tumbsky/tumbsky/internal/server/repositories/oauthsessions"
	"github.com/tumbsky/tumbsky/internal/server/repositories/oauthstates"
	"github.com/tumbsky/tumbsky/internal/server/repositories/posts"
	"github.com/tumbsky/tumbsky/internal/server/repositories/profiles"
	"github.com/tumbsky/tumbsky/internal/server/repositories/users"
)

// SQLRepositoryManager vends SQL repositories usable on Postgres and SQLite
// and exposes a schema migration hook for the configured goose dialect.
type SQLRepositoryManager struct {
	dialect string
}

// NewSQLRepositoryManager constructs a manager; dialect is one of the dbx.Dialect* values.
func NewSQLRepositoryManager(dialect string) *SQLRepositoryManager {
	return &SQLRepositoryManager{dialect: dialect}
}

func (m *SQLRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewSQLRepository(db)
}

func (m *SQLRepositoryManager) Profiles(db dbx.DBTX) profiles.Repository {
	return profiles.NewSQLRepository(db)
}

func (m *SQLRepositoryManager) Posts(db dbx.DBTX) posts.Repository {
	return posts.NewSQLRepository(db)
}

func (m *SQLRepositoryManager) OAuthStates(db dbx.DBTX) oauthstates.Repository {
	return oauthstates.NewSQLRepository(db)
}

func (m *SQLRepositoryManager) OAuthSessions(db dbx.DBTX) oauthsessions.Repository {
	return oauthsessions.NewSQLRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *SQLRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(m.dialect); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}
