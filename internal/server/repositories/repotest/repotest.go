// Package repotest opens a migrated, private in-memory SQLite database for
// tests that need real SQL semantics.
package repotest

import (
	"context"
	"database/sql"
	"testing"

	"github.com/pressly/goose/v3"

	"github.com/tumbsky/tumbsky/internal/dbx"
	"github.com/tumbsky/tumbsky/internal/server/repositories/repomanager"
)

func Open(t testing.TB) (*sql.DB, *repomanager.SQLRepositoryManager) {
	t.Helper()

	db, dialect, err := dbx.Open(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	goose.SetLogger(goose.NopLogger())
	m := repomanager.NewSQLRepositoryManager(dialect)
	if err := m.RunMigrations(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db, m
}
