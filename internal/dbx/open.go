package dbx

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect names as understood by goose.
const (
	DialectPostgres = "pgx"
	DialectSQLite   = "sqlite3"
)

var ErrUnsupportedDSN = errors.New("unsupported database dsn")

// ParseDSN picks the driver for dsn and returns the driver name, the
// connection string to hand it and the goose dialect.
//
//	postgres://... | postgresql://...  -> pgx
//	sqlite://path | file:path | :memory: -> sqlite
func ParseDSN(dsn string) (driver, conn, dialect string, err error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return "pgx", dsn, DialectPostgres, nil
	case strings.HasPrefix(dsn, "sqlite://"):
		return "sqlite", strings.TrimPrefix(dsn, "sqlite://"), DialectSQLite, nil
	case strings.HasPrefix(dsn, "file:"), dsn == ":memory:":
		return "sqlite", dsn, DialectSQLite, nil
	default:
		return "", "", "", fmt.Errorf("%w: %q", ErrUnsupportedDSN, redact(dsn))
	}
}

// Open opens and pings the database named by dsn.
func Open(dsn string) (*sql.DB, string, error) {
	driver, conn, dialect, err := ParseDSN(dsn)
	if err != nil {
		return nil, "", err
	}

	db, err := sql.Open(driver, conn)
	if err != nil {
		return nil, "", err
	}

	if driver == "sqlite" {
		// a single writer avoids SQLITE_BUSY between the ingester and request handlers
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, "", err
	}
	return db, dialect, nil
}

func redact(dsn string) string {
	if i := strings.Index(dsn, "@"); i >= 0 {
		if j := strings.Index(dsn, "://"); j >= 0 && j < i {
			return dsn[:j+3] + "***" + dsn[i:]
		}
	}
	return dsn
}
