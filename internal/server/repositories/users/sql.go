// Package users stores registered accounts.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tumbsky/tumbsky/internal/common"
	"github.com/tumbsky/tumbsky/internal/dbx"
	"github.com/tumbsky/tumbsky/internal/server/models"
)

type SQLRepository struct {
	db dbx.DBTX
}

func NewSQLRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) Upsert(ctx context.Context, u *models.User) error {
	query :=
		`INSERT INTO users (did, handle, custom_css, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (did) DO UPDATE SET handle = excluded.handle, updated_at = excluded.updated_at`

	_, err := r.db.ExecContext(ctx, query,
		u.DID, u.Handle, u.CustomCSS, common.UnixMilli(u.CreatedAt), common.UnixMilli(u.UpdatedAt))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) Get(ctx context.Context, did string) (*models.User, error) {
	query :=
		`SELECT did, handle, custom_css, created_at, updated_at FROM users
		 WHERE did = $1`

	return scanOne(r.db.QueryRowContext(ctx, query, did))
}

func (r *SQLRepository) GetByHandle(ctx context.Context, handle string) (*models.User, error) {
	query :=
		`SELECT did, handle, custom_css, created_at, updated_at FROM users
		 WHERE handle = $1`

	return scanOne(r.db.QueryRowContext(ctx, query, handle))
}

// GetMany returns the users among dids that exist, in no particular order.
func (r *SQLRepository) GetMany(ctx context.Context, dids []string) ([]models.User, error) {
	if len(dids) == 0 {
		return nil, nil
	}

	in, args := dbx.InList(1, dids)
	query := `SELECT did, handle, custom_css, created_at, updated_at FROM users WHERE did IN (` + in + `)`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		var (
			u                models.User
			created, updated int64
		)
		if err := rows.Scan(&u.DID, &u.Handle, &u.CustomCSS, &created, &updated); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		u.CreatedAt = common.FromUnixMilli(created)
		u.UpdatedAt = common.FromUnixMilli(updated)
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *SQLRepository) Exists(ctx context.Context, did string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE did = $1`, did).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("db error: %w", err)
	}
	return true, nil
}

// UpdateHandle changes the handle of an existing user. Unknown DIDs are ignored.
func (r *SQLRepository) UpdateHandle(ctx context.Context, did, handle string, now time.Time) error {
	query := `UPDATE users SET handle = $2, updated_at = $3 WHERE did = $1`
	if _, err := r.db.ExecContext(ctx, query, did, handle, common.UnixMilli(now)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) SetCustomCSS(ctx context.Context, did, css string, now time.Time) error {
	query := `UPDATE users SET custom_css = $2, updated_at = $3 WHERE did = $1`
	res, err := r.db.ExecContext(ctx, query, did, css, common.UnixMilli(now))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func scanOne(row *sql.Row) (*models.User, error) {
	var (
		u                models.User
		created, updated int64
	)
	if err := row.Scan(&u.DID, &u.Handle, &u.CustomCSS, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	u.CreatedAt = common.FromUnixMilli(created)
	u.UpdatedAt = common.FromUnixMilli(updated)
	return &u, nil
}
