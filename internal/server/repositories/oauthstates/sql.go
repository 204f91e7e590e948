// Package oauthstates stores in-flight login state rows.
package oauthstates

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

// Get returns the row as stored; expiry is the caller's concern.
func (r *SQLRepository) Get(ctx context.Context, key string) (*models.OAuthState, error) {
	var (
		s       models.OAuthState
		expires int64
	)
	err := r.db.QueryRowContext(ctx, `SELECT key, state, expires_at FROM oauth_state WHERE key = $1`, key).
		Scan(&s.Key, &s.State, &expires)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	s.ExpiresAt = common.FromUnixMilli(expires)
	return &s, nil
}

func (r *SQLRepository) Set(ctx context.Context, s *models.OAuthState) error {
	query :=
		`INSERT INTO oauth_state (key, state, expires_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET state = excluded.state, expires_at = excluded.expires_at`

	if _, err := r.db.ExecContext(ctx, query, s.Key, s.State, common.UnixMilli(s.ExpiresAt)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM oauth_state WHERE key = $1`, key); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM oauth_state`); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// DeleteExpired removes rows with expires_at <= now and reports how many went.
func (r *SQLRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM oauth_state WHERE expires_at <= $1`, common.UnixMilli(now))
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
