// Package oauthsessions stores one sealed OAuth session per account.
package oauthsessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

func (r *SQLRepository) Get(ctx context.Context, did string) (*models.OAuthSession, error) {
	var (
		s       models.OAuthSession
		updated int64
	)
	err := r.db.QueryRowContext(ctx, `SELECT did, session, updated_at FROM oauth_session WHERE did = $1`, did).
		Scan(&s.DID, &s.Session, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	s.UpdatedAt = common.FromUnixMilli(updated)
	return &s, nil
}

func (r *SQLRepository) Set(ctx context.Context, s *models.OAuthSession) error {
	query :=
		`INSERT INTO oauth_session (did, session, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (did) DO UPDATE SET session = excluded.session, updated_at = excluded.updated_at`

	if _, err := r.db.ExecContext(ctx, query, s.DID, s.Session, common.UnixMilli(s.UpdatedAt)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) Delete(ctx context.Context, did string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM oauth_session WHERE did = $1`, did); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM oauth_session`); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
