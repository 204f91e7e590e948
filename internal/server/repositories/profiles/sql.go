// Package profiles stores the profile records of registered users.
package profiles

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

// Upsert replaces the whole profile row.
func (r *SQLRepository) Upsert(ctx context.Context, p *models.Profile) error {
	query :=
		`INSERT INTO profiles (did, display_name, avatar_cid, description, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (did) DO UPDATE SET
		   display_name = excluded.display_name,
		   avatar_cid = excluded.avatar_cid,
		   description = excluded.description,
		   updated_at = excluded.updated_at`

	_, err := r.db.ExecContext(ctx, query,
		p.DID, p.DisplayName, p.AvatarCID, p.Description, common.UnixMilli(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) Get(ctx context.Context, did string) (*models.Profile, error) {
	query :=
		`SELECT did, display_name, avatar_cid, description, updated_at FROM profiles
		 WHERE did = $1`

	var (
		p       models.Profile
		updated int64
	)
	err := r.db.QueryRowContext(ctx, query, did).Scan(&p.DID, &p.DisplayName, &p.AvatarCID, &p.Description, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	p.UpdatedAt = common.FromUnixMilli(updated)
	return &p, nil
}

func (r *SQLRepository) GetMany(ctx context.Context, dids []string) ([]models.Profile, error) {
	if len(dids) == 0 {
		return nil, nil
	}

	in, args := dbx.InList(1, dids)
	query := `SELECT did, display_name, avatar_cid, description, updated_at FROM profiles WHERE did IN (` + in + `)`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.Profile
	for rows.Next() {
		var (
			p       models.Profile
			updated int64
		)
		if err := rows.Scan(&p.DID, &p.DisplayName, &p.AvatarCID, &p.Description, &updated); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		p.UpdatedAt = common.FromUnixMilli(updated)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

// Delete is idempotent.
func (r *SQLRepository) Delete(ctx context.Context, did string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM profiles WHERE did = $1`, did); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
