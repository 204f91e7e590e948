// Package posts stores ingested feed posts and serves keyset-paginated reads.
package posts

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tumbsky/tumbsky/internal/common"
	"github.com/tumbsky/tumbsky/internal/dbx"
	"github.com/tumbsky/tumbsky/internal/server/models"
)

const columns = `uri, user_did, cid, rkey, record, text, has_images, has_embed, embed_data, created_at, indexed_at`

type SQLRepository struct {
	db dbx.DBTX
}

func NewSQLRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) Upsert(ctx context.Context, p *models.Post) error {
	query :=
		`INSERT INTO posts (` + columns + `)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (uri) DO UPDATE SET
		   user_did = excluded.user_did,
		   cid = excluded.cid,
		   rkey = excluded.rkey,
		   record = excluded.record,
		   text = excluded.text,
		   has_images = excluded.has_images,
		   has_embed = excluded.has_embed,
		   embed_data = excluded.embed_data,
		   created_at = excluded.created_at,
		   indexed_at = excluded.indexed_at`

	var embed any
	if len(p.EmbedData) > 0 {
		embed = string(p.EmbedData)
	}

	_, err := r.db.ExecContext(ctx, query,
		p.URI, p.UserDID, p.CID, p.RKey, string(p.Record), p.Text, p.HasImages, p.HasEmbed, embed,
		common.UnixMilli(p.CreatedAt), common.UnixMilli(p.IndexedAt))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) Get(ctx context.Context, uri string) (*models.Post, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+columns+` FROM posts WHERE uri = $1`, uri)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	out, err := scanAll(rows)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, common.ErrorNotFound
	}
	return &out[0], nil
}

func (r *SQLRepository) Delete(ctx context.Context, uri string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE uri = $1`, uri); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) DeleteByOwner(ctx context.Context, did string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE user_did = $1`, did)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

// Page runs the keyset query:
//
//	created_at < k.created_at OR (created_at = k.created_at AND uri < k.uri)
//	ORDER BY created_at DESC, uri DESC
func (r *SQLRepository) Page(ctx context.Context, q PageQuery) ([]models.Post, error) {
	if q.Limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", common.ErrInvalidInput)
	}

	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if q.Owner != "" {
		where = append(where, "user_did = "+arg(q.Owner))
	}
	if q.After != nil {
		ts := common.UnixMilli(q.After.CreatedAt)
		where = append(where, fmt.Sprintf("(created_at < %s OR (created_at = %s AND uri < %s))",
			arg(ts), arg(ts), arg(q.After.URI)))
	}

	var b strings.Builder
	b.WriteString(`SELECT ` + columns + ` FROM posts`)
	if len(where) > 0 {
		b.WriteString(` WHERE ` + strings.Join(where, " AND "))
	}
	b.WriteString(` ORDER BY created_at DESC, uri DESC LIMIT ` + arg(q.Limit))

	rows, err := r.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return scanAll(rows)
}

func scanAll(rows *sql.Rows) ([]models.Post, error) {
	defer rows.Close()

	var out []models.Post
	for rows.Next() {
		var (
			p                models.Post
			record           string
			embed            sql.NullString
			created, indexed int64
		)
		err := rows.Scan(&p.URI, &p.UserDID, &p.CID, &p.RKey, &record, &p.Text,
			&p.HasImages, &p.HasEmbed, &embed, &created, &indexed)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		p.Record = json.RawMessage(record)
		if embed.Valid && embed.String != "" {
			p.EmbedData = json.RawMessage(embed.String)
		}
		p.CreatedAt = common.FromUnixMilli(created)
		p.IndexedAt = common.FromUnixMilli(indexed)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
