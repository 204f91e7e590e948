package posts

import (
	"context"
	"time"

	"github.com/tumbsky/tumbsky/internal/server/models"
)

// Key is a position in the (created_at DESC, uri DESC) order.
type Key struct {
	CreatedAt time.Time
	URI       string
}

// PageQuery selects up to Limit posts strictly after After, optionally
// restricted to one owner.
type PageQuery struct {
	Owner string
	After *Key
	Limit int
}

type Repository interface {
	// Upsert inserts the post or replaces every column of the existing row.
	Upsert(ctx context.Context, p *models.Post) error
	Get(ctx context.Context, uri string) (*models.Post, error)
	// Delete is idempotent: a missing row is not an error.
	Delete(ctx context.Context, uri string) error
	DeleteByOwner(ctx context.Context, did string) (int64, error)
	Page(ctx context.Context, q PageQuery) ([]models.Post, error)
}
