package users

import (
	"context"
	"time"

	"github.com/tumbsky/tumbsky/internal/server/models"
)

type Repository interface {
	// Upsert registers the user or refreshes its handle. Custom CSS is preserved.
	Upsert(ctx context.Context, user *models.User) error
	Get(ctx context.Context, did string) (*models.User, error)
	GetByHandle(ctx context.Context, handle string) (*models.User, error)
	GetMany(ctx context.Context, dids []string) ([]models.User, error)
	Exists(ctx context.Context, did string) (bool, error)
	UpdateHandle(ctx context.Context, did, handle string, now time.Time) error
	SetCustomCSS(ctx context.Context, did, css string, now time.Time) error
}
