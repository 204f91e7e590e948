package oauthstates

import (
	"context"
	"time"

	"github.com/tumbsky/tumbsky/internal/server/models"
)

type Repository interface {
	Get(ctx context.Context, key string) (*models.OAuthState, error)
	Set(ctx context.Context, s *models.OAuthState) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
