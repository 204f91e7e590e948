package oauthsessions

import (
	"context"

	"github.com/tumbsky/tumbsky/internal/server/models"
)

type Repository interface {
	Get(ctx context.Context, did string) (*models.OAuthSession, error)
	// Set overwrites the single row for s.DID.
	Set(ctx context.Context, s *models.OAuthSession) error
	Delete(ctx context.Context, did string) error
	Clear(ctx context.Context) error
}
