package profiles

import (
	"context"

	"github.com/tumbsky/tumbsky/internal/server/models"
)

type Repository interface {
	Upsert(ctx context.Context, p *models.Profile) error
	Get(ctx context.Context, did string) (*models.Profile, error)
	GetMany(ctx context.Context, dids []string) ([]models.Profile, error)
	Delete(ctx context.Context, did string) error
}
