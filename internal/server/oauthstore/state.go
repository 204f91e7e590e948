package oauthstore

import (
	"context"
	"errors"
	"time"

	"github.com/tumbsky/tumbsky/internal/common"
	"github.com/tumbsky/tumbsky/internal/cryptox"
	"github.com/tumbsky/tumbsky/internal/server/models"
	"github.com/tumbsky/tumbsky/internal/server/repositories/oauthstates"
)

// StateStore is the full contract of the state sub-store.
type StateStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, expiresAt time.Time) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	PruneExpired(ctx context.Context, now time.Time) (int64, error)
}

type SQLStateStore struct {
	repo  oauthstates.Repository
	codec codec
	now   func() time.Time
}

var _ StateStore = (*SQLStateStore)(nil)

func NewSQLStateStore(repo oauthstates.Repository, sealer *cryptox.Sealer) *SQLStateStore {
	return &SQLStateStore{repo: repo, codec: codec{sealer: sealer}, now: time.Now}
}

// Get returns common.ErrorNotFound for missing rows and for rows whose expiry
// has passed; the latter are deleted on the way out.
func (s *SQLStateStore) Get(ctx context.Context, key string) ([]byte, error) {
	row, err := s.repo.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !row.ExpiresAt.After(s.now()) {
		if err := s.repo.Delete(ctx, key); err != nil {
			return nil, err
		}
		return nil, common.ErrorNotFound
	}

	v, err := s.codec.decode(row.State)
	if err != nil {
		if errors.Is(err, common.ErrCorruptRecord) {
			_ = s.repo.Delete(ctx, key)
			return nil, common.ErrorNotFound
		}
		return nil, err
	}
	return v, nil
}

func (s *SQLStateStore) Set(ctx context.Context, key string, value []byte, expiresAt time.Time) error {
	enc, err := s.codec.encode(value)
	if err != nil {
		return err
	}
	return s.repo.Set(ctx, &models.OAuthState{Key: key, State: enc, ExpiresAt: expiresAt})
}

func (s *SQLStateStore) Delete(ctx context.Context, key string) error {
	return s.repo.Delete(ctx, key)
}

func (s *SQLStateStore) Clear(ctx context.Context) error {
	return s.repo.Clear(ctx)
}

func (s *SQLStateStore) PruneExpired(ctx context.Context, now time.Time) (int64, error) {
	return s.repo.DeleteExpired(ctx, now)
}
