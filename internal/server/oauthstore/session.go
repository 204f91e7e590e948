package oauthstore

import (
	"context"
	"time"

	"github.com/tumbsky/tumbsky/internal/cryptox"
	"github.com/tumbsky/tumbsky/internal/server/models"
	"github.com/tumbsky/tumbsky/internal/server/repositories/oauthsessions"
)

// SessionStore is the full contract of the session sub-store.
type SessionStore interface {
	Get(ctx context.Context, did string) ([]byte, error)
	Set(ctx context.Context, did string, value []byte) error
	Delete(ctx context.Context, did string) error
	Clear(ctx context.Context) error
}

// SQLSessionStore keeps one sealed row per account.
type SQLSessionStore struct {
	repo  oauthsessions.Repository
	codec codec
	now   func() time.Time
}

var _ SessionStore = (*SQLSessionStore)(nil)

func NewSQLSessionStore(repo oauthsessions.Repository, sealer *cryptox.Sealer) *SQLSessionStore {
	return &SQLSessionStore{repo: repo, codec: codec{sealer: sealer}, now: time.Now}
}

// Get returns common.ErrorNotFound when nothing is stored and
// common.ErrCorruptRecord when the row cannot be unsealed.
func (s *SQLSessionStore) Get(ctx context.Context, did string) ([]byte, error) {
	row, err := s.repo.Get(ctx, did)
	if err != nil {
		return nil, err
	}
	return s.codec.decode(row.Session)
}

// Set overwrites the account's row and stamps updated_at.
func (s *SQLSessionStore) Set(ctx context.Context, did string, value []byte) error {
	enc, err := s.codec.encode(value)
	if err != nil {
		return err
	}
	return s.repo.Set(ctx, &models.OAuthSession{DID: did, Session: enc, UpdatedAt: s.now()})
}

func (s *SQLSessionStore) Delete(ctx context.Context, did string) error {
	return s.repo.Delete(ctx, did)
}

func (s *SQLSessionStore) Clear(ctx context.Context) error {
	return s.repo.Clear(ctx)
}
