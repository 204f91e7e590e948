// Package services contains server-side business logic. This file implements
// UserService: registration at login, lookups for pages and custom CSS.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tumbsky/tumbsky/internal/common"
	"github.com/tumbsky/tumbsky/internal/server/css"
	"github.com/tumbsky/tumbsky/internal/server/models"
	"github.com/tumbsky/tumbsky/internal/server/oauth"
	"github.com/tumbsky/tumbsky/internal/server/pds"
	"github.com/tumbsky/tumbsky/internal/server/repositories/repomanager"
)

var ErrIdentityMismatch = errors.New("repo description is for another account")

type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	sanitizer   css.Sanitizer
	now         func() time.Time
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, sanitizer css.Sanitizer) *UserService {
	if sanitizer == nil {
		sanitizer = css.Rules{}
	}
	return &UserService{db: db, repomanager: m, sanitizer: sanitizer, now: time.Now}
}

// Register records the account behind a freshly authenticated session. The
// handle is looked up on the account's own server; custom CSS of a returning
// user is kept.
func (s *UserService) Register(ctx context.Context, sess oauth.Session) (*models.User, error) {
	desc, err := pds.NewClient(sess.ServiceURL(), sess.HTTPClient()).DescribeRepo(ctx, sess.DID())
	if err != nil {
		return nil, fmt.Errorf("describe repo: %w", err)
	}
	if desc.DID != "" && desc.DID != sess.DID() {
		return nil, ErrIdentityMismatch
	}
	handle := strings.ToLower(desc.Handle)
	if handle == "" {
		handle = common.InvalidHandle
	}

	now := s.now()
	repo := s.repomanager.Users(s.db)
	if err := repo.Upsert(ctx, &models.User{DID: sess.DID(), Handle: handle, CreatedAt: now, UpdatedAt: now}); err != nil {
		return nil, err
	}
	return repo.Get(ctx, sess.DID())
}

func (s *UserService) Get(ctx context.Context, did string) (*models.User, error) {
	return s.repomanager.Users(s.db).Get(ctx, did)
}

func (s *UserService) GetByHandle(ctx context.Context, handle string) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByHandle(ctx, strings.ToLower(handle))
}

// Profile returns the ingested profile of did, or nil when none was seen.
func (s *UserService) Profile(ctx context.Context, did string) (*models.Profile, error) {
	p, err := s.repomanager.Profiles(s.db).Get(ctx, did)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, nil
	}
	return p, err
}

// SetCSS sanitizes raw and stores it for did. An empty raw clears the
// stylesheet. The stored value is returned.
func (s *UserService) SetCSS(ctx context.Context, did, raw string) (string, error) {
	clean, err := s.sanitizer.Sanitize(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}
	if err := s.repomanager.Users(s.db).SetCustomCSS(ctx, did, clean, s.now()); err != nil {
		return "", err
	}
	return clean, nil
}
