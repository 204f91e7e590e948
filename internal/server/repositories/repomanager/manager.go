package repomanager

import (
	"context"
	"database/sql"

	"github.com/tumbsky/tumbsky/internal/dbx"
	"github.com/tumbsky/tumbsky/internal/server/repositories/oauthsessions"
	"github.com/tumbsky/tumbsky/internal/server/repositories/oauthstates"
	"github.com/tumbsky/tumbsky/internal/server/repositories/posts"
	"github.com/tumbsky/tumbsky/internal/server/repositories/profiles"
	"github.com/tumbsky/tumbsky/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Profiles(db dbx.DBTX) profiles.Repository
	Posts(db dbx.DBTX) posts.Repository
	OAuthStates(db dbx.DBTX) oauthstates.Repository
	OAuthSessions(db dbx.DBTX) oauthsessions.Repository
}
