// Package server wires the tumbsky components together and supervises them:
// the HTTP API, the Tap ingester and the OAuth state pruner.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/tumbsky/tumbsky/internal/cryptox"
	"github.com/tumbsky/tumbsky/internal/dbx"
	"github.com/tumbsky/tumbsky/internal/logging"
	"github.com/tumbsky/tumbsky/internal/server/auth"
	"github.com/tumbsky/tumbsky/internal/server/config"
	"github.com/tumbsky/tumbsky/internal/server/httpapi"
	"github.com/tumbsky/tumbsky/internal/server/ingest"
	"github.com/tumbsky/tumbsky/internal/server/oauth"
	"github.com/tumbsky/tumbsky/internal/server/oauthstore"
	"github.com/tumbsky/tumbsky/internal/server/repositories/repomanager"
	"github.com/tumbsky/tumbsky/internal/server/services"
	"github.com/tumbsky/tumbsky/internal/server/session"
	"github.com/tumbsky/tumbsky/internal/server/timeline"
)

// sealSalt separates the at-rest key from any other use of the same secret.
const sealSalt = "tumbsky/oauth-store/v1"

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	redis    *redis.Client
	http     *httpapi.Server
	ingester *ingest.Runner
	pruner   *oauthstore.Pruner
}

// Migrate applies pending schema migrations and returns. It needs only the
// database DSN.
func Migrate(ctx context.Context, c *config.Config) error {
	db, dialect, err := dbx.Open(c.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	defer db.Close()

	return repomanager.NewSQLRepositoryManager(dialect).RunMigrations(ctx, db)
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSON(os.Stdout, c.LogLevel)

	if err := c.ValidateForServing(); err != nil {
		return nil, err
	}

	db, dialect, err := dbx.Open(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app := &App{config: c, logger: logger, db: db}

	if err := app.build(ctx, dialect); err != nil {
		app.close()
		return nil, err
	}
	return app, nil
}

func (app *App) build(ctx context.Context, dialect string) error {
	c, logger, db := app.config, app.logger, app.db

	m := repomanager.NewSQLRepositoryManager(dialect)
	if err := m.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	sealer, err := cryptox.NewSealer([]byte(c.SealingSecret()), []byte(sealSalt))
	if err != nil {
		return fmt.Errorf("sealer: %w", err)
	}
	codec, err := auth.NewCodec(c.CookieSecret)
	if err != nil {
		return fmt.Errorf("cookie codec: %w", err)
	}
	cookies := auth.NewCookies(codec, strings.HasPrefix(c.PublicURL, "https://"))

	var states oauthstore.StateStore
	if c.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		states = oauthstore.NewRedisStateStore(app.redis, sealer)
	} else {
		sqlStates := oauthstore.NewSQLStateStore(m.OAuthStates(db), sealer)
		app.pruner = oauthstore.NewPruner(sqlStates, c.StatePruneInterval, logger)
		states = sqlStates
	}
	sessions := oauthstore.NewSQLSessionStore(m.OAuthSessions(db), sealer)

	var (
		client   oauth.Client
		metadata *oauth.Metadata
		jwks     *oauth.JWKS
	)
	if c.OAuthEnabled() {
		md, err := oauth.NewMetadata(c.PublicURL)
		if err != nil {
			return err
		}
		var key *oauth.ClientKey
		if c.OAuthPrivateKeyJWK != "" {
			if key, err = oauth.ParseClientKey(c.OAuthPrivateKeyJWK); err != nil {
				return fmt.Errorf("oauth private key: %w", err)
			}
			md = md.WithClientKey()
			set := key.JWKS()
			jwks = &set
		}
		metadata = &md
		client = oauth.NewPKCEClient(oauth.Options{
			Metadata:  md,
			ClientKey: key,
			Resolver:  oauth.StaticResolver{Server: oauth.AuthServer{
				Issuer:     c.OAuthIssuer,
				AuthURL:    c.OAuthAuthURL,
				TokenURL:   c.OAuthTokenURL,
				ServiceURL: c.ServiceURL,
			}},
			States:   states,
			Sessions: sessions,
			Logger:   logger,
		})
	} else {
		logger.Warn(ctx, "oauth disabled: public url must be https and auth endpoints set")
	}

	validator, err := ingest.NewValidator()
	if err != nil {
		return fmt.Errorf("record schemas: %w", err)
	}
	pipeline := ingest.NewPipeline(db, m, validator, logger)

	app.http = httpapi.NewServer(httpapi.Options{
		Address:    c.HTTPAddr,
		Logger:     logger,
		Users:      services.NewUserService(db, m, nil),
		Sync:       services.NewSyncService(pipeline, c.SyncLimit, logger),
		Timeline:   timeline.NewEngine(db, m, c.PageSize),
		Resolver:   session.NewResolver(cookies, client, logger),
		Cookies:    cookies,
		OAuth:      client,
		Metadata:   metadata,
		JWKS:       jwks,
		LoginRate:  c.LoginRatePerMinute,
		LoginBurst: c.LoginRatePerMinute,
	})

	if c.TapURL != "" {
		dialer := &ingest.TapDialer{URL: c.TapURL, AdminPassword: c.TapAdminPassword, Log: logger}
		app.ingester = ingest.NewRunner(dialer, pipeline, c.IngestMinBackoff, c.IngestMaxBackoff, logger)
	} else {
		logger.Warn(ctx, "ingestion disabled: no tap url configured")
	}
	return nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.http.Run(ctx); err != nil {
		app.logger.Error(ctx, "http server stopped", "error", err)
		cancelFunc()
	}
}

func (app *App) startIngester(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.ingester.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		app.logger.Error(ctx, "ingester stopped", "error", err)
		cancelFunc()
	}
}

// Run starts every configured component and blocks until a signal arrives,
// ctx is cancelled or one component fails.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	if app.ingester != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startIngester(ctx, cancelFunc)
		}()
	}

	if app.pruner != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.pruner.Run(ctx)
		}()
	}

	wg.Wait()
	app.close()
	app.logger.Info(context.Background(), "App stopped")
}

func (app *App) close() {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Warn(context.Background(), "close redis", "error", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Warn(context.Background(), "close database", "error", err)
	}
}
