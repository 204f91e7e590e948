// Package config handles configuration for the server component: defaults,
// a JSON file overlay, environment variables and command-line flags, applied
// in that order.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/tumbsky/tumbsky/internal/common"
)

// Config holds runtime settings for the tumbsky server.
//
// CookieSecret signs session cookies; rotating it logs every user out.
// SessionKey seals stored OAuth tokens and falls back to CookieSecret.
// OAuth is enabled only when PublicURL is https and both endpoints are set.
// With OAuthPrivateKeyJWK the client authenticates with private_key_jwt.
// Ingestion runs only when TapURL is set.
type Config struct {
	HTTPAddr     string
	DatabaseDSN  string
	CookieSecret string
	SessionKey   string
	LogLevel     string

	PublicURL          string
	OAuthIssuer        string
	OAuthAuthURL       string
	OAuthTokenURL      string
	OAuthPrivateKeyJWK string
	ServiceURL         string

	RedisAddr          string
	StatePruneInterval time.Duration

	TapURL           string
	TapAdminPassword string
	IngestMinBackoff time.Duration
	IngestMaxBackoff time.Duration

	PageSize           int
	SyncLimit          int
	LoginRatePerMinute int
}

// LoadDefaults populates Config with development defaults. No secret has a
// default.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":8080"
	c.DatabaseDSN = "sqlite://tumbsky.db"
	c.LogLevel = "info"
	c.StatePruneInterval = 5 * time.Minute
	c.IngestMinBackoff = time.Second
	c.IngestMaxBackoff = time.Minute
	c.PageSize = 20
	c.SyncLimit = 50
	c.LoginRatePerMinute = 10
}

// LoadConfig builds a Config from defaults, the JSON file named by -c/-config
// or $TUMBSKY_CONFIG, the environment and finally the command line.
func LoadConfig() (*Config, error) {
	return load(os.Args[1:], os.LookupEnv)
}

func load(args []string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJSON(cfg, args, lookup); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg, lookup); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}

// OAuthEnabled reports whether logins can be served.
func (c *Config) OAuthEnabled() bool {
	return strings.HasPrefix(c.PublicURL, "https://") && c.OAuthAuthURL != "" && c.OAuthTokenURL != ""
}

// SealingSecret is the secret stored OAuth material is sealed with.
func (c *Config) SealingSecret() string {
	if c.SessionKey != "" {
		return c.SessionKey
	}
	return c.CookieSecret
}

// ValidateForServing fails with common.ErrNotConfigured when a setting the
// running server cannot do without is missing. Migration-only runs skip it.
func (c *Config) ValidateForServing() error {
	if c.CookieSecret == "" {
		return fmt.Errorf("%w: cookie secret is required", common.ErrNotConfigured)
	}
	if c.DatabaseDSN == "" {
		return fmt.Errorf("%w: database dsn is required", common.ErrNotConfigured)
	}
	if c.RedisAddr == "" && c.StatePruneInterval <= 0 {
		return fmt.Errorf("%w: state prune interval must be positive", common.ErrInvalidInput)
	}
	if c.IngestMaxBackoff < c.IngestMinBackoff {
		return fmt.Errorf("%w: ingest max backoff below min backoff", common.ErrInvalidInput)
	}
	return nil
}
