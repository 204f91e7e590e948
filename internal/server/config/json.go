package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tumbsky/tumbsky/internal/flagx"
	"github.com/tumbsky/tumbsky/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations accept
// "5m" style strings or integer nanoseconds. Absent or zero fields leave the
// current value alone.
type JsonConfig struct {
	HTTPAddr           string         `json:"http_addr"`
	DatabaseDSN        string         `json:"database_dsn"`
	CookieSecret       string         `json:"cookie_secret"`
	SessionKey         string         `json:"session_key"`
	LogLevel           string         `json:"log_level"`
	PublicURL          string         `json:"oauth_public_url"`
	OAuthIssuer        string         `json:"oauth_issuer"`
	OAuthAuthURL       string         `json:"oauth_auth_url"`
	OAuthTokenURL      string         `json:"oauth_token_url"`
	OAuthPrivateKeyJWK string         `json:"oauth_private_key_jwk"`
	ServiceURL         string         `json:"pds_url"`
	RedisAddr          string         `json:"redis_addr"`
	StatePruneInterval timex.Duration `json:"state_prune_interval"`
	TapURL             string         `json:"tap_url"`
	TapAdminPassword   string         `json:"tap_admin_password"`
	IngestMinBackoff   timex.Duration `json:"ingest_min_backoff"`
	IngestMaxBackoff   timex.Duration `json:"ingest_max_backoff"`
	PageSize           int            `json:"page_size"`
	SyncLimit          int            `json:"sync_limit"`
	LoginRatePerMinute int            `json:"login_rate_per_minute"`
}

// parseJSON overlays the file named by -c, -config or $TUMBSKY_CONFIG, if any.
func parseJSON(cfg *Config, args []string, lookup func(string) (string, bool)) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		path, _ = lookup(flagx.ConfigEnv)
	}
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&cfg.HTTPAddr, c.HTTPAddr)
	setString(&cfg.DatabaseDSN, c.DatabaseDSN)
	setString(&cfg.CookieSecret, c.CookieSecret)
	setString(&cfg.SessionKey, c.SessionKey)
	setString(&cfg.LogLevel, c.LogLevel)
	setString(&cfg.PublicURL, c.PublicURL)
	setString(&cfg.OAuthIssuer, c.OAuthIssuer)
	setString(&cfg.OAuthAuthURL, c.OAuthAuthURL)
	setString(&cfg.OAuthTokenURL, c.OAuthTokenURL)
	setString(&cfg.OAuthPrivateKeyJWK, c.OAuthPrivateKeyJWK)
	setString(&cfg.ServiceURL, c.ServiceURL)
	setString(&cfg.RedisAddr, c.RedisAddr)
	setString(&cfg.TapURL, c.TapURL)
	setString(&cfg.TapAdminPassword, c.TapAdminPassword)
	if c.StatePruneInterval.Duration > 0 {
		cfg.StatePruneInterval = c.StatePruneInterval.Duration
	}
	if c.IngestMinBackoff.Duration > 0 {
		cfg.IngestMinBackoff = c.IngestMinBackoff.Duration
	}
	if c.IngestMaxBackoff.Duration > 0 {
		cfg.IngestMaxBackoff = c.IngestMaxBackoff.Duration
	}
	if c.PageSize > 0 {
		cfg.PageSize = c.PageSize
	}
	if c.SyncLimit > 0 {
		cfg.SyncLimit = c.SyncLimit
	}
	if c.LoginRatePerMinute > 0 {
		cfg.LoginRatePerMinute = c.LoginRatePerMinute
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
