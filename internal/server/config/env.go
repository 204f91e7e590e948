package config

import (
	"fmt"
	"strconv"
	"time"
)

// parseEnv overlays variables that are set and non-empty.
func parseEnv(cfg *Config, lookup func(string) (string, bool)) error {
	get := func(name string) string {
		v, _ := lookup(name)
		return v
	}

	setString(&cfg.HTTPAddr, get("HTTP_ADDR"))
	setString(&cfg.DatabaseDSN, get("DATABASE_URL"))
	setString(&cfg.CookieSecret, get("COOKIE_SECRET"))
	setString(&cfg.SessionKey, get("SESSION_KEY"))
	setString(&cfg.LogLevel, get("LOG_LEVEL"))
	setString(&cfg.PublicURL, get("OAUTH_PUBLIC_URL"))
	setString(&cfg.OAuthIssuer, get("OAUTH_ISSUER"))
	setString(&cfg.OAuthAuthURL, get("OAUTH_AUTH_URL"))
	setString(&cfg.OAuthTokenURL, get("OAUTH_TOKEN_URL"))
	setString(&cfg.OAuthPrivateKeyJWK, get("OAUTH_PRIVATE_KEY_JWK"))
	setString(&cfg.ServiceURL, get("PDS_URL"))
	setString(&cfg.RedisAddr, get("REDIS_ADDR"))
	setString(&cfg.TapURL, get("TAP_URL"))
	setString(&cfg.TapAdminPassword, get("TAP_ADMIN_PASSWORD"))

	durations := []struct {
		name string
		dst  *time.Duration
	}{
		{"STATE_PRUNE_INTERVAL", &cfg.StatePruneInterval},
		{"INGEST_MIN_BACKOFF", &cfg.IngestMinBackoff},
		{"INGEST_MAX_BACKOFF", &cfg.IngestMaxBackoff},
	}
	for _, d := range durations {
		if v := get(d.name); v != "" {
			parsed, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("env %s: %w", d.name, err)
			}
			*d.dst = parsed
		}
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"PAGE_SIZE", &cfg.PageSize},
		{"SYNC_LIMIT", &cfg.SyncLimit},
		{"LOGIN_RATE_PER_MINUTE", &cfg.LoginRatePerMinute},
	}
	for _, n := range ints {
		if v := get(n.name); v != "" {
			parsed, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("env %s: %w", n.name, err)
			}
			*n.dst = parsed
		}
	}
	return nil
}
