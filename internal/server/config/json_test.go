package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJSON(t *testing.T) {
	path := writeTempJSON(t, "", "", map[string]any{
		"http_addr":             "127.0.0.1:9000",
		"database_dsn":          "postgres://u:p@db/tumbsky",
		"cookie_secret":         "cookie",
		"session_key":           "seal",
		"log_level":             "debug",
		"oauth_public_url":      "https://tumbsky.example",
		"oauth_issuer":          "https://bsky.social",
		"oauth_auth_url":        "https://bsky.social/oauth/authorize",
		"oauth_token_url":       "https://bsky.social/oauth/token",
		"oauth_private_key_jwk": `{"kty":"EC"}`,
		"pds_url":               "https://pds.example",
		"redis_addr":            "redis:6379",
		"state_prune_interval":  "30s",
		"tap_url":               "http://tap:2480",
		"tap_admin_password":    "pw",
		"ingest_min_backoff":    "2s",
		"ingest_max_backoff":    float64(90 * time.Second),
		"page_size":             30,
		"sync_limit":            80,
		"login_rate_per_minute": 3,
	})

	cfg := &Config{}
	cfg.LoadDefaults()
	require.NoError(t, parseJSON(cfg, []string{"-c", path}, envMap(nil)))

	want := &Config{
		HTTPAddr:           "127.0.0.1:9000",
		DatabaseDSN:        "postgres://u:p@db/tumbsky",
		CookieSecret:       "cookie",
		SessionKey:         "seal",
		LogLevel:           "debug",
		PublicURL:          "https://tumbsky.example",
		OAuthIssuer:        "https://bsky.social",
		OAuthAuthURL:       "https://bsky.social/oauth/authorize",
		OAuthTokenURL:      "https://bsky.social/oauth/token",
		OAuthPrivateKeyJWK: `{"kty":"EC"}`,
		ServiceURL:         "https://pds.example",
		RedisAddr:          "redis:6379",
		StatePruneInterval: 30 * time.Second,
		TapURL:             "http://tap:2480",
		TapAdminPassword:   "pw",
		IngestMinBackoff:   2 * time.Second,
		IngestMaxBackoff:   90 * time.Second,
		PageSize:           30,
		SyncLimit:          80,
		LoginRatePerMinute: 3,
	}
	assert.Equal(t, want, cfg)
}

func Test_parseJSON_PartialKeepsDefaults(t *testing.T) {
	path := writeTempJSON(t, "", "", map[string]any{"tap_url": "http://tap:2480"})

	cfg := &Config{}
	cfg.LoadDefaults()
	require.NoError(t, parseJSON(cfg, []string{"-config=" + path}, envMap(nil)))

	assert.Equal(t, "http://tap:2480", cfg.TapURL)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 20, cfg.PageSize)
}

func Test_parseJSON_NoFile(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()
	require.NoError(t, parseJSON(cfg, nil, envMap(nil)))
	assert.Equal(t, ":8080", cfg.HTTPAddr)
}

func Test_parseJSON_Invalid(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o600))

	cfg := &Config{}
	assert.Error(t, parseJSON(cfg, []string{"-c", bad}, envMap(nil)))

	dur := writeTempJSON(t, dir, "dur.json", map[string]any{"ingest_min_backoff": "later"})
	assert.Error(t, parseJSON(cfg, []string{"-c", dur}, envMap(nil)))
}
