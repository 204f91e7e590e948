package oauthstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tumbsky/tumbsky/internal/common"
	"github.com/tumbsky/tumbsky/internal/server/models"
)

type fakeStateRepo struct {
	mu      sync.Mutex
	rows    map[string]models.OAuthState
	deletes []string
}

func newFakeStateRepo() *fakeStateRepo {
	return &fakeStateRepo{rows: map[string]models.OAuthState{}}
}

func (f *fakeStateRepo) Get(_ context.Context, key string) (*models.OAuthState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &r, nil
}

func (f *fakeStateRepo) Set(_ context.Context, s *models.OAuthState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[s.Key] = *s
	return nil
}

func (f *fakeStateRepo) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, key)
	delete(f.rows, key)
	return nil
}

func (f *fakeStateRepo) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = map[string]models.OAuthState{}
	return nil
}

func (f *fakeStateRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for k, r := range f.rows {
		if !r.ExpiresAt.After(now) {
			delete(f.rows, k)
			n++
		}
	}
	return n, nil
}

type fakeSessionRepo struct {
	mu   sync.Mutex
	rows map[string]models.OAuthSession
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{rows: map[string]models.OAuthSession{}}
}

func (f *fakeSessionRepo) Get(_ context.Context, did string) (*models.OAuthSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[did]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &r, nil
}

func (f *fakeSessionRepo) Set(_ context.Context, s *models.OAuthSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[s.DID] = *s
	return nil
}

func (f *fakeSessionRepo) Delete(_ context.Context, did string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, did)
	return nil
}

func (f *fakeSessionRepo) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = map[string]models.OAuthSession{}
	return nil
}

// fakeRedis understands just enough commands for RedisStateStore.
type fakeRedis struct {
	mu   sync.Mutex
	data map[string]string
	ttl  map[string]time.Duration
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, exp time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	f.ttl[key] = exp
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			n++
		}
		delete(f.data, k)
		delete(f.ttl, k)
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) Scan(_ context.Context, _ uint64, match string, _ int64) *redis.ScanCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := strings.TrimSuffix(match, "*")
	var keys []string
	for k := range f.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return redis.NewScanCmdResult(keys, 0, nil)
}
