package oauthstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tumbsky/tumbsky/internal/common"
	"github.com/tumbsky/tumbsky/internal/cryptox"
)

const redisStatePrefix = "oauth_state:"

// RedisClient is the part of *redis.Client the state store uses.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
}

// RedisStateStore keeps login state in Redis. Keys carry a TTL matching the
// state expiry, and Get still checks the stored expiry itself.
type RedisStateStore struct {
	client RedisClient
	prefix string
	codec  codec
	now    func() time.Time
}

var _ StateStore = (*RedisStateStore)(nil)

func NewRedisStateStore(client RedisClient, sealer *cryptox.Sealer) *RedisStateStore {
	return &RedisStateStore{client: client, prefix: redisStatePrefix, codec: codec{sealer: sealer}, now: time.Now}
}

// redisState is sealed as a whole, so the stored expiry cannot be edited.
type redisState struct {
	Value     []byte `json:"v"`
	ExpiresAt int64  `json:"exp"`
}

func (r *RedisStateStore) key(k string) string {
	return r.prefix + k
}

func (r *RedisStateStore) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}

	var st redisState
	if err := r.codec.decodeJSON(raw, &st); err != nil {
		_ = r.client.Del(ctx, r.key(key)).Err()
		return nil, common.ErrorNotFound
	}
	if st.ExpiresAt <= common.UnixMilli(r.now()) {
		if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
			return nil, fmt.Errorf("redis error: %w", err)
		}
		return nil, common.ErrorNotFound
	}
	return st.Value, nil
}

func (r *RedisStateStore) Set(ctx context.Context, key string, value []byte, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return fmt.Errorf("%w: state expiry must be in the future", common.ErrInvalidInput)
	}

	data, err := r.codec.encodeJSON(redisState{Value: value, ExpiresAt: common.UnixMilli(expiresAt)})
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

func (r *RedisStateStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

// Clear removes every key under the state prefix.
func (r *RedisStateStore) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.prefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("redis error: %w", err)
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis error: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// PruneExpired is a no-op: Redis expires keys on its own.
func (r *RedisStateStore) PruneExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}
