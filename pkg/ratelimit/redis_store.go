package ratelimit

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps per-key windows in a Redis sorted set scored by
// timestamp, letting multiple server instances share one counter.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a Redis-backed store. Keys are namespaced with
// prefix to avoid clashing with other users of the same database.
func NewRedisStore(client redis.UniversalClient, prefix string) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("ratelimit: redis client is required")
	}
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisStore{client: client, prefix: prefix}, nil
}

// RecordIfAllowed implements Store. The check and record run in one
// script so concurrent instances cannot both pass a full window.
func (s *RedisStore) RecordIfAllowed(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (bool, int64, error) {
	res, err := recordScript.Run(ctx, s.client, []string{s.key(key)},
		now.Add(-window).UnixNano(),
		now.UnixNano(),
		limit,
		uuid.NewString(),
		int64(window/time.Millisecond),
	).Int64Slice()
	if err != nil {
		return false, 0, err
	}
	if len(res) != 2 {
		return false, 0, errors.New("ratelimit: unexpected script reply")
	}
	return res[0] == 1, res[1], nil
}

// Count implements Store.
func (s *RedisStore) Count(ctx context.Context, key string, window time.Duration) (int64, error) {
	cutoff := strconv.FormatInt(time.Now().Add(-window).UnixNano(), 10)

	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, s.key(key), "0", cutoff)
	card := pipe.ZCard(ctx, s.key(key))
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return card.Val(), nil
}

// Reset implements Store.
func (s *RedisStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

func (s *RedisStore) key(key string) string {
	return s.prefix + ":" + key
}

// recordScript prunes expired timestamps, checks the limit and records the
// new timestamp atomically. Reply: {allowed, count}.
var recordScript = redis.NewScript(`
local cutoff = ARGV[1]
local now = ARGV[2]
local limit = tonumber(ARGV[3])
local member = ARGV[4]
local ttl = tonumber(ARGV[5])

redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', cutoff)
local count = redis.call('ZCARD', KEYS[1])
if count >= limit then
    return {0, count}
end
redis.call('ZADD', KEYS[1], now, member)
redis.call('PEXPIRE', KEYS[1], ttl)
return {1, count + 1}
`)

var _ Store = (*RedisStore)(nil)
