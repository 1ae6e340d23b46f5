package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/i474232898/heat-stress-dashboard/internal/choropleth"
	"github.com/i474232898/heat-stress-dashboard/internal/metrics"
)

const redisPrefix = "choropleth:"

// OpenRedis returns nil when addr is empty.
func OpenRedis(addr, pass string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})
}

// RedisStore shares results between instances. Keys already carry the
// snapshot version, so the TTL only bounds memory.
type RedisStore struct {
	rc  *redis.Client
	ttl time.Duration
}

// NewRedisStore wraps rc. A non-positive ttl falls back to the default.
func NewRedisStore(rc *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &RedisStore{rc: rc, ttl: ttl}
}

// Lookup returns ErrNotFound on a miss and the redis error otherwise.
func (s *RedisStore) Lookup(ctx context.Context, key string) (choropleth.Result, error) {
	var r choropleth.Result
	b, err := s.rc.Get(ctx, redisPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return r, ErrNotFound
	}
	if err != nil {
		return r, err
	}
	if err := json.Unmarshal(b, &r); err != nil {
		return r, fmt.Errorf("decode %s: %w", key, err)
	}
	return r, nil
}

// Get treats redis failures as misses.
func (s *RedisStore) Get(ctx context.Context, key string) (choropleth.Result, bool) {
	r, err := s.Lookup(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logrus.Warnf("store: redis get %s: %v", key, err)
		}
		metrics.CacheMissesTotal.WithLabelValues("redis").Inc()
		return r, false
	}
	metrics.CacheHitsTotal.WithLabelValues("redis").Inc()
	return r, true
}

// Put stores r as JSON with the store TTL.
func (s *RedisStore) Put(ctx context.Context, key string, r choropleth.Result) {
	b, err := json.Marshal(r)
	if err != nil {
		logrus.Warnf("store: encode %s: %v", key, err)
		return
	}
	if err := s.rc.Set(ctx, redisPrefix+key, b, s.ttl).Err(); err != nil {
		logrus.Warnf("store: redis set %s: %v", key, err)
	}
}

// Purge deletes every key under the cache prefix.
func (s *RedisStore) Purge(ctx context.Context) {
	iter := s.rc.Scan(ctx, 0, redisPrefix+"*", 256).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		logrus.Warnf("store: redis scan: %v", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := s.rc.Del(ctx, keys...).Err(); err != nil {
		logrus.Warnf("store: redis purge: %v", err)
		return
	}
	logrus.Debugf("store: purged %d redis entries", len(keys))
}
