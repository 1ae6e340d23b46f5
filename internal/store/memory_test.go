package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/heat-stress-dashboard/internal/choropleth"
)

func result(day int) choropleth.Result {
	return choropleth.Result{
		Version:    "v1",
		Variable:   "max_2t",
		Day:        day,
		Aggregates: map[string]choropleth.Aggregate{"Hubli": {Mean: 36.5, Count: 4, Min: 35, Max: 38}},
	}
}

func TestMemoryStoreLookup(t *testing.T) {
	s := NewMemoryStore(0)
	_, err := s.Lookup("v1:max_2t:0")
	assert.True(t, errors.Is(err, ErrNotFound))

	s.Save("v1:max_2t:0", result(0))
	r, err := s.Lookup("v1:max_2t:0")
	require.NoError(t, err)
	assert.Equal(t, result(0), r)
}

func TestMemoryStoreEvictsOldest(t *testing.T) {
	s := NewMemoryStore(2)
	s.Save("a", result(0))
	s.Save("b", result(1))
	s.Save("a", result(0))
	s.Save("c", result(2))

	assert.Equal(t, 2, s.Len())
	_, err := s.Lookup("a")
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = s.Lookup("c")
	assert.NoError(t, err)
}

func TestMemoryStorePurge(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(10)
	s.Put(ctx, "a", result(0))
	s.Purge(ctx)

	_, ok := s.Get(ctx, "a")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestTieredBackfillsFasterTier(t *testing.T) {
	ctx := context.Background()
	l1, l2 := NewMemoryStore(10), NewMemoryStore(10)
	l2.Save("k", result(3))

	cache := Tiered{l1, l2}
	r, ok := cache.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, 3, r.Day)

	r, err := l1.Lookup("k")
	require.NoError(t, err)
	assert.Equal(t, 3, r.Day)

	cache.Purge(ctx)
	assert.Equal(t, 0, l1.Len()+l2.Len())
}

func TestRedisStoreUnavailableIsMiss(t *testing.T) {
	assert.Nil(t, OpenRedis("", "", 0))

	rc := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	defer rc.Close()

	s := NewRedisStore(rc, 0)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, ok := s.Get(ctx, "v1:max_2t:0")
	assert.False(t, ok)
	s.Put(ctx, "v1:max_2t:0", result(0))
	s.Purge(ctx)
}
