package store

import (
	"context"
	"errors"
	"sync"

	"github.com/i474232898/heat-stress-dashboard/internal/choropleth"
	"github.com/i474232898/heat-stress-dashboard/internal/metrics"
)

var (
	// ErrNotFound is returned when no result is cached for a key.
	ErrNotFound = errors.New("no cached result for key")
)

// MemoryStore is a concurrency-safe, bounded in-memory result cache.
// When full, the oldest inserted entry is evicted.
type MemoryStore struct {
	mu sync.RWMutex

	data  map[string]choropleth.Result
	order []string

	// max number of entries; <= 0 means unlimited
	maxEntries int
}

// NewMemoryStore creates a new MemoryStore.
// If maxEntries is <= 0, it is treated as unlimited.
func NewMemoryStore(maxEntries int) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]choropleth.Result),
		maxEntries: maxEntries,
	}
}

// Lookup returns the cached result for key.
func (s *MemoryStore) Lookup(key string) (choropleth.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.data[key]
	if !ok {
		return choropleth.Result{}, ErrNotFound
	}
	return r, nil
}

// Save stores r under key and enforces the entry bound.
func (s *MemoryStore) Save(key string, r choropleth.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[key]; !ok {
		s.order = append(s.order, key)
	}
	s.data[key] = r

	if s.maxEntries > 0 && len(s.order) > s.maxEntries {
		over := len(s.order) - s.maxEntries
		for _, k := range s.order[:over] {
			delete(s.data, k)
		}
		s.order = append([]string(nil), s.order[over:]...)
	}
}

// Len is the number of cached entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Get implements choropleth.Cache and records hit/miss metrics.
func (s *MemoryStore) Get(_ context.Context, key string) (choropleth.Result, bool) {
	r, err := s.Lookup(key)
	if err != nil {
		metrics.CacheMissesTotal.WithLabelValues("memory").Inc()
		return r, false
	}
	metrics.CacheHitsTotal.WithLabelValues("memory").Inc()
	return r, true
}

// Put implements choropleth.Cache.
func (s *MemoryStore) Put(_ context.Context, key string, r choropleth.Result) { s.Save(key, r) }

// Purge drops every entry.
func (s *MemoryStore) Purge(context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]choropleth.Result)
	s.order = nil
}
