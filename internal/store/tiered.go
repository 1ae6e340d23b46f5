package store

import (
	"context"

	"github.com/i474232898/heat-stress-dashboard/internal/choropleth"
)

// Tiered consults caches in order and back-fills faster tiers on a hit
// in a slower one.
type Tiered []choropleth.Cache

// Get returns the first hit and backfills the faster tiers.
func (t Tiered) Get(ctx context.Context, key string) (choropleth.Result, bool) {
	for i, c := range t {
		if r, ok := c.Get(ctx, key); ok {
			for _, faster := range t[:i] {
				faster.Put(ctx, key, r)
			}
			return r, true
		}
	}
	return choropleth.Result{}, false
}

// Put writes r to every tier.
func (t Tiered) Put(ctx context.Context, key string, r choropleth.Result) {
	for _, c := range t {
		c.Put(ctx, key, r)
	}
}

// Purge empties every tier.
func (t Tiered) Purge(ctx context.Context) {
	for _, c := range t {
		c.Purge(ctx)
	}
}
