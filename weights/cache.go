// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package weights

import (
	"context"
	"io"
	"time"

	"github.com/armon/go-metrics"
	gcache "github.com/patrickmn/go-cache"
)

// CachedStore keeps successfully fetched weights in memory for a fixed TTL.
// Failures are not cached so the next request tries again.
type CachedStore struct {
	store Store
	cache *gcache.Cache
}

func NewCachedStore(store Store, ttl time.Duration) *CachedStore {
	return &CachedStore{
		store: store,
		cache: gcache.New(ttl, 2*ttl),
	}
}

func (c *CachedStore) Fetch(ctx context.Context, featureType string) (Weights, error) {
	if v, ok := c.cache.Get(featureType); ok {
		metrics.IncrCounter([]string{"edge", "weights", "cache_hit"}, 1)
		return v.(Weights).Clone(), nil
	}
	metrics.IncrCounter([]string{"edge", "weights", "cache_miss"}, 1)

	w, err := c.store.Fetch(ctx, featureType)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(featureType, w.Clone())
	return w, nil
}

// Flush drops every cached entry.
func (c *CachedStore) Flush() {
	c.cache.Flush()
}

func (c *CachedStore) Close() error {
	if closer, ok := c.store.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
