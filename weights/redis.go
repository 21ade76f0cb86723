// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package weights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/armon/go-metrics"
	"github.com/hashicorp/go-hclog"
	"github.com/redis/go-redis/v9"

	"github.com/hashicorp/edge-rewriter/logging"
)

const (
	defaultRedisKeyPrefix = "edge-rewriter/weights/"
	defaultRedisTTL       = time.Minute
)

// RedisConfig configures the shared weights cache.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

// RedisStore shares fetched weights between edge instances through Redis.
// Redis errors are logged and the request falls through to the backing
// store.
type RedisStore struct {
	store  Store
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger hclog.Logger
}

// NewRedisStore connects to Redis and returns a Store in front of store.
func NewRedisStore(ctx context.Context, store Store, cfg RedisConfig, logger hclog.Logger) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = defaultRedisKeyPrefix
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultRedisTTL
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr, err)
	}

	return &RedisStore{
		store:  store,
		client: client,
		prefix: cfg.KeyPrefix,
		ttl:    cfg.TTL,
		logger: logger.Named(logging.Weights).Named("redis"),
	}, nil
}

func (r *RedisStore) Fetch(ctx context.Context, featureType string) (Weights, error) {
	key := r.prefix + featureType

	data, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		w, decodeErr := Decode(data)
		if decodeErr == nil {
			metrics.IncrCounter([]string{"edge", "weights", "redis_hit"}, 1)
			return w, nil
		}
		r.logger.Warn("discarding invalid cached weights", "key", key, "error", decodeErr)
	case errors.Is(err, redis.Nil):
	default:
		r.logger.Warn("failed reading cached weights", "key", key, "error", err)
	}

	w, err := r.store.Fetch(ctx, featureType)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(w)
	if err != nil {
		return w, nil
	}
	if err := r.client.Set(ctx, key, encoded, r.ttl).Err(); err != nil {
		r.logger.Warn("failed caching weights", "key", key, "error", err)
	}
	return w, nil
}

func (r *RedisStore) Close() error {
	err := r.client.Close()
	if closer, ok := r.store.(io.Closer); ok {
		if cerr := closer.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
