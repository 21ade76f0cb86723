// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package weights

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Supported storage backends.
const (
	BackendS3    = "s3"
	BackendGCS   = "gcs"
	BackendAzure = "azure"
)

// BackendConfig selects and configures the weights storage.
type BackendConfig struct {
	// Backend is one of s3, gcs or azure. Empty disables weights.
	Backend string

	// Bucket is the S3 or GCS bucket, or the Azure container.
	Bucket string

	// ObjectName is read below each feature type prefix.
	ObjectName string

	// Endpoint overrides the service endpoint. It is required for azure,
	// where it is the storage account URL.
	Endpoint string

	Region       string
	UsePathStyle bool

	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	// Anonymous skips credential discovery for gcs and azure.
	Anonymous bool

	// CacheTTL keeps fetched weights in memory. Zero disables caching.
	CacheTTL time.Duration

	Redis RedisConfig
}

// Enabled reports whether a backend is configured.
func (c BackendConfig) Enabled() bool {
	return c.Backend != ""
}

// Backend is a Store holding client connections that must be released.
type Backend interface {
	Store
	io.Closer
}

// NewStore builds the Store described by cfg: the storage backend, fronted
// by the shared Redis cache when configured and by an in-memory TTL cache.
func NewStore(ctx context.Context, cfg BackendConfig, logger hclog.Logger) (Backend, error) {
	var (
		store Backend
		err   error
	)
	switch cfg.Backend {
	case BackendS3:
		store, err = NewS3Store(ctx, cfg)
	case BackendGCS:
		store, err = NewGCSStore(ctx, cfg)
	case BackendAzure:
		store, err = NewAzureStore(cfg)
	default:
		return nil, fmt.Errorf("unknown weights backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Redis.Addr != "" {
		rs, err := NewRedisStore(ctx, store, cfg.Redis, logger)
		if err != nil {
			store.Close()
			return nil, err
		}
		store = rs
	}

	if cfg.CacheTTL > 0 {
		store = NewCachedStore(store, cfg.CacheTTL)
	}
	return store, nil
}
