// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package weights

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// NewGCSStore returns a Store reading weights from a Google Cloud Storage
// bucket using application default credentials, or no credentials when
// cfg.Anonymous is set.
func NewGCSStore(ctx context.Context, cfg BackendConfig) (*ObjectStore, error) {
	var opts []option.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	if cfg.Anonymous {
		opts = append(opts, option.WithoutAuthentication())
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed creating GCS client: %w", err)
	}

	store := NewObjectStore(BackendGCS, cfg.ObjectName, gcsOpen(client.Bucket(cfg.Bucket)))
	store.close = client.Close
	return store, nil
}

func gcsOpen(bucket *storage.BucketHandle) OpenFunc {
	return func(ctx context.Context, key string) (io.ReadCloser, error) {
		r, err := bucket.Object(key).NewReader(ctx)
		if err != nil {
			if isGCSNotFound(err) {
				return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
			}
			return nil, err
		}
		return r, nil
	}
}

func isGCSNotFound(err error) bool {
	return errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist)
}
