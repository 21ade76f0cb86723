// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package weights

import (
	"context"
	"fmt"
	"io"
)

// OpenFunc opens the object stored under key. Implementations return an
// error wrapping ErrNotFound when the object does not exist.
type OpenFunc func(ctx context.Context, key string) (io.ReadCloser, error)

// ObjectStore is a Store backed by a bucket in an object storage service.
type ObjectStore struct {
	backend    string
	objectName string
	open       OpenFunc
	close      func() error
}

// NewObjectStore returns a Store reading {featureType}/{objectName} through
// open. backend names the service in errors.
func NewObjectStore(backend, objectName string, open OpenFunc) *ObjectStore {
	if objectName == "" {
		objectName = DefaultObjectName
	}
	return &ObjectStore{
		backend:    backend,
		objectName: objectName,
		open:       open,
	}
}

// Backend returns the name of the storage service.
func (s *ObjectStore) Backend() string {
	return s.backend
}

func (s *ObjectStore) Fetch(ctx context.Context, featureType string) (Weights, error) {
	key := ObjectKey(featureType, s.objectName)

	rc, err := s.open(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%s: failed reading %q: %w", s.backend, key, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxObjectSize))
	if err != nil {
		return nil, fmt.Errorf("%s: failed reading %q: %w", s.backend, key, err)
	}

	w, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %q: %w", s.backend, key, err)
	}
	return w, nil
}

// Close releases the client the store was created with.
func (s *ObjectStore) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}
