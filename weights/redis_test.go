// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package weights

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp/edge-rewriter/testutil"
)

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := &fakeS3{objects: map[string]string{
		"widget/weight.json": `{"1.0.0": 80, "2.0.0": 20}`,
	}}
	ctx := testutil.TestContext(t)

	store, err := NewRedisStore(ctx, NewS3StoreWithClient(client, "b", ""), RedisConfig{
		Addr: mr.Addr(),
		TTL:  30 * time.Second,
	}, testutil.Logger(t))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	w, err := store.Fetch(ctx, "widget")
	require.NoError(t, err)
	require.Equal(t, Weights{"1.0.0": 80, "2.0.0": 20}, w)
	require.Equal(t, 1, client.calls())

	cached, err := mr.Get("edge-rewriter/weights/widget")
	require.NoError(t, err)
	require.JSONEq(t, `{"1.0.0": 80, "2.0.0": 20}`, cached)
	require.Equal(t, 30*time.Second, mr.TTL("edge-rewriter/weights/widget"))

	w, err = store.Fetch(ctx, "widget")
	require.NoError(t, err)
	require.Equal(t, Weights{"1.0.0": 80, "2.0.0": 20}, w)
	require.Equal(t, 1, client.calls())

	mr.FastForward(time.Minute)
	_, err = store.Fetch(ctx, "widget")
	require.NoError(t, err)
	require.Equal(t, 2, client.calls())
}

func TestRedisStore_InvalidCacheEntry(t *testing.T) {
	mr := miniredis.RunT(t)
	require.NoError(t, mr.Set("edge/widget", "not json"))

	client := &fakeS3{objects: map[string]string{"widget/weight.json": `{"1.0.0": 1}`}}
	store, err := NewRedisStore(context.Background(), NewS3StoreWithClient(client, "b", ""), RedisConfig{
		Addr:      mr.Addr(),
		KeyPrefix: "edge/",
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	w, err := store.Fetch(context.Background(), "widget")
	require.NoError(t, err)
	require.Equal(t, Weights{"1.0.0": 1}, w)
	require.Equal(t, 1, client.calls())
}

func TestRedisStore_RedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := &fakeS3{objects: map[string]string{"widget/weight.json": `{"1.0.0": 1}`}}
	store, err := NewRedisStore(context.Background(), NewS3StoreWithClient(client, "b", ""), RedisConfig{Addr: mr.Addr()}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	mr.SetError("LOADING server is loading")
	w, err := store.Fetch(context.Background(), "widget")
	require.NoError(t, err)
	require.Equal(t, Weights{"1.0.0": 1}, w)
}

func TestRedisStore_Errors(t *testing.T) {
	_, err := NewRedisStore(context.Background(), nil, RedisConfig{}, nil)
	require.ErrorContains(t, err, "redis address is required")

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err = NewRedisStore(context.Background(), nil, RedisConfig{Addr: addr}, nil)
	require.ErrorContains(t, err, "failed to connect to Redis")
}

func TestRedisStore_MissingObjectNotCached(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := NewRedisStore(context.Background(), NewS3StoreWithClient(&fakeS3{}, "b", ""), RedisConfig{Addr: mr.Addr()}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	_, err = store.Fetch(context.Background(), "widget")
	require.ErrorIs(t, err, ErrNotFound)
	require.False(t, mr.Exists("edge-rewriter/weights/widget"))
}
