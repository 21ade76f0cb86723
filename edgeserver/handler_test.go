// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package edgeserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp/edge-rewriter/config"
	"github.com/hashicorp/edge-rewriter/edge"
	"github.com/hashicorp/edge-rewriter/testutil"
	"github.com/hashicorp/edge-rewriter/weights"
)

type fakeBackend struct {
	weights weights.Weights
	closed  atomic.Int32
}

func (f *fakeBackend) Fetch(context.Context, string) (weights.Weights, error) {
	if f.weights == nil {
		return nil, weights.ErrNotFound
	}
	return f.weights.Clone(), nil
}

func (f *fakeBackend) Close() error {
	f.closed.Add(1)
	return nil
}

func storeFactory(b weights.Backend, err error) StoreFactory {
	return func(context.Context, weights.BackendConfig, hclog.Logger) (weights.Backend, error) {
		return b, err
	}
}

func buildConfig(t *testing.T, hcl string) *config.RuntimeConfig {
	t.Helper()
	c, err := config.Parse(hcl)
	require.NoError(t, err)
	rt, err := config.Build(c)
	require.NoError(t, err)
	return rt
}

func decodeRequest(t *testing.T, rec *httptest.ResponseRecorder) edge.Request {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var out edge.Request
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHandler_NoOrigin(t *testing.T) {
	h := NewHandler(context.Background(), config.Default(), nil, testutil.Logger(t))
	t.Cleanup(func() { h.Close() })

	cases := map[string]string{
		"/widget/2.0.0/test-sdk.js": "/widget/2.0.0/sdk/test-sdk.js",
		"/widget/style.css":         "/widget/style.css",
		"/widget/1.0.0/home":        "/widget/1.0.0/index.html",
		"/":                         "/widget/1.0.0/error.html",
	}
	for path, want := range cases {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest("GET", path+"?lang=ko", nil)
			req.Header.Set("Accept", "text/html")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			out := decodeRequest(t, rec)
			require.Equal(t, want, out.URI)
			require.Equal(t, "ok", out.Headers.Get("x-custom-header"))
			require.Equal(t, "text/html", out.Headers.Get("accept"))
			require.Equal(t, "lang=ko", out.QueryString)
			require.Equal(t, "GET", out.Method)
			require.Equal(t, "192.0.2.1", out.ClientIP)
			require.NotEmpty(t, rec.Header().Get(RequestIDHeader))
		})
	}
}

func TestHandler_Origin(t *testing.T) {
	var (
		mu      sync.Mutex
		gotPath string
		gotHdr  http.Header
	)
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotPath, gotHdr = r.URL.Path, r.Header.Clone()
		mu.Unlock()
		w.Write([]byte("from origin"))
	}))
	t.Cleanup(origin.Close)

	rt := config.Default()
	u, err := url.Parse(origin.URL)
	require.NoError(t, err)
	rt.Serve.Origin = u

	h := NewHandler(context.Background(), rt, nil, testutil.Logger(t))
	t.Cleanup(func() { h.Close() })

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/widget/test-sdk.js", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "from origin", rec.Body.String())

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, "/widget/1.0.0/sdk/test-sdk.js", gotPath)
	require.Equal(t, "ok", gotHdr.Get("X-Custom-Header"))
}

func TestHandler_OriginDown(t *testing.T) {
	origin := httptest.NewServer(http.NotFoundHandler())
	u, err := url.Parse(origin.URL)
	require.NoError(t, err)
	origin.Close()

	rt := config.Default()
	rt.Serve.Origin = u
	h := NewHandler(context.Background(), rt, nil, testutil.Logger(t))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/widget/1.0.0/home", nil))
	require.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHandler_Weighted(t *testing.T) {
	rt := buildConfig(t, `
weights {
  backend = "s3"
  bucket  = "edge-weights"
}
routing {
  weighted = true
}
`)
	backend := &fakeBackend{weights: weights.Weights{"2.0.0": 1}}
	h := NewHandler(context.Background(), rt, storeFactory(backend, nil), testutil.Logger(t))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/widget", nil))
	require.Equal(t, "/widget/2.0.0/index.html", decodeRequest(t, rec).URI)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/widget/1.0.0/home", nil))
	require.Equal(t, "/widget/1.0.0/index.html", decodeRequest(t, rec).URI)

	require.NoError(t, h.Close())
	require.Equal(t, int32(1), backend.closed.Load())
}

func TestHandler_MisconfiguredThenReload(t *testing.T) {
	rt := buildConfig(t, `
weights {
  backend = "s3"
  bucket  = "edge-weights"
}
`)
	h := NewHandler(context.Background(), rt, storeFactory(nil, errors.New("no credentials")), testutil.Logger(t))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/widget/1.0.0/home", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	require.NoError(t, h.ReloadConfig(context.Background(), config.Default()))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/widget/1.0.0/home", nil))
	require.Equal(t, "/widget/1.0.0/index.html", decodeRequest(t, rec).URI)
}

func TestHandler_ReloadSwapsState(t *testing.T) {
	rt := buildConfig(t, `
weights {
  backend = "gcs"
  bucket  = "edge-weights"
}
`)
	first := &fakeBackend{}
	h := NewHandler(context.Background(), rt, storeFactory(first, nil), testutil.Logger(t))
	h.drainDelay = 10 * time.Millisecond

	h.newStore = storeFactory(nil, errors.New("boom"))
	require.ErrorContains(t, h.ReloadConfig(context.Background(), rt), "boom")
	require.Equal(t, int32(0), first.closed.Load())

	require.NoError(t, h.ReloadConfig(context.Background(), buildConfig(t, `mode = "passthrough"`)))
	require.Eventually(t, func() bool {
		return first.closed.Load() == 1
	}, time.Second, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/widget/1.0.0/home", nil))
	out := decodeRequest(t, rec)
	require.Equal(t, "/widget/1.0.0/home", out.URI)
	require.Equal(t, "ok", out.Headers.Get("x-edge-demo"))
	require.NoError(t, h.Close())
}

func TestHandler_ReloadDrainsPreviousBackend(t *testing.T) {
	rt := buildConfig(t, `
weights {
  backend = "s3"
  bucket  = "edge-weights"
}
routing {
  weighted = true
}
`)
	first := &fakeBackend{weights: weights.Weights{"2.0.0": 1}}
	h := NewHandler(context.Background(), rt, storeFactory(first, nil), testutil.Logger(t))
	h.drainDelay = time.Hour

	// A request that loaded the state before the reload.
	inflight := h.getState()

	second := &fakeBackend{weights: weights.Weights{"3.0.0": 1}}
	h.newStore = storeFactory(second, nil)
	require.NoError(t, h.ReloadConfig(context.Background(), rt))

	require.Equal(t, int32(0), first.closed.Load())
	req := inflight.deps.Handler.HandleRequest(context.Background(), &edge.Request{URI: "/widget"})
	require.Equal(t, "/widget/2.0.0/index.html", req.URI)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/widget", nil))
	require.Equal(t, "/widget/3.0.0/index.html", decodeRequest(t, rec).URI)

	require.NoError(t, h.Close())
	require.Equal(t, int32(1), first.closed.Load())
	require.Equal(t, int32(1), second.closed.Load())

	// Close is not repeated for a backend that already drained.
	require.NoError(t, h.Close())
	require.Equal(t, int32(1), first.closed.Load())
}
