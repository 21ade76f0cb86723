// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package edgeserver runs the edge handler in front of an origin over plain
// HTTP, for local development and for deployments without CloudFront.
package edgeserver

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httputil"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-uuid"

	"github.com/hashicorp/edge-rewriter/config"
	"github.com/hashicorp/edge-rewriter/edge"
	"github.com/hashicorp/edge-rewriter/logging"
)

// RequestIDHeader carries the ID every response is tagged with.
const RequestIDHeader = "X-Edge-Request-Id"

// DefaultDrainDelay is how long a weights backend replaced by ReloadConfig
// stays open for requests that loaded the previous state.
const DefaultDrainDelay = 30 * time.Second

// Handler is the http.Handler that applies the edge rewrite to incoming
// requests. With an origin configured the rewritten request is proxied
// there, otherwise the rewritten request is returned as JSON.
type Handler struct {
	// state holds a reloadableState. Each request sees the latest state
	// without locking.
	state atomic.Value

	// reloadLock serializes ReloadConfig and Close, and guards retiring.
	reloadLock sync.Mutex

	drainDelay time.Duration
	retiring   map[*time.Timer]Deps

	newStore StoreFactory
	logger   hclog.Logger
}

// reloadableState is everything that ReloadConfig replaces.
type reloadableState struct {
	cfg   *config.RuntimeConfig
	deps  Deps
	proxy *httputil.ReverseProxy
	err   error
}

// NewHandler returns a Handler for cfg. A configuration that cannot be
// applied is not returned as an error; every request fails with a 500 until
// a ReloadConfig succeeds.
func NewHandler(ctx context.Context, cfg *config.RuntimeConfig, newStore StoreFactory, logger hclog.Logger) *Handler {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	h := &Handler{
		newStore:   newStore,
		logger:     logger.Named(logging.EdgeServer),
		drainDelay: DefaultDrainDelay,
		retiring:   make(map[*time.Timer]Deps),
	}
	if err := h.ReloadConfig(ctx, cfg); err != nil {
		h.logger.Error("failed to configure edge server", "error", err)
		h.state.Store(reloadableState{err: err})
	}
	return h
}

// ReloadConfig builds new dependencies for cfg and swaps them in. The old
// weights backend is closed after the drain delay. On error the current state
// is kept.
func (h *Handler) ReloadConfig(ctx context.Context, cfg *config.RuntimeConfig) error {
	h.reloadLock.Lock()
	defer h.reloadLock.Unlock()

	deps, err := NewDeps(ctx, cfg, h.newStore, h.logger)
	if err != nil {
		return err
	}

	newState := reloadableState{cfg: cfg, deps: deps}
	if cfg.Serve.Origin != nil {
		newState.proxy = h.newProxy(cfg)
	}

	old := h.getState()
	h.state.Store(newState)

	if old != nil && old.deps.Store != nil {
		h.retire(old.deps)
	}
	return nil
}

// retire closes d once drainDelay has passed. reloadLock must be held.
func (h *Handler) retire(d Deps) {
	var timer *time.Timer
	timer = time.AfterFunc(h.drainDelay, func() {
		h.reloadLock.Lock()
		_, ok := h.retiring[timer]
		delete(h.retiring, timer)
		h.reloadLock.Unlock()

		if ok {
			h.closeRetired(d)
		}
	})
	h.retiring[timer] = d
}

func (h *Handler) closeRetired(d Deps) {
	if err := d.Close(); err != nil {
		h.logger.Warn("failed closing previous weights backend", "error", err)
	}
}

// Close releases the current weights backend and any replaced backend that
// is still draining.
func (h *Handler) Close() error {
	h.reloadLock.Lock()
	defer h.reloadLock.Unlock()

	for timer, d := range h.retiring {
		timer.Stop()
		delete(h.retiring, timer)
		h.closeRetired(d)
	}

	s := h.getState()
	if s == nil {
		return nil
	}
	return s.deps.Close()
}

func (h *Handler) getState() *reloadableState {
	if cfg, ok := h.state.Load().(reloadableState); ok {
		return &cfg
	}
	return nil
}

func (h *Handler) newProxy(cfg *config.RuntimeConfig) *httputil.ReverseProxy {
	origin := cfg.Serve.Origin
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(origin)
			pr.SetXForwarded()
			pr.Out.Host = origin.Host
		},
		Transport: cleanhttp.DefaultPooledTransport(),
		ErrorLog: h.logger.StandardLogger(&hclog.StandardLoggerOptions{
			InferLevels: true,
		}),
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			h.logger.Warn("origin request failed", "uri", r.URL.Path, "error", err,
				"request_id", w.Header().Get(RequestIDHeader))
			http.Error(w, "origin unavailable", http.StatusBadGateway)
		},
	}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID, err := uuid.GenerateUUID()
	if err != nil {
		h.logger.Warn("failed generating request ID", "error", err)
	}
	w.Header().Set(RequestIDHeader, reqID)

	s := h.getState()
	if s == nil {
		panic("nil state")
	}
	if s.err != nil {
		h.logger.Error("edge server is misconfigured", "error", s.err, "request_id", reqID)
		http.Error(w, "edge server is misconfigured", http.StatusInternalServerError)
		return
	}

	req := requestFromHTTP(r)
	out := s.deps.Handler.HandleRequest(r.Context(), req)
	h.logger.Debug("request rewritten", "request_id", reqID, "uri", r.URL.Path, "rewritten", out.URI)

	if s.proxy == nil {
		w.Header().Set("Content-Type", "application/json")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			h.logger.Warn("failed writing response", "request_id", reqID, "error", err)
		}
		return
	}

	outReq := r.Clone(r.Context())
	outReq.URL.Path = out.URI
	outReq.URL.RawPath = ""
	outReq.Header = http.Header{}
	out.Headers.ApplyTo(outReq.Header)
	s.proxy.ServeHTTP(w, outReq)
}

func requestFromHTTP(r *http.Request) *edge.Request {
	clientIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		clientIP = r.RemoteAddr
	}
	return &edge.Request{
		ClientIP:    clientIP,
		Method:      r.Method,
		URI:         r.URL.Path,
		QueryString: r.URL.RawQuery,
		Headers:     edge.HeadersFromHTTP(r.Header),
	}
}
