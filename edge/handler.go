// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package edge

import (
	"context"

	"github.com/hashicorp/go-hclog"

	"github.com/hashicorp/edge-rewriter/logging"
	"github.com/hashicorp/edge-rewriter/rewrite"
)

const (
	DefaultHeaderName  = "x-custom-header"
	DefaultHeaderValue = "ok"

	// PassthroughHeaderName is the header the pass-through deployment wrote.
	PassthroughHeaderName = "x-edge-demo"
)

// CustomHeader is written on every request the Handler processes.
type CustomHeader struct {
	Name  string
	Value string
}

// Handler applies a Rewriter to edge requests. It is the single entry point
// for both the full rewrite and the pass-through deployments.
type Handler struct {
	rewriter *rewrite.Rewriter
	header   CustomHeader
	logger   hclog.Logger
}

// NewHandler returns a Handler. Empty header fields are filled with
// DefaultHeaderName and DefaultHeaderValue.
func NewHandler(rewriter *rewrite.Rewriter, header CustomHeader, logger hclog.Logger) *Handler {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if header.Name == "" {
		header.Name = DefaultHeaderName
	}
	if header.Value == "" {
		header.Value = DefaultHeaderValue
	}
	return &Handler{
		rewriter: rewriter,
		header:   header,
		logger:   logger.Named(logging.EdgeHandler),
	}
}

// HandleRequest writes the custom header on every request, rewrites req.URI
// in place and returns req. It never fails; rewrite faults produce the
// configured error URI.
func (h *Handler) HandleRequest(ctx context.Context, req *Request) *Request {
	if req.Headers == nil {
		req.Headers = make(Headers)
	}
	req.Headers.Set(h.header.Name, h.header.Value)

	original := req.URI
	res := h.rewriter.Rewrite(ctx, original)
	req.URI = res.URI

	if h.logger.IsDebug() {
		h.logger.Debug("handled request",
			"path", res.Fields.Segments,
			"feature_type", res.Fields.FeatureType,
			"client_type", res.Fields.ClientType,
			"version", res.Fields.Version,
			"version_source", res.Fields.VersionSource,
			"branch", res.Branch,
			"original_uri", original,
			"uri", req.URI,
		)
	}
	return req
}

// HandleEvent processes the request carried by ev. The only error is
// ErrNoRequest for an event without a request to return.
func (h *Handler) HandleEvent(ctx context.Context, ev *Event) (*Request, error) {
	req, err := ev.Request()
	if err != nil {
		return nil, err
	}
	if cfg := ev.Config(); cfg.RequestID != "" {
		h.logger.Trace("received event", "request_id", cfg.RequestID, "event_type", cfg.EventType)
	}
	return h.HandleRequest(ctx, req), nil
}
