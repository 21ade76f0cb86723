// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package rewrite

import (
	"context"
	"fmt"
	"strings"

	"github.com/armon/go-metrics"
	"github.com/hashicorp/go-hclog"

	"github.com/hashicorp/edge-rewriter/logging"
)

// Decider is an optional extension point that chooses a version for a
// request whose path did not carry one. Returning false falls back to
// Config.DefaultVersion.
type Decider interface {
	DecideVersion(ctx context.Context, f Fields) (string, bool)
}

// DeciderFunc adapts a function to the Decider interface.
type DeciderFunc func(ctx context.Context, f Fields) (string, bool)

func (fn DeciderFunc) DecideVersion(ctx context.Context, f Fields) (string, bool) {
	return fn(ctx, f)
}

// Branch names the rule that produced a Result.
type Branch string

const (
	BranchSDK         Branch = "sdk"
	BranchStatic      Branch = "static"
	BranchApp         Branch = "app"
	BranchFallback    Branch = "fallback"
	BranchPassthrough Branch = "passthrough"
)

// Result is the outcome of a single rewrite.
type Result struct {
	URI    string
	Branch Branch
	Fields Fields

	// Err holds the fault that caused a BranchFallback result.
	Err error
}

// Rewriter decides the URI a request is forwarded with. It holds no mutable
// state and is safe for concurrent use.
type Rewriter struct {
	cfg     Config
	decider Decider
	logger  hclog.Logger
}

// New returns a Rewriter for cfg. decider may be nil.
func New(cfg Config, decider Decider, logger hclog.Logger) *Rewriter {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Rewriter{
		cfg:     cfg,
		decider: decider,
		logger:  logger.Named(logging.Rewrite),
	}
}

// Config returns the configuration the Rewriter was built with.
func (r *Rewriter) Config() Config {
	return r.cfg
}

// Rewrite computes the new URI for uri. It never fails: any fault, including
// a panic in the Decider, yields Config.ErrorURI with Branch set to
// BranchFallback.
func (r *Rewriter) Rewrite(ctx context.Context, uri string) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			res = r.fallback(uri, fmt.Errorf("rewrite panicked: %v", p))
		}
		metrics.IncrCounter([]string{"edge", "rewrite", string(res.Branch)}, 1)
	}()

	if r.cfg.Mode == ModePassthrough {
		return Result{URI: uri, Branch: BranchPassthrough}
	}

	f, err := ParseFields(uri, r.cfg.Schema)
	if err != nil {
		return r.fallback(uri, err)
	}

	switch {
	case f.FileName == r.cfg.SDKFileName:
		// The asset name itself is never a client type or version, as in
		// /widget/test-sdk.js.
		if f.ClientType == r.cfg.SDKFileName {
			f.ClientType = ""
		}
		if f.Version == r.cfg.SDKFileName {
			f.Version, f.VersionSource = "", ""
		}
		if err := r.resolveVersion(ctx, &f); err != nil {
			return r.fallback(uri, err)
		}
		return Result{
			URI:    join(f.FeatureType, f.Version, "sdk", r.cfg.SDKFileName),
			Branch: BranchSDK,
			Fields: f,
		}

	case r.cfg.IsStatic(f.FileExtension):
		return Result{URI: uri, Branch: BranchStatic, Fields: f}

	default:
		if err := r.resolveVersion(ctx, &f); err != nil {
			return r.fallback(uri, err)
		}
		return Result{
			URI:    join(f.FeatureType, f.Version, r.cfg.IndexFileName),
			Branch: BranchApp,
			Fields: f,
		}
	}
}

func (r *Rewriter) resolveVersion(ctx context.Context, f *Fields) error {
	if f.Version != "" {
		return nil
	}
	if r.decider != nil {
		if v, ok := r.decider.DecideVersion(ctx, *f); ok && validSegment(v) {
			f.Version, f.VersionSource = v, VersionFromDecider
			return nil
		}
	}
	if !validSegment(r.cfg.DefaultVersion) {
		return fmt.Errorf("default version %q is not a valid path segment", r.cfg.DefaultVersion)
	}
	f.Version, f.VersionSource = r.cfg.DefaultVersion, VersionFromDefault
	return nil
}

func (r *Rewriter) fallback(uri string, err error) Result {
	r.logger.Warn("rewrite failed, serving error document", "uri", uri, "error", err)
	errorURI := r.cfg.ErrorURI
	if !strings.HasPrefix(errorURI, "/") {
		errorURI = DefaultErrorURI
	}
	return Result{URI: errorURI, Branch: BranchFallback, Err: err}
}

func validSegment(s string) bool {
	return s != "" && !strings.Contains(s, "/")
}

func join(segments ...string) string {
	return "/" + strings.Join(segments, "/")
}
