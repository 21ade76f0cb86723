// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package edgeserver

import (
	"context"

	"github.com/hashicorp/go-hclog"

	"github.com/hashicorp/edge-rewriter/config"
	"github.com/hashicorp/edge-rewriter/edge"
	"github.com/hashicorp/edge-rewriter/rewrite"
	"github.com/hashicorp/edge-rewriter/weights"
)

// StoreFactory opens the weights backend. It is swapped out in tests.
type StoreFactory func(ctx context.Context, cfg weights.BackendConfig, logger hclog.Logger) (weights.Backend, error)

// NewStore is the StoreFactory used outside of tests.
func NewStore(ctx context.Context, cfg weights.BackendConfig, logger hclog.Logger) (weights.Backend, error) {
	return weights.NewStore(ctx, cfg, logger)
}

// Deps are the components built from a RuntimeConfig.
type Deps struct {
	Handler *edge.Handler
	Lookup  *weights.Lookup

	// Store is nil when no weights backend is configured.
	Store weights.Backend
}

// NewDeps wires the rewriter, the optional weights backend and the edge
// handler for cfg.
func NewDeps(ctx context.Context, cfg *config.RuntimeConfig, newStore StoreFactory, logger hclog.Logger) (Deps, error) {
	if newStore == nil {
		newStore = NewStore
	}

	var d Deps
	if cfg.Weights.Enabled() {
		store, err := newStore(ctx, cfg.Weights, logger)
		if err != nil {
			return Deps{}, err
		}
		d.Store = store
	}

	var store weights.Store
	if d.Store != nil {
		store = d.Store
	}
	d.Lookup = weights.NewLookup(store, logger)

	var decider rewrite.Decider
	if cfg.Weighted && d.Store != nil {
		decider = weights.NewDecider(d.Lookup, logger)
	}

	d.Handler = edge.NewHandler(rewrite.New(cfg.Rewrite, decider, logger), cfg.Header, logger)
	return d, nil
}

// Close releases the weights backend.
func (d Deps) Close() error {
	if d.Store == nil {
		return nil
	}
	return d.Store.Close()
}
