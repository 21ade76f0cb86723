// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package weights

import (
	"context"
	"math/rand/v2"

	"github.com/hashicorp/go-hclog"

	"github.com/hashicorp/edge-rewriter/logging"
	"github.com/hashicorp/edge-rewriter/rewrite"
)

var _ rewrite.Decider = (*Decider)(nil)

// Decider picks a version for unversioned requests in proportion to the
// feature type's weights.
type Decider struct {
	lookup *Lookup
	logger hclog.Logger

	// rand returns a number in [0, 1).
	rand func() float64
}

func NewDecider(lookup *Lookup, logger hclog.Logger) *Decider {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Decider{
		lookup: lookup,
		logger: logger.Named(logging.Weights),
		rand:   rand.Float64,
	}
}

// WithRand returns a copy of d drawing from fn instead of the global source.
func (d *Decider) WithRand(fn func() float64) *Decider {
	cp := *d
	cp.rand = fn
	return &cp
}

func (d *Decider) DecideVersion(ctx context.Context, f rewrite.Fields) (string, bool) {
	w := d.lookup.Weights(ctx, f.FeatureType)
	v, ok := w.Pick(d.rand())
	if ok {
		d.logger.Trace("picked weighted version", "feature_type", f.FeatureType, "version", v)
	}
	return v, ok
}
