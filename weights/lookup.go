// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package weights

import (
	"context"
	"errors"
	"time"

	"github.com/armon/go-metrics"
	"github.com/hashicorp/go-hclog"

	"github.com/hashicorp/edge-rewriter/logging"
)

// Lookup reads weights for the request path. A lookup never fails the
// request: a missing, unreadable or malformed object yields empty weights.
type Lookup struct {
	store  Store
	logger hclog.Logger
}

// NewLookup returns a Lookup over store. A nil store always yields empty
// weights.
func NewLookup(store Store, logger hclog.Logger) *Lookup {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Lookup{
		store:  store,
		logger: logger.Named(logging.Weights),
	}
}

// Weights returns the weights for featureType, or an empty map.
func (l *Lookup) Weights(ctx context.Context, featureType string) Weights {
	if l == nil || l.store == nil || featureType == "" {
		return Weights{}
	}

	defer metrics.MeasureSince([]string{"edge", "weights", "fetch"}, time.Now())

	w, err := l.store.Fetch(ctx, featureType)
	if err != nil {
		metrics.IncrCounter([]string{"edge", "weights", "fetch_error"}, 1)
		if errors.Is(err, ErrNotFound) {
			l.logger.Debug("no weights for feature type", "feature_type", featureType)
		} else {
			l.logger.Warn("failed fetching weights", "feature_type", featureType, "error", err)
		}
		return Weights{}
	}

	metrics.IncrCounter([]string{"edge", "weights", "fetch_success"}, 1)
	if w == nil {
		w = Weights{}
	}
	return w
}
