// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package weights reads the per-feature routing weights that edge requests
// may be bucketed by.
//
// A weights object is a JSON document mapping a bucket, usually a version,
// to a non-negative number:
//
//	{"1.0.0": 80, "2.0.0": 20}
//
// It lives at {feature type}/weight.json in the configured bucket.
package weights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"path"
	"sort"
	"strings"
)

// DefaultObjectName is the object read below each feature type prefix.
const DefaultObjectName = "weight.json"

// maxObjectSize bounds how much of a weights object is read.
const maxObjectSize = 1 << 20

// ErrNotFound is returned by a Store when the weights object does not exist.
var ErrNotFound = errors.New("weights object not found")

// Weights maps a bucket name to its relative weight.
type Weights map[string]float64

// Store fetches the weights for a feature type.
type Store interface {
	Fetch(ctx context.Context, featureType string) (Weights, error)
}

// ObjectKey returns the key of the weights object for featureType.
func ObjectKey(featureType, objectName string) string {
	if objectName == "" {
		objectName = DefaultObjectName
	}
	prefix := strings.Trim(featureType, "/")
	if prefix == "" {
		return objectName
	}
	return path.Join(prefix, objectName)
}

// Decode parses a weights object. Every value must be a finite, non-negative
// number.
func Decode(data []byte) (Weights, error) {
	var w Weights
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed decoding weights: %w", err)
	}
	for k, v := range w {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return nil, fmt.Errorf("invalid weight %v for %q", v, k)
		}
	}
	if w == nil {
		w = Weights{}
	}
	return w, nil
}

// Clone returns a copy of w.
func (w Weights) Clone() Weights {
	out := make(Weights, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// Total is the sum of all weights.
func (w Weights) Total() float64 {
	var total float64
	for _, v := range w {
		total += v
	}
	return total
}

// Pick selects a bucket with probability proportional to its weight, using
// r in [0, 1). Buckets are walked in sorted order so the same r always picks
// the same bucket. It returns false when there is nothing to choose from.
func (w Weights) Pick(r float64) (string, bool) {
	total := w.Total()
	if total <= 0 {
		return "", false
	}

	keys := make([]string, 0, len(w))
	for k, v := range w {
		if v > 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	target := r * total
	var cumulative float64
	for _, k := range keys {
		cumulative += w[k]
		if target < cumulative {
			return k, true
		}
	}
	// r rounding up to 1.0 lands on the last bucket.
	return keys[len(keys)-1], true
}
