// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package config

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/go-version"
	"github.com/hashicorp/hcl/hcl/token"

	"github.com/hashicorp/edge-rewriter/edge"
	"github.com/hashicorp/edge-rewriter/lib/telemetry"
	"github.com/hashicorp/edge-rewriter/logging"
	"github.com/hashicorp/edge-rewriter/rewrite"
	"github.com/hashicorp/edge-rewriter/weights"
)

const (
	DefaultHTTPAddr    = "127.0.0.1:8080"
	DefaultMetricsPath = "/v1/metrics"
	DefaultLogLevel    = "INFO"
)

// ServeConfig configures the HTTP front end.
type ServeConfig struct {
	HTTPAddr string

	// Origin is where rewritten requests are proxied. Nil answers every
	// request locally with the rewrite result.
	Origin *url.URL

	MetricsPath string
}

// RuntimeConfig is the validated configuration the rest of the program
// consumes.
type RuntimeConfig struct {
	Rewrite   rewrite.Config
	Header    edge.CustomHeader
	EventType string

	Weights  weights.BackendConfig
	Weighted bool

	Logging   logging.Config
	Telemetry telemetry.Config
	Serve     ServeConfig

	// Warnings are problems that do not prevent the configuration from
	// being used.
	Warnings []string
}

// Default returns the RuntimeConfig built from an empty file.
func Default() *RuntimeConfig {
	rt, err := Build(Config{})
	if err != nil {
		panic(err)
	}
	return rt
}

// Build applies defaults to c and validates the result. Every problem found
// is reported.
func Build(c Config) (*RuntimeConfig, error) {
	var errs *multierror.Error
	addErr := func(err error) {
		errs = multierror.Append(errs, err)
	}

	rt := &RuntimeConfig{}
	for _, block := range []struct {
		prefix string
		keys   map[string][]token.Pos
	}{
		{"", c.UnusedKeys},
		{"header.", c.Header.UnusedKeys},
		{"weights.", c.Weights.UnusedKeys},
		{"weights.redis.", c.Weights.Redis.UnusedKeys},
		{"routing.", c.Routing.UnusedKeys},
		{"telemetry.", c.Telemetry.UnusedKeys},
		{"serve.", c.Serve.UnusedKeys},
	} {
		for _, k := range sortedKeys(block.keys) {
			rt.Warnings = append(rt.Warnings, fmt.Sprintf("unknown configuration key %q", block.prefix+k))
		}
	}

	rw := rewrite.DefaultConfig()
	if c.Mode != "" {
		rw.Mode = rewrite.Mode(c.Mode)
	}
	if c.Schema != "" {
		rw.Schema = rewrite.Schema(c.Schema)
	}
	if c.DefaultVersion != "" {
		rw.DefaultVersion = c.DefaultVersion
	}
	if c.SDKFileName != "" {
		rw.SDKFileName = c.SDKFileName
	}
	if c.IndexFileName != "" {
		rw.IndexFileName = c.IndexFileName
	}
	if c.ErrorURI != "" {
		rw.ErrorURI = c.ErrorURI
	}
	if c.StaticExtensions != nil {
		rw.StaticExtensions = mapset.NewThreadUnsafeSet(c.StaticExtensions...)
	}
	if err := rw.Validate(); err != nil {
		addErr(err)
	}
	if _, err := version.NewVersion(rw.DefaultVersion); err != nil {
		addErr(fmt.Errorf("default_version: %w", err))
	}
	rt.Rewrite = rw

	rt.EventType = c.EventType
	switch rt.EventType {
	case "":
		rt.EventType = edge.EventTypeViewerRequest
	case edge.EventTypeViewerRequest, edge.EventTypeOriginRequest:
	default:
		addErr(fmt.Errorf("event_type must be %q or %q, got %q",
			edge.EventTypeViewerRequest, edge.EventTypeOriginRequest, c.EventType))
	}

	rt.Header = edge.CustomHeader{Name: c.Header.Name, Value: c.Header.Value}
	if rt.Header.Name == "" {
		rt.Header.Name = edge.DefaultHeaderName
		if rw.Mode == rewrite.ModePassthrough {
			rt.Header.Name = edge.PassthroughHeaderName
		}
	}
	if rt.Header.Value == "" {
		rt.Header.Value = edge.DefaultHeaderValue
	}
	if strings.ContainsAny(rt.Header.Name, " :\t\r\n") {
		addErr(fmt.Errorf("header name %q is not a valid HTTP header name", rt.Header.Name))
	}
	if edge.IsReadOnlyHeader(rt.Header.Name, rt.EventType) {
		rt.Warnings = append(rt.Warnings, fmt.Sprintf(
			"header %q is read-only for CloudFront %s functions and will be rejected when deployed",
			rt.Header.Name, rt.EventType))
	}

	rt.Weights = buildWeights(c.Weights, addErr)
	rt.Weighted = c.Routing.Weighted
	if rt.Weighted && !rt.Weights.Enabled() {
		addErr(fmt.Errorf("routing.weighted requires a weights backend"))
	}

	rt.Logging = logging.Config{
		LogLevel: c.LogLevel,
		LogJSON:  c.LogJSON,
		Color:    c.LogColor,
		Name:     "edge-rewriter",
	}
	if rt.Logging.LogLevel == "" {
		rt.Logging.LogLevel = DefaultLogLevel
	}
	if !logging.ValidateLogLevel(rt.Logging.LogLevel) {
		addErr(fmt.Errorf("log_level %q is invalid, valid levels are %v", rt.Logging.LogLevel, logging.AllowedLogLevels()))
	}
	if _, err := logging.NewColorOption(rt.Logging.Color); err != nil {
		addErr(fmt.Errorf("log_color: %w", err))
	}

	rt.Telemetry = telemetry.Config{
		Disable:       c.Telemetry.Disable,
		MetricsPrefix: c.Telemetry.MetricsPrefix,
		StatsiteAddr:  c.Telemetry.StatsiteAddr,
		StatsdAddr:    c.Telemetry.StatsdAddr,
		DogstatsdAddr: c.Telemetry.DogstatsdAddr,
		DogstatsdTags: c.Telemetry.DogstatsdTags,
	}
	rt.Telemetry.PrometheusRetentionTime = parseDuration("telemetry.prometheus_retention_time", c.Telemetry.PrometheusRetentionTime, addErr)

	rt.Serve = buildServe(c.Serve, addErr)

	sort.Strings(rt.Warnings)
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return rt, nil
}

func buildWeights(c Weights, addErr func(error)) weights.BackendConfig {
	bc := weights.BackendConfig{
		Backend:         c.Backend,
		Bucket:          c.Bucket,
		ObjectName:      c.ObjectName,
		Endpoint:        c.Endpoint,
		Region:          c.Region,
		UsePathStyle:    c.UsePathStyle,
		AccessKeyID:     c.AccessKeyID,
		SecretAccessKey: c.SecretAccessKey,
		SessionToken:    c.SessionToken,
		Anonymous:       c.Anonymous,
		CacheTTL:        parseDuration("weights.cache_ttl", c.CacheTTL, addErr),
		Redis: weights.RedisConfig{
			Addr:      c.Redis.Addr,
			Password:  c.Redis.Password,
			DB:        c.Redis.DB,
			KeyPrefix: c.Redis.KeyPrefix,
			TTL:       parseDuration("weights.redis.ttl", c.Redis.TTL, addErr),
		},
	}
	if bc.ObjectName == "" {
		bc.ObjectName = weights.DefaultObjectName
	}

	switch bc.Backend {
	case "":
		return bc
	case weights.BackendS3, weights.BackendGCS:
	case weights.BackendAzure:
		if bc.Endpoint == "" {
			addErr(fmt.Errorf("weights.endpoint is required for the azure backend"))
		}
	default:
		addErr(fmt.Errorf("weights.backend must be one of %s, %s or %s, got %q",
			weights.BackendS3, weights.BackendGCS, weights.BackendAzure, bc.Backend))
	}
	if bc.Bucket == "" {
		addErr(fmt.Errorf("weights.bucket is required"))
	}
	if bc.AccessKeyID != "" && bc.SecretAccessKey == "" {
		addErr(fmt.Errorf("weights.secret_access_key is required with weights.access_key_id"))
	}
	return bc
}

func buildServe(c Serve, addErr func(error)) ServeConfig {
	sc := ServeConfig{
		HTTPAddr:    c.HTTPAddr,
		MetricsPath: c.MetricsPath,
	}
	if sc.HTTPAddr == "" {
		sc.HTTPAddr = DefaultHTTPAddr
	}
	if sc.MetricsPath == "" {
		sc.MetricsPath = DefaultMetricsPath
	}
	if !strings.HasPrefix(sc.MetricsPath, "/") {
		addErr(fmt.Errorf("serve.metrics_path must start with /"))
	}
	if c.Origin != "" {
		u, err := url.Parse(c.Origin)
		switch {
		case err != nil:
			addErr(fmt.Errorf("serve.origin: %w", err))
		case u.Scheme != "http" && u.Scheme != "https":
			addErr(fmt.Errorf("serve.origin must be an http or https URL, got %q", c.Origin))
		case u.Host == "":
			addErr(fmt.Errorf("serve.origin %q has no host", c.Origin))
		default:
			sc.Origin = u
		}
	}
	return sc
}

func parseDuration(name, s string, addErr func(error)) time.Duration {
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		addErr(fmt.Errorf("%s: %w", name, err))
		return 0
	}
	if d < 0 {
		addErr(fmt.Errorf("%s must not be negative", name))
		return 0
	}
	return d
}

func sortedKeys(m map[string][]token.Pos) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
