// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package telemetry configures the process-wide go-metrics sinks the rewriter
// reports to.
package telemetry

import (
	"time"

	"github.com/armon/go-metrics"
	"github.com/armon/go-metrics/datadog"
	"github.com/armon/go-metrics/prometheus"
)

// DefaultPrefix is prepended to every metric key.
const DefaultPrefix = "edge_rewriter"

// Config selects the metric sinks. An in-memory sink is always installed.
type Config struct {
	Disable bool

	// MetricsPrefix defaults to DefaultPrefix.
	MetricsPrefix string

	// PrometheusRetentionTime enables the Prometheus sink when positive.
	PrometheusRetentionTime time.Duration

	StatsiteAddr  string
	StatsdAddr    string
	DogstatsdAddr string
	DogstatsdTags []string
}

// PrometheusEnabled reports whether metrics are exported to the default
// Prometheus registry.
func (c Config) PrometheusEnabled() bool {
	return !c.Disable && c.PrometheusRetentionTime > 0
}

// Metrics is the handle returned by Init.
type Metrics struct {
	client    *metrics.Metrics
	inmemSink *metrics.InmemSink
}

// InmemSink holds the last minute of metrics in ten second intervals.
func (m *Metrics) InmemSink() *metrics.InmemSink {
	if m == nil {
		return nil
	}
	return m.inmemSink
}

// Shutdown flushes and stops the global metrics client.
func (m *Metrics) Shutdown() {
	if m == nil {
		return
	}
	m.client.Shutdown()
}

type sinkFn func(Config) (metrics.MetricSink, error)

func statsiteSink(cfg Config) (metrics.MetricSink, error) {
	if cfg.StatsiteAddr == "" {
		return nil, nil
	}
	return metrics.NewStatsiteSink(cfg.StatsiteAddr)
}

func statsdSink(cfg Config) (metrics.MetricSink, error) {
	if cfg.StatsdAddr == "" {
		return nil, nil
	}
	return metrics.NewStatsdSink(cfg.StatsdAddr)
}

func dogstatsdSink(cfg Config) (metrics.MetricSink, error) {
	if cfg.DogstatsdAddr == "" {
		return nil, nil
	}
	sink, err := datadog.NewDogStatsdSink(cfg.DogstatsdAddr, "")
	if err != nil {
		return nil, err
	}
	sink.SetTags(cfg.DogstatsdTags)
	return sink, nil
}

func prometheusSink(cfg Config) (metrics.MetricSink, error) {
	if cfg.PrometheusRetentionTime <= 0 {
		return nil, nil
	}
	return prometheus.NewPrometheusSinkFrom(prometheus.PrometheusOpts{
		Expiration: cfg.PrometheusRetentionTime,
	})
}

// initSinks builds every configured external sink. All of them must succeed.
func initSinks(cfg Config) (metrics.FanoutSink, error) {
	var sinks metrics.FanoutSink
	for _, fn := range []sinkFn{statsiteSink, statsdSink, dogstatsdSink, prometheusSink} {
		s, err := fn(cfg)
		if err != nil {
			return nil, err
		}
		if s != nil {
			sinks = append(sinks, s)
		}
	}
	return sinks, nil
}

// Init installs the global metrics client. It returns nil when telemetry is
// disabled, in which case go-metrics keeps its no-op default.
func Init(cfg Config) (*Metrics, error) {
	if cfg.Disable {
		return nil, nil
	}
	prefix := cfg.MetricsPrefix
	if prefix == "" {
		prefix = DefaultPrefix
	}

	memSink := metrics.NewInmemSink(10*time.Second, time.Minute)

	mCfg := metrics.DefaultConfig(prefix)
	mCfg.EnableHostname = false
	mCfg.EnableRuntimeMetrics = false

	sinks, err := initSinks(cfg)
	if err != nil {
		return nil, err
	}

	all := append(metrics.FanoutSink{memSink}, sinks...)
	client, err := metrics.NewGlobal(mCfg, all)
	if err != nil {
		return nil, err
	}
	return &Metrics{client: client, inmemSink: memSink}, nil
}
