// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package edgeserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/armon/go-metrics"
	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsHandler serves the in-memory metrics as JSON, or the Prometheus
// exposition format when asked for with ?format=prometheus or an OpenMetrics
// Accept header.
type MetricsHandler struct {
	sink       *metrics.InmemSink
	prometheus bool
	logger     hclog.Logger
}

func NewMetricsHandler(sink *metrics.InmemSink, prometheusEnabled bool, logger hclog.Logger) *MetricsHandler {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &MetricsHandler{sink: sink, prometheus: prometheusEnabled, logger: logger}
}

func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if enablePrometheusOutput(r) {
		if !m.prometheus {
			w.WriteHeader(http.StatusUnsupportedMediaType)
			fmt.Fprint(w, "Prometheus is not enabled since its retention time is not positive")
			return
		}
		handler := promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
			ErrorLog:      m.logger.StandardLogger(&hclog.StandardLoggerOptions{InferLevels: true}),
			ErrorHandling: promhttp.ContinueOnError,
		})
		handler.ServeHTTP(w, r)
		return
	}

	if m.sink == nil {
		http.Error(w, "telemetry is disabled", http.StatusNotFound)
		return
	}
	summary, err := m.sink.DisplayMetrics(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(summary); err != nil {
		m.logger.Warn("failed writing metrics", "error", err)
	}
}

func enablePrometheusOutput(r *http.Request) bool {
	if r.URL.Query().Get("format") == "prometheus" {
		return true
	}
	for _, v := range strings.Split(r.Header.Get("Accept"), ",") {
		mime, params, _ := strings.Cut(v, ";")
		mime = strings.ToLower(strings.TrimSpace(mime))
		if mime == "application/openmetrics-text" {
			return true
		}
		if mime == "text/plain" && strings.TrimSpace(params) == "version=0.4.0" {
			return true
		}
	}
	return false
}

// NewMux routes metricsPath to metricsHandler and everything else to
// edgeHandler. A nil metricsHandler leaves metricsPath to edgeHandler.
func NewMux(edgeHandler http.Handler, metricsPath string, metricsHandler http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	if metricsHandler != nil && metricsPath != "" {
		mux.Handle(metricsPath, metricsHandler)
	}
	mux.Handle("/", edgeHandler)
	return mux
}
