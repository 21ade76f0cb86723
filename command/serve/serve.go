// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package serve

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/hashicorp/edge-rewriter/command/cli"
	"github.com/hashicorp/edge-rewriter/command/flags"
	"github.com/hashicorp/edge-rewriter/config"
	"github.com/hashicorp/edge-rewriter/edgeserver"
	"github.com/hashicorp/edge-rewriter/lib/telemetry"
	"github.com/hashicorp/edge-rewriter/logging"
)

const shutdownTimeout = 10 * time.Second

func New(ui cli.Ui) *cmd {
	c := &cmd{UI: ui, shutdownCh: make(chan struct{})}
	c.init()
	return c
}

type cmd struct {
	UI    cli.Ui
	flags *flag.FlagSet
	cfg   *flags.ConfigFlags
	usage string

	httpAddr string
	origin   string

	shutdownCh chan struct{}

	// listening receives the bound address once the server accepts
	// connections. Used by tests.
	listening chan string

	testStoreFactory edgeserver.StoreFactory
}

func (c *cmd) init() {
	c.flags = flag.NewFlagSet("", flag.ContinueOnError)
	c.flags.StringVar(&c.httpAddr, "http-addr", "",
		"The `address` to listen on. Overrides serve.http_addr.")
	c.flags.StringVar(&c.origin, "origin", "",
		"The origin `URL` rewritten requests are proxied to. Overrides\n"+
			"serve.origin. Without an origin the rewritten request is returned\n"+
			"as JSON.")

	c.cfg = &flags.ConfigFlags{}
	flags.Merge(c.flags, c.cfg.Flags())
	c.usage = flags.Usage(usage, c.flags)
}

func (c *cmd) Synopsis() string {
	return "Runs the edge handler as an HTTP reverse proxy"
}

func (c *cmd) Help() string {
	return c.usage
}

func (c *cmd) Run(args []string) int {
	if err := c.flags.Parse(args); err != nil {
		return 1
	}
	if len(c.flags.Args()) > 0 {
		c.UI.Error(fmt.Sprintf("Too many arguments (expected 0, got %d)", len(c.flags.Args())))
		return 1
	}

	rt, err := c.loadConfig()
	if err != nil {
		c.UI.Error(fmt.Sprintf("Error loading configuration: %s", err))
		return 1
	}

	logger, err := logging.Setup(rt.Logging, c.UI.Stderr())
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}
	for _, w := range rt.Warnings {
		logger.Warn(w)
	}

	m, err := telemetry.Init(rt.Telemetry)
	if err != nil {
		c.UI.Error(fmt.Sprintf("Error initializing telemetry: %s", err))
		return 1
	}
	defer m.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := edgeserver.NewHandler(ctx, rt, c.testStoreFactory, logger)
	defer handler.Close()

	var metricsHandler http.Handler
	if !rt.Telemetry.Disable {
		metricsHandler = edgeserver.NewMetricsHandler(m.InmemSink(), rt.Telemetry.PrometheusEnabled(), logger.Named(logging.Telemetry))
	}

	ln, err := net.Listen("tcp", rt.Serve.HTTPAddr)
	if err != nil {
		c.UI.Error(fmt.Sprintf("Error listening on %s: %s", rt.Serve.HTTPAddr, err))
		return 1
	}
	srv := &http.Server{
		Handler:           edgeserver.NewMux(handler, rt.Serve.MetricsPath, metricsHandler),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          logger.StandardLogger(&hclog.StandardLoggerOptions{InferLevels: true}),
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()
	logger.Info("edge server started", "address", ln.Addr().String(), "mode", rt.Rewrite.Mode)
	if c.listening != nil {
		c.listening <- ln.Addr().String()
	}

	var watchCh chan *config.FileWatcherEvent
	if c.cfg.ConfigFile != "" {
		w, err := config.NewFileWatcher([]string{c.cfg.ConfigFile}, logger)
		if err != nil {
			logger.Warn("config file changes will not be picked up", "error", err)
		} else {
			w.Start(ctx)
			defer w.Stop()
			watchCh = w.EventsCh
		}
	}

	signalCh := make(chan os.Signal, 4)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(signalCh)

	for {
		select {
		case ev := <-watchCh:
			logger.Info("config file changed, reloading", "file", ev.Filename)
			c.reload(ctx, handler, logger)

		case sig := <-signalCh:
			if sig == syscall.SIGHUP {
				logger.Info("caught signal, reloading", "signal", sig)
				c.reload(ctx, handler, logger)
				continue
			}
			logger.Info("caught signal, shutting down", "signal", sig)
			return c.shutdown(srv, logger)

		case <-c.shutdownCh:
			return c.shutdown(srv, logger)

		case err := <-serveErr:
			logger.Error("edge server stopped", "error", err)
			return 1
		}
	}
}

func (c *cmd) loadConfig() (*config.RuntimeConfig, error) {
	rt, err := c.cfg.Load()
	if err != nil {
		return nil, err
	}
	if c.httpAddr != "" {
		rt.Serve.HTTPAddr = c.httpAddr
	}
	if c.origin != "" {
		u, err := url.Parse(c.origin)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("-origin must be an http or https URL, got %q", c.origin)
		}
		rt.Serve.Origin = u
	}
	return rt, nil
}

func (c *cmd) reload(ctx context.Context, handler *edgeserver.Handler, logger hclog.Logger) {
	logger = logger.Named(logging.ConfigReload)
	rt, err := c.loadConfig()
	if err != nil {
		logger.Error("failed to reload configuration", "error", err)
		return
	}
	for _, w := range rt.Warnings {
		logger.Warn(w)
	}
	if err := handler.ReloadConfig(ctx, rt); err != nil {
		logger.Error("failed to apply configuration", "error", err)
		return
	}
	logger.Info("configuration reloaded")
}

func (c *cmd) shutdown(srv *http.Server, logger hclog.Logger) int {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("graceful shutdown failed", "error", err)
		return 1
	}
	logger.Info("edge server stopped")
	return 0
}

const usage = `
Usage: edge-rewriter serve [options]

  Runs the edge handler in front of an origin. Every request is rewritten
  exactly as the CloudFront function would rewrite it and then proxied to the
  origin. The configuration file is reloaded when it changes or on SIGHUP.

  Metrics are served as JSON on serve.metrics_path, or in the Prometheus
  format with ?format=prometheus when telemetry.prometheus_retention_time
  is set.

      $ edge-rewriter serve -config edge.hcl -origin https://assets.example.com
`
