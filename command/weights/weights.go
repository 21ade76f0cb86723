// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package weights

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"time"

	"github.com/hashicorp/edge-rewriter/command/cli"
	"github.com/hashicorp/edge-rewriter/command/flags"
	"github.com/hashicorp/edge-rewriter/edgeserver"
	"github.com/hashicorp/edge-rewriter/lib/file"
	"github.com/hashicorp/edge-rewriter/logging"
)

func New(ui cli.Ui) *cmd {
	c := &cmd{UI: ui}
	c.init()
	return c
}

type cmd struct {
	UI    cli.Ui
	flags *flag.FlagSet
	cfg   *flags.ConfigFlags
	usage string

	out     string
	timeout time.Duration

	testStoreFactory edgeserver.StoreFactory
}

func (c *cmd) init() {
	c.flags = flag.NewFlagSet("", flag.ContinueOnError)
	c.flags.StringVar(&c.out, "out", "",
		"Write the weights to `path` instead of stdout. The file is replaced\n"+
			"atomically.")
	c.flags.DurationVar(&c.timeout, "timeout", 10*time.Second,
		"How long to wait for the storage backend.")

	c.cfg = &flags.ConfigFlags{}
	flags.Merge(c.flags, c.cfg.Flags())
	c.usage = flags.Usage(usage, c.flags)
}

func (c *cmd) Synopsis() string {
	return "Fetches the routing weights of a feature type"
}

func (c *cmd) Help() string {
	return c.usage
}

func (c *cmd) Run(args []string) int {
	if err := c.flags.Parse(args); err != nil {
		return 1
	}
	args = c.flags.Args()
	if len(args) != 1 {
		c.UI.Error(fmt.Sprintf("Expected exactly one feature type, got %d", len(args)))
		return 1
	}
	featureType := args[0]

	rt, err := c.cfg.Load()
	if err != nil {
		c.UI.Error(fmt.Sprintf("Error loading configuration: %s", err))
		return 1
	}
	if !rt.Weights.Enabled() {
		c.UI.Error("No weights backend is configured")
		return 1
	}

	logger, err := logging.Setup(rt.Logging, c.UI.Stderr())
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	newStore := c.testStoreFactory
	if newStore == nil {
		newStore = edgeserver.NewStore
	}
	store, err := newStore(ctx, rt.Weights, logger)
	if err != nil {
		c.UI.Error(fmt.Sprintf("Error configuring weights backend: %s", err))
		return 1
	}
	defer store.Close()

	w, err := store.Fetch(ctx, featureType)
	if err != nil {
		c.UI.Error(fmt.Sprintf("Error fetching weights for %q: %s", featureType, err))
		return 1
	}

	data, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		c.UI.Error(fmt.Sprintf("Error encoding weights: %s", err))
		return 1
	}

	if c.out == "" {
		c.UI.Output(string(data))
		return 0
	}
	if err := file.WriteAtomicWithPerms(c.out, append(data, '\n'), 0755, 0644); err != nil {
		c.UI.Error(fmt.Sprintf("Error writing %s: %s", c.out, err))
		return 1
	}
	c.UI.Info(fmt.Sprintf("Saved weights for %q to %s", featureType, c.out))
	return 0
}

const usage = `
Usage: edge-rewriter weights [options] FEATURE_TYPE

  Reads {FEATURE_TYPE}/weight.json from the configured weights backend and
  prints it. Unlike request handling, a missing or invalid object is reported
  as an error.

      $ edge-rewriter weights -config edge.hcl widget
`
