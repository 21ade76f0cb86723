// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package rewrite

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/edge-rewriter/command/cli"
	"github.com/hashicorp/edge-rewriter/command/flags"
	"github.com/hashicorp/edge-rewriter/edge"
	"github.com/hashicorp/edge-rewriter/edgeserver"
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

	event   string
	uri     string
	method  string
	headers flags.FlagMapValue

	// testStoreFactory replaces the weights backend in tests.
	testStoreFactory edgeserver.StoreFactory
}

func (c *cmd) init() {
	c.flags = flag.NewFlagSet("", flag.ContinueOnError)
	c.flags.StringVar(&c.event, "event", "",
		"Path to a CloudFront request event in JSON. Use \"-\" to read the event\n"+
			"from stdin. Mutually exclusive with -uri.")
	c.flags.StringVar(&c.uri, "uri", "",
		"Rewrite a bare request `path` instead of an event.")
	c.flags.StringVar(&c.method, "method", "GET",
		"Request method used with -uri.")
	c.flags.Var(&c.headers, "header",
		"Request header as `name=value` used with -uri. May be repeated.")

	c.cfg = &flags.ConfigFlags{}
	flags.Merge(c.flags, c.cfg.Flags())
	c.usage = flags.Usage(usage, c.flags)
}

func (c *cmd) Synopsis() string {
	return "Runs the edge handler on a request and prints the result"
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
	if (c.event == "") == (c.uri == "") {
		c.UI.Error("Exactly one of -event or -uri must be given")
		return 1
	}

	rt, err := c.cfg.Load()
	if err != nil {
		c.UI.Error(fmt.Sprintf("Error loading configuration: %s", err))
		return 1
	}
	logger, err := logging.Setup(rt.Logging, c.UI.Stderr())
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}

	ctx := context.Background()
	deps, err := edgeserver.NewDeps(ctx, rt, c.testStoreFactory, logger)
	if err != nil {
		c.UI.Error(fmt.Sprintf("Error configuring weights backend: %s", err))
		return 1
	}
	defer deps.Close()

	var out interface{}
	if c.uri != "" {
		req := &edge.Request{
			Method:  c.method,
			URI:     c.uri,
			Headers: make(edge.Headers),
		}
		for name, value := range c.headers {
			req.Headers.Set(name, value)
		}
		out = deps.Handler.HandleRequest(ctx, req)
	} else {
		ev, err := c.readEvent()
		if err != nil {
			c.UI.Error(err.Error())
			return 1
		}
		if _, err := deps.Handler.HandleEvent(ctx, ev); err != nil {
			c.UI.Error(fmt.Sprintf("Error handling event: %s", err))
			return 1
		}
		out = ev
	}

	enc := json.NewEncoder(c.UI.Stdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		c.UI.Error(fmt.Sprintf("Error writing result: %s", err))
		return 1
	}
	return 0
}

func (c *cmd) readEvent() (*edge.Event, error) {
	var (
		data []byte
		err  error
	)
	if c.event == "-" {
		data, err = io.ReadAll(c.UI.Stdin())
	} else {
		data, err = os.ReadFile(c.event)
	}
	if err != nil {
		return nil, fmt.Errorf("Error reading event: %s", err)
	}

	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("Error parsing event: %s", err)
	}
	ev, err := edge.DecodeEvent(raw)
	if err != nil {
		return nil, fmt.Errorf("Error parsing event: %s", err)
	}
	return ev, nil
}

const usage = `
Usage: edge-rewriter rewrite [options]

  Runs the edge handler on a single request the way CloudFront would invoke
  it and prints the resulting request as JSON.

  Rewrite a CloudFront event:

      $ edge-rewriter rewrite -event event.json

  Rewrite a path with the pass-through configuration:

      $ edge-rewriter rewrite -config passthrough.hcl -uri /widget/1.0.0/home
`
