// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package validate

import (
	"flag"
	"fmt"

	"github.com/hashicorp/edge-rewriter/command/cli"
	"github.com/hashicorp/edge-rewriter/command/flags"
	"github.com/hashicorp/edge-rewriter/config"
)

func New(ui cli.Ui) *cmd {
	c := &cmd{UI: ui}
	c.init()
	return c
}

type cmd struct {
	UI    cli.Ui
	flags *flag.FlagSet
	usage string
	quiet bool
}

func (c *cmd) init() {
	c.flags = flag.NewFlagSet("", flag.ContinueOnError)
	c.flags.BoolVar(&c.quiet, "quiet", false,
		"When given, a successful run will produce no output.")
	c.usage = flags.Usage(usage, c.flags)
}

func (c *cmd) Synopsis() string {
	return "Validate config files"
}

func (c *cmd) Help() string {
	return c.usage
}

func (c *cmd) Run(args []string) int {
	if err := c.flags.Parse(args); err != nil {
		c.UI.Error(err.Error())
		return 1
	}

	files := c.flags.Args()
	if len(files) < 1 {
		c.UI.Error("Must specify at least one config file")
		return 1
	}

	failed := false
	for _, f := range files {
		rt, err := config.Load(f)
		if err != nil {
			c.UI.Error(fmt.Sprintf("Config validation failed for %s: %v", f, err))
			failed = true
			continue
		}
		for _, w := range rt.Warnings {
			c.UI.Warn(fmt.Sprintf("%s: %s", f, w))
		}
	}
	if failed {
		return 1
	}

	if !c.quiet {
		c.UI.Output("Configuration is valid!")
	}
	return 0
}

const usage = `
Usage: edge-rewriter validate [options] FILE...

  Performs a thorough sanity test on configuration files. For each file the
  rewrite rules, the custom header, the weights backend and the serve settings
  are checked. Settings that would be rejected by CloudFront when the function
  is deployed, such as writing a read-only header, are reported as warnings.

  Returns 0 if every file is valid, 1 otherwise.

      $ edge-rewriter validate edge.hcl passthrough.hcl
`
