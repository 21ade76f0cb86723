// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package version

import (
	"encoding/json"
	"flag"
	"fmt"
	"runtime"
	"strings"

	"github.com/hashicorp/edge-rewriter/command/cli"
	"github.com/hashicorp/edge-rewriter/command/flags"
	"github.com/hashicorp/edge-rewriter/version"
)

func New(ui cli.Ui) *cmd {
	c := &cmd{UI: ui}
	c.init()
	return c
}

type cmd struct {
	UI     cli.Ui
	flags  *flag.FlagSet
	format string
	usage  string
}

func (c *cmd) init() {
	c.flags = flag.NewFlagSet("", flag.ContinueOnError)
	c.flags.StringVar(&c.format, "format", PrettyFormat,
		fmt.Sprintf("Output format {%s}", strings.Join(GetSupportedFormats(), "|")))
	c.usage = flags.Usage(usage, c.flags)
}

const (
	PrettyFormat = "pretty"
	JSONFormat   = "json"
)

func GetSupportedFormats() []string {
	return []string{PrettyFormat, JSONFormat}
}

// VersionInfo is the JSON form of the version output.
type VersionInfo struct {
	Version    string
	Revision   string
	Prerelease string
	GoVersion  string
}

func (c *cmd) Synopsis() string {
	return "Prints the edge-rewriter version"
}

func (c *cmd) Help() string {
	return c.usage
}

func (c *cmd) Run(args []string) int {
	if err := c.flags.Parse(args); err != nil {
		return 1
	}

	info := VersionInfo{
		Version:    version.Version,
		Revision:   version.GitCommit,
		Prerelease: version.VersionPrerelease,
		GoVersion:  runtime.Version(),
	}

	switch c.format {
	case PrettyFormat:
		c.UI.Output(fmt.Sprintf("edge-rewriter %s", version.GetHumanVersion()))
		if info.Revision != "" {
			c.UI.Output(fmt.Sprintf("Revision %s", info.Revision))
		}
		c.UI.Output(fmt.Sprintf("Built with %s", info.GoVersion))
	case JSONFormat:
		out, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			c.UI.Error(fmt.Sprintf("Error marshaling version info: %s", err))
			return 1
		}
		c.UI.Output(string(out))
	default:
		c.UI.Error(fmt.Sprintf("Invalid format %q, must be one of %v", c.format, GetSupportedFormats()))
		return 1
	}
	return 0
}

const usage = `
Usage: edge-rewriter version [options]

  Prints the edge-rewriter version.
`
