// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package validate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hashicorp/edge-rewriter/command/cli"
	"github.com/hashicorp/edge-rewriter/testutil"
)

func TestValidateCommand_noTabs(t *testing.T) {
	require.NotContains(t, New(cli.NewMockUI()).Help(), "\t")
}

func TestValidateCommand_FailOnMissingArgs(t *testing.T) {
	ui := cli.NewMockUI()
	require.Equal(t, 1, New(ui).Run(nil))
	require.Contains(t, ui.ErrorWriter.String(), "Must specify at least one config file")
}

func TestValidateCommand_Valid(t *testing.T) {
	fp := testutil.WriteFile(t, "edge.json", `{"default_version": "2.0.0", "schema": "client-version"}`)

	ui := cli.NewMockUI()
	require.Equal(t, 0, New(ui).Run([]string{fp}), ui.ErrorWriter.String())
	require.Contains(t, ui.OutputWriter.String(), "Configuration is valid!")
}

func TestValidateCommand_Quiet(t *testing.T) {
	fp := testutil.WriteFile(t, "edge.hcl", `mode = "rewrite"`)

	ui := cli.NewMockUI()
	require.Equal(t, 0, New(ui).Run([]string{"-quiet", fp}))
	require.Empty(t, ui.OutputWriter.String())
}

func TestValidateCommand_ReadOnlyHeaderWarning(t *testing.T) {
	fp := testutil.WriteFile(t, "passthrough.hcl", `mode = "passthrough"`)

	ui := cli.NewMockUI()
	require.Equal(t, 0, New(ui).Run([]string{fp}))
	require.Contains(t, ui.ErrorWriter.String(), `header "x-edge-demo" is read-only`)
	require.Contains(t, ui.OutputWriter.String(), "Configuration is valid!")
}

func TestValidateCommand_Invalid(t *testing.T) {
	good := testutil.WriteFile(t, "good.hcl", ``)
	bad := testutil.WriteFile(t, "bad.hcl", `
mode = "sideways"
weights {
  backend = "s3"
}
`)

	ui := cli.NewMockUI()
	require.Equal(t, 1, New(ui).Run([]string{good, bad}))
	out := ui.ErrorWriter.String()
	require.Contains(t, out, "Config validation failed for "+bad)
	require.Contains(t, out, `unknown mode "sideways"`)
	require.Contains(t, out, "weights.bucket is required")
	require.NotContains(t, out, good+":")
}
