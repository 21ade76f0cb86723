// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package flags

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFlagMapValue_Set(t *testing.T) {
	t.Run("missing =", func(t *testing.T) {
		f := new(FlagMapValue)
		require.Error(t, f.Set("accept"))
	})

	t.Run("sets and overwrites", func(t *testing.T) {
		f := new(FlagMapValue)
		require.NoError(t, f.Set("accept=text/html"))
		require.NoError(t, f.Set("user-agent=curl"))
		require.NoError(t, f.Set("accept=application/json"))
		require.NoError(t, f.Set("cookie=a=b"))

		require.Equal(t, FlagMapValue{
			"accept":     "application/json",
			"user-agent": "curl",
			"cookie":     "a=b",
		}, *f)
		require.Equal(t, "accept=application/json,cookie=a=b,user-agent=curl", f.String())
	})
}

func TestFlagMapValue_Merge(t *testing.T) {
	cases := map[string]struct {
		src FlagMapValue
		dst map[string]string
		exp map[string]string
	}{
		"empty source and destination": {},
		"empty source": {
			dst: map[string]string{"key": "val"},
			exp: map[string]string{"key": "val"},
		},
		"overlapping keys": {
			src: FlagMapValue{"key1": "val1", "key2": "val2"},
			dst: map[string]string{"key1": "val2", "key3": "val3"},
			exp: map[string]string{"key1": "val2", "key2": "val2", "key3": "val3"},
		},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			c.src.Merge(c.dst)
			require.Equal(t, c.exp, c.dst)
		})
	}
}

func TestUsage(t *testing.T) {
	fs := flag.NewFlagSet("", flag.ContinueOnError)
	fs.String("uri", "", "The `path` to rewrite.")
	fs.Bool("json", false, "Print JSON.")

	cf := &ConfigFlags{}
	out := Usage("\nUsage: edge-rewriter rewrite [options]\n", fs, cf.Flags())

	require.Equal(t, `Usage: edge-rewriter rewrite [options]

Command Options:

  -json
     Print JSON.

  -uri=<path>
     The path to rewrite.

Command Options:

  -config=<string>
     Path to an HCL or JSON configuration file. Without one the built-in
     defaults are used.`, out)
}

func TestMerge(t *testing.T) {
	dst := flag.NewFlagSet("", flag.ContinueOnError)
	cf := &ConfigFlags{}
	Merge(dst, cf.Flags())
	Merge(dst, nil)

	require.NoError(t, dst.Parse([]string{"-config", "edge.hcl"}))
	require.Equal(t, "edge.hcl", cf.ConfigFile)
}
