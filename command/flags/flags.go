// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package flags

import (
	"bytes"
	"flag"
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/edge-rewriter/config"
)

// Merge copies every flag defined in src into dst.
func Merge(dst, src *flag.FlagSet) {
	if dst == nil {
		panic("dst cannot be nil")
	}
	if src == nil {
		return
	}
	src.VisitAll(func(f *flag.Flag) {
		dst.Var(f.Value, f.Name, f.Usage)
	})
}

// Usage appends the sorted flag descriptions of each set to txt.
func Usage(txt string, sets ...*flag.FlagSet) string {
	var b bytes.Buffer
	b.WriteString(strings.TrimSpace(txt))
	for _, fs := range sets {
		if fs == nil {
			continue
		}
		var fl []*flag.Flag
		fs.VisitAll(func(f *flag.Flag) { fl = append(fl, f) })
		if len(fl) == 0 {
			continue
		}
		sort.Slice(fl, func(i, j int) bool { return fl[i].Name < fl[j].Name })

		b.WriteString("\n\nCommand Options:")
		for _, f := range fl {
			name, usage := flag.UnquoteUsage(f)
			if name != "" {
				fmt.Fprintf(&b, "\n\n  -%s=<%s>", f.Name, name)
			} else {
				fmt.Fprintf(&b, "\n\n  -%s", f.Name)
			}
			if f.DefValue != "" && f.DefValue != "false" {
				fmt.Fprintf(&b, "\n     Default: %s", f.DefValue)
			}
			for _, line := range strings.Split(usage, "\n") {
				fmt.Fprintf(&b, "\n     %s", line)
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// FlagMapValue is a flag.Value collecting repeated key=value arguments.
type FlagMapValue map[string]string

func (h *FlagMapValue) String() string {
	if h == nil || len(*h) == 0 {
		return ""
	}
	keys := make([]string, 0, len(*h))
	for k := range *h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+(*h)[k])
	}
	return strings.Join(parts, ",")
}

func (h *FlagMapValue) Set(value string) error {
	k, v, ok := strings.Cut(value, "=")
	if !ok {
		return fmt.Errorf("missing \"=\" value in argument: %s", value)
	}
	if *h == nil {
		*h = make(map[string]string)
	}
	(*h)[k] = v
	return nil
}

// Merge copies every entry of h missing from dst.
func (h FlagMapValue) Merge(dst map[string]string) {
	for k, v := range h {
		if _, ok := dst[k]; !ok {
			dst[k] = v
		}
	}
}

// ConfigFlags selects the configuration file a command runs with.
type ConfigFlags struct {
	ConfigFile string
}

func (f *ConfigFlags) Flags() *flag.FlagSet {
	fs := flag.NewFlagSet("", flag.ContinueOnError)
	fs.StringVar(&f.ConfigFile, "config", "",
		"Path to an HCL or JSON configuration file. Without one the built-in\n"+
			"defaults are used.")
	return fs
}

// Load builds the configuration selected by the flags.
func (f *ConfigFlags) Load() (*config.RuntimeConfig, error) {
	return config.Load(f.ConfigFile)
}
