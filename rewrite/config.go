// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package rewrite

import (
	"fmt"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/hashicorp/go-multierror"
)

// Mode selects how much of the rewrite procedure runs.
type Mode string

const (
	// ModeRewrite runs the full SDK / static / app decision.
	ModeRewrite Mode = "rewrite"

	// ModePassthrough leaves the URI alone. Only the custom header is written.
	ModePassthrough Mode = "passthrough"
)

// Schema describes which path segments carry the client type and version.
type Schema string

const (
	// SchemaVersion reads /{feature}/{version}/...
	SchemaVersion Schema = "version"

	// SchemaClientVersion reads /{feature}/{client}/{version}/...
	SchemaClientVersion Schema = "client-version"
)

const (
	DefaultVersion       = "1.0.0"
	DefaultSDKFileName   = "test-sdk.js"
	DefaultIndexFileName = "index.html"
	DefaultErrorURI      = "/widget/1.0.0/error.html"
)

// DefaultStaticExtensions are served byte for byte without rewriting.
var DefaultStaticExtensions = []string{
	"css",
	"js",
	"png",
	"jpg",
	"jpeg",
	"gif",
	"svg",
	"ico",
	"woff",
	"woff2",
	"ttf",
	"eot",
}

// Config is the immutable configuration record a Rewriter is built from.
type Config struct {
	Mode   Mode
	Schema Schema

	// DefaultVersion is used when the path carries no version segment.
	DefaultVersion string

	// SDKFileName is the reserved asset name that is always routed to the
	// versioned sdk directory.
	SDKFileName string

	// IndexFileName is the document application routes are rewritten to.
	IndexFileName string

	// ErrorURI replaces the URI whenever rewriting fails.
	ErrorURI string

	// StaticExtensions is the set of file extensions passed through
	// unchanged. Matching is exact and case sensitive.
	StaticExtensions mapset.Set[string]
}

// DefaultConfig returns the configuration the original edge function was
// deployed with.
func DefaultConfig() Config {
	return Config{
		Mode:             ModeRewrite,
		Schema:           SchemaVersion,
		DefaultVersion:   DefaultVersion,
		SDKFileName:      DefaultSDKFileName,
		IndexFileName:    DefaultIndexFileName,
		ErrorURI:         DefaultErrorURI,
		StaticExtensions: mapset.NewThreadUnsafeSet(DefaultStaticExtensions...),
	}
}

// IsStatic reports whether ext names a static asset.
func (c Config) IsStatic(ext string) bool {
	if ext == "" || c.StaticExtensions == nil {
		return false
	}
	return c.StaticExtensions.Contains(ext)
}

// Validate returns every problem with the configuration.
func (c Config) Validate() error {
	var result error
	switch c.Mode {
	case ModeRewrite, ModePassthrough:
	default:
		result = multierror.Append(result, fmt.Errorf("unknown mode %q, must be one of: %s, %s",
			c.Mode, ModeRewrite, ModePassthrough))
	}
	switch c.Schema {
	case SchemaVersion, SchemaClientVersion:
	default:
		result = multierror.Append(result, fmt.Errorf("unknown schema %q, must be one of: %s, %s",
			c.Schema, SchemaVersion, SchemaClientVersion))
	}
	if c.DefaultVersion == "" || strings.Contains(c.DefaultVersion, "/") {
		result = multierror.Append(result, fmt.Errorf("default version %q must be a single path segment", c.DefaultVersion))
	}
	if c.SDKFileName == "" || strings.Contains(c.SDKFileName, "/") {
		result = multierror.Append(result, fmt.Errorf("sdk file name %q must be a single path segment", c.SDKFileName))
	}
	if c.IndexFileName == "" || strings.Contains(c.IndexFileName, "/") {
		result = multierror.Append(result, fmt.Errorf("index file name %q must be a single path segment", c.IndexFileName))
	}
	if !strings.HasPrefix(c.ErrorURI, "/") {
		result = multierror.Append(result, fmt.Errorf("error URI %q must be an absolute path", c.ErrorURI))
	}
	if c.StaticExtensions != nil {
		c.StaticExtensions.Each(func(ext string) bool {
			if ext == "" || strings.HasPrefix(ext, ".") {
				result = multierror.Append(result, fmt.Errorf("static extension %q must be non-empty and have no leading dot", ext))
			}
			return false
		})
	}
	return result
}
