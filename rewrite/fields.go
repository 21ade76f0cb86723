// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package rewrite

import (
	"errors"
	"strings"
)

var (
	// ErrNotAbsolute is returned for a URI without a leading slash.
	ErrNotAbsolute = errors.New("uri is not an absolute path")

	// ErrNoSegments is returned for a URI that contains nothing but slashes.
	ErrNoSegments = errors.New("uri has no path segments")
)

// VersionSource records where Fields.Version came from.
type VersionSource string

const (
	VersionFromPath    VersionSource = "path"
	VersionFromDefault VersionSource = "default"
	VersionFromDecider VersionSource = "decider"
)

// Fields are the values derived from a request path.
type Fields struct {
	// Segments are the non-empty path segments in order.
	Segments []string

	FeatureType string

	// ClientType is only populated by SchemaClientVersion.
	ClientType string

	// Version is empty when the path has no version segment. The rewriter
	// fills it in before building a URI and sets VersionSource.
	Version       string
	VersionSource VersionSource

	FileName      string
	FileExtension string
}

// ParseFields splits uri into its segments and reads them according to
// schema.
func ParseFields(uri string, schema Schema) (Fields, error) {
	if !strings.HasPrefix(uri, "/") {
		return Fields{}, ErrNotAbsolute
	}

	segments := splitSegments(uri)
	if len(segments) == 0 {
		return Fields{}, ErrNoSegments
	}

	f := Fields{
		Segments:    segments,
		FeatureType: segments[0],
		FileName:    segments[len(segments)-1],
	}
	f.FileExtension = extension(f.FileName)

	versionIdx := 1
	if schema == SchemaClientVersion {
		if len(segments) > 1 {
			f.ClientType = segments[1]
		}
		versionIdx = 2
	}
	if len(segments) > versionIdx {
		f.Version = segments[versionIdx]
		f.VersionSource = VersionFromPath
	}
	return f, nil
}

func splitSegments(uri string) []string {
	parts := strings.Split(uri, "/")
	segments := parts[:0]
	for _, p := range parts {
		if p != "" {
			segments = append(segments, p)
		}
	}
	return segments
}

// extension returns everything after the first dot of name.
func extension(name string) string {
	_, ext, found := strings.Cut(name, ".")
	if !found {
		return ""
	}
	return ext
}
