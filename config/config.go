// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package config loads the rewriter configuration from HCL or JSON files and
// turns it into a validated RuntimeConfig.
package config

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl"
	"github.com/hashicorp/hcl/hcl/token"
)

// Config is the configuration as written in a file. Every field is optional;
// Build fills in defaults.
type Config struct {
	Mode             string   `hcl:"mode"`
	Schema           string   `hcl:"schema"`
	DefaultVersion   string   `hcl:"default_version"`
	SDKFileName      string   `hcl:"sdk_file_name"`
	IndexFileName    string   `hcl:"index_file_name"`
	ErrorURI         string   `hcl:"error_uri"`
	StaticExtensions []string `hcl:"static_extensions"`

	// EventType is the CloudFront event the function is attached to.
	EventType string `hcl:"event_type"`

	Header    Header    `hcl:"header"`
	Weights   Weights   `hcl:"weights"`
	Routing   Routing   `hcl:"routing"`
	Telemetry Telemetry `hcl:"telemetry"`
	Serve     Serve     `hcl:"serve"`

	LogLevel string `hcl:"log_level"`
	LogJSON  bool   `hcl:"log_json"`
	LogColor string `hcl:"log_color"`

	UnusedKeys map[string][]token.Pos `hcl:",unusedKeyPositions"`
}

// Header names the custom header written on every request. It cannot be
// turned off; an empty name selects the default for the mode.
type Header struct {
	Name  string `hcl:"name"`
	Value string `hcl:"value"`

	UnusedKeys map[string][]token.Pos `hcl:",unusedKeyPositions"`
}

type Weights struct {
	Backend      string `hcl:"backend"`
	Bucket       string `hcl:"bucket"`
	ObjectName   string `hcl:"object_name"`
	Endpoint     string `hcl:"endpoint"`
	Region       string `hcl:"region"`
	UsePathStyle bool   `hcl:"use_path_style"`

	AccessKeyID     string `hcl:"access_key_id"`
	SecretAccessKey string `hcl:"secret_access_key"`
	SessionToken    string `hcl:"session_token"`
	Anonymous       bool   `hcl:"anonymous"`

	CacheTTL string `hcl:"cache_ttl"`
	Redis    Redis  `hcl:"redis"`

	UnusedKeys map[string][]token.Pos `hcl:",unusedKeyPositions"`
}

type Redis struct {
	Addr      string `hcl:"addr"`
	Password  string `hcl:"password"`
	DB        int    `hcl:"db"`
	KeyPrefix string `hcl:"key_prefix"`
	TTL       string `hcl:"ttl"`

	UnusedKeys map[string][]token.Pos `hcl:",unusedKeyPositions"`
}

type Routing struct {
	// Weighted picks a version for unversioned requests from the feature
	// type's weights object.
	Weighted bool `hcl:"weighted"`

	UnusedKeys map[string][]token.Pos `hcl:",unusedKeyPositions"`
}

type Telemetry struct {
	Disable                 bool     `hcl:"disable"`
	MetricsPrefix           string   `hcl:"metrics_prefix"`
	PrometheusRetentionTime string   `hcl:"prometheus_retention_time"`
	StatsiteAddr            string   `hcl:"statsite_address"`
	StatsdAddr              string   `hcl:"statsd_address"`
	DogstatsdAddr           string   `hcl:"dogstatsd_addr"`
	DogstatsdTags           []string `hcl:"dogstatsd_tags"`

	UnusedKeys map[string][]token.Pos `hcl:",unusedKeyPositions"`
}

type Serve struct {
	HTTPAddr    string `hcl:"http_addr"`
	Origin      string `hcl:"origin"`
	MetricsPath string `hcl:"metrics_path"`

	UnusedKeys map[string][]token.Pos `hcl:",unusedKeyPositions"`
}

// Parse decodes an HCL or JSON document.
func Parse(contents string) (Config, error) {
	var c Config
	if err := hcl.Decode(&c, contents); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	return c, nil
}

// LoadFile reads and decodes the file at path.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	c, err := Parse(string(data))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Load reads path, or uses an empty configuration when path is empty, and
// builds it.
func Load(path string) (*RuntimeConfig, error) {
	var c Config
	if path != "" {
		var err error
		if c, err = LoadFile(path); err != nil {
			return nil, err
		}
	}
	return Build(c)
}
