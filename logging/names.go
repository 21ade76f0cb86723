// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package logging

// Names used with hclog.Logger.Named for each subsystem.
const (
	ConfigReload string = "config"
	EdgeHandler  string = "edge"
	EdgeServer   string = "edge_server"
	Rewrite      string = "rewrite"
	Telemetry    string = "telemetry"
	Watcher      string = "watcher"
	Weights      string = "weights"
)
