// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package logging

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// allowedLogLevels is ordered from most to least verbose. ERR is accepted as
// an alias of ERROR.
var allowedLogLevels = []string{"TRACE", "DEBUG", "INFO", "WARN", "ERR", "ERROR"}

var logLevels = map[string]hclog.Level{
	"TRACE": hclog.Trace,
	"DEBUG": hclog.Debug,
	"INFO":  hclog.Info,
	"WARN":  hclog.Warn,
	"ERR":   hclog.Error,
	"ERROR": hclog.Error,
}

var colorOptions = map[string]hclog.ColorOption{
	"":         hclog.AutoColor,
	"auto":     hclog.AutoColor,
	"on":       hclog.ForceColor,
	"always":   hclog.ForceColor,
	"enabled":  hclog.ForceColor,
	"off":      hclog.ColorOff,
	"never":    hclog.ColorOff,
	"disabled": hclog.ColorOff,
}

// AllowedLogLevels returns a copy of the accepted log_level values.
func AllowedLogLevels() []string {
	return append([]string(nil), allowedLogLevels...)
}

// ValidateLogLevel reports whether level is one of AllowedLogLevels, ignoring
// case.
func ValidateLogLevel(level string) bool {
	_, ok := logLevels[strings.ToUpper(level)]
	return ok
}

// LevelFromString maps a log_level value to an hclog level. Unknown values
// map to hclog.NoLevel.
func LevelFromString(level string) hclog.Level {
	if l, ok := logLevels[strings.ToUpper(level)]; ok {
		return l
	}
	return hclog.NoLevel
}

// NewColorOption parses a log_color value.
func NewColorOption(v string) (hclog.ColorOption, error) {
	if c, ok := colorOptions[strings.ToLower(v)]; ok {
		return c, nil
	}
	return hclog.ColorOff, fmt.Errorf("invalid color value %v, must be one of: auto,on,off", v)
}
