// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
)

// Config is used to set up logging.
type Config struct {
	// LogLevel is the minimum level to be logged.
	LogLevel string

	// LogJSON controls outputing logs in a JSON format.
	LogJSON bool

	// Name is the name the returned logger will use to prefix log lines.
	Name string

	// Color controls colorized output on a terminal: auto, on or off.
	Color string
}

// Setup logging from Config, and return an hclog Logger.
//
// Logs may be written to out. When out is nil the logger writes to stderr so
// that command output on stdout stays machine readable.
func Setup(config Config, out io.Writer) (hclog.InterceptLogger, error) {
	if !ValidateLogLevel(config.LogLevel) {
		return nil, fmt.Errorf("Invalid log level: %s. Valid log levels are: %v",
			config.LogLevel,
			allowedLogLevels)
	}

	color, err := NewColorOption(config.Color)
	if err != nil {
		return nil, err
	}
	// Escape codes would corrupt JSON lines.
	if config.LogJSON {
		color = hclog.ColorOff
	}

	if out == nil {
		out = os.Stderr
	}

	logger := hclog.NewInterceptLogger(&hclog.LoggerOptions{
		Level:      LevelFromString(config.LogLevel),
		Name:       config.Name,
		Output:     out,
		JSONFormat: config.LogJSON,
		Color:      color,
	})
	return logger, nil
}
