// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package cli

import (
	"io"
	"os"

	mcli "github.com/mitchellh/cli"
)

// Ui implements the mitchellh/cli.Ui interface, while exposing the underlying
// streams so commands can emit JSON and read events from stdin.
type Ui interface {
	mcli.Ui
	Stdin() io.Reader
	Stdout() io.Writer
	Stderr() io.Writer
}

// BasicUI augments mitchellh/cli.BasicUi by exposing the underlying streams.
type BasicUI struct {
	mcli.BasicUi
}

// NewBasicUI returns a Ui bound to the process streams.
func NewBasicUI() *BasicUI {
	return &BasicUI{BasicUi: mcli.BasicUi{
		Reader:      os.Stdin,
		Writer:      os.Stdout,
		ErrorWriter: os.Stderr,
	}}
}

func (b *BasicUI) Stdin() io.Reader {
	return b.BasicUi.Reader
}

func (b *BasicUI) Stdout() io.Writer {
	return b.BasicUi.Writer
}

func (b *BasicUI) Stderr() io.Writer {
	return b.BasicUi.ErrorWriter
}

// MockUI records output for tests.
type MockUI struct {
	*mcli.MockUi
}

func NewMockUI() *MockUI {
	return &MockUI{MockUi: mcli.NewMockUi()}
}

func (m *MockUI) Stdin() io.Reader {
	return m.InputReader
}

func (m *MockUI) Stdout() io.Writer {
	return m.OutputWriter
}

func (m *MockUI) Stderr() io.Writer {
	return m.ErrorWriter
}
