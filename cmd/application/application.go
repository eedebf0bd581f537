// Package application provides the application interface for hubmap commands
// and the HTTP server.
//
// Commands accept this interface rather than the concrete App type so they
// can be exercised with a Mock:
//
//	mock := &application.Mock{
//	    ClientFunc: func() (hubmap.Client, error) { return fakeClient, nil },
//	}
//	cmd := list.NewCommand(mock)
package application

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/hubmap"
)

// Application provides the application interface that commands need.
//
// Thread Safety: All methods must be safe for concurrent access.
type Application interface {
	// Client returns the shared catalog session, creating it on first use.
	Client() (hubmap.Client, error)

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (table, wide, json, yaml).
	OutputFormat() string

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string
}

// Mock is a configurable Application for tests.
type Mock struct {
	ClientFunc       func() (hubmap.Client, error)
	LoggerFunc       func() *zerolog.Logger
	OutputFormatFunc func() string
	VersionValue     string
}

var _ Application = (*Mock)(nil)

// Client implements Application.
func (m *Mock) Client() (hubmap.Client, error) {
	if m.ClientFunc == nil {
		return nil, nil
	}
	return m.ClientFunc()
}

// Logger implements Application.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc == nil {
		logger := zerolog.Nop()
		return &logger
	}
	return m.LoggerFunc()
}

// OutputFormat implements Application.
func (m *Mock) OutputFormat() string {
	if m.OutputFormatFunc == nil {
		return ""
	}
	return m.OutputFormatFunc()
}

// Version implements Application.
func (m *Mock) Version() string {
	if m.VersionValue == "" {
		return "dev"
	}
	return m.VersionValue
}

// Commit implements Application.
func (m *Mock) Commit() string { return "unknown" }

// Date implements Application.
func (m *Mock) Date() string { return "unknown" }
