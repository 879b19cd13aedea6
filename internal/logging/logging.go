// Package logging configures the process-wide structured logger.
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/x31337/extsync/internal/branding"
)

// New returns a logger writing to w at the named level ("debug", "info",
// "warn", "error") and installs it as the package default for charmbracelet/log.
func New(w io.Writer, level string) (*log.Logger, error) {
	lvl := log.InfoLevel
	if level = strings.TrimSpace(level); level != "" {
		parsed, err := log.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("parsing log level: %w", err)
		}
		lvl = parsed
	}

	logger := log.NewWithOptions(w, log.Options{
		Prefix:          branding.CLIName(),
		Level:           lvl,
		ReportTimestamp: lvl == log.DebugLevel,
	})
	log.SetDefault(logger)
	return logger, nil
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}
