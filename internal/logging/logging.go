// Package logging builds the diagnostic logger. Logs go to stderr so stdout
// stays reserved for command output.
package logging

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// Options configures New.
type Options struct {
	Verbose bool
	JSON    bool
}

// New returns a logger writing to w. It logs warnings and errors by default
// and everything with Verbose. JSON switches to one JSON object per line.
func New(w io.Writer, opts Options) *log.Logger {
	level := log.WarnLevel
	if opts.Verbose {
		level = log.DebugLevel
	}

	logger := log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: opts.Verbose || opts.JSON,
		TimeFormat:      time.RFC3339,
		Prefix:          "bdedit",
	})
	if opts.JSON {
		logger.SetFormatter(log.JSONFormatter)
	}
	return logger
}

// Discard returns a logger that drops everything. Used as the default when
// a caller does not supply one.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}
