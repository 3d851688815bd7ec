// Package logging builds the process logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

const Prefix = "taskflow"

// Options configures New.
type Options struct {
	Level           string
	Output          io.Writer
	ReportTimestamp bool
}

// DefaultOptions logs warnings and above to stderr.
func DefaultOptions() Options {
	return Options{
		Level:           "warn",
		Output:          os.Stderr,
		ReportTimestamp: true,
	}
}

func New(opts Options) *log.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	return log.NewWithOptions(out, log.Options{
		Level:           ParseLevel(opts.Level),
		ReportTimestamp: opts.ReportTimestamp,
		Prefix:          Prefix,
	})
}

// ParseLevel maps a level name to a log.Level. Unknown names mean warn.
func ParseLevel(level string) log.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DebugLevel
	case "info":
		return log.InfoLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.WarnLevel
	}
}
