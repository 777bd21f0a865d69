// Package logging builds the charmbracelet loggers shared by every netpong
// component.
package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/log"
)

// New creates a timestamped logger writing to stderr.
// An unknown level falls back to info.
func New(prefix, level string) *log.Logger {
	return NewWithWriter(os.Stderr, prefix, level)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, prefix, level string) *log.Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          prefix,
		Level:           lvl,
	})
}

// Discard returns a logger that drops everything. Used when a component is
// built without a logger.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

// OrDiscard returns l, or a discarding logger when l is nil.
func OrDiscard(l *log.Logger) *log.Logger {
	if l == nil {
		return Discard()
	}
	return l
}

// Slog exposes l through the standard slog API for libraries that want one.
func Slog(l *log.Logger) *slog.Logger {
	return slog.New(l)
}
