// Package logger builds the slog loggers used across hookkit. Records are
// rendered by a charmbracelet/log handler.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	charm "github.com/charmbracelet/log"
)

// Formats accepted by Options.Format.
const (
	FormatText   = "text"
	FormatJSON   = "json"
	FormatLogfmt = "logfmt"
)

// Options configures a logger.
type Options struct {
	Level  string    // debug, info, warn, error. Default: info
	Format string    // text, json or logfmt. Default: text
	File   string    // append to this file instead of Output
	Output io.Writer // default os.Stderr
	Prefix string
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// New builds a logger. The returned closer releases the log file, if any,
// and is never nil.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	level := charm.InfoLevel
	if opts.Level != "" {
		l, err := charm.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return nil, nopCloser{}, fmt.Errorf("log level %q: %w", opts.Level, err)
		}
		level = l
	}

	formatter, err := parseFormat(opts.Format)
	if err != nil {
		return nil, nopCloser{}, err
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, nopCloser{}, err
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nopCloser{}, err
		}
		out, closer = f, f
	}

	h := charm.NewWithOptions(out, charm.Options{
		Level:           level,
		Formatter:       formatter,
		Prefix:          opts.Prefix,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
	})
	return slog.New(h), closer, nil
}

func parseFormat(s string) (charm.Formatter, error) {
	switch strings.ToLower(s) {
	case "", FormatText:
		return charm.TextFormatter, nil
	case FormatJSON:
		return charm.JSONFormatter, nil
	case FormatLogfmt:
		return charm.LogfmtFormatter, nil
	default:
		return 0, fmt.Errorf("unknown log format %q", s)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
