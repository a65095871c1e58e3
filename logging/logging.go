// ABOUTME: Structured logger construction for all components
// ABOUTME: Builds a charmbracelet/log logger from level and format settings
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/harperreed/advisor-crm/config"
)

// New returns a logger writing to w. Unknown levels fall back to info.
func New(w io.Writer, cfg config.LogConfig) *log.Logger {
	logger := log.New(w)
	logger.SetLevel(ParseLevel(cfg.Level))
	logger.SetReportTimestamp(true)
	if cfg.JSON {
		logger.SetFormatter(log.JSONFormatter)
	}
	return logger
}

// Default logs to stderr so command output on stdout stays clean.
func Default(cfg config.LogConfig) *log.Logger {
	return New(os.Stderr, cfg)
}

// Discard returns a logger that drops everything, for tests.
func Discard() *log.Logger {
	return log.New(io.Discard)
}

// ParseLevel maps a level name onto a log level.
func ParseLevel(level string) log.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	case "fatal":
		return log.FatalLevel
	default:
		return log.InfoLevel
	}
}
