package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Verbose enables debug output when true
var Verbose bool

// Debugf logs debug messages when Verbose is true
func Debugf(format string, args ...any) {
	if Verbose {
		slog.Debug(fmt.Sprintf(format, args...))
	}
}

// SetupLogging installs the default slog logger writing text to w.
// Debug level is enabled when Verbose is set.
func SetupLogging(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// OpenLogFile opens path for appending, creating parent directories.
func OpenLogFile(path string) (*os.File, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
}
