// Package log configures the process wide slog logger.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dotse/slug"
	slogmulti "github.com/samber/slog-multi"
)

type Level string

const (
	Debug Level = "debug"
	Info  Level = "info"
	Warn  Level = "warn"
	Error Level = "error"
)

func ToSlogLevel(level Level) slog.Level {
	switch Level(strings.ToLower(string(level))) {
	case Debug:
		return slog.LevelDebug
	case Info:
		return slog.LevelInfo
	case Warn:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// MustCreateLogger installs the default logger. Output goes to stdout, and additionally to
// logPath when it is set. The returned func closes the log file.
func MustCreateLogger(logPath string, level Level, version string) func() {
	closer := func() {}

	opts := slug.HandlerOptions{
		HandlerOptions: slog.HandlerOptions{
			Level: ToSlogLevel(level),
		},
	}

	handlers := []slog.Handler{slug.NewHandler(opts, os.Stdout)}

	if logPath != "" {
		logFile, errLogFile := os.Create(logPath)
		if errLogFile != nil {
			panic(fmt.Sprintf("Failed to open logfile: %v", errLogFile))
		}

		closer = func() {
			if errClose := logFile.Close(); errClose != nil {
				panic(fmt.Sprintf("Failed to close log file: %v", errClose))
			}
		}

		handlers = append(handlers, slog.NewJSONHandler(logFile, &opts.HandlerOptions))
	}

	defaultLogger := slog.New(slogmulti.Fanout(handlers...))
	if version != "" {
		defaultLogger = defaultLogger.With("release", version)
	}

	slog.SetDefault(defaultLogger)

	return closer
}

// NewWriterLogger returns a logger writing human readable records to w. Used by the CLI to
// keep diagnostics on stderr while results go to stdout.
func NewWriterLogger(w io.Writer, level Level) *slog.Logger {
	return slog.New(slug.NewHandler(slug.HandlerOptions{
		HandlerOptions: slog.HandlerOptions{Level: ToSlogLevel(level)},
	}, w))
}
