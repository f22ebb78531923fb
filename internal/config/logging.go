package config

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// NewLogger writes human-readable records to console. When file is non-nil
// the same records also go there as JSON tagged with the process name, so
// server and CLI runs can share one log file.
func NewLogger(process string, console, file io.Writer, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	consoleHandler := slog.NewTextHandler(console, opts)
	if file == nil {
		return slog.New(consoleHandler)
	}

	fileHandler := slog.NewJSONHandler(file, opts).WithAttrs([]slog.Attr{
		slog.String("process", process),
		slog.Int("pid", os.Getpid()),
	})
	return slog.New(slogmulti.Fanout(consoleHandler, fileHandler))
}

// SetupLogger logs to stderr and, if logFile is set, appends JSON records to
// it. An unopenable file degrades to stderr only. The returned func closes
// the file.
func SetupLogger(process, logFile string, level slog.Level) (*slog.Logger, func() error) {
	if logFile == "" {
		return NewLogger(process, os.Stderr, nil, level), func() error { return nil }
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		logger := NewLogger(process, os.Stderr, nil, level)
		logger.Error("failed to open log file, using stderr only", "error", err, "file", logFile)
		return logger, func() error { return nil }
	}
	return NewLogger(process, os.Stderr, file, level), file.Close
}
