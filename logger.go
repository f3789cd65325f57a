package findergo

import (
	"log/slog"
	"os"

	"github.com/hupe1980/findergo/model"
)

// Logger wraps slog.Logger with index-specific context helpers so that log
// lines carry consistent field names across the codebase.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output. This is the
// default: the index is an embedded library and must be silent unless the
// host opts in.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithFile tags the logger with a file identity and path.
func (l *Logger) WithFile(id model.FileID, path string) *Logger {
	return &Logger{
		Logger: l.Logger.With("file_id", id.String(), "path", path),
	}
}

// WithGeneration tags the logger with a generation sequence number.
func (l *Logger) WithGeneration(seq uint64) *Logger {
	return &Logger{
		Logger: l.Logger.With("generation", seq),
	}
}
