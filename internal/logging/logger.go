package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/clementcyberknight/db-stress-test/internal/config"
)

type Logger struct {
	*slog.Logger
	config *config.LoggingConfig
}

// NewLogger creates a new structured logger using slog
func NewLogger(cfg *config.LoggingConfig) *Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var writer io.Writer
	switch cfg.Output {
	case "stdout":
		writer = os.Stdout
	case "stderr":
		writer = os.Stderr
	default:
		if cfg.Output != "" {
			file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
			if err == nil {
				writer = file
			} else {
				writer = os.Stderr
				slog.Warn("Failed to open log file, using stderr", "error", err, "file", cfg.Output)
			}
		} else {
			writer = os.Stderr
		}
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Customize timestamp format
			if a.Key == slog.TimeKey {
				a.Value = slog.StringValue(a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(writer, opts)
	case "text", "console":
		handler = slog.NewTextHandler(writer, opts)
	default:
		handler = slog.NewJSONHandler(writer, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
		config: cfg,
	}
}

// WithField creates a new logger with a single additional field
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{
		Logger: l.Logger.With(key, value),
		config: l.config,
	}
}

// WithError creates a new logger with an error field
func (l *Logger) WithError(err error) *Logger {
	return &Logger{
		Logger: l.Logger.With("error", err.Error()),
		config: l.config,
	}
}

// StageStart logs the beginning of a load stage
func (l *Logger) StageStart(concurrency, requests int) {
	l.Info("Stage started",
		"concurrency", concurrency,
		"requests", requests,
	)
}

// StageEnd logs the outcome of a load stage
func (l *Logger) StageEnd(concurrency int, throughput float64, errorRate float64, critical bool, elapsed time.Duration) {
	level := slog.LevelInfo
	if critical {
		level = slog.LevelWarn
	}

	l.Log(context.Background(), level, "Stage completed",
		"concurrency", concurrency,
		"throughput", throughput,
		"error_rate", errorRate,
		"critical_failure", critical,
		"duration_ms", elapsed.Milliseconds(),
	)
}
