// Package logger provides structured logging for the extraction pipeline.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Level represents the logging level.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Logger is a structured logger handler.
type Logger struct {
	logger *slog.Logger
}

// Config holds logger configuration.
type Config struct {
	Level  Level
	Format string // "json" or "text"
	Output io.Writer
}

// New creates a new logger with the given configuration.
func New(config Config) *Logger {
	if config.Output == nil {
		config.Output = os.Stdout
	}

	var level slog.Level
	switch strings.ToLower(string(config.Level)) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	if strings.ToLower(config.Format) == "json" {
		handler = slog.NewJSONHandler(config.Output, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(config.Output, &slog.HandlerOptions{Level: level})
	}

	return &Logger{logger: slog.New(handler)}
}

// Default creates a logger with default configuration.
func Default() *Logger {
	return New(Config{Level: LevelInfo, Format: "json", Output: os.Stdout})
}

func (l *Logger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

// With adds attributes to the logger.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{logger: l.logger.With(args...)}
}

// WithGroup adds a group to the logger.
func (l *Logger) WithGroup(name string) *Logger {
	return &Logger{logger: l.logger.WithGroup(name)}
}

type ctxKey string

const (
	tenantIDKey      ctxKey = "tenant_id"
	taskIDKey        ctxKey = "task_id"
	processNumberKey ctxKey = "process_number"
)

// WithTenant stashes a tenant id on the context for later log enrichment.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantIDKey, tenantID)
}

// WithTask stashes a task id on the context for later log enrichment.
func WithTask(ctx context.Context, taskID string) context.Context {
	return context.WithValue(ctx, taskIDKey, taskID)
}

// WithProcessNumber stashes a process number on the context for later log enrichment.
func WithProcessNumber(ctx context.Context, processNumber string) context.Context {
	return context.WithValue(ctx, processNumberKey, processNumber)
}

// TenantID extracts the tenant id from context and adds it to the log.
func (l *Logger) TenantID(ctx context.Context) *Logger {
	if v := ctx.Value(tenantIDKey); v != nil {
		return l.With("tenant_id", v)
	}
	return l
}

// TaskID extracts the task id from context and adds it to the log.
func (l *Logger) TaskID(ctx context.Context) *Logger {
	if v := ctx.Value(taskIDKey); v != nil {
		return l.With("task_id", v)
	}
	return l
}

// ProcessNumber extracts the process number from context and adds it to the log.
func (l *Logger) ProcessNumber(ctx context.Context) *Logger {
	if v := ctx.Value(processNumberKey); v != nil {
		return l.With("process_number", v)
	}
	return l
}

// Scoped returns a logger enriched with every identifier present on ctx.
func (l *Logger) Scoped(ctx context.Context) *Logger {
	return l.TenantID(ctx).TaskID(ctx).ProcessNumber(ctx)
}

// LogError logs an error with whatever scoping context is available.
// Credential or other secret material must never be passed as msg/args here.
func (l *Logger) LogError(ctx context.Context, err error, msg string) {
	l.Scoped(ctx).Error(msg, "error", err.Error(), "error_type", fmt.Sprintf("%T", err))
}

var globalLogger *Logger

// InitGlobalLogger initializes the global logger.
func InitGlobalLogger(config Config) {
	globalLogger = New(config)
}

func Debug(msg string, args ...any) {
	if globalLogger != nil {
		globalLogger.Debug(msg, args...)
	}
}

func Info(msg string, args ...any) {
	if globalLogger != nil {
		globalLogger.Info(msg, args...)
	}
}

func Warn(msg string, args ...any) {
	if globalLogger != nil {
		globalLogger.Warn(msg, args...)
	}
}

func Error(msg string, args ...any) {
	if globalLogger != nil {
		globalLogger.Error(msg, args...)
	}
}

// With adds attributes to the global logger.
func With(args ...any) *Logger {
	if globalLogger != nil {
		return globalLogger.With(args...)
	}
	return Default().With(args...)
}
