// Package logger provides a structured, context-aware logging interface.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// Constants for logging operations.
const (
	callerSkipFrames = 3 // getCaller -> log -> level method -> actual caller
	requestIDKey     = "request_id"
)

// Logger defines the logging interface.
type Logger interface {
	Info(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
	Debug(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Fatal(ctx context.Context, msg string, fields ...Field)

	Named(name string) Logger
}

// Field represents a key-value pair for structured logging.
type Field struct {
	Key   string
	Value any
}

// Field constructors.
func String(key, val string) Field                 { return Field{Key: key, Value: val} }
func Int(key string, val int) Field                { return Field{Key: key, Value: val} }
func Float64(key string, val float64) Field        { return Field{Key: key, Value: val} }
func Bool(key string, val bool) Field              { return Field{Key: key, Value: val} }
func Duration(key string, val time.Duration) Field { return Field{Key: key, Value: val.String()} }
func Any(key string, val any) Field                { return Field{Key: key, Value: val} }
func Error(err error) Field                        { return Field{Key: "error", Value: err} }

type ctxKey struct{}

// WithRequestID returns a context that carries id. Every log line written
// with that context includes it as request_id.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, id)
}

// RequestID returns the request id stored in ctx, if any.
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// slogLogger implements Logger using slog.
type slogLogger struct {
	Logger *slog.Logger
}

func (l *slogLogger) Named(name string) Logger {
	return &slogLogger{Logger: l.Logger.With(slog.String("logger", name))}
}

func (l *slogLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelInfo, msg, fields)
}

func (l *slogLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelError, msg, fields)
}

func (l *slogLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelDebug, msg, fields)
}

func (l *slogLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelWarn, msg, fields)
}

func (l *slogLogger) Fatal(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelError, msg, fields)
	os.Exit(1)
}

func (l *slogLogger) log(ctx context.Context, level slog.Level, msg string, fields []Field) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.Logger.Enabled(ctx, level) {
		return
	}
	fields = append(fields, String("source", getCaller()))
	if id := RequestID(ctx); id != "" {
		fields = append(fields, String(requestIDKey, id))
	}
	l.Logger.LogAttrs(ctx, level, msg, convertFields(fields)...)
}

// convertFields converts our Field type to slog.Attr.
func convertFields(fields []Field) []slog.Attr {
	attrs := make([]slog.Attr, len(fields))
	for i, f := range fields {
		if err, ok := f.Value.(error); ok && err != nil {
			attrs[i] = slog.String(f.Key, err.Error())
			continue
		}
		attrs[i] = slog.Any(f.Key, f.Value)
	}
	return attrs
}

var global Logger
var levelVar slog.LevelVar

// Init initializes the global logger writing text records to stdout.
func Init() error {
	return InitWithWriter(os.Stdout)
}

// InitWithWriter initializes the global logger writing to w.
func InitWithWriter(w io.Writer) error {
	if w == nil {
		return fmt.Errorf("logger: nil writer")
	}
	// Default to info; can be changed with SetLevel*/SetLevelString.
	levelVar.Set(slog.LevelInfo)
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: &levelVar})
	global = &slogLogger{Logger: slog.New(h)}
	return nil
}

// getCaller returns the caller as a path relative to the working directory.
func getCaller() string {
	_, file, line, ok := runtime.Caller(callerSkipFrames)
	if !ok {
		return "unknown:0"
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}

	relPath, err := filepath.Rel(cwd, file)
	if err != nil {
		return fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}

	return fmt.Sprintf("%s:%d", relPath, line)
}

// Get returns the global logger.
func Get() Logger {
	if global == nil {
		// The logger should be explicitly initialized by the application
		panic("logger not initialized. Call logger.Init() first")
	}
	return global
}

// Named creates a named logger.
func Named(name string) Logger {
	return Get().Named(name)
}

// Sync flushes buffered log entries.
func Sync() error {
	// slog does not buffer; nothing to flush
	return nil
}

// SetLevel updates the current logging level for the global logger handler.
func SetLevel(level slog.Level) { levelVar.Set(level) }

// SetLevelString parses and sets the logging level.
// Accepts: debug, info, warn/warning, error (case-insensitive).
func SetLevelString(level string) error {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		SetLevel(slog.LevelDebug)
	case "", "info":
		SetLevel(slog.LevelInfo)
	case "warn", "warning":
		SetLevel(slog.LevelWarn)
	case "error":
		SetLevel(slog.LevelError)
	default:
		return fmt.Errorf("unknown log level: %s", level)
	}
	return nil
}
