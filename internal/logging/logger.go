// Package logging provides structured logging for vkloop. It wraps zap
// with persistent fields so callers can scope a logger to a workspace and
// pass it down to the tracker and the loop orchestrator.
package logging

import (
	"io"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log levels accepted in configuration.
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// Output formats accepted in configuration.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Logger provides structured logging with persistent fields.
// It is safe for concurrent use.
type Logger struct {
	zap *zap.Logger
}

var defaultLogger atomic.Pointer[Logger]

func init() {
	defaultLogger.Store(NopLogger())
}

// New creates a Logger writing to w. format "json" selects zap's JSON
// encoder; anything else uses the console encoder. Unknown levels fall back
// to INFO.
func New(w io.Writer, level, format string) *Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var enc zapcore.Encoder
	if strings.EqualFold(format, FormatJSON) {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(w), parseLevel(level))
	return &Logger{zap: zap.New(core)}
}

// NopLogger returns a Logger that discards all output.
func NopLogger() *Logger {
	return &Logger{zap: zap.NewNop()}
}

// Default returns the process-wide logger. It discards output until
// SetDefault is called.
func Default() *Logger {
	return defaultLogger.Load()
}

// SetDefault replaces the process-wide logger. A nil logger is ignored.
func SetDefault(l *Logger) {
	if l == nil {
		return
	}
	defaultLogger.Store(l)
}

// WithFields returns a child logger carrying the given zap fields.
func (l *Logger) WithFields(fields ...zap.Field) *Logger {
	if len(fields) == 0 {
		return l
	}
	return &Logger{zap: l.zap.With(fields...)}
}

// WithWorkspace returns a child logger tagged with the workspace id.
func (l *Logger) WithWorkspace(id uuid.UUID) *Logger {
	return l.WithFields(zap.String("workspace_id", id.String()))
}

// WithSession returns a child logger tagged with the agent session id.
func (l *Logger) WithSession(sessionID string) *Logger {
	return l.WithFields(zap.String("session_id", sessionID))
}

// With returns a child logger with alternating key-value attributes.
// Non-string keys are skipped.
func (l *Logger) With(args ...any) *Logger {
	return l.WithFields(toFields(args)...)
}

// Debug logs at DEBUG level.
func (l *Logger) Debug(msg string, args ...any) { l.zap.Debug(msg, toFields(args)...) }

// Info logs at INFO level.
func (l *Logger) Info(msg string, args ...any) { l.zap.Info(msg, toFields(args)...) }

// Warn logs at WARN level.
func (l *Logger) Warn(msg string, args ...any) { l.zap.Warn(msg, toFields(args)...) }

// Error logs at ERROR level.
func (l *Logger) Error(msg string, args ...any) { l.zap.Error(msg, toFields(args)...) }

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.zap.Sync()
}

func toFields(args []any) []zap.Field {
	if len(args) == 0 {
		return nil
	}
	fields := make([]zap.Field, 0, len(args)/2)
	for i := 0; i < len(args)-1; i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, args[i+1]))
	}
	return fields
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToUpper(level) {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// ParseLevel normalizes a level string. Unknown values map to LevelInfo.
func ParseLevel(level string) string {
	switch strings.ToUpper(level) {
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
		return strings.ToUpper(level)
	default:
		return LevelInfo
	}
}

// ValidLevels returns the accepted level strings.
func ValidLevels() []string {
	return []string{LevelDebug, LevelInfo, LevelWarn, LevelError}
}
