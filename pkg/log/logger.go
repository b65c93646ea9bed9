package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/YuminosukeSato/scigo-studio/pkg/errors"
)

var (
	globalMu       sync.RWMutex
	globalProvider LoggerProvider = NewZerologProvider(LevelInfo)
)

// SetGlobalLoggerProvider replaces the process-wide provider. Library
// warnings raised through errors.Warn are routed to it as well.
func SetGlobalLoggerProvider(p LoggerProvider) {
	globalMu.Lock()
	globalProvider = p
	globalMu.Unlock()

	warnLogger := p.GetLoggerWithName("warnings")
	errors.SetZerologWarnFunc(func(w error) {
		warnLogger.Warn(w.Error(), ErrorTypeKey, fmt.Sprintf("%T", w))
	})
}

// GetLoggerProvider returns the process-wide provider.
func GetLoggerProvider() LoggerProvider {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalProvider
}

// GetLogger returns the default logger of the global provider.
func GetLogger() Logger {
	return GetLoggerProvider().GetLogger()
}

// GetLoggerWithName returns a named logger of the global provider.
func GetLoggerWithName(name string) Logger {
	return GetLoggerProvider().GetLoggerWithName(name)
}

// Setup builds a provider for the given format and installs it globally.
// Supported formats are "console", "json" and "cloud".
func Setup(w io.Writer, level, format string) (LoggerProvider, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	var p LoggerProvider
	switch strings.ToLower(format) {
	case "", "console":
		p = NewZerologProviderWithWriter(w, lvl, true)
	case "json":
		p = NewZerologProviderWithWriter(w, lvl, false)
	case "cloud":
		p = NewSlogProvider(w, lvl)
	default:
		return nil, errors.NewValidationError("log.format", "must be one of console, json, cloud", format)
	}
	SetGlobalLoggerProvider(p)
	return p, nil
}

// ParseLevel converts a level name into a Level.
func ParseLevel(level string) (Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, errors.NewValidationError("log.level", "unknown level", level)
	}
}

// ToLogLevel is ParseLevel for trusted constants. It panics on unknown names.
func ToLogLevel(level string) Level {
	l, err := ParseLevel(level)
	if err != nil {
		panic(fmt.Sprintf("invalid log level :%s", level))
	}
	return l
}

// NewSlogProvider returns a provider that writes slog JSON records using
// Cloud Logging field names, with cockroachdb stack traces attached to
// error records.
func NewSlogProvider(w io.Writer, level Level) LoggerProvider {
	lv := new(slog.LevelVar)
	lv.Set(slog.Level(level))
	ops := slog.HandlerOptions{
		AddSource: true,
		Level:     lv,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.LevelKey:
				attr = slog.Attr{Key: "severity", Value: attr.Value}
			case slog.MessageKey:
				attr = slog.Attr{Key: "message", Value: attr.Value}
			case slog.SourceKey:
				attr = slog.Attr{Key: "logging.googleapis.com/sourceLocation", Value: attr.Value}
			}
			return attr
		},
	}
	handler := WrapByErrFmtHandler(slog.NewJSONHandler(w, &ops))
	return &slogProvider{base: slog.New(handler), level: lv}
}

type slogProvider struct {
	base  *slog.Logger
	level *slog.LevelVar
}

func (p *slogProvider) GetLogger() Logger { return &slogLogger{l: p.base} }

func (p *slogProvider) GetLoggerWithName(name string) Logger {
	return &slogLogger{l: p.base.With(ComponentKey, name)}
}

func (p *slogProvider) SetLevel(level Level) { p.level.Set(slog.Level(level)) }

type slogLogger struct {
	l *slog.Logger
}

func (s *slogLogger) Debug(msg string, fields ...any) { s.l.Debug(msg, fields...) }
func (s *slogLogger) Info(msg string, fields ...any)  { s.l.Info(msg, fields...) }
func (s *slogLogger) Warn(msg string, fields ...any)  { s.l.Warn(msg, fields...) }

func (s *slogLogger) Error(msg string, fields ...any) {
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			fields = append([]any{ErrAttr(err)}, fields[1:]...)
		}
	}
	s.l.Error(msg, fields...)
}

func (s *slogLogger) With(fields ...any) Logger { return &slogLogger{l: s.l.With(fields...)} }

func (s *slogLogger) Enabled(ctx context.Context, level Level) bool {
	return s.l.Enabled(ctx, slog.Level(level))
}

const (
	ErrAttrKey        = "error"
	StacktraceAttrKey = "stacktrace"
)

// ErrAttr is a wrapper to pass err to slog.
func ErrAttr(err error) slog.Attr {
	return slog.Any(ErrAttrKey, err)
}
