package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/YuminosukeSato/scigo-studio/pkg/errors"
)

// ZerologProvider is the default LoggerProvider. Every logger it hands out
// shares one level, so SetLevel takes effect immediately.
type ZerologProvider struct {
	base  zerolog.Logger
	level *atomic.Int32
}

// NewZerologProvider returns a provider writing JSON lines to stderr.
func NewZerologProvider(level Level) *ZerologProvider {
	return NewZerologProviderWithWriter(os.Stderr, level, false)
}

// NewZerologProviderWithWriter returns a provider writing to w. When pretty
// is set, records are rendered with zerolog's ConsoleWriter.
func NewZerologProviderWithWriter(w io.Writer, level Level, pretty bool) *ZerologProvider {
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen, NoColor: !isTerminal(w)}
	}
	lvl := &atomic.Int32{}
	lvl.Store(int32(level))
	return &ZerologProvider{
		base:  zerolog.New(w).With().Timestamp().Logger(),
		level: lvl,
	}
}

// GetLogger implements LoggerProvider.
func (p *ZerologProvider) GetLogger() Logger {
	return &zerologLogger{l: p.base, level: p.level}
}

// GetLoggerWithName implements LoggerProvider.
func (p *ZerologProvider) GetLoggerWithName(name string) Logger {
	return &zerologLogger{l: p.base.With().Str(ComponentKey, name).Logger(), level: p.level}
}

// SetLevel implements LoggerProvider.
func (p *ZerologProvider) SetLevel(level Level) {
	p.level.Store(int32(level))
}

type zerologLogger struct {
	l     zerolog.Logger
	level *atomic.Int32
}

func (z *zerologLogger) Debug(msg string, fields ...any) { z.emit(LevelDebug, msg, fields) }
func (z *zerologLogger) Info(msg string, fields ...any)  { z.emit(LevelInfo, msg, fields) }
func (z *zerologLogger) Warn(msg string, fields ...any)  { z.emit(LevelWarn, msg, fields) }
func (z *zerologLogger) Error(msg string, fields ...any) { z.emit(LevelError, msg, fields) }

func (z *zerologLogger) With(fields ...any) Logger {
	ctx := z.l.With()
	if len(fields) > 0 {
		ctx = ctx.Fields(normalizeFields(fields))
	}
	return &zerologLogger{l: ctx.Logger(), level: z.level}
}

func (z *zerologLogger) Enabled(_ context.Context, level Level) bool {
	return level >= Level(z.level.Load())
}

func (z *zerologLogger) emit(level Level, msg string, fields []any) {
	if !z.Enabled(context.Background(), level) {
		return
	}

	var e *zerolog.Event
	switch level {
	case LevelDebug:
		e = z.l.Debug()
	case LevelInfo:
		e = z.l.Info()
	case LevelWarn:
		e = z.l.Warn()
	default:
		e = z.l.Error()
	}

	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			e = e.Err(err)
			if st := extractStacktrace(err); st != "" {
				e = e.Str(StacktraceKey, st)
			}
			var m zerolog.LogObjectMarshaler
			if errors.As(err, &m) {
				e = e.Object("detail", m)
			}
			fields = fields[1:]
		}
	}
	if len(fields) > 0 {
		e = e.Fields(normalizeFields(fields))
	}
	e.Msg(msg)
}

// normalizeFields turns key/value pairs into the slice form zerolog accepts.
// A dangling key is kept with a nil value.
func normalizeFields(fields []any) []interface{} {
	out := make([]interface{}, 0, len(fields)+1)
	for i := 0; i < len(fields); i += 2 {
		key := fmt.Sprintf("%v", fields[i])
		var value any
		if i+1 < len(fields) {
			value = fields[i+1]
		}
		if err, ok := value.(error); ok {
			value = err.Error()
		}
		out = append(out, key, value)
	}
	return out
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
