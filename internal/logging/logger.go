package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/1broseidon/blogsmith/common"
	"github.com/lmittmann/tint"
)

// Logger is the leveled, key/value logger used across blogsmith.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	WithContext(ctx context.Context) Logger
	SetLevel(level common.LogLevel)
}

// Format selects the output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// levelDisabled sits above every slog level so nothing is emitted.
const levelDisabled = slog.Level(100)

type requestIDKey struct{}

// ContextWithRequestID stores the request ID picked up by WithContext.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext returns the request ID set by ContextWithRequestID.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}

type defaultLogger struct {
	logger *slog.Logger
	level  *slog.LevelVar
}

// NewDefaultLogger returns a text logger on stderr with logging disabled.
func NewDefaultLogger() Logger {
	return New(os.Stderr, FormatText, common.DisabledLevel)
}

// New builds a Logger writing to w. Text output goes through tint, JSON through slog's handler.
func New(w io.Writer, format Format, level common.LogLevel) Logger {
	lv := new(slog.LevelVar)
	lv.Set(toSlogLevel(level))

	var h slog.Handler
	if format == FormatJSON {
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: lv,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey {
					return slog.String(a.Key, a.Value.Time().Format(time.RFC3339))
				}
				return a
			},
		})
	} else {
		h = tint.NewHandler(w, &tint.Options{
			Level:      lv,
			TimeFormat: time.Kitchen,
			NoColor:    !isTerminal(w),
		})
	}

	return &defaultLogger{logger: slog.New(h), level: lv}
}

func (l *defaultLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *defaultLogger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *defaultLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *defaultLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

func (l *defaultLogger) With(args ...any) Logger {
	return &defaultLogger{logger: l.logger.With(args...), level: l.level}
}

// WithContext attaches the request ID from ctx, if any.
func (l *defaultLogger) WithContext(ctx context.Context) Logger {
	if id, ok := RequestIDFromContext(ctx); ok {
		return l.With("request_id", id)
	}
	return l
}

// SetLevel changes the level for this logger and every logger derived from it.
func (l *defaultLogger) SetLevel(level common.LogLevel) {
	l.level.Set(toSlogLevel(level))
}

func toSlogLevel(level common.LogLevel) slog.Level {
	switch level {
	case common.DebugLevel:
		return slog.LevelDebug
	case common.InfoLevel:
		return slog.LevelInfo
	case common.WarnLevel:
		return slog.LevelWarn
	case common.ErrorLevel:
		return slog.LevelError
	default:
		return levelDisabled
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
