package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// SetupLogger installs a slog JSON backend writing to w as the global
// provider. It is used for `--log-format json`.
func SetupLogger(loglevel string, w io.Writer) error {
	level, err := ToLogLevel(loglevel)
	if err != nil {
		return err
	}
	ops := slog.HandlerOptions{
		AddSource: true,
		Level:     slog.LevelDebug,
		// Replace attributes to convert to CloudLogging format.
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.LevelKey:
				attr = slog.Attr{
					Key:   "severity",
					Value: attr.Value,
				}
			case slog.MessageKey:
				attr = slog.Attr{
					Key:   "message",
					Value: attr.Value,
				}
			case slog.SourceKey:
				attr = slog.Attr{
					Key:   "logging.googleapis.com/sourceLocation",
					Value: attr.Value,
				}
			}
			return attr
		},
	}
	handler := WrapByErrFmtHandler(slog.NewJSONHandler(w, &ops))
	slog.SetDefault(slog.New(handler))
	SetProvider(NewSlogProvider(handler, level))
	return nil
}

// ToLogLevel converts a config string to a slog level.
func ToLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "info", "":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level :%s", level)
	}
}

// ParseLevel converts a config string to a Level.
func ParseLevel(level string) (Level, error) {
	l, err := ToLogLevel(level)
	if err != nil {
		return LevelInfo, err
	}
	return Level(l), nil
}

const (
	ErrAttrKey        = "error"
	StacktraceAttrKey = "stacktrace"
)

// ErrAttr is a wrapper to pass err to slog.
func ErrAttr(err error) slog.Attr {
	return slog.Any(ErrAttrKey, err)
}

// slogLogger adapts *slog.Logger to the Logger interface.
type slogLogger struct {
	logger *slog.Logger
}

func (l *slogLogger) Debug(msg string, fields ...any) { l.logger.Debug(msg, errFirst(fields)...) }
func (l *slogLogger) Info(msg string, fields ...any)  { l.logger.Info(msg, errFirst(fields)...) }
func (l *slogLogger) Warn(msg string, fields ...any)  { l.logger.Warn(msg, errFirst(fields)...) }
func (l *slogLogger) Error(msg string, fields ...any) { l.logger.Error(msg, errFirst(fields)...) }

func (l *slogLogger) With(fields ...any) Logger {
	return &slogLogger{logger: l.logger.With(errFirst(fields)...)}
}

func (l *slogLogger) Enabled(ctx context.Context, level Level) bool {
	return l.logger.Enabled(ctx, slog.Level(level))
}

// errFirst turns a leading error into an ErrAttr so ErrFmtHandler can see it.
func errFirst(fields []any) []any {
	if len(fields) == 0 {
		return fields
	}
	if err, ok := fields[0].(error); ok {
		out := make([]any, 0, len(fields))
		out = append(out, ErrAttr(err))
		return append(out, fields[1:]...)
	}
	return fields
}

// SlogProvider is a LoggerProvider over a slog.Handler.
type SlogProvider struct {
	handler slog.Handler
	level   *slog.LevelVar
}

// NewSlogProvider creates a provider. The level filter is applied in front of
// the handler so SetLevel works regardless of the handler options.
func NewSlogProvider(handler slog.Handler, level slog.Level) *SlogProvider {
	lv := &slog.LevelVar{}
	lv.Set(level)
	return &SlogProvider{handler: &levelHandler{Handler: handler, level: lv}, level: lv}
}

// GetLogger implements LoggerProvider.GetLogger.
func (p *SlogProvider) GetLogger() Logger {
	return &slogLogger{logger: slog.New(p.handler)}
}

// GetLoggerWithName implements LoggerProvider.GetLoggerWithName.
func (p *SlogProvider) GetLoggerWithName(name string) Logger {
	return &slogLogger{logger: slog.New(p.handler).With(ComponentKey, name)}
}

// SetLevel implements LoggerProvider.SetLevel.
func (p *SlogProvider) SetLevel(level Level) {
	p.level.Set(slog.Level(level))
}

type levelHandler struct {
	slog.Handler
	level slog.Leveler
}

func (h *levelHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return l >= h.level.Level() && h.Handler.Enabled(ctx, l)
}

func (h *levelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelHandler{Handler: h.Handler.WithAttrs(attrs), level: h.level}
}

func (h *levelHandler) WithGroup(g string) slog.Handler {
	return &levelHandler{Handler: h.Handler.WithGroup(g), level: h.level}
}
