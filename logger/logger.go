package logger

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ZeroLogger wraps zerolog.Logger to implement the Logger interface.
// String and interface fields pass through a SensitiveDataFilter before they are written.
type ZeroLogger struct {
	zlog         *zerolog.Logger
	filter       *SensitiveDataFilter
	severityHook func(zerolog.Level)
}

var _ Logger = (*ZeroLogger)(nil)

var callerMarshalOnce sync.Once

// New creates a logger writing to stdout at the given level.
// Unknown levels fall back to info. pretty switches to the console writer.
func New(level string, pretty bool) *ZeroLogger {
	return NewWithWriter(os.Stdout, level, pretty, DefaultFilterConfig())
}

// NewWithFilter creates a stdout logger with a custom set of sensitive field names.
func NewWithFilter(level string, pretty bool, filterConfig *FilterConfig) *ZeroLogger {
	return NewWithWriter(os.Stdout, level, pretty, filterConfig)
}

// NewWithWriter creates a logger writing to out.
func NewWithWriter(out io.Writer, level string, pretty bool, filterConfig *FilterConfig) *ZeroLogger {
	callerMarshalOnce.Do(func() {
		zerolog.CallerMarshalFunc = func(_ uintptr, file string, line int) string {
			base := filepath.Base(file)
			parent := filepath.Base(filepath.Dir(file))
			if parent != "." && parent != "" {
				return parent + "/" + base + ":" + strconv.Itoa(line)
			}
			return base + ":" + strconv.Itoa(line)
		}
	})

	if pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	l := zerolog.New(out).With().Timestamp().CallerWithSkipFrameCount(3).Logger()

	zLevel, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		zLevel = zerolog.InfoLevel
	}
	l = l.Level(zLevel)

	return &ZeroLogger{zlog: &l, filter: NewSensitiveDataFilter(filterConfig)}
}

// WithContext returns a logger bound to ctx. A zerolog logger stored in ctx takes
// over output, and a severity hook registered with WithSeverityHook sees every
// warning or error logged through the result.
func (l *ZeroLogger) WithContext(ctx any) Logger {
	c, ok := ctx.(context.Context)
	if !ok || c == nil {
		return l
	}

	out := &ZeroLogger{zlog: l.zlog, filter: l.filter, severityHook: l.severityHook}
	if zl := zerolog.Ctx(c); zl != nil && zl.GetLevel() != zerolog.Disabled {
		out.zlog = zl
	}
	if hook := severityHookFromContext(c); hook != nil {
		out.severityHook = hook
	}
	if out.zlog == l.zlog && out.severityHook == nil {
		return l
	}
	return out
}

// WithFields returns a logger with additional fields attached to all log entries.
func (l *ZeroLogger) WithFields(fields map[string]any) Logger {
	if l.filter != nil {
		fields = l.filter.FilterFields(fields)
	}
	log := l.zlog.With().Fields(fields).Logger()
	return &ZeroLogger{zlog: &log, filter: l.filter, severityHook: l.severityHook}
}
