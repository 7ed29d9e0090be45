// Package log provides the slog handler behind the fetch progress output.
// Each record becomes one line: level, message, then key=value attributes.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"
)

// ProgressHandler implements slog.Handler with a compact line format.
type ProgressHandler struct {
	opts   handlerConfig
	mu     *sync.Mutex
	prefix []attrText
	group  string
}

// HandlerOption configures the ProgressHandler.
type HandlerOption func(*handlerConfig)

type handlerConfig struct {
	w         io.Writer
	level     slog.Leveler
	addSource bool
	addTime   bool
}

// defaultHandlerConfig returns the default configuration.
func defaultHandlerConfig() handlerConfig {
	return handlerConfig{
		w:     os.Stderr,
		level: slog.LevelInfo,
	}
}

// WithLevel sets the minimum log level to report.
func WithLevel(level slog.Leveler) HandlerOption {
	return func(c *handlerConfig) {
		c.level = level
	}
}

// WithSource enables reporting of source location (file/line).
func WithSource(enabled bool) HandlerOption {
	return func(c *handlerConfig) {
		c.addSource = enabled
	}
}

// WithTime prefixes every line with the record time.
func WithTime(enabled bool) HandlerOption {
	return func(c *handlerConfig) {
		c.addTime = enabled
	}
}

// WithWriter sets the destination. Defaults to stderr.
func WithWriter(w io.Writer) HandlerOption {
	return func(c *handlerConfig) {
		if w != nil {
			c.w = w
		}
	}
}

// NewHandler creates a new ProgressHandler with the given options.
func NewHandler(opts ...HandlerOption) *ProgressHandler {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &ProgressHandler{opts: cfg, mu: &sync.Mutex{}}
}

// Enabled reports whether the handler handles records at the given level.
func (h *ProgressHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.level.Level()
}

// Handle writes the record as a single line.
func (h *ProgressHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	if h.opts.addTime && !r.Time.IsZero() {
		b.WriteString(r.Time.Format(time.TimeOnly))
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "%-5s %s", r.Level.String(), r.Message)

	for _, a := range h.prefix {
		a.appendTo(&b)
	}
	r.Attrs(func(attr slog.Attr) bool {
		for _, a := range flatten(h.group, attr) {
			a.appendTo(&b)
		}
		return true
	})

	if h.opts.addSource && r.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{r.PC})
		f, _ := frames.Next()
		fmt.Fprintf(&b, " source=%s:%d", f.File, f.Line)
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.opts.w, b.String())
	return err
}

// WithAttrs returns a new ProgressHandler that includes the given attributes.
func (h *ProgressHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newHandler := *h
	newHandler.prefix = append([]attrText(nil), h.prefix...)
	for _, attr := range attrs {
		newHandler.prefix = append(newHandler.prefix, flatten(h.group, attr)...)
	}
	return &newHandler
}

// WithGroup returns a new ProgressHandler qualifying later keys with name.
func (h *ProgressHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	newHandler := *h
	newHandler.group = qualify(h.group, name)
	return &newHandler
}

// ParseLevel maps a configured level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
	return level, nil
}
