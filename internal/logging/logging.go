// Package logging builds the application's slog logger: a console handler,
// an optional rotating log file, and an optional alert sink.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	Level   string
	File    string // "" or "-" disables the log file
	Console io.Writer
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New returns a logger writing to the console and, when configured, to a
// size-rotated JSON log file. The returned close function flushes the file.
func New(opts Options) (*slog.Logger, func() error) {
	lvl := ParseLevel(opts.Level)

	console := log.NewWithOptions(opts.Console, log.Options{
		Level:           log.Level(lvl),
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
	})

	if opts.File == "" || opts.File == "-" {
		return slog.New(console), func() error { return nil }
	}

	file := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    20,
		MaxBackups: 5,
		MaxAge:     30,
	}
	jsonHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: lvl})
	return slog.New(Fanout(console, jsonHandler)), file.Close
}

type fanout []slog.Handler

// Fanout returns a handler that passes every record to all handlers.
func Fanout(handlers ...slog.Handler) slog.Handler {
	return fanout(handlers)
}

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}

// Sink receives alert-worthy log lines.
type Sink interface {
	Report(level slog.Level, message string)
}

// Relay is a Sink whose target is attached after the logger is built.
// Reports made before Attach are dropped.
type Relay struct {
	mu   sync.RWMutex
	sink Sink
}

// Attach sets the sink that receives subsequent reports.
func (r *Relay) Attach(sink Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sink = sink
}

// Report implements Sink.
func (r *Relay) Report(level slog.Level, message string) {
	r.mu.RLock()
	sink := r.sink
	r.mu.RUnlock()
	if sink != nil {
		sink.Report(level, message)
	}
}

// AlertHandler forwards records at or above a level to a Sink as a single
// "message key=value ..." line.
type AlertHandler struct {
	sink   Sink
	min    slog.Level
	prefix string
	attrs  []slog.Attr
}

// NewAlertHandler returns an AlertHandler reporting records at min or above.
func NewAlertHandler(sink Sink, min slog.Level) *AlertHandler {
	return &AlertHandler{sink: sink, min: min}
}

// Enabled implements slog.Handler.
func (h *AlertHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.min
}

// Handle implements slog.Handler.
func (h *AlertHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(r.Message)
	for _, a := range h.attrs {
		writeAttr(&b, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, h.prefix, a)
		return true
	})
	h.sink.Report(r.Level, b.String())
	return nil
}

// WithAttrs implements slog.Handler.
func (h *AlertHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cp := *h
	cp.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	cp.attrs = append(cp.attrs, h.attrs...)
	for _, a := range attrs {
		a.Key = h.prefix + a.Key
		cp.attrs = append(cp.attrs, a)
	}
	return &cp
}

// WithGroup implements slog.Handler.
func (h *AlertHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	cp := *h
	cp.prefix = h.prefix + name + "."
	return &cp
}

func writeAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			writeAttr(b, prefix+a.Key+".", ga)
		}
		return
	}
	fmt.Fprintf(b, " %s%s=%v", prefix, a.Key, a.Value.Any())
}
