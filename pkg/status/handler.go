package status

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Handler is a slog.Handler that renders records as single status lines,
// "[15:04:05] message key=value", and writes them to a Sink. Records the sink
// cannot take (no sink, or a failed write) go to the fallback handler.
type Handler struct {
	sink     Sink
	fallback slog.Handler
	level    slog.Leveler
	attrs    []slog.Attr
	groups   []string
}

// NewHandler creates a handler. sink may be nil; fallback must not be.
func NewHandler(sink Sink, fallback slog.Handler, level slog.Leveler) *Handler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &Handler{sink: sink, fallback: fallback, level: level}
}

// Enabled reports whether the level is at or above the handler's minimum.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle writes the record to the sink, or to the fallback.
func (h *Handler) Handle(ctx context.Context, record slog.Record) error {
	if h.sink != nil {
		if err := h.sink.WriteLine(h.format(record)); err == nil {
			return nil
		}
	}
	return h.fallbackHandler().Handle(ctx, record)
}

func (h *Handler) fallbackHandler() slog.Handler {
	fb := h.fallback
	if len(h.attrs) > 0 {
		fb = fb.WithAttrs(h.attrs)
	}
	for _, g := range h.groups {
		fb = fb.WithGroup(g)
	}
	return fb
}

func (h *Handler) format(record slog.Record) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] ", record.Time.Format("15:04:05"))
	if record.Level >= slog.LevelWarn {
		sb.WriteString(record.Level.String())
		sb.WriteString(" ")
	}
	sb.WriteString(record.Message)

	prefix := strings.Join(h.groups, ".")
	write := func(a slog.Attr) bool {
		key := a.Key
		if prefix != "" {
			key = prefix + "." + key
		}
		fmt.Fprintf(&sb, " %s=%v", key, a.Value.Resolve())
		return true
	}
	for _, a := range h.attrs {
		write(a)
	}
	record.Attrs(write)
	return sb.String()
}

// WithAttrs returns a handler that adds attrs to every line.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

// WithGroup returns a handler that prefixes later keys with name.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string(nil), h.groups...), name)
	return &clone
}
