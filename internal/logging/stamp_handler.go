package logging

import (
	"context"
	"log/slog"
)

// stampHandler appends fixed attributes to every record at write time, after
// any attributes bound with With.
type stampHandler struct {
	next  slog.Handler
	stamp []slog.Attr
}

func withStamp(next slog.Handler, stamp ...slog.Attr) slog.Handler {
	if next == nil {
		return NoopHandler{}
	}
	if len(stamp) == 0 {
		return next
	}
	return stampHandler{next: next, stamp: stamp}
}

func (h stampHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h stampHandler) Handle(ctx context.Context, record slog.Record) error {
	record = record.Clone()
	record.AddAttrs(h.stamp...)
	return h.next.Handle(ctx, record)
}

func (h stampHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return stampHandler{next: h.next.WithAttrs(attrs), stamp: h.stamp}
}

func (h stampHandler) WithGroup(name string) slog.Handler {
	return stampHandler{next: h.next.WithGroup(name), stamp: h.stamp}
}
