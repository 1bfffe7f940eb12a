// Package logging carries request scoped attributes through [context.Context] into every log record.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
)

type attrsKey struct{}

// ContextHandler adds the attributes stored with [WithAttrs] to each record before passing it on.
type ContextHandler struct {
	next slog.Handler
}

func NewContextHandler(next slog.Handler) *ContextHandler {
	return &ContextHandler{next: next}
}

// New returns a debug level text logger writing to w that includes the context attributes. replaceAttr may be
// nil.
func New(w io.Writer, replaceAttr func(groups []string, a slog.Attr) slog.Attr) *slog.Logger {
	return slog.New(NewContextHandler(slog.NewTextHandler(w, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: replaceAttr,
	})))
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(Attrs(ctx)...)
	if err := h.next.Handle(ctx, r); err != nil {
		return fmt.Errorf("handle log record: %w", err)
	}
	return nil
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{next: h.next.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{next: h.next.WithGroup(name)}
}

// WithAttrs returns a copy of ctx whose log records also carry attrs. A plan generation keeps the attributes of
// the request that started it because the detached context retains the values.
func WithAttrs(ctx context.Context, attrs ...slog.Attr) context.Context {
	// Concat copies so that sibling contexts never share a backing array.
	return context.WithValue(ctx, attrsKey{}, slices.Concat(Attrs(ctx), attrs))
}

// Attrs returns the attributes stored in ctx with [WithAttrs].
func Attrs(ctx context.Context) []slog.Attr {
	attrs, _ := ctx.Value(attrsKey{}).([]slog.Attr)
	return attrs
}
