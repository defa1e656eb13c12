// Package observe records pipeline events and scores and carries trace ids through contexts.
package observe

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Sink receives named events and numeric scores. Implementations must not block
// the caller for long and must tolerate concurrent use.
type Sink interface {
	Event(ctx context.Context, name string, meta map[string]any)
	Score(ctx context.Context, name string, value float64)
}

type traceKey struct{}

// NewTraceID returns a fresh random trace id.
func NewTraceID() string {
	return uuid.NewString()
}

// WithTrace returns a context carrying id.
func WithTrace(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceKey{}, id)
}

// TraceID returns the id stored by WithTrace, or "".
func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}

// Logger writes every observation to a slog.Logger at debug level.
type Logger struct {
	logger *slog.Logger
}

// NewLogger returns a Sink backed by logger.
func NewLogger(logger *slog.Logger) *Logger {
	return &Logger{logger: logger.With("system", "observe")}
}

func (l *Logger) Event(ctx context.Context, name string, meta map[string]any) {
	attrs := make([]any, 0, 2*len(meta)+4)
	attrs = append(attrs, "event", name, "trace_id", TraceID(ctx))
	for k, v := range meta {
		attrs = append(attrs, k, v)
	}
	l.logger.DebugContext(ctx, "event", attrs...)
}

func (l *Logger) Score(ctx context.Context, name string, value float64) {
	l.logger.DebugContext(ctx, "score", "name", name, "value", value, "trace_id", TraceID(ctx))
}

// Nop discards everything.
type Nop struct{}

func (Nop) Event(context.Context, string, map[string]any) {}
func (Nop) Score(context.Context, string, float64)        {}
