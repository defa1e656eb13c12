package observe_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/Reflex-Gravity/BarqAdl/pkg/observe"
)

func TestTraceID(t *testing.T) {
	ctx := context.Background()
	if observe.TraceID(ctx) != "" {
		t.Error("empty context should have no trace id")
	}

	id := observe.NewTraceID()
	if len(id) != 36 {
		t.Errorf("trace id %q is not a uuid", id)
	}
	if got := observe.TraceID(observe.WithTrace(ctx, id)); got != id {
		t.Errorf("TraceID = %q, want %q", got, id)
	}
}

func TestLoggerSink(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	sink := observe.NewLogger(logger)

	ctx := observe.WithTrace(context.Background(), "trace-1")
	sink.Event(ctx, "new_agent_spawned", map[string]any{"domain": "visa"})
	sink.Score(ctx, "total_score", 33)

	out := buf.String()
	for _, want := range []string{"event=new_agent_spawned", "domain=visa", "trace_id=trace-1", "name=total_score", "value=33"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}
