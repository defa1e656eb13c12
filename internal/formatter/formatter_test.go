package formatter_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/Reflex-Gravity/BarqAdl/internal/classify"
	"github.com/Reflex-Gravity/BarqAdl/internal/formatter"
	"github.com/Reflex-Gravity/BarqAdl/internal/prompts"
	"github.com/Reflex-Gravity/BarqAdl/pkg/model"
	"github.com/Reflex-Gravity/BarqAdl/pkg/persistence"
)

func newFormatter(inv model.InvokerFunc) *formatter.Formatter {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return formatter.New(inv, prompts.New(persistence.NewMemory(), logger), logger)
}

func TestBadge(t *testing.T) {
	tests := []struct {
		urgency classify.Urgency
		want    string
	}{
		{classify.UrgencyCritical, "🔴 **CRITICAL**"},
		{classify.UrgencyHigh, "🟡 **TIME-SENSITIVE**"},
		{classify.UrgencyMedium, "🟢 **INFORMATIONAL**"},
		{classify.UrgencyLow, "🟢 **INFORMATIONAL**"},
	}
	for _, tt := range tests {
		if got := formatter.Badge(tt.urgency); got != tt.want {
			t.Errorf("Badge(%s) = %s, want %s", tt.urgency, got, tt.want)
		}
	}
}

func TestFormat(t *testing.T) {
	c := classify.Default("q")
	c.Urgency = classify.UrgencyHigh

	var gotUser string
	var gotOpts model.Options
	f := newFormatter(func(ctx context.Context, system, user string, opts model.Options) (string, error) {
		gotUser, gotOpts = user, opts
		return "formatted", nil
	})

	if out := f.Format(context.Background(), "the plan", c); out != "formatted" {
		t.Errorf("Format = %q", out)
	}
	if gotOpts != (model.Options{Tier: model.TierLight, Temperature: 0.2, MaxTokens: 4096}) {
		t.Errorf("options: %+v", gotOpts)
	}
	want := "## Classification\n" + c.JSON() + "\n\n## Action Plan(s) to Format\nthe plan\n\n## Urgency Badge\n🟡 **TIME-SENSITIVE**\n\nFormat this for display."
	if gotUser != want {
		t.Errorf("user content:\n%s", gotUser)
	}
}

func TestFormatFallback(t *testing.T) {
	c := classify.Default("q")
	c.Urgency = classify.UrgencyCritical

	f := newFormatter(func(context.Context, string, string, model.Options) (string, error) {
		return "", errors.New("unavailable")
	})

	out := f.Format(context.Background(), "the plan", c)
	if !strings.HasPrefix(out, "🔴 **CRITICAL**\n\nthe plan\n\n---\n⚡ **BarqAdl**") {
		t.Errorf("fallback:\n%s", out)
	}
	if !strings.HasSuffix(out, "consult a licensed UAE lawyer._") {
		t.Errorf("fallback footer:\n%s", out)
	}
}
