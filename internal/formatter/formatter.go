// Package formatter turns a finished action plan into the user-facing answer.
package formatter

import (
	"context"
	"log/slog"

	"github.com/Reflex-Gravity/BarqAdl/internal/classify"
	"github.com/Reflex-Gravity/BarqAdl/internal/prompts"
	"github.com/Reflex-Gravity/BarqAdl/pkg/model"
)

const (
	temperature = 0.2
	maxTokens   = 4096

	footer = "\n\n---\n⚡ **BarqAdl** — Justice at the speed of light.\n" +
		"_This is legal information, not legal advice. For complex cases, consult a licensed UAE lawyer._"
)

// Badge returns the urgency marker shown at the top of an answer.
func Badge(u classify.Urgency) string {
	switch u {
	case classify.UrgencyCritical:
		return "🔴 **CRITICAL**"
	case classify.UrgencyHigh:
		return "🟡 **TIME-SENSITIVE**"
	default:
		return "🟢 **INFORMATIONAL**"
	}
}

// Fallback is the answer used when the formatting call fails.
func Fallback(plan string, c classify.Classification) string {
	return Badge(c.Urgency) + "\n\n" + plan + footer
}

// Formatter runs the light-tier formatting call.
type Formatter struct {
	model   model.Invoker
	prompts prompts.System
	logger  *slog.Logger
}

func New(inv model.Invoker, ps prompts.System, logger *slog.Logger) *Formatter {
	return &Formatter{
		model:   inv,
		prompts: ps,
		logger:  logger.With("system", "formatter"),
	}
}

// Format never fails; any error yields Fallback.
func (f *Formatter) Format(ctx context.Context, plan string, c classify.Classification) string {
	system, err := prompts.Compose(ctx, f.prompts, prompts.StageFormat)
	if err != nil {
		f.logger.WarnContext(ctx, "format prompt unavailable", "error", err)
		return Fallback(plan, c)
	}

	user := "## Classification\n" + c.JSON() +
		"\n\n## Action Plan(s) to Format\n" + plan +
		"\n\n## Urgency Badge\n" + Badge(c.Urgency) +
		"\n\nFormat this for display."

	out, err := f.model.Invoke(ctx, system, user, model.Options{
		Tier:        model.TierLight,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		f.logger.WarnContext(ctx, "format call failed", "error", err)
		return Fallback(plan, c)
	}
	return out
}
