package agents

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Reflex-Gravity/BarqAdl/internal/prompts"
	"github.com/Reflex-Gravity/BarqAdl/internal/skills"
	"github.com/Reflex-Gravity/BarqAdl/internal/strategies"
	"github.com/Reflex-Gravity/BarqAdl/pkg/model"
)

// SkillSource returns the skills currently cached for a domain.
type SkillSource interface {
	Lookup(ctx context.Context, domain string) ([]skills.Skill, error)
}

// StrategySource returns a domain's active strategy version, or nil.
type StrategySource interface {
	Active(domain string) *strategies.Version
}

// Factory builds agents. Context is assembled on every call, so agents pick
// up newly acquired skills and evolved strategies without being rebuilt.
type Factory struct {
	Model      model.Invoker
	Prompts    prompts.System
	Skills     SkillSource
	Strategies StrategySource
	Logger     *slog.Logger
}

// New returns the agent for domain.
func (f *Factory) New(domain string) Agent {
	if !Variant(domain) {
		f.Logger.Info("no dedicated profile, using generic agent", "domain", domain)
	}
	return &domainAgent{domain: domain, factory: f}
}

// SystemPrompt is the domain's base prompt followed by BuildContext.
func (f *Factory) SystemPrompt(ctx context.Context, domain string) (string, error) {
	base, err := prompts.ComposeAgent(ctx, f.Prompts, domain)
	if err != nil {
		return "", err
	}
	return base + f.BuildContext(ctx, domain), nil
}

// BuildContext renders the domain's skills and active strategy enhancements.
// Either section is omitted when empty. An unreadable skill cache is logged
// and treated as empty.
func (f *Factory) BuildContext(ctx context.Context, domain string) string {
	var b strings.Builder

	if f.Skills != nil {
		list, err := f.Skills.Lookup(ctx, domain)
		if err != nil {
			f.Logger.WarnContext(ctx, "skills unavailable", "domain", domain, "error", err)
		}
		if len(list) > 0 {
			b.WriteString("\n\n## Available Legal Knowledge (Skills)\n")
			for _, s := range list {
				b.WriteString(s.Render())
			}
		}
	}

	if f.Strategies != nil {
		if v := f.Strategies.Active(domain); v != nil && len(v.Enhancements) > 0 {
			b.WriteString("\n\n## Strategy Enhancements (learned from previous evaluations)\n")
			for _, e := range v.Enhancements {
				b.WriteString("- ")
				b.WriteString(e)
				b.WriteByte('\n')
			}
		}
	}

	return b.String()
}
