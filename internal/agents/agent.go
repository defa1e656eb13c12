// Package agents implements the domain specialists that draft action plans.
//
// Every domain shares one implementation; the domain name selects its prompt
// profile, skills and strategy. Unknown domains use the generic profile.
package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/Reflex-Gravity/BarqAdl/internal/classify"
	"github.com/Reflex-Gravity/BarqAdl/internal/prompts"
	"github.com/Reflex-Gravity/BarqAdl/pkg/model"
)

const (
	temperature           = 0.3
	regenerateTemperature = 0.2
	maxTokens             = 4096
)

// Turn is one prior message of the conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Agent drafts answers for one legal domain. Agents hold no mutable state.
type Agent interface {
	Domain() string
	Generate(ctx context.Context, query string, c classify.Classification, history []Turn) (string, error)
	Regenerate(ctx context.Context, query string, c classify.Classification, history []Turn, feedback string) (string, error)
}

// Variant reports whether domain has a dedicated profile rather than the generic one.
func Variant(domain string) bool {
	return prompts.Known(domain)
}

type domainAgent struct {
	domain  string
	factory *Factory
}

func (a *domainAgent) Domain() string {
	return a.domain
}

func (a *domainAgent) Generate(ctx context.Context, query string, c classify.Classification, history []Turn) (string, error) {
	return a.invoke(ctx, userContent(query, c, history, ""), temperature)
}

func (a *domainAgent) Regenerate(ctx context.Context, query string, c classify.Classification, history []Turn, feedback string) (string, error) {
	return a.invoke(ctx, userContent(query, c, history, feedback), regenerateTemperature)
}

func (a *domainAgent) invoke(ctx context.Context, user string, temp float64) (string, error) {
	system, err := a.factory.SystemPrompt(ctx, a.domain)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrGenerateFailed, a.domain, err)
	}

	out, err := a.factory.Model.Invoke(ctx, system, user, model.Options{
		Tier:        model.TierHeavy,
		Temperature: temp,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrGenerateFailed, a.domain, err)
	}
	return out, nil
}

func userContent(query string, c classify.Classification, history []Turn, feedback string) string {
	var b strings.Builder
	b.WriteString("## User Query\n")
	b.WriteString(query)
	b.WriteString("\n\n## Classification\n")
	b.WriteString(c.JSON())

	if len(history) > 0 {
		b.WriteString("\n\n## Conversation History\n")
		for _, t := range history {
			fmt.Fprintf(&b, "%s: %s\n", t.Role, t.Content)
		}
	}

	if feedback != "" {
		b.WriteString("\n\n## IMPORTANT: Judge Feedback — Address These Issues\n")
		b.WriteString(feedback)
	}
	return b.String()
}
