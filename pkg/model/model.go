// Package model invokes language models on behalf of the pipeline stages.
//
// Callers address a Tier rather than a concrete model name; the provider maps
// each tier to the model configured for it.
package model

import (
	"context"
	"strings"
)

// Tier names a class of model sized for one kind of work.
type Tier string

const (
	TierOrchestrator Tier = "orchestrator"
	TierHeavy        Tier = "heavy"
	TierJudge        Tier = "judge"
	TierScraper      Tier = "scraper"
	TierLight        Tier = "light"
)

// Options tune a single invocation.
type Options struct {
	Tier        Tier
	Temperature float64
	MaxTokens   int
}

// Invoker sends a system prompt and user content to a model and returns its text.
type Invoker interface {
	Invoke(ctx context.Context, system, user string, opts Options) (string, error)
}

// InvokerFunc adapts a function to Invoker.
type InvokerFunc func(ctx context.Context, system, user string, opts Options) (string, error)

func (f InvokerFunc) Invoke(ctx context.Context, system, user string, opts Options) (string, error) {
	return f(ctx, system, user, opts)
}

// ComposePrompt joins a system prompt and user content into one prompt for
// providers without a separate system channel.
func ComposePrompt(system, user string) string {
	var b strings.Builder
	if system != "" {
		b.WriteString(system)
		b.WriteString("\n\n---\n\n")
	}
	b.WriteString(user)
	return b.String()
}
