package model

import (
	"context"
	"fmt"

	"github.com/JaimeStill/go-agents/pkg/agent"
	gaconfig "github.com/JaimeStill/go-agents/pkg/config"
)

// Agents invokes models through a go-agents provider (Ollama, Azure, OpenAI-compatible).
// go-agents takes a single prompt, so the system prompt is composed in front of the
// user content.
type Agents struct {
	base  gaconfig.AgentConfig
	tiers TierConfig
}

// NewAgents returns an Invoker that creates a go-agents agent per call,
// swapping the model name for the requested tier.
func NewAgents(cfg *gaconfig.AgentConfig, tiers TierConfig) *Agents {
	return &Agents{base: *cfg, tiers: tiers}
}

func (a *Agents) Invoke(ctx context.Context, system, user string, opts Options) (string, error) {
	cfg, err := a.configFor(opts.Tier)
	if err != nil {
		return "", err
	}

	ag, err := agent.New(&cfg)
	if err != nil {
		return "", fmt.Errorf("%w: create agent: %w", ErrInvokeFailed, err)
	}

	resp, err := ag.Chat(ctx, ComposePrompt(system, user), callOptions(opts))
	if err != nil {
		return "", fmt.Errorf("%w: chat call: %w", ErrInvokeFailed, err)
	}

	content := resp.Content()
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}

// callOptions carries the per-call sampling settings; they override the agent's model options.
func callOptions(opts Options) map[string]any {
	o := map[string]any{"temperature": opts.Temperature}
	if opts.MaxTokens > 0 {
		o["max_tokens"] = opts.MaxTokens
	}
	return o
}

func (a *Agents) configFor(t Tier) (gaconfig.AgentConfig, error) {
	cfg := a.base
	name, err := a.tiers.Model(t)
	if err != nil {
		return cfg, err
	}
	if name == "" {
		return cfg, nil
	}

	var m gaconfig.ModelConfig
	if cfg.Model != nil {
		m = *cfg.Model
	}
	m.Name = name
	cfg.Model = &m
	cfg.Name = cfg.Name + "-" + string(t)
	return cfg, nil
}
