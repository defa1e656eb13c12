package model

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GenAI invokes Gemini models through google.golang.org/genai.
type GenAI struct {
	client *genai.Client
	tiers  TierConfig
}

// NewGenAI creates a client for the Gemini API or Vertex AI backend.
func NewGenAI(ctx context.Context, cfg *GenAIConfig, tiers TierConfig) (*GenAI, error) {
	cc := &genai.ClientConfig{}
	switch cfg.Backend {
	case "vertex":
		cc.Backend = genai.BackendVertexAI
		cc.Project = cfg.Project
		cc.Location = cfg.Location
	default:
		cc.Backend = genai.BackendGeminiAPI
		cc.APIKey = cfg.APIKey
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GenAI{client: client, tiers: tiers}, nil
}

func (g *GenAI) Invoke(ctx context.Context, system, user string, opts Options) (string, error) {
	name, err := g.tiers.Model(opts.Tier)
	if err != nil {
		return "", err
	}

	gc := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(opts.Temperature)),
	}
	if opts.MaxTokens > 0 {
		gc.MaxOutputTokens = int32(opts.MaxTokens)
	}
	if system != "" {
		gc.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, name, genai.Text(user), gc)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrInvokeFailed, name, err)
	}

	text := resp.Text()
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
