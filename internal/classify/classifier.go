package classify

import (
	"context"
	"log/slog"

	"github.com/Reflex-Gravity/BarqAdl/internal/prompts"
	"github.com/Reflex-Gravity/BarqAdl/pkg/formatting"
	"github.com/Reflex-Gravity/BarqAdl/pkg/model"
	"github.com/Reflex-Gravity/BarqAdl/pkg/observe"
)

const (
	temperature = 0.1
	maxTokens   = 1000
)

// Classifier asks the orchestrator model to classify queries.
type Classifier struct {
	model   model.Invoker
	prompts prompts.System
	sink    observe.Sink
	logger  *slog.Logger
}

func New(inv model.Invoker, ps prompts.System, sink observe.Sink, logger *slog.Logger) *Classifier {
	return &Classifier{
		model:   inv,
		prompts: ps,
		sink:    sink,
		logger:  logger.With("system", "classify"),
	}
}

// Classify never fails: a model error, unparseable output, or an empty domain
// list all produce Default(query).
func (c *Classifier) Classify(ctx context.Context, query string) Classification {
	system, err := prompts.Compose(ctx, c.prompts, prompts.StageClassify)
	if err != nil {
		c.logger.WarnContext(ctx, "classify prompt unavailable", "error", err)
		return c.fallback(ctx, query, "prompt")
	}

	raw, err := c.model.Invoke(ctx, system, query, model.Options{
		Tier:        model.TierOrchestrator,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		c.logger.WarnContext(ctx, "classification call failed", "error", err)
		return c.fallback(ctx, query, "invoke")
	}

	parsed, err := formatting.Parse[Classification](raw)
	if err != nil {
		c.logger.WarnContext(ctx, "classification unparseable", "error", err)
		return c.fallback(ctx, query, "parse")
	}
	if !parsed.normalize(query) {
		return c.fallback(ctx, query, "empty")
	}

	c.sink.Event(ctx, "query_classified", map[string]any{
		"domains": parsed.Domains,
		"urgency": string(parsed.Urgency),
	})
	return parsed
}

func (c *Classifier) fallback(ctx context.Context, query, reason string) Classification {
	c.sink.Event(ctx, "classification_fallback", map[string]any{"reason": reason})
	return Default(query)
}
