package judge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Reflex-Gravity/BarqAdl/internal/classify"
	"github.com/Reflex-Gravity/BarqAdl/internal/prompts"
	"github.com/Reflex-Gravity/BarqAdl/pkg/formatting"
	"github.com/Reflex-Gravity/BarqAdl/pkg/model"
	"github.com/Reflex-Gravity/BarqAdl/pkg/observe"
)

const (
	temperature = 0.2
	maxTokens   = 2000
)

// Evaluator runs the judge model.
type Evaluator struct {
	model   model.Invoker
	prompts prompts.System
	sink    observe.Sink
	logger  *slog.Logger
}

func New(inv model.Invoker, ps prompts.System, sink observe.Sink, logger *slog.Logger) *Evaluator {
	return &Evaluator{
		model:   inv,
		prompts: ps,
		sink:    sink,
		logger:  logger.With("system", "judge"),
	}
}

// Evaluate always returns a usable verdict. Call failures and unparseable
// output both yield Fallback with a diagnostic weakness.
func (e *Evaluator) Evaluate(ctx context.Context, query string, c classify.Classification, answer string) Evaluation {
	system, err := prompts.Compose(ctx, e.prompts, prompts.StageJudge)
	if err != nil {
		e.logger.WarnContext(ctx, "judge prompt unavailable", "error", err)
		return e.record(ctx, Fallback(fmt.Sprintf("Evaluation failed: %v", err)))
	}

	raw, err := e.model.Invoke(ctx, system, userContent(query, c, answer), model.Options{
		Tier:        model.TierJudge,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		e.logger.WarnContext(ctx, "judge call failed", "error", err)
		return e.record(ctx, Fallback(fmt.Sprintf("Evaluation failed: %v", err)))
	}

	parsed, err := formatting.Parse[rawEvaluation](raw)
	if err != nil || parsed.Scores == nil {
		e.logger.WarnContext(ctx, "judge output unparseable", "error", err)
		return e.record(ctx, Fallback("Could not parse evaluation"))
	}

	return e.record(ctx, parsed.evaluation())
}

func (e *Evaluator) record(ctx context.Context, ev Evaluation) Evaluation {
	e.sink.Score(ctx, "legal_accuracy", float64(ev.Scores.LegalAccuracy))
	e.sink.Score(ctx, "completeness", float64(ev.Scores.Completeness))
	e.sink.Score(ctx, "actionability", float64(ev.Scores.Actionability))
	e.sink.Score(ctx, "citation_quality", float64(ev.Scores.CitationQuality))
	e.sink.Score(ctx, "total_score", float64(ev.Scores.Total))
	return ev
}

func userContent(query string, c classify.Classification, answer string) string {
	return "## Original User Query\n" + query +
		"\n\n## Classification\n" + c.JSON() +
		"\n\n## Sub-Agent Response\n" + answer +
		"\n\nEvaluate this response."
}
