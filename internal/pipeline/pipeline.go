// Package pipeline runs a query through classification, generation, judging,
// bounded retry, formatting and learning.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Reflex-Gravity/BarqAdl/internal/agents"
	"github.com/Reflex-Gravity/BarqAdl/internal/classify"
	"github.com/Reflex-Gravity/BarqAdl/internal/judge"
	"github.com/Reflex-Gravity/BarqAdl/internal/registry"
	"github.com/Reflex-Gravity/BarqAdl/pkg/formatting"
	"github.com/Reflex-Gravity/BarqAdl/pkg/observe"
	"github.com/Reflex-Gravity/BarqAdl/pkg/persistence"
)

// lowScore is the first-attempt total below which a run gets a second retry.
const lowScore = 28

// Controller executes pipeline runs. It is safe for concurrent use.
type Controller struct {
	rt *Runtime
}

func New(rt Runtime) *Controller {
	rt.Logger = rt.Logger.With("system", "pipeline")
	return &Controller{rt: &rt}
}

type run struct {
	*Runtime
	opts    Options
	traceID string
}

func (r *run) emit(stage Stage, msg string, detail map[string]any) {
	if r.opts.Progress == nil {
		return
	}
	r.opts.Progress(Event{Stage: stage, Message: msg, Timestamp: time.Now().UTC(), Detail: detail})
}

// Run answers req. Only agent acquisition and generation failures are
// returned; every other stage recovers, and a failed run persists nothing.
func (c *Controller) Run(ctx context.Context, req Request, opts ...Option) (*Result, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, ErrEmptyQuery
	}

	traceID := observe.TraceID(ctx)
	if traceID == "" {
		traceID = observe.NewTraceID()
		ctx = observe.WithTrace(ctx, traceID)
	}

	r := &run{Runtime: c.rt, opts: Resolve(opts...), traceID: traceID}

	start := time.Now()
	history := r.recent(req.History)

	r.emit(StageClassifying, "Classifying query...", nil)
	cl := r.Classifier.Classify(ctx, req.Query)
	r.emit(StageClassified,
		fmt.Sprintf("Routed to %s (%s)", strings.Join(cl.Domains, ", "), cl.Urgency),
		map[string]any{"domains": cl.Domains, "urgency": cl.Urgency},
	)

	records, err := r.acquire(ctx, cl.Domains)
	if err != nil {
		return nil, err
	}

	r.equip(ctx, records)

	domain := cl.Primary()
	primary := records[0].rec.Agent

	r.emit(StageGenerating, "Generating response...", map[string]any{"domain": domain})
	plan, err := primary.Generate(ctx, req.Query, cl, history)
	if err != nil {
		r.Logger.ErrorContext(ctx, "generation failed", "trace_id", traceID, "domain", domain, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrGenerateFailed, err)
	}
	r.emit(StageGenerated, "Initial response ready, sending to judge...", nil)

	r.emit(StageJudging, "Evaluating response quality...", nil)
	ev := r.Judge.Evaluate(ctx, req.Query, cl, plan)
	r.emit(StageJudged, verdict("Score", ev), scoreDetail(ev, 0))

	maxRetries := 1
	if ev.Scores.Total < lowScore {
		maxRetries = 2
	}

	retries := 0
	for !ev.Pass && retries < maxRetries {
		retries++
		feedback := ev.RetryFeedback()

		r.Sink.Event(ctx, "judge_retry", map[string]any{
			"attempt":      retries,
			"score_before": ev.Scores.Total,
			"feedback":     feedback,
		})
		r.emit(StageRetrying,
			fmt.Sprintf("Retry %d/%d — applying judge feedback...", retries, maxRetries),
			map[string]any{"attempt": retries, "maxRetries": maxRetries, "feedback": feedback},
		)

		plan, err = primary.Regenerate(ctx, req.Query, cl, history, feedback)
		if err != nil {
			r.Logger.ErrorContext(ctx, "regeneration failed", "trace_id", traceID, "domain", domain, "attempt", retries, "error", err)
			return nil, fmt.Errorf("%w: retry %d: %w", ErrGenerateFailed, retries, err)
		}

		r.emit(StageJudging, fmt.Sprintf("Re-evaluating retry %d...", retries), nil)
		ev = r.Judge.Evaluate(ctx, req.Query, cl, plan)
		r.emit(StageJudged, verdict(fmt.Sprintf("Retry %d score", retries), ev), scoreDetail(ev, retries))
	}

	if !ev.Pass {
		plan += Disclaimer
	}

	r.emit(StageFormatting, "Formatting final response...", nil)
	answer := r.Formatter.Format(ctx, plan, cl)
	r.emit(StageFormatted, "Response formatted and ready.", nil)

	r.learn(ctx, req.Query, cl, ev, retries, time.Since(start))

	res := &Result{
		Answer:         answer,
		Classification: cl,
		Evaluation: Summary{
			Scores:     ev.Scores,
			Pass:       ev.Pass,
			Retried:    retries > 0,
			RetryCount: retries,
		},
		DomainsUsed: cl.Domains,
		TraceID:     traceID,
	}

	r.Logger.InfoContext(ctx, "query answered",
		"trace_id", traceID,
		"domain", domain,
		"total", ev.Scores.Total,
		"pass", ev.Pass,
		"retries", retries,
		"duration", time.Since(start),
	)
	r.emit(StageDone, "Complete", nil)
	return res, nil
}

// recent keeps the last HistoryTurns turns. Zero keeps everything.
func (r *run) recent(history []agents.Turn) []agents.Turn {
	if r.HistoryTurns > 0 && len(history) > r.HistoryTurns {
		return history[len(history)-r.HistoryTurns:]
	}
	return history
}

type acquired struct {
	rec   registry.Record
	isNew bool
}

// acquire gets or spawns every domain's agent concurrently. Results keep the
// classification's domain order; any failure fails the whole step.
func (r *run) acquire(ctx context.Context, domains []string) ([]acquired, error) {
	out := make([]acquired, len(domains))

	g, gctx := errgroup.WithContext(ctx)
	for i, d := range domains {
		g.Go(func() error {
			rec, isNew, err := r.Registry.GetOrSpawn(gctx, d)
			if err != nil {
				return fmt.Errorf("%s: %w", d, err)
			}
			out[i] = acquired{rec: rec, isNew: isNew}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		r.Logger.ErrorContext(ctx, "agent acquisition failed", "trace_id", r.traceID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrAcquireAgents, err)
	}

	var spawned []string
	for _, a := range out {
		if a.isNew {
			spawned = append(spawned, a.rec.Domain)
		}
	}
	r.emit(StageAgentsReady,
		fmt.Sprintf("%d agent(s) active: %s", len(domains), strings.Join(domains, ", ")),
		map[string]any{"agents": domains, "newAgents": spawned},
	)
	return out, nil
}

// equip acquires skills for newly spawned agents, one domain at a time.
func (r *run) equip(ctx context.Context, records []acquired) {
	for _, a := range records {
		if !a.isNew {
			continue
		}
		domain := a.rec.Domain

		r.emit(StageScraping, fmt.Sprintf("Equipping %s agent with skills...", domain), map[string]any{"domain": domain})
		set, err := r.Skills.Equip(ctx, domain)
		if err != nil {
			r.Logger.WarnContext(ctx, "skills not saved", "trace_id", r.traceID, "domain", domain, "error", err)
		}

		n := len(set.Skills)
		if err := r.Registry.UpdateSkillCount(ctx, domain, n); err != nil {
			r.Logger.WarnContext(ctx, "skill count not saved", "trace_id", r.traceID, "domain", domain, "error", err)
		}
		r.emit(StageSkillsLoaded,
			fmt.Sprintf("%s: %d skills acquired", domain, n),
			map[string]any{"domain": domain, "skillCount": n},
		)
	}
}

// learn records the final verdict. Failures are logged and never fail the run.
func (r *run) learn(ctx context.Context, query string, cl classify.Classification, ev judge.Evaluation, retries int, elapsed time.Duration) {
	domain := cl.Primary()

	var before string
	if v := r.Strategies.Active(domain); v != nil {
		before = v.Version
	}

	after := before
	out, err := r.Strategies.Update(ctx, domain, ev.Scores.Total, ev.ImprovementSignal)
	if err != nil {
		r.Logger.WarnContext(ctx, "strategy update not saved", "trace_id", r.traceID, "domain", domain, "error", err)
	}
	if out.Version != "" {
		after = out.Version
	}
	if before == "" {
		before = out.Previous
	}

	if err := r.Registry.UpdateScore(ctx, domain, ev.Scores.Total); err != nil {
		r.Logger.WarnContext(ctx, "registry score not saved", "trace_id", r.traceID, "domain", domain, "error", err)
	}

	entry := LogEntry{
		TraceID:               r.traceID,
		Query:                 formatting.Truncate(query, 200),
		Domain:                domain,
		Domains:               cl.Domains,
		Urgency:               cl.Urgency,
		Complexity:            cl.Complexity,
		TotalScore:            ev.Scores.Total,
		Scores:                ev.Scores,
		Retried:               retries > 0,
		RetryCount:            retries,
		Pass:                  ev.Pass,
		AgentsUsed:            cl.Domains,
		ResponseTimeMs:        elapsed.Milliseconds(),
		StrategyVersionBefore: before,
		StrategyVersionAfter:  after,
		ImprovementSignal:     ev.ImprovementSignal,
		Timestamp:             time.Now().UTC(),
	}
	if err := persistence.Append(ctx, r.Store, LogName, entry); err != nil {
		r.Logger.WarnContext(ctx, "improvement log not saved", "trace_id", r.traceID, "error", err)
	}
}

func verdict(label string, ev judge.Evaluation) string {
	result := "NEEDS RETRY"
	if ev.Pass {
		result = "PASS"
	}
	return fmt.Sprintf("%s: %d/40 — %s", label, ev.Scores.Total, result)
}

func scoreDetail(ev judge.Evaluation, retry int) map[string]any {
	d := map[string]any{"scores": ev.Scores, "pass": ev.Pass}
	if retry > 0 {
		d["retry"] = retry
	}
	return d
}
