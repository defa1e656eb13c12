package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/Reflex-Gravity/BarqAdl/internal/agents"
	"github.com/Reflex-Gravity/BarqAdl/internal/classify"
	"github.com/Reflex-Gravity/BarqAdl/internal/formatter"
	"github.com/Reflex-Gravity/BarqAdl/internal/judge"
	"github.com/Reflex-Gravity/BarqAdl/internal/pipeline"
	"github.com/Reflex-Gravity/BarqAdl/internal/prompts"
	"github.com/Reflex-Gravity/BarqAdl/internal/registry"
	"github.com/Reflex-Gravity/BarqAdl/internal/skills"
	"github.com/Reflex-Gravity/BarqAdl/internal/strategies"
	"github.com/Reflex-Gravity/BarqAdl/pkg/model"
	"github.com/Reflex-Gravity/BarqAdl/pkg/observe"
	"github.com/Reflex-Gravity/BarqAdl/pkg/persistence"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type reply struct {
	out string
	err error
}

// scripted answers each tier from its own reply list; the last reply repeats.
type scripted struct {
	mu      sync.Mutex
	replies map[model.Tier][]reply
	calls   map[model.Tier]int
	users   map[model.Tier][]string
	systems map[model.Tier][]string
}

func newScripted(replies map[model.Tier][]reply) *scripted {
	return &scripted{
		replies: replies,
		calls:   make(map[model.Tier]int),
		users:   make(map[model.Tier][]string),
		systems: make(map[model.Tier][]string),
	}
}

func (s *scripted) Invoke(ctx context.Context, system, user string, opts model.Options) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.calls[opts.Tier]
	s.calls[opts.Tier]++
	s.users[opts.Tier] = append(s.users[opts.Tier], user)
	s.systems[opts.Tier] = append(s.systems[opts.Tier], system)

	rs := s.replies[opts.Tier]
	if len(rs) == 0 {
		return "", fmt.Errorf("no reply scripted for tier %s", opts.Tier)
	}
	r := rs[min(i, len(rs)-1)]
	return r.out, r.err
}

func (s *scripted) count(t model.Tier) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[t]
}

type countingEquipper struct {
	inner *skills.Equipper
	calls atomic.Int32
}

func (e *countingEquipper) Equip(ctx context.Context, domain string) (skills.Set, error) {
	e.calls.Add(1)
	return e.inner.Equip(ctx, domain)
}

func verdictJSON(la, co, ac, ci int, signal string) string {
	sig := "null"
	if signal != "" {
		sig = fmt.Sprintf(`{"learned": %q, "update_prompt": true}`, signal)
	}
	return fmt.Sprintf(`{"scores": {"legal_accuracy": %d, "completeness": %d, "actionability": %d, "citation_quality": %d, "total": 99},
"feedback": {"strengths": [], "weaknesses": ["thin citations"], "missing_topics": [], "retry_instructions": "Cite Article 54"},
"improvement_signal": %s}`, la, co, ac, ci, sig)
}

const laborClassification = `{"domains": ["labor"], "sub_topics": ["unpaid_wages"], "urgency": "high", "complexity": "moderate", "summary": "unpaid wages"}`

type harness struct {
	inv    *scripted
	store  *persistence.Memory
	reg    *registry.Registry
	strat  *strategies.Store
	equips *countingEquipper
	ctrl   *pipeline.Controller
}

func newHarness(replies map[model.Tier][]reply) *harness {
	logger := discard()
	sink := observe.Nop{}
	inv := newScripted(replies)
	store := persistence.NewMemory()
	ps := prompts.New(store, logger)

	strat := strategies.New(store, sink, logger)
	equipper := skills.New(store, inv, ps, sink, logger)
	factory := &agents.Factory{Model: inv, Prompts: ps, Skills: equipper, Strategies: strat, Logger: logger}
	reg := registry.New(factory, store, sink, logger)
	equips := &countingEquipper{inner: equipper}

	ctrl := pipeline.New(pipeline.Runtime{
		Classifier:   classify.New(inv, ps, sink, logger),
		Registry:     reg,
		Skills:       equips,
		Judge:        judge.New(inv, ps, sink, logger),
		Formatter:    formatter.New(inv, ps, logger),
		Strategies:   strat,
		Store:        store,
		Sink:         sink,
		Logger:       logger,
		HistoryTurns: 2,
	})

	return &harness{inv: inv, store: store, reg: reg, strat: strat, equips: equips, ctrl: ctrl}
}

func (h *harness) log(t *testing.T) []pipeline.LogEntry {
	t.Helper()
	entries, err := persistence.Entries[pipeline.LogEntry](context.Background(), h.store, pipeline.LogName)
	if err != nil {
		t.Fatal(err)
	}
	return entries
}

func TestFirstPassSucceeds(t *testing.T) {
	h := newHarness(map[model.Tier][]reply{
		model.TierOrchestrator: {{out: laborClassification}},
		model.TierHeavy:        {{out: "Action plan"}},
		model.TierJudge:        {{out: verdictJSON(9, 9, 9, 8, "")}},
		model.TierLight:        {{out: "formatted answer"}},
	})

	var stages []pipeline.Stage
	res, err := h.ctrl.Run(context.Background(), pipeline.Request{Query: "My employer has not paid me for 3 months"},
		pipeline.WithProgress(func(e pipeline.Event) { stages = append(stages, e.Stage) }))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Answer != "formatted answer" {
		t.Errorf("answer: %q", res.Answer)
	}
	if res.Evaluation.Scores.Total != 35 || !res.Evaluation.Pass || res.Evaluation.Retried || res.Evaluation.RetryCount != 0 {
		t.Errorf("evaluation: %+v", res.Evaluation)
	}
	if res.TraceID == "" {
		t.Error("missing trace id")
	}
	if h.equips.calls.Load() != 1 {
		t.Errorf("equip calls: %d", h.equips.calls.Load())
	}
	if h.inv.count(model.TierHeavy) != 1 || h.inv.count(model.TierJudge) != 1 {
		t.Errorf("calls: heavy=%d judge=%d", h.inv.count(model.TierHeavy), h.inv.count(model.TierJudge))
	}
	if plan := h.inv.users[model.TierLight][0]; strings.Contains(plan, pipeline.Disclaimer) {
		t.Error("passing answer must not carry the disclaimer")
	}

	want := []pipeline.Stage{
		pipeline.StageClassifying, pipeline.StageClassified, pipeline.StageAgentsReady,
		pipeline.StageScraping, pipeline.StageSkillsLoaded,
		pipeline.StageGenerating, pipeline.StageGenerated,
		pipeline.StageJudging, pipeline.StageJudged,
		pipeline.StageFormatting, pipeline.StageFormatted, pipeline.StageDone,
	}
	if diff := cmp.Diff(want, stages); diff != "" {
		t.Errorf("stages (-want +got):\n%s", diff)
	}

	stats := h.reg.List()["labor"]
	if stats.QueryCount != 1 || stats.AvgScore != 35 || stats.Skills != 5 {
		t.Errorf("registry: %+v", stats)
	}
	if v := h.strat.Active("labor"); v == nil || v.QueryCount != 1 || v.TotalScore != 35 {
		t.Errorf("strategy: %+v", v)
	}

	entries := h.log(t)
	if len(entries) != 1 {
		t.Fatalf("log entries: %d", len(entries))
	}
	e := entries[0]
	if e.Domain != "labor" || e.TotalScore != 35 || !e.Pass || e.Retried || e.StrategyVersionBefore != "v1" || e.StrategyVersionAfter != "v1" {
		t.Errorf("log entry: %+v", e)
	}
	if e.TraceID != res.TraceID {
		t.Errorf("log trace id %s, result %s", e.TraceID, res.TraceID)
	}
}

func TestRetriesExhausted(t *testing.T) {
	h := newHarness(map[model.Tier][]reply{
		model.TierOrchestrator: {{out: laborClassification}},
		model.TierHeavy:        {{out: "Weak plan"}},
		model.TierJudge:        {{out: verdictJSON(5, 5, 5, 5, "")}},
		model.TierLight:        {{err: errors.New("formatter down")}},
	})

	var retryMsgs []string
	res, err := h.ctrl.Run(context.Background(), pipeline.Request{Query: "q"},
		pipeline.WithProgress(func(e pipeline.Event) {
			if e.Stage == pipeline.StageRetrying {
				retryMsgs = append(retryMsgs, e.Message)
			}
		}))
	if err != nil {
		t.Fatal(err)
	}

	if !res.Evaluation.Retried || res.Evaluation.RetryCount != 2 || res.Evaluation.Pass {
		t.Errorf("evaluation: %+v", res.Evaluation)
	}
	if h.inv.count(model.TierHeavy) != 3 || h.inv.count(model.TierJudge) != 3 {
		t.Errorf("calls: heavy=%d judge=%d", h.inv.count(model.TierHeavy), h.inv.count(model.TierJudge))
	}
	if diff := cmp.Diff([]string{"Retry 1/2 — applying judge feedback...", "Retry 2/2 — applying judge feedback..."}, retryMsgs); diff != "" {
		t.Errorf("retry messages (-want +got):\n%s", diff)
	}

	regen := h.inv.users[model.TierHeavy][1]
	if !strings.HasSuffix(regen, "## IMPORTANT: Judge Feedback — Address These Issues\nCite Article 54") {
		t.Errorf("regenerate did not carry feedback:\n%s", regen)
	}

	// the formatter failed, so the answer is the fallback wrapping the plan
	if !strings.Contains(res.Answer, "Weak plan"+pipeline.Disclaimer+"\n\n---\n") {
		t.Errorf("answer missing disclaimer:\n%s", res.Answer)
	}
	if !strings.HasPrefix(res.Answer, formatter.Badge(classify.UrgencyHigh)) {
		t.Errorf("fallback badge missing:\n%s", res.Answer)
	}
}

func TestRetryBudget(t *testing.T) {
	tests := []struct {
		name    string
		judge   []reply
		retries int
		pass    bool
	}{
		{"borderline first score gets one retry", []reply{{out: verdictJSON(8, 8, 7, 7, "")}}, 1, false},
		{"low first score gets two retries", []reply{{out: verdictJSON(6, 7, 7, 7, "")}}, 2, false},
		{"retry succeeds", []reply{{out: verdictJSON(5, 5, 5, 5, "")}, {out: verdictJSON(9, 9, 8, 8, "")}}, 1, true},
		{"low sub-score fails despite total", []reply{{out: verdictJSON(10, 10, 10, 3, "")}}, 1, false},
		{"unparseable judge falls back to 28", []reply{{out: "not json"}}, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(map[model.Tier][]reply{
				model.TierOrchestrator: {{out: laborClassification}},
				model.TierHeavy:        {{out: "plan"}},
				model.TierJudge:        tt.judge,
				model.TierLight:        {{out: "done"}},
			})
			res, err := h.ctrl.Run(context.Background(), pipeline.Request{Query: "q"})
			if err != nil {
				t.Fatal(err)
			}
			if res.Evaluation.RetryCount != tt.retries || res.Evaluation.Pass != tt.pass {
				t.Errorf("retries=%d pass=%v, want %d %v", res.Evaluation.RetryCount, res.Evaluation.Pass, tt.retries, tt.pass)
			}
		})
	}
}

func TestClassificationFailureUsesDefault(t *testing.T) {
	h := newHarness(map[model.Tier][]reply{
		model.TierOrchestrator: {{err: errors.New("orchestrator unavailable")}},
		model.TierHeavy:        {{out: "plan"}},
		model.TierJudge:        {{out: verdictJSON(9, 9, 9, 9, "")}},
		model.TierLight:        {{out: "done"}},
	})

	res, err := h.ctrl.Run(context.Background(), pipeline.Request{Query: "What are my rights?"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if diff := cmp.Diff([]string{classify.DefaultDomain}, res.DomainsUsed); diff != "" {
		t.Errorf("domains (-want +got):\n%s", diff)
	}
	if res.Classification.Urgency != classify.UrgencyMedium || res.Classification.Summary != "What are my rights?" {
		t.Errorf("classification: %+v", res.Classification)
	}
}

func TestMultipleDomains(t *testing.T) {
	h := newHarness(map[model.Tier][]reply{
		model.TierOrchestrator: {{out: `{"domains": ["visa", "labor"], "urgency": "critical"}`}},
		model.TierHeavy:        {{out: "plan"}},
		model.TierJudge:        {{out: verdictJSON(9, 9, 9, 9, "")}},
		model.TierLight:        {{out: "done"}},
	})

	res, err := h.ctrl.Run(context.Background(), pipeline.Request{Query: "My visa was cancelled after termination"})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"visa", "labor"}, res.DomainsUsed); diff != "" {
		t.Errorf("domains (-want +got):\n%s", diff)
	}

	stats := h.reg.List()
	if len(stats) != 2 {
		t.Fatalf("registered agents: %v", stats)
	}
	if stats["visa"].AvgScore != 36 || stats["labor"].AvgScore != 0 {
		t.Errorf("only the primary domain is scored: %+v", stats)
	}
	if h.equips.calls.Load() != 2 {
		t.Errorf("equip calls: %d", h.equips.calls.Load())
	}
	if h.inv.count(model.TierHeavy) != 1 || h.inv.count(model.TierJudge) != 1 || h.inv.count(model.TierLight) != 1 {
		t.Error("only the primary domain should be generated, judged and formatted")
	}
	if h.strat.Active("labor") != nil {
		t.Error("secondary domain strategy should be untouched")
	}
}

// barrierRegistry blocks each GetOrSpawn until n calls are in flight.
type barrierRegistry struct {
	factory *agents.Factory
	n       int
	mu      sync.Mutex
	arrived int
	release chan struct{}
}

func (b *barrierRegistry) GetOrSpawn(ctx context.Context, domain string) (registry.Record, bool, error) {
	b.mu.Lock()
	b.arrived++
	if b.arrived == b.n {
		close(b.release)
	}
	b.mu.Unlock()

	select {
	case <-b.release:
	case <-time.After(2 * time.Second):
		return registry.Record{}, false, errors.New("acquisition was sequential")
	}

	return registry.Record{
		Stats: registry.Stats{Domain: domain, QueryCount: 2},
		Agent: b.factory.New(domain),
	}, false, nil
}

func (b *barrierRegistry) UpdateScore(context.Context, string, int) error     { return nil }
func (b *barrierRegistry) UpdateSkillCount(context.Context, string, int) error { return nil }

func TestAcquisitionIsConcurrent(t *testing.T) {
	logger := discard()
	inv := newScripted(map[model.Tier][]reply{
		model.TierOrchestrator: {{out: `{"domains": ["visa", "labor", "tenancy"]}`}},
	})
	store := persistence.NewMemory()
	ps := prompts.New(store, logger)

	reg := &barrierRegistry{
		factory: &agents.Factory{Model: inv, Prompts: ps, Logger: logger},
		n:       3,
		release: make(chan struct{}),
	}

	ctrl := pipeline.New(pipeline.Runtime{
		Classifier: classify.New(inv, ps, observe.Nop{}, logger),
		Registry:   reg,
		Judge:      judge.New(inv, ps, observe.Nop{}, logger),
		Formatter:  formatter.New(inv, ps, logger),
		Strategies: strategies.New(store, observe.Nop{}, logger),
		Store:      store,
		Sink:       observe.Nop{},
		Logger:     logger,
	})

	// no heavy reply is scripted, so the run stops at generation once all three agents are acquired
	_, err := ctrl.Run(context.Background(), pipeline.Request{Query: "q"})
	if errors.Is(err, pipeline.ErrAcquireAgents) {
		t.Fatalf("acquisition: %v", err)
	}
	if !errors.Is(err, pipeline.ErrGenerateFailed) {
		t.Errorf("err = %v, want generation failure", err)
	}
}

func TestGenerationFailureIsFatal(t *testing.T) {
	h := newHarness(map[model.Tier][]reply{
		model.TierOrchestrator: {{out: laborClassification}},
		model.TierHeavy:        {{err: errors.New("model overloaded")}},
	})

	res, err := h.ctrl.Run(context.Background(), pipeline.Request{Query: "q"})
	if !errors.Is(err, pipeline.ErrGenerateFailed) || res != nil {
		t.Fatalf("Run = %v, %v", res, err)
	}

	if len(h.log(t)) != 0 {
		t.Error("failed run must not be logged")
	}
	if h.strat.Active("labor") != nil {
		t.Error("failed run must not update strategies")
	}
	if got := h.reg.List()["labor"].AvgScore; got != 0 {
		t.Errorf("failed run must not score the agent: %v", got)
	}
}

func TestRegenerationFailureIsFatal(t *testing.T) {
	h := newHarness(map[model.Tier][]reply{
		model.TierOrchestrator: {{out: laborClassification}},
		model.TierHeavy:        {{out: "plan"}, {err: errors.New("model overloaded")}},
		model.TierJudge:        {{out: verdictJSON(5, 5, 5, 5, "")}},
	})

	if _, err := h.ctrl.Run(context.Background(), pipeline.Request{Query: "q"}); !errors.Is(err, pipeline.ErrGenerateFailed) {
		t.Fatalf("Run err = %v", err)
	}
	if len(h.log(t)) != 0 {
		t.Error("failed run must not be logged")
	}
}

func TestEmptyQuery(t *testing.T) {
	h := newHarness(nil)
	if _, err := h.ctrl.Run(context.Background(), pipeline.Request{Query: "  "}); !errors.Is(err, pipeline.ErrEmptyQuery) {
		t.Errorf("err = %v", err)
	}
}

func TestLearningAcrossRuns(t *testing.T) {
	lesson := "Always state the MOHRE hotline 600590000"
	h := newHarness(map[model.Tier][]reply{
		model.TierOrchestrator: {{out: laborClassification}},
		model.TierHeavy:        {{out: "plan"}},
		model.TierJudge:        {{out: verdictJSON(9, 9, 9, 9, lesson)}},
		model.TierLight:        {{out: "done"}},
	})
	ctx := context.Background()

	for range 2 {
		if _, err := h.ctrl.Run(ctx, pipeline.Request{Query: "q"}); err != nil {
			t.Fatal(err)
		}
	}

	entries := h.log(t)
	if len(entries) != 2 {
		t.Fatalf("log entries: %d", len(entries))
	}
	if entries[0].StrategyVersionBefore != "v1" || entries[0].StrategyVersionAfter != "v2" {
		t.Errorf("first run versions: %s -> %s", entries[0].StrategyVersionBefore, entries[0].StrategyVersionAfter)
	}
	if entries[1].StrategyVersionBefore != "v2" || entries[1].StrategyVersionAfter != "v2" {
		t.Errorf("second run versions: %s -> %s", entries[1].StrategyVersionBefore, entries[1].StrategyVersionAfter)
	}

	if strings.Contains(h.inv.systems[model.TierHeavy][0], lesson) {
		t.Error("first run cannot know the lesson yet")
	}
	if !strings.Contains(h.inv.systems[model.TierHeavy][1], "- "+lesson+"\n") {
		t.Error("second run's agent prompt does not carry the learned enhancement")
	}
	if got := h.reg.List()["labor"]; got.QueryCount != 2 || got.AvgScore != 36 {
		t.Errorf("registry: %+v", got)
	}
}

func TestHistoryTrimmed(t *testing.T) {
	h := newHarness(map[model.Tier][]reply{
		model.TierOrchestrator: {{out: laborClassification}},
		model.TierHeavy:        {{out: "plan"}},
		model.TierJudge:        {{out: verdictJSON(9, 9, 9, 9, "")}},
		model.TierLight:        {{out: "done"}},
	})

	history := []agents.Turn{
		{Role: "user", Content: "oldest"},
		{Role: "assistant", Content: "older"},
		{Role: "user", Content: "recent question"},
		{Role: "assistant", Content: "recent answer"},
	}
	if _, err := h.ctrl.Run(context.Background(), pipeline.Request{Query: "q", History: history}); err != nil {
		t.Fatal(err)
	}

	user := h.inv.users[model.TierHeavy][0]
	if strings.Contains(user, "oldest") || !strings.Contains(user, "user: recent question\nassistant: recent answer\n") {
		t.Errorf("history not trimmed to the last two turns:\n%s", user)
	}
}
