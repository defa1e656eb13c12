package pipeline

import (
	"time"

	"github.com/Reflex-Gravity/BarqAdl/internal/agents"
	"github.com/Reflex-Gravity/BarqAdl/internal/classify"
	"github.com/Reflex-Gravity/BarqAdl/internal/judge"
)

// LogName is the improvement log every completed run is appended to.
const LogName = "improvement-log"

// Disclaimer is appended to answers that still fail after all retries.
const Disclaimer = "\n\n> ⚠️ **Note:** This response may be incomplete. For your specific situation, " +
	"we strongly recommend consulting a licensed UAE lawyer or contacting Tawafuq Legal Aid Centers (800-TAWAFUQ)."

// Stage names a progress notification.
type Stage string

const (
	StageClassifying  Stage = "classifying"
	StageClassified   Stage = "classified"
	StageAgentsReady  Stage = "agents_ready"
	StageScraping     Stage = "scraping"
	StageSkillsLoaded Stage = "skills_loaded"
	StageGenerating   Stage = "generating"
	StageGenerated    Stage = "generated"
	StageJudging      Stage = "judging"
	StageJudged       Stage = "judged"
	StageRetrying     Stage = "retrying"
	StageFormatting   Stage = "formatting"
	StageFormatted    Stage = "formatted"
	StageDone         Stage = "done"
)

// Request is one user query with optional prior turns.
type Request struct {
	Query   string        `json:"message"`
	History []agents.Turn `json:"conversationHistory,omitempty"`
}

// Event is a progress notification emitted while a run advances.
type Event struct {
	Stage     Stage          `json:"stage"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	Detail    map[string]any `json:"detail,omitempty"`
}

// Summary is the evaluation outcome reported to callers.
type Summary struct {
	Scores     judge.Scores `json:"scores"`
	Pass       bool         `json:"pass"`
	Retried    bool         `json:"retried"`
	RetryCount int          `json:"retryCount"`
}

// Result is the outcome of a successful run.
type Result struct {
	Answer         string                  `json:"response"`
	Classification classify.Classification `json:"classification"`
	Evaluation     Summary                 `json:"evaluation"`
	DomainsUsed    []string                `json:"agentsUsed"`
	TraceID        string                  `json:"traceId"`
}

// LogEntry is one improvement-log record.
type LogEntry struct {
	TraceID               string           `json:"traceId"`
	Query                 string           `json:"query"`
	Domain                string           `json:"domain"`
	Domains               []string         `json:"domains"`
	Urgency               classify.Urgency `json:"urgency"`
	Complexity            string           `json:"complexity"`
	TotalScore            int              `json:"totalScore"`
	Scores                judge.Scores     `json:"scores"`
	Retried               bool             `json:"retried"`
	RetryCount            int              `json:"retryCount"`
	Pass                  bool             `json:"pass"`
	AgentsUsed            []string         `json:"agentsUsed"`
	ResponseTimeMs        int64            `json:"responseTime"`
	StrategyVersionBefore string           `json:"strategyVersionBefore,omitempty"`
	StrategyVersionAfter  string           `json:"strategyVersionAfter,omitempty"`
	ImprovementSignal     *judge.Signal    `json:"improvementSignal,omitempty"`
	Timestamp             time.Time        `json:"timestamp"`
}

// Options holds per-run settings. Runners outside this package resolve
// them with Resolve.
type Options struct {
	Progress func(Event)
}

// Option configures a single run.
type Option func(*Options)

// WithProgress delivers progress events to fn, synchronously and in order.
func WithProgress(fn func(Event)) Option {
	return func(o *Options) { o.Progress = fn }
}

// Resolve applies opts to a zero Options.
func Resolve(opts ...Option) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
