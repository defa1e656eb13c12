package pipeline

import (
	"context"
	"log/slog"

	"github.com/Reflex-Gravity/BarqAdl/internal/classify"
	"github.com/Reflex-Gravity/BarqAdl/internal/judge"
	"github.com/Reflex-Gravity/BarqAdl/internal/registry"
	"github.com/Reflex-Gravity/BarqAdl/internal/skills"
	"github.com/Reflex-Gravity/BarqAdl/internal/strategies"
	"github.com/Reflex-Gravity/BarqAdl/pkg/observe"
	"github.com/Reflex-Gravity/BarqAdl/pkg/persistence"
)

// Classifier routes a query. It never fails.
type Classifier interface {
	Classify(ctx context.Context, query string) classify.Classification
}

// Registry hands out domain agents and tracks their scores.
type Registry interface {
	GetOrSpawn(ctx context.Context, domain string) (registry.Record, bool, error)
	UpdateScore(ctx context.Context, domain string, score int) error
	UpdateSkillCount(ctx context.Context, domain string, count int) error
}

// Equipper acquires skills for newly spawned agents.
type Equipper interface {
	Equip(ctx context.Context, domain string) (skills.Set, error)
}

// Judge scores an answer. It never fails.
type Judge interface {
	Evaluate(ctx context.Context, query string, c classify.Classification, answer string) judge.Evaluation
}

// Formatter renders the final answer. It never fails.
type Formatter interface {
	Format(ctx context.Context, plan string, c classify.Classification) string
}

// Strategies records final scores and evolves domain strategies.
type Strategies interface {
	Active(domain string) *strategies.Version
	Update(ctx context.Context, domain string, total int, signal *judge.Signal) (strategies.Outcome, error)
}

// Runtime bundles the systems a pipeline run depends on. It is assembled by
// the composition root; the pipeline owns none of them.
type Runtime struct {
	Classifier   Classifier
	Registry     Registry
	Skills       Equipper
	Judge        Judge
	Formatter    Formatter
	Strategies   Strategies
	Store        persistence.Store
	Sink         observe.Sink
	Logger       *slog.Logger
	HistoryTurns int
}
