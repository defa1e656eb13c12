package api

import (
	"context"

	"github.com/Reflex-Gravity/BarqAdl/internal/agents"
	"github.com/Reflex-Gravity/BarqAdl/internal/classify"
	"github.com/Reflex-Gravity/BarqAdl/internal/feedback"
	"github.com/Reflex-Gravity/BarqAdl/internal/formatter"
	"github.com/Reflex-Gravity/BarqAdl/internal/judge"
	"github.com/Reflex-Gravity/BarqAdl/internal/metrics"
	"github.com/Reflex-Gravity/BarqAdl/internal/pipeline"
	"github.com/Reflex-Gravity/BarqAdl/internal/prompts"
	"github.com/Reflex-Gravity/BarqAdl/internal/registry"
	"github.com/Reflex-Gravity/BarqAdl/internal/skills"
	"github.com/Reflex-Gravity/BarqAdl/internal/strategies"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Prompts    prompts.System
	Strategies *strategies.Store
	Skills     *skills.Equipper
	Registry   *registry.Registry
	Pipeline   *pipeline.Controller
	Feedback   *feedback.Service
	Metrics    *metrics.Service
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	var (
		store  = runtime.Store
		inv    = runtime.Model
		sink   = runtime.Sink
		logger = runtime.Logger
	)

	promptsSystem := prompts.New(store, logger)
	strategyStore := strategies.New(store, sink, logger)

	var opts []skills.Option
	if runtime.Archive != nil {
		opts = append(opts, skills.WithArchive(runtime.Archive))
	}
	equipper := skills.New(store, inv, promptsSystem, sink, logger, opts...)

	factory := &agents.Factory{
		Model:      inv,
		Prompts:    promptsSystem,
		Skills:     equipper,
		Strategies: strategyStore,
		Logger:     logger,
	}
	reg := registry.New(factory, store, sink, logger)

	controller := pipeline.New(pipeline.Runtime{
		Classifier:   classify.New(inv, promptsSystem, sink, logger),
		Registry:     reg,
		Skills:       equipper,
		Judge:        judge.New(inv, promptsSystem, sink, logger),
		Formatter:    formatter.New(inv, promptsSystem, logger),
		Strategies:   strategyStore,
		Store:        store,
		Sink:         sink,
		Logger:       logger,
		HistoryTurns: runtime.HistoryTurns,
	})

	return &Domain{
		Prompts:    promptsSystem,
		Strategies: strategyStore,
		Skills:     equipper,
		Registry:   reg,
		Pipeline:   controller,
		Feedback:   feedback.New(strategyStore, store, sink, logger),
		Metrics:    metrics.New(store, strategyStore, logger),
	}
}

// Load restores persisted strategies and agents.
func (d *Domain) Load(ctx context.Context) error {
	if err := d.Strategies.Load(ctx); err != nil {
		return err
	}
	return d.Registry.Load(ctx)
}
