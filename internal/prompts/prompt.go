// Package prompts owns the system prompts for every pipeline stage and the
// per-domain specialist profiles. Stage instructions can be overridden at
// runtime; output specifications are fixed.
package prompts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Reflex-Gravity/BarqAdl/pkg/persistence"
)

const overridesKey = "prompts"

// Override replaces the built-in instructions for one stage.
type Override struct {
	Stage        Stage     `json:"stage"`
	Instructions string    `json:"instructions"`
	Description  string    `json:"description,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SetCommand carries the body of an override request.
type SetCommand struct {
	Instructions string `json:"instructions"`
	Description  string `json:"description"`
}

// System resolves the effective prompt for each stage.
type System interface {
	Handler() *Handler

	// Instructions returns the override for stage if one is set, else the built-in text.
	Instructions(ctx context.Context, stage Stage) (string, error)
	// Spec returns the fixed output specification for stage.
	Spec(ctx context.Context, stage Stage) (string, error)

	List(ctx context.Context) ([]Override, error)
	Set(ctx context.Context, stage Stage, cmd SetCommand) (*Override, error)
	Reset(ctx context.Context, stage Stage) error
}

type repo struct {
	store  persistence.Store
	logger *slog.Logger

	mu        sync.Mutex
	overrides map[Stage]Override
	loaded    bool
}

// New returns a System that keeps overrides in store under the "prompts" key.
func New(store persistence.Store, logger *slog.Logger) System {
	return &repo{
		store:  store,
		logger: logger.With("system", "prompts"),
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger)
}

func (r *repo) Instructions(ctx context.Context, stage Stage) (string, error) {
	if _, err := ParseStage(string(stage)); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(ctx); err != nil {
		return "", err
	}
	if o, ok := r.overrides[stage]; ok {
		return o.Instructions, nil
	}
	return Instructions(stage)
}

func (r *repo) Spec(ctx context.Context, stage Stage) (string, error) {
	return Spec(stage)
}

func (r *repo) List(ctx context.Context) ([]Override, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(ctx); err != nil {
		return nil, err
	}

	out := make([]Override, 0, len(r.overrides))
	for _, s := range stages {
		if o, ok := r.overrides[s]; ok {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *repo) Set(ctx context.Context, stage Stage, cmd SetCommand) (*Override, error) {
	if _, err := ParseStage(string(stage)); err != nil {
		return nil, err
	}
	text := strings.TrimSpace(cmd.Instructions)
	if text == "" {
		return nil, ErrEmptyInstructions
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(ctx); err != nil {
		return nil, err
	}

	o := Override{
		Stage:        stage,
		Instructions: text,
		Description:  cmd.Description,
		UpdatedAt:    time.Now().UTC(),
	}

	next := cloneOverrides(r.overrides)
	next[stage] = o
	if err := persistence.Save(ctx, r.store, overridesKey, next); err != nil {
		return nil, fmt.Errorf("save overrides: %w", err)
	}
	r.overrides = next

	r.logger.Info("prompt override set", "stage", stage)
	return &o, nil
}

func (r *repo) Reset(ctx context.Context, stage Stage) error {
	if _, err := ParseStage(string(stage)); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(ctx); err != nil {
		return err
	}
	if _, ok := r.overrides[stage]; !ok {
		return ErrNotFound
	}

	next := cloneOverrides(r.overrides)
	delete(next, stage)
	if err := persistence.Save(ctx, r.store, overridesKey, next); err != nil {
		return fmt.Errorf("save overrides: %w", err)
	}
	r.overrides = next

	r.logger.Info("prompt override removed", "stage", stage)
	return nil
}

// load reads overrides once. Callers hold r.mu.
func (r *repo) load(ctx context.Context) error {
	if r.loaded {
		return nil
	}
	stored, _, err := persistence.Load[map[Stage]Override](ctx, r.store, overridesKey)
	if err != nil {
		return fmt.Errorf("load overrides: %w", err)
	}
	if stored == nil {
		stored = make(map[Stage]Override)
	}
	r.overrides = stored
	r.loaded = true
	return nil
}

func cloneOverrides(m map[Stage]Override) map[Stage]Override {
	out := make(map[Stage]Override, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Compose builds the system prompt for stage from its effective instructions and spec.
func Compose(ctx context.Context, sys System, stage Stage) (string, error) {
	instructions, err := sys.Instructions(ctx, stage)
	if err != nil {
		return "", fmt.Errorf("load instructions for %s: %w", stage, err)
	}

	spec, err := sys.Spec(ctx, stage)
	if err != nil {
		return "", fmt.Errorf("load spec for %s: %w", stage, err)
	}

	var sb strings.Builder
	sb.WriteString(instructions)
	sb.WriteString("\n\n")
	sb.WriteString(spec)
	return sb.String(), nil
}

// ComposeAgent builds a specialist's base system prompt: the domain profile
// followed by the agent stage instructions and spec.
func ComposeAgent(ctx context.Context, sys System, domain string) (string, error) {
	base, err := Compose(ctx, sys, StageAgent)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(ProfileFor(domain).Render())
	sb.WriteString("\n")
	sb.WriteString(base)
	return sb.String(), nil
}
