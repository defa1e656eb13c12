package skills

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Reflex-Gravity/BarqAdl/internal/prompts"
	"github.com/Reflex-Gravity/BarqAdl/pkg/formatting"
	"github.com/Reflex-Gravity/BarqAdl/pkg/model"
	"github.com/Reflex-Gravity/BarqAdl/pkg/observe"
	"github.com/Reflex-Gravity/BarqAdl/pkg/persistence"
	"github.com/Reflex-Gravity/BarqAdl/pkg/storage"
)

const (
	temperature = 0.2
	maxTokens   = 4096
)

// Source gathers raw text for a search query. An empty result means nothing was found.
type Source interface {
	Fetch(ctx context.Context, query string) (string, error)
}

// extracted is the subset of the extraction response that is trusted.
type extracted struct {
	Skills          []Skill  `json:"skills"`
	SourcesAccessed []string `json:"sources_accessed"`
}

// Equipper acquires skill sets: cache first, then the blob archive, then
// extraction from a Source, then the built-in seeds.
type Equipper struct {
	store   persistence.Store
	archive storage.System
	source  Source
	model   model.Invoker
	prompts prompts.System
	sink    observe.Sink
	logger  *slog.Logger
}

// Option configures optional acquisition paths.
type Option func(*Equipper)

// WithArchive mirrors acquired sets to a blob archive and restores from it.
func WithArchive(a storage.System) Option {
	return func(e *Equipper) { e.archive = a }
}

// WithSource enables extraction from gathered content.
func WithSource(s Source) Option {
	return func(e *Equipper) { e.source = s }
}

func New(store persistence.Store, inv model.Invoker, ps prompts.System, sink observe.Sink, logger *slog.Logger, opts ...Option) *Equipper {
	e := &Equipper{
		store:   store,
		model:   inv,
		prompts: ps,
		sink:    sink,
		logger:  logger.With("system", "skills"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Key is the persistence key for a domain's skill set.
func Key(domain string) string {
	return "skills/" + domain
}

// ArchiveKey is the blob key for a domain's skill set, relative to the archive prefix.
func ArchiveKey(domain string) string {
	return domain + "/" + domain + "-skills.json"
}

// Lookup returns the cached skills for domain without acquiring anything.
func (e *Equipper) Lookup(ctx context.Context, domain string) ([]Skill, error) {
	set, _, err := persistence.Load[Set](ctx, e.store, Key(domain))
	if err != nil {
		return nil, err
	}
	return set.Skills, nil
}

// Equip returns a non-empty skill set for domain. A cached set is returned
// as-is with no other activity. A returned error reports that the acquired
// set could not be saved; the set itself is still usable.
func (e *Equipper) Equip(ctx context.Context, domain string) (Set, error) {
	cached, found, err := persistence.Load[Set](ctx, e.store, Key(domain))
	if err != nil {
		e.logger.WarnContext(ctx, "skill cache unreadable", "domain", domain, "error", err)
	}
	if found && len(cached.Skills) > 0 {
		e.sink.Event(ctx, "skills_loaded_from_cache", map[string]any{"domain": domain, "count": len(cached.Skills)})
		return cached, nil
	}

	set, source := e.acquire(ctx, domain)

	if err := persistence.Save(ctx, e.store, Key(domain), set); err != nil {
		return set, fmt.Errorf("%w: %s: %w", ErrSave, domain, err)
	}
	if source != "archive" {
		e.mirror(ctx, set)
	}

	e.logger.InfoContext(ctx, "skills acquired", "domain", domain, "count", set.SkillsFound, "source", source)
	e.sink.Event(ctx, "new_skills_acquired", map[string]any{"domain": domain, "count": set.SkillsFound, "source": source})
	return set, nil
}

func (e *Equipper) acquire(ctx context.Context, domain string) (Set, string) {
	if set, ok := e.restore(ctx, domain); ok {
		return set, "archive"
	}

	if raw := e.gather(ctx, domain); len(raw) > 0 {
		set, err := e.extract(ctx, domain, raw)
		if err == nil {
			return set, "extracted"
		}
		e.logger.WarnContext(ctx, "skill extraction failed", "domain", domain, "error", err)
	}

	return Seed(domain), "seed"
}

func (e *Equipper) restore(ctx context.Context, domain string) (Set, bool) {
	if e.archive == nil {
		return Set{}, false
	}

	data, err := e.archive.Get(ctx, ArchiveKey(domain))
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			e.logger.WarnContext(ctx, "skill archive unavailable", "domain", domain, "error", err)
		}
		return Set{}, false
	}

	var set Set
	if err := json.Unmarshal(data, &set); err != nil || len(set.Skills) == 0 {
		return Set{}, false
	}
	set.normalize(domain)
	return set, true
}

func (e *Equipper) mirror(ctx context.Context, set Set) {
	if e.archive == nil {
		return
	}
	data, err := json.Marshal(set)
	if err != nil {
		return
	}
	if err := e.archive.Put(ctx, ArchiveKey(set.Domain), data); err != nil {
		e.logger.WarnContext(ctx, "skill archive write failed", "domain", set.Domain, "error", err)
	}
}

func (e *Equipper) gather(ctx context.Context, domain string) []string {
	if e.source == nil {
		return nil
	}

	var raw []string
	for _, q := range Queries(domain) {
		text, err := e.source.Fetch(ctx, q)
		if err != nil {
			e.logger.DebugContext(ctx, "source fetch failed", "query", q, "error", err)
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			raw = append(raw, "Source: "+q+"\n"+text)
		}
	}
	return raw
}

func (e *Equipper) extract(ctx context.Context, domain string, raw []string) (Set, error) {
	system, err := prompts.Compose(ctx, e.prompts, prompts.StageExtract)
	if err != nil {
		return Set{}, fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	user := "Domain: " + domain + "\n\nRaw content:\n" + strings.Join(raw, "\n---\n") + "\n\nExtract and structure skills."
	out, err := e.model.Invoke(ctx, system, user, model.Options{
		Tier:        model.TierScraper,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return Set{}, fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	parsed, err := formatting.Parse[extracted](out)
	if err != nil {
		return Set{}, fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	if len(parsed.Skills) == 0 {
		return Set{}, fmt.Errorf("%w: no skills in response", ErrExtraction)
	}

	set := Set{Skills: parsed.Skills, SourcesAccessed: parsed.SourcesAccessed}
	set.normalize(domain)
	return set, nil
}
