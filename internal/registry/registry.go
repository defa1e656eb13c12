// Package registry tracks the live domain agents and their running scores.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/Reflex-Gravity/BarqAdl/internal/agents"
	"github.com/Reflex-Gravity/BarqAdl/pkg/observe"
	"github.com/Reflex-Gravity/BarqAdl/pkg/persistence"
)

// Key is the persistence key of the registry document.
const Key = "registry"

// Spawner builds the agent for a domain.
type Spawner interface {
	New(domain string) agents.Agent
}

// Stats is the persisted view of a registered agent.
type Stats struct {
	Domain     string    `json:"domain"`
	Skills     int       `json:"skills"`
	AvgScore   float64   `json:"avgScore"`
	QueryCount int       `json:"queryCount"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Record is a registered agent with its stats.
type Record struct {
	Stats
	Agent agents.Agent `json:"-"`
}

type entry struct {
	agent agents.Agent
	stats Stats
}

// Registry owns the domain agents. Each read, recompute and persist sequence
// runs under the domain's lock.
type Registry struct {
	spawner Spawner
	store   persistence.Store
	sink    observe.Sink
	logger  *slog.Logger

	mu      sync.RWMutex
	entries map[string]entry

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	saveMu sync.Mutex
}

func New(spawner Spawner, store persistence.Store, sink observe.Sink, logger *slog.Logger) *Registry {
	return &Registry{
		spawner: spawner,
		store:   store,
		sink:    sink,
		logger:  logger.With("system", "registry"),
		entries: make(map[string]entry),
		locks:   make(map[string]*sync.Mutex),
	}
}

func (r *Registry) Handler() *Handler {
	return NewHandler(r, r.logger)
}

// Load restores persisted stats and builds a fresh agent for each domain.
func (r *Registry) Load(ctx context.Context) error {
	doc, _, err := persistence.Load[map[string]Stats](ctx, r.store, Key)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoad, err)
	}

	entries := make(map[string]entry, len(doc))
	for domain, st := range doc {
		st.Domain = domain
		entries[domain] = entry{agent: r.spawner.New(domain), stats: st}
	}

	r.mu.Lock()
	r.entries = entries
	r.mu.Unlock()

	r.logger.Info("registry loaded", "agents", len(entries))
	return nil
}

// GetOrSpawn returns the domain's agent, creating it on first use. Reuse
// counts as a query; a new agent starts with one query and no score.
func (r *Registry) GetOrSpawn(ctx context.Context, domain string) (Record, bool, error) {
	lock := r.lock(domain)
	lock.Lock()
	defer lock.Unlock()

	r.mu.RLock()
	e, ok := r.entries[domain]
	r.mu.RUnlock()

	if ok {
		e.stats.QueryCount++
	} else {
		e = entry{
			agent: r.spawner.New(domain),
			stats: Stats{
				Domain:     domain,
				QueryCount: 1,
				CreatedAt:  time.Now().UTC(),
			},
		}
	}

	r.mu.Lock()
	r.entries[domain] = e
	r.mu.Unlock()

	if ok {
		r.sink.Event(ctx, "agent_reused", map[string]any{"domain": domain})
	} else {
		r.logger.InfoContext(ctx, "agent spawned", "domain", domain)
		r.sink.Event(ctx, "new_agent_spawned", map[string]any{"domain": domain})
	}

	rec := Record{Stats: e.stats, Agent: e.agent}
	if err := r.save(ctx); err != nil {
		return rec, !ok, err
	}
	return rec, !ok, nil
}

// UpdateScore folds score into the domain's running mean over its current
// query count. Unknown domains are ignored.
func (r *Registry) UpdateScore(ctx context.Context, domain string, score int) error {
	return r.mutate(ctx, domain, func(st *Stats) {
		n := float64(max(st.QueryCount, 1))
		st.AvgScore = round2((st.AvgScore*(n-1) + float64(score)) / n)
	})
}

// UpdateSkillCount records how many skills the domain's agent holds.
func (r *Registry) UpdateSkillCount(ctx context.Context, domain string, count int) error {
	return r.mutate(ctx, domain, func(st *Stats) {
		st.Skills = count
	})
}

// Get returns the domain's record without counting a query.
func (r *Registry) Get(domain string) (Record, error) {
	r.mu.RLock()
	e, ok := r.entries[domain]
	r.mu.RUnlock()
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, domain)
	}
	return Record{Stats: e.stats, Agent: e.agent}, nil
}

// List returns the stats of every registered agent.
func (r *Registry) List() map[string]Stats {
	return r.snapshot()
}

func (r *Registry) mutate(ctx context.Context, domain string, fn func(*Stats)) error {
	lock := r.lock(domain)
	lock.Lock()
	defer lock.Unlock()

	r.mu.Lock()
	e, ok := r.entries[domain]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	fn(&e.stats)
	r.entries[domain] = e
	r.mu.Unlock()

	return r.save(ctx)
}

func (r *Registry) snapshot() map[string]Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Stats, len(r.entries))
	for d, e := range r.entries {
		out[d] = e.stats
	}
	return out
}

// save persists a snapshot taken under saveMu, so a later save always
// includes every mutation an earlier one did.
func (r *Registry) save(ctx context.Context) error {
	r.saveMu.Lock()
	defer r.saveMu.Unlock()

	if err := persistence.Save(ctx, r.store, Key, r.snapshot()); err != nil {
		return fmt.Errorf("%w: %w", ErrSave, err)
	}
	return nil
}

func (r *Registry) lock(domain string) *sync.Mutex {
	r.locksMu.Lock()
	defer r.locksMu.Unlock()

	l, ok := r.locks[domain]
	if !ok {
		l = &sync.Mutex{}
		r.locks[domain] = l
	}
	return l
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
