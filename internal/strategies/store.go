package strategies

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/Reflex-Gravity/BarqAdl/internal/judge"
	"github.com/Reflex-Gravity/BarqAdl/pkg/observe"
	"github.com/Reflex-Gravity/BarqAdl/pkg/persistence"
)

// Key is the persistence key of the strategy document.
const Key = "strategies"

// Store owns every domain's strategy history. Histories are replaced, never
// mutated in place, so snapshots can be taken without holding domain locks.
type Store struct {
	store  persistence.Store
	sink   observe.Sink
	logger *slog.Logger

	mu      sync.RWMutex
	domains map[string]History

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	saveMu sync.Mutex
}

func New(store persistence.Store, sink observe.Sink, logger *slog.Logger) *Store {
	return &Store{
		store:   store,
		sink:    sink,
		logger:  logger.With("system", "strategies"),
		domains: make(map[string]History),
		locks:   make(map[string]*sync.Mutex),
	}
}

func (s *Store) Handler() *Handler {
	return NewHandler(s, s.logger)
}

// Load replaces the in-memory state with the persisted document.
func (s *Store) Load(ctx context.Context) error {
	doc, found, err := persistence.Load[map[string]History](ctx, s.store, Key)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoad, err)
	}
	if !found || doc == nil {
		doc = make(map[string]History)
	}

	s.mu.Lock()
	s.domains = doc
	s.mu.Unlock()

	s.logger.Info("strategies loaded", "domains", len(doc))
	return nil
}

// Active returns a copy of the domain's active version, or nil if none exists.
func (s *Store) Active(domain string) *Version {
	s.mu.RLock()
	h, ok := s.domains[domain]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	i := h.activeIndex()
	if i < 0 {
		return nil
	}
	v := h.clone().Versions[i]
	return &v
}

// Get returns a copy of the domain's history.
func (s *Store) Get(domain string) (History, error) {
	s.mu.RLock()
	h, ok := s.domains[domain]
	s.mu.RUnlock()
	if !ok {
		return History{}, fmt.Errorf("%w: %s", ErrNotFound, domain)
	}
	return h.clone(), nil
}

// All returns a copy of every domain's history.
func (s *Store) All() map[string]History {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]History, len(s.domains))
	for d, h := range s.domains {
		out[d] = h.clone()
	}
	return out
}

// Update folds a final score into the active version and, when signal carries
// a new lesson flagged for the prompt, evolves the domain to a new version.
// A returned error means the update was applied in memory but not persisted.
func (s *Store) Update(ctx context.Context, domain string, total int, signal *judge.Signal) (Outcome, error) {
	lock := s.lock(domain)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	h, ok := s.domains[domain]
	s.mu.RUnlock()
	if ok {
		h = h.clone()
	} else {
		h = initial()
	}
	if h.activeIndex() < 0 {
		h = initial()
	}

	i := h.activeIndex()
	h.Active = h.Versions[i].Version
	active := &h.Versions[i]
	active.QueryCount++
	active.TotalScore += total
	active.AvgScore = round2(float64(active.TotalScore) / float64(active.QueryCount))

	out := Outcome{Version: active.Version, Previous: active.Version}

	if evolves(active, signal) {
		now := time.Now().UTC()
		next := Version{
			Version:         fmt.Sprintf("v%d", len(h.Versions)+1),
			Enhancements:    append(slices.Clone(active.Enhancements), signal.Learned),
			CreatedAt:       &now,
			NewEnhancement:  signal.Learned,
			PreviousVersion: active.Version,
		}
		h.Versions = append(h.Versions, next)
		h.Active = next.Version

		out.Evolved = true
		out.Version = next.Version

		s.logger.InfoContext(ctx, "strategy evolved",
			"domain", domain,
			"from", out.Previous,
			"to", out.Version,
			"learned", signal.Learned,
		)
		s.sink.Event(ctx, "strategy_evolved", map[string]any{
			"domain": domain,
			"from":   out.Previous,
			"to":     out.Version,
		})
	}

	s.mu.Lock()
	s.domains[domain] = h
	s.mu.Unlock()

	if err := s.save(ctx); err != nil {
		return out, err
	}
	return out, nil
}

func evolves(active *Version, signal *judge.Signal) bool {
	if signal == nil || signal.Learned == "" || !signal.UpdatePrompt {
		return false
	}
	return !slices.Contains(active.Enhancements, signal.Learned)
}

// save persists a snapshot taken under saveMu, so a later save always
// includes every mutation an earlier one did.
func (s *Store) save(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.RLock()
	snapshot := maps.Clone(s.domains)
	s.mu.RUnlock()

	if err := persistence.Save(ctx, s.store, Key, snapshot); err != nil {
		return fmt.Errorf("%w: %w", ErrSave, err)
	}
	return nil
}

func (s *Store) lock(domain string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	l, ok := s.locks[domain]
	if !ok {
		l = &sync.Mutex{}
		s.locks[domain] = l
	}
	return l
}
