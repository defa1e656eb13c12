// Package metrics derives improvement statistics from the improvement log
// and the strategy histories.
package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/Reflex-Gravity/BarqAdl/internal/pipeline"
	"github.com/Reflex-Gravity/BarqAdl/internal/strategies"
	"github.com/Reflex-Gravity/BarqAdl/pkg/persistence"
)

// window is how many runs make up the early and recent score averages.
const window = 10

// StrategyLister returns every domain's strategy history.
type StrategyLister interface {
	All() map[string]strategies.History
}

// Improvement compares the earliest and most recent scores.
type Improvement struct {
	EarlyAvg  float64 `json:"earlyAvg"`
	RecentAvg float64 `json:"recentAvg"`
	Delta     float64 `json:"delta"`
}

// DomainStats summarizes the runs whose primary domain is one domain.
type DomainStats struct {
	Queries    int     `json:"queries"`
	TotalScore int     `json:"totalScore"`
	Retries    int     `json:"retries"`
	AvgScore   float64 `json:"avgScore"`
	RetryRate  float64 `json:"retryRate"`
}

// Report is the improvement metrics response. Rates are percentages.
type Report struct {
	TotalQueries     int                           `json:"totalQueries"`
	RetryRate        float64                       `json:"retryRate"`
	ScoreImprovement Improvement                   `json:"scoreImprovement"`
	DomainStats      map[string]DomainStats        `json:"domainStats"`
	Strategies       map[string]strategies.History `json:"strategies"`
}

// Service reads the logs and strategies on every request.
type Service struct {
	store      persistence.Store
	strategies StrategyLister
	logger     *slog.Logger
}

func New(store persistence.Store, sl StrategyLister, logger *slog.Logger) *Service {
	return &Service{
		store:      store,
		strategies: sl,
		logger:     logger.With("system", "metrics"),
	}
}

func (s *Service) Handler() *Handler {
	return NewHandler(s, s.logger)
}

// Report computes the current metrics.
func (s *Service) Report(ctx context.Context) (*Report, error) {
	entries, err := s.entries(ctx)
	if err != nil {
		return nil, err
	}
	r := Compute(entries, s.strategies.All())
	return &r, nil
}

// Timeline computes the current learning timeline.
func (s *Service) Timeline(ctx context.Context) (*Timeline, error) {
	entries, err := s.entries(ctx)
	if err != nil {
		return nil, err
	}
	t := BuildTimeline(entries, s.strategies.All())
	return &t, nil
}

func (s *Service) entries(ctx context.Context) ([]pipeline.LogEntry, error) {
	entries, err := persistence.Entries[pipeline.LogEntry](ctx, s.store, pipeline.LogName)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadLog, err)
	}
	return entries, nil
}

// Compute builds a Report from log entries in append order.
func Compute(entries []pipeline.LogEntry, strats map[string]strategies.History) Report {
	r := Report{
		TotalQueries: len(entries),
		DomainStats:  make(map[string]DomainStats),
		Strategies:   strats,
	}
	if r.Strategies == nil {
		r.Strategies = map[string]strategies.History{}
	}

	var retries int
	var scores []int
	for _, e := range entries {
		if e.Retried {
			retries++
		}
		if e.TotalScore > 0 {
			scores = append(scores, e.TotalScore)
		}

		if e.Domain == "" {
			continue
		}
		ds := r.DomainStats[e.Domain]
		ds.Queries++
		ds.TotalScore += e.TotalScore
		if e.Retried {
			ds.Retries++
		}
		r.DomainStats[e.Domain] = ds
	}

	for d, ds := range r.DomainStats {
		ds.AvgScore = round1(float64(ds.TotalScore) / float64(ds.Queries))
		ds.RetryRate = percent(ds.Retries, ds.Queries)
		r.DomainStats[d] = ds
	}

	r.RetryRate = percent(retries, len(entries))

	early := mean(scores[:min(window, len(scores))])
	recent := mean(scores[max(0, len(scores)-window):])
	r.ScoreImprovement = Improvement{
		EarlyAvg:  early,
		RecentAvg: recent,
		Delta:     round1(recent - early),
	}
	return r
}

func mean(xs []int) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0
	for _, x := range xs {
		sum += x
	}
	return round1(float64(sum) / float64(len(xs)))
}

func percent(n, of int) float64 {
	if of == 0 {
		return 0
	}
	return round1(float64(n) / float64(of) * 100)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
