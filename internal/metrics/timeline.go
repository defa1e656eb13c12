package metrics

import (
	"maps"
	"slices"
	"time"

	"github.com/Reflex-Gravity/BarqAdl/internal/pipeline"
	"github.com/Reflex-Gravity/BarqAdl/internal/strategies"
)

// Evolution is one transition between consecutive strategy versions.
type Evolution struct {
	Domain                string     `json:"domain"`
	FromVersion           string     `json:"fromVersion"`
	ToVersion             string     `json:"toVersion"`
	Learned               string     `json:"learned"`
	InheritedEnhancements []string   `json:"inheritedEnhancements"`
	CreatedAt             *time.Time `json:"createdAt"`
	PreviousAvgScore      float64    `json:"previousAvgScore"`
	CurrentAvgScore       float64    `json:"currentAvgScore"`
	ScoreDelta            float64    `json:"scoreDelta"`
}

// TimelineSummary aggregates the evolution events.
type TimelineSummary struct {
	TotalLearnings int     `json:"totalLearnings"`
	DomainsEvolved int     `json:"domainsEvolved"`
	V1Avg          float64 `json:"v1Avg"`
	LatestAvg      float64 `json:"latestAvg"`
	ScoreDelta     float64 `json:"scoreDelta"`
}

// QueryPoint is one run on the score timeline.
type QueryPoint struct {
	Index         int        `json:"index"`
	Score         int        `json:"score"`
	Domain        string     `json:"domain"`
	VersionBefore string     `json:"versionBefore,omitempty"`
	VersionAfter  string     `json:"versionAfter,omitempty"`
	Evolved       bool       `json:"evolved"`
	Learned       string     `json:"learned,omitempty"`
	Timestamp     *time.Time `json:"timestamp,omitempty"`
}

// Timeline is the learning timeline response.
type Timeline struct {
	Summary       TimelineSummary `json:"summary"`
	Events        []Evolution     `json:"events"`
	QueryTimeline []QueryPoint    `json:"queryTimeline"`
}

// BuildTimeline lists evolution events newest first, with undated events
// last, alongside the per-run score timeline.
func BuildTimeline(entries []pipeline.LogEntry, strats map[string]strategies.History) Timeline {
	events := []Evolution{}
	var v1Scores, latestScores []float64
	evolved := make(map[string]bool)

	for _, domain := range slices.Sorted(maps.Keys(strats)) {
		versions := strats[domain].Versions
		if len(versions) == 0 {
			continue
		}

		for i := 1; i < len(versions); i++ {
			prev, v := versions[i-1], versions[i]
			learned := v.NewEnhancement
			if learned == "" && len(v.Enhancements) > 0 {
				learned = v.Enhancements[len(v.Enhancements)-1]
			}
			inherited := prev.Enhancements
			if inherited == nil {
				inherited = []string{}
			}
			events = append(events, Evolution{
				Domain:                domain,
				FromVersion:           prev.Version,
				ToVersion:             v.Version,
				Learned:               learned,
				InheritedEnhancements: inherited,
				CreatedAt:             v.CreatedAt,
				PreviousAvgScore:      prev.AvgScore,
				CurrentAvgScore:       v.AvgScore,
				ScoreDelta:            round2(v.AvgScore - prev.AvgScore),
			})
			evolved[domain] = true
		}

		if v1 := versions[0]; v1.AvgScore != 0 {
			v1Scores = append(v1Scores, v1.AvgScore)
		}
		if latest := versions[len(versions)-1]; latest.AvgScore != 0 {
			latestScores = append(latestScores, latest.AvgScore)
		}
	}

	slices.SortStableFunc(events, func(a, b Evolution) int {
		switch {
		case a.CreatedAt == nil && b.CreatedAt == nil:
			return 0
		case a.CreatedAt == nil:
			return 1
		case b.CreatedAt == nil:
			return -1
		}
		return b.CreatedAt.Compare(*a.CreatedAt)
	})

	v1Avg, latestAvg := meanFloat(v1Scores), meanFloat(latestScores)

	points := make([]QueryPoint, len(entries))
	for i, e := range entries {
		p := QueryPoint{
			Index:         i,
			Score:         e.TotalScore,
			Domain:        e.Domain,
			VersionBefore: e.StrategyVersionBefore,
			VersionAfter:  e.StrategyVersionAfter,
			Evolved:       e.StrategyVersionAfter != "" && e.StrategyVersionBefore != e.StrategyVersionAfter,
		}
		if e.ImprovementSignal != nil {
			p.Learned = e.ImprovementSignal.Learned
		}
		if !e.Timestamp.IsZero() {
			ts := e.Timestamp
			p.Timestamp = &ts
		}
		points[i] = p
	}

	return Timeline{
		Summary: TimelineSummary{
			TotalLearnings: len(events),
			DomainsEvolved: len(evolved),
			V1Avg:          v1Avg,
			LatestAvg:      latestAvg,
			ScoreDelta:     round1(latestAvg - v1Avg),
		},
		Events:        events,
		QueryTimeline: points,
	}
}

func meanFloat(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return round1(sum / float64(len(xs)))
}
