// Package strategies versions the prompt enhancements each domain agent has learned.
package strategies

import (
	"math"
	"slices"
	"time"
)

// Version is one generation of a domain's strategy. Only the active version
// accumulates scores; evolved versions start with zeroed stats.
type Version struct {
	Version         string     `json:"version"`
	AvgScore        float64    `json:"avgScore"`
	TotalScore      int        `json:"totalScore"`
	QueryCount      int        `json:"queryCount"`
	Enhancements    []string   `json:"enhancements"`
	CreatedAt       *time.Time `json:"createdAt,omitempty"`
	NewEnhancement  string     `json:"newEnhancement,omitempty"`
	PreviousVersion string     `json:"previousVersion,omitempty"`
}

// History is the append-only version list for one domain.
type History struct {
	Versions []Version `json:"versions"`
	Active   string    `json:"active"`
}

// Outcome reports the effect of an Update.
type Outcome struct {
	Evolved  bool   `json:"evolved"`
	Version  string `json:"version"`
	Previous string `json:"previous"`
}

func initial() History {
	return History{
		Versions: []Version{{Version: "v1", Enhancements: []string{}}},
		Active:   "v1",
	}
}

// activeIndex returns the index of the active version, falling back to the first.
func (h *History) activeIndex() int {
	if len(h.Versions) == 0 {
		return -1
	}
	for i, v := range h.Versions {
		if v.Version == h.Active {
			return i
		}
	}
	return 0
}

func (h History) clone() History {
	out := History{Active: h.Active, Versions: make([]Version, len(h.Versions))}
	for i, v := range h.Versions {
		v.Enhancements = slices.Clone(v.Enhancements)
		if v.Enhancements == nil {
			v.Enhancements = []string{}
		}
		out.Versions[i] = v
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
