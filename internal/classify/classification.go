// Package classify routes a legal query to one or more domains.
package classify

import (
	"encoding/json"
	"strings"

	"github.com/Reflex-Gravity/BarqAdl/pkg/formatting"
)

// DefaultDomain answers when classification yields nothing usable.
const DefaultDomain = "labor"

// Urgency grades how time-sensitive the user's situation is.
type Urgency string

const (
	UrgencyCritical Urgency = "critical"
	UrgencyHigh     Urgency = "high"
	UrgencyMedium   Urgency = "medium"
	UrgencyLow      Urgency = "low"
)

// Routing names the agents that should handle a query.
type Routing struct {
	PrimaryAgent    string   `json:"primary_agent"`
	SecondaryAgents []string `json:"secondary_agents"`
	NeedsScraping   bool     `json:"needs_scraping"`
}

// Classification is produced once per query and not modified afterwards.
type Classification struct {
	Domains    []string       `json:"domains"`
	SubTopics  []string       `json:"sub_topics"`
	Entities   map[string]any `json:"entities"`
	Urgency    Urgency        `json:"urgency"`
	Complexity string         `json:"complexity"`
	Routing    Routing        `json:"routing"`
	Summary    string         `json:"summary"`
}

// Primary returns the domain that generates the answer.
func (c *Classification) Primary() string {
	if len(c.Domains) == 0 {
		return DefaultDomain
	}
	return c.Domains[0]
}

// JSON renders the classification for inclusion in prompts.
func (c *Classification) JSON() string {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

// Default returns the fallback classification for query.
func Default(query string) Classification {
	return Classification{
		Domains:    []string{DefaultDomain},
		SubTopics:  []string{"general"},
		Entities:   map[string]any{},
		Urgency:    UrgencyMedium,
		Complexity: "simple",
		Routing: Routing{
			PrimaryAgent:    DefaultDomain,
			SecondaryAgents: []string{},
		},
		Summary: formatting.Truncate(query, 200),
	}
}

// normalize lowercases and dedupes domains and fills fields the model left out.
// It reports false when no domain survives.
func (c *Classification) normalize(query string) bool {
	seen := make(map[string]bool, len(c.Domains))
	domains := make([]string, 0, len(c.Domains))
	for _, d := range c.Domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		domains = append(domains, d)
	}
	if len(domains) == 0 {
		return false
	}
	c.Domains = domains

	switch c.Urgency {
	case UrgencyCritical, UrgencyHigh, UrgencyMedium, UrgencyLow:
	default:
		c.Urgency = UrgencyMedium
	}
	if c.SubTopics == nil {
		c.SubTopics = []string{}
	}
	if c.Entities == nil {
		c.Entities = map[string]any{}
	}
	if c.Complexity == "" {
		c.Complexity = "simple"
	}
	if c.Summary == "" {
		c.Summary = formatting.Truncate(query, 200)
	}

	c.Routing.PrimaryAgent = domains[0]
	c.Routing.SecondaryAgents = append([]string{}, domains[1:]...)
	return true
}
