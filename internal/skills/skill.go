// Package skills equips domain agents with structured legal knowledge.
package skills

import (
	"fmt"
	"strings"
	"time"
)

// LawReference cites a law and, where known, specific articles.
type LawReference struct {
	Law      string   `json:"law" yaml:"law"`
	Articles []string `json:"articles" yaml:"articles"`
}

// Skill is one self-contained piece of legal knowledge.
type Skill struct {
	SkillID       string         `json:"skill_id" yaml:"skill_id"`
	Domain        string         `json:"domain" yaml:"domain"`
	Topic         string         `json:"topic" yaml:"topic"`
	Title         string         `json:"title" yaml:"title"`
	Content       string         `json:"content" yaml:"content"`
	LawReferences []LawReference `json:"law_references" yaml:"law_references"`
	Procedures    []string       `json:"procedures" yaml:"procedures"`
	Authorities   []string       `json:"authorities" yaml:"authorities"`
	Confidence    string         `json:"confidence" yaml:"confidence"`
}

// Set is the knowledge acquired for one domain.
type Set struct {
	Domain          string    `json:"domain"`
	SkillsFound     int       `json:"skills_found"`
	Skills          []Skill   `json:"skills"`
	SourcesAccessed []string  `json:"sources_accessed"`
	ScrapeTimestamp time.Time `json:"scrape_timestamp"`
}

// Heading is the skill's display title, falling back to its topic.
func (s *Skill) Heading() string {
	if s.Title != "" {
		return s.Title
	}
	return s.Topic
}

// Render formats the skill as a knowledge block for a system prompt.
func (s *Skill) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n### %s\n", s.Heading())
	b.WriteString(s.Content)

	if len(s.LawReferences) > 0 {
		refs := make([]string, len(s.LawReferences))
		for i, r := range s.LawReferences {
			refs[i] = r.Law + " Articles " + strings.Join(r.Articles, ", ")
		}
		b.WriteString("\nReferences: ")
		b.WriteString(strings.Join(refs, "; "))
	}
	if len(s.Procedures) > 0 {
		b.WriteString("\nProcedures: ")
		b.WriteString(strings.Join(s.Procedures, " → "))
	}
	b.WriteByte('\n')
	return b.String()
}

// normalize stamps the domain on every skill and recounts.
func (s *Set) normalize(domain string) {
	s.Domain = domain
	for i := range s.Skills {
		s.Skills[i].Domain = domain
	}
	s.SkillsFound = len(s.Skills)
	if s.SourcesAccessed == nil {
		s.SourcesAccessed = []string{}
	}
	if s.ScrapeTimestamp.IsZero() {
		s.ScrapeTimestamp = time.Now().UTC()
	}
}
