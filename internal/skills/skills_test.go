package skills_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/Reflex-Gravity/BarqAdl/internal/prompts"
	"github.com/Reflex-Gravity/BarqAdl/internal/skills"
	"github.com/Reflex-Gravity/BarqAdl/pkg/model"
	"github.com/Reflex-Gravity/BarqAdl/pkg/observe"
	"github.com/Reflex-Gravity/BarqAdl/pkg/persistence"
	"github.com/Reflex-Gravity/BarqAdl/pkg/storage"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixedSource map[string]string

func (s fixedSource) Fetch(ctx context.Context, query string) (string, error) {
	return s[query], nil
}

type countingInvoker struct {
	calls atomic.Int32
	reply string
	err   error
	user  string
}

func (c *countingInvoker) Invoke(ctx context.Context, system, user string, opts model.Options) (string, error) {
	c.calls.Add(1)
	c.user = user
	return c.reply, c.err
}

func newEquipper(store persistence.Store, inv model.Invoker, opts ...skills.Option) *skills.Equipper {
	return skills.New(store, inv, prompts.New(persistence.NewMemory(), discard()), observe.Nop{}, discard(), opts...)
}

func TestSeedCounts(t *testing.T) {
	want := map[string]int{"labor": 5, "tenancy": 5, "commercial": 4, "visa": 5}
	for domain, n := range want {
		set := skills.Seed(domain)
		if set.SkillsFound != n || len(set.Skills) != n {
			t.Errorf("%s: got %d skills, want %d", domain, len(set.Skills), n)
		}
		for _, s := range set.Skills {
			if s.Domain != domain || s.SkillID == "" || s.Content == "" {
				t.Errorf("%s: incomplete seed skill %+v", domain, s)
			}
		}
	}
}

func TestSeedPlaceholder(t *testing.T) {
	set := skills.Seed("maritime")
	if len(set.Skills) != 1 {
		t.Fatalf("placeholder: got %d skills", len(set.Skills))
	}
	s := set.Skills[0]
	if s.SkillID != "maritime_general_001" || s.Title != "General maritime Law Overview" || s.Confidence != "low" {
		t.Errorf("placeholder skill: %+v", s)
	}
	if s.Authorities[0] != "Ministry of Justice" {
		t.Errorf("placeholder authorities: %v", s.Authorities)
	}
}

func TestQueries(t *testing.T) {
	if q := skills.Queries("visa"); len(q) != 5 || q[0] != "UAE work permit process MOHRE" {
		t.Errorf("visa queries: %v", q)
	}
	if q := skills.Queries("family"); len(q) != 1 || q[0] != "UAE family law regulations" {
		t.Errorf("generic queries: %v", q)
	}
}

func TestRender(t *testing.T) {
	s := skills.Skill{
		Topic:         "end_of_service_gratuity",
		Content:       "21 days per year.",
		LawReferences: []skills.LawReference{{Law: "Federal Decree-Law No. 33 of 2021", Articles: []string{"51", "52"}}},
		Procedures:    []string{"Calculate", "Claim"},
	}
	want := "\n### end_of_service_gratuity\n21 days per year.\nReferences: Federal Decree-Law No. 33 of 2021 Articles 51, 52\nProcedures: Calculate → Claim\n"
	if got := s.Render(); got != want {
		t.Errorf("Render:\ngot  %q\nwant %q", got, want)
	}
}

func TestEquipSeedsWithoutSource(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewMemory()
	inv := &countingInvoker{}

	set, err := newEquipper(store, inv).Equip(ctx, "labor")
	if err != nil {
		t.Fatalf("Equip: %v", err)
	}
	if set.SkillsFound != 5 {
		t.Errorf("skills: got %d", set.SkillsFound)
	}
	if inv.calls.Load() != 0 {
		t.Error("no source configured; extraction must not run")
	}

	cached, err := newEquipper(store, inv).Lookup(ctx, "labor")
	if err != nil || len(cached) != 5 {
		t.Errorf("Lookup after Equip = %d, %v", len(cached), err)
	}
}

func TestEquipUsesCache(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewMemory()
	custom := skills.Set{Domain: "visa", SkillsFound: 1, Skills: []skills.Skill{{SkillID: "visa_custom_001", Title: "Custom"}}}
	if err := persistence.Save(ctx, store, skills.Key("visa"), custom); err != nil {
		t.Fatal(err)
	}

	inv := &countingInvoker{}
	e := newEquipper(store, inv, skills.WithSource(fixedSource{"UAE work permit process MOHRE": "text"}))

	set, err := e.Equip(ctx, "visa")
	if err != nil {
		t.Fatal(err)
	}
	if len(set.Skills) != 1 || set.Skills[0].SkillID != "visa_custom_001" {
		t.Errorf("cache not used: %+v", set)
	}
	if inv.calls.Load() != 0 {
		t.Error("cached domain must not trigger extraction")
	}
}

func TestEquipExtracts(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewMemory()
	archive := storage.NewMemory()

	inv := &countingInvoker{reply: `{"skills": [{"skill_id": "tenancy_x_001", "domain": "wrong", "title": "Notice", "content": "90 days."}], "sources_accessed": ["dubailand.gov.ae"]}`}
	src := fixedSource{"Dubai tenancy law eviction rules": "Eviction requires 12 months notice."}

	set, err := newEquipper(store, inv, skills.WithSource(src), skills.WithArchive(archive)).Equip(ctx, "tenancy")
	if err != nil {
		t.Fatalf("Equip: %v", err)
	}
	if inv.calls.Load() != 1 {
		t.Errorf("extraction calls: got %d", inv.calls.Load())
	}
	if len(set.Skills) != 1 || set.Skills[0].Domain != "tenancy" || set.SkillsFound != 1 {
		t.Errorf("extracted set: %+v", set)
	}
	if !strings.HasPrefix(inv.user, "Domain: tenancy\n\nRaw content:\nSource: Dubai tenancy law eviction rules\n") ||
		!strings.HasSuffix(inv.user, "\n\nExtract and structure skills.") {
		t.Errorf("extraction user content:\n%s", inv.user)
	}

	data, err := archive.Get(ctx, skills.ArchiveKey("tenancy"))
	if err != nil {
		t.Fatalf("archive not written: %v", err)
	}
	var mirrored skills.Set
	if err := json.Unmarshal(data, &mirrored); err != nil || mirrored.Skills[0].SkillID != "tenancy_x_001" {
		t.Errorf("archived set: %s", data)
	}
}

func TestEquipExtractionFailureFallsBack(t *testing.T) {
	src := fixedSource{"UAE corporate tax 2023 rules": "9% above AED 375,000"}

	for name, inv := range map[string]*countingInvoker{
		"call fails":  {err: errors.New("throttled")},
		"unparseable": {reply: "no json here"},
		"no skills":   {reply: `{"skills": []}`},
	} {
		t.Run(name, func(t *testing.T) {
			set, err := newEquipper(persistence.NewMemory(), inv, skills.WithSource(src)).Equip(context.Background(), "commercial")
			if err != nil {
				t.Fatal(err)
			}
			if set.SkillsFound != 4 {
				t.Errorf("expected commercial seeds, got %d skills", set.SkillsFound)
			}
		})
	}
}

func TestEquipRestoresFromArchive(t *testing.T) {
	ctx := context.Background()
	archive := storage.NewMemory()
	archived, _ := json.Marshal(skills.Set{Skills: []skills.Skill{{SkillID: "family_custody_001", Title: "Custody"}}})
	if err := archive.Put(ctx, skills.ArchiveKey("family"), archived); err != nil {
		t.Fatal(err)
	}

	set, err := newEquipper(persistence.NewMemory(), &countingInvoker{}, skills.WithArchive(archive)).Equip(ctx, "family")
	if err != nil {
		t.Fatal(err)
	}
	if len(set.Skills) != 1 || set.Skills[0].SkillID != "family_custody_001" || set.Domain != "family" {
		t.Errorf("restored set: %+v", set)
	}
}
