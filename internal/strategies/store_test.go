package strategies_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Reflex-Gravity/BarqAdl/internal/judge"
	"github.com/Reflex-Gravity/BarqAdl/internal/strategies"
	"github.com/Reflex-Gravity/BarqAdl/pkg/observe"
	"github.com/Reflex-Gravity/BarqAdl/pkg/persistence"
	"github.com/Reflex-Gravity/BarqAdl/pkg/routes"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newStore(p persistence.Store) *strategies.Store {
	return strategies.New(p, observe.Nop{}, discard())
}

func TestActiveUnknownDomain(t *testing.T) {
	if v := newStore(persistence.NewMemory()).Active("labor"); v != nil {
		t.Errorf("Active on empty store = %+v, want nil", v)
	}
}

func TestUpdateCreatesV1(t *testing.T) {
	ctx := context.Background()
	s := newStore(persistence.NewMemory())

	out, err := s.Update(ctx, "labor", 30, nil)
	if err != nil {
		t.Fatal(err)
	}
	if out.Evolved || out.Version != "v1" || out.Previous != "v1" {
		t.Errorf("outcome: %+v", out)
	}

	if _, err := s.Update(ctx, "labor", 35, nil); err != nil {
		t.Fatal(err)
	}
	v := s.Active("labor")
	if v.QueryCount != 2 || v.TotalScore != 65 || v.AvgScore != 32.5 {
		t.Errorf("v1 stats: %+v", v)
	}
}

func TestUpdateRunningMeanRounds(t *testing.T) {
	ctx := context.Background()
	s := newStore(persistence.NewMemory())
	for _, total := range []int{30, 31, 31} {
		if _, err := s.Update(ctx, "visa", total, nil); err != nil {
			t.Fatal(err)
		}
	}
	if v := s.Active("visa"); v.AvgScore != 30.67 {
		t.Errorf("avg: got %v, want 30.67", v.AvgScore)
	}
}

func TestEvolution(t *testing.T) {
	ctx := context.Background()
	s := newStore(persistence.NewMemory())
	learned := "Always cite Article 51 for gratuity questions"

	tests := []struct {
		name    string
		signal  *judge.Signal
		evolved bool
		version string
	}{
		{"no signal", nil, false, "v1"},
		{"not flagged for prompt", &judge.Signal{Learned: learned}, false, "v1"},
		{"new lesson", &judge.Signal{Learned: learned, UpdatePrompt: true}, true, "v2"},
		{"duplicate lesson", &judge.Signal{Learned: learned, UpdatePrompt: true}, false, "v2"},
		{"second lesson", &judge.Signal{Learned: "Mention MOHRE hotline", UpdatePrompt: true}, true, "v3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := s.Update(ctx, "labor", 30, tt.signal)
			if err != nil {
				t.Fatal(err)
			}
			if out.Evolved != tt.evolved || out.Version != tt.version {
				t.Errorf("outcome: %+v, want evolved=%v version=%s", out, tt.evolved, tt.version)
			}
		})
	}

	h, err := s.Get("labor")
	if err != nil {
		t.Fatal(err)
	}
	if h.Active != "v3" || len(h.Versions) != 3 {
		t.Fatalf("history: active=%s versions=%d", h.Active, len(h.Versions))
	}

	v3 := h.Versions[2]
	if diff := cmp.Diff([]string{learned, "Mention MOHRE hotline"}, v3.Enhancements); diff != "" {
		t.Errorf("v3 enhancements (-want +got):\n%s", diff)
	}
	if v3.PreviousVersion != "v2" || v3.NewEnhancement != "Mention MOHRE hotline" || v3.CreatedAt == nil {
		t.Errorf("v3 metadata: %+v", v3)
	}
	if v3.QueryCount != 0 || v3.TotalScore != 0 {
		t.Errorf("evolved version should start with zeroed stats: %+v", v3)
	}

	// the update that evolved v1 into v2 was scored against v1
	if h.Versions[0].QueryCount != 3 {
		t.Errorf("v1 query count: got %d, want 3", h.Versions[0].QueryCount)
	}
}

func TestPersistAndLoad(t *testing.T) {
	ctx := context.Background()
	mem := persistence.NewMemory()

	s := newStore(mem)
	if _, err := s.Update(ctx, "tenancy", 36, &judge.Signal{Learned: "Cite RERA calculator", UpdatePrompt: true}); err != nil {
		t.Fatal(err)
	}

	reloaded := newStore(mem)
	if err := reloaded.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(s.All(), reloaded.All()); diff != "" {
		t.Errorf("reloaded state differs (-saved +loaded):\n%s", diff)
	}
	if v := reloaded.Active("tenancy"); v == nil || v.Version != "v2" {
		t.Errorf("active after reload: %+v", v)
	}
}

func TestUpdateRepairsDanglingActive(t *testing.T) {
	ctx := context.Background()
	mem := persistence.NewMemory()

	doc := map[string]strategies.History{
		"labor": {
			Versions: []strategies.Version{{Version: "v1", Enhancements: []string{}}},
			Active:   "v9",
		},
	}
	if err := persistence.Save(ctx, mem, strategies.Key, doc); err != nil {
		t.Fatal(err)
	}

	s := newStore(mem)
	if err := s.Load(ctx); err != nil {
		t.Fatal(err)
	}
	out, err := s.Update(ctx, "labor", 30, nil)
	if err != nil {
		t.Fatal(err)
	}
	if out.Version != "v1" {
		t.Errorf("outcome version: got %s, want v1", out.Version)
	}

	h, err := s.Get("labor")
	if err != nil {
		t.Fatal(err)
	}
	if h.Active != "v1" || h.Versions[0].QueryCount != 1 {
		t.Errorf("history after update: %+v", h)
	}

	saved, _, err := persistence.Load[map[string]strategies.History](ctx, mem, strategies.Key)
	if err != nil {
		t.Fatal(err)
	}
	if saved["labor"].Active != "v1" {
		t.Errorf("persisted active: got %s, want v1", saved["labor"].Active)
	}
}

func TestGetUnknown(t *testing.T) {
	_, err := newStore(persistence.NewMemory()).Get("family")
	if !errors.Is(err, strategies.ErrNotFound) {
		t.Errorf("Get = %v, want ErrNotFound", err)
	}
}

func TestConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	mem := persistence.NewMemory()
	s := newStore(mem)

	var wg sync.WaitGroup
	for _, domain := range []string{"labor", "visa"} {
		for range 20 {
			wg.Go(func() {
				if _, err := s.Update(ctx, domain, 30, nil); err != nil {
					t.Error(err)
				}
			})
		}
	}
	wg.Wait()

	for _, domain := range []string{"labor", "visa"} {
		if v := s.Active(domain); v.QueryCount != 20 || v.TotalScore != 600 {
			t.Errorf("%s: %+v", domain, v)
		}
	}

	reloaded := newStore(mem)
	if err := reloaded.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if v := reloaded.Active("visa"); v.QueryCount != 20 {
		t.Errorf("persisted document is stale: %+v", v)
	}
}

func TestHandler(t *testing.T) {
	ctx := context.Background()
	s := newStore(persistence.NewMemory())
	if _, err := s.Update(ctx, "labor", 30, nil); err != nil {
		t.Fatal(err)
	}

	mux := http.NewServeMux()
	routes.Register(mux, s.Handler().Routes())

	t.Run("find", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("GET", "/strategies/labor", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status: %d", rec.Code)
		}
		var h strategies.History
		if err := json.NewDecoder(rec.Body).Decode(&h); err != nil || h.Active != "v1" {
			t.Errorf("body: %+v, %v", h, err)
		}
	})

	t.Run("unknown domain", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("GET", "/strategies/maritime", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("status: %d", rec.Code)
		}
	})
}
