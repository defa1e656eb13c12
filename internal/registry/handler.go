package registry

import (
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"time"

	"github.com/Reflex-Gravity/BarqAdl/pkg/handlers"
	"github.com/Reflex-Gravity/BarqAdl/pkg/routes"
)

// AgentView is one agent in the registry listing.
type AgentView struct {
	Domain     string    `json:"domain"`
	SkillCount int       `json:"skillCount"`
	AvgScore   float64   `json:"avgScore"`
	QueryCount int       `json:"queryCount"`
	CreatedAt  time.Time `json:"createdAt"`
	Status     string    `json:"status"`
}

// Listing is the registry status response.
type Listing struct {
	TotalAgents int         `json:"totalAgents"`
	Agents      []AgentView `json:"agents"`
}

// Handler serves registry status.
type Handler struct {
	reg    *Registry
	logger *slog.Logger
}

func NewHandler(reg *Registry, logger *slog.Logger) *Handler {
	return &Handler{
		reg:    reg,
		logger: logger.With("handler", "agents"),
	}
}

func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/agents",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/{domain}", Handler: h.Find},
		},
	}
}

// List returns every registered agent ordered by domain.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, Status(h.reg.List()))
}

func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	rec, err := h.reg.Get(r.PathValue("domain"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, view(rec.Stats))
}

// Status builds the registry listing from stats.
func Status(stats map[string]Stats) Listing {
	domains := slices.Sorted(maps.Keys(stats))
	out := Listing{TotalAgents: len(stats), Agents: make([]AgentView, 0, len(stats))}
	for _, d := range domains {
		out.Agents = append(out.Agents, view(stats[d]))
	}
	return out
}

func view(st Stats) AgentView {
	return AgentView{
		Domain:     st.Domain,
		SkillCount: st.Skills,
		AvgScore:   st.AvgScore,
		QueryCount: st.QueryCount,
		CreatedAt:  st.CreatedAt,
		Status:     "active",
	}
}
