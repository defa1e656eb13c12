package strategies

import (
	"log/slog"
	"net/http"

	"github.com/Reflex-Gravity/BarqAdl/pkg/handlers"
	"github.com/Reflex-Gravity/BarqAdl/pkg/routes"
)

// Handler serves strategy histories.
type Handler struct {
	store  *Store
	logger *slog.Logger
}

func NewHandler(store *Store, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger.With("handler", "strategies"),
	}
}

func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/strategies",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/{domain}", Handler: h.Find},
		},
	}
}

// List returns every domain's history keyed by domain.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, h.store.All())
}

func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	hist, err := h.store.Get(r.PathValue("domain"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, hist)
}
