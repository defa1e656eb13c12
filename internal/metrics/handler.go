package metrics

import (
	"log/slog"
	"net/http"

	"github.com/Reflex-Gravity/BarqAdl/pkg/handlers"
	"github.com/Reflex-Gravity/BarqAdl/pkg/routes"
)

// Handler serves improvement metrics.
type Handler struct {
	svc    *Service
	logger *slog.Logger
}

func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{
		svc:    svc,
		logger: logger.With("handler", "metrics"),
	}
}

func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/metrics",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.Report},
			{Method: "GET", Pattern: "/learning-timeline", Handler: h.Timeline},
		},
	}
}

func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Report(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, report)
}

func (h *Handler) Timeline(w http.ResponseWriter, r *http.Request) {
	tl, err := h.svc.Timeline(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, tl)
}
