package feedback

import (
	"log/slog"
	"net/http"

	"github.com/Reflex-Gravity/BarqAdl/pkg/handlers"
	"github.com/Reflex-Gravity/BarqAdl/pkg/routes"
)

// Handler accepts feedback submissions.
type Handler struct {
	svc     *Service
	logger  *slog.Logger
	maxBody int64
}

func NewHandler(svc *Service, logger *slog.Logger, maxBody int64) *Handler {
	return &Handler{
		svc:     svc,
		logger:  logger.With("handler", "feedback"),
		maxBody: maxBody,
	}
}

func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/feedback",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "", Handler: h.Submit},
		},
	}
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var sub Submission
	if err := handlers.DecodeJSON(w, r, h.maxBody, &sub); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	receipt, err := h.svc.Submit(r.Context(), sub)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, receipt)
}
