package pipeline

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/Reflex-Gravity/BarqAdl/pkg/handlers"
	"github.com/Reflex-Gravity/BarqAdl/pkg/observe"
	"github.com/Reflex-Gravity/BarqAdl/pkg/routes"
)

// Handler serves chat requests over JSON and server-sent events.
type Handler struct {
	ctrl    *Controller
	logger  *slog.Logger
	maxBody int64
}

func NewHandler(ctrl *Controller, logger *slog.Logger, maxBody int64) *Handler {
	return &Handler{
		ctrl:    ctrl,
		logger:  logger.With("handler", "chat"),
		maxBody: maxBody,
	}
}

// Handler returns the chat HTTP handler.
func (c *Controller) Handler(maxBody int64) *Handler {
	return NewHandler(c, c.rt.Logger, maxBody)
}

func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/chat",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "", Handler: h.Chat},
			{Method: "POST", Pattern: "/stream", Handler: h.Stream},
		},
	}
}

// Chat runs the pipeline and responds with the full Result.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	res, err := h.ctrl.Run(r.Context(), req)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, res)
}

// Stream runs the pipeline, forwarding each progress Event as a "progress"
// event, then the Result as "result" and an empty "done". A failed run ends
// with a single "error" event instead.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	stream, err := handlers.NewEventStream(w)
	if err != nil {
		h.logger.Error("stream unavailable", "error", err)
		return
	}

	ctx := observe.WithTrace(r.Context(), observe.NewTraceID())
	res, err := h.ctrl.Run(ctx, req, WithProgress(func(ev Event) {
		stream.Send("progress", ev)
	}))
	if err != nil {
		h.logger.Error("stream run failed", "trace_id", observe.TraceID(ctx), "error", err)
		stream.Send("error", map[string]string{"error": "failed to process query"})
		return
	}

	stream.Send("result", res)
	stream.Send("done", struct{}{})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (Request, bool) {
	var req Request
	if err := handlers.DecodeJSON(w, r, h.maxBody, &req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return req, false
	}
	if strings.TrimSpace(req.Query) == "" {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrEmptyQuery)
		return req, false
	}
	return req, true
}

