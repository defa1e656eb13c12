// Package openai exposes the pipeline through an OpenAI-compatible chat completions API.
package openai

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/Reflex-Gravity/BarqAdl/internal/pipeline"
	"github.com/Reflex-Gravity/BarqAdl/pkg/handlers"
	"github.com/Reflex-Gravity/BarqAdl/pkg/observe"
	"github.com/Reflex-Gravity/BarqAdl/pkg/routes"
)

const (
	noUserMessage = "No user message found"
	stop          = "stop"
)

// Runner answers a single query.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request, opts ...pipeline.Option) (*pipeline.Result, error)
}

type Handler struct {
	runner  Runner
	logger  *slog.Logger
	maxBody int64
}

func NewHandler(runner Runner, logger *slog.Logger, maxBody int64) *Handler {
	return &Handler{
		runner:  runner,
		logger:  logger.With("handler", "openai"),
		maxBody: maxBody,
	}
}

func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/chat/completions", Handler: h.Completions},
			{Method: "GET", Pattern: "/models", Handler: h.Models},
		},
	}
}

func (h *Handler) Completions(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := handlers.DecodeJSON(w, r, h.maxBody, &req); err != nil {
		h.fail(w, http.StatusBadRequest, "invalid_request_error", err.Error())
		return
	}

	query, ok := req.Query()
	if !ok {
		h.fail(w, http.StatusBadRequest, "invalid_request_error", noUserMessage)
		return
	}

	traceID := observe.NewTraceID()
	ctx := observe.WithTrace(r.Context(), traceID)
	preq := pipeline.Request{Query: query, History: req.History()}
	id := completionID(traceID)

	if req.Stream {
		h.stream(ctx, w, id, preq)
		return
	}

	res, err := h.runner.Run(ctx, preq)
	if err != nil {
		h.logger.Error("completion failed", "trace_id", traceID, "error", err)
		if pipeline.MapHTTPStatus(err) == http.StatusBadRequest {
			h.fail(w, http.StatusBadRequest, "invalid_request_error", err.Error())
			return
		}
		h.fail(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	prompt := utf8.RuneCountInString(query)
	completion := utf8.RuneCountInString(res.Answer)
	handlers.RespondJSON(w, http.StatusOK, Completion{
		ID:      id,
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   ModelID,
		Choices: []Choice{{
			Index:        0,
			Message:      Message{Role: "assistant", Content: res.Answer},
			FinishReason: stop,
		}},
		Usage: Usage{
			PromptTokens:     prompt,
			CompletionTokens: completion,
			TotalTokens:      prompt + completion,
		},
	})
}

// stream relays progress as quoted content chunks, then the answer, a stop
// chunk and the [DONE] sentinel. Failures end with an error chunk.
func (h *Handler) stream(ctx context.Context, w http.ResponseWriter, id string, req pipeline.Request) {
	es, err := handlers.NewEventStream(w)
	if err != nil {
		h.logger.Error("stream unavailable", "error", err)
		return
	}
	defer es.SendRaw("[DONE]")

	res, err := h.runner.Run(ctx, req, pipeline.WithProgress(func(ev pipeline.Event) {
		if ev.Stage == pipeline.StageDone {
			return
		}
		es.Send("", chunk(id, fmt.Sprintf("\n> **[%s]** %s\n\n", ev.Stage, ev.Message), nil))
	}))
	if err != nil {
		h.logger.Error("streamed completion failed", "trace_id", observe.TraceID(ctx), "error", err)
		reason := stop
		es.Send("", chunk(id, "\n\nError: failed to process query", &reason))
		return
	}

	es.Send("", chunk(id, res.Answer, nil))
	reason := stop
	es.Send("", chunk(id, "", &reason))
}

func (h *Handler) Models(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, ModelList{
		Object: "list",
		Data: []Model{{
			ID:      ModelID,
			Object:  "model",
			Created: time.Now().Unix(),
			OwnedBy: "barqadl",
		}},
	})
}

func (h *Handler) fail(w http.ResponseWriter, status int, kind, msg string) {
	if status < http.StatusInternalServerError {
		h.logger.Warn("request rejected", "status", status, "error", msg)
	}
	handlers.RespondJSON(w, status, errorResponse{Error: APIError{Message: msg, Type: kind}})
}

func chunk(id, content string, finish *string) Chunk {
	return Chunk{
		ID:      id,
		Object:  "chat.completion.chunk",
		Created: time.Now().Unix(),
		Model:   ModelID,
		Choices: []ChunkChoice{{
			Index:        0,
			Delta:        Delta{Content: content},
			FinishReason: finish,
		}},
	}
}

func completionID(traceID string) string {
	if len(traceID) > 12 {
		traceID = traceID[:12]
	}
	return "chatcmpl-" + traceID
}
