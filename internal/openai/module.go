package openai

import (
	"log/slog"
	"net/http"

	"github.com/Reflex-Gravity/BarqAdl/pkg/middleware"
	"github.com/Reflex-Gravity/BarqAdl/pkg/module"
	"github.com/Reflex-Gravity/BarqAdl/pkg/routes"
)

// Prefix is the mount point of the OpenAI-compatible module.
const Prefix = "/v1"

// NewModule creates the /v1 module serving chat completions and the model list.
func NewModule(runner Runner, logger *slog.Logger, maxBody int64, cors *middleware.CORSConfig) *module.Module {
	logger = logger.With("module", "openai")

	mux := http.NewServeMux()
	routes.Register(mux, NewHandler(runner, logger, maxBody).Routes())

	m := module.New(Prefix, mux)
	m.Use(middleware.Recover(logger))
	m.Use(middleware.CORS(cors))
	m.Use(middleware.Logger(logger))
	return m
}
