package api

import (
	"net/http"

	"github.com/Reflex-Gravity/BarqAdl/pkg/routes"
)

func registerRoutes(mux *http.ServeMux, domain *Domain, runtime *Runtime) {
	routes.Register(
		mux,
		domain.Pipeline.Handler(runtime.MaxRequestSize).Routes(),
		domain.Registry.Handler().Routes(),
		domain.Strategies.Handler().Routes(),
		domain.Metrics.Handler().Routes(),
		domain.Feedback.Handler(runtime.MaxRequestSize).Routes(),
		domain.Prompts.Handler().Routes(),
		newSkillsHandler(domain.Skills, runtime.Archive, runtime.Logger).routes(),
	)
}
