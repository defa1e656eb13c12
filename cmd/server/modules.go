package main

import (
	"encoding/json"
	"net/http"

	"github.com/Reflex-Gravity/BarqAdl/internal/api"
	"github.com/Reflex-Gravity/BarqAdl/internal/config"
	"github.com/Reflex-Gravity/BarqAdl/internal/infrastructure"
	"github.com/Reflex-Gravity/BarqAdl/internal/openai"
	"github.com/Reflex-Gravity/BarqAdl/pkg/module"
)

type Modules struct {
	Domain *api.Domain
	API    *module.Module
	OpenAI *module.Module
}

func NewModules(infra *infrastructure.Infrastructure, cfg *config.Config) *Modules {
	runtime := api.NewRuntime(cfg, infra)
	domain := api.NewDomain(runtime)

	return &Modules{
		Domain: domain,
		API:    api.NewModule(cfg, runtime, domain),
		OpenAI: openai.NewModule(domain.Pipeline, infra.Logger, runtime.MaxRequestSize, &cfg.API.CORS),
	}
}

func (m *Modules) Mount(router *module.Router) {
	router.Mount(m.API)
	router.Mount(m.OpenAI)
}

func buildRouter(infra *infrastructure.Infrastructure) *module.Router {
	router := module.NewRouter()

	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	router.HandleNative("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !infra.Lifecycle.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "not ready"})
			return
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	})

	return router
}
