package main

import (
	"fmt"
	"time"

	"github.com/Reflex-Gravity/BarqAdl/internal/config"
	"github.com/Reflex-Gravity/BarqAdl/internal/infrastructure"
)

type Server struct {
	infra   *infrastructure.Infrastructure
	modules *Modules
	http    *httpServer
}

func NewServer(cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}

	modules := NewModules(infra, cfg)

	router := buildRouter(infra)
	modules.Mount(router)

	infra.Logger.Info(
		"server initialized",
		"addr", cfg.Server.Addr(),
		"version", cfg.Version,
		"env", cfg.Env(),
		"store", cfg.Store.Backend,
		"model", cfg.Model.Provider,
		"archive", cfg.Storage.Enabled(),
	)

	return &Server{
		infra:   infra,
		modules: modules,
		http:    newHTTPServer(&cfg.Server, router, infra.Logger),
	}, nil
}

// Start brings up infrastructure, restores persisted agents and strategies,
// then begins serving. Requests are never served against an unloaded registry.
func (s *Server) Start() error {
	s.infra.Logger.Info("starting service")

	if err := s.infra.Start(); err != nil {
		return err
	}
	if err := s.infra.Lifecycle.WaitForStartup(); err != nil {
		return fmt.Errorf("startup failed: %w", err)
	}

	if err := s.modules.Domain.Load(s.infra.Lifecycle.Context()); err != nil {
		return fmt.Errorf("restore state: %w", err)
	}
	s.infra.Logger.Info("state restored", "agents", len(s.modules.Domain.Registry.List()))

	return s.http.Start(s.infra.Lifecycle)
}

func (s *Server) Shutdown(timeout time.Duration) error {
	s.infra.Logger.Info("initiating shutdown")
	return s.infra.Lifecycle.Shutdown(timeout)
}
