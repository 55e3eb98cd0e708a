// Package server exposes a fakehub over HTTP so local tools can point
// a real client at it.
package server

import (
	"context"

	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/erro"
	"github.com/maxbolgarin/hubex/internal/fakehub"
	"github.com/maxbolgarin/logze/v2"
	"github.com/maxbolgarin/servex/v2"
)

// Server serves every route of a fakehub
type Server struct {
	hub    *fakehub.Hub
	config Config
	log    logze.Logger
	server *servex.Server
}

// New creates a server around the hub
func New(cfg Config, hub *fakehub.Hub) (*Server, error) {
	if hub == nil {
		return nil, errm.New("hub is required")
	}
	if err := cfg.PrepareAndValidate(); err != nil {
		return nil, erro.Wrap(err, "validate config")
	}

	log := logze.With("module", "server")

	server, err := servex.NewServer(
		servex.WithReadTimeout(cfg.Timeout),
		servex.WithIdleTimeout(cfg.Timeout*2),
		servex.WithLogger(log),
		servex.WithHealthEndpoint(),
		servex.WithDefaultMetrics(),
		servex.WithCertificate(cfg.Certificate),
	)
	if err != nil {
		return nil, erro.Wrap(err, "failed to create server")
	}

	s := &Server{
		hub:    hub,
		config: cfg,
		log:    log,
		server: server,
	}

	for path, handler := range hub.Handlers() {
		server.HandleFunc(path, handler)
	}

	return s, nil
}

// Start begins serving on the configured address
func (s *Server) Start(ctx context.Context) error {
	s.log.Info("mock API server starting",
		"address", s.config.Address,
		"repo", s.hub.FullName(),
	)

	if s.config.EnableHTTPS {
		return s.server.StartHTTPS(s.config.Address)
	}
	return s.server.StartHTTP(s.config.Address)
}

// Stop stops the server gracefully
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
