package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/merchkit/storefront-core/internal/catalog"
	"github.com/merchkit/storefront-core/internal/gate"
	"github.com/merchkit/storefront-core/internal/identity"
	"github.com/merchkit/storefront-core/internal/infrastructure/config"
	"github.com/merchkit/storefront-core/internal/infrastructure/logging"
	"github.com/merchkit/storefront-core/internal/profile"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   *config.Config
	Logger   *logging.Logger
	Provider identity.Provider
	Profiles profile.Repository
	Catalog  catalog.Repository
	Version  string
}

// Server is the HTTP server for Storefront Core.
//
// It owns the listener, routes, middleware, the routing gate, and the
// WebSocket hub relaying session-change events. Create with New(), start
// with Start(), stop with Close().
type Server struct {
	cfg      *config.Config
	logger   *logging.Logger
	provider identity.Provider
	profiles profile.Repository
	catalog  catalog.Repository
	version  string

	gate   *gate.Gate
	hub    *Hub
	server *http.Server
	cancel context.CancelFunc
}

// New creates a new API server with the given dependencies.
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Provider == nil {
		return nil, fmt.Errorf("identity provider is required")
	}
	if deps.Profiles == nil {
		return nil, fmt.Errorf("profile repository is required")
	}
	if deps.Catalog == nil {
		return nil, fmt.Errorf("catalog repository is required")
	}

	s := &Server{
		cfg:      deps.Config,
		logger:   deps.Logger.With("component", "api"),
		provider: deps.Provider,
		profiles: deps.Profiles,
		catalog:  deps.Catalog,
		version:  deps.Version,
	}
	s.gate = gate.New(deps.Provider, deps.Profiles, deps.Logger)

	return s, nil
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub, wires it to the provider's event stream, and
// launches the listener in a background goroutine.
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	s.hub = NewHub(s.cfg.WebSocket, s.logger)
	go s.hub.Run(srvCtx)
	go s.relaySessionEvents(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       s.cfg.GetReadTimeout(),
		ReadHeaderTimeout: s.cfg.GetReadTimeout(),
		WriteTimeout:      s.cfg.GetWriteTimeout(),
		IdleTimeout:       s.cfg.GetIdleTimeout(),
	}

	go func() {
		s.logger.Info("server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server error", "error", err)
		}
	}()

	return nil
}

// relaySessionEvents forwards provider session-change events to connected
// WebSocket clients until the server context is cancelled.
func (s *Server) relaySessionEvents(ctx context.Context) {
	events, cancel := s.provider.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.hub.Broadcast(string(ev.Type), ev.Identity)
		}
	}
}

// Close gracefully shuts down the server, waiting for in-flight requests.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// HealthCheck verifies the server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}
	if s.server == nil {
		return fmt.Errorf("server not started")
	}
	return nil
}
