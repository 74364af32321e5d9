// Package server is the harp HTTP API consumed by the triage client.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hackutd/harp-sub000/internal/config"
	"github.com/hackutd/harp-sub000/internal/storage"
)

const shutdownTimeout = 10 * time.Second

// Server is the HTTP API server.
type Server struct {
	store      storage.Store
	configs    ConfigGetter
	logger     *zap.SugaredLogger
	handler    http.Handler
	httpServer *http.Server
	startTime  time.Time

	addrMu sync.Mutex
	addr   string
}

// NewServer builds the router. configs is usually a *ConfigWatcher, which
// Start also starts so token changes apply without a restart.
func NewServer(st storage.Store, configs ConfigGetter, logger *zap.SugaredLogger) *Server {
	s := &Server{
		store:     st,
		configs:   configs,
		logger:    logger,
		startTime: time.Now(),
	}
	s.handler = s.routes()
	return s
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.healthCheckHandler)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)

			r.Route("/reviews", func(r chi.Router) {
				r.Get("/pending", s.getPendingReviews)
				r.Get("/completed", s.getCompletedReviews)
				r.Get("/next", s.getNextReview)
				r.Put("/{reviewID}", s.submitVote)
			})
			r.Route("/applications", func(r chi.Router) {
				r.Get("/", s.listApplicationsHandler)
				r.Get("/stats", s.getApplicationStats)
				r.Get("/{applicationID}", s.getApplication)
				r.Get("/{applicationID}/notes", s.getApplicationNotes)
			})
		})
	})
	return r
}

// Start registers the configured admins, starts the config watcher and
// serves until Stop is called.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configs.Config()
	if err := s.syncAdmins(ctx, cfg); err != nil {
		return fmt.Errorf("register admins: %w", err)
	}

	if cw, ok := s.configs.(*ConfigWatcher); ok {
		cw.OnReload(func(c *config.Config) {
			if err := s.syncAdmins(context.Background(), c); err != nil {
				s.logger.Errorw("register admins after reload", "error", err)
			}
		})
		if err := cw.Start(ctx); err != nil {
			// Serving still works; tokens just need a restart to change.
			s.logger.Warnw("config watcher not started", "error", err)
		}
	}

	ln, err := net.Listen("tcp", cfg.ServerAddr)
	if err != nil {
		s.stopWatcher()
		return fmt.Errorf("listen on %s: %w", cfg.ServerAddr, err)
	}
	s.addrMu.Lock()
	s.addr = ln.Addr().String()
	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.httpServer
	s.addrMu.Unlock()

	s.logger.Infow("starting HTTP server", "addr", ln.Addr().String(), "admins", len(cfg.Admins))
	if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		s.stopWatcher()
		return err
	}
	return nil
}

// Addr returns the bound address once Start is listening.
func (s *Server) Addr() string {
	s.addrMu.Lock()
	defer s.addrMu.Unlock()
	return s.addr
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	s.stopWatcher()

	s.addrMu.Lock()
	srv := s.httpServer
	s.addrMu.Unlock()
	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) stopWatcher() {
	if cw, ok := s.configs.(*ConfigWatcher); ok {
		cw.Stop()
	}
}

// syncAdmins mirrors the allowlist into the admins table so peer notes can
// be attributed by email.
func (s *Server) syncAdmins(ctx context.Context, cfg *config.Config) error {
	for _, a := range cfg.Admins {
		if err := s.store.UpsertAdmin(ctx, storage.Admin{ID: a.ID, Email: a.Email}); err != nil {
			return fmt.Errorf("admin %s: %w", a.ID, err)
		}
	}
	return nil
}
