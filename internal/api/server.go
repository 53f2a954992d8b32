package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/taxguide/internal/config"
	"github.com/dgallion1/taxguide/internal/fetch"
	"github.com/dgallion1/taxguide/internal/loader"
	"github.com/dgallion1/taxguide/internal/registry"
	"github.com/dgallion1/taxguide/internal/render"
	"github.com/dgallion1/taxguide/internal/scrollsync"
	"github.com/dgallion1/taxguide/internal/sequence"
	"github.com/dgallion1/taxguide/internal/view"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for taxguide.
type Server struct {
	router   chi.Router
	registry *registry.Registry
	resolver *sequence.Resolver
	views    *view.Store
	renderer *render.Dispatcher
	stats    *fetch.Stats
	warmer   *fetch.Warmer
	log      *slog.Logger
	cfg      config.Config

	newID     func() string
	afterFunc loader.AfterFunc
}

// NewServer creates and configures the HTTP server. stats and warmer may be nil.
func NewServer(reg *registry.Registry, views *view.Store, renderer *render.Dispatcher, stats *fetch.Stats, warmer *fetch.Warmer, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		registry: reg,
		resolver: sequence.NewResolver(reg),
		views:    views,
		renderer: renderer,
		stats:    stats,
		warmer:   warmer,
		log:      log,
		cfg:      cfg,
		newID:    view.NewID,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Get("/api/sequences", s.handleListSequences)
		r.Get("/api/resolve", s.handleResolve)
		r.Get("/api/units", s.handleUnit)

		r.Post("/api/views", s.handleMountView)
		r.Route("/api/views/{viewID}", func(r chi.Router) {
			r.Get("/", s.handleGetView)
			r.Delete("/", s.handleUnmountView)
			r.Post("/scroll", s.handleScroll)
			r.Post("/navigate", s.handleNavigate)
			r.Post("/back", s.handleBack)
		})

		r.Get("/api/stats/fetch", s.handleFetchStats)
	})

	s.router = r
}

func (s *Server) viewOptions() view.Options {
	return view.Options{
		Band: scrollsync.Band{
			Top:    s.cfg.ActivationTop,
			Bottom: s.cfg.ActivationBottom,
		},
		Threshold:   s.cfg.ExtendThreshold,
		SettleDelay: s.cfg.SettleDelay,
		AfterFunc:   s.afterFunc,
		Log:         s.log,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
