// Package server provides the HTTP API over the detector and its journal.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/foundups/pqn-detector/internal/config"
	"github.com/foundups/pqn-detector/internal/database"
	"github.com/foundups/pqn-detector/internal/ensemble"
	"github.com/foundups/pqn-detector/internal/journal"
)

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Cfg       *config.Config
	JournalDB *database.DB
	Journal   *journal.Journal
	Runner    *ensemble.Runner
}

// Server represents the HTTP server
type Server struct {
	router  *chi.Mux
	server  *http.Server
	log     zerolog.Logger
	cfg     *config.Config
	journal *journal.Journal

	detectorHandlers *DetectorHandlers
	systemHandlers   *SystemHandlers
	liveHandlers     *LiveHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:           chi.NewRouter(),
		log:              cfg.Log.With().Str("component", "server").Logger(),
		cfg:              cfg.Cfg,
		journal:          cfg.Journal,
		detectorHandlers: NewDetectorHandlers(cfg.Journal, cfg.Runner, cfg.Log),
		systemHandlers:   NewSystemHandlers(cfg.Log, cfg.Cfg.DataDir, cfg.JournalDB, cfg.Journal),
		liveHandlers:     NewLiveHandlers(cfg.Log),
	}

	s.setupMiddleware(cfg.Cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // run endpoints stream for the duration of a simulation
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.systemHandlers.HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		s.systemHandlers.RegisterRoutes(r)
		s.detectorHandlers.RegisterRoutes(r)
		s.liveHandlers.RegisterRoutes(r)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs each request with its status and duration
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("Request handled")
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
