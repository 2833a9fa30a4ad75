package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/typewriter/internal/config"
	"github.com/dgallion1/typewriter/internal/playback"
	"github.com/dgallion1/typewriter/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for hosted typewriter sessions.
type Server struct {
	router   chi.Router
	sessions *session.Manager
	stats    *playback.FrameStats
	log      *slog.Logger
	cfg      config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(sessions *session.Manager, stats *playback.FrameStats, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		sessions: sessions,
		stats:    stats,
		log:      log,
		cfg:      cfg,
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

		r.Post("/api/sessions", s.handleCreateSession)
		r.Route("/api/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Post("/seek", s.handleSeek)
			r.Post("/{action}", s.handleAction)
			r.Put("/text", s.handleSetText)
			r.Patch("/options", s.handleOptions)
			r.Get("/frame", s.handleFrame)
			r.Get("/events", s.handleEvents)
			r.Get("/ws", s.handleStream)
		})
		r.Get("/api/stats/frames", s.handleFrameStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
