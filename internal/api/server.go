package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/annomerge/internal/config"
	"github.com/dgallion1/annomerge/internal/pipeline"
	"github.com/dgallion1/annomerge/internal/tagger"
)

// Server is the HTTP API server for annomerge.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	tagger       *tagger.Client
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. tg may be nil when no
// tagger is configured.
func NewServer(orch *pipeline.Orchestrator, tg *tagger.Client, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		tagger:       tg,
		log:          log,
		cfg:          cfg,
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

		r.Post("/api/align", s.handleAlign)
		r.Post("/api/extract", s.handleExtract)
		r.Post("/api/merge", s.handleMerge)
		r.Post("/api/evaluate", s.handleEvaluate)

		r.Post("/api/jobs", s.handleSubmitJob)
		r.Get("/api/jobs/{jobID}", s.handleJobStatus)
		r.Delete("/api/jobs/{jobID}", s.handleCancelJob)
		r.Get("/api/jobs/{jobID}/documents/{docID}", s.handleJobDocument)

		r.Get("/api/stats/tagger", s.handleTaggerStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
