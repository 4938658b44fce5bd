package api

import (
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/patrickmn/go-cache"

	"github.com/dgallion1/docviewer/internal/backend"
	"github.com/dgallion1/docviewer/internal/config"
	"github.com/dgallion1/docviewer/internal/session"
	"github.com/dgallion1/docviewer/internal/source"
)

// Server is the HTTP server for the document viewer.
type Server struct {
	router   chi.Router
	backend  *backend.Client
	library  *source.Library
	sessions *session.Store
	files    *cache.Cache
	pages    *template.Template
	log      *slog.Logger
	cfg      *config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(client *backend.Client, library *source.Library, sessions *session.Store, log *slog.Logger, cfg *config.Config) *Server {
	s := &Server{
		backend:  client,
		library:  library,
		sessions: sessions,
		files:    cache.New(cfg.FileListTTL, time.Minute),
		pages:    parseTemplates(),
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

	r.Get("/health", s.handleHealth)

	// Browser pages.
	r.Get("/", s.handleIndex)
	r.Get("/doc/{file}", s.handleSourceFile)
	r.Route("/viewer/{file}", func(r chi.Router) {
		r.Get("/", s.handleViewer)
		r.Post("/page", s.handlePageNav)
		r.Post("/chunks/{chunkID}", s.handleSelectChunk)
		r.Get("/chunks/{chunkID}", s.handleChunkDetail)
	})

	// JSON API.
	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.cfg.AllowedOrigins,
			AllowedMethods:   []string{"GET", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.sessions, s.log))
		}

		r.Get("/files", s.handleAPIFiles)
		r.Get("/files/{file}/pages", s.handleAPIPages)
		r.Get("/session", s.handleAPISession)
		r.Get("/stats/backend", s.handleBackendStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
