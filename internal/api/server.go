// Package api provides the HTTP API server and handlers for the
// MediaKeep application.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mediakeepapp/mediakeep-server/internal/config"
	"github.com/mediakeepapp/mediakeep-server/internal/media/thumbs"
	"github.com/mediakeepapp/mediakeep-server/internal/ratelimit"
	"github.com/mediakeepapp/mediakeep-server/internal/scanner"
	"github.com/mediakeepapp/mediakeep-server/internal/store/sqlite"
)

// Version is the server version reported by the health endpoint.
const Version = "1.0.0"

// Server holds dependencies for HTTP handlers.
type Server struct {
	cfg           *config.Config
	store         *sqlite.Store
	scanner       *scanner.Scanner
	thumbs        *thumbs.Populator
	uploadLimiter *ratelimit.KeyedRateLimiter
	router        *chi.Mux
	api           huma.API
	logger        *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(cfg *config.Config, st *sqlite.Store, sc *scanner.Scanner, tp *thumbs.Populator, logger *slog.Logger) *Server {
	router := chi.NewRouter()

	humaConfig := huma.DefaultConfig("MediaKeep API", Version)
	api := humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s := &Server{
		cfg:           cfg,
		store:         st,
		scanner:       sc,
		thumbs:        tp,
		uploadLimiter: ratelimit.New(cfg.Server.UploadRPS, cfg.Server.UploadBurst),
		router:        router,
		api:           api,
		logger:        logger,
	}

	s.setupMiddleware()
	s.registerMediaRoutes()
	s.setupRawRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close releases server-owned resources.
func (s *Server) Close() {
	s.uploadLimiter.Stop()
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(metricsMiddleware)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

// setupRawRoutes registers the routes that stream bodies and bypass
// huma: uploads, library file serving, and metrics.
func (s *Server) setupRawRoutes() {
	s.router.Post("/api/upload", s.handleUpload)
	s.router.Get("/api/file/*", s.handleServeFile)
	s.router.Handle("/metrics", promhttp.Handler())
}
