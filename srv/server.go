// Package srv is the HTTP boundary in front of the text extractor and the
// PDF generator: routing, CORS, rate limiting, upload gating, and the
// mapping from generator error kinds to HTTP status codes.
package srv

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/patrickmn/go-cache"

	"github.com/opd-ai/fileproc/pdfgen"
	"github.com/opd-ai/fileproc/srv/util"
)

// ServiceVersion is reported on the root endpoint and in the user agent of
// outbound image fetches.
const ServiceVersion = "1.2.0"

// DefaultMaxUploadBytes gates /api/process-file uploads.
const DefaultMaxUploadBytes = 20 << 20

// Config tunes the HTTP layer.
type Config struct {
	// AllowOrigins is the CORS allow list; "*" allows everyone.
	AllowOrigins []string

	// RateLimit is the per-IP request budget per minute on /api routes.
	RateLimit int

	// MaxUploadBytes is the upload ceiling for /api/process-file.
	MaxUploadBytes int64

	// Generator configures the PDF engine.
	Generator pdfgen.Config
}

// DefaultConfig reads CORS_ALLOW_ORIGINS from the environment and applies
// the shipped limits everywhere else.
func DefaultConfig() Config {
	origins := []string{"*"}
	if env := os.Getenv("CORS_ALLOW_ORIGINS"); env != "" {
		origins = strings.Split(env, ",")
	}
	return Config{
		AllowOrigins:   origins,
		RateLimit:      60,
		MaxUploadBytes: DefaultMaxUploadBytes,
		Generator:      pdfgen.DefaultConfig(),
	}
}

// Server routes requests to the extractor and the generator.
type Server struct {
	router    chi.Router
	generator *pdfgen.Generator
	extracted *cache.Cache // content digest -> extracted text
	cfg       Config
}

func NewServer(cfg Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		generator: pdfgen.NewGenerator(cfg.Generator),
		extracted: cache.New(24*time.Hour, 1*time.Hour),
		cfg:       cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	s.router.Use(util.LoggingMiddleware)
	s.router.Use(util.RecoveryMiddleware)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.corsMiddleware)

	s.router.Get("/", s.handleRoot)
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/manual.md", s.handleManualRaw)
	s.router.Get("/manual", s.handleManualHTML)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(httprate.LimitByIP(s.cfg.RateLimit, time.Minute))
		r.Post("/process-file", s.handleProcessFile)
		r.Post("/create-pdf", s.handleCreatePDF)
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	origin := "*"
	if len(s.cfg.AllowOrigins) > 0 {
		origin = s.cfg.AllowOrigins[0]
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
