// Package server provides the HTTP API over processed courses.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/silabo/internal/config"
	"github.com/hyperjump/silabo/internal/keyword"
	"github.com/hyperjump/silabo/internal/pipeline"
	"github.com/hyperjump/silabo/internal/storage"
)

// maxRequestBody bounds JSON request bodies.
const maxRequestBody = 1 << 20

// Server is the HTTP server for the course API.
type Server struct {
	repo      storage.Repository
	index     keyword.CourseIndex
	pipeline  *pipeline.Pipeline
	config    *config.Config
	logger    *zap.Logger
	server    *http.Server
	startedAt time.Time
}

// NewServer creates a server. index and p may be nil, in which case search and
// processing answer 501.
func NewServer(
	repo storage.Repository,
	index keyword.CourseIndex,
	p *pipeline.Pipeline,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		repo:      repo,
		index:     index,
		pipeline:  p,
		config:    cfg,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// Router returns the HTTP handler with every route mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/courses", s.handleListCourses)
		r.Get("/courses/{id}", s.handleGetCourse)
		r.Get("/search", s.handleSearch)
		r.Post("/process", s.handleProcess)
	})
	return r
}

// requestLogger logs every request at debug level through zap.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
