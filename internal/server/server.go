// Package server provides the HTTP API for kplus.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/kplus/internal/config"
	"github.com/hyperjump/kplus/internal/indexer"
	"github.com/hyperjump/kplus/internal/models"
	"github.com/hyperjump/kplus/internal/pipeline"
	"github.com/hyperjump/kplus/internal/search"
	"github.com/hyperjump/kplus/internal/storage"
)

// maxBodyBytes bounds request bodies; acts above this size are submitted as files.
const maxBodyBytes = 16 << 20

// WatchService manages watched inbox directories. *watcher.Watcher implements it.
type WatchService interface {
	Directories() []string
	AddDirectory(path string, syncExisting bool) error
	RemoveDirectory(path string) error
}

// Server is the HTTP server for the kplus API.
type Server struct {
	engine   *search.Engine
	indexer  *indexer.Indexer
	storage  storage.Storage
	pipeline *pipeline.Pipeline
	policy   models.StatusPolicy
	logger   *zap.Logger
	server   *http.Server

	watch         WatchService
	configPath    string
	cfg           *config.Config
	watchConfigMu sync.Mutex
}

// NewServer creates a server with the given dependencies. watch may be nil when
// no inbox is configured; configPath is where watch directory changes are saved
// and may be empty.
func NewServer(
	engine *search.Engine,
	idx *indexer.Indexer,
	store storage.Storage,
	p *pipeline.Pipeline,
	cfg *config.Config,
	logger *zap.Logger,
	watch WatchService,
	configPath string,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if p == nil {
		p = pipeline.New(pipeline.WithLogger(logger))
	}
	policy, _ := cfg.Parser.Policy()
	return &Server{
		engine:     engine,
		indexer:    idx,
		storage:    store,
		pipeline:   p,
		policy:     policy,
		logger:     logger,
		watch:      watch,
		configPath: configPath,
		cfg:        cfg,
	}
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/parse", s.handleParse)
		r.Post("/search", s.handleSearch)
		r.Get("/status", s.handleStatus)

		r.Route("/documents", func(r chi.Router) {
			r.Get("/", s.handleListDocuments)
			r.Post("/", s.handleIndexDocument)
			r.Get("/{id}", s.handleGetDocument)
			r.Delete("/{id}", s.handleDeleteDocument)
			r.Get("/{id}/export", s.handleExportDocument)
			r.Get("/{id}/articles/{number}", s.handleGetArticle)
			r.Put("/{id}/status", s.handleUpdateStatus)
		})

		r.Get("/watch/directories", s.handleWatchDirectoriesList)
		r.Post("/watch/directories", s.handleWatchDirectoriesAdd)
		r.Delete("/watch/directories", s.handleWatchDirectoriesRemove)
	})
	return r
}

// requestLogger logs each request through zap at debug level.
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
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.cfg.Server.Addr()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
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
