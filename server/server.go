// Package server exposes the upload, sheet-analysis, cleaning,
// processing, and results operations over HTTP as a JSON API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lamii21/Etl/config"
	"github.com/lamii21/Etl/logging"
	"github.com/lamii21/Etl/store"
	"github.com/lamii21/Etl/table"
)

// Server is the HTTP front end.
type Server struct {
	cfg    *config.Config
	store  *store.Store
	router *chi.Mux
	http   *http.Server
}

// New creates a Server wired to the given config and store.
func New(cfg *config.Config, st *store.Store) *Server {
	s := &Server{
		cfg:    cfg,
		store:  st,
		router: chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))
}

func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/upload", s.handleUpload)
		r.Get("/files", s.handleListFiles)
		r.Post("/files/cleanup", s.handleCleanupFiles)
		r.Delete("/files/{fileID}", s.handleDeleteFile)

		r.Get("/sheets/{fileID}", s.handleAnalyzeSheets)
		r.Post("/sheets/{fileID}/select", s.handleSelectSheet)

		r.Route("/cleaning", func(r chi.Router) {
			r.Get("/options/default", s.handleDefaultOptions)
			r.Post("/clean/{fileID}/{sheetName}", s.handleClean)
			r.Post("/preview/{fileID}/{sheetName}", s.handlePreviewClean)
		})

		r.Route("/processing", func(r chi.Router) {
			r.Post("/start", s.handleStartProcessing)
			r.Post("/analyze-master-bom", s.handleAnalyzeMasterBOM)
			r.Post("/suggest-columns", s.handleSuggestColumns)
		})

		r.Get("/results", s.handleListResults)
		r.Get("/results/{name}/download", s.handleDownloadResult)
		r.Delete("/results/{name}", s.handleDeleteResult)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s.http.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// respondData writes the success envelope the API uses everywhere.
func respondData(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"success": true, "data": v}); err != nil {
		// headers already sent; nothing left but to log
		logging.FromContext(context.Background()).Error("encode response", "error", err)
	}
}

// respondError writes the failure envelope and logs the technical
// error with the request ID.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, table.ErrFileNotFound), errors.Is(err, table.ErrSheetNotFound):
		status = http.StatusNotFound
	}
	logging.FromContext(r.Context()).Error("request failed",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"success": false, "message": err.Error()})
}

// respondBadRequest reports a request-shape violation.
func respondBadRequest(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(map[string]any{"success": false, "message": message})
}
