// Package server exposes the scan pipeline over HTTP. Routing, parsing
// and session plumbing live here; all decision logic stays in the
// orchestrator.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/repscan/app-scanner/internal/config"
	"github.com/repscan/app-scanner/internal/orchestrator"
	"github.com/repscan/app-scanner/internal/scan"
	"github.com/repscan/app-scanner/internal/store"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

const sessionCookie = "session_id"

// Scanner is the slice of the orchestrator the server depends on. Defined
// here so handlers can be tested with a mock pipeline.
type Scanner interface {
	ScanFile(ctx context.Context, content []byte, filename string) (*scan.Result, error)
	ScanURL(ctx context.Context, rawurl string) (*scan.Result, error)
}

// Server is the HTTP front end of the scanner.
type Server struct {
	cfg        *config.Config
	scanner    Scanner
	results    store.ResultStore
	logger     *zap.Logger
	httpServer *http.Server
}

// NewServer creates the HTTP server. results may be nil, disabling the
// session result handoff.
func NewServer(cfg *config.Config, scanner Scanner, results store.ResultStore, logger *zap.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		scanner: scanner,
		results: results,
		logger:  logger,
	}
	s.httpServer = &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: s.Routes(),
	}
	return s
}

// Routes builds the router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/api/health", s.handleHealth)
	r.Get("/api/keys", s.handleKeys)
	r.Post("/api/scan", s.handleScanFile)
	r.Post("/api/scan_url", s.handleScanURL)
	r.Get("/api/result", s.handleResult)
	return r
}

// Start begins serving. It blocks until the listener fails or Stop is
// called.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", zap.String("address", s.cfg.ListenAddr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Warn("HTTP server shutdown failed", zap.Error(err))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"version": Version,
	})
}

func (s *Server) handleKeys(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"ok":   true,
		"keys": s.cfg.KeyStatus(),
	})
}

type scanURLRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleScanURL(w http.ResponseWriter, r *http.Request) {
	var req scanURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.scanner.ScanURL(r.Context(), req.URL)
	if err != nil {
		s.writeScanError(w, err)
		return
	}
	s.finish(w, r, result)
}

func (s *Server) handleScanFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid upload")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	result, err := s.scanner.ScanFile(r.Context(), content, header.Filename)
	if err != nil {
		s.writeScanError(w, err)
		return
	}
	s.finish(w, r, result)
}

// handleResult pops the session's stored result. The read consumes the
// entry: refreshing the results page asks for a new scan instead of
// replaying a stale verdict.
func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	if s.results == nil {
		s.writeError(w, http.StatusNotFound, "no result available")
		return
	}

	cookie, err := r.Cookie(sessionCookie)
	if err != nil || cookie.Value == "" {
		s.writeError(w, http.StatusNotFound, "no result available")
		return
	}

	result, err := s.results.TakeOnce(r.Context(), store.Key(cookie.Value))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "no result available")
			return
		}
		s.logger.Error("Result store read failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"ok": true, "result": result})
}

// finish stashes the result for the caller's session and writes the
// response. Store failures are logged but never fail a completed scan.
func (s *Server) finish(w http.ResponseWriter, r *http.Request, result *scan.Result) {
	if s.results != nil {
		session := s.ensureSession(w, r)
		if err := s.results.Put(r.Context(), store.Key(session), result); err != nil {
			s.logger.Warn("Failed to stash scan result",
				zap.String("scan_id", result.ID),
				zap.Error(err))
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"ok": true, "result": result})
}

// ensureSession returns the caller's session ID, minting a cookie when
// none exists yet.
func (s *Server) ensureSession(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(sessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// writeScanError maps pipeline errors onto the HTTP taxonomy: setup
// problems are 403, bad input is 400, everything else is 500.
func (s *Server) writeScanError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orchestrator.ErrNotConfigured):
		s.writeError(w, http.StatusForbidden, "application not configured")
	case errors.Is(err, orchestrator.ErrInvalidInput):
		s.writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("Scan failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "scan failed")
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("Failed to write response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]any{"ok": false, "error": msg})
}
