// Package server exposes the stored collections and run history over a small
// JSON API, plus an endpoint for triggering ingest on demand.
package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/pitchradar/radar-cli/internal/model"
	"github.com/pitchradar/radar-cli/internal/store"
)

// Server routes API requests against the store.
type Server struct {
	store   store.Store
	ingest  func(source string)
	sources []string
}

// Option configures a Server.
type Option func(*Server)

// WithIngestTrigger enables POST /api/ingest. The trigger runs asynchronously;
// the handler returns 202 immediately.
func WithIngestTrigger(sources []string, trigger func(source string)) Option {
	return func(s *Server) {
		s.sources = sources
		s.ingest = trigger
	}
}

// New creates a Server over the given store.
func New(st store.Store, opts ...Option) *Server {
	s := &Server{store: st}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the chi router with CORS enabled for browser extension
// callers.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/opportunities", s.handleOpportunities)
		r.Get("/opportunities/{source}", s.handleSourceOpportunities)
		r.Get("/sources", s.handleSources)
		r.Get("/runs", s.handleRuns)
		if s.ingest != nil {
			r.Post("/ingest", s.handleIngest)
		}
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleOpportunities(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.GetCollection(r.Context(), store.AggregateKey)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load opportunities")
		zap.L().Error("server: load aggregate collection", zap.Error(err))
		return
	}
	s.writeCollection(w, r, store.AggregateKey, items)
}

func (s *Server) handleSourceOpportunities(w http.ResponseWriter, r *http.Request) {
	source := chi.URLParam(r, "source")
	key := store.SourceKey(source)
	items, err := s.store.GetCollection(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load opportunities")
		zap.L().Error("server: load collection", zap.String("key", key), zap.Error(err))
		return
	}
	s.writeCollection(w, r, key, items)
}

func (s *Server) writeCollection(w http.ResponseWriter, r *http.Request, key string, items []model.Opportunity) {
	updated, err := s.store.LastUpdated(r.Context(), key)
	if err != nil {
		zap.L().Warn("server: last updated lookup failed", zap.String("key", key), zap.Error(err))
	}
	if items == nil {
		items = []model.Opportunity{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"opportunities": items,
		"count":         len(items),
		"updated_at":    updated,
	})
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	keys, err := s.store.ListKeys(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list sources")
		zap.L().Error("server: list keys", zap.Error(err))
		return
	}
	if keys == nil {
		keys = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"keys": keys})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	outcomes, err := s.store.ListOutcomes(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		zap.L().Error("server: list outcomes", zap.Error(err))
		return
	}
	if outcomes == nil {
		outcomes = []model.BatchOutcome{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": outcomes})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Source string `json:"source"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Source == "" {
		writeError(w, http.StatusBadRequest, "source is required")
		return
	}

	known := false
	for _, name := range s.sources {
		if name == req.Source {
			known = true
			break
		}
	}
	if !known {
		writeError(w, http.StatusNotFound, "unknown source")
		return
	}

	// Ingest runs asynchronously; the caller polls /api/runs for the outcome.
	go s.ingest(req.Source)

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status": "accepted",
		"source": req.Source,
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Debug("server: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
