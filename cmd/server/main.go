package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"

	"github.com/contentguard/contentguard/internal/logger"
	"github.com/contentguard/contentguard/moderation"
)

type Server struct {
	db     *sql.DB // nil in memory mode
	store  moderation.RuleStore
	pg     *moderation.PostgresStore // nil in memory mode
	engine *moderation.Engine
	router *chi.Mux
	log    *slog.Logger
}

// NewServer wires the store, log sink and engine. With an empty databaseURL
// the server runs on the in-memory store, which is useful for local
// development and demos.
func NewServer(databaseURL string, log *slog.Logger) (*Server, error) {
	s := &Server{log: log}

	if databaseURL == "" {
		log.Warn("DATABASE_URL not set, using in-memory rule store")
		store := moderation.NewMemoryStore()
		s.store = store
		s.engine = moderation.NewEngine(store, moderation.NewMemorySink(), log)
	} else {
		db, err := sql.Open("postgres", databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.Ping(); err != nil {
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		pg := moderation.NewPostgresStore(db)
		s.db = db
		s.pg = pg
		s.store = pg
		s.engine = moderation.NewEngine(pg, pg, log)
	}

	if os.Getenv("SEED_RULES") == "true" {
		s.engine.Seed(context.Background())
	}

	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/api/v1/health", s.handleHealth)

	r.Post("/api/v1/moderate", s.handleModerate)
	r.Post("/api/v1/moderate/batch", s.handleModerateBatch)

	r.Get("/api/v1/stats", s.handleModerationStats)

	r.Route("/api/v1/rules", func(r chi.Router) {
		r.Post("/", s.handleCreateRule)
		r.Get("/", s.handleListRules)
		r.Get("/stats", s.handleRuleStats)
		r.Post("/test", s.handleTestMatch)
		r.Get("/{ruleId}", s.handleGetRule)
		r.Delete("/{ruleId}", s.handleDeactivateRule)
	})

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleModerate classifies one post. The response is always a populated
// result; internal pipeline failures surface as a degraded review result,
// not as an HTTP error.
func (s *Server) handleModerate(w http.ResponseWriter, r *http.Request) {
	var req ModerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.PostID == "" {
		respondError(w, http.StatusBadRequest, "post_id is required", nil)
		return
	}

	result := s.engine.Classify(r.Context(), req.PostID, req.Content)
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleModerateBatch(w http.ResponseWriter, r *http.Request) {
	var req ModerateBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if len(req.Posts) == 0 {
		respondError(w, http.StatusBadRequest, "posts are required", nil)
		return
	}

	results := s.engine.ClassifyBatch(r.Context(), req.Posts)
	respondJSON(w, http.StatusOK, ModerateBatchResponse{Results: results})
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var req CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	rule := &moderation.Rule{
		Pattern:     req.Pattern,
		PatternType: moderation.PatternType(req.PatternType),
		Category:    req.Category,
		Severity:    req.Severity,
		Action:      moderation.Action(req.Action),
		Description: req.Description,
		Active:      active,
	}

	id, err := s.engine.AddRule(r.Context(), rule)
	if err != nil {
		var verr *moderation.ValidationError
		if errors.As(err, &verr) {
			respondError(w, http.StatusBadRequest, "rule validation failed", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to add rule", err)
		return
	}

	rule.ID = id
	respondJSON(w, http.StatusCreated, rule)
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")

	rules, err := s.store.List(r.Context(), category)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list rules", err)
		return
	}
	if rules == nil {
		rules = []*moderation.Rule{}
	}
	respondJSON(w, http.StatusOK, RulesListResponse{Rules: rules})
}

func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "ruleId"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid rule id", err)
		return
	}

	rule, err := s.store.Get(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, "rule not found", err)
		return
	}
	respondJSON(w, http.StatusOK, rule)
}

func (s *Server) handleDeactivateRule(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "ruleId"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid rule id", err)
		return
	}

	if err := s.engine.DeactivateRule(r.Context(), id); err != nil {
		respondError(w, http.StatusNotFound, "rule not found", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRuleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.Stats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get rule stats", err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleTestMatch(w http.ResponseWriter, r *http.Request) {
	var req TestMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	report, err := s.engine.TestMatch(r.Context(), req.Content)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "rule matching test failed", err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleModerationStats(w http.ResponseWriter, r *http.Request) {
	if s.pg == nil {
		respondError(w, http.StatusNotImplemented, "moderation stats require a database", nil)
		return
	}

	hours := 24
	if h := r.URL.Query().Get("hours"); h != "" {
		parsed, err := strconv.Atoi(h)
		if err != nil || parsed <= 0 {
			respondError(w, http.StatusBadRequest, "invalid hours parameter", err)
			return
		}
		hours = parsed
	}

	stats, err := s.pg.ModerationStats(r.Context(), hours)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get moderation stats", err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	respondJSON(w, status, resp)
}

func main() {
	log := logger.New()

	server, err := NewServer(os.Getenv("DATABASE_URL"), log)
	if err != nil {
		log.Error("failed to create server", "error", err)
		os.Exit(1)
	}
	if server.db != nil {
		defer server.db.Close()
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("server shutdown error", "error", err)
	}
	log.Info("server stopped")
}
