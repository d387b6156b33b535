package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/contribscore/internal/domain"
	"github.com/contribscore/internal/service"
)

// Handler provides HTTP handlers for the scoreboard API
type Handler struct {
	service *service.ScoreService
	logger  *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(svc *service.ScoreService, logger *slog.Logger) *Handler {
	return &Handler{
		service: svc,
		logger:  logger,
	}
}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(corsMiddleware)

	// Health check
	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/leaderboard", h.GetLeaderboard)
		r.Post("/leaderboard", h.AddPoints)
		r.Get("/pulls", h.SyncPulls)
		r.Get("/issues", h.GetIssues)
		r.Get("/commits", h.GetCommits)
		r.Get("/sync/last", h.GetLastSync)
	})

	return r
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error JSON response
func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// ReadyCheck returns service readiness, probing the store
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ping(r.Context()); err != nil {
		h.writeError(w, http.StatusServiceUnavailable, domain.ErrStoreUnavailable)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// GetLeaderboard returns the ranked board, or one user's detail when the
// "user" query parameter is present.
func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	if username := r.URL.Query().Get("user"); username != "" {
		score := h.service.GetUserScore(r.Context(), username)
		actions := h.service.GetUserActions(r.Context(), username, 0)
		h.writeJSON(w, http.StatusOK, map[string]interface{}{
			"username":     username,
			"score":        score,
			"actions":      actions,
			"pointsSystem": h.service.PointsSystem(),
		})
		return
	}

	board := h.service.GetLeaderboard(r.Context(), limit)
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"leaderboard":  board,
		"pointsSystem": h.service.PointsSystem(),
		"total":        len(board),
	})
}

// AddPoints records a manual credit
func (h *Handler) AddPoints(w http.ResponseWriter, r *http.Request) {
	var req domain.CreditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	points, err := h.service.RecordAction(r.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) {
			h.writeError(w, http.StatusBadRequest, err)
			return
		}
		if domain.IsUnavailable(err) {
			h.writeError(w, http.StatusServiceUnavailable, err)
			return
		}
		h.logger.Error("failed to record action", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"username": req.Username,
		"action":   req.Action,
		"points":   points,
	})
}

// SyncPulls runs one scoring pass and returns the annotated pull requests
// plus a score snapshot. Crediting happens only on this explicit trigger,
// never as a side effect of leaderboard reads.
func (h *Handler) SyncPulls(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Sync(r.Context())
	if err != nil {
		h.logger.Error("scoring pass failed", "error", err)
		if errors.Is(err, domain.ErrUpstreamUnavailable) {
			h.writeError(w, http.StatusBadGateway, domain.ErrUpstreamUnavailable)
			return
		}
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"pulls":       result.Pulls,
		"leaderboard": result.Leaderboard,
	})
}

// GetIssues returns the upstream issue snapshot
func (h *Handler) GetIssues(w http.ResponseWriter, r *http.Request) {
	issues, err := h.service.ListIssues(r.Context())
	if err != nil {
		h.logger.Error("failed to fetch issues", "error", err)
		h.writeError(w, http.StatusBadGateway, domain.ErrUpstreamUnavailable)
		return
	}

	// The issues feed excludes pull requests; the pulls endpoint covers them.
	filtered := make([]domain.Issue, 0, len(issues))
	for _, issue := range issues {
		if !issue.IsPullRequest {
			filtered = append(filtered, issue)
		}
	}
	h.writeJSON(w, http.StatusOK, filtered)
}

// GetCommits returns the upstream commit snapshot
func (h *Handler) GetCommits(w http.ResponseWriter, r *http.Request) {
	commits, err := h.service.ListCommits(r.Context())
	if err != nil {
		h.logger.Error("failed to fetch commits", "error", err)
		h.writeError(w, http.StatusBadGateway, domain.ErrUpstreamUnavailable)
		return
	}
	h.writeJSON(w, http.StatusOK, commits)
}

// GetLastSync returns the most recent scoring pass summary
func (h *Handler) GetLastSync(w http.ResponseWriter, r *http.Request) {
	summary, ok := h.service.LastSync(r.Context())
	if !ok {
		h.writeError(w, http.StatusNotFound, errors.New("no scoring pass recorded"))
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}
