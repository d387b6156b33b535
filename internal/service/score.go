// Package service composes the extractor, calculator, guard and ledger into
// the scoring engine's public operations.
package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/contribscore/internal/config"
	"github.com/contribscore/internal/domain"
	"github.com/contribscore/internal/ledger"
	"github.com/contribscore/internal/store"
)

// Source produces the upstream snapshots a scoring pass consumes.
type Source interface {
	ListIssues(ctx context.Context) ([]domain.Issue, error)
	ListPulls(ctx context.Context) ([]domain.PullRequest, error)
	ListCommits(ctx context.Context) ([]domain.Commit, error)
}

// ScoreService provides the leaderboard read API, manual crediting and the
// scoring orchestrator.
type ScoreService struct {
	source  Source
	store   store.Store
	ledger  *ledger.Ledger
	guard   *ledger.Guard
	scoring *config.ScoringConfig
	logger  *slog.Logger

	// syncMu serializes scoring passes within this process so concurrent
	// triggers cannot race the idempotency guard on the same pull request.
	syncMu sync.Mutex
}

// New creates the score service.
func New(
	source Source,
	st store.Store,
	l *ledger.Ledger,
	g *ledger.Guard,
	scoring *config.ScoringConfig,
	logger *slog.Logger,
) *ScoreService {
	return &ScoreService{
		source:  source,
		store:   st,
		ledger:  l,
		guard:   g,
		scoring: scoring,
		logger:  logger,
	}
}

// RecordAction applies a manual credit. Points defaults from the configured
// action table when the request omits it; unknown actions default to 0 but
// still land in the user's action log. Missing username or action is a
// validation error, never silently defaulted.
func (s *ScoreService) RecordAction(ctx context.Context, req domain.CreditRequest) (int64, error) {
	if req.Username == "" || req.Action == "" {
		return 0, domain.ErrInvalidRequest
	}

	var points int64
	if req.Points != nil {
		points = *req.Points
	} else {
		points = s.scoring.ActionPoints[req.Action]
	}

	if err := s.ledger.AddPoints(ctx, req.Username, points, req.Action); err != nil {
		return 0, err
	}
	return points, nil
}

// GetLeaderboard returns the ranked board, at most limit entries.
func (s *ScoreService) GetLeaderboard(ctx context.Context, limit int) []domain.LeaderboardEntry {
	return s.ledger.GetLeaderboard(ctx, limit)
}

// GetUserScore returns one user's aggregate score.
func (s *ScoreService) GetUserScore(ctx context.Context, username string) int64 {
	return s.ledger.GetUserScore(ctx, username)
}

// GetUserActions returns one user's recent actions, newest first.
func (s *ScoreService) GetUserActions(ctx context.Context, username string, limit int) []domain.ActionEntry {
	return s.ledger.GetUserActions(ctx, username, limit)
}

// PointsSystem returns the manual action point table for API responses.
func (s *ScoreService) PointsSystem() map[string]int64 {
	return s.scoring.ActionPoints
}

// Ping probes the persistence backend.
func (s *ScoreService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// ListIssues proxies the upstream issue snapshot.
func (s *ScoreService) ListIssues(ctx context.Context) ([]domain.Issue, error) {
	return s.source.ListIssues(ctx)
}

// ListCommits proxies the upstream commit snapshot.
func (s *ScoreService) ListCommits(ctx context.Context) ([]domain.Commit, error) {
	return s.source.ListCommits(ctx)
}
