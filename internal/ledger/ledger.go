// Package ledger maintains the durable per-user aggregate score and bounded
// action log, and guards contributions against double-crediting.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/contribscore/internal/config"
	"github.com/contribscore/internal/domain"
	"github.com/contribscore/internal/store"
)

// Store key layout. Aggregate scores are one sorted collection, each user's
// action log is a bounded list, the processed set is a plain set.
const (
	leaderboardKey = "leaderboard"
	processedKey   = "processed:pulls"
)

func userActionsKey(username string) string {
	return fmt.Sprintf("user:%s:actions", username)
}

// Ledger is the only mutator of aggregate scores. Reads fail soft: when the
// store is unavailable they return empty or zero results, never an error.
// A missing leaderboard is acceptable, a crashed page is not.
type Ledger struct {
	store  store.Store
	config *config.LeaderboardConfig
	logger *slog.Logger
}

// New creates a ledger over the given store.
func New(st store.Store, cfg *config.LeaderboardConfig, logger *slog.Logger) *Ledger {
	return &Ledger{
		store:  st,
		config: cfg,
		logger: logger,
	}
}

// AddPoints increments the user's aggregate by points and appends an action
// log entry, trimming the log to its configured cap. The increment happens
// store-side, so concurrent credits on the same user serialize there. When
// the store is down the write is skipped and reported, never applied blind.
func (l *Ledger) AddPoints(ctx context.Context, username string, points int64, action string) error {
	if _, err := l.store.IncrScore(ctx, leaderboardKey, username, points); err != nil {
		l.logger.Warn("credit skipped, store unavailable",
			"username", username,
			"points", points,
			"error", err,
		)
		return fmt.Errorf("adding points for %s: %w", username, domain.ErrStoreUnavailable)
	}

	entry := domain.ActionEntry{
		Action:    action,
		Points:    points,
		Timestamp: time.Now().UTC(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling action entry: %w", err)
	}
	if err := l.store.PushEntry(ctx, userActionsKey(username), data, int64(l.config.ActionLogSize)); err != nil {
		// Score already applied; the log entry is best-effort.
		l.logger.Warn("action log entry dropped",
			"username", username,
			"action", action,
			"error", err,
		)
	}
	return nil
}

// GetLeaderboard returns up to limit entries ordered by descending score with
// 1-based ranks and no gaps. Equal scores order by username descending, the
// rule every store backend implements.
func (l *Ledger) GetLeaderboard(ctx context.Context, limit int) []domain.LeaderboardEntry {
	if limit <= 0 {
		limit = l.config.DefaultLimit
	}
	if limit > l.config.MaxLimit {
		limit = l.config.MaxLimit
	}

	results, err := l.store.TopN(ctx, leaderboardKey, int64(limit))
	if err != nil {
		l.logger.Warn("leaderboard read degraded to empty", "error", err)
		return []domain.LeaderboardEntry{}
	}

	entries := make([]domain.LeaderboardEntry, len(results))
	for i, result := range results {
		entries[i] = domain.LeaderboardEntry{
			Rank:     int64(i + 1),
			Username: result.Member,
			Score:    result.Score,
		}
	}
	return entries
}

// GetUserScore returns the user's aggregate, or 0 when the user has never
// been credited or the store is unavailable.
func (l *Ledger) GetUserScore(ctx context.Context, username string) int64 {
	score, ok, err := l.store.GetScore(ctx, leaderboardKey, username)
	if err != nil {
		l.logger.Warn("user score read degraded to zero", "username", username, "error", err)
		return 0
	}
	if !ok {
		return 0
	}
	return score
}

// GetUserActions returns up to limit action entries, newest first. Malformed
// entries are skipped, an unavailable store yields an empty sequence.
func (l *Ledger) GetUserActions(ctx context.Context, username string, limit int) []domain.ActionEntry {
	if limit <= 0 {
		limit = l.config.ActionLimit
	}

	raw, err := l.store.RangeEntries(ctx, userActionsKey(username), int64(limit))
	if err != nil {
		l.logger.Warn("action log read degraded to empty", "username", username, "error", err)
		return []domain.ActionEntry{}
	}

	actions := make([]domain.ActionEntry, 0, len(raw))
	for _, data := range raw {
		var entry domain.ActionEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			l.logger.Warn("skipping malformed action entry", "username", username, "error", err)
			continue
		}
		actions = append(actions, entry)
	}
	return actions
}

// GetAllScores returns every user's aggregate as a map, empty when the store
// is unavailable.
func (l *Ledger) GetAllScores(ctx context.Context) map[string]int64 {
	results, err := l.store.TopN(ctx, leaderboardKey, -1)
	if err != nil {
		l.logger.Warn("score snapshot degraded to empty", "error", err)
		return map[string]int64{}
	}

	scores := make(map[string]int64, len(results))
	for _, result := range results {
		scores[result.Member] = result.Score
	}
	return scores
}
