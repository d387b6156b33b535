package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/contribscore/internal/domain"
	"github.com/contribscore/internal/scoring"
)

// lastSyncKey is the store document holding the most recent pass summary.
const lastSyncKey = "sync:last"

// syncSummary is the persisted slice of a SyncResult, without the per-pull
// detail.
type syncSummary struct {
	PassID     string    `json:"pass_id"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
	Pulls      int       `json:"pulls"`
	Credited   int       `json:"credited"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
}

// Sync runs one scoring pass: fetch the issue and pull-request snapshots,
// score every pull request, and credit each one at most once. Upstream fetch
// failure aborts the pass before any ledger mutation; failures crediting a
// single pull request are isolated to it and never abort the batch.
func (s *ScoreService) Sync(ctx context.Context) (*domain.SyncResult, error) {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	passID := uuid.New().String()
	startedAt := time.Now().UTC()
	s.logger.Info("scoring pass started", "pass_id", passID)

	issues, err := s.source.ListIssues(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching issues: %w", err)
	}
	pulls, err := s.source.ListPulls(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching pulls: %w", err)
	}

	index := scoring.BuildIssueIndex(issues, s.scoring.Levels)

	result := &domain.SyncResult{
		PassID:    passID,
		StartedAt: startedAt,
		Pulls:     make([]domain.ScoredPull, 0, len(pulls)),
	}

	for _, pull := range pulls {
		scored := domain.ScoredPull{
			URL:          pull.URL,
			User:         pull.User,
			Number:       pull.Number,
			Title:        pull.Title,
			State:        pull.State,
			Merged:       pull.Merged(),
			LinkedLevels: []string{},
		}

		// Unmerged pull requests score 0 and stay unmarked, so they
		// remain eligible once merged.
		if pull.Merged() {
			refs := scoring.ExtractIssueRefs(pull.Body, pull.Title)
			matches := index.Match(refs)
			total, levels := scoring.Calculate(matches, s.scoring.MergeBonus)
			scored.Score = total
			scored.LinkedLevels = levels

			action := fmt.Sprintf("MERGE_PULL_REQUEST #%d", pull.Number)
			credited, err := s.guard.CreditOnce(ctx, pull.Number, pull.User, total, action)
			if err != nil {
				result.Failed++
				s.logger.Error("crediting pull request failed",
					"pass_id", passID,
					"pr", pull.Number,
					"user", pull.User,
					"error", err,
				)
			}
			scored.Credited = credited
			if credited {
				result.Credited++
			} else if err == nil {
				result.Skipped++
			}
		}

		result.Pulls = append(result.Pulls, scored)
	}

	result.Leaderboard = s.ledger.GetAllScores(ctx)
	result.Duration = time.Since(startedAt)

	s.saveSummary(ctx, result)
	s.logger.Info("scoring pass completed",
		"pass_id", passID,
		"pulls", len(result.Pulls),
		"credited", result.Credited,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"duration", result.Duration,
	)
	return result, nil
}

// saveSummary persists the pass summary document, best effort.
func (s *ScoreService) saveSummary(ctx context.Context, result *domain.SyncResult) {
	summary := syncSummary{
		PassID:     result.PassID,
		StartedAt:  result.StartedAt,
		DurationMS: result.Duration.Milliseconds(),
		Pulls:      len(result.Pulls),
		Credited:   result.Credited,
		Skipped:    result.Skipped,
		Failed:     result.Failed,
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := s.store.Set(ctx, lastSyncKey, data); err != nil {
		s.logger.Warn("failed to persist pass summary", "pass_id", result.PassID, "error", err)
	}
}

// LastSync returns the most recent persisted pass summary, if any.
func (s *ScoreService) LastSync(ctx context.Context) (map[string]interface{}, bool) {
	data, ok, err := s.store.Get(ctx, lastSyncKey)
	if err != nil || !ok {
		return nil, false
	}
	var summary map[string]interface{}
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, false
	}
	return summary, true
}
