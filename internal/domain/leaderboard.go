package domain

import "time"

// LeaderboardEntry is a single ranked row. Rank is 1-based and derived at
// query time from descending score order; equal scores order by username
// descending, matching Redis ZREVRANGE semantics.
type LeaderboardEntry struct {
	Rank     int64  `json:"rank"`
	Username string `json:"username"`
	Score    int64  `json:"score"`
}

// ActionEntry is one row of a user's bounded action log, newest first.
type ActionEntry struct {
	Action    string    `json:"action"`
	Points    int64     `json:"points"`
	Timestamp time.Time `json:"timestamp"`
}

// CreditRequest is a manual credit submission. Points is optional; when nil
// the configured action table supplies the value.
type CreditRequest struct {
	Username string `json:"username"`
	Action   string `json:"action"`
	Points   *int64 `json:"points,omitempty"`
}

// ScoredPull is a pull request annotated with its scoring outcome for one
// orchestrator pass.
type ScoredPull struct {
	URL          string   `json:"url"`
	User         string   `json:"user"`
	Number       int      `json:"number"`
	Title        string   `json:"title"`
	State        string   `json:"state"`
	Merged       bool     `json:"merged"`
	Score        int64    `json:"score"`
	LinkedLevels []string `json:"linkedLevels"`
	Credited     bool     `json:"credited"`
}

// SyncResult summarizes one orchestrator pass.
type SyncResult struct {
	PassID      string           `json:"pass_id"`
	StartedAt   time.Time        `json:"started_at"`
	Duration    time.Duration    `json:"duration"`
	Pulls       []ScoredPull     `json:"pulls"`
	Leaderboard map[string]int64 `json:"leaderboard"`
	Credited    int              `json:"credited"`
	Skipped     int              `json:"skipped"`
	Failed      int              `json:"failed"`
}
