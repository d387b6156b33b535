package ledger

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contribscore/internal/config"
	"github.com/contribscore/internal/domain"
	"github.com/contribscore/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.LeaderboardConfig {
	return &config.LeaderboardConfig{
		DefaultLimit:  10,
		MaxLimit:      100,
		ActionLogSize: 100,
		ActionLimit:   20,
	}
}

func newTestLedger(t *testing.T) (*Ledger, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	return New(mem, testConfig(), testLogger()), mem
}

func TestAddPointsAccumulates(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)

	require.NoError(t, l.AddPoints(ctx, "alice", 30, "MERGE_PULL_REQUEST #50"))
	require.NoError(t, l.AddPoints(ctx, "alice", 10, "OPEN_PULL_REQUEST"))

	assert.Equal(t, int64(40), l.GetUserScore(ctx, "alice"))
	assert.Equal(t, int64(0), l.GetUserScore(ctx, "nobody"))
}

func TestAddPointsStoreDown(t *testing.T) {
	ctx := context.Background()
	l, mem := newTestLedger(t)
	mem.SetUnavailable(true)

	err := l.AddPoints(ctx, "alice", 30, "MERGE_PULL_REQUEST #50")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)

	// Nothing was credited while the store was down.
	mem.SetUnavailable(false)
	assert.Equal(t, int64(0), l.GetUserScore(ctx, "alice"))
}

func TestGetLeaderboardOrdering(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)

	require.NoError(t, l.AddPoints(ctx, "alice", 30, "MERGE_PULL_REQUEST #1"))
	require.NoError(t, l.AddPoints(ctx, "bob", 50, "MERGE_PULL_REQUEST #2"))
	require.NoError(t, l.AddPoints(ctx, "carol", 30, "MERGE_PULL_REQUEST #3"))

	entries := l.GetLeaderboard(ctx, 10)
	require.Len(t, entries, 3)

	// Descending score, 1-based contiguous ranks. Equal scores order by
	// username descending.
	assert.Equal(t, domain.LeaderboardEntry{Rank: 1, Username: "bob", Score: 50}, entries[0])
	assert.Equal(t, domain.LeaderboardEntry{Rank: 2, Username: "carol", Score: 30}, entries[1])
	assert.Equal(t, domain.LeaderboardEntry{Rank: 3, Username: "alice", Score: 30}, entries[2])
}

func TestGetLeaderboardLimitClamping(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)

	for _, user := range []string{"a", "b", "c", "d"} {
		require.NoError(t, l.AddPoints(ctx, user, 10, "CREATE_ISSUE"))
	}

	assert.Len(t, l.GetLeaderboard(ctx, 2), 2)

	// Non-positive limits fall back to the default, oversized ones clamp
	// to the max instead of erroring.
	assert.Len(t, l.GetLeaderboard(ctx, 0), 4)
	assert.Len(t, l.GetLeaderboard(ctx, -5), 4)
	assert.Len(t, l.GetLeaderboard(ctx, 100000), 4)
}

func TestGetLeaderboardStoreDown(t *testing.T) {
	ctx := context.Background()
	l, mem := newTestLedger(t)

	require.NoError(t, l.AddPoints(ctx, "alice", 30, "MERGE_PULL_REQUEST #1"))
	mem.SetUnavailable(true)

	entries := l.GetLeaderboard(ctx, 10)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)

	assert.Equal(t, int64(0), l.GetUserScore(ctx, "alice"))
	assert.Empty(t, l.GetUserActions(ctx, "alice", 10))
	assert.Empty(t, l.GetAllScores(ctx))
}

func TestGetUserActionsNewestFirst(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)

	require.NoError(t, l.AddPoints(ctx, "alice", 10, "first"))
	require.NoError(t, l.AddPoints(ctx, "alice", 20, "second"))
	require.NoError(t, l.AddPoints(ctx, "alice", 30, "third"))

	actions := l.GetUserActions(ctx, "alice", 10)
	require.Len(t, actions, 3)
	assert.Equal(t, "third", actions[0].Action)
	assert.Equal(t, "second", actions[1].Action)
	assert.Equal(t, "first", actions[2].Action)
	assert.Equal(t, int64(30), actions[0].Points)

	limited := l.GetUserActions(ctx, "alice", 1)
	require.Len(t, limited, 1)
	assert.Equal(t, "third", limited[0].Action)
}

func TestActionLogTrimsToCap(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	cfg := testConfig()
	cfg.ActionLogSize = 5
	l := New(mem, cfg, testLogger())

	for i := 0; i < 8; i++ {
		require.NoError(t, l.AddPoints(ctx, "alice", int64(i), "CREATE_ISSUE"))
	}

	actions := l.GetUserActions(ctx, "alice", 100)
	require.Len(t, actions, 5)

	// Oldest entries were evicted; the newest survives at the head.
	assert.Equal(t, int64(7), actions[0].Points)
	assert.Equal(t, int64(3), actions[4].Points)
}

func TestGetUserActionsSkipsMalformed(t *testing.T) {
	ctx := context.Background()
	l, mem := newTestLedger(t)

	require.NoError(t, l.AddPoints(ctx, "alice", 10, "CREATE_ISSUE"))
	require.NoError(t, mem.PushEntry(ctx, userActionsKey("alice"), []byte("{not json"), 100))

	actions := l.GetUserActions(ctx, "alice", 10)
	require.Len(t, actions, 1)
	assert.Equal(t, "CREATE_ISSUE", actions[0].Action)
}

func TestGetAllScores(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)

	require.NoError(t, l.AddPoints(ctx, "alice", 30, "MERGE_PULL_REQUEST #1"))
	require.NoError(t, l.AddPoints(ctx, "bob", 50, "MERGE_PULL_REQUEST #2"))

	assert.Equal(t, map[string]int64{"alice": 30, "bob": 50}, l.GetAllScores(ctx))
}
