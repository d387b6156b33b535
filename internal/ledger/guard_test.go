package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contribscore/internal/domain"
	"github.com/contribscore/internal/store"
)

func newTestGuard(t *testing.T) (*Guard, *Ledger, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	l := New(mem, testConfig(), testLogger())
	return NewGuard(mem, l, testLogger()), l, mem
}

func TestCreditOnce(t *testing.T) {
	ctx := context.Background()
	g, l, _ := newTestGuard(t)

	credited, err := g.CreditOnce(ctx, 50, "alice", 30, "MERGE_PULL_REQUEST #50")
	require.NoError(t, err)
	assert.True(t, credited)
	assert.Equal(t, int64(30), l.GetUserScore(ctx, "alice"))

	processed, err := g.HasBeenProcessed(ctx, 50)
	require.NoError(t, err)
	assert.True(t, processed)

	// Replaying the same pull request credits nothing.
	credited, err = g.CreditOnce(ctx, 50, "alice", 30, "MERGE_PULL_REQUEST #50")
	require.NoError(t, err)
	assert.False(t, credited)
	assert.Equal(t, int64(30), l.GetUserScore(ctx, "alice"))
}

func TestCreditOnceDistinctPulls(t *testing.T) {
	ctx := context.Background()
	g, l, _ := newTestGuard(t)

	for _, pr := range []int{50, 51} {
		credited, err := g.CreditOnce(ctx, pr, "alice", 10, "MERGE_PULL_REQUEST")
		require.NoError(t, err)
		assert.True(t, credited)
	}
	assert.Equal(t, int64(20), l.GetUserScore(ctx, "alice"))
}

func TestCreditOnceStoreDown(t *testing.T) {
	ctx := context.Background()
	g, l, mem := newTestGuard(t)
	mem.SetUnavailable(true)

	// Membership state is unknown, so the safe move is to skip the
	// credit entirely rather than risk a double count.
	credited, err := g.CreditOnce(ctx, 50, "alice", 30, "MERGE_PULL_REQUEST #50")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.False(t, credited)

	// Nothing was marked, so the credit stays eligible once the store
	// recovers.
	mem.SetUnavailable(false)
	assert.Equal(t, int64(0), l.GetUserScore(ctx, "alice"))

	credited, err = g.CreditOnce(ctx, 50, "alice", 30, "MERGE_PULL_REQUEST #50")
	require.NoError(t, err)
	assert.True(t, credited)
	assert.Equal(t, int64(30), l.GetUserScore(ctx, "alice"))
}

func TestMarkProcessed(t *testing.T) {
	ctx := context.Background()
	g, _, _ := newTestGuard(t)

	processed, err := g.HasBeenProcessed(ctx, 7)
	require.NoError(t, err)
	assert.False(t, processed)

	require.NoError(t, g.MarkProcessed(ctx, 7))

	processed, err = g.HasBeenProcessed(ctx, 7)
	require.NoError(t, err)
	assert.True(t, processed)
}
