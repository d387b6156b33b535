package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contribscore/internal/config"
	"github.com/contribscore/internal/domain"
	"github.com/contribscore/internal/ledger"
	"github.com/contribscore/internal/service"
	"github.com/contribscore/internal/store"
)

type fakeSource struct {
	issues []domain.Issue
	pulls  []domain.PullRequest
	err    error
}

func (f *fakeSource) ListIssues(ctx context.Context) ([]domain.Issue, error) {
	return f.issues, f.err
}

func (f *fakeSource) ListPulls(ctx context.Context) ([]domain.PullRequest, error) {
	return f.pulls, f.err
}

func (f *fakeSource) ListCommits(ctx context.Context) ([]domain.Commit, error) {
	return nil, f.err
}

func newTestRouter(t *testing.T, src service.Source) (http.Handler, *store.Memory) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mem := store.NewMemory()
	l := ledger.New(mem, &config.LeaderboardConfig{
		DefaultLimit:  10,
		MaxLimit:      100,
		ActionLogSize: 100,
		ActionLimit:   20,
	}, logger)
	g := ledger.NewGuard(mem, l, logger)
	svc := service.New(src, mem, l, g, &config.ScoringConfig{
		MergeBonus: 10,
		Levels:     map[string]int64{"level2": 20},
		ActionPoints: map[string]int64{
			"CREATE_ISSUE":      5,
			"OPEN_PULL_REQUEST": 10,
		},
	}, logger)
	return NewHandler(svc, logger).Router(), mem
}

func doJSON(t *testing.T, router http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func TestGetLeaderboard(t *testing.T) {
	router, _ := newTestRouter(t, &fakeSource{})

	for _, body := range []string{
		`{"username":"alice","action":"CREATE_ISSUE"}`,
		`{"username":"bob","action":"OPEN_PULL_REQUEST"}`,
	} {
		rec, _ := doJSON(t, router, http.MethodPost, "/api/leaderboard", body)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec, resp := doJSON(t, router, http.MethodGet, "/api/leaderboard", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	board, ok := resp["leaderboard"].([]interface{})
	require.True(t, ok)
	require.Len(t, board, 2)
	assert.Equal(t, float64(2), resp["total"])
	assert.Contains(t, resp, "pointsSystem")

	first := board[0].(map[string]interface{})
	assert.Equal(t, "bob", first["username"])
	assert.Equal(t, float64(10), first["score"])
	assert.Equal(t, float64(1), first["rank"])
}

func TestGetLeaderboardUserDetail(t *testing.T) {
	router, _ := newTestRouter(t, &fakeSource{})

	rec, _ := doJSON(t, router, http.MethodPost, "/api/leaderboard",
		`{"username":"alice","action":"CREATE_ISSUE"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp := doJSON(t, router, http.MethodGet, "/api/leaderboard?user=alice", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", resp["username"])
	assert.Equal(t, float64(5), resp["score"])

	actions, ok := resp["actions"].([]interface{})
	require.True(t, ok)
	require.Len(t, actions, 1)

	// Unknown users read as zero rather than erroring.
	rec, resp = doJSON(t, router, http.MethodGet, "/api/leaderboard?user=ghost", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), resp["score"])
}

func TestAddPointsValidation(t *testing.T) {
	router, _ := newTestRouter(t, &fakeSource{})

	rec, resp := doJSON(t, router, http.MethodPost, "/api/leaderboard", `{"action":"CREATE_ISSUE"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, resp, "error")

	rec, _ = doJSON(t, router, http.MethodPost, "/api/leaderboard", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddPointsStoreDown(t *testing.T) {
	router, mem := newTestRouter(t, &fakeSource{})
	mem.SetUnavailable(true)

	rec, resp := doJSON(t, router, http.MethodPost, "/api/leaderboard",
		`{"username":"alice","action":"CREATE_ISSUE"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, resp, "error")
}

func TestSyncPulls(t *testing.T) {
	merged := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	router, _ := newTestRouter(t, &fakeSource{
		issues: []domain.Issue{
			{Number: 12, Labels: []domain.Label{{Name: "level2"}}},
		},
		pulls: []domain.PullRequest{
			{Number: 50, User: "alice", State: "closed", Body: "fixes #12", MergedAt: &merged},
		},
	})

	rec, resp := doJSON(t, router, http.MethodGet, "/api/pulls", "")
	require.Equal(t, http.StatusOK, rec.Code)

	pulls, ok := resp["pulls"].([]interface{})
	require.True(t, ok)
	require.Len(t, pulls, 1)
	scored := pulls[0].(map[string]interface{})
	assert.Equal(t, float64(30), scored["score"])
	assert.Equal(t, true, scored["credited"])

	board, ok := resp["leaderboard"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(30), board["alice"])
}

func TestSyncPullsUpstreamDown(t *testing.T) {
	router, _ := newTestRouter(t, &fakeSource{
		err: fmt.Errorf("github responded 503: %w", domain.ErrUpstreamUnavailable),
	})

	rec, resp := doJSON(t, router, http.MethodGet, "/api/pulls", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, resp, "error")
}

func TestGetIssuesFiltersPullRequests(t *testing.T) {
	router, _ := newTestRouter(t, &fakeSource{
		issues: []domain.Issue{
			{Number: 1, Title: "real issue"},
			{Number: 2, Title: "actually a pull", IsPullRequest: true},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/issues", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var issues []domain.Issue
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &issues))
	require.Len(t, issues, 1)
	assert.Equal(t, 1, issues[0].Number)
}

func TestLastSync(t *testing.T) {
	router, _ := newTestRouter(t, &fakeSource{})

	rec, _ := doJSON(t, router, http.MethodGet, "/api/sync/last", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = doJSON(t, router, http.MethodGet, "/api/pulls", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp := doJSON(t, router, http.MethodGet, "/api/sync/last", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, resp, "pass_id")
}

func TestHealthAndReady(t *testing.T) {
	router, mem := newTestRouter(t, &fakeSource{})

	rec, resp := doJSON(t, router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", resp["status"])

	rec, _ = doJSON(t, router, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	mem.SetUnavailable(true)
	rec, _ = doJSON(t, router, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
