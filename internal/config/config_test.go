package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	content := `
server:
  port: 9090
store:
  backend: file
  file:
    path: /tmp/board.json
github:
  owner: acme
  repo: widgets
scoring:
  merge_bonus: 25
  levels:
    easy: 1
    hard: 5
leaderboard:
  default_limit: 3
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "file", cfg.Store.Backend)
	assert.Equal(t, "/tmp/board.json", cfg.Store.File.Path)
	assert.Equal(t, "acme", cfg.GitHub.Owner)
	assert.Equal(t, int64(25), cfg.Scoring.MergeBonus)
	assert.Equal(t, map[string]int64{"easy": 1, "hard": 5}, cfg.Scoring.Levels)
	assert.Equal(t, 3, cfg.Leaderboard.DefaultLimit)

	// Unset fields pick up defaults.
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "https://api.github.com", cfg.GitHub.BaseURL)
	assert.Equal(t, 1000, cfg.Leaderboard.MaxLimit)
	assert.Equal(t, 100, cfg.Leaderboard.ActionLogSize)
	assert.Equal(t, 5*time.Minute, cfg.Poller.Interval)
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("TEST_GITHUB_TOKEN", "secret-token")
	t.Setenv("TEST_REDIS_ADDR", "redis.internal:6379")

	content := `
github:
  token: "${TEST_GITHUB_TOKEN}"
store:
  redis:
    addr: "${TEST_REDIS_ADDR}"
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "secret-token", cfg.GitHub.Token)
	assert.Equal(t, "redis.internal:6379", cfg.Store.Redis.Addr)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: {port: 9090"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "redis", cfg.Store.Backend)
	assert.Equal(t, "localhost:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, int64(10), cfg.Scoring.MergeBonus)
	assert.Equal(t, int64(50), cfg.Scoring.Levels["level5"])
	assert.Equal(t, int64(20), cfg.Scoring.ActionPoints["MERGE_PULL_REQUEST"])
	assert.Equal(t, 10, cfg.Leaderboard.DefaultLimit)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.Kafka.Enabled)
	assert.False(t, cfg.Poller.Enabled)
}

func TestPostgresConnectionString(t *testing.T) {
	pg := PostgresConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "scoreboard",
		Password: "pw",
		Database: "scores",
	}
	assert.Equal(t,
		"postgres://scoreboard:pw@db.internal:5433/scores?sslmode=disable",
		pg.ConnectionString(),
	)

	pg.SSLMode = "require"
	assert.Equal(t,
		"postgres://scoreboard:pw@db.internal:5433/scores?sslmode=require",
		pg.ConnectionString(),
	)
}
