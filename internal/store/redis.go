package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/contribscore/internal/config"
)

// Redis is the Store implementation backed by a Redis server. Scores live in
// a sorted set, action logs in lists, the processed set in a native set.
type Redis struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedis creates a Redis-backed store and verifies connectivity.
func NewRedis(cfg *config.RedisConfig, logger *slog.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &Redis{
		client: client,
		logger: logger,
	}, nil
}

// Close closes the Redis connection
func (s *Redis) Close() error {
	return s.client.Close()
}

// Ping probes the connection
func (s *Redis) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// IncrScore atomically increments member's score via ZINCRBY
func (s *Redis) IncrScore(ctx context.Context, key, member string, delta int64) (int64, error) {
	newScore, err := s.client.ZIncrBy(ctx, key, float64(delta), member).Result()
	if err != nil {
		return 0, fmt.Errorf("incrementing score: %w", err)
	}
	return int64(newScore), nil
}

// GetScore returns member's score via ZSCORE
func (s *Redis) GetScore(ctx context.Context, key, member string) (int64, bool, error) {
	score, err := s.client.ZScore(ctx, key, member).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("getting score: %w", err)
	}
	return int64(score), true, nil
}

// TopN returns up to n members by descending score via ZREVRANGE
func (s *Redis) TopN(ctx context.Context, key string, n int64) ([]Entry, error) {
	stop := n - 1
	if n < 0 {
		stop = -1
	}
	results, err := s.client.ZRevRangeWithScores(ctx, key, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("getting top n: %w", err)
	}

	entries := make([]Entry, len(results))
	for i, result := range results {
		entries[i] = Entry{
			Member: result.Member.(string),
			Score:  int64(result.Score),
		}
	}
	return entries, nil
}

// PushEntry prepends value to the list under key and trims to max entries
func (s *Redis) PushEntry(ctx context.Context, key string, value []byte, max int64) error {
	pipe := s.client.Pipeline()
	pipe.LPush(ctx, key, value)
	pipe.LTrim(ctx, key, 0, max-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("pushing entry: %w", err)
	}
	return nil
}

// RangeEntries returns up to n list entries, newest first
func (s *Redis) RangeEntries(ctx context.Context, key string, n int64) ([][]byte, error) {
	results, err := s.client.LRange(ctx, key, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("ranging entries: %w", err)
	}

	entries := make([][]byte, len(results))
	for i, result := range results {
		entries[i] = []byte(result)
	}
	return entries, nil
}

// AddToSet records member via SADD
func (s *Redis) AddToSet(ctx context.Context, key, member string) error {
	if err := s.client.SAdd(ctx, key, member).Err(); err != nil {
		return fmt.Errorf("adding to set: %w", err)
	}
	return nil
}

// IsMember checks membership via SISMEMBER
func (s *Redis) IsMember(ctx context.Context, key, member string) (bool, error) {
	ok, err := s.client.SIsMember(ctx, key, member).Result()
	if err != nil {
		return false, fmt.Errorf("checking set membership: %w", err)
	}
	return ok, nil
}

// Get reads a named document
func (s *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("getting document: %w", err)
	}
	return value, true, nil
}

// Set writes a named document
func (s *Redis) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("setting document: %w", err)
	}
	return nil
}
