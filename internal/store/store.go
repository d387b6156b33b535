// Package store provides the durable key-value layer behind the leaderboard.
// A single interface covers the sorted-set, bounded-list, set-membership and
// document primitives the scoring engine needs; the backend is chosen once at
// startup and never inspected at runtime.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/contribscore/internal/config"
)

// Entry is one member of a sorted collection.
type Entry struct {
	Member string
	Score  int64
}

// Store is the uniform read/write contract over the persistence backend.
// All implementations order equal scores by member name descending, matching
// Redis ZREVRANGE semantics, so swapping backends never reorders a board.
type Store interface {
	// IncrScore atomically adds delta to member's score under key and
	// returns the new value. Missing members start from zero.
	IncrScore(ctx context.Context, key, member string, delta int64) (int64, error)

	// GetScore returns member's score under key. The bool reports presence.
	GetScore(ctx context.Context, key, member string) (int64, bool, error)

	// TopN returns up to n members ordered by descending score. n < 0
	// returns every member.
	TopN(ctx context.Context, key string, n int64) ([]Entry, error)

	// PushEntry prepends value to the list under key and trims it to the
	// max newest entries, a ring-buffer contract.
	PushEntry(ctx context.Context, key string, value []byte, max int64) error

	// RangeEntries returns up to n list entries, newest first.
	RangeEntries(ctx context.Context, key string, n int64) ([][]byte, error)

	// AddToSet records member in the set under key.
	AddToSet(ctx context.Context, key, member string) error

	// IsMember reports whether member is in the set under key.
	IsMember(ctx context.Context, key, member string) (bool, error)

	// Get reads a named document. The bool reports presence.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set writes a named document.
	Set(ctx context.Context, key string, value []byte) error

	// Ping probes backend availability.
	Ping(ctx context.Context) error

	// Close releases the backend connection.
	Close() error
}

// New creates the store backend named by cfg.Backend.
func New(cfg *config.StoreConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Backend {
	case "redis":
		return NewRedis(&cfg.Redis, logger)
	case "postgres":
		return NewPostgres(&cfg.Postgres, logger)
	case "file":
		return NewFile(cfg.File.Path, logger)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
