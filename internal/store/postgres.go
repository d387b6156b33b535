package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/contribscore/internal/config"
)

// Postgres is the Store implementation backed by PostgreSQL. Each primitive
// maps to one table; increments happen server-side so concurrent credits on
// the same user never lose updates.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres creates a PostgreSQL-backed store, verifies connectivity and
// runs migrations.
func NewPostgres(cfg *config.PostgresConfig, logger *slog.Logger) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Postgres{
		pool:   pool,
		logger: logger,
	}
	if err := s.runMigrations(context.Background()); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection pool
func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}

// Ping probes the connection pool
func (s *Postgres) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// runMigrations executes database migrations
func (s *Postgres) runMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS kv_scores (
			key VARCHAR(128) NOT NULL,
			member VARCHAR(255) NOT NULL,
			score BIGINT NOT NULL DEFAULT 0,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (key, member)
		)`,
		`CREATE TABLE IF NOT EXISTS kv_logs (
			id BIGSERIAL PRIMARY KEY,
			key VARCHAR(128) NOT NULL,
			entry JSONB NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS kv_sets (
			key VARCHAR(128) NOT NULL,
			member VARCHAR(255) NOT NULL,
			PRIMARY KEY (key, member)
		)`,
		`CREATE TABLE IF NOT EXISTS kv_docs (
			key VARCHAR(128) PRIMARY KEY,
			value JSONB NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_kv_scores_rank ON kv_scores(key, score DESC, member DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_kv_logs_key ON kv_logs(key, id DESC)`,
	}

	for _, migration := range migrations {
		if _, err := s.pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	s.logger.Info("database migrations completed")
	return nil
}

// IncrScore increments member's score with an upsert
func (s *Postgres) IncrScore(ctx context.Context, key, member string, delta int64) (int64, error) {
	query := `
		INSERT INTO kv_scores (key, member, score, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key, member)
		DO UPDATE SET score = kv_scores.score + $3, updated_at = $4
		RETURNING score
	`
	var newScore int64
	err := s.pool.QueryRow(ctx, query, key, member, delta, time.Now()).Scan(&newScore)
	if err != nil {
		return 0, fmt.Errorf("incrementing score: %w", err)
	}
	return newScore, nil
}

// GetScore returns member's score
func (s *Postgres) GetScore(ctx context.Context, key, member string) (int64, bool, error) {
	query := `SELECT score FROM kv_scores WHERE key = $1 AND member = $2`
	var score int64
	err := s.pool.QueryRow(ctx, query, key, member).Scan(&score)
	if err == pgx.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("getting score: %w", err)
	}
	return score, true, nil
}

// TopN returns up to n members by descending score
func (s *Postgres) TopN(ctx context.Context, key string, n int64) ([]Entry, error) {
	query := `
		SELECT member, score FROM kv_scores
		WHERE key = $1
		ORDER BY score DESC, member DESC
	`
	args := []interface{}{key}
	if n >= 0 {
		query += ` LIMIT $2`
		args = append(args, n)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("getting top n: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		if err := rows.Scan(&entry.Member, &entry.Score); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// PushEntry appends to the log under key and trims it to max entries
func (s *Postgres) PushEntry(ctx context.Context, key string, value []byte, max int64) error {
	insert := `INSERT INTO kv_logs (key, entry) VALUES ($1, $2)`
	if _, err := s.pool.Exec(ctx, insert, key, value); err != nil {
		return fmt.Errorf("pushing entry: %w", err)
	}

	trim := `
		DELETE FROM kv_logs
		WHERE key = $1 AND id NOT IN (
			SELECT id FROM kv_logs WHERE key = $1 ORDER BY id DESC LIMIT $2
		)
	`
	if _, err := s.pool.Exec(ctx, trim, key, max); err != nil {
		return fmt.Errorf("trimming log: %w", err)
	}
	return nil
}

// RangeEntries returns up to n log entries, newest first
func (s *Postgres) RangeEntries(ctx context.Context, key string, n int64) ([][]byte, error) {
	query := `SELECT entry FROM kv_logs WHERE key = $1 ORDER BY id DESC LIMIT $2`
	rows, err := s.pool.Query(ctx, query, key, n)
	if err != nil {
		return nil, fmt.Errorf("ranging entries: %w", err)
	}
	defer rows.Close()

	var entries [][]byte
	for rows.Next() {
		var entry []byte
		if err := rows.Scan(&entry); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// AddToSet records member in the set under key
func (s *Postgres) AddToSet(ctx context.Context, key, member string) error {
	query := `
		INSERT INTO kv_sets (key, member) VALUES ($1, $2)
		ON CONFLICT (key, member) DO NOTHING
	`
	if _, err := s.pool.Exec(ctx, query, key, member); err != nil {
		return fmt.Errorf("adding to set: %w", err)
	}
	return nil
}

// IsMember reports whether member is in the set under key
func (s *Postgres) IsMember(ctx context.Context, key, member string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM kv_sets WHERE key = $1 AND member = $2)`
	var exists bool
	if err := s.pool.QueryRow(ctx, query, key, member).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking set membership: %w", err)
	}
	return exists, nil
}

// Get reads a named document
func (s *Postgres) Get(ctx context.Context, key string) ([]byte, bool, error) {
	query := `SELECT value FROM kv_docs WHERE key = $1`
	var value []byte
	err := s.pool.QueryRow(ctx, query, key).Scan(&value)
	if err == pgx.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("getting document: %w", err)
	}
	return value, true, nil
}

// Set writes a named document with an upsert
func (s *Postgres) Set(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO kv_docs (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key)
		DO UPDATE SET value = $2, updated_at = $3
	`
	if _, err := s.pool.Exec(ctx, query, key, value, time.Now()); err != nil {
		return fmt.Errorf("setting document: %w", err)
	}
	return nil
}
