package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// TxQuerier is implemented by both pgxpool.Pool and pgx.Tx.
// Repository methods that need transaction support should accept TxQuerier.
type TxQuerier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// TxBeginner starts transactions. Satisfied by *pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// NewPool creates a PostgreSQL connection pool with retry logic.
// Retries with exponential backoff: 1s, 2s, 4s, ... between attempts.
func NewPool(ctx context.Context, dsn string, maxRetries int) (*pgxpool.Pool, error) {
	attempts := maxRetries
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		var pool *pgxpool.Pool
		pool, err = connect(ctx, dsn)
		if err == nil {
			log.Info().Int("attempt", attempt+1).Msg("database connection established")
			return pool, nil
		}

		if attempt == attempts-1 {
			break
		}

		backoff := time.Duration(1<<attempt) * time.Second
		log.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Int("max_retries", maxRetries).
			Dur("next_retry_in", backoff).
			Msg("database connection failed, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return nil, fmt.Errorf("failed to connect after %d attempts: %w", attempts, err)
}

// connect opens a pool and verifies it with a ping.
func connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping failed: %w", err)
	}
	return pool, nil
}

// schema creates the draw tables. Period bounds and run_at are stored as
// TIMESTAMP WITHOUT TIME ZONE: they are wall-clock times in draws.timezone.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS draws (
		id               UUID PRIMARY KEY,
		title            VARCHAR(255) NOT NULL,
		entry_cost_cents INTEGER NOT NULL CHECK (entry_cost_cents >= 0),
		currency         CHAR(3) NOT NULL,
		run_at           TIMESTAMP NOT NULL,
		timezone         VARCHAR(64) NOT NULL,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS draw_promo_periods (
		draw_id    UUID NOT NULL REFERENCES draws(id) ON DELETE CASCADE,
		position   INTEGER NOT NULL,
		start_at   TIMESTAMP NULL,
		end_at     TIMESTAMP NULL,
		multiplier INTEGER NOT NULL CHECK (multiplier >= 1),
		PRIMARY KEY (draw_id, position)
	)`,
}

// EnsureSchema creates missing tables. Statements are idempotent.
func EnsureSchema(ctx context.Context, db TxQuerier) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	log.Debug().Int("statements", len(schema)).Msg("database schema ensured")
	return nil
}
