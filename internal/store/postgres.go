package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRegistry backs the registry with Postgres for deployments where
// several watcher hosts share one history. Selected by DATABASE_URL.
type PostgresRegistry struct {
	pool *pgxpool.Pool
}

// ConnectPostgres creates a pgx pool and ensures the schema exists.
func ConnectPostgres(ctx context.Context, databaseURL string) (*PostgresRegistry, error) {
	if databaseURL == "" {
		return nil, errors.New("registry: DATABASE_URL is required")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("registry: parse DATABASE_URL: %w", err)
	}
	config.MaxConns = 4
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("registry: create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("registry: ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS videos (
		id               TEXT PRIMARY KEY,
		creator_id       BIGINT NOT NULL,
		creator_name     TEXT NOT NULL,
		title            TEXT NOT NULL,
		url              TEXT NOT NULL,
		duration_seconds BIGINT,
		published_at     TIMESTAMPTZ,
		first_seen_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		pool.Close()
		return nil, fmt.Errorf("registry: init schema: %w", err)
	}

	slog.Info("registry: postgres connected", slog.String("addr", config.ConnConfig.Host))
	return &PostgresRegistry{pool: pool}, nil
}

// Exists reports whether a video id has been recorded before.
func (r *PostgresRegistry) Exists(ctx context.Context, id string) (bool, error) {
	var found bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM videos WHERE id = $1)`, id).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("registry: exists %s: %w", id, err)
	}
	return found, nil
}

// InsertIfAbsent writes the record unless its id is already present; the
// ON CONFLICT clause makes duplicate inserts a silent no-op.
func (r *PostgresRegistry) InsertIfAbsent(ctx context.Context, rec VideoRecord) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO videos (id, creator_id, creator_name, title, url, duration_seconds, published_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO NOTHING`,
		rec.ID, rec.CreatorID, rec.CreatorName, rec.Title, rec.URL, rec.Duration, rec.PublishedAt,
	)
	if err != nil {
		return false, fmt.Errorf("registry: insert %s: %w", rec.ID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// Close releases the connection pool.
func (r *PostgresRegistry) Close() error {
	r.pool.Close()
	return nil
}
