package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the subset of *pgxpool.Pool used by the postgres backend.
type PgxPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

const (
	pgSelect = `SELECT value FROM session_entries WHERE key = $1 AND (expires_at IS NULL OR expires_at > now())`
	pgUpsert = `INSERT INTO session_entries (key, value, expires_at, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at, updated_at = now()`
	pgDelete = `DELETE FROM session_entries WHERE key = $1`
)

type postgresStore struct {
	pool PgxPool
	ttl  time.Duration
}

// NewPostgres builds a backend on a pgx pool. Close releases the pool.
func NewPostgres(pool PgxPool, cfg Config) (Backend, error) {
	if pool == nil {
		return nil, errors.New("postgres store requires a connection pool")
	}
	return &postgresStore{pool: pool, ttl: cfg.TTL}, nil
}

func (s *postgresStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.pool.QueryRow(ctx, pgSelect, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *postgresStore) Set(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx, pgUpsert, key, value, expiry(s.ttl, time.Now()))
	return err
}

func (s *postgresStore) Remove(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx, pgDelete, key)
	return err
}

func (s *postgresStore) Close(_ context.Context) error {
	s.pool.Close()
	return nil
}
