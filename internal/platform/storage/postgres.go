package storage

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"bizdash-go/internal/platform/errors"
)

// PostgresSchema creates the table used by the postgres session driver.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS session_entries (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	expires_at TIMESTAMPTZ,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// OpenPostgres connects a pgx pool, pings it and ensures the schema exists.
func OpenPostgres(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "storage.postgres.parse", "invalid postgres dsn", err)
	}
	if maxConns > 0 {
		poolCfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "storage.postgres.connect", "failed to create pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(errors.KindStorage, "storage.postgres.ping", "database unreachable", err)
	}
	if _, err := pool.Exec(ctx, PostgresSchema); err != nil {
		pool.Close()
		return nil, errors.Wrap(errors.KindStorage, "storage.postgres.schema", "failed to create session_entries", err)
	}
	return pool, nil
}
