package store

import (
	"context"
	"time"
)

// Backend is the key/value capability behind the credential store. Get
// reports a missing key with ok=false and a nil error.
type Backend interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Close(ctx context.Context) error
}

// Config describes the high level backend selection parameters.
type Config struct {
	Driver string
	// TTL bounds how long a value lives; zero keeps values until removed.
	TTL       time.Duration
	Namespace string
	Redis     *RedisConfig
	SQLite    *SQLiteConfig
	Postgres  *PostgresConfig
	Memory    *MemoryConfig
}

// MemoryConfig holds in-memory tuning knobs.
type MemoryConfig struct {
	GCInterval time.Duration
}

type SQLiteConfig struct {
	DSN string
}

type PostgresConfig struct {
	DSN      string
	MaxConns int32
}

// RedisConfig captures connection options.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
}

func expiry(ttl time.Duration, now time.Time) *time.Time {
	if ttl <= 0 {
		return nil
	}
	exp := now.Add(ttl)
	return &exp
}
