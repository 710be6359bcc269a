package store

import (
	"fmt"

	"gorm.io/gorm"
)

// Driver identifiers supported by the session domain.
const (
	DriverNone     = "none"
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// Dependencies captures external handles required by certain drivers.
type Dependencies struct {
	SQLiteDB *gorm.DB
	Postgres PgxPool
}

// New creates a backend based on the provided configuration.
func New(cfg Config, deps Dependencies) (Backend, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverMemory
	}

	switch driver {
	case DriverNone:
		return None(), nil
	case DriverMemory:
		return NewMemory(cfg), nil
	case DriverSQLite:
		if deps.SQLiteDB == nil {
			return nil, fmt.Errorf("sqlite driver requires database handle")
		}
		return NewSQLite(deps.SQLiteDB, cfg)
	case DriverRedis:
		return NewRedis(cfg)
	case DriverPostgres:
		if deps.Postgres == nil {
			return nil, fmt.Errorf("postgres driver requires a connection pool")
		}
		return NewPostgres(deps.Postgres, cfg)
	default:
		return nil, fmt.Errorf("unsupported session store driver: %s", driver)
	}
}
