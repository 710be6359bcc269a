package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"bizdash-go/internal/platform/errors"
	"bizdash-go/internal/platform/storage/migrations"
)

// SessionEntry is one persisted key of the credential store.
type SessionEntry struct {
	Key       string     `gorm:"column:key;primaryKey;size:255"`
	Value     string     `gorm:"column:value;not null"`
	ExpiresAt *time.Time `gorm:"column:expires_at;index"`
	UpdatedAt time.Time  `gorm:"column:updated_at;not null"`
}

func (SessionEntry) TableName() string { return "session_entries" }

// Expired reports whether the entry is past its expiry at now.
func (e SessionEntry) Expired(now time.Time) bool {
	return e.ExpiresAt != nil && !now.Before(*e.ExpiresAt)
}

// OpenSQLite opens (creating when needed) the sqlite database at dsn and
// applies pending migrations. ":memory:" and "file:" DSNs are passed through.
func OpenSQLite(ctx context.Context, dsn string) (*gorm.DB, error) {
	db, err := ConnectSQLite(dsn)
	if err != nil {
		return nil, err
	}
	if err := SessionMigrations(db).RunMigrations(ctx); err != nil {
		_ = CloseSQLite(db)
		return nil, err
	}
	return db, nil
}

// ConnectSQLite opens the database without touching the schema.
func ConnectSQLite(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, errors.New(errors.KindStorage, "storage.sqlite.open", "empty sqlite dsn")
	}
	if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, errors.Wrap(errors.KindStorage, "storage.sqlite.mkdir", "failed to create data directory", err)
			}
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "storage.sqlite.open", "failed to open database", err)
	}

	// sqlite allows one writer; a single connection also keeps ":memory:"
	// databases from splitting per connection.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// SessionMigrations is a manager with the session schema registered.
func SessionMigrations(db *gorm.DB) *MigrationManager {
	manager := NewMigrationManager(db)
	for _, m := range migrations.All() {
		manager.AddMigration(m)
	}
	return manager
}

// CloseSQLite releases the pool behind db.
func CloseSQLite(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return errors.Wrap(errors.KindStorage, "storage.sqlite.close", "failed to get sql db", err)
	}
	return sqlDB.Close()
}
