package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bizdash-go/internal/platform/storage"
)

type sqliteStore struct {
	db  *gorm.DB
	ttl time.Duration
}

// NewSQLite builds a backend on the session_entries table. The schema is
// created by storage.OpenSQLite.
func NewSQLite(db *gorm.DB, cfg Config) (Backend, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlite store requires database handle")
	}
	return &sqliteStore{
		db:  db,
		ttl: cfg.TTL,
	}, nil
}

func (s *sqliteStore) Get(ctx context.Context, key string) (string, bool, error) {
	var entry storage.SessionEntry
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if entry.Expired(time.Now()) {
		_ = s.db.WithContext(ctx).Where("key = ?", key).Delete(&storage.SessionEntry{}).Error
		return "", false, nil
	}
	return entry.Value, true, nil
}

func (s *sqliteStore) Set(ctx context.Context, key, value string) error {
	now := time.Now()
	entry := storage.SessionEntry{
		Key:       key,
		Value:     value,
		ExpiresAt: expiry(s.ttl, now),
		UpdatedAt: now,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
	}).Create(&entry).Error
}

func (s *sqliteStore) Remove(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("key = ?", key).Delete(&storage.SessionEntry{}).Error
}

// Close is a no-op: the database handle belongs to the caller.
func (s *sqliteStore) Close(_ context.Context) error {
	return nil
}
