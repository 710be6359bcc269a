package migrations

import (
	"gorm.io/gorm"
)

// Migration001SessionEntries creates the key/value table behind the sqlite
// session driver.
type Migration001SessionEntries struct{}

func (m *Migration001SessionEntries) Version() string {
	return "001_session_entries"
}

func (m *Migration001SessionEntries) Description() string {
	return "Create session_entries key/value table"
}

func (m *Migration001SessionEntries) Up(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS session_entries (
			key VARCHAR(255) PRIMARY KEY,
			value TEXT NOT NULL,
			expires_at DATETIME,
			updated_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return err
	}
	return db.Exec(`CREATE INDEX IF NOT EXISTS idx_session_entries_expires_at ON session_entries(expires_at)`).Error
}

func (m *Migration001SessionEntries) Down(db *gorm.DB) error {
	return db.Exec(`DROP TABLE IF EXISTS session_entries`).Error
}
