package migrations

import "gorm.io/gorm"

type migration interface {
	Version() string
	Description() string
	Up(db *gorm.DB) error
	Down(db *gorm.DB) error
}

// All returns the schema history in apply order.
func All() []migration {
	return []migration{
		&Migration001SessionEntries{},
	}
}
