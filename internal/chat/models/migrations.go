package models

import "gorm.io/gorm"

// AutoMigrate runs database migrations for the chat domain
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Chat{},
		&Message{},
	)
}
