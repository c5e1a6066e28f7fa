package models

import "gorm.io/gorm"

// AutoMigrate runs database migrations for the SOP domain
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&SOP{},
		&Run{},
	)
}
