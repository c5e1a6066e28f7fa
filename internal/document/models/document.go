package models

import (
	"time"

	"gorm.io/gorm"
)

// Document is the GORM model for the documents table
type Document struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	ChatID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_documents_chat_name" json:"chat_id"`
	StepID    string    `gorm:"type:varchar(64)" json:"step_id,omitempty"`
	Name      string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_documents_chat_name" json:"name"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// TableName specifies the table name
func (Document) TableName() string {
	return "documents"
}

// AutoMigrate runs database migrations for the document domain
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Document{})
}
