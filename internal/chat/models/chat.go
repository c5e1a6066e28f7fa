package models

import "time"

// Chat is the GORM model for the chats table
type Chat struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	Title     string    `gorm:"type:varchar(255);not null" json:"title"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// TableName specifies the table name
func (Chat) TableName() string {
	return "chats"
}
