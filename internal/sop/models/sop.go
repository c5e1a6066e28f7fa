package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/leapstack-ai/sop-copilot-backend/internal/sop/types"
)

// SOP is the GORM model for the sops table
type SOP struct {
	ID          string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	DisplayName string    `gorm:"type:varchar(255);not null" json:"display_name"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	Steps       Steps     `gorm:"type:jsonb;not null" json:"steps"`
	BuiltIn     bool      `gorm:"not null;default:false" json:"built_in"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

// TableName specifies the table name
func (SOP) TableName() string {
	return "sops"
}

// Steps is a custom type for []types.Step stored as JSONB
type Steps []types.Step

// Scan implements sql.Scanner interface
func (s *Steps) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, s)
}

// Value implements driver.Valuer interface
func (s Steps) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

// Run is the GORM model for the sop_runs table
type Run struct {
	ID            string    `gorm:"primaryKey;type:uuid" json:"id"`
	ChatID        string    `gorm:"type:uuid;not null;index" json:"chat_id"`
	SOPID         string    `gorm:"type:varchar(64);not null" json:"sop_id"`
	CurrentStepID string    `gorm:"type:varchar(64);not null" json:"current_step_id"`
	Status        string    `gorm:"type:varchar(20);not null" json:"status"` // in_progress | completed | paused
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null" json:"updated_at"`
}

// TableName specifies the table name
func (Run) TableName() string {
	return "sop_runs"
}
