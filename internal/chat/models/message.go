package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/leapstack-ai/sop-copilot-backend/internal/chat/types"
)

// Message is the GORM model for the messages table. Seq is a monotonic
// insertion sequence used as the deterministic tie-break when two siblings
// share a created_at timestamp.
type Message struct {
	ID              string          `gorm:"primaryKey;type:uuid" json:"id"`
	ChatID          string          `gorm:"type:uuid;not null;index" json:"chat_id"`
	Role            string          `gorm:"type:varchar(20);not null" json:"role"` // system | user | assistant | tool
	Content         *string         `gorm:"type:text" json:"content"`
	ToolCalls       ToolCalls       `gorm:"type:jsonb" json:"tool_calls,omitempty"`
	ToolCallID      string          `gorm:"type:varchar(64)" json:"tool_call_id,omitempty"`
	ToolName        string          `gorm:"type:varchar(64)" json:"tool_name,omitempty"`
	Metadata        Metadata        `gorm:"type:jsonb" json:"metadata,omitempty"`
	FileAttachments FileAttachments `gorm:"type:jsonb" json:"file_attachments,omitempty"`
	ParentMessageID *string         `gorm:"type:uuid;index" json:"parent_message_id"`
	TokenCount      *int            `gorm:"type:integer" json:"token_count,omitempty"`
	Seq             int64           `gorm:"autoIncrement;uniqueIndex" json:"seq"`
	CreatedAt       time.Time       `gorm:"not null;index" json:"created_at"`
}

// TableName specifies the table name
func (Message) TableName() string {
	return "messages"
}

// ToolCalls is a custom type for []types.ToolCall stored as JSONB
type ToolCalls []types.ToolCall

// Scan implements sql.Scanner interface
func (tc *ToolCalls) Scan(value interface{}) error {
	if value == nil {
		*tc = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, tc)
}

// Value implements driver.Valuer interface
func (tc ToolCalls) Value() (driver.Value, error) {
	if tc == nil {
		return nil, nil
	}
	return json.Marshal(tc)
}

// Metadata is a custom type for map[string]string stored as JSONB
type Metadata map[string]string

// Scan implements sql.Scanner interface
func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, m)
}

// Value implements driver.Valuer interface
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// FileAttachments is a custom type for []types.FileAttachment stored as JSONB
type FileAttachments []types.FileAttachment

// Scan implements sql.Scanner interface
func (fa *FileAttachments) Scan(value interface{}) error {
	if value == nil {
		*fa = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, fa)
}

// Value implements driver.Valuer interface
func (fa FileAttachments) Value() (driver.Value, error) {
	if fa == nil {
		return nil, nil
	}
	return json.Marshal(fa)
}
