package types

import "time"

// Document is an HTML document produced by the assistant's write_document
// tool during an SOP run. The same chat+name pair is rewritten in place.
type Document struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	StepID    string    `json:"step_id,omitempty"`
	Name      string    `json:"name"`
	Content   string    `json:"content"` // HTML
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
