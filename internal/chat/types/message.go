package types

import "time"

// Message roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall is one tool invocation recorded on an assistant message.
// Arguments is the raw JSON string the model produced.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// FileAttachment describes a file attached to a user message
type FileAttachment struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MimeType string `json:"mime_type,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

// Message is a node in a chat's message DAG. Every non-root message points
// at exactly one parent in the same chat; siblings under one parent are
// alternative branches created by editing.
type Message struct {
	ID              string            `json:"id"`
	ChatID          string            `json:"chat_id"`
	Role            string            `json:"role"`
	Content         *string           `json:"content"` // nil for assistant messages that only carry tool calls
	ToolCalls       []ToolCall        `json:"tool_calls,omitempty"`
	ToolCallID      string            `json:"tool_call_id,omitempty"` // tool result messages only
	ToolName        string            `json:"tool_name,omitempty"`    // tool result messages only
	Metadata        map[string]string `json:"metadata,omitempty"`
	FileAttachments []FileAttachment  `json:"file_attachments,omitempty"`
	ParentMessageID *string           `json:"parent_message_id"`
	TokenCount      *int              `json:"token_count,omitempty"`
	Seq             int64             `json:"seq"` // store-assigned insertion sequence, tie-breaks equal timestamps
	CreatedAt       time.Time         `json:"created_at"`
}

// TextContent returns the message content or empty string when nil
func (m *Message) TextContent() string {
	if m.Content == nil {
		return ""
	}
	return *m.Content
}

// IsRoot reports whether the message starts a conversation branch tree
func (m *Message) IsRoot() bool {
	return m.ParentMessageID == nil
}

// Chat is one conversation; its messages form a DAG of branches
type Chat struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BranchInfo describes a message's position among its siblings. Total is
// always >= 2 when returned; single children carry no branch to navigate.
type BranchInfo struct {
	Index         int    `json:"index"` // zero-based position among siblings
	Total         int    `json:"total"`
	PrevSiblingID string `json:"prev_sibling_id,omitempty"`
	NextSiblingID string `json:"next_sibling_id,omitempty"`
}
