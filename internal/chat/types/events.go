package types

// EventType tags one record on a turn's event stream
type EventType string

const (
	EventContent        EventType = "content"
	EventToolCalls      EventType = "tool_calls"
	EventTool           EventType = "tool"
	EventDocumentStream EventType = "document_stream"
	EventStepTransition EventType = "step_transition"
	EventDone           EventType = "done"
	EventError          EventType = "error"
)

// ToolEvent is a completed, executed tool call with its result. Message ids
// are backfilled by the orchestrator once the pair has been persisted.
type ToolEvent struct {
	Call               ToolCall          `json:"call"`
	Result             string            `json:"result"`
	Metadata           map[string]string `json:"metadata,omitempty"`
	AssistantMessageID string            `json:"assistant_message_id,omitempty"`
	ToolMessageID      string            `json:"tool_message_id,omitempty"`
}

// DocumentStream is a best-effort partial preview of a document while the
// write_document call is still streaming. HTML may be structurally broken;
// it is never the persisted content.
type DocumentStream struct {
	Name   string `json:"name,omitempty"`
	StepID string `json:"step_id,omitempty"`
	HTML   string `json:"html"`
}

// StepTransition reports an SOP step change decided for this turn
type StepTransition struct {
	PreviousStepID string `json:"previous_step_id"`
	NextStepID     string `json:"next_step_id"`
}

// StreamEvent is one record emitted during a turn. Events arrive in strict
// temporal order; exactly one done or error event terminates the stream.
type StreamEvent struct {
	Type      EventType       `json:"type"`
	Content   string          `json:"content,omitempty"`
	ToolCalls []ToolCall      `json:"tool_calls,omitempty"` // in-progress announcement
	Tool      *ToolEvent      `json:"tool,omitempty"`
	Document  *DocumentStream `json:"document,omitempty"`
	Step      *StepTransition `json:"step,omitempty"`
	MessageID string          `json:"message_id,omitempty"` // on done: the persisted assistant leaf
	Error     string          `json:"error,omitempty"`
}

// TurnRequest is one user turn. Setting SOPID with empty content is the
// sentinel that starts an SOP run without persisting a user message.
type TurnRequest struct {
	Content         string           `json:"content"`
	ParentMessageID *string          `json:"parent_message_id,omitempty"`
	SOPID           string           `json:"sop_id,omitempty"`
	FileAttachments []FileAttachment `json:"file_attachments,omitempty"`
}

// IsSOPStart reports whether the request is the SOP start sentinel
func (r *TurnRequest) IsSOPStart() bool {
	return r.SOPID != "" && r.Content == ""
}
