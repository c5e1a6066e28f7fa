package ai

import "github.com/sashabaranov/go-openai/jsonschema"

// Message roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Finish reasons reported on the terminal delta of a stream
const (
	FinishReasonStop      = "stop"
	FinishReasonToolCalls = "tool_calls"
	FinishReasonLength    = "length"
)

// ToolCall is a fully-formed tool invocation on an assistant message
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Message is a single conversation message in provider-neutral form
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`   // assistant messages that invoked tools
	ToolCallID string     `json:"tool_call_id,omitempty"` // tool result messages only
	ToolName   string     `json:"tool_name,omitempty"`    // tool result messages only
}

// Tool describes a callable tool exposed to the completion source
type Tool struct {
	Name        string
	Description string
	Parameters  jsonschema.Definition
}

// ToolCallDelta is one fragment of a streamed tool call. Fragments for the
// same call share an index; id and name may arrive on any fragment.
type ToolCallDelta struct {
	Index     int
	ID        string
	Name      string
	Arguments string
}

// Delta is one increment of a completion stream. Exactly one of the terminal
// conditions holds on the last delta: FinishReason is set, or Err is set.
type Delta struct {
	Content      string
	ToolCalls    []ToolCallDelta
	FinishReason string
	Err          error
}

// StreamRequest is the input to a streaming completion
type StreamRequest struct {
	Model    string
	Messages []Message
	Tools    []Tool
}
