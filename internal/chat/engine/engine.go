package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/leapstack-ai/sop-copilot-backend/internal/ai"
	"github.com/leapstack-ai/sop-copilot-backend/internal/chat/types"

	"go.uber.org/zap"
)

// Engine converts an incremental completion stream into discrete, ordered
// events and drives a single turn to completion, including at most one
// round of tool use. Events are produced on a channel: zero or more content
// / tool_calls / document_stream / tool events, then exactly one done or
// error event, after which the channel is closed.
type Engine struct {
	source     ai.CompletionSource
	dispatcher *Dispatcher
	logger     *zap.Logger
}

// NewEngine creates a streaming aggregation engine
func NewEngine(source ai.CompletionSource, dispatcher *Dispatcher, logger *zap.Logger) *Engine {
	return &Engine{
		source:     source,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// RunRequest is the input for one turn
type RunRequest struct {
	Model       string
	Messages    []ai.Message
	Tools       []ai.Tool
	ToolContext *ToolContext
}

// Run drives one turn. The returned channel is closed after the terminal
// event. Tool calls are executed sequentially in announcement order; each
// executed call also appends its message pair to the working conversation
// before the final content-only pass.
func (e *Engine) Run(ctx context.Context, req *RunRequest) <-chan types.StreamEvent {
	events := make(chan types.StreamEvent, 64)

	go func() {
		defer close(events)

		messages := req.Messages

		content, calls, finish, err := e.streamPass(ctx, req.Model, messages, req.Tools, events, true)
		if err != nil {
			events <- types.StreamEvent{Type: types.EventError, Error: err.Error()}
			return
		}

		total := content

		if finish == ai.FinishReasonToolCalls && len(calls) > 0 {
			for _, call := range calls {
				if !json.Valid([]byte(call.Arguments)) {
					e.logger.Warn("tool call arguments are not valid JSON",
						zap.String("tool", call.Name),
						zap.String("call_id", call.ID))
				}

				result := e.dispatcher.Execute(ctx, req.ToolContext, call)

				events <- types.StreamEvent{
					Type: types.EventTool,
					Tool: &types.ToolEvent{
						Call:     call,
						Result:   result.Content,
						Metadata: result.Metadata,
					},
				}

				messages = append(messages,
					ai.Message{
						Role:      ai.RoleAssistant,
						ToolCalls: []ai.ToolCall{{ID: call.ID, Name: call.Name, Arguments: call.Arguments}},
					},
					ai.Message{
						Role:       ai.RoleTool,
						Content:    result.Content,
						ToolCallID: call.ID,
						ToolName:   call.Name,
					},
				)
			}

			// Final pass: content only. At most one round of tool calls per
			// turn is the contract with the model.
			finalContent, _, _, err := e.streamPass(ctx, req.Model, messages, nil, events, false)
			if err != nil {
				events <- types.StreamEvent{Type: types.EventError, Error: err.Error()}
				return
			}

			total += finalContent
		}

		events <- types.StreamEvent{Type: types.EventDone, Content: total}
	}()

	return events
}

// streamPass consumes one completion stream, emitting content events and,
// when firstPass is set, the tool-call announcement and the best-effort
// partial document preview for the first announced call.
func (e *Engine) streamPass(
	ctx context.Context,
	model string,
	messages []ai.Message,
	tools []ai.Tool,
	events chan<- types.StreamEvent,
	firstPass bool,
) (content string, calls []types.ToolCall, finish string, err error) {
	deltaChan, err := e.source.Stream(ctx, &ai.StreamRequest{
		Model:    model,
		Messages: messages,
		Tools:    tools,
	})
	if err != nil {
		return "", nil, "", err
	}

	var aggregator toolCallAggregator
	announced := false
	lastPreview := ""

	for delta := range deltaChan {
		if delta.Err != nil {
			return content, nil, "", delta.Err
		}

		if delta.Content != "" {
			content += delta.Content
			events <- types.StreamEvent{Type: types.EventContent, Content: delta.Content}
		}

		if len(delta.ToolCalls) > 0 {
			aggregator.Apply(delta.ToolCalls)

			// Announce the first call as soon as it has any substance, so a
			// UI can show "calling X" before execution. Only the first call
			// of a turn gets this live treatment.
			if firstPass {
				if first, ok := aggregator.First(); ok {
					if !announced && (first.Name != "" || first.Arguments != "") {
						announced = true
						events <- types.StreamEvent{Type: types.EventToolCalls, ToolCalls: aggregator.Calls()}
					}

					if first.Name == ToolWriteDocument {
						if html, ok := extractDocumentPreview(first.Arguments); ok && html != lastPreview {
							lastPreview = html
							events <- types.StreamEvent{
								Type: types.EventDocumentStream,
								Document: &types.DocumentStream{
									Name:   extractDocumentName(first.Arguments),
									StepID: extractDocumentStepID(first.Arguments),
									HTML:   html,
								},
							}
						}
					}
				}
			}
		}

		if delta.FinishReason != "" {
			finish = delta.FinishReason
		}
	}

	if finish == "" {
		return content, nil, "", fmt.Errorf("completion stream ended without a finish reason")
	}

	return content, aggregator.Calls(), finish, nil
}
