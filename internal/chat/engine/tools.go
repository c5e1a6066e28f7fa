package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/leapstack-ai/sop-copilot-backend/internal/ai"
	"github.com/leapstack-ai/sop-copilot-backend/internal/chat/types"
	docbiz "github.com/leapstack-ai/sop-copilot-backend/internal/document/biz"
	apperrors "github.com/leapstack-ai/sop-copilot-backend/internal/pkg/errors"
	sopbiz "github.com/leapstack-ai/sop-copilot-backend/internal/sop/biz"
	soptypes "github.com/leapstack-ai/sop-copilot-backend/internal/sop/types"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// ToolContext is the execution context a tool call runs against. The
// orchestrator loads the active run once per turn and threads it through
// here explicitly; tools never look up ambient state.
type ToolContext struct {
	ChatID        string
	SOP           *soptypes.SOP
	RunID         string
	CurrentStepID string
}

// ToolResult is the outcome of one executed tool call. Content is a
// natural-language string read back by the model, so the model can
// self-correct from error text without a separate error channel.
type ToolResult struct {
	Content  string
	Metadata map[string]string
}

// ToolHandler executes one tool call against its context. Handlers never
// return Go errors; failures become textual results.
type ToolHandler func(ctx context.Context, tc *ToolContext, arguments string) ToolResult

// Dispatcher routes reconstructed tool calls to their handlers. The handler
// table is checked against the declared tool schemas at construction, so an
// unregistered tool is a startup failure rather than a runtime string-match
// miss.
type Dispatcher struct {
	handlers map[string]ToolHandler
	tools    []ai.Tool
	logger   *zap.Logger
}

// NewDispatcher builds the dispatch table for the built-in tools
func NewDispatcher(documents *docbiz.DocumentUseCase, sops *sopbiz.SOPUseCase, logger *zap.Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string]ToolHandler),
		tools:    toolSchemas(),
		logger:   logger,
	}

	d.handlers[ToolWriteDocument] = d.writeDocumentHandler(documents)
	d.handlers[ToolCreateSOP] = d.saveSOPHandler(sops, "created")
	d.handlers[ToolUpdateSOP] = d.saveSOPHandler(sops, "updated")
	d.handlers[ToolDeleteSOP] = d.deleteSOPHandler(sops)

	if err := d.validate(); err != nil {
		return nil, err
	}

	return d, nil
}

// validate ensures schemas and handlers cover each other exactly
func (d *Dispatcher) validate() error {
	declared := make(map[string]bool, len(d.tools))
	for _, t := range d.tools {
		declared[t.Name] = true
		if d.handlers[t.Name] == nil {
			return fmt.Errorf("tool %q is declared but has no handler", t.Name)
		}
	}
	for name := range d.handlers {
		if !declared[name] {
			return fmt.Errorf("handler %q has no declared tool schema", name)
		}
	}
	return nil
}

// Tools returns the declared tool schemas for the completion source
func (d *Dispatcher) Tools() []ai.Tool {
	return d.tools
}

// Execute runs one reconstructed tool call. Unknown tool names produce a
// textual error result so the conversation can continue and the model can
// retry.
func (d *Dispatcher) Execute(ctx context.Context, tc *ToolContext, call types.ToolCall) ToolResult {
	handler, ok := d.handlers[call.Name]
	if !ok {
		d.logger.Warn("unknown tool called",
			zap.String("tool", call.Name),
			zap.String("chat_id", tc.ChatID))
		return ToolResult{Content: fmt.Sprintf("Error: unknown tool %q. Available tools: %s.", call.Name, strings.Join(d.toolNames(), ", "))}
	}

	d.logger.Info("executing tool",
		zap.String("tool", call.Name),
		zap.String("chat_id", tc.ChatID),
		zap.String("call_id", call.ID))

	return handler(ctx, tc, call.Arguments)
}

func (d *Dispatcher) toolNames() []string {
	names := make([]string, 0, len(d.tools))
	for _, t := range d.tools {
		names = append(names, t.Name)
	}
	return names
}

func (d *Dispatcher) writeDocumentHandler(documents *docbiz.DocumentUseCase) ToolHandler {
	return func(ctx context.Context, tc *ToolContext, arguments string) ToolResult {
		if !gjson.Valid(arguments) {
			return ToolResult{Content: "Error: write_document arguments are not valid JSON."}
		}

		stepID := gjson.Get(arguments, "stepId").String()
		name := gjson.Get(arguments, "documentName").String()
		content := gjson.Get(arguments, "content").String()

		var missing []string
		if stepID == "" {
			missing = append(missing, "stepId")
		}
		if name == "" {
			missing = append(missing, "documentName")
		}
		if content == "" {
			missing = append(missing, "content")
		}
		if len(missing) > 0 {
			return ToolResult{Content: fmt.Sprintf("Error: write_document is missing required arguments: %s.", strings.Join(missing, ", "))}
		}

		doc, err := documents.Write(ctx, tc.ChatID, stepID, name, content)
		if err != nil {
			return ToolResult{Content: fmt.Sprintf("Error: failed to save document %q: %v", name, err)}
		}

		return ToolResult{
			Content: fmt.Sprintf("Document %q has been saved.", name),
			Metadata: map[string]string{
				"document_id":   doc.ID,
				"document_name": doc.Name,
			},
		}
	}
}

func (d *Dispatcher) saveSOPHandler(sops *sopbiz.SOPUseCase, verb string) ToolHandler {
	return func(ctx context.Context, tc *ToolContext, arguments string) ToolResult {
		raw := gjson.Get(arguments, "sop").String()
		if raw == "" {
			return ToolResult{Content: "Error: the sop argument must be the SOP serialized as a JSON string."}
		}

		sop, problems := sopbiz.ValidateSOPJSON(raw)
		if len(problems) > 0 {
			return ToolResult{Content: "Error: the SOP is not valid:\n- " + strings.Join(problems, "\n- ")}
		}

		if err := sops.Save(ctx, sop); err != nil {
			if apperrors.Is(err, apperrors.ErrSOPProtected) {
				return ToolResult{Content: fmt.Sprintf("Error: SOP %q is built in and cannot be overwritten.", sop.ID)}
			}
			return ToolResult{Content: fmt.Sprintf("Error: failed to save SOP %q: %v", sop.ID, err)}
		}

		return ToolResult{
			Content:  fmt.Sprintf("SOP %q has been %s with %d steps.", sop.ID, verb, len(sop.Steps)),
			Metadata: map[string]string{"sop_id": sop.ID},
		}
	}
}

func (d *Dispatcher) deleteSOPHandler(sops *sopbiz.SOPUseCase) ToolHandler {
	return func(ctx context.Context, tc *ToolContext, arguments string) ToolResult {
		sopID := gjson.Get(arguments, "sopId").String()
		if sopID == "" {
			return ToolResult{Content: "Error: delete_sop requires a sopId argument."}
		}

		if err := sops.Delete(ctx, sopID); err != nil {
			switch {
			case apperrors.Is(err, apperrors.ErrSOPProtected):
				return ToolResult{Content: fmt.Sprintf("Error: SOP %q is built in and cannot be deleted.", sopID)}
			case apperrors.Is(err, apperrors.ErrSOPNotFound):
				return ToolResult{Content: fmt.Sprintf("Error: SOP %q does not exist.", sopID)}
			default:
				return ToolResult{Content: fmt.Sprintf("Error: failed to delete SOP %q: %v", sopID, err)}
			}
		}

		return ToolResult{Content: fmt.Sprintf("SOP %q has been deleted.", sopID)}
	}
}

// ToolMessagePair converts an executed call into the two conversation
// messages the completion source requires: the assistant's tool-call
// message, then the tool's result message. Parent pointers are filled in by
// the orchestrator while chaining the turn's messages.
func ToolMessagePair(chatID string, call types.ToolCall, result ToolResult) (*types.Message, *types.Message) {
	assistantMsg := &types.Message{
		ChatID:    chatID,
		Role:      types.RoleAssistant,
		Content:   nil, // carries only the tool call
		ToolCalls: []types.ToolCall{call},
	}

	resultContent := result.Content
	toolMsg := &types.Message{
		ChatID:     chatID,
		Role:       types.RoleTool,
		Content:    &resultContent,
		ToolCallID: call.ID,
		ToolName:   call.Name,
		Metadata:   result.Metadata,
	}

	return assistantMsg, toolMsg
}
