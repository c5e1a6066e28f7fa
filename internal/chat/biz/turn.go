package biz

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/leapstack-ai/sop-copilot-backend/internal/ai"
	"github.com/leapstack-ai/sop-copilot-backend/internal/chat/engine"
	"github.com/leapstack-ai/sop-copilot-backend/internal/chat/types"
	apperrors "github.com/leapstack-ai/sop-copilot-backend/internal/pkg/errors"
	sopbiz "github.com/leapstack-ai/sop-copilot-backend/internal/sop/biz"
	soptypes "github.com/leapstack-ai/sop-copilot-backend/internal/sop/types"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultChatTitle = "New chat"

const basePrompt = `You are an AI copilot that helps users produce working documents through conversation.

When a step of an active workflow calls for producing a document, write it with the write_document tool as HTML (headings, paragraphs, lists; no style attributes). You can also create, update, or delete workflow definitions with the SOP tools when the user asks for that.

Keep replies concise. After using a tool, summarize what was produced and ask the user how to proceed.`

// TurnUseCase orchestrates one conversation turn end to end: resolving the
// parent message, persisting the user message, deciding SOP step
// transitions, running the streaming engine, and persisting everything the
// turn produced. Exactly one turn per chat may be in flight.
type TurnUseCase struct {
	chats      ChatRepo
	messages   MessageRepo
	engine     *engine.Engine
	dispatcher *engine.Dispatcher
	runs       *sopbiz.RunUseCase
	decider    *sopbiz.StepDecider
	source     ai.CompletionSource
	model      string
	titleModel string
	logger     *zap.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewTurnUseCase creates the turn orchestrator
func NewTurnUseCase(
	chats ChatRepo,
	messages MessageRepo,
	eng *engine.Engine,
	dispatcher *engine.Dispatcher,
	runs *sopbiz.RunUseCase,
	decider *sopbiz.StepDecider,
	source ai.CompletionSource,
	model, titleModel string,
	logger *zap.Logger,
) *TurnUseCase {
	return &TurnUseCase{
		chats:      chats,
		messages:   messages,
		engine:     eng,
		dispatcher: dispatcher,
		runs:       runs,
		decider:    decider,
		source:     source,
		model:      model,
		titleModel: titleModel,
		logger:     logger,
		inFlight:   make(map[string]struct{}),
	}
}

// Run executes one turn for a chat. Setup failures (unknown chat, bad
// parent, empty content, concurrent turn) are returned synchronously;
// everything after that arrives as events on the returned channel, which is
// closed after the terminal done or error event.
//
// The turn forks from an explicit parent (branch switching) or from the
// latest leaf of the chat.
func (uc *TurnUseCase) Run(ctx context.Context, chatID string, req *types.TurnRequest) (<-chan types.StreamEvent, error) {
	if req.ParentMessageID != nil {
		parent, err := uc.messages.GetByID(ctx, *req.ParentMessageID)
		if err != nil {
			return nil, err
		}
		if parent.ChatID != chatID {
			return nil, apperrors.New(apperrors.ErrInvalidParams, "parent message belongs to a different chat")
		}
		return uc.begin(ctx, chatID, req, req.ParentMessageID, true)
	}

	return uc.begin(ctx, chatID, req, nil, false)
}

// Edit reruns a user message with new content as a sibling branch. The
// original message and its descendants are untouched; the new message
// shares the original's parent, which may be nil for a root message.
func (uc *TurnUseCase) Edit(ctx context.Context, chatID, messageID string, req *types.TurnRequest) (<-chan types.StreamEvent, error) {
	original, err := uc.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if original.ChatID != chatID {
		return nil, apperrors.New(apperrors.ErrMessageNotFound, messageID)
	}
	if original.Role != types.RoleUser {
		return nil, apperrors.New(apperrors.ErrInvalidParams, "only user messages can be edited")
	}

	branched := &types.TurnRequest{
		Content:         req.Content,
		ParentMessageID: original.ParentMessageID,
		FileAttachments: req.FileAttachments,
	}

	return uc.begin(ctx, chatID, branched, original.ParentMessageID, true)
}

// begin acquires the chat's turn slot, persists the turn's first message,
// and spawns the streaming goroutine. parentFixed distinguishes "parent is
// explicitly the root position" from "no parent given, use the latest leaf".
func (uc *TurnUseCase) begin(ctx context.Context, chatID string, req *types.TurnRequest, parentID *string, parentFixed bool) (<-chan types.StreamEvent, error) {
	chat, err := uc.chats.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}

	if !uc.acquire(chatID) {
		return nil, apperrors.New(apperrors.ErrTurnInProgress, chatID)
	}

	release := func() { uc.release(chatID) }

	all, err := uc.messages.ListByChat(ctx, chatID)
	if err != nil {
		release()
		return nil, err
	}

	if !parentFixed {
		if leaf := LatestLeaf(all); leaf != "" {
			parentID = &leaf
		}
	}

	var (
		run *soptypes.Run
		sop *soptypes.SOP
	)

	if req.IsSOPStart() {
		run, sop, err = uc.runs.Start(ctx, chatID, req.SOPID)
		if err != nil {
			release()
			return nil, err
		}
	} else {
		userMsg, err := NewUserMessage(chatID, req.Content, parentID, req.FileAttachments)
		if err != nil {
			release()
			return nil, err
		}
		if err := uc.messages.Create(ctx, userMsg); err != nil {
			release()
			return nil, err
		}
		all = append(all, userMsg)
		parentID = &userMsg.ID

		run, sop, err = uc.runs.ActiveForChat(ctx, chatID)
		if err != nil {
			release()
			return nil, err
		}
	}

	events := make(chan types.StreamEvent, 64)

	// Detached from the request context: a client disconnect must not abort
	// tool execution or persistence mid-turn. The transport drains the
	// channel; the turn itself always runs to completion.
	turnCtx := context.WithoutCancel(ctx)

	go func() {
		// Release before close so a caller that drained the channel can
		// immediately start the next turn.
		defer close(events)
		defer release()
		uc.stream(turnCtx, chat, req, all, parentID, run, sop, events)
	}()

	return events, nil
}

// stream is the goroutine body of one turn. tail tracks the id of the last
// persisted message so every new message chains onto the thread.
func (uc *TurnUseCase) stream(
	ctx context.Context,
	chat *types.Chat,
	req *types.TurnRequest,
	all []*types.Message,
	tail *string,
	run *soptypes.Run,
	sop *soptypes.SOP,
	events chan<- types.StreamEvent,
) {
	thread := uc.resolveThread(all, tail)
	history := toAIMessages(thread)

	// Step decision happens before the model speaks, so the assistant acts
	// under the step that is actually current for this turn.
	if run != nil && sop != nil {
		previous := run.CurrentStepID

		if req.IsSOPStart() {
			events <- types.StreamEvent{
				Type: types.EventStepTransition,
				Step: &types.StepTransition{NextStepID: run.CurrentStepID},
			}
		} else {
			decided := uc.decider.Decide(ctx, sop, run, history)
			if decided != previous {
				if err := uc.runs.AdvanceTo(ctx, run.ID, decided); err != nil {
					uc.logger.Error("failed to persist step transition",
						zap.String("run_id", run.ID),
						zap.Error(err))
				} else {
					run.CurrentStepID = decided
					events <- types.StreamEvent{
						Type: types.EventStepTransition,
						Step: &types.StepTransition{PreviousStepID: previous, NextStepID: decided},
					}
				}
			}
		}
	}

	messages := append([]ai.Message{{Role: ai.RoleSystem, Content: uc.buildSystemPrompt(req, run, sop)}}, history...)

	runReq := &engine.RunRequest{
		Model:    uc.model,
		Messages: messages,
		Tools:    uc.dispatcher.Tools(),
	}
	runReq.ToolContext = uc.toolContext(chat.ID, run, sop)

	engineEvents := uc.engine.Run(ctx, runReq)

	// The engine goroutine streams until its own terminal event. Abandoning
	// the channel early would leave it blocked on send once the buffer
	// fills, so every early return drains what remains first.
	drain := func() {
		for range engineEvents {
		}
	}

	for event := range engineEvents {
		switch event.Type {
		case types.EventTool:
			assistantMsg, toolMsg := engine.ToolMessagePair(chat.ID, event.Tool.Call, engine.ToolResult{
				Content:  event.Tool.Result,
				Metadata: event.Tool.Metadata,
			})
			if err := uc.persistPair(ctx, assistantMsg, toolMsg, &tail); err != nil {
				uc.logger.Error("failed to persist tool messages",
					zap.String("chat_id", chat.ID),
					zap.Error(err))
				events <- types.StreamEvent{Type: types.EventError, Error: "failed to persist tool result"}
				drain()
				return
			}
			event.Tool.AssistantMessageID = assistantMsg.ID
			event.Tool.ToolMessageID = toolMsg.ID
			events <- event

		case types.EventDone:
			leafID, err := uc.persistAssistant(ctx, chat.ID, event.Content, tail, run)
			if err != nil {
				uc.logger.Error("failed to persist assistant message",
					zap.String("chat_id", chat.ID),
					zap.Error(err))
				events <- types.StreamEvent{Type: types.EventError, Error: "failed to persist assistant message"}
				drain()
				return
			}
			event.MessageID = leafID
			events <- event

			uc.finishRun(ctx, run, sop)

			if chat.Title == defaultChatTitle && !req.IsSOPStart() {
				go uc.generateTitle(chat.ID, req.Content)
			}

		default:
			events <- event
		}
	}
}

// resolveThread returns the root-to-tail chain as conversation history, or
// an empty history for a fresh chat.
func (uc *TurnUseCase) resolveThread(all []*types.Message, tail *string) []*types.Message {
	if tail == nil {
		return nil
	}
	return Thread(*tail, all)
}

func (uc *TurnUseCase) toolContext(chatID string, run *soptypes.Run, sop *soptypes.SOP) *engine.ToolContext {
	tc := &engine.ToolContext{ChatID: chatID}
	if run != nil && sop != nil {
		tc.SOP = sop
		tc.RunID = run.ID
		tc.CurrentStepID = run.CurrentStepID
	}
	return tc
}

// persistPair stores an assistant tool-call message and its tool result,
// chained onto the thread in that order.
func (uc *TurnUseCase) persistPair(ctx context.Context, assistantMsg, toolMsg *types.Message, tail **string) error {
	now := time.Now()

	assistantMsg.ID = uuid.New().String()
	assistantMsg.ParentMessageID = *tail
	assistantMsg.CreatedAt = now
	if err := uc.messages.Create(ctx, assistantMsg); err != nil {
		return err
	}

	toolMsg.ID = uuid.New().String()
	toolMsg.ParentMessageID = &assistantMsg.ID
	toolMsg.CreatedAt = now
	if err := uc.messages.Create(ctx, toolMsg); err != nil {
		return err
	}

	*tail = &toolMsg.ID
	return nil
}

func (uc *TurnUseCase) persistAssistant(ctx context.Context, chatID, content string, tail *string, run *soptypes.Run) (string, error) {
	msg := NewAssistantMessage(chatID, content, tail)

	count := ai.CountTokens(uc.model, content)
	msg.TokenCount = &count

	if err := uc.messages.Create(ctx, msg); err != nil {
		return "", err
	}

	// Messages produced under a run are tagged with the run and the step
	// they were written on, so clients can badge them per step. Best-effort.
	if run != nil {
		meta := map[string]string{
			"sop_run_id": run.ID,
			"step_id":    run.CurrentStepID,
		}
		if err := uc.messages.UpdateMetadata(ctx, msg.ID, meta); err != nil {
			uc.logger.Warn("failed to tag assistant message with run context",
				zap.String("message_id", msg.ID),
				zap.Error(err))
		}
	}

	return msg.ID, nil
}

// finishRun marks the run completed once it is parked on a terminal step
// and the turn has finished cleanly.
func (uc *TurnUseCase) finishRun(ctx context.Context, run *soptypes.Run, sop *soptypes.SOP) {
	if run == nil || sop == nil {
		return
	}
	step := sop.Step(run.CurrentStepID)
	if step == nil || !step.NextStep.IsTerminal() {
		return
	}
	if err := uc.runs.Complete(ctx, run.ID); err != nil {
		uc.logger.Error("failed to complete sop run",
			zap.String("run_id", run.ID),
			zap.Error(err))
	}
}

func (uc *TurnUseCase) buildSystemPrompt(req *types.TurnRequest, run *soptypes.Run, sop *soptypes.SOP) string {
	var sb strings.Builder
	sb.WriteString(basePrompt)

	if run != nil && sop != nil {
		step := sop.Step(run.CurrentStepID)

		fmt.Fprintf(&sb, "\n\nActive workflow: %s", sop.DisplayName)
		if sop.Description != "" {
			fmt.Fprintf(&sb, "\n%s", sop.Description)
		}

		sb.WriteString("\nSteps:")
		for _, s := range sop.StepsInOrder() {
			marker := " "
			if s.ID == run.CurrentStepID {
				marker = ">"
			}
			fmt.Fprintf(&sb, "\n%s %d. %s (%s)", marker, s.StepNumber, s.Name, s.ID)
		}

		if step != nil {
			fmt.Fprintf(&sb, "\n\nCurrent step: %s", step.Name)
			if step.Instructions != "" {
				fmt.Fprintf(&sb, "\nInstructions: %s", step.Instructions)
			}
			if step.ExpectedOutput != "" {
				fmt.Fprintf(&sb, "\nExpected output: %s", step.ExpectedOutput)
			}
			fmt.Fprintf(&sb, "\nWhen this step produces a document, call write_document with stepId %q.", step.ID)
		}

		if req.IsSOPStart() {
			sb.WriteString("\n\nThe workflow has just started. Introduce the current step to the user and ask for whatever input it needs.")
		}
	}

	return sb.String()
}

// toAIMessages maps stored thread messages onto the completion wire shape.
// Assistant tool-call messages and tool results are both preserved so the
// model sees its prior tool use.
func toAIMessages(thread []*types.Message) []ai.Message {
	out := make([]ai.Message, 0, len(thread))
	for _, m := range thread {
		msg := ai.Message{
			Role:       m.Role,
			Content:    m.TextContent(),
			ToolCallID: m.ToolCallID,
			ToolName:   m.ToolName,
		}
		if len(m.FileAttachments) > 0 {
			var sb strings.Builder
			sb.WriteString(msg.Content)
			for _, att := range m.FileAttachments {
				sb.WriteString("\n[attached file: ")
				sb.WriteString(att.Name)
				if att.MimeType != "" {
					sb.WriteString(" (" + att.MimeType + ")")
				}
				sb.WriteString("]")
			}
			msg.Content = sb.String()
		}
		for _, tc := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, ai.ToolCall{ID: tc.ID, Name: tc.Name, Arguments: tc.Arguments})
		}
		out = append(out, msg)
	}
	return out
}

// generateTitle asks a small model for a chat title from the first user
// message. Fire and forget; failures only log.
func (uc *TurnUseCase) generateTitle(chatID, firstMessage string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	title, err := uc.source.Complete(ctx, uc.titleModel, []ai.Message{
		{Role: ai.RoleSystem, Content: "Produce a title of at most six words for a conversation that starts with the user message below. Reply with the title only, no quotes."},
		{Role: ai.RoleUser, Content: firstMessage},
	})
	if err != nil {
		uc.logger.Warn("chat title generation failed",
			zap.String("chat_id", chatID),
			zap.Error(err))
		return
	}

	title = strings.Trim(strings.TrimSpace(title), `"`)
	if title == "" {
		return
	}

	if err := uc.chats.UpdateTitle(ctx, chatID, title); err != nil {
		uc.logger.Warn("failed to store generated chat title",
			zap.String("chat_id", chatID),
			zap.Error(err))
	}
}

func (uc *TurnUseCase) acquire(chatID string) bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if _, busy := uc.inFlight[chatID]; busy {
		return false
	}
	uc.inFlight[chatID] = struct{}{}
	return true
}

func (uc *TurnUseCase) release(chatID string) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	delete(uc.inFlight, chatID)
}
