package biz

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leapstack-ai/sop-copilot-backend/internal/ai"
	"github.com/leapstack-ai/sop-copilot-backend/internal/chat/engine"
	"github.com/leapstack-ai/sop-copilot-backend/internal/chat/types"
	docbiz "github.com/leapstack-ai/sop-copilot-backend/internal/document/biz"
	doctypes "github.com/leapstack-ai/sop-copilot-backend/internal/document/types"
	apperrors "github.com/leapstack-ai/sop-copilot-backend/internal/pkg/errors"
	sopbiz "github.com/leapstack-ai/sop-copilot-backend/internal/sop/biz"
	soptypes "github.com/leapstack-ai/sop-copilot-backend/internal/sop/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ---- fakes -----------------------------------------------------------------

type memChatRepo struct {
	mu    sync.Mutex
	chats map[string]*types.Chat
}

func newMemChatRepo() *memChatRepo {
	return &memChatRepo{chats: make(map[string]*types.Chat)}
}

func (r *memChatRepo) Create(_ context.Context, chat *types.Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chats[chat.ID] = chat
	return nil
}

func (r *memChatRepo) GetByID(_ context.Context, id string) (*types.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if chat, ok := r.chats[id]; ok {
		copied := *chat
		return &copied, nil
	}
	return nil, apperrors.New(apperrors.ErrChatNotFound, id)
}

func (r *memChatRepo) List(_ context.Context) ([]*types.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Chat
	for _, chat := range r.chats {
		out = append(out, chat)
	}
	return out, nil
}

func (r *memChatRepo) UpdateTitle(_ context.Context, id, title string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	chat, ok := r.chats[id]
	if !ok {
		return apperrors.New(apperrors.ErrChatNotFound, id)
	}
	chat.Title = title
	return nil
}

func (r *memChatRepo) title(id string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.chats[id].Title
}

type memMessageRepo struct {
	mu       sync.Mutex
	messages []*types.Message
	seq      int64

	// failOnRole refuses writes for one role, to exercise persistence
	// failure paths.
	failOnRole string
}

func (r *memMessageRepo) Create(_ context.Context, message *types.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failOnRole != "" && message.Role == r.failOnRole {
		return errors.New("store write refused")
	}
	r.seq++
	message.Seq = r.seq
	copied := *message
	r.messages = append(r.messages, &copied)
	return nil
}

func (r *memMessageRepo) GetByID(_ context.Context, id string) (*types.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.ID == id {
			copied := *m
			return &copied, nil
		}
	}
	return nil, apperrors.New(apperrors.ErrMessageNotFound, id)
}

func (r *memMessageRepo) ListByChat(_ context.Context, chatID string) ([]*types.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Message
	for _, m := range r.messages {
		if m.ChatID == chatID {
			copied := *m
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memMessageRepo) UpdateMetadata(_ context.Context, id string, metadata map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.ID == id {
			if m.Metadata == nil {
				m.Metadata = make(map[string]string)
			}
			for k, v := range metadata {
				m.Metadata[k] = v
			}
			return nil
		}
	}
	return apperrors.New(apperrors.ErrMessageNotFound, id)
}

type memSOPRepo struct {
	sops map[string]*soptypes.SOP
}

func newMemSOPRepo() *memSOPRepo {
	return &memSOPRepo{sops: make(map[string]*soptypes.SOP)}
}

func (r *memSOPRepo) Save(_ context.Context, sop *soptypes.SOP) error {
	r.sops[sop.ID] = sop
	return nil
}

func (r *memSOPRepo) GetByID(_ context.Context, id string) (*soptypes.SOP, error) {
	if sop, ok := r.sops[id]; ok {
		return sop, nil
	}
	return nil, apperrors.New(apperrors.ErrSOPNotFound, id)
}

func (r *memSOPRepo) List(_ context.Context) ([]*soptypes.SOP, error) {
	var out []*soptypes.SOP
	for _, sop := range r.sops {
		out = append(out, sop)
	}
	return out, nil
}

func (r *memSOPRepo) Delete(_ context.Context, id string) error {
	delete(r.sops, id)
	return nil
}

type memRunRepo struct {
	mu   sync.Mutex
	runs map[string]*soptypes.Run
}

func newMemRunRepo() *memRunRepo {
	return &memRunRepo{runs: make(map[string]*soptypes.Run)}
}

func (r *memRunRepo) Create(_ context.Context, run *soptypes.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *run
	r.runs[run.ID] = &copied
	return nil
}

func (r *memRunRepo) GetByID(_ context.Context, id string) (*soptypes.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if run, ok := r.runs[id]; ok {
		copied := *run
		return &copied, nil
	}
	return nil, apperrors.New(apperrors.ErrSOPRunNotFound, id)
}

func (r *memRunRepo) GetActiveByChat(_ context.Context, chatID string) (*soptypes.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, run := range r.runs {
		if run.ChatID == chatID && run.Status == soptypes.RunStatusInProgress {
			copied := *run
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memRunRepo) UpdateStep(_ context.Context, id, stepID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return apperrors.New(apperrors.ErrSOPRunNotFound, id)
	}
	run.CurrentStepID = stepID
	return nil
}

func (r *memRunRepo) UpdateStatus(_ context.Context, id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return apperrors.New(apperrors.ErrSOPRunNotFound, id)
	}
	run.Status = status
	return nil
}

type memDocRepo struct {
	docs map[string]*doctypes.Document
}

func (r *memDocRepo) Create(_ context.Context, doc *doctypes.Document) error {
	r.docs[doc.ID] = doc
	return nil
}

func (r *memDocRepo) Update(_ context.Context, doc *doctypes.Document) error {
	r.docs[doc.ID] = doc
	return nil
}

func (r *memDocRepo) GetByID(_ context.Context, id string) (*doctypes.Document, error) {
	if doc, ok := r.docs[id]; ok {
		return doc, nil
	}
	return nil, apperrors.New(apperrors.ErrDocumentNotFound, id)
}

func (r *memDocRepo) GetByChatAndName(_ context.Context, chatID, name string) (*doctypes.Document, error) {
	for _, doc := range r.docs {
		if doc.ChatID == chatID && doc.Name == name {
			return doc, nil
		}
	}
	return nil, nil
}

func (r *memDocRepo) ListByChat(_ context.Context, chatID string) ([]*doctypes.Document, error) {
	var out []*doctypes.Document
	for _, doc := range r.docs {
		if doc.ChatID == chatID {
			out = append(out, doc)
		}
	}
	return out, nil
}

// turnSource scripts the completion source across all three call shapes.
// Streams are consumed in order, one per engine pass.
type turnSource struct {
	mu       sync.Mutex
	streams  [][]ai.Delta
	decision string
	title    string
	requests []*ai.StreamRequest

	// delivered counts scripts streamed to completion; a consumer that
	// abandons the delta channel leaves the count short.
	delivered atomic.Int32
}

func (s *turnSource) Stream(_ context.Context, req *ai.StreamRequest) (<-chan ai.Delta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.streams) == 0 {
		return nil, errors.New("no scripted stream left")
	}
	s.requests = append(s.requests, req)
	script := s.streams[0]
	s.streams = s.streams[1:]

	ch := make(chan ai.Delta)
	go func() {
		defer s.delivered.Add(1)
		for _, d := range script {
			ch <- d
		}
		close(ch)
	}()
	return ch, nil
}

func (s *turnSource) Complete(context.Context, string, []ai.Message) (string, error) {
	if s.title == "" {
		return "", errors.New("no title scripted")
	}
	return s.title, nil
}

func (s *turnSource) CompleteWithTool(context.Context, string, []ai.Message, ai.Tool) (string, error) {
	if s.decision == "" {
		return "", errors.New("no decision scripted")
	}
	return s.decision, nil
}

// ---- fixture ---------------------------------------------------------------

type turnFixture struct {
	turns    *TurnUseCase
	chats    *memChatRepo
	messages *memMessageRepo
	sops     *memSOPRepo
	runs     *memRunRepo
	source   *turnSource
	runUC    *sopbiz.RunUseCase
}

func newTurnFixture(t *testing.T, source *turnSource) *turnFixture {
	t.Helper()

	chats := newMemChatRepo()
	messages := &memMessageRepo{}
	sops := newMemSOPRepo()
	runs := newMemRunRepo()

	sopUC := sopbiz.NewSOPUseCase(sops)
	runUC := sopbiz.NewRunUseCase(runs, sops)
	docUC := docbiz.NewDocumentUseCase(&memDocRepo{docs: make(map[string]*doctypes.Document)})
	decider := sopbiz.NewStepDecider(source, "decision-model", zap.NewNop())

	dispatcher, err := engine.NewDispatcher(docUC, sopUC, zap.NewNop())
	require.NoError(t, err)
	eng := engine.NewEngine(source, dispatcher, zap.NewNop())

	turns := NewTurnUseCase(
		chats, messages, eng, dispatcher, runUC, decider, source,
		"chat-model", "title-model", zap.NewNop(),
	)

	return &turnFixture{
		turns:    turns,
		chats:    chats,
		messages: messages,
		sops:     sops,
		runs:     runs,
		source:   source,
		runUC:    runUC,
	}
}

func (f *turnFixture) seedChat(title string) *types.Chat {
	chat := &types.Chat{ID: "chat-1", Title: title, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	f.chats.chats[chat.ID] = chat
	return chat
}

func (f *turnFixture) seedSOP() *soptypes.SOP {
	sop := &soptypes.SOP{
		ID:          "sop-review",
		Name:        "review",
		DisplayName: "Review Flow",
		Steps: []soptypes.Step{
			{ID: "draft", StepNumber: 1, Name: "Draft", NextStep: soptypes.NextStep{IDs: []string{"publish"}}},
			{ID: "publish", StepNumber: 2, Name: "Publish"},
		},
	}
	f.sops.sops[sop.ID] = sop
	return sop
}

func contentStream(parts ...string) []ai.Delta {
	var deltas []ai.Delta
	for _, p := range parts {
		deltas = append(deltas, ai.Delta{Content: p})
	}
	return append(deltas, ai.Delta{FinishReason: ai.FinishReasonStop})
}

func drain(t *testing.T, events <-chan types.StreamEvent) []types.StreamEvent {
	t.Helper()
	var out []types.StreamEvent
	deadline := time.After(5 * time.Second)
	for {
		select {
		case e, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, e)
		case <-deadline:
			t.Fatal("timed out draining turn events")
		}
	}
}

// ---- tests -----------------------------------------------------------------

func TestTurnPersistsUserAndAssistant(t *testing.T) {
	source := &turnSource{streams: [][]ai.Delta{contentStream("Hi ", "there.")}}
	f := newTurnFixture(t, source)
	f.seedChat("My chat")

	events, err := f.turns.Run(context.Background(), "chat-1", &types.TurnRequest{Content: "hello"})
	require.NoError(t, err)

	all := drain(t, events)
	done := all[len(all)-1]
	require.Equal(t, types.EventDone, done.Type)
	assert.Equal(t, "Hi there.", done.Content)
	require.NotEmpty(t, done.MessageID)

	stored, err := f.messages.ListByChat(context.Background(), "chat-1")
	require.NoError(t, err)
	require.Len(t, stored, 2)

	user, assistant := stored[0], stored[1]
	assert.Equal(t, types.RoleUser, user.Role)
	assert.Nil(t, user.ParentMessageID)
	assert.Equal(t, "hello", user.TextContent())

	assert.Equal(t, types.RoleAssistant, assistant.Role)
	assert.Equal(t, done.MessageID, assistant.ID)
	require.NotNil(t, assistant.ParentMessageID)
	assert.Equal(t, user.ID, *assistant.ParentMessageID)
	assert.Equal(t, "Hi there.", assistant.TextContent())
	require.NotNil(t, assistant.TokenCount)
	assert.Positive(t, *assistant.TokenCount)
}

func TestTurnChainsOntoLatestLeaf(t *testing.T) {
	source := &turnSource{streams: [][]ai.Delta{contentStream("First."), contentStream("Second.")}}
	f := newTurnFixture(t, source)
	f.seedChat("My chat")

	drain(t, mustRun(t, f, &types.TurnRequest{Content: "one"}))
	drain(t, mustRun(t, f, &types.TurnRequest{Content: "two"}))

	stored, _ := f.messages.ListByChat(context.Background(), "chat-1")
	require.Len(t, stored, 4)

	// Second user message chains onto the first assistant reply.
	secondUser := stored[2]
	assert.Equal(t, "two", secondUser.TextContent())
	require.NotNil(t, secondUser.ParentMessageID)
	assert.Equal(t, stored[1].ID, *secondUser.ParentMessageID)

	// The second pass saw the whole thread as history.
	lastReq := source.requests[len(source.requests)-1]
	require.Len(t, lastReq.Messages, 4) // system + user + assistant + user
	assert.Equal(t, "one", lastReq.Messages[1].Content)
	assert.Equal(t, "First.", lastReq.Messages[2].Content)
}

func TestTurnRejectsEmptyContent(t *testing.T) {
	f := newTurnFixture(t, &turnSource{})
	f.seedChat("My chat")

	_, err := f.turns.Run(context.Background(), "chat-1", &types.TurnRequest{Content: "   "})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrMessageEmptyContent))

	// Nothing persisted, slot released.
	stored, _ := f.messages.ListByChat(context.Background(), "chat-1")
	assert.Empty(t, stored)
	assert.True(t, f.turns.acquire("chat-1"))
	f.turns.release("chat-1")
}

func TestTurnUnknownChat(t *testing.T) {
	f := newTurnFixture(t, &turnSource{})

	_, err := f.turns.Run(context.Background(), "nope", &types.TurnRequest{Content: "hi"})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrChatNotFound))
}

func TestTurnConcurrencyGuard(t *testing.T) {
	f := newTurnFixture(t, &turnSource{})
	f.seedChat("My chat")

	require.True(t, f.turns.acquire("chat-1"))
	defer f.turns.release("chat-1")

	_, err := f.turns.Run(context.Background(), "chat-1", &types.TurnRequest{Content: "hi"})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrTurnInProgress))
}

func TestSOPStartTurn(t *testing.T) {
	source := &turnSource{streams: [][]ai.Delta{contentStream("Let's collect the draft.")}}
	f := newTurnFixture(t, source)
	f.seedChat("My chat")
	f.seedSOP()

	events, err := f.turns.Run(context.Background(), "chat-1", &types.TurnRequest{SOPID: "sop-review"})
	require.NoError(t, err)

	all := drain(t, events)
	require.Equal(t, types.EventStepTransition, all[0].Type)
	assert.Empty(t, all[0].Step.PreviousStepID)
	assert.Equal(t, "draft", all[0].Step.NextStepID)

	// No user message: the assistant reply is the root.
	stored, _ := f.messages.ListByChat(context.Background(), "chat-1")
	require.Len(t, stored, 1)
	assert.Equal(t, types.RoleAssistant, stored[0].Role)
	assert.Nil(t, stored[0].ParentMessageID)

	run, sop, err := f.runUC.ActiveForChat(context.Background(), "chat-1")
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, "draft", run.CurrentStepID)
	assert.Equal(t, "sop-review", sop.ID)

	// The reply is tagged with the run and step it was written on.
	assert.Equal(t, run.ID, stored[0].Metadata["sop_run_id"])
	assert.Equal(t, "draft", stored[0].Metadata["step_id"])

	// The prompt carries the workflow and its current step.
	require.Len(t, source.requests, 1)
	system := source.requests[0].Messages[0]
	assert.Contains(t, system.Content, "Review Flow")
	assert.Contains(t, system.Content, "Current step: Draft")
}

func TestSOPStartRefusedWhileRunActive(t *testing.T) {
	source := &turnSource{streams: [][]ai.Delta{contentStream("ok")}}
	f := newTurnFixture(t, source)
	f.seedChat("My chat")
	f.seedSOP()

	drain(t, mustRun(t, f, &types.TurnRequest{SOPID: "sop-review"}))

	_, err := f.turns.Run(context.Background(), "chat-1", &types.TurnRequest{SOPID: "sop-review"})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrSOPRunActive))
}

func TestTurnAdvancesStep(t *testing.T) {
	source := &turnSource{
		streams:  [][]ai.Delta{contentStream("start"), contentStream("Publishing now.")},
		decision: `{"step_id":"publish"}`,
	}
	f := newTurnFixture(t, source)
	f.seedChat("My chat")
	f.seedSOP()

	drain(t, mustRun(t, f, &types.TurnRequest{SOPID: "sop-review"}))

	events := drain(t, mustRun(t, f, &types.TurnRequest{Content: "the draft is done"}))

	var transition *types.StepTransition
	for _, e := range events {
		if e.Type == types.EventStepTransition {
			transition = e.Step
		}
	}
	require.NotNil(t, transition)
	assert.Equal(t, "draft", transition.PreviousStepID)
	assert.Equal(t, "publish", transition.NextStepID)

	// publish is terminal, so the run completes with the turn.
	run, _ := f.runs.GetActiveByChat(context.Background(), "chat-1")
	assert.Nil(t, run)

	// The leaf is tagged with the step the turn ended on.
	stored, _ := f.messages.ListByChat(context.Background(), "chat-1")
	leaf := stored[len(stored)-1]
	assert.Equal(t, types.RoleAssistant, leaf.Role)
	assert.Equal(t, "publish", leaf.Metadata["step_id"])
}

func TestTurnStaysOnStep(t *testing.T) {
	source := &turnSource{
		streams:  [][]ai.Delta{contentStream("start"), contentStream("Still drafting.")},
		decision: `{"step_id":"stay_on_current_step"}`,
	}
	f := newTurnFixture(t, source)
	f.seedChat("My chat")
	f.seedSOP()

	drain(t, mustRun(t, f, &types.TurnRequest{SOPID: "sop-review"}))
	events := drain(t, mustRun(t, f, &types.TurnRequest{Content: "not done yet"}))

	for _, e := range events {
		assert.NotEqual(t, types.EventStepTransition, e.Type)
	}

	run, _ := f.runs.GetActiveByChat(context.Background(), "chat-1")
	require.NotNil(t, run)
	assert.Equal(t, "draft", run.CurrentStepID)
}

func TestTurnWithToolPersistsPair(t *testing.T) {
	args := `{"stepId":"s1","documentName":"Draft","content":"<p>v1</p>"}`
	source := &turnSource{streams: [][]ai.Delta{
		{
			{ToolCalls: []ai.ToolCallDelta{{Index: 0, ID: "call-1", Name: "write_document", Arguments: args}}},
			{FinishReason: ai.FinishReasonToolCalls},
		},
		contentStream("The draft is saved."),
	}}
	f := newTurnFixture(t, source)
	f.seedChat("My chat")

	events := drain(t, mustRun(t, f, &types.TurnRequest{Content: "write a draft"}))

	var toolEvent *types.ToolEvent
	for _, e := range events {
		if e.Type == types.EventTool {
			toolEvent = e.Tool
		}
	}
	require.NotNil(t, toolEvent)
	assert.NotEmpty(t, toolEvent.AssistantMessageID)
	assert.NotEmpty(t, toolEvent.ToolMessageID)
	assert.Contains(t, toolEvent.Result, "has been saved")

	stored, _ := f.messages.ListByChat(context.Background(), "chat-1")
	require.Len(t, stored, 4)

	user, callMsg, toolMsg, reply := stored[0], stored[1], stored[2], stored[3]

	assert.Equal(t, types.RoleAssistant, callMsg.Role)
	assert.Nil(t, callMsg.Content)
	require.Len(t, callMsg.ToolCalls, 1)
	assert.Equal(t, "call-1", callMsg.ToolCalls[0].ID)
	assert.Equal(t, user.ID, *callMsg.ParentMessageID)
	assert.Equal(t, toolEvent.AssistantMessageID, callMsg.ID)

	assert.Equal(t, types.RoleTool, toolMsg.Role)
	assert.Equal(t, "call-1", toolMsg.ToolCallID)
	assert.Equal(t, callMsg.ID, *toolMsg.ParentMessageID)
	assert.Equal(t, toolEvent.ToolMessageID, toolMsg.ID)
	assert.NotEmpty(t, toolMsg.Metadata["document_id"])

	assert.Equal(t, types.RoleAssistant, reply.Role)
	assert.Equal(t, toolMsg.ID, *reply.ParentMessageID)
	assert.Equal(t, "The draft is saved.", reply.TextContent())
}

func TestTurnFinishesEngineAfterToolPersistFailure(t *testing.T) {
	args := `{"stepId":"s1","documentName":"Draft","content":"<p>v1</p>"}`
	long := make([]string, 128)
	for i := range long {
		long[i] = "x"
	}
	source := &turnSource{streams: [][]ai.Delta{
		{
			{ToolCalls: []ai.ToolCallDelta{{Index: 0, ID: "call-1", Name: "write_document", Arguments: args}}},
			{FinishReason: ai.FinishReasonToolCalls},
		},
		contentStream(long...),
	}}
	f := newTurnFixture(t, source)
	f.seedChat("My chat")
	f.messages.failOnRole = types.RoleTool

	events := drain(t, mustRun(t, f, &types.TurnRequest{Content: "write a draft"}))

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, types.EventError, last.Type)
	assert.Equal(t, "failed to persist tool result", last.Error)

	// The aborted turn must still consume the rest of the completion, or
	// the engine goroutine stays blocked on send forever.
	assert.Eventually(t, func() bool {
		return source.delivered.Load() == 2
	}, 2*time.Second, 10*time.Millisecond)

	stored, _ := f.messages.ListByChat(context.Background(), "chat-1")
	assert.Len(t, stored, 2)
}

func TestEditCreatesSiblingBranch(t *testing.T) {
	source := &turnSource{streams: [][]ai.Delta{contentStream("Original."), contentStream("Branched.")}}
	f := newTurnFixture(t, source)
	f.seedChat("My chat")

	drain(t, mustRun(t, f, &types.TurnRequest{Content: "first question"}))

	stored, _ := f.messages.ListByChat(context.Background(), "chat-1")
	originalUser := stored[0]

	events, err := f.turns.Edit(context.Background(), "chat-1", originalUser.ID, &types.TurnRequest{Content: "rephrased question"})
	require.NoError(t, err)
	drain(t, events)

	stored, _ = f.messages.ListByChat(context.Background(), "chat-1")
	require.Len(t, stored, 4)

	edited := stored[2]
	assert.Equal(t, "rephrased question", edited.TextContent())
	assert.Nil(t, edited.ParentMessageID) // sibling root, not a child of the old thread

	// Both branches are intact and navigable.
	info := BranchInfo(edited.ID, stored)
	require.NotNil(t, info)
	assert.Equal(t, 2, info.Total)
	assert.Equal(t, originalUser.ID, info.PrevSiblingID)
}

func TestEditRejectsAssistantMessage(t *testing.T) {
	source := &turnSource{streams: [][]ai.Delta{contentStream("Reply.")}}
	f := newTurnFixture(t, source)
	f.seedChat("My chat")

	drain(t, mustRun(t, f, &types.TurnRequest{Content: "question"}))

	stored, _ := f.messages.ListByChat(context.Background(), "chat-1")
	assistant := stored[1]

	_, err := f.turns.Edit(context.Background(), "chat-1", assistant.ID, &types.TurnRequest{Content: "nope"})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidParams))
}

func TestTurnGeneratesTitleForNewChat(t *testing.T) {
	source := &turnSource{
		streams: [][]ai.Delta{contentStream("Answer.")},
		title:   "Quarterly Report Help",
	}
	f := newTurnFixture(t, source)
	f.seedChat("New chat")

	drain(t, mustRun(t, f, &types.TurnRequest{Content: "help me with the quarterly report"}))

	assert.Eventually(t, func() bool {
		return f.chats.title("chat-1") == "Quarterly Report Help"
	}, 3*time.Second, 10*time.Millisecond)
}

func mustRun(t *testing.T, f *turnFixture, req *types.TurnRequest) <-chan types.StreamEvent {
	t.Helper()
	events, err := f.turns.Run(context.Background(), "chat-1", req)
	require.NoError(t, err)
	return events
}
