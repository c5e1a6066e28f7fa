package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/leapstack-ai/sop-copilot-backend/internal/ai"
	"github.com/leapstack-ai/sop-copilot-backend/internal/chat/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// scriptedSource plays back one delta script per Stream call and records
// the requests it received.
type scriptedSource struct {
	scripts  [][]ai.Delta
	requests []*ai.StreamRequest
	err      error
}

func (s *scriptedSource) Stream(_ context.Context, req *ai.StreamRequest) (<-chan ai.Delta, error) {
	if s.err != nil {
		return nil, s.err
	}

	s.requests = append(s.requests, req)

	if len(s.scripts) == 0 {
		return nil, errors.New("no scripted stream left")
	}
	script := s.scripts[0]
	s.scripts = s.scripts[1:]

	ch := make(chan ai.Delta, len(script))
	for _, d := range script {
		ch <- d
	}
	close(ch)
	return ch, nil
}

func (s *scriptedSource) Complete(context.Context, string, []ai.Message) (string, error) {
	return "", errors.New("not implemented")
}

func (s *scriptedSource) CompleteWithTool(context.Context, string, []ai.Message, ai.Tool) (string, error) {
	return "", errors.New("not implemented")
}

func collect(t *testing.T, events <-chan types.StreamEvent) []types.StreamEvent {
	t.Helper()
	var out []types.StreamEvent
	for e := range events {
		out = append(out, e)
	}
	return out
}

func eventTypes(events []types.StreamEvent) []types.EventType {
	out := make([]types.EventType, 0, len(events))
	for _, e := range events {
		out = append(out, e.Type)
	}
	return out
}

func newTestEngine(t *testing.T, source ai.CompletionSource) *Engine {
	t.Helper()
	dispatcher, _, _ := newTestDispatcher(t)
	return NewEngine(source, dispatcher, zap.NewNop())
}

func TestEngineContentOnlyTurn(t *testing.T) {
	source := &scriptedSource{scripts: [][]ai.Delta{{
		{Content: "Hel"},
		{Content: "lo."},
		{FinishReason: ai.FinishReasonStop},
	}}}

	eng := newTestEngine(t, source)
	events := collect(t, eng.Run(context.Background(), &RunRequest{
		Model:       "test-model",
		Messages:    []ai.Message{{Role: ai.RoleUser, Content: "hi"}},
		ToolContext: &ToolContext{ChatID: "chat-1"},
	}))

	require.Equal(t, []types.EventType{
		types.EventContent,
		types.EventContent,
		types.EventDone,
	}, eventTypes(events))

	assert.Equal(t, "Hel", events[0].Content)
	assert.Equal(t, "Hello.", events[2].Content)
	assert.Len(t, source.requests, 1)
}

func TestEngineToolRound(t *testing.T) {
	args := `{"stepId":"step-1","documentName":"Outline","content":"<h1>Outline</h1><p>Intro</p>"}`

	source := &scriptedSource{scripts: [][]ai.Delta{
		{
			{Content: "Writing the outline now."},
			{ToolCalls: []ai.ToolCallDelta{{Index: 0, ID: "call-1", Name: ToolWriteDocument}}},
			{ToolCalls: []ai.ToolCallDelta{{Index: 0, Arguments: args[:55]}}},
			{ToolCalls: []ai.ToolCallDelta{{Index: 0, Arguments: args[55:]}}},
			{FinishReason: ai.FinishReasonToolCalls},
		},
		{
			{Content: " The outline is ready."},
			{FinishReason: ai.FinishReasonStop},
		},
	}}

	eng := newTestEngine(t, source)
	events := collect(t, eng.Run(context.Background(), &RunRequest{
		Model:       "test-model",
		Messages:    []ai.Message{{Role: ai.RoleUser, Content: "write an outline"}},
		Tools:       eng.dispatcher.Tools(),
		ToolContext: &ToolContext{ChatID: "chat-1"},
	}))

	kinds := eventTypes(events)
	require.Equal(t, types.EventContent, kinds[0])

	// Exactly one announcement, before the tool result.
	var announcements, toolResults int
	announcementIdx, toolIdx := -1, -1
	for i, e := range events {
		switch e.Type {
		case types.EventToolCalls:
			announcements++
			announcementIdx = i
		case types.EventTool:
			toolResults++
			toolIdx = i
		}
	}
	assert.Equal(t, 1, announcements)
	assert.Equal(t, 1, toolResults)
	assert.Less(t, announcementIdx, toolIdx)

	tool := events[toolIdx].Tool
	require.NotNil(t, tool)
	assert.Equal(t, "call-1", tool.Call.ID)
	assert.Equal(t, args, tool.Call.Arguments)
	assert.Contains(t, tool.Result, `Document "Outline" has been saved`)
	assert.NotEmpty(t, tool.Metadata["document_id"])

	// Streamed previews carry the document name and grow monotonically.
	var previews []*types.DocumentStream
	for _, e := range events {
		if e.Type == types.EventDocumentStream {
			previews = append(previews, e.Document)
		}
	}
	require.NotEmpty(t, previews)
	last := previews[len(previews)-1]
	assert.Equal(t, "Outline", last.Name)
	assert.Equal(t, "step-1", last.StepID)
	assert.Equal(t, "<h1>Outline</h1><p>Intro</p>", last.HTML)
	for i := 1; i < len(previews); i++ {
		assert.Greater(t, len(previews[i].HTML), len(previews[i-1].HTML))
	}

	// Total content spans both passes.
	done := events[len(events)-1]
	require.Equal(t, types.EventDone, done.Type)
	assert.Equal(t, "Writing the outline now. The outline is ready.", done.Content)

	// The final pass got the tool message pair and no tools.
	require.Len(t, source.requests, 2)
	final := source.requests[1]
	assert.Nil(t, final.Tools)
	require.Len(t, final.Messages, 3)
	assert.Equal(t, ai.RoleAssistant, final.Messages[1].Role)
	require.Len(t, final.Messages[1].ToolCalls, 1)
	assert.Equal(t, "call-1", final.Messages[1].ToolCalls[0].ID)
	assert.Equal(t, ai.RoleTool, final.Messages[2].Role)
	assert.Equal(t, "call-1", final.Messages[2].ToolCallID)
}

func TestEngineStreamError(t *testing.T) {
	source := &scriptedSource{scripts: [][]ai.Delta{{
		{Content: "partial"},
		{Err: errors.New("upstream reset")},
	}}}

	eng := newTestEngine(t, source)
	events := collect(t, eng.Run(context.Background(), &RunRequest{
		Model:       "test-model",
		ToolContext: &ToolContext{ChatID: "chat-1"},
	}))

	require.Equal(t, []types.EventType{types.EventContent, types.EventError}, eventTypes(events))
	assert.Contains(t, events[1].Error, "upstream reset")
}

func TestEngineStreamSetupError(t *testing.T) {
	source := &scriptedSource{err: errors.New("bad api key")}

	eng := newTestEngine(t, source)
	events := collect(t, eng.Run(context.Background(), &RunRequest{
		Model:       "test-model",
		ToolContext: &ToolContext{ChatID: "chat-1"},
	}))

	require.Len(t, events, 1)
	assert.Equal(t, types.EventError, events[0].Type)
}

func TestEngineStreamEndsWithoutFinish(t *testing.T) {
	source := &scriptedSource{scripts: [][]ai.Delta{{
		{Content: "cut off"},
	}}}

	eng := newTestEngine(t, source)
	events := collect(t, eng.Run(context.Background(), &RunRequest{
		Model:       "test-model",
		ToolContext: &ToolContext{ChatID: "chat-1"},
	}))

	last := events[len(events)-1]
	assert.Equal(t, types.EventError, last.Type)
	assert.Contains(t, last.Error, "without a finish reason")
}
