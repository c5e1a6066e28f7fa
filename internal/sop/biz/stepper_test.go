package biz

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/leapstack-ai/sop-copilot-backend/internal/ai"
	"github.com/leapstack-ai/sop-copilot-backend/internal/sop/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeDecisionSource returns a canned tool-call result and records what it
// was asked.
type fakeDecisionSource struct {
	arguments string
	err       error

	calls    int
	lastTool ai.Tool
	lastMsgs []ai.Message
}

func (f *fakeDecisionSource) Stream(context.Context, *ai.StreamRequest) (<-chan ai.Delta, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeDecisionSource) Complete(context.Context, string, []ai.Message) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeDecisionSource) CompleteWithTool(_ context.Context, _ string, messages []ai.Message, tool ai.Tool) (string, error) {
	f.calls++
	f.lastTool = tool
	f.lastMsgs = messages
	return f.arguments, f.err
}

func deciderSOP() *types.SOP {
	return &types.SOP{
		ID:          "sop-review",
		DisplayName: "Review Flow",
		Steps: []types.Step{
			{ID: "draft", StepNumber: 1, Name: "Draft", ExpectedOutput: "A draft document.", NextStep: types.NextStep{IDs: []string{"review", "publish"}}},
			{ID: "review", StepNumber: 2, Name: "Review", NextStep: types.NextStep{IDs: []string{"publish"}}},
			{ID: "publish", StepNumber: 3, Name: "Publish"},
		},
	}
}

func deciderRun(stepID string) *types.Run {
	return &types.Run{ID: "run-1", ChatID: "chat-1", SOPID: "sop-review", CurrentStepID: stepID}
}

func TestDecideAdvances(t *testing.T) {
	source := &fakeDecisionSource{arguments: `{"step_id":"review"}`}
	d := NewStepDecider(source, "test-model", zap.NewNop())

	got := d.Decide(context.Background(), deciderSOP(), deciderRun("draft"), nil)
	assert.Equal(t, "review", got)
	assert.Equal(t, 1, source.calls)
}

func TestDecideStay(t *testing.T) {
	source := &fakeDecisionSource{arguments: fmt.Sprintf(`{"step_id":%q}`, StayOnCurrentStep)}
	d := NewStepDecider(source, "test-model", zap.NewNop())

	got := d.Decide(context.Background(), deciderSOP(), deciderRun("draft"), nil)
	assert.Equal(t, "draft", got)
}

func TestDecideEnumCoversLegalSet(t *testing.T) {
	source := &fakeDecisionSource{arguments: `{"step_id":"review"}`}
	d := NewStepDecider(source, "test-model", zap.NewNop())

	d.Decide(context.Background(), deciderSOP(), deciderRun("draft"), nil)

	require.Len(t, source.lastTool.Parameters.Properties, 1)
	enum := source.lastTool.Parameters.Properties["step_id"].Enum
	assert.Equal(t, []string{StayOnCurrentStep, "review", "publish"}, enum)
}

func TestDecideTerminalStepSkipsModelCall(t *testing.T) {
	source := &fakeDecisionSource{}
	d := NewStepDecider(source, "test-model", zap.NewNop())

	got := d.Decide(context.Background(), deciderSOP(), deciderRun("publish"), nil)
	assert.Equal(t, "publish", got)
	assert.Zero(t, source.calls)
}

func TestDecideFailSafe(t *testing.T) {
	tests := []struct {
		name   string
		source *fakeDecisionSource
	}{
		{"call error", &fakeDecisionSource{err: errors.New("upstream down")}},
		{"out of set decision", &fakeDecisionSource{arguments: `{"step_id":"publish-now"}`}},
		{"not a legal edge", &fakeDecisionSource{arguments: `{"step_id":"draft"}`}},
		{"empty arguments", &fakeDecisionSource{arguments: `{}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewStepDecider(tt.source, "test-model", zap.NewNop())
			got := d.Decide(context.Background(), deciderSOP(), deciderRun("draft"), nil)
			assert.Equal(t, "draft", got)
		})
	}
}

func TestDecideUnknownCurrentStepStays(t *testing.T) {
	source := &fakeDecisionSource{arguments: `{"step_id":"review"}`}
	d := NewStepDecider(source, "test-model", zap.NewNop())

	got := d.Decide(context.Background(), deciderSOP(), deciderRun("ghost"), nil)
	assert.Equal(t, "ghost", got)
	assert.Zero(t, source.calls)
}

func TestDecideFiltersDanglingEdgesAndContext(t *testing.T) {
	sop := deciderSOP()
	sop.Steps[0].NextStep = types.NextStep{IDs: []string{"review", "missing"}}

	source := &fakeDecisionSource{arguments: `{"step_id":"review"}`}
	d := NewStepDecider(source, "test-model", zap.NewNop())

	recent := []ai.Message{
		{Role: ai.RoleUser, Content: "here is the draft"},
		{Role: ai.RoleAssistant, ToolCalls: []ai.ToolCall{{ID: "c1", Name: "write_document"}}},
		{Role: ai.RoleTool, Content: "Document saved."},
		{Role: ai.RoleAssistant, Content: "Saved it."},
	}

	got := d.Decide(context.Background(), sop, deciderRun("draft"), recent)
	assert.Equal(t, "review", got)

	enum := source.lastTool.Parameters.Properties["step_id"].Enum
	assert.NotContains(t, enum, "missing")

	// Tool plumbing is filtered out of the decision context.
	require.Len(t, source.lastMsgs, 3) // system + user + final assistant
	assert.Equal(t, ai.RoleSystem, source.lastMsgs[0].Role)
	assert.Equal(t, "here is the draft", source.lastMsgs[1].Content)
	assert.Equal(t, "Saved it.", source.lastMsgs[2].Content)
}
