package biz

import (
	"context"
	"fmt"
	"strings"

	"github.com/leapstack-ai/sop-copilot-backend/internal/ai"
	"github.com/leapstack-ai/sop-copilot-backend/internal/sop/types"

	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// StayOnCurrentStep is the sentinel decision value meaning no transition
const StayOnCurrentStep = "stay_on_current_step"

// maxDecisionContext bounds how much recent conversation is shown to the
// decision model
const maxDecisionContext = 6

// StepDecider decides, once per turn, whether an SOP run advances to one of
// the current step's legal next steps or stays put. The decision is made by
// a constrained secondary model call whose output domain is exactly
// {stay_on_current_step} ∪ legal next-step ids; anything else falls back to
// staying.
type StepDecider struct {
	source ai.CompletionSource
	model  string
	logger *zap.Logger
}

// NewStepDecider creates a step decider
func NewStepDecider(source ai.CompletionSource, model string, logger *zap.Logger) *StepDecider {
	return &StepDecider{
		source: source,
		model:  model,
		logger: logger,
	}
}

// Decide returns the id of the step that should be active for this turn.
// The result is always a member of the legal set; every failure mode keeps
// the run on its current step.
func (d *StepDecider) Decide(ctx context.Context, sop *types.SOP, run *types.Run, recent []ai.Message) string {
	current := sop.Step(run.CurrentStepID)
	if current == nil {
		d.logger.Warn("current step missing from sop, staying",
			zap.String("sop_id", sop.ID),
			zap.String("step_id", run.CurrentStepID))
		return run.CurrentStepID
	}

	// Only edges that point at steps actually defined in the SOP are legal.
	legal := make([]string, 0, len(current.NextStep.IDs))
	for _, id := range current.NextStep.IDs {
		if sop.Step(id) != nil {
			legal = append(legal, id)
		}
	}

	// Terminal step: nothing to advance to, no model call needed.
	if len(legal) == 0 {
		return run.CurrentStepID
	}

	options := append([]string{StayOnCurrentStep}, legal...)

	decision, err := d.source.CompleteWithTool(ctx, d.model, d.buildMessages(sop, current, legal, recent), ai.Tool{
		Name:        "select_next_step",
		Description: "Select which workflow step should be active next, based on whether the current step's expected output has been produced.",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"step_id": {
					Type:        jsonschema.String,
					Enum:        options,
					Description: "The id of the step to make active, or stay_on_current_step.",
				},
			},
			Required: []string{"step_id"},
		},
	})
	if err != nil {
		d.logger.Warn("step decision call failed, staying on current step",
			zap.String("run_id", run.ID),
			zap.Error(err))
		return run.CurrentStepID
	}

	chosen := gjson.Get(decision, "step_id").String()

	if chosen == StayOnCurrentStep {
		return run.CurrentStepID
	}

	// The enum constraint should make an out-of-set value impossible, but
	// upstream libraries can misbehave; never advance on an invalid value.
	for _, id := range legal {
		if chosen == id {
			return chosen
		}
	}

	d.logger.Warn("step decision outside legal set, staying on current step",
		zap.String("run_id", run.ID),
		zap.String("decision", chosen),
		zap.Strings("legal", legal))
	return run.CurrentStepID
}

func (d *StepDecider) buildMessages(sop *types.SOP, current *types.Step, legal []string, recent []ai.Message) []ai.Message {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You supervise the workflow %q.\n\n", sop.DisplayName)
	fmt.Fprintf(&sb, "Current step: %s (%s)\n", current.ID, current.Name)
	if current.Instructions != "" {
		fmt.Fprintf(&sb, "Instructions: %s\n", current.Instructions)
	}
	if current.ExpectedOutput != "" {
		fmt.Fprintf(&sb, "Expected output: %s\n", current.ExpectedOutput)
	}

	sb.WriteString("\nCandidate next steps:\n")
	for _, id := range legal {
		step := sop.Step(id)
		fmt.Fprintf(&sb, "- %s: %s\n", id, step.Name)
	}

	sb.WriteString("\nDecide whether the current step's expected output has been produced in the conversation below. If it has, select the appropriate next step; otherwise select stay_on_current_step.")

	messages := []ai.Message{{Role: ai.RoleSystem, Content: sb.String()}}

	start := 0
	if len(recent) > maxDecisionContext {
		start = len(recent) - maxDecisionContext
	}
	for _, msg := range recent[start:] {
		// Tool plumbing is not useful context for the decision.
		if msg.Role == ai.RoleTool || len(msg.ToolCalls) > 0 {
			continue
		}
		messages = append(messages, ai.Message{Role: msg.Role, Content: msg.Content})
	}

	return messages
}
