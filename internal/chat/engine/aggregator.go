package engine

import (
	"github.com/leapstack-ai/sop-copilot-backend/internal/ai"
	"github.com/leapstack-ai/sop-copilot-backend/internal/chat/types"
)

// toolCallAggregator reassembles whole tool calls from fragmented stream
// deltas. Fragments for one call share an index; id and name may arrive on
// any fragment, before or interleaved with argument text. A call is only
// complete once the stream reports a finish reason, never because its
// arguments happen to look like valid JSON.
type toolCallAggregator struct {
	calls []aggregatedCall
}

type aggregatedCall struct {
	id        string
	name      string
	arguments string
	seen      bool
}

// Apply folds one batch of tool-call deltas into the aggregate
func (a *toolCallAggregator) Apply(deltas []ai.ToolCallDelta) {
	for _, d := range deltas {
		if d.Index < 0 {
			continue
		}

		for len(a.calls) <= d.Index {
			a.calls = append(a.calls, aggregatedCall{})
		}

		call := &a.calls[d.Index]
		call.seen = true
		if d.ID != "" {
			call.id = d.ID
		}
		if d.Name != "" {
			call.name = d.Name
		}
		call.arguments += d.Arguments
	}
}

// Empty reports whether no call has produced any data yet
func (a *toolCallAggregator) Empty() bool {
	for i := range a.calls {
		if a.calls[i].seen {
			return false
		}
	}
	return true
}

// First returns the in-progress state of the first announced call
func (a *toolCallAggregator) First() (types.ToolCall, bool) {
	if len(a.calls) == 0 || !a.calls[0].seen {
		return types.ToolCall{}, false
	}
	c := a.calls[0]
	return types.ToolCall{ID: c.id, Name: c.name, Arguments: c.arguments}, true
}

// Calls returns the aggregated calls in announcement order
func (a *toolCallAggregator) Calls() []types.ToolCall {
	result := make([]types.ToolCall, 0, len(a.calls))
	for i := range a.calls {
		if !a.calls[i].seen {
			continue
		}
		c := a.calls[i]
		result = append(result, types.ToolCall{ID: c.id, Name: c.name, Arguments: c.arguments})
	}
	return result
}
