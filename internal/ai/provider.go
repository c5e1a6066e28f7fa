package ai

import "context"

// CompletionSource abstracts the chat completion backend. Stream returns a
// channel of deltas terminated by a delta carrying a finish reason or an
// error; the channel is closed afterwards.
type CompletionSource interface {
	Stream(ctx context.Context, req *StreamRequest) (<-chan Delta, error)

	// Complete performs a plain, non-streaming completion and returns the
	// assistant text. Used for chat title generation.
	Complete(ctx context.Context, model string, messages []Message) (string, error)

	// CompleteWithTool forces the model to call the given tool and returns
	// the call's raw JSON arguments. Used for the constrained step decision.
	CompleteWithTool(ctx context.Context, model string, messages []Message, tool Tool) (string, error)
}
