package ai

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sashabaranov/go-openai"
)

// OpenAISource implements CompletionSource against any OpenAI-compatible API
type OpenAISource struct {
	client *openai.Client
}

// NewOpenAISource creates a completion source. baseURL may be empty for the
// default OpenAI endpoint, or point at a compatible gateway.
func NewOpenAISource(apiKey, baseURL string) (*OpenAISource, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("ai api key is required")
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &OpenAISource{
		client: openai.NewClientWithConfig(cfg),
	}, nil
}

// Stream starts a streaming completion and forwards deltas on a channel
func (s *OpenAISource) Stream(ctx context.Context, req *StreamRequest) (<-chan Delta, error) {
	stream, err := s.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: toOpenAIMessages(req.Messages),
		Tools:    toOpenAITools(req.Tools),
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start completion stream: %w", err)
	}

	deltaChan := make(chan Delta, 100)

	go s.readStream(stream, deltaChan)

	return deltaChan, nil
}

// readStream pumps the upstream SSE stream into the delta channel
func (s *OpenAISource) readStream(stream *openai.ChatCompletionStream, deltaChan chan<- Delta) {
	defer close(deltaChan)
	defer stream.Close()

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			deltaChan <- Delta{Err: fmt.Errorf("stream read error: %w", err)}
			return
		}

		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]

		delta := Delta{Content: choice.Delta.Content}

		for _, tc := range choice.Delta.ToolCalls {
			index := 0
			if tc.Index != nil {
				index = *tc.Index
			}
			delta.ToolCalls = append(delta.ToolCalls, ToolCallDelta{
				Index:     index,
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}

		if choice.FinishReason != "" {
			delta.FinishReason = string(choice.FinishReason)
			deltaChan <- delta
			return
		}

		if delta.Content != "" || len(delta.ToolCalls) > 0 {
			deltaChan <- delta
		}
	}
}

// Complete performs a non-streaming completion
func (s *OpenAISource) Complete(ctx context.Context, model string, messages []Message) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    model,
		Messages: toOpenAIMessages(messages),
	})
	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}

// CompleteWithTool forces a call of the given tool and returns its arguments
func (s *OpenAISource) CompleteWithTool(ctx context.Context, model string, messages []Message, tool Tool) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    model,
		Messages: toOpenAIMessages(messages),
		Tools:    toOpenAITools([]Tool{tool}),
		ToolChoice: openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: tool.Name},
		},
	})
	if err != nil {
		return "", fmt.Errorf("tool completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("tool completion returned no choices")
	}

	for _, tc := range resp.Choices[0].Message.ToolCalls {
		if tc.Function.Name == tool.Name {
			return tc.Function.Arguments, nil
		}
	}

	return "", fmt.Errorf("model did not call tool %s", tool.Name)
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(messages))

	for _, msg := range messages {
		om := openai.ChatCompletionMessage{
			Role:       msg.Role,
			Content:    msg.Content,
			ToolCallID: msg.ToolCallID,
		}

		if msg.Role == RoleTool && msg.ToolName != "" {
			om.Name = msg.ToolName
		}

		for _, tc := range msg.ToolCalls {
			om.ToolCalls = append(om.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}

		result = append(result, om)
	}

	return result
}

func toOpenAITools(tools []Tool) []openai.Tool {
	if len(tools) == 0 {
		return nil
	}

	result := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		result = append(result, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}

	return result
}
