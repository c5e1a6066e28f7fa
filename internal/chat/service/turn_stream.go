package service

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/leapstack-ai/sop-copilot-backend/internal/chat/types"
	"github.com/leapstack-ai/sop-copilot-backend/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StreamTurn runs one conversation turn and streams its events over SSE.
// A request with sop_id set and empty content starts an SOP run instead of
// sending a user message.
// @Summary Run a turn
// @Tags chat
// @Accept json
// @Produce text/event-stream
// @Router /api/v1/chats/{id}/turns [post]
func (s *ChatService) StreamTurn(c *gin.Context) {
	var req types.TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	events, err := s.turns.Run(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	s.streamEvents(c, events)
}

// EditMessage reruns a user message with new content as a sibling branch
// and streams the resulting turn over SSE
// @Summary Edit a message
// @Tags chat
// @Accept json
// @Produce text/event-stream
// @Router /api/v1/chats/{id}/messages/{messageID}/edit [post]
func (s *ChatService) EditMessage(c *gin.Context) {
	var req types.TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	events, err := s.turns.Edit(c.Request.Context(), c.Param("id"), c.Param("messageID"), &req)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	s.streamEvents(c, events)
}

// streamEvents forwards turn events as SSE records until the channel is
// closed or the client disconnects. The event channel must be drained
// either way so the turn goroutine can finish persisting.
func (s *ChatService) streamEvents(c *gin.Context, events <-chan types.StreamEvent) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		s.logger.Error("response writer does not support streaming")
		return
	}

	disconnected := false

	for event := range events {
		if disconnected {
			continue
		}
		if c.Request.Context().Err() != nil {
			disconnected = true
			s.logger.Info("client disconnected mid-turn",
				zap.String("chat_id", c.Param("id")))
			continue
		}

		data, err := json.Marshal(event)
		if err != nil {
			s.logger.Error("failed to marshal stream event", zap.Error(err))
			continue
		}

		fmt.Fprintf(c.Writer, "event: %s\n", event.Type)
		fmt.Fprintf(c.Writer, "data: %s\n\n", string(data))
		flusher.Flush()
	}
}
