package service

import (
	"github.com/leapstack-ai/sop-copilot-backend/internal/chat/biz"
	"github.com/leapstack-ai/sop-copilot-backend/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ChatService handles HTTP requests for chats and their message trees
type ChatService struct {
	chats    *biz.ChatUseCase
	messages *biz.MessageUseCase
	turns    *biz.TurnUseCase
	logger   *zap.Logger
}

// NewChatService creates a new chat service
func NewChatService(chats *biz.ChatUseCase, messages *biz.MessageUseCase, turns *biz.TurnUseCase, logger *zap.Logger) *ChatService {
	return &ChatService{
		chats:    chats,
		messages: messages,
		turns:    turns,
		logger:   logger,
	}
}

// RegisterRoutes registers chat routes on the given group
func (s *ChatService) RegisterRoutes(r *gin.RouterGroup) {
	chats := r.Group("/chats")
	{
		chats.POST("", s.CreateChat)
		chats.GET("", s.ListChats)
		chats.GET("/:id", s.GetChat)
		chats.PUT("/:id/title", s.RenameChat)

		chats.GET("/:id/messages", s.ListMessages)
		chats.GET("/:id/thread", s.GetThread)
		chats.GET("/:id/messages/:messageID/branch", s.GetBranchInfo)
		chats.GET("/:id/messages/:messageID/leaf", s.GetBranchLeaf)

		chats.POST("/:id/turns", s.StreamTurn)
		chats.POST("/:id/messages/:messageID/edit", s.EditMessage)
	}
}

type createChatRequest struct {
	Title string `json:"title"`
}

// CreateChat creates a new chat
// @Summary Create chat
// @Tags chat
// @Accept json
// @Produce json
// @Router /api/v1/chats [post]
func (s *ChatService) CreateChat(c *gin.Context) {
	var req createChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	chat, err := s.chats.Create(c.Request.Context(), req.Title)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Created(c, chat)
}

// ListChats lists all chats, most recently updated first
// @Summary List chats
// @Tags chat
// @Produce json
// @Router /api/v1/chats [get]
func (s *ChatService) ListChats(c *gin.Context) {
	chats, err := s.chats.List(c.Request.Context())
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, chats)
}

// GetChat retrieves a chat by id
// @Summary Get chat
// @Tags chat
// @Produce json
// @Router /api/v1/chats/{id} [get]
func (s *ChatService) GetChat(c *gin.Context) {
	chat, err := s.chats.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, chat)
}

type renameChatRequest struct {
	Title string `json:"title" binding:"required"`
}

// RenameChat updates a chat's title
// @Summary Rename chat
// @Tags chat
// @Accept json
// @Produce json
// @Router /api/v1/chats/{id}/title [put]
func (s *ChatService) RenameChat(c *gin.Context) {
	var req renameChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := s.chats.Rename(c.Request.Context(), c.Param("id"), req.Title); err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, nil)
}

// ListMessages returns every message of a chat across all branches
// @Summary List messages
// @Tags chat
// @Produce json
// @Router /api/v1/chats/{id}/messages [get]
func (s *ChatService) ListMessages(c *gin.Context) {
	messages, err := s.messages.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, messages)
}

// GetThread returns the root-to-leaf chain for a leaf message. With no
// leaf_id query parameter the latest leaf of the chat is used.
// @Summary Get thread
// @Tags chat
// @Produce json
// @Router /api/v1/chats/{id}/thread [get]
func (s *ChatService) GetThread(c *gin.Context) {
	thread, err := s.messages.Thread(c.Request.Context(), c.Param("id"), c.Query("leaf_id"))
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, thread)
}

// GetBranchInfo returns a message's position among its siblings, or null
// when the message has no siblings
// @Summary Get branch info
// @Tags chat
// @Produce json
// @Router /api/v1/chats/{id}/messages/{messageID}/branch [get]
func (s *ChatService) GetBranchInfo(c *gin.Context) {
	info, err := s.messages.Branch(c.Request.Context(), c.Param("id"), c.Param("messageID"))
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, info)
}

// GetBranchLeaf returns the id of the deepest latest descendant of a
// message, used to land on a branch's tip after switching branches
// @Summary Get branch leaf
// @Tags chat
// @Produce json
// @Router /api/v1/chats/{id}/messages/{messageID}/leaf [get]
func (s *ChatService) GetBranchLeaf(c *gin.Context) {
	leaf, err := s.messages.Leaf(c.Request.Context(), c.Param("id"), c.Param("messageID"))
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, gin.H{"leaf_id": leaf})
}
