package service

import (
	"github.com/leapstack-ai/sop-copilot-backend/internal/document/biz"
	"github.com/leapstack-ai/sop-copilot-backend/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DocumentService handles HTTP requests for per-chat working documents.
// Documents are written by the model through the write_document tool; the
// HTTP surface is read-only.
type DocumentService struct {
	documents *biz.DocumentUseCase
	logger    *zap.Logger
}

// NewDocumentService creates a new document service
func NewDocumentService(documents *biz.DocumentUseCase, logger *zap.Logger) *DocumentService {
	return &DocumentService{documents: documents, logger: logger}
}

// RegisterRoutes registers document routes on the given group
func (s *DocumentService) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/chats/:id/documents", s.ListDocuments)
	r.GET("/documents/:id", s.GetDocument)
}

// ListDocuments lists a chat's documents, most recently updated first
// @Summary List documents
// @Tags document
// @Produce json
// @Router /api/v1/chats/{id}/documents [get]
func (s *DocumentService) ListDocuments(c *gin.Context) {
	documents, err := s.documents.ListByChat(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, documents)
}

// GetDocument retrieves one document with its content
// @Summary Get document
// @Tags document
// @Produce json
// @Router /api/v1/documents/{id} [get]
func (s *DocumentService) GetDocument(c *gin.Context) {
	document, err := s.documents.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, document)
}
