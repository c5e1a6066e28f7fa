package data

import (
	"context"
	"fmt"

	"github.com/leapstack-ai/sop-copilot-backend/internal/chat/models"
	"github.com/leapstack-ai/sop-copilot-backend/internal/chat/types"
	apperrors "github.com/leapstack-ai/sop-copilot-backend/internal/pkg/errors"

	"gorm.io/gorm"
)

// MessageRepo implements the message repository using GORM
type MessageRepo struct {
	db *gorm.DB
}

// NewMessageRepo creates a new message repository
func NewMessageRepo(db *gorm.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Create persists a new message. The Seq column is assigned by the store
// and read back into the domain object.
func (r *MessageRepo) Create(ctx context.Context, message *types.Message) error {
	model := r.toModel(message)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}

	message.Seq = model.Seq
	return nil
}

// GetByID retrieves a message by ID
func (r *MessageRepo) GetByID(ctx context.Context, id string) (*types.Message, error) {
	var model models.Message
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.New(apperrors.ErrMessageNotFound, id)
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	return r.toDomain(&model), nil
}

// ListByChat lists all messages of a chat in insertion order
func (r *MessageRepo) ListByChat(ctx context.Context, chatID string) ([]*types.Message, error) {
	var modelList []models.Message
	if err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("seq ASC").
		Find(&modelList).Error; err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	messages := make([]*types.Message, 0, len(modelList))
	for i := range modelList {
		messages = append(messages, r.toDomain(&modelList[i]))
	}

	return messages, nil
}

// UpdateMetadata merges the given entries into a message's metadata.
// Never touches content.
func (r *MessageRepo) UpdateMetadata(ctx context.Context, id string, metadata map[string]string) error {
	var model models.Message
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return apperrors.New(apperrors.ErrMessageNotFound, id)
		}
		return fmt.Errorf("failed to get message: %w", err)
	}

	if model.Metadata == nil {
		model.Metadata = models.Metadata{}
	}
	for k, v := range metadata {
		model.Metadata[k] = v
	}

	if err := r.db.WithContext(ctx).Model(&model).Update("metadata", model.Metadata).Error; err != nil {
		return fmt.Errorf("failed to update message metadata: %w", err)
	}

	return nil
}

func (r *MessageRepo) toModel(m *types.Message) *models.Message {
	return &models.Message{
		ID:              m.ID,
		ChatID:          m.ChatID,
		Role:            m.Role,
		Content:         m.Content,
		ToolCalls:       models.ToolCalls(m.ToolCalls),
		ToolCallID:      m.ToolCallID,
		ToolName:        m.ToolName,
		Metadata:        models.Metadata(m.Metadata),
		FileAttachments: models.FileAttachments(m.FileAttachments),
		ParentMessageID: m.ParentMessageID,
		TokenCount:      m.TokenCount,
		Seq:             m.Seq,
		CreatedAt:       m.CreatedAt,
	}
}

func (r *MessageRepo) toDomain(m *models.Message) *types.Message {
	return &types.Message{
		ID:              m.ID,
		ChatID:          m.ChatID,
		Role:            m.Role,
		Content:         m.Content,
		ToolCalls:       []types.ToolCall(m.ToolCalls),
		ToolCallID:      m.ToolCallID,
		ToolName:        m.ToolName,
		Metadata:        map[string]string(m.Metadata),
		FileAttachments: []types.FileAttachment(m.FileAttachments),
		ParentMessageID: m.ParentMessageID,
		TokenCount:      m.TokenCount,
		Seq:             m.Seq,
		CreatedAt:       m.CreatedAt,
	}
}
