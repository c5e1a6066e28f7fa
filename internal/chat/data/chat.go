package data

import (
	"context"
	"fmt"

	"github.com/leapstack-ai/sop-copilot-backend/internal/chat/models"
	"github.com/leapstack-ai/sop-copilot-backend/internal/chat/types"
	apperrors "github.com/leapstack-ai/sop-copilot-backend/internal/pkg/errors"

	"gorm.io/gorm"
)

// ChatRepo implements the chat repository using GORM
type ChatRepo struct {
	db *gorm.DB
}

// NewChatRepo creates a new chat repository
func NewChatRepo(db *gorm.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

// Create creates a new chat
func (r *ChatRepo) Create(ctx context.Context, chat *types.Chat) error {
	model := r.toModel(chat)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to create chat: %w", err)
	}
	return nil
}

// GetByID retrieves a chat by ID
func (r *ChatRepo) GetByID(ctx context.Context, id string) (*types.Chat, error) {
	var model models.Chat
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.New(apperrors.ErrChatNotFound, id)
		}
		return nil, fmt.Errorf("failed to get chat: %w", err)
	}

	return r.toDomain(&model), nil
}

// List lists all chats, most recently updated first
func (r *ChatRepo) List(ctx context.Context) ([]*types.Chat, error) {
	var modelList []models.Chat
	if err := r.db.WithContext(ctx).
		Order("updated_at DESC").
		Find(&modelList).Error; err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}

	chats := make([]*types.Chat, 0, len(modelList))
	for i := range modelList {
		chats = append(chats, r.toDomain(&modelList[i]))
	}

	return chats, nil
}

// UpdateTitle updates a chat's title
func (r *ChatRepo) UpdateTitle(ctx context.Context, id, title string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Chat{}).
		Where("id = ?", id).
		Update("title", title)
	if result.Error != nil {
		return fmt.Errorf("failed to update chat title: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.ErrChatNotFound, id)
	}
	return nil
}

func (r *ChatRepo) toModel(c *types.Chat) *models.Chat {
	return &models.Chat{
		ID:        c.ID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func (r *ChatRepo) toDomain(m *models.Chat) *types.Chat {
	return &types.Chat{
		ID:        m.ID,
		Title:     m.Title,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
