package biz

import (
	"context"
	"strings"
	"time"

	"github.com/leapstack-ai/sop-copilot-backend/internal/chat/types"
	apperrors "github.com/leapstack-ai/sop-copilot-backend/internal/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ChatRepo is the chat storage interface
type ChatRepo interface {
	Create(ctx context.Context, chat *types.Chat) error
	GetByID(ctx context.Context, id string) (*types.Chat, error)
	List(ctx context.Context) ([]*types.Chat, error)
	UpdateTitle(ctx context.Context, id, title string) error
}

// ChatUseCase handles chat lifecycle business logic
type ChatUseCase struct {
	repo   ChatRepo
	logger *zap.Logger
}

// NewChatUseCase creates a new chat use case
func NewChatUseCase(repo ChatRepo, logger *zap.Logger) *ChatUseCase {
	return &ChatUseCase{repo: repo, logger: logger}
}

// Create creates a chat. A blank title gets a placeholder until the first
// turn generates one.
func (uc *ChatUseCase) Create(ctx context.Context, title string) (*types.Chat, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "New chat"
	}

	now := time.Now()
	chat := &types.Chat{
		ID:        uuid.New().String(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := uc.repo.Create(ctx, chat); err != nil {
		return nil, err
	}

	uc.logger.Info("chat created", zap.String("chat_id", chat.ID))
	return chat, nil
}

// Get retrieves a chat by ID
func (uc *ChatUseCase) Get(ctx context.Context, id string) (*types.Chat, error) {
	return uc.repo.GetByID(ctx, id)
}

// List lists all chats, most recently updated first
func (uc *ChatUseCase) List(ctx context.Context) ([]*types.Chat, error) {
	return uc.repo.List(ctx)
}

// Rename updates a chat's title
func (uc *ChatUseCase) Rename(ctx context.Context, id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return apperrors.New(apperrors.ErrInvalidParams, "title must not be empty")
	}
	return uc.repo.UpdateTitle(ctx, id, title)
}
