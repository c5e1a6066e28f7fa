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

// MessageRepo is the message storage interface
type MessageRepo interface {
	Create(ctx context.Context, message *types.Message) error
	GetByID(ctx context.Context, id string) (*types.Message, error)
	ListByChat(ctx context.Context, chatID string) ([]*types.Message, error)
	UpdateMetadata(ctx context.Context, id string, metadata map[string]string) error
}

// MessageUseCase exposes the message tree of a chat: flat listing, thread
// resolution, and branch navigation. Messages themselves are append-only;
// editing creates siblings instead of mutating.
type MessageUseCase struct {
	messages MessageRepo
	chats    ChatRepo
	logger   *zap.Logger
}

// NewMessageUseCase creates a new message use case
func NewMessageUseCase(messages MessageRepo, chats ChatRepo, logger *zap.Logger) *MessageUseCase {
	return &MessageUseCase{messages: messages, chats: chats, logger: logger}
}

// NewUserMessage builds an unpersisted user message. Content must be
// non-blank; attachments alone do not make a valid message.
func NewUserMessage(chatID, content string, parentID *string, attachments []types.FileAttachment) (*types.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperrors.New(apperrors.ErrMessageEmptyContent)
	}

	return &types.Message{
		ID:              uuid.New().String(),
		ChatID:          chatID,
		Role:            types.RoleUser,
		Content:         &content,
		FileAttachments: attachments,
		ParentMessageID: parentID,
		CreatedAt:       time.Now(),
	}, nil
}

// NewAssistantMessage builds an unpersisted assistant text message
func NewAssistantMessage(chatID, content string, parentID *string) *types.Message {
	return &types.Message{
		ID:              uuid.New().String(),
		ChatID:          chatID,
		Role:            types.RoleAssistant,
		Content:         &content,
		ParentMessageID: parentID,
		CreatedAt:       time.Now(),
	}
}

// Create persists a message after validating its role and parent. The
// parent, when set, must exist and belong to the same chat.
func (uc *MessageUseCase) Create(ctx context.Context, message *types.Message) error {
	switch message.Role {
	case types.RoleSystem, types.RoleUser, types.RoleAssistant, types.RoleTool:
	default:
		return apperrors.New(apperrors.ErrMessageInvalidRole, message.Role)
	}

	if message.ParentMessageID != nil {
		parent, err := uc.messages.GetByID(ctx, *message.ParentMessageID)
		if err != nil {
			return err
		}
		if parent.ChatID != message.ChatID {
			return apperrors.New(apperrors.ErrInvalidParams, "parent message belongs to a different chat")
		}
	}

	return uc.messages.Create(ctx, message)
}

// List returns all messages of a chat across every branch, in insertion
// order. The client reconstructs tree structure from parent pointers.
func (uc *MessageUseCase) List(ctx context.Context, chatID string) ([]*types.Message, error) {
	if _, err := uc.chats.GetByID(ctx, chatID); err != nil {
		return nil, err
	}
	return uc.messages.ListByChat(ctx, chatID)
}

// Thread returns the root-to-leaf chain ending at leafID. An empty leafID
// resolves to the latest leaf of the chat; an empty chat yields an empty
// thread.
func (uc *MessageUseCase) Thread(ctx context.Context, chatID, leafID string) ([]*types.Message, error) {
	all, err := uc.List(ctx, chatID)
	if err != nil {
		return nil, err
	}

	if leafID == "" {
		leafID = LatestLeaf(all)
		if leafID == "" {
			return nil, nil
		}
	}

	thread := Thread(leafID, all)
	if len(thread) == 0 {
		return nil, apperrors.New(apperrors.ErrMessageNotFound, leafID)
	}

	return thread, nil
}

// Branch returns a message's position among its siblings, or nil when the
// message has no siblings.
func (uc *MessageUseCase) Branch(ctx context.Context, chatID, messageID string) (*types.BranchInfo, error) {
	all, err := uc.List(ctx, chatID)
	if err != nil {
		return nil, err
	}

	found := false
	for _, m := range all {
		if m.ID == messageID {
			found = true
			break
		}
	}
	if !found {
		return nil, apperrors.New(apperrors.ErrMessageNotFound, messageID)
	}

	return BranchInfo(messageID, all), nil
}

// Leaf returns the id of the deepest latest descendant of the given
// message. Used to land on a branch's tip after switching branches.
func (uc *MessageUseCase) Leaf(ctx context.Context, chatID, messageID string) (string, error) {
	all, err := uc.List(ctx, chatID)
	if err != nil {
		return "", err
	}

	leaf := BranchLeaf(messageID, all)
	if leaf == "" {
		return "", apperrors.New(apperrors.ErrMessageNotFound, messageID)
	}

	return leaf, nil
}
