package biz

import (
	"context"
	"fmt"
	"time"

	"github.com/leapstack-ai/sop-copilot-backend/internal/document/types"

	"github.com/google/uuid"
)

// DocumentRepo defines the repository interface for document operations
type DocumentRepo interface {
	Create(ctx context.Context, doc *types.Document) error
	Update(ctx context.Context, doc *types.Document) error
	GetByID(ctx context.Context, id string) (*types.Document, error)
	GetByChatAndName(ctx context.Context, chatID, name string) (*types.Document, error)
	ListByChat(ctx context.Context, chatID string) ([]*types.Document, error)
}

// DocumentUseCase contains business logic for document operations
type DocumentUseCase struct {
	repo DocumentRepo
}

// NewDocumentUseCase creates a new document use case
func NewDocumentUseCase(repo DocumentRepo) *DocumentUseCase {
	return &DocumentUseCase{repo: repo}
}

// Write creates a document, or overwrites the existing document with the
// same name in the chat. Returns the persisted document.
func (uc *DocumentUseCase) Write(ctx context.Context, chatID, stepID, name, content string) (*types.Document, error) {
	if name == "" {
		return nil, fmt.Errorf("document name cannot be empty")
	}

	existing, err := uc.repo.GetByChatAndName(ctx, chatID, name)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	if existing != nil {
		existing.StepID = stepID
		existing.Content = content
		existing.UpdatedAt = now
		if err := uc.repo.Update(ctx, existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	doc := &types.Document{
		ID:        uuid.New().String(),
		ChatID:    chatID,
		StepID:    stepID,
		Name:      name,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := uc.repo.Create(ctx, doc); err != nil {
		return nil, err
	}

	return doc, nil
}

// Get retrieves a document by ID
func (uc *DocumentUseCase) Get(ctx context.Context, id string) (*types.Document, error) {
	return uc.repo.GetByID(ctx, id)
}

// ListByChat lists all documents of a chat
func (uc *DocumentUseCase) ListByChat(ctx context.Context, chatID string) ([]*types.Document, error) {
	return uc.repo.ListByChat(ctx, chatID)
}
