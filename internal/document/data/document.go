package data

import (
	"context"
	"fmt"

	"github.com/leapstack-ai/sop-copilot-backend/internal/document/models"
	"github.com/leapstack-ai/sop-copilot-backend/internal/document/types"
	apperrors "github.com/leapstack-ai/sop-copilot-backend/internal/pkg/errors"

	"gorm.io/gorm"
)

// DocumentRepo implements the document repository using GORM
type DocumentRepo struct {
	db *gorm.DB
}

// NewDocumentRepo creates a new document repository
func NewDocumentRepo(db *gorm.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// Create creates a new document
func (r *DocumentRepo) Create(ctx context.Context, doc *types.Document) error {
	model := r.toModel(doc)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// Update overwrites a document's content and step
func (r *DocumentRepo) Update(ctx context.Context, doc *types.Document) error {
	if err := r.db.WithContext(ctx).Save(r.toModel(doc)).Error; err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	return nil
}

// GetByID retrieves a document by ID
func (r *DocumentRepo) GetByID(ctx context.Context, id string) (*types.Document, error) {
	var model models.Document
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.New(apperrors.ErrDocumentNotFound, id)
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return r.toDomain(&model), nil
}

// GetByChatAndName returns the document with the given name in a chat, or
// nil when it does not exist
func (r *DocumentRepo) GetByChatAndName(ctx context.Context, chatID, name string) (*types.Document, error) {
	var model models.Document
	err := r.db.WithContext(ctx).
		Where("chat_id = ? AND name = ?", chatID, name).
		First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return r.toDomain(&model), nil
}

// ListByChat lists all documents of a chat, most recently updated first
func (r *DocumentRepo) ListByChat(ctx context.Context, chatID string) ([]*types.Document, error) {
	var modelList []models.Document
	if err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("updated_at DESC").
		Find(&modelList).Error; err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	docs := make([]*types.Document, 0, len(modelList))
	for i := range modelList {
		docs = append(docs, r.toDomain(&modelList[i]))
	}

	return docs, nil
}

func (r *DocumentRepo) toModel(d *types.Document) *models.Document {
	return &models.Document{
		ID:        d.ID,
		ChatID:    d.ChatID,
		StepID:    d.StepID,
		Name:      d.Name,
		Content:   d.Content,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func (r *DocumentRepo) toDomain(m *models.Document) *types.Document {
	return &types.Document{
		ID:        m.ID,
		ChatID:    m.ChatID,
		StepID:    m.StepID,
		Name:      m.Name,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
