package data

import (
	"context"
	"fmt"

	apperrors "github.com/leapstack-ai/sop-copilot-backend/internal/pkg/errors"
	"github.com/leapstack-ai/sop-copilot-backend/internal/sop/models"
	"github.com/leapstack-ai/sop-copilot-backend/internal/sop/types"

	"gorm.io/gorm"
)

// SOPRepo implements the SOP repository using GORM
type SOPRepo struct {
	db *gorm.DB
}

// NewSOPRepo creates a new SOP repository
func NewSOPRepo(db *gorm.DB) *SOPRepo {
	return &SOPRepo{db: db}
}

// Save creates or overwrites an SOP under its id
func (r *SOPRepo) Save(ctx context.Context, sop *types.SOP) error {
	model := r.toModel(sop)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return fmt.Errorf("failed to save sop: %w", err)
	}
	return nil
}

// GetByID retrieves an SOP by ID
func (r *SOPRepo) GetByID(ctx context.Context, id string) (*types.SOP, error) {
	var model models.SOP
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.New(apperrors.ErrSOPNotFound, id)
		}
		return nil, fmt.Errorf("failed to get sop: %w", err)
	}

	return r.toDomain(&model), nil
}

// List lists all SOPs, built-ins first then by display name
func (r *SOPRepo) List(ctx context.Context) ([]*types.SOP, error) {
	var modelList []models.SOP
	if err := r.db.WithContext(ctx).
		Order("built_in DESC, display_name ASC").
		Find(&modelList).Error; err != nil {
		return nil, fmt.Errorf("failed to list sops: %w", err)
	}

	sops := make([]*types.SOP, 0, len(modelList))
	for i := range modelList {
		sops = append(sops, r.toDomain(&modelList[i]))
	}

	return sops, nil
}

// Delete deletes an SOP by ID
func (r *SOPRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.SOP{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete sop: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.ErrSOPNotFound, id)
	}
	return nil
}

func (r *SOPRepo) toModel(s *types.SOP) *models.SOP {
	return &models.SOP{
		ID:          s.ID,
		Name:        s.Name,
		DisplayName: s.DisplayName,
		Description: s.Description,
		Steps:       models.Steps(s.Steps),
		BuiltIn:     s.BuiltIn,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func (r *SOPRepo) toDomain(m *models.SOP) *types.SOP {
	return &types.SOP{
		ID:          m.ID,
		Name:        m.Name,
		DisplayName: m.DisplayName,
		Description: m.Description,
		Steps:       []types.Step(m.Steps),
		BuiltIn:     m.BuiltIn,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
