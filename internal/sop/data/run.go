package data

import (
	"context"
	"fmt"

	apperrors "github.com/leapstack-ai/sop-copilot-backend/internal/pkg/errors"
	"github.com/leapstack-ai/sop-copilot-backend/internal/sop/models"
	"github.com/leapstack-ai/sop-copilot-backend/internal/sop/types"

	"gorm.io/gorm"
)

// RunRepo implements the SOP run repository using GORM
type RunRepo struct {
	db *gorm.DB
}

// NewRunRepo creates a new run repository
func NewRunRepo(db *gorm.DB) *RunRepo {
	return &RunRepo{db: db}
}

// Create creates a new run
func (r *RunRepo) Create(ctx context.Context, run *types.Run) error {
	model := r.toModel(run)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by ID
func (r *RunRepo) GetByID(ctx context.Context, id string) (*types.Run, error) {
	var model models.Run
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.New(apperrors.ErrSOPRunNotFound, id)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return r.toDomain(&model), nil
}

// GetActiveByChat returns the in-progress run for a chat, or nil when none
func (r *RunRepo) GetActiveByChat(ctx context.Context, chatID string) (*types.Run, error) {
	var model models.Run
	err := r.db.WithContext(ctx).
		Where("chat_id = ? AND status = ?", chatID, types.RunStatusInProgress).
		Order("created_at DESC").
		First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active run: %w", err)
	}

	return r.toDomain(&model), nil
}

// UpdateStep moves a run to a new current step
func (r *RunRepo) UpdateStep(ctx context.Context, id, stepID string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Run{}).
		Where("id = ?", id).
		Update("current_step_id", stepID)
	if result.Error != nil {
		return fmt.Errorf("failed to update run step: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.ErrSOPRunNotFound, id)
	}
	return nil
}

// UpdateStatus changes a run's status
func (r *RunRepo) UpdateStatus(ctx context.Context, id, status string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Run{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update run status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.ErrSOPRunNotFound, id)
	}
	return nil
}

func (r *RunRepo) toModel(run *types.Run) *models.Run {
	return &models.Run{
		ID:            run.ID,
		ChatID:        run.ChatID,
		SOPID:         run.SOPID,
		CurrentStepID: run.CurrentStepID,
		Status:        run.Status,
		CreatedAt:     run.CreatedAt,
		UpdatedAt:     run.UpdatedAt,
	}
}

func (r *RunRepo) toDomain(m *models.Run) *types.Run {
	return &types.Run{
		ID:            m.ID,
		ChatID:        m.ChatID,
		SOPID:         m.SOPID,
		CurrentStepID: m.CurrentStepID,
		Status:        m.Status,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}
