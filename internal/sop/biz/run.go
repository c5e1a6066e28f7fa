package biz

import (
	"context"
	"time"

	apperrors "github.com/leapstack-ai/sop-copilot-backend/internal/pkg/errors"
	"github.com/leapstack-ai/sop-copilot-backend/internal/sop/types"

	"github.com/google/uuid"
)

// RunRepo defines the repository interface for SOP run operations
type RunRepo interface {
	Create(ctx context.Context, run *types.Run) error
	GetByID(ctx context.Context, id string) (*types.Run, error)
	GetActiveByChat(ctx context.Context, chatID string) (*types.Run, error)
	UpdateStep(ctx context.Context, id, stepID string) error
	UpdateStatus(ctx context.Context, id, status string) error
}

// RunUseCase contains business logic for SOP runs
type RunUseCase struct {
	repo    RunRepo
	sopRepo SOPRepo
}

// NewRunUseCase creates a new run use case
func NewRunUseCase(repo RunRepo, sopRepo SOPRepo) *RunUseCase {
	return &RunUseCase{repo: repo, sopRepo: sopRepo}
}

// Start begins a new run of the given SOP for a chat, positioned on the
// SOP's first step. Fails when another run is already in progress.
func (uc *RunUseCase) Start(ctx context.Context, chatID, sopID string) (*types.Run, *types.SOP, error) {
	sop, err := uc.sopRepo.GetByID(ctx, sopID)
	if err != nil {
		return nil, nil, err
	}

	active, err := uc.repo.GetActiveByChat(ctx, chatID)
	if err != nil {
		return nil, nil, err
	}
	if active != nil {
		return nil, nil, apperrors.New(apperrors.ErrSOPRunActive, active.ID)
	}

	first := sop.FirstStep()
	if first == nil {
		return nil, nil, apperrors.New(apperrors.ErrSOPInvalid, "sop has no steps")
	}

	now := time.Now()
	run := &types.Run{
		ID:            uuid.New().String(),
		ChatID:        chatID,
		SOPID:         sopID,
		CurrentStepID: first.ID,
		Status:        types.RunStatusInProgress,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := uc.repo.Create(ctx, run); err != nil {
		return nil, nil, err
	}

	return run, sop, nil
}

// ActiveForChat returns the chat's in-progress run and its SOP, or nils
// when no run is active
func (uc *RunUseCase) ActiveForChat(ctx context.Context, chatID string) (*types.Run, *types.SOP, error) {
	run, err := uc.repo.GetActiveByChat(ctx, chatID)
	if err != nil || run == nil {
		return nil, nil, err
	}

	sop, err := uc.sopRepo.GetByID(ctx, run.SOPID)
	if err != nil {
		return nil, nil, err
	}

	return run, sop, nil
}

// AdvanceTo persists a step transition for a run
func (uc *RunUseCase) AdvanceTo(ctx context.Context, runID, stepID string) error {
	return uc.repo.UpdateStep(ctx, runID, stepID)
}

// Pause pauses an in-progress run
func (uc *RunUseCase) Pause(ctx context.Context, runID string) error {
	return uc.repo.UpdateStatus(ctx, runID, types.RunStatusPaused)
}

// Complete marks a run as completed
func (uc *RunUseCase) Complete(ctx context.Context, runID string) error {
	return uc.repo.UpdateStatus(ctx, runID, types.RunStatusCompleted)
}
