package biz

import (
	"context"
	"strings"
	"time"

	apperrors "github.com/leapstack-ai/sop-copilot-backend/internal/pkg/errors"
	"github.com/leapstack-ai/sop-copilot-backend/internal/sop/types"
)

// builtinSOPIDs is the fixed allow-list of protected SOPs. They are seeded
// at startup and refuse deletion regardless of caller.
var builtinSOPIDs = map[string]bool{
	"sop-article-writing": true,
	"sop-weekly-report":   true,
}

// IsBuiltinSOP reports whether the id belongs to a protected built-in SOP
func IsBuiltinSOP(id string) bool {
	return builtinSOPIDs[id]
}

// SOPRepo defines the repository interface for SOP operations
type SOPRepo interface {
	Save(ctx context.Context, sop *types.SOP) error
	GetByID(ctx context.Context, id string) (*types.SOP, error)
	List(ctx context.Context) ([]*types.SOP, error)
	Delete(ctx context.Context, id string) error
}

// SOPUseCase contains business logic for SOP definitions
type SOPUseCase struct {
	repo SOPRepo
}

// NewSOPUseCase creates a new SOP use case
func NewSOPUseCase(repo SOPRepo) *SOPUseCase {
	return &SOPUseCase{repo: repo}
}

// Save validates and creates-or-overwrites an SOP. Built-in SOPs cannot be
// overwritten through this path. Validation problems are returned joined,
// all at once.
func (uc *SOPUseCase) Save(ctx context.Context, sop *types.SOP) error {
	if problems := ValidateSOP(sop); len(problems) > 0 {
		return apperrors.New(apperrors.ErrSOPInvalid, strings.Join(problems, "; "))
	}

	if IsBuiltinSOP(sop.ID) {
		return apperrors.New(apperrors.ErrSOPProtected, sop.ID)
	}

	now := time.Now()
	if sop.CreatedAt.IsZero() {
		sop.CreatedAt = now
	}
	sop.UpdatedAt = now

	return uc.repo.Save(ctx, sop)
}

// Get retrieves an SOP by ID
func (uc *SOPUseCase) Get(ctx context.Context, id string) (*types.SOP, error) {
	return uc.repo.GetByID(ctx, id)
}

// List lists all SOPs
func (uc *SOPUseCase) List(ctx context.Context) ([]*types.SOP, error) {
	return uc.repo.List(ctx)
}

// Delete deletes an SOP. Built-in SOPs are protected.
func (uc *SOPUseCase) Delete(ctx context.Context, id string) error {
	if IsBuiltinSOP(id) {
		return apperrors.New(apperrors.ErrSOPProtected, id)
	}
	return uc.repo.Delete(ctx, id)
}

// SeedBuiltins installs the protected built-in SOPs when they are missing.
// Existing rows are left untouched so local edits to seeded data survive
// restarts.
func (uc *SOPUseCase) SeedBuiltins(ctx context.Context) error {
	for _, sop := range builtinSOPs() {
		existing, err := uc.repo.GetByID(ctx, sop.ID)
		if err == nil && existing != nil {
			continue
		}
		if !apperrors.Is(err, apperrors.ErrSOPNotFound) && err != nil {
			return err
		}
		if err := uc.repo.Save(ctx, sop); err != nil {
			return err
		}
	}
	return nil
}

func builtinSOPs() []*types.SOP {
	now := time.Now()
	return []*types.SOP{
		{
			ID:          "sop-article-writing",
			Name:        "article_writing",
			DisplayName: "Article Writing",
			Description: "Guides the user from a topic idea to a finished article draft.",
			BuiltIn:     true,
			CreatedAt:   now,
			UpdatedAt:   now,
			Steps: []types.Step{
				{
					ID:             "collect-topic",
					StepNumber:     1,
					Name:           "Collect topic",
					Instructions:   "Ask the user for the article topic, the target audience and the desired tone.",
					ExpectedOutput: "A confirmed topic, audience and tone.",
					NextStep:       types.NextStep{IDs: []string{"outline"}},
				},
				{
					ID:             "outline",
					StepNumber:     2,
					Name:           "Outline",
					Instructions:   "Propose a section-level outline and iterate until the user approves it.",
					ExpectedOutput: "An approved outline.",
					NextStep:       types.NextStep{IDs: []string{"draft"}},
				},
				{
					ID:             "draft",
					StepNumber:     3,
					Name:           "Draft",
					Instructions:   "Write the full article with the write_document tool, following the approved outline.",
					ExpectedOutput: "A complete draft document.",
					NextStep:       types.NextStep{IDs: []string{"revise"}},
				},
				{
					ID:             "revise",
					StepNumber:     4,
					Name:           "Revise",
					Instructions:   "Apply the user's revision requests to the document until they are satisfied.",
					ExpectedOutput: "A final, approved article.",
					NextStep:       types.NextStep{},
				},
			},
		},
		{
			ID:          "sop-weekly-report",
			Name:        "weekly_report",
			DisplayName: "Weekly Report",
			Description: "Turns a list of accomplishments into a structured weekly report.",
			BuiltIn:     true,
			CreatedAt:   now,
			UpdatedAt:   now,
			Steps: []types.Step{
				{
					ID:             "gather",
					StepNumber:     1,
					Name:           "Gather input",
					Instructions:   "Collect this week's accomplishments, blockers and plans from the user.",
					ExpectedOutput: "A raw list of items for the report.",
					NextStep:       types.NextStep{IDs: []string{"compose"}},
				},
				{
					ID:             "compose",
					StepNumber:     2,
					Name:           "Compose report",
					Instructions:   "Write the weekly report with the write_document tool, grouped into accomplishments, blockers and next week's plan.",
					ExpectedOutput: "The finished weekly report document.",
					NextStep:       types.NextStep{},
				},
			},
		},
	}
}
