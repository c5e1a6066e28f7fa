package service

import (
	"io"

	"github.com/leapstack-ai/sop-copilot-backend/internal/pkg/response"
	"github.com/leapstack-ai/sop-copilot-backend/internal/sop/biz"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SOPService handles HTTP requests for SOP definitions and runs
type SOPService struct {
	sops   *biz.SOPUseCase
	runs   *biz.RunUseCase
	logger *zap.Logger
}

// NewSOPService creates a new SOP service
func NewSOPService(sops *biz.SOPUseCase, runs *biz.RunUseCase, logger *zap.Logger) *SOPService {
	return &SOPService{sops: sops, runs: runs, logger: logger}
}

// RegisterRoutes registers SOP routes on the given group
func (s *SOPService) RegisterRoutes(r *gin.RouterGroup) {
	sops := r.Group("/sops")
	{
		sops.GET("", s.ListSOPs)
		sops.GET("/:id", s.GetSOP)
		sops.PUT("/:id", s.SaveSOP)
		sops.DELETE("/:id", s.DeleteSOP)
	}

	r.GET("/chats/:id/run", s.GetActiveRun)
	r.POST("/runs/:id/pause", s.PauseRun)
}

// ListSOPs lists every SOP definition, built-in and user-defined
// @Summary List SOPs
// @Tags sop
// @Produce json
// @Router /api/v1/sops [get]
func (s *SOPService) ListSOPs(c *gin.Context) {
	sops, err := s.sops.List(c.Request.Context())
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, sops)
}

// GetSOP retrieves one SOP definition
// @Summary Get SOP
// @Tags sop
// @Produce json
// @Router /api/v1/sops/{id} [get]
func (s *SOPService) GetSOP(c *gin.Context) {
	sop, err := s.sops.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, sop)
}

// SaveSOP creates or replaces an SOP definition. The body is the raw SOP
// JSON; its id must match the path. Built-in SOPs cannot be overwritten.
// @Summary Save SOP
// @Tags sop
// @Accept json
// @Produce json
// @Router /api/v1/sops/{id} [put]
func (s *SOPService) SaveSOP(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.BadRequest(c, "failed to read request body")
		return
	}

	sop, problems := biz.ValidateSOPJSON(string(raw))
	if len(problems) > 0 {
		response.BadRequest(c, problems[0])
		return
	}
	if sop.ID != c.Param("id") {
		response.BadRequest(c, "sop id in body does not match path")
		return
	}

	if err := s.sops.Save(c.Request.Context(), sop); err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, sop)
}

// DeleteSOP removes a user-defined SOP. Built-in SOPs are protected.
// @Summary Delete SOP
// @Tags sop
// @Produce json
// @Router /api/v1/sops/{id} [delete]
func (s *SOPService) DeleteSOP(c *gin.Context) {
	if err := s.sops.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, nil)
}

// GetActiveRun returns the chat's in-progress SOP run and its SOP, or null
// when no run is active
// @Summary Get active run
// @Tags sop
// @Produce json
// @Router /api/v1/chats/{id}/run [get]
func (s *SOPService) GetActiveRun(c *gin.Context) {
	run, sop, err := s.runs.ActiveForChat(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	if run == nil {
		response.Success(c, nil)
		return
	}

	response.Success(c, gin.H{"run": run, "sop": sop})
}

// PauseRun pauses an in-progress SOP run
// @Summary Pause run
// @Tags sop
// @Produce json
// @Router /api/v1/runs/{id}/pause [post]
func (s *SOPService) PauseRun(c *gin.Context) {
	if err := s.runs.Pause(c.Request.Context(), c.Param("id")); err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, nil)
}
