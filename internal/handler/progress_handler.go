package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ms-lokesh/cohort-summit-api/internal/dto"
	appErrors "github.com/ms-lokesh/cohort-summit-api/pkg/errors"
	"github.com/ms-lokesh/cohort-summit-api/pkg/response"
)

type progressionService interface {
	RecordTaskCompletion(ctx context.Context, episodeID string, req dto.ApproveTaskRequest) (*dto.TaskCompletionResult, error)
	GetProgress(ctx context.Context, seasonID, studentID string) (*dto.SeasonProgressView, error)
}

// ProgressHandler exposes episode task approval and progress reads.
type ProgressHandler struct {
	service progressionService
}

// NewProgressHandler constructs a progress handler.
func NewProgressHandler(service progressionService) *ProgressHandler {
	return &ProgressHandler{service: service}
}

// Approve godoc
// @Summary Record an approved episode task
// @Description Marks the task done, completes the episode when every task is done, unlocks the next episode and finalizes the season after episode four.
// @Tags Progress
// @Accept json
// @Produce json
// @Param id path string true "Episode ID"
// @Param payload body dto.ApproveTaskRequest true "Task approval"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /episodes/{id}/approve [post]
func (h *ProgressHandler) Approve(c *gin.Context) {
	var req dto.ApproveTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid approval payload"))
		return
	}
	result, err := h.service.RecordTaskCompletion(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Progress godoc
// @Summary Get a student's episode progress in a season
// @Tags Progress
// @Produce json
// @Param id path string true "Season ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /seasons/{id}/progress/{studentId} [get]
func (h *ProgressHandler) Progress(c *gin.Context) {
	view, err := h.service.GetProgress(c.Request.Context(), c.Param("id"), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}
