package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ms-lokesh/cohort-summit-api/internal/dto"
	"github.com/ms-lokesh/cohort-summit-api/internal/models"
	"github.com/ms-lokesh/cohort-summit-api/pkg/response"
)

type streakService interface {
	SyncStudent(ctx context.Context, seasonID, studentID string) (*dto.StreakSyncResult, error)
	SyncAll(ctx context.Context, seasonID string) (*dto.StreakSyncSummary, error)
	GetStreak(ctx context.Context, seasonID, studentID string) (*models.StreakRecord, error)
}

// StreakHandler triggers coding streak syncs.
type StreakHandler struct {
	service streakService
}

// NewStreakHandler constructs a streak handler.
func NewStreakHandler(service streakService) *StreakHandler {
	return &StreakHandler{service: service}
}

// SyncAll godoc
// @Summary Sync coding streaks for every active student
// @Tags Streaks
// @Produce json
// @Param id path string true "Season ID"
// @Success 200 {object} response.Envelope
// @Router /seasons/{id}/streaks/sync [post]
func (h *StreakHandler) SyncAll(c *gin.Context) {
	summary, err := h.service.SyncAll(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.WithWarnings(c, summary, summary.Warnings)
}

// SyncStudent godoc
// @Summary Sync one student's coding streak
// @Description Provider failures are returned as warnings and leave the stored streak untouched.
// @Tags Streaks
// @Produce json
// @Param id path string true "Season ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /seasons/{id}/streaks/sync/{studentId} [post]
func (h *StreakHandler) SyncStudent(c *gin.Context) {
	result, err := h.service.SyncStudent(c.Request.Context(), c.Param("id"), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.WithWarnings(c, result, result.Warnings)
}

// Get godoc
// @Summary Get a student's streak record
// @Tags Streaks
// @Produce json
// @Param id path string true "Season ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /seasons/{id}/streaks/{studentId} [get]
func (h *StreakHandler) Get(c *gin.Context) {
	record, err := h.service.GetStreak(c.Request.Context(), c.Param("id"), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}
