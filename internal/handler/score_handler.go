package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ms-lokesh/cohort-summit-api/internal/dto"
	"github.com/ms-lokesh/cohort-summit-api/internal/models"
	appErrors "github.com/ms-lokesh/cohort-summit-api/pkg/errors"
	"github.com/ms-lokesh/cohort-summit-api/pkg/response"
)

type scoringService interface {
	FinalizeSeason(ctx context.Context, seasonID, studentID string) (*dto.FinalizeResult, error)
	RecordOutcome(ctx context.Context, seasonID, studentID, recordedBy string, req dto.RecordOutcomeRequest) (*models.SeasonOutcome, error)
	GetSeasonScore(ctx context.Context, seasonID, studentID string) (*models.SeasonScore, error)
}

// ScoreHandler exposes season scoring endpoints.
type ScoreHandler struct {
	service scoringService
}

// NewScoreHandler constructs a score handler.
func NewScoreHandler(service scoringService) *ScoreHandler {
	return &ScoreHandler{service: service}
}

// Finalize godoc
// @Summary Finalize a student's season
// @Description Idempotent. Returns not_complete until all four episodes are completed.
// @Tags Scores
// @Produce json
// @Param id path string true "Season ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /seasons/{id}/finalize/{studentId} [post]
func (h *ScoreHandler) Finalize(c *gin.Context) {
	result, err := h.service.FinalizeSeason(c.Request.Context(), c.Param("id"), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Outcome godoc
// @Summary Record the season outcome score
// @Tags Scores
// @Accept json
// @Produce json
// @Param id path string true "Season ID"
// @Param studentId path string true "Student ID"
// @Param payload body dto.RecordOutcomeRequest true "Outcome payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /seasons/{id}/outcome/{studentId} [put]
func (h *ScoreHandler) Outcome(c *gin.Context) {
	var req dto.RecordOutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid outcome payload"))
		return
	}
	outcome, err := h.service.RecordOutcome(c.Request.Context(), c.Param("id"), c.Param("studentId"), callerID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outcome, nil)
}

// Score godoc
// @Summary Get a student's season score breakdown
// @Tags Scores
// @Produce json
// @Param id path string true "Season ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /seasons/{id}/scores/{studentId} [get]
func (h *ScoreHandler) Score(c *gin.Context) {
	score, err := h.service.GetSeasonScore(c.Request.Context(), c.Param("id"), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, score, nil)
}
