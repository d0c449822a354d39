package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ms-lokesh/cohort-summit-api/internal/models"
	"github.com/ms-lokesh/cohort-summit-api/internal/service"
	appErrors "github.com/ms-lokesh/cohort-summit-api/pkg/errors"
	"github.com/ms-lokesh/cohort-summit-api/pkg/response"
)

type leaderboardService interface {
	Podium(ctx context.Context, seasonID string) ([]models.LeaderboardEntry, error)
	Position(ctx context.Context, seasonID, studentID string) (*models.LeaderboardPosition, error)
	RebuildSeason(ctx context.Context, seasonID string) (*models.Ranking, error)
	Standings(ctx context.Context, seasonID string) ([]models.Standing, error)
	ExportStandings(ctx context.Context, seasonID string, format service.ExportFormat) (*service.ExportFile, error)
}

// LeaderboardHandler exposes podium, position and standings endpoints.
type LeaderboardHandler struct {
	service leaderboardService
}

// NewLeaderboardHandler constructs a leaderboard handler.
func NewLeaderboardHandler(service leaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{service: service}
}

// Podium godoc
// @Summary Get the season podium
// @Tags Leaderboard
// @Produce json
// @Param id path string true "Season ID"
// @Success 200 {object} response.Envelope
// @Router /seasons/{id}/leaderboard [get]
func (h *LeaderboardHandler) Podium(c *gin.Context) {
	entries, err := h.service.Podium(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Me godoc
// @Summary Get the caller's season standing
// @Tags Leaderboard
// @Produce json
// @Param id path string true "Season ID"
// @Success 200 {object} response.Envelope
// @Router /seasons/{id}/leaderboard/me [get]
func (h *LeaderboardHandler) Me(c *gin.Context) {
	studentID := callerID(c)
	if studentID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	position, err := h.service.Position(c.Request.Context(), c.Param("id"), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, position, nil)
}

// Rebuild godoc
// @Summary Recompute the season ranking
// @Tags Leaderboard
// @Produce json
// @Param id path string true "Season ID"
// @Success 200 {object} response.Envelope
// @Router /seasons/{id}/leaderboard/rebuild [post]
func (h *LeaderboardHandler) Rebuild(c *gin.Context) {
	ranking, err := h.service.RebuildSeason(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"podium":   ranking.Podium,
		"brackets": len(ranking.Brackets),
	}, nil)
}

// Standings godoc
// @Summary List the full season standings
// @Tags Leaderboard
// @Produce json
// @Param id path string true "Season ID"
// @Success 200 {object} response.Envelope
// @Router /seasons/{id}/leaderboard/standings [get]
func (h *LeaderboardHandler) Standings(c *gin.Context) {
	rows, err := h.service.Standings(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// Export godoc
// @Summary Export the season standings
// @Tags Leaderboard
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Season ID"
// @Param format query string false "csv or pdf" Enums(csv, pdf)
// @Success 200 {file} file
// @Router /seasons/{id}/leaderboard/export [get]
func (h *LeaderboardHandler) Export(c *gin.Context) {
	format := service.ExportFormat(strings.ToLower(c.DefaultQuery("format", string(service.ExportFormatCSV))))
	file, err := h.service.ExportStandings(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Body)
}
