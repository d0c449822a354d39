package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ms-lokesh/cohort-summit-api/internal/dto"
	"github.com/ms-lokesh/cohort-summit-api/internal/models"
	appErrors "github.com/ms-lokesh/cohort-summit-api/pkg/errors"
	"github.com/ms-lokesh/cohort-summit-api/pkg/response"
)

type seasonService interface {
	List(ctx context.Context, filter models.SeasonFilter) ([]models.Season, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Season, error)
	GetActive(ctx context.Context) (*models.Season, error)
	Create(ctx context.Context, req dto.CreateSeasonRequest) (*models.Season, error)
	Update(ctx context.Context, id string, req dto.UpdateSeasonRequest) (*models.Season, error)
	Activate(ctx context.Context, id string) (*models.Season, error)
	Deactivate(ctx context.Context, id string) (*models.Season, error)
	EnrollStudent(ctx context.Context, seasonID, studentID string) (*dto.EnrollmentResult, error)
}

// SeasonHandler exposes season administration endpoints.
type SeasonHandler struct {
	service seasonService
}

// NewSeasonHandler constructs a season handler.
func NewSeasonHandler(service seasonService) *SeasonHandler {
	return &SeasonHandler{service: service}
}

// List godoc
// @Summary List seasons
// @Tags Seasons
// @Produce json
// @Param isActive query bool false "Filter by active flag"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /seasons [get]
func (h *SeasonHandler) List(c *gin.Context) {
	filter := models.SeasonFilter{PageRequest: pageRequest(c)}
	if raw := c.Query("isActive"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "isActive must be a boolean"))
			return
		}
		filter.IsActive = &active
	}
	seasons, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, seasons, pagination)
}

// Active godoc
// @Summary Get the active season
// @Tags Seasons
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /seasons/active [get]
func (h *SeasonHandler) Active(c *gin.Context) {
	season, err := h.service.GetActive(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, season, nil)
}

// Get godoc
// @Summary Get a season
// @Tags Seasons
// @Produce json
// @Param id path string true "Season ID"
// @Success 200 {object} response.Envelope
// @Router /seasons/{id} [get]
func (h *SeasonHandler) Get(c *gin.Context) {
	season, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, season, nil)
}

// Create godoc
// @Summary Create a season with its four episodes
// @Tags Seasons
// @Accept json
// @Produce json
// @Param payload body dto.CreateSeasonRequest true "Season payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /seasons [post]
func (h *SeasonHandler) Create(c *gin.Context) {
	var req dto.CreateSeasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid season payload"))
		return
	}
	season, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, season)
}

// Update godoc
// @Summary Update season dates or active flag
// @Tags Seasons
// @Accept json
// @Produce json
// @Param id path string true "Season ID"
// @Param payload body dto.UpdateSeasonRequest true "Season payload"
// @Success 200 {object} response.Envelope
// @Router /seasons/{id} [put]
func (h *SeasonHandler) Update(c *gin.Context) {
	var req dto.UpdateSeasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid season payload"))
		return
	}
	season, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, season, nil)
}

// Activate godoc
// @Summary Activate a season
// @Tags Seasons
// @Produce json
// @Param id path string true "Season ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /seasons/{id}/activate [post]
func (h *SeasonHandler) Activate(c *gin.Context) {
	season, err := h.service.Activate(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, season, nil)
}

// Deactivate godoc
// @Summary Deactivate a season
// @Tags Seasons
// @Produce json
// @Param id path string true "Season ID"
// @Success 200 {object} response.Envelope
// @Router /seasons/{id}/deactivate [post]
func (h *SeasonHandler) Deactivate(c *gin.Context) {
	season, err := h.service.Deactivate(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, season, nil)
}

// Enroll godoc
// @Summary Open progress rows for a late-joining student
// @Tags Seasons
// @Produce json
// @Param id path string true "Season ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /seasons/{id}/enroll/{studentId} [post]
func (h *SeasonHandler) Enroll(c *gin.Context) {
	result, err := h.service.EnrollStudent(c.Request.Context(), c.Param("id"), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
