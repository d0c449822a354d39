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

type titleService interface {
	List(ctx context.Context) ([]models.Title, error)
	Create(ctx context.Context, req dto.CreateTitleRequest) (*models.Title, error)
	Redeem(ctx context.Context, studentID, titleID string) (*dto.RedeemResult, error)
	Equip(ctx context.Context, studentID, titleID string) (*models.StudentTitle, error)
	ListOwned(ctx context.Context, studentID string) ([]models.OwnedTitle, error)
}

// TitleHandler exposes the title catalog and purchases.
type TitleHandler struct {
	service titleService
}

// NewTitleHandler constructs a title handler.
func NewTitleHandler(service titleService) *TitleHandler {
	return &TitleHandler{service: service}
}

// List godoc
// @Summary List the title catalog
// @Tags Titles
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /titles [get]
func (h *TitleHandler) List(c *gin.Context) {
	titles, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, titles, nil)
}

// Create godoc
// @Summary Add a title to the catalog
// @Tags Titles
// @Accept json
// @Produce json
// @Param payload body dto.CreateTitleRequest true "Title payload"
// @Success 201 {object} response.Envelope
// @Router /titles [post]
func (h *TitleHandler) Create(c *gin.Context) {
	var req dto.CreateTitleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid title payload"))
		return
	}
	title, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, title)
}

// Redeem godoc
// @Summary Redeem a title with reward credits
// @Tags Titles
// @Produce json
// @Param id path string true "Title ID"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /titles/{id}/redeem [post]
func (h *TitleHandler) Redeem(c *gin.Context) {
	studentID := callerID(c)
	if studentID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result, err := h.service.Redeem(c.Request.Context(), studentID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Equip godoc
// @Summary Equip an owned title
// @Tags Titles
// @Produce json
// @Param id path string true "Title ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /titles/{id}/equip [post]
func (h *TitleHandler) Equip(c *gin.Context) {
	studentID := callerID(c)
	if studentID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	owned, err := h.service.Equip(c.Request.Context(), studentID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, owned, nil)
}

// Owned godoc
// @Summary List the caller's titles
// @Tags Titles
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me/titles [get]
func (h *TitleHandler) Owned(c *gin.Context) {
	studentID := callerID(c)
	if studentID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	titles, err := h.service.ListOwned(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, titles, nil)
}
