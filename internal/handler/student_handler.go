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

type dashboardService interface {
	Student(ctx context.Context, studentID string) (*dto.StudentDashboard, error)
}

type walletService interface {
	GetWallet(ctx context.Context, studentID string) (*models.RewardWallet, error)
	ListTransactions(ctx context.Context, studentID string, page models.PageRequest) ([]models.RewardTransaction, *models.Pagination, error)
	Reconcile(ctx context.Context, studentID string) (*models.Reconciliation, error)
}

type legacyService interface {
	Get(ctx context.Context, studentID string) (*models.LegacyScore, error)
}

// StudentHandler serves the caller's own dashboard, wallet and legacy score.
type StudentHandler struct {
	dashboard dashboardService
	wallets   walletService
	legacy    legacyService
}

// NewStudentHandler constructs a student handler.
func NewStudentHandler(dashboard dashboardService, wallets walletService, legacy legacyService) *StudentHandler {
	return &StudentHandler{dashboard: dashboard, wallets: wallets, legacy: legacy}
}

// Dashboard godoc
// @Summary Get the caller's dashboard
// @Tags Me
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me/dashboard [get]
func (h *StudentHandler) Dashboard(c *gin.Context) {
	studentID, ok := requireCaller(c)
	if !ok {
		return
	}
	view, err := h.dashboard.Student(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Wallet godoc
// @Summary Get the caller's reward wallet
// @Tags Me
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me/wallet [get]
func (h *StudentHandler) Wallet(c *gin.Context) {
	studentID, ok := requireCaller(c)
	if !ok {
		return
	}
	wallet, err := h.wallets.GetWallet(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, wallet, nil)
}

// Transactions godoc
// @Summary List the caller's reward transactions
// @Tags Me
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /me/wallet/transactions [get]
func (h *StudentHandler) Transactions(c *gin.Context) {
	studentID, ok := requireCaller(c)
	if !ok {
		return
	}
	txns, pagination, err := h.wallets.ListTransactions(c.Request.Context(), studentID, pageRequest(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, txns, pagination)
}

// Legacy godoc
// @Summary Get the caller's lifetime legacy score
// @Tags Me
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me/legacy [get]
func (h *StudentHandler) Legacy(c *gin.Context) {
	studentID, ok := requireCaller(c)
	if !ok {
		return
	}
	legacy, err := h.legacy.Get(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, legacy, nil)
}

// Reconcile godoc
// @Summary Compare a wallet against its transaction log
// @Tags Wallets
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/wallet/reconcile [get]
func (h *StudentHandler) Reconcile(c *gin.Context) {
	result, err := h.wallets.Reconcile(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

func requireCaller(c *gin.Context) (string, bool) {
	studentID := callerID(c)
	if studentID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return "", false
	}
	return studentID, true
}
