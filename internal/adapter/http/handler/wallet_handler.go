package handler

import (
	"time"

	"chemdist-fulfillment/internal/adapter/http/dto"
	"chemdist-fulfillment/internal/core/ports"
	"chemdist-fulfillment/pkg/apperror"
	"chemdist-fulfillment/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WalletHandler exposes the wallet ledger for admin use.
type WalletHandler struct {
	walletSvc ports.WalletService
	currency  string
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService, currency string) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc, currency: currency}
}

func customerIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("customer_id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid customer id"))
		return uuid.Nil, false
	}
	return id, true
}

// GetBalance handles GET /api/v1/wallets/:customer_id/balance.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	customerID, ok := customerIDParam(c)
	if !ok {
		return
	}

	balance, err := h.walletSvc.GetBalance(c.Request.Context(), customerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.WalletBalanceResponse{
		CustomerID: customerID.String(),
		Balance:    balance,
		Currency:   h.currency,
	})
}

// ListEntries handles GET /api/v1/wallets/:customer_id/entries.
func (h *WalletHandler) ListEntries(c *gin.Context) {
	customerID, ok := customerIDParam(c)
	if !ok {
		return
	}

	entries, err := h.walletSvc.ListEntries(c.Request.Context(), customerID, 50)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.LedgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, dto.LedgerEntryResponse{
			ID:          e.ID.String(),
			Amount:      e.Amount,
			Kind:        string(e.Kind),
			Description: e.Description,
			CreatedBy:   e.CreatedBy,
			CreatedAt:   e.CreatedAt.Format(time.RFC3339),
		})
	}
	response.OK(c, items)
}

// ApplyCorrection handles POST /api/v1/wallets/corrections (admin only).
func (h *WalletHandler) ApplyCorrection(c *gin.Context) {
	var req dto.CorrectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	result, err := h.walletSvc.ApplyCorrection(c.Request.Context(), ports.CorrectionRequest{
		OrderNumber: req.OrderNumber,
		Amount:      req.Amount,
		Description: req.Description,
		Actor:       actor.Username,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.CorrectionResponse{
		TransactionID:  result.TransactionID.String(),
		OrderNumber:    result.OrderNumber,
		Amount:         result.Amount,
		CorrectionType: string(result.CorrectionType),
		OldBalance:     result.OldBalance,
		NewBalance:     result.NewBalance,
	})
}

// Recharge handles POST /api/v1/wallets/:customer_id/recharge (admin only).
func (h *WalletHandler) Recharge(c *gin.Context) {
	customerID, ok := customerIDParam(c)
	if !ok {
		return
	}

	var req dto.RechargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	entry, newBalance, err := h.walletSvc.Recharge(c.Request.Context(), customerID, req.Amount, actor.Username)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, gin.H{
		"entry_id":    entry.ID.String(),
		"amount":      entry.Amount,
		"new_balance": newBalance,
	})
}

// Reconcile handles GET /api/v1/wallets/:customer_id/reconcile (admin only).
func (h *WalletHandler) Reconcile(c *gin.Context) {
	customerID, ok := customerIDParam(c)
	if !ok {
		return
	}

	result, err := h.walletSvc.Reconcile(c.Request.Context(), customerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ReconcileResponse{
		CustomerID:        result.CustomerID.String(),
		MaterializedValue: result.MaterializedValue,
		LedgerSum:         result.LedgerSum,
		Consistent:        result.Consistent,
	})
}
