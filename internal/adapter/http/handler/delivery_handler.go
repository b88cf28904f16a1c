package handler

import (
	"time"

	"chemdist-fulfillment/internal/adapter/http/dto"
	"chemdist-fulfillment/internal/core/domain"
	"chemdist-fulfillment/internal/core/ports"
	"chemdist-fulfillment/pkg/apperror"
	"chemdist-fulfillment/pkg/response"

	"github.com/gin-gonic/gin"
)

// DeliveryHandler exposes the delivery verification gate.
type DeliveryHandler struct {
	deliverySvc ports.DeliveryService
	orderSvc    ports.OrderService
}

// NewDeliveryHandler creates a new DeliveryHandler.
func NewDeliveryHandler(deliverySvc ports.DeliveryService, orderSvc ports.OrderService) *DeliveryHandler {
	return &DeliveryHandler{deliverySvc: deliverySvc, orderSvc: orderSvc}
}

// GenerateCode handles POST /api/v1/orders/:id/delivery/code.
// Regenerating supersedes any previous active code.
func (h *DeliveryHandler) GenerateCode(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	verification, err := h.deliverySvc.GenerateCode(c.Request.Context(), orderID)
	if err != nil {
		response.Error(c, err)
		return
	}

	if order, err := h.orderSvc.Get(c.Request.Context(), orderID); err == nil {
		h.deliverySvc.NotifyCode(c.Request.Context(), verification, order.OrderNumber)
	}

	response.Created(c, toVerificationResponse(verification, true))
}

// RecordAttempt handles POST /api/v1/orders/:id/delivery/attempt.
func (h *DeliveryHandler) RecordAttempt(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	attempts, err := h.deliverySvc.IncrementAttempt(c.Request.Context(), orderID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.AttemptResponse{
		OrderID:          orderID.String(),
		DeliveryAttempts: attempts,
	})
}

// Verify handles POST /api/v1/orders/:id/delivery/verify.
// A correct code flips the order to delivered in the same transaction.
func (h *DeliveryHandler) Verify(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	var req dto.VerifyDeliveryRequest
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

	order, err := h.deliverySvc.Verify(c.Request.Context(), ports.VerifyDeliveryRequest{
		OrderID:     orderID,
		Code:        req.Code,
		CourierName: actor.Username,
		Notes:       req.Notes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toOrderResponse(order))
}

// History handles GET /api/v1/orders/:id/delivery/history.
func (h *DeliveryHandler) History(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	history, err := h.deliverySvc.History(c.Request.Context(), orderID)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.VerificationResponse, 0, len(history))
	for i := range history {
		// Codes of superseded or used rows stay hidden.
		items = append(items, toVerificationResponse(&history[i], false))
	}
	response.OK(c, items)
}

func toVerificationResponse(v *domain.DeliveryVerification, includeCode bool) dto.VerificationResponse {
	resp := dto.VerificationResponse{
		ID:               v.ID.String(),
		IsActive:         v.IsActive,
		IsUsed:           v.IsUsed,
		SMSSent:          v.SMSSent,
		DeliveryAttempts: v.DeliveryAttempts,
		VerifiedBy:       v.VerifiedBy,
		CreatedAt:        v.CreatedAt.Format(time.RFC3339),
	}
	if includeCode {
		resp.Code = v.VerificationCode
	}
	if v.VerifiedAt != nil {
		s := v.VerifiedAt.Format(time.RFC3339)
		resp.VerifiedAt = &s
	}
	return resp
}
