package handler

import (
	"chemdist-fulfillment/internal/adapter/http/dto"
	"chemdist-fulfillment/internal/core/domain"
	"chemdist-fulfillment/internal/core/ports"
	"chemdist-fulfillment/pkg/apperror"
	"chemdist-fulfillment/pkg/response"

	"github.com/gin-gonic/gin"
)

// PaymentHandler handles payment option computation and confirmation.
type PaymentHandler struct {
	paymentSvc ports.PaymentService
	orderSvc   ports.OrderService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentSvc ports.PaymentService, orderSvc ports.OrderService) *PaymentHandler {
	return &PaymentHandler{paymentSvc: paymentSvc, orderSvc: orderSvc}
}

// GetOptions handles GET /api/v1/orders/:id/payment-options.
// Options are computed fresh on every call; the balance shown is the balance
// now, not at confirmation time.
func (h *PaymentHandler) GetOptions(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	order, err := h.orderSvc.Get(c.Request.Context(), orderID)
	if err != nil {
		response.Error(c, err)
		return
	}

	options, err := h.paymentSvc.ComputeOptions(c.Request.Context(), order.CustomerID, order.TotalAmount, order.ShippingCost)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, options)
}

// ConfirmPayment handles POST /api/v1/orders/:id/confirm-payment.
func (h *PaymentHandler) ConfirmPayment(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	var req dto.ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	order, err := h.paymentSvc.ConfirmPayment(c.Request.Context(), orderID, domain.PaymentMethod(req.Method), actor.Username)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toOrderResponse(order))
}
