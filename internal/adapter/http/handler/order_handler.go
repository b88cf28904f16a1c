package handler

import (
	"time"

	"chemdist-fulfillment/internal/adapter/http/dto"
	"chemdist-fulfillment/internal/core/domain"
	"chemdist-fulfillment/internal/core/ports"
	"chemdist-fulfillment/pkg/apperror"
	"chemdist-fulfillment/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OrderHandler handles order intake and read endpoints.
type OrderHandler struct {
	orderSvc    ports.OrderService
	locationSvc ports.LocationService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderSvc ports.OrderService, locationSvc ports.LocationService) *OrderHandler {
	return &OrderHandler{orderSvc: orderSvc, locationSvc: locationSvc}
}

// Create handles POST /api/v1/orders.
func (h *OrderHandler) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid customer id"))
		return
	}

	order, err := h.orderSvc.Create(c.Request.Context(), ports.CreateOrderRequest{
		OrderNumber:  req.OrderNumber,
		CustomerID:   customerID,
		TotalAmount:  req.TotalAmount,
		ShippingCost: req.ShippingCost,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toOrderResponse(order))
}

// Get handles GET /api/v1/orders/:id.
func (h *OrderHandler) Get(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	order, err := h.orderSvc.Get(c.Request.Context(), orderID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toOrderResponse(order))
}

// History handles GET /api/v1/orders/:id/history.
func (h *OrderHandler) History(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	history, err := h.orderSvc.History(c.Request.Context(), orderID)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.StatusChangeResponse, 0, len(history))
	for _, change := range history {
		items = append(items, dto.StatusChangeResponse{
			FromStatus: string(change.FromStatus),
			ToStatus:   string(change.ToStatus),
			Action:     string(change.Action),
			ChangedBy:  change.ChangedBy,
			Notes:      change.Notes,
			CreatedAt:  change.CreatedAt.Format(time.RFC3339),
		})
	}
	response.OK(c, items)
}

// Locate handles GET /api/v1/orders/:id/location.
func (h *OrderHandler) Locate(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	location, err := h.locationSvc.Locate(c.Request.Context(), orderID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, location)
}

// LocateByNumber handles GET /api/v1/order-locations/:number.
func (h *OrderHandler) LocateByNumber(c *gin.Context) {
	location, err := h.locationSvc.LocateByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, location)
}

// toOrderResponse converts domain.Order to its DTO.
func toOrderResponse(o *domain.Order) dto.OrderResponse {
	resp := dto.OrderResponse{
		ID:                    o.ID.String(),
		OrderNumber:           o.OrderNumber,
		CustomerID:            o.CustomerID.String(),
		TotalAmount:           o.TotalAmount,
		ShippingCost:          o.ShippingCost,
		Currency:              o.Currency,
		PaymentMethod:         string(o.PaymentMethod),
		CurrentStatus:         string(o.CurrentStatus),
		WalletAmountApplied:   o.WalletAmountApplied,
		ExternalAmountApplied: o.ExternalAmountApplied,
		AssignedVehicle:       o.AssignedVehicle,
		AssignedCourier:       o.AssignedCourier,
		CreatedAt:             o.CreatedAt.Format(time.RFC3339),
	}
	if o.PaymentGraceDeadline != nil {
		s := o.PaymentGraceDeadline.Format(time.RFC3339)
		resp.PaymentGraceDeadline = &s
	}
	return resp
}
