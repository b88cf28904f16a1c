package handler

import (
	"chemdist-fulfillment/internal/adapter/http/dto"
	"chemdist-fulfillment/internal/core/ports"
	"chemdist-fulfillment/pkg/apperror"
	"chemdist-fulfillment/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CustodyHandler exposes the departmental custody transitions.
type CustodyHandler struct {
	custodySvc ports.CustodyService
}

// NewCustodyHandler creates a new CustodyHandler.
func NewCustodyHandler(custodySvc ports.CustodyService) *CustodyHandler {
	return &CustodyHandler{custodySvc: custodySvc}
}

type custodyCall func(c *gin.Context, orderID uuid.UUID, actor ports.Actor) error

// handle wires the shared parse/auth/error plumbing around one transition.
func (h *CustodyHandler) handle(c *gin.Context, call custodyCall) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	if err := call(c, orderID, actor); err != nil {
		response.Error(c, err)
	}
}

// ApproveFinancial handles POST /api/v1/orders/:id/financial/approve.
func (h *CustodyHandler) ApproveFinancial(c *gin.Context) {
	h.handle(c, func(c *gin.Context, orderID uuid.UUID, actor ports.Actor) error {
		var req dto.ReviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return apperror.ErrNotesRequired()
		}
		dto.SanitizeStruct(&req)

		order, err := h.custodySvc.ApproveFinancial(c.Request.Context(), orderID, actor, req.Notes)
		if err != nil {
			return err
		}
		response.OK(c, toOrderResponse(order))
		return nil
	})
}

// RejectFinancial handles POST /api/v1/orders/:id/financial/reject.
func (h *CustodyHandler) RejectFinancial(c *gin.Context) {
	h.handle(c, func(c *gin.Context, orderID uuid.UUID, actor ports.Actor) error {
		var req dto.ReviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return apperror.ErrNotesRequired()
		}
		dto.SanitizeStruct(&req)

		order, err := h.custodySvc.RejectFinancial(c.Request.Context(), orderID, actor, req.Notes)
		if err != nil {
			return err
		}
		response.OK(c, toOrderResponse(order))
		return nil
	})
}

// ApproveWarehouse handles POST /api/v1/orders/:id/warehouse/approve.
// Approval atomically issues the first delivery verification code.
func (h *CustodyHandler) ApproveWarehouse(c *gin.Context) {
	h.handle(c, func(c *gin.Context, orderID uuid.UUID, actor ports.Actor) error {
		order, verification, err := h.custodySvc.ApproveWarehouse(c.Request.Context(), orderID, actor)
		if err != nil {
			return err
		}
		response.OK(c, gin.H{
			"order":             toOrderResponse(order),
			"verification_id":   verification.ID.String(),
			"code_issued":       true,
			"delivery_attempts": verification.DeliveryAttempts,
		})
		return nil
	})
}

// AssignLogistics handles POST /api/v1/orders/:id/logistics/assign.
func (h *CustodyHandler) AssignLogistics(c *gin.Context) {
	h.handle(c, func(c *gin.Context, orderID uuid.UUID, actor ports.Actor) error {
		var req dto.AssignLogisticsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return apperror.Validation(err.Error())
		}
		dto.SanitizeStruct(&req)

		order, err := h.custodySvc.AssignLogistics(c.Request.Context(), orderID, actor, ports.VehicleAssignment{
			Vehicle: req.Vehicle,
			Courier: req.Courier,
		})
		if err != nil {
			return err
		}
		response.OK(c, toOrderResponse(order))
		return nil
	})
}

// StartProcessing handles POST /api/v1/orders/:id/logistics/start.
func (h *CustodyHandler) StartProcessing(c *gin.Context) {
	h.handle(c, func(c *gin.Context, orderID uuid.UUID, actor ports.Actor) error {
		order, err := h.custodySvc.StartProcessing(c.Request.Context(), orderID, actor)
		if err != nil {
			return err
		}
		response.OK(c, toOrderResponse(order))
		return nil
	})
}

// Dispatch handles POST /api/v1/orders/:id/logistics/dispatch.
func (h *CustodyHandler) Dispatch(c *gin.Context) {
	h.handle(c, func(c *gin.Context, orderID uuid.UUID, actor ports.Actor) error {
		order, err := h.custodySvc.Dispatch(c.Request.Context(), orderID, actor)
		if err != nil {
			return err
		}
		response.OK(c, toOrderResponse(order))
		return nil
	})
}

// MarkInTransit handles POST /api/v1/orders/:id/logistics/in-transit.
func (h *CustodyHandler) MarkInTransit(c *gin.Context) {
	h.handle(c, func(c *gin.Context, orderID uuid.UUID, actor ports.Actor) error {
		order, err := h.custodySvc.MarkInTransit(c.Request.Context(), orderID, actor)
		if err != nil {
			return err
		}
		response.OK(c, toOrderResponse(order))
		return nil
	})
}

// Cancel handles POST /api/v1/orders/:id/cancel.
func (h *CustodyHandler) Cancel(c *gin.Context) {
	h.handle(c, func(c *gin.Context, orderID uuid.UUID, actor ports.Actor) error {
		var req dto.CancelRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				return apperror.Validation(err.Error())
			}
			dto.SanitizeStruct(&req)
		}

		order, err := h.custodySvc.Cancel(c.Request.Context(), orderID, actor, req.Notes)
		if err != nil {
			return err
		}
		response.OK(c, toOrderResponse(order))
		return nil
	})
}
