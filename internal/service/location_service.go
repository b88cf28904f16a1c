package service

import (
	"context"
	"fmt"

	"chemdist-fulfillment/internal/core/domain"
	"chemdist-fulfillment/internal/core/ports"
	"chemdist-fulfillment/pkg/apperror"

	"github.com/google/uuid"
)

// locationRow is one entry of the static status -> location table.
type locationRow struct {
	department string
	location   string
	nextAction string
	priority   string
}

// locationTable answers "where is the order and what happens next" for every
// custody state. Operations staff read this, so it is recomputed from the
// authoritative status on each request and never cached.
var locationTable = map[domain.OrderStatus]locationRow{
	domain.StatusPendingPayment:      {"sales", "Awaiting customer payment", "Customer completes payment", "normal"},
	domain.StatusPaymentConfirmed:    {"sales", "Payment recorded", "Forward to financial review", "normal"},
	domain.StatusFinancialPending:    {"financial", "Financial review queue", "Financial reviewer approves or rejects", "high"},
	domain.StatusFinancialApproved:   {"financial", "Financial review passed", "Route to warehouse", "normal"},
	domain.StatusWarehousePending:    {"warehouse", "Warehouse preparation queue", "Warehouse operator picks and approves", "high"},
	domain.StatusWarehouseApproved:   {"warehouse", "Packed, ready for dispatch", "Logistics assigns vehicle and courier", "high"},
	domain.StatusLogisticsAssigned:   {"logistics", "Assigned to courier", "Courier starts processing", "normal"},
	domain.StatusLogisticsProcessing: {"logistics", "Being prepared for dispatch", "Dispatch the shipment", "normal"},
	domain.StatusLogisticsDispatched: {"logistics", "Left the warehouse", "Mark in transit", "normal"},
	domain.StatusInTransit:           {"logistics", "On the road to the customer", "Courier verifies delivery code", "high"},
	domain.StatusDelivered:           {"completed", "Delivered to customer", "None", "low"},
	domain.StatusCancelled:           {"cancelled", "Order cancelled", "None", "low"},
}

// LocationServiceImpl implements ports.LocationService.
type LocationServiceImpl struct {
	orderRepo ports.OrderRepository
}

// NewLocationService creates a new LocationServiceImpl.
func NewLocationService(orderRepo ports.OrderRepository) *LocationServiceImpl {
	return &LocationServiceImpl{orderRepo: orderRepo}
}

// Locate projects the order's custody state into a human-readable location.
func (s *LocationServiceImpl) Locate(ctx context.Context, orderID uuid.UUID) (*ports.OrderLocation, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get order: %w", err))
	}
	if order == nil {
		return nil, apperror.ErrOrderNotFound()
	}
	return project(order), nil
}

// LocateByNumber validates the M25 pattern before touching the database.
func (s *LocationServiceImpl) LocateByNumber(ctx context.Context, orderNumber string) (*ports.OrderLocation, error) {
	if !domain.ValidOrderNumber(orderNumber) {
		return nil, apperror.ErrInvalidOrderFormat(orderNumber)
	}
	order, err := s.orderRepo.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get order by number: %w", err))
	}
	if order == nil {
		return nil, apperror.ErrOrderNotFound()
	}
	return project(order), nil
}

func project(order *domain.Order) *ports.OrderLocation {
	row, ok := locationTable[order.CurrentStatus]
	if !ok {
		row = locationRow{"unknown", "Unknown", "Contact support", "high"}
	}
	return &ports.OrderLocation{
		OrderID:           order.ID,
		OrderNumber:       order.OrderNumber,
		CurrentStatus:     order.CurrentStatus,
		CurrentDepartment: row.department,
		CurrentLocation:   row.location,
		NextAction:        row.nextAction,
		Priority:          row.priority,
	}
}
