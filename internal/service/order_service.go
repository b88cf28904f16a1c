package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"chemdist-fulfillment/internal/core/domain"
	"chemdist-fulfillment/internal/core/ports"
	"chemdist-fulfillment/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OrderServiceImpl implements ports.OrderService. It owns intake and reads;
// every mutation after intake goes through the custody state machine.
type OrderServiceImpl struct {
	orderRepo ports.OrderRepository
	currency  string
	log       zerolog.Logger
}

// NewOrderService creates a new OrderServiceImpl.
func NewOrderService(orderRepo ports.OrderRepository, currency string, log zerolog.Logger) *OrderServiceImpl {
	return &OrderServiceImpl{
		orderRepo: orderRepo,
		currency:  currency,
		log:       log,
	}
}

// Create registers an order in its initial custody state.
func (s *OrderServiceImpl) Create(ctx context.Context, req ports.CreateOrderRequest) (*domain.Order, error) {
	if !domain.ValidOrderNumber(req.OrderNumber) {
		return nil, apperror.ErrInvalidOrderFormat(req.OrderNumber)
	}
	if req.TotalAmount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.ShippingCost < 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	existing, err := s.orderRepo.GetByNumber(ctx, req.OrderNumber)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check order number: %w", err))
	}
	if existing != nil {
		return nil, apperror.New("CNF_005", fmt.Sprintf("Order %s already exists", req.OrderNumber), http.StatusConflict)
	}

	now := time.Now().UTC()
	order := &domain.Order{
		ID:            uuid.New(),
		OrderNumber:   req.OrderNumber,
		CustomerID:    req.CustomerID,
		TotalAmount:   req.TotalAmount,
		ShippingCost:  req.ShippingCost,
		Currency:      s.currency,
		CurrentStatus: domain.StatusPendingPayment,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create order: %w", err))
	}

	s.log.Info().
		Str("order_number", order.OrderNumber).
		Int64("total_amount", order.TotalAmount).
		Msg("order registered")

	return order, nil
}

// Get fetches an order by id.
func (s *OrderServiceImpl) Get(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get order: %w", err))
	}
	if order == nil {
		return nil, apperror.ErrOrderNotFound()
	}
	return order, nil
}

// GetByNumber fetches an order by its external number, validating the format
// before touching the database.
func (s *OrderServiceImpl) GetByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
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
	return order, nil
}

// History returns the order's full custody trail.
func (s *OrderServiceImpl) History(ctx context.Context, orderID uuid.UUID) ([]domain.StatusChange, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get order: %w", err))
	}
	if order == nil {
		return nil, apperror.ErrOrderNotFound()
	}
	history, err := s.orderRepo.ListStatusHistory(ctx, orderID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list status history: %w", err))
	}
	return history, nil
}
