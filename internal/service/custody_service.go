package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chemdist-fulfillment/internal/core/domain"
	"chemdist-fulfillment/internal/core/ports"
	"chemdist-fulfillment/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// CustodyServiceImpl implements ports.CustodyService. Every transition locks
// the order row, re-checks the current status against the custody table and
// appends a history row in the same transaction, so two admins racing on the
// same order cannot both succeed.
type CustodyServiceImpl struct {
	orderRepo  ports.OrderRepository
	walletSvc  ports.WalletService
	delivery   ports.DeliveryService
	emitter    ports.EventEmitter
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewCustodyService creates a new CustodyServiceImpl.
func NewCustodyService(
	orderRepo ports.OrderRepository,
	walletSvc ports.WalletService,
	delivery ports.DeliveryService,
	emitter ports.EventEmitter,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *CustodyServiceImpl {
	return &CustodyServiceImpl{
		orderRepo:  orderRepo,
		walletSvc:  walletSvc,
		delivery:   delivery,
		emitter:    emitter,
		transactor: transactor,
		log:        log,
	}
}

// applyTransition validates one custody hop against the table, persists the
// new status and appends the history row. The order's in-memory status is
// advanced so chained hops validate against the fresh state.
func applyTransition(ctx context.Context, repo ports.OrderRepository, tx pgx.Tx, order *domain.Order, action domain.Action, changedBy string, notes *string) error {
	next, ok := domain.NextStatus(order.CurrentStatus, action)
	if !ok {
		return apperror.ErrIllegalTransition(string(order.CurrentStatus), string(action))
	}
	if err := repo.UpdateStatus(ctx, tx, order.ID, next); err != nil {
		return apperror.InternalError(fmt.Errorf("update status: %w", err))
	}
	change := &domain.StatusChange{
		ID:         uuid.New(),
		OrderID:    order.ID,
		FromStatus: order.CurrentStatus,
		ToStatus:   next,
		Action:     action,
		ChangedBy:  changedBy,
		Notes:      notes,
		CreatedAt:  time.Now().UTC(),
	}
	if err := repo.InsertStatusChange(ctx, tx, change); err != nil {
		return apperror.InternalError(fmt.Errorf("insert status history: %w", err))
	}
	order.CurrentStatus = next
	return nil
}

// lockOrder begins a transaction and fetches the order under FOR UPDATE.
func (s *CustodyServiceImpl) lockOrder(ctx context.Context, orderID uuid.UUID) (pgx.Tx, *domain.Order, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	order, err := s.orderRepo.GetByIDForUpdate(ctx, dbTx, orderID)
	if err != nil {
		_ = dbTx.Rollback(ctx)
		return nil, nil, apperror.InternalError(fmt.Errorf("lock order: %w", err))
	}
	if order == nil {
		_ = dbTx.Rollback(ctx)
		return nil, nil, apperror.ErrOrderNotFound()
	}
	return dbTx, order, nil
}

func checkRole(action domain.Action, actor ports.Actor) error {
	if !domain.ActionAllowed(action, actor.Role) {
		return apperror.ErrActorRoleNotAllowed(string(actor.Role), string(action))
	}
	return nil
}

// ApproveFinancial moves financial_pending -> financial_approved and routes
// the order straight into the warehouse queue. Notes and reviewer identity
// are mandatory; the review timestamp is stamped here.
func (s *CustodyServiceImpl) ApproveFinancial(ctx context.Context, orderID uuid.UUID, actor ports.Actor, notes string) (*domain.Order, error) {
	if err := checkRole(domain.ActionApproveFinancial, actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(notes) == "" {
		return nil, apperror.ErrNotesRequired()
	}

	dbTx, order, err := s.lockOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := applyTransition(ctx, s.orderRepo, dbTx, order, domain.ActionApproveFinancial, actor.Username, &notes); err != nil {
		return nil, err
	}

	reviewedAt := time.Now().UTC()
	if err := s.orderRepo.SetFinancialReview(ctx, dbTx, order.ID, actor.ID, notes, reviewedAt); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("stamp financial review: %w", err))
	}

	// Custody hands over to the warehouse immediately after approval.
	if err := applyTransition(ctx, s.orderRepo, dbTx, order, domain.ActionRouteToWarehouse, domain.SystemActor, nil); err != nil {
		return nil, err
	}

	event, err := domain.NewOrderEvent(domain.EventFinancialApproved, order.ID, map[string]any{
		"order_number": order.OrderNumber,
		"reviewer":     actor.Username,
	})
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("build event: %w", err))
	}
	if err := s.emitter.Record(ctx, dbTx, event); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("record event: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	s.emitter.Dispatch(event)

	order.FinancialReviewerID = &actor.ID
	order.FinancialReviewedAt = &reviewedAt
	order.FinancialNotes = &notes

	s.log.Info().Str("order_number", order.OrderNumber).Str("reviewer", actor.Username).Msg("financial review approved")
	return order, nil
}

// RejectFinancial cancels the order and refunds any wallet funds already
// applied. The refund commits with the cancellation or not at all; a
// cancelled-but-unrefunded order must never persist.
func (s *CustodyServiceImpl) RejectFinancial(ctx context.Context, orderID uuid.UUID, actor ports.Actor, notes string) (*domain.Order, error) {
	if err := checkRole(domain.ActionRejectFinancial, actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(notes) == "" {
		return nil, apperror.ErrNotesRequired()
	}

	dbTx, order, err := s.lockOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := applyTransition(ctx, s.orderRepo, dbTx, order, domain.ActionRejectFinancial, actor.Username, &notes); err != nil {
		return nil, err
	}

	if err := s.refundWalletShare(ctx, dbTx, order, actor.Username); err != nil {
		return nil, err
	}

	reviewedAt := time.Now().UTC()
	if err := s.orderRepo.SetFinancialReview(ctx, dbTx, order.ID, actor.ID, notes, reviewedAt); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("stamp financial review: %w", err))
	}

	event, err := domain.NewOrderEvent(domain.EventFinancialRejected, order.ID, map[string]any{
		"order_number": order.OrderNumber,
		"reviewer":     actor.Username,
		"notes":        notes,
	})
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("build event: %w", err))
	}
	if err := s.emitter.Record(ctx, dbTx, event); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("record event: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	s.emitter.Dispatch(event)

	s.log.Info().Str("order_number", order.OrderNumber).Str("reviewer", actor.Username).Msg("financial review rejected, order cancelled")
	return order, nil
}

// refundWalletShare appends the compensating refund_credit for a cancelled
// order. Skipped when no wallet funds were applied.
func (s *CustodyServiceImpl) refundWalletShare(ctx context.Context, tx pgx.Tx, order *domain.Order, actor string) error {
	if order.WalletAmountApplied == nil || *order.WalletAmountApplied == 0 {
		return nil
	}
	_, _, err := s.walletSvc.AppendEntryTx(ctx, tx, ports.AppendEntryRequest{
		CustomerID:     order.CustomerID,
		Amount:         *order.WalletAmountApplied,
		Kind:           domain.EntryRefundCredit,
		RelatedOrderID: &order.ID,
		Description:    fmt.Sprintf("Refund for cancelled order %s", order.OrderNumber),
		Actor:          actor,
	})
	return err
}

// ApproveWarehouse moves warehouse_pending -> warehouse_approved and issues
// the first delivery verification code in the same transaction. A
// warehouse-approved order without an active code is an invariant violation.
func (s *CustodyServiceImpl) ApproveWarehouse(ctx context.Context, orderID uuid.UUID, actor ports.Actor) (*domain.Order, *domain.DeliveryVerification, error) {
	if err := checkRole(domain.ActionApproveWarehouse, actor); err != nil {
		return nil, nil, err
	}

	dbTx, order, err := s.lockOrder(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := applyTransition(ctx, s.orderRepo, dbTx, order, domain.ActionApproveWarehouse, actor.Username, nil); err != nil {
		return nil, nil, err
	}

	verification, err := s.delivery.IssueCodeTx(ctx, dbTx, order)
	if err != nil {
		return nil, nil, err
	}

	event, err := domain.NewOrderEvent(domain.EventWarehouseApproved, order.ID, map[string]any{
		"order_number": order.OrderNumber,
		"operator":     actor.Username,
	})
	if err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("build event: %w", err))
	}
	if err := s.emitter.Record(ctx, dbTx, event); err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("record event: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	s.emitter.Dispatch(event)

	// SMS is best effort and logged; the approval stands regardless.
	s.delivery.NotifyCode(ctx, verification, order.OrderNumber)

	s.log.Info().Str("order_number", order.OrderNumber).Str("operator", actor.Username).Msg("warehouse approved, verification code issued")
	return order, verification, nil
}

// AssignLogistics records the courier/vehicle pairing and moves the order
// into logistics custody.
func (s *CustodyServiceImpl) AssignLogistics(ctx context.Context, orderID uuid.UUID, actor ports.Actor, assignment ports.VehicleAssignment) (*domain.Order, error) {
	if err := checkRole(domain.ActionAssignLogistics, actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(assignment.Vehicle) == "" {
		return nil, apperror.Validation("vehicle assignment is required")
	}

	dbTx, order, err := s.lockOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := applyTransition(ctx, s.orderRepo, dbTx, order, domain.ActionAssignLogistics, actor.Username, nil); err != nil {
		return nil, err
	}
	if err := s.orderRepo.SetLogisticsAssignment(ctx, dbTx, order.ID, assignment.Vehicle, assignment.Courier); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("set logistics assignment: %w", err))
	}

	event, err := domain.NewOrderEvent(domain.EventLogisticsAssigned, order.ID, map[string]any{
		"order_number": order.OrderNumber,
		"vehicle":      assignment.Vehicle,
		"courier":      assignment.Courier,
	})
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("build event: %w", err))
	}
	if err := s.emitter.Record(ctx, dbTx, event); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("record event: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	s.emitter.Dispatch(event)

	order.AssignedVehicle = &assignment.Vehicle
	order.AssignedCourier = &assignment.Courier

	s.log.Info().Str("order_number", order.OrderNumber).Str("vehicle", assignment.Vehicle).Msg("logistics assigned")
	return order, nil
}

// StartProcessing moves logistics_assigned -> logistics_processing.
func (s *CustodyServiceImpl) StartProcessing(ctx context.Context, orderID uuid.UUID, actor ports.Actor) (*domain.Order, error) {
	return s.simpleTransition(ctx, orderID, actor, domain.ActionStartProcessing, "")
}

// Dispatch moves logistics_processing -> logistics_dispatched.
func (s *CustodyServiceImpl) Dispatch(ctx context.Context, orderID uuid.UUID, actor ports.Actor) (*domain.Order, error) {
	return s.simpleTransition(ctx, orderID, actor, domain.ActionDispatch, domain.EventOrderDispatched)
}

// MarkInTransit moves logistics_dispatched -> in_transit.
func (s *CustodyServiceImpl) MarkInTransit(ctx context.Context, orderID uuid.UUID, actor ports.Actor) (*domain.Order, error) {
	return s.simpleTransition(ctx, orderID, actor, domain.ActionMarkInTransit, domain.EventOrderInTransit)
}

// simpleTransition handles the logistics hops that move custody without
// touching money or verification codes.
func (s *CustodyServiceImpl) simpleTransition(ctx context.Context, orderID uuid.UUID, actor ports.Actor, action domain.Action, eventType domain.EventType) (*domain.Order, error) {
	if err := checkRole(action, actor); err != nil {
		return nil, err
	}

	dbTx, order, err := s.lockOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := applyTransition(ctx, s.orderRepo, dbTx, order, action, actor.Username, nil); err != nil {
		return nil, err
	}

	var event *domain.WorkflowEvent
	if eventType != "" {
		event, err = domain.NewOrderEvent(eventType, order.ID, map[string]any{
			"order_number": order.OrderNumber,
			"actor":        actor.Username,
		})
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("build event: %w", err))
		}
		if err := s.emitter.Record(ctx, dbTx, event); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("record event: %w", err))
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	if event != nil {
		s.emitter.Dispatch(event)
	}

	s.log.Info().Str("order_number", order.OrderNumber).Str("action", string(action)).Msg("custody transition applied")
	return order, nil
}

// Cancel moves any non-terminal order to cancelled with its compensating
// wallet refund, in one transaction.
func (s *CustodyServiceImpl) Cancel(ctx context.Context, orderID uuid.UUID, actor ports.Actor, notes string) (*domain.Order, error) {
	if err := checkRole(domain.ActionCancel, actor); err != nil {
		return nil, err
	}

	dbTx, order, err := s.lockOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	var notesPtr *string
	if strings.TrimSpace(notes) != "" {
		notesPtr = &notes
	}
	if err := applyTransition(ctx, s.orderRepo, dbTx, order, domain.ActionCancel, actor.Username, notesPtr); err != nil {
		return nil, err
	}

	if err := s.refundWalletShare(ctx, dbTx, order, actor.Username); err != nil {
		return nil, err
	}

	event, err := domain.NewOrderEvent(domain.EventOrderCancelled, order.ID, map[string]any{
		"order_number": order.OrderNumber,
		"actor":        actor.Username,
		"notes":        notes,
	})
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("build event: %w", err))
	}
	if err := s.emitter.Record(ctx, dbTx, event); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("record event: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	s.emitter.Dispatch(event)

	s.log.Info().Str("order_number", order.OrderNumber).Str("actor", actor.Username).Msg("order cancelled")
	return order, nil
}
