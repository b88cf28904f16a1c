package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"chemdist-fulfillment/internal/core/domain"
	"chemdist-fulfillment/internal/core/ports"
	"chemdist-fulfillment/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// DeliveryServiceImpl implements ports.DeliveryService. The active code is
// always the most recent active unused row; regenerating supersedes older
// rows but keeps them for the audit trail.
type DeliveryServiceImpl struct {
	orderRepo        ports.OrderRepository
	verificationRepo ports.VerificationRepository
	smsSender        ports.SMSSender
	emitter          ports.EventEmitter
	transactor       ports.DBTransactor
	log              zerolog.Logger
}

// NewDeliveryService creates a new DeliveryServiceImpl.
func NewDeliveryService(
	orderRepo ports.OrderRepository,
	verificationRepo ports.VerificationRepository,
	smsSender ports.SMSSender,
	emitter ports.EventEmitter,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *DeliveryServiceImpl {
	return &DeliveryServiceImpl{
		orderRepo:        orderRepo,
		verificationRepo: verificationRepo,
		smsSender:        smsSender,
		emitter:          emitter,
		transactor:       transactor,
		log:              log,
	}
}

// newCode draws a uniformly random 4-digit code.
func newCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", fmt.Errorf("generating verification code: %w", err)
	}
	return fmt.Sprintf("%04d", n.Int64()+1000), nil
}

// IssueCodeTx supersedes any active code and inserts a fresh one inside the
// caller's transaction. The caller is responsible for SMS notification after
// commit.
func (s *DeliveryServiceImpl) IssueCodeTx(ctx context.Context, tx pgx.Tx, order *domain.Order) (*domain.DeliveryVerification, error) {
	code, err := newCode()
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	if err := s.verificationRepo.Supersede(ctx, tx, order.ID); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("supersede old codes: %w", err))
	}

	verification := &domain.DeliveryVerification{
		ID:               uuid.New(),
		OrderID:          order.ID,
		VerificationCode: code,
		IsActive:         true,
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.verificationRepo.Insert(ctx, tx, verification); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("insert verification code: %w", err))
	}

	event, err := domain.NewOrderEvent(domain.EventDeliveryCodeIssued, order.ID, map[string]any{
		"order_number":    order.OrderNumber,
		"verification_id": verification.ID,
	})
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("build event: %w", err))
	}
	if err := s.emitter.Record(ctx, tx, event); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("record event: %w", err))
	}

	return verification, nil
}

// GenerateCode issues a fresh code for an order that has passed warehouse
// approval but not yet been delivered or cancelled.
func (s *DeliveryServiceImpl) GenerateCode(ctx context.Context, orderID uuid.UUID) (*domain.DeliveryVerification, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	order, err := s.orderRepo.GetByIDForUpdate(ctx, dbTx, orderID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock order: %w", err))
	}
	if order == nil {
		return nil, apperror.ErrOrderNotFound()
	}
	if !order.CurrentStatus.Reached(domain.StatusWarehouseApproved) || order.CurrentStatus == domain.StatusDelivered {
		return nil, apperror.ErrIllegalTransition(string(order.CurrentStatus), "generate_delivery_code")
	}

	verification, err := s.IssueCodeTx(ctx, dbTx, order)
	if err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.NotifyCode(ctx, verification, order.OrderNumber)

	s.log.Info().Str("order_number", order.OrderNumber).Msg("delivery verification code regenerated")
	return verification, nil
}

// NotifyCode sends the code by SMS. Failure is logged and swallowed: the
// code and any state transition it rode along with must stand regardless.
func (s *DeliveryServiceImpl) NotifyCode(ctx context.Context, v *domain.DeliveryVerification, orderNumber string) {
	if s.smsSender == nil {
		return
	}
	if err := s.smsSender.SendVerificationCode(ctx, orderNumber, v.VerificationCode); err != nil {
		s.log.Warn().Err(err).Str("order_number", orderNumber).Msg("verification SMS send failed")
		return
	}
	if err := s.verificationRepo.MarkSMSSent(ctx, v.ID); err != nil {
		s.log.Warn().Err(err).Str("verification_id", v.ID.String()).Msg("failed to flag verification SMS as sent")
		return
	}
	v.SMSSent = true
}

// IncrementAttempt records a failed physical delivery attempt against the
// active code. It never invalidates the code; wrong-code submissions are a
// separate, explicit failure mode.
func (s *DeliveryServiceImpl) IncrementAttempt(ctx context.Context, orderID uuid.UUID) (int, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	verification, err := s.verificationRepo.GetActiveForUpdate(ctx, dbTx, orderID)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("lock verification: %w", err))
	}
	if verification == nil {
		return 0, apperror.ErrNoActiveVerification()
	}

	attempts, err := s.verificationRepo.IncrementAttempts(ctx, dbTx, verification.ID)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("increment attempts: %w", err))
	}

	event, err := domain.NewOrderEvent(domain.EventDeliveryAttempt, orderID, map[string]any{
		"verification_id": verification.ID,
		"attempts":        attempts,
	})
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("build event: %w", err))
	}
	if err := s.emitter.Record(ctx, dbTx, event); err != nil {
		return 0, apperror.InternalError(fmt.Errorf("record event: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return 0, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	s.emitter.Dispatch(event)

	s.log.Info().Str("order_id", orderID.String()).Int("attempts", attempts).Msg("delivery attempt recorded")
	return attempts, nil
}

// Verify checks the submitted code against the active one and, on match,
// flips is_used and moves the order to delivered in the same transaction.
// Double submission fails with AlreadyVerified; the delivered transition
// fires exactly once.
func (s *DeliveryServiceImpl) Verify(ctx context.Context, req ports.VerifyDeliveryRequest) (*domain.Order, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	order, err := s.orderRepo.GetByIDForUpdate(ctx, dbTx, req.OrderID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock order: %w", err))
	}
	if order == nil {
		return nil, apperror.ErrOrderNotFound()
	}

	verification, err := s.verificationRepo.GetActiveForUpdate(ctx, dbTx, req.OrderID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock verification: %w", err))
	}
	if verification == nil {
		// Distinguish a consumed code from one that was never issued.
		latest, err := s.verificationRepo.GetLatestForUpdate(ctx, dbTx, req.OrderID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("get latest verification: %w", err))
		}
		if latest != nil && latest.IsUsed {
			return nil, apperror.ErrAlreadyVerified()
		}
		return nil, apperror.ErrNoActiveVerification()
	}
	if verification.VerificationCode != req.Code {
		// Attempt tracking stays a separate explicit action so the UI can
		// tell "wrong code entered" from "courier failed to deliver".
		return nil, apperror.ErrInvalidCode()
	}

	if err := applyTransition(ctx, s.orderRepo, dbTx, order, domain.ActionDeliver, req.CourierName, nil); err != nil {
		return nil, err
	}

	verifiedAt := time.Now().UTC()
	var notes *string
	if req.Notes != "" {
		notes = &req.Notes
	}
	if err := s.verificationRepo.MarkUsed(ctx, dbTx, verification.ID, req.CourierName, notes, verifiedAt); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("mark verification used: %w", err))
	}

	event, err := domain.NewOrderEvent(domain.EventOrderDelivered, order.ID, map[string]any{
		"order_number": order.OrderNumber,
		"courier":      req.CourierName,
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

	s.log.Info().
		Str("order_number", order.OrderNumber).
		Str("courier", req.CourierName).
		Msg("delivery verified, order delivered")
	return order, nil
}

// History returns every verification row ever issued for the order.
func (s *DeliveryServiceImpl) History(ctx context.Context, orderID uuid.UUID) ([]domain.DeliveryVerification, error) {
	rows, err := s.verificationRepo.ListHistory(ctx, orderID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list verification history: %w", err))
	}
	return rows, nil
}
