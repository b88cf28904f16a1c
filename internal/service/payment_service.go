package service

import (
	"context"
	"fmt"
	"time"

	"chemdist-fulfillment/internal/core/domain"
	"chemdist-fulfillment/internal/core/ports"
	"chemdist-fulfillment/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PaymentServiceImpl implements ports.PaymentService. Options are advisory
// until ConfirmPayment recomputes the split against the locked wallet row,
// so a balance that changed since the customer chose is always caught.
type PaymentServiceImpl struct {
	orderRepo  ports.OrderRepository
	walletRepo ports.WalletRepository
	walletSvc  ports.WalletService
	emitter    ports.EventEmitter
	transactor ports.DBTransactor
	graceDays  int
	currency   string
	log        zerolog.Logger
}

// NewPaymentService creates a new PaymentServiceImpl.
func NewPaymentService(
	orderRepo ports.OrderRepository,
	walletRepo ports.WalletRepository,
	walletSvc ports.WalletService,
	emitter ports.EventEmitter,
	transactor ports.DBTransactor,
	graceDays int,
	currency string,
	log zerolog.Logger,
) *PaymentServiceImpl {
	if graceDays <= 0 {
		graceDays = 3
	}
	return &PaymentServiceImpl{
		orderRepo:  orderRepo,
		walletRepo: walletRepo,
		walletSvc:  walletSvc,
		emitter:    emitter,
		transactor: transactor,
		graceDays:  graceDays,
		currency:   currency,
		log:        log,
	}
}

// ComputeOptions produces the legal payment options for an order draft.
// Every option satisfies walletAmount + bankAmount == total and requires
// manual financial review; there is no automatic settlement rail.
func (s *PaymentServiceImpl) ComputeOptions(ctx context.Context, customerID uuid.UUID, orderTotal, shippingCost int64) (*ports.PaymentOptions, error) {
	if orderTotal <= 0 || shippingCost < 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	balance, err := s.walletSvc.GetBalance(ctx, customerID)
	if err != nil {
		return nil, err
	}

	total := orderTotal + shippingCost
	options := buildOptions(total, balance, s.graceDays)

	return &ports.PaymentOptions{
		OrderTotal:    orderTotal,
		ShippingCost:  shippingCost,
		TotalAmount:   total,
		WalletBalance: balance,
		Currency:      s.currency,
		Options:       options,
	}, nil
}

// buildOptions assembles the option set for a given total and wallet balance.
func buildOptions(total, balance int64, graceDays int) map[domain.PaymentMethod]ports.PaymentOption {
	options := map[domain.PaymentMethod]ports.PaymentOption{
		domain.MethodBankGateway: {
			Method:                 domain.MethodBankGateway,
			Amount:                 total,
			WalletAmount:           0,
			BankAmount:             total,
			SourceLabel:            "Bank gateway payment",
			RequiresManualApproval: true,
		},
	}

	if balance >= total {
		options[domain.MethodWallet] = ports.PaymentOption{
			Method:                 domain.MethodWallet,
			Amount:                 total,
			WalletAmount:           total,
			BankAmount:             0,
			SourceLabel:            "Paid from wallet",
			RequiresManualApproval: true,
		}
	}

	if balance > 0 && balance < total {
		options[domain.MethodWalletPartial] = ports.PaymentOption{
			Method:                 domain.MethodWalletPartial,
			Amount:                 total,
			WalletAmount:           balance,
			BankAmount:             total - balance,
			SourceLabel:            "Combined: wallet + bank gateway",
			RequiresManualApproval: true,
		}
	}

	deadline := time.Now().UTC().AddDate(0, 0, graceDays)
	options[domain.MethodGracePeriod] = ports.PaymentOption{
		Method:                 domain.MethodGracePeriod,
		Amount:                 total,
		WalletAmount:           0,
		BankAmount:             total,
		SourceLabel:            fmt.Sprintf("%d-day grace period bank transfer", graceDays),
		RequiresManualApproval: true,
		GraceDeadline:          &deadline,
	}

	return options
}

// ConfirmPayment settles the chosen option against the wallet and hands the
// order to financial review. The wallet debit, the write-once split fields
// and the custody transition commit or roll back as one unit.
func (s *PaymentServiceImpl) ConfirmPayment(ctx context.Context, orderID uuid.UUID, method domain.PaymentMethod, actor string) (*domain.Order, error) {
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
	if order.PaymentConfirmed() {
		return nil, apperror.ErrPaymentAlreadyConfirmed()
	}
	if _, ok := domain.NextStatus(order.CurrentStatus, domain.ActionConfirmPayment); !ok {
		return nil, apperror.ErrIllegalTransition(string(order.CurrentStatus), string(domain.ActionConfirmPayment))
	}

	// Re-read the balance under the wallet lock; the customer-facing options
	// may be stale by now.
	wallet, err := s.walletRepo.GetByCustomerIDForUpdate(ctx, dbTx, order.CustomerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	balance := int64(0)
	if wallet != nil {
		balance = wallet.Balance
	}

	options := buildOptions(order.TotalAmount+order.ShippingCost, balance, s.graceDays)
	option, ok := options[method]
	if !ok {
		return nil, apperror.ErrUnknownPaymentOption(string(method))
	}
	if option.WalletAmount > balance {
		return nil, apperror.ErrInsufficientWalletBalance()
	}

	if option.WalletAmount > 0 {
		if _, _, err := s.walletSvc.AppendEntryTx(ctx, dbTx, ports.AppendEntryRequest{
			CustomerID:     order.CustomerID,
			Amount:         -option.WalletAmount,
			Kind:           domain.EntryPurchaseDebit,
			RelatedOrderID: &order.ID,
			Description:    fmt.Sprintf("Purchase debit for order %s", order.OrderNumber),
			Actor:          actor,
		}); err != nil {
			return nil, err
		}
	}

	if err := s.orderRepo.SetPaymentSplit(ctx, dbTx, order.ID, method, option.WalletAmount, option.BankAmount, option.GraceDeadline); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("write payment split: %w", err))
	}

	// pending_payment -> payment_confirmed -> financial_pending, both hops
	// recorded in the custody history.
	if err := applyTransition(ctx, s.orderRepo, dbTx, order, domain.ActionConfirmPayment, actor, nil); err != nil {
		return nil, err
	}
	if err := applyTransition(ctx, s.orderRepo, dbTx, order, domain.ActionSubmitFinancial, domain.SystemActor, nil); err != nil {
		return nil, err
	}

	order.PaymentMethod = method
	order.WalletAmountApplied = &option.WalletAmount
	order.ExternalAmountApplied = &option.BankAmount
	order.PaymentGraceDeadline = option.GraceDeadline

	event, err := domain.NewOrderEvent(domain.EventPaymentConfirmed, order.ID, map[string]any{
		"order_number":  order.OrderNumber,
		"method":        method,
		"wallet_amount": option.WalletAmount,
		"bank_amount":   option.BankAmount,
		"total":         option.Amount,
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
		Str("method", string(method)).
		Int64("wallet_amount", option.WalletAmount).
		Int64("bank_amount", option.BankAmount).
		Msg("payment confirmed")

	return order, nil
}
