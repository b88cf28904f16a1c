package service

import (
	"context"
	"fmt"
	"time"

	"chemdist-fulfillment/internal/core/domain"
	"chemdist-fulfillment/internal/core/ports"
	"chemdist-fulfillment/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// WalletServiceImpl implements ports.WalletService. The wallets.balance
// column is a materialization of the ledger: both are written in the same
// transaction, and Reconcile can prove them equal at any time.
type WalletServiceImpl struct {
	walletRepo ports.WalletRepository
	orderRepo  ports.OrderRepository
	emitter    ports.EventEmitter
	transactor ports.DBTransactor
	currency   string
	log        zerolog.Logger
}

// NewWalletService creates a new WalletServiceImpl.
func NewWalletService(
	walletRepo ports.WalletRepository,
	orderRepo ports.OrderRepository,
	emitter ports.EventEmitter,
	transactor ports.DBTransactor,
	currency string,
	log zerolog.Logger,
) *WalletServiceImpl {
	return &WalletServiceImpl{
		walletRepo: walletRepo,
		orderRepo:  orderRepo,
		emitter:    emitter,
		transactor: transactor,
		currency:   currency,
		log:        log,
	}
}

// AppendEntry appends a ledger entry in its own transaction and returns the
// new balance.
func (s *WalletServiceImpl) AppendEntry(ctx context.Context, req ports.AppendEntryRequest) (*domain.WalletLedgerEntry, int64, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	entry, newBalance, err := s.AppendEntryTx(ctx, dbTx, req)
	if err != nil {
		return nil, 0, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	return entry, newBalance, nil
}

// AppendEntryTx appends a ledger entry inside the caller's transaction.
// The wallet row is locked for the duration so balance check and update are
// one atomic unit. A customer without a wallet gets one created with zero
// balance rather than failing, to avoid orphaned state.
func (s *WalletServiceImpl) AppendEntryTx(ctx context.Context, tx pgx.Tx, req ports.AppendEntryRequest) (*domain.WalletLedgerEntry, int64, error) {
	if req.Amount == 0 {
		return nil, 0, apperror.ErrInvalidAmount()
	}
	if !req.Kind.IsValid() {
		return nil, 0, apperror.Validation(fmt.Sprintf("unknown ledger entry kind %q", req.Kind))
	}

	wallet, err := s.walletRepo.GetByCustomerIDForUpdate(ctx, tx, req.CustomerID)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		now := time.Now().UTC()
		wallet = &domain.Wallet{
			ID:         uuid.New(),
			CustomerID: req.CustomerID,
			Balance:    0,
			Currency:   s.currency,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.walletRepo.Create(ctx, tx, wallet); err != nil {
			return nil, 0, apperror.InternalError(fmt.Errorf("create wallet: %w", err))
		}
		s.log.Info().Str("customer_id", req.CustomerID.String()).Msg("wallet auto-created on first ledger entry")
	}

	// Debits must not push the balance negative.
	newBalance := wallet.Balance + req.Amount
	if req.Amount < 0 && newBalance < 0 {
		return nil, 0, apperror.ErrInsufficientWalletBalance()
	}

	actor := req.Actor
	if actor == "" {
		actor = domain.SystemActor
	}

	entry := &domain.WalletLedgerEntry{
		ID:             uuid.New(),
		CustomerID:     req.CustomerID,
		WalletID:       wallet.ID,
		Amount:         req.Amount,
		Kind:           req.Kind,
		RelatedOrderID: req.RelatedOrderID,
		Description:    req.Description,
		CreatedBy:      actor,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.walletRepo.InsertEntry(ctx, tx, entry); err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("insert ledger entry: %w", err))
	}
	if err := s.walletRepo.UpdateBalance(ctx, tx, wallet.ID, newBalance); err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("update balance: %w", err))
	}

	event, err := domain.NewCustomerEvent(domain.EventWalletEntryAppended, req.CustomerID, map[string]any{
		"entry_id":    entry.ID,
		"kind":        entry.Kind,
		"amount":      entry.Amount,
		"new_balance": newBalance,
		"actor":       actor,
	})
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("build wallet event: %w", err))
	}
	if err := s.emitter.Record(ctx, tx, event); err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("record wallet event: %w", err))
	}

	s.log.Info().
		Str("customer_id", req.CustomerID.String()).
		Str("kind", string(req.Kind)).
		Int64("amount", req.Amount).
		Int64("new_balance", newBalance).
		Msg("ledger entry appended")

	return entry, newBalance, nil
}

// GetBalance returns the materialized balance; a customer without a wallet
// simply has a zero balance.
func (s *WalletServiceImpl) GetBalance(ctx context.Context, customerID uuid.UUID) (int64, error) {
	wallet, err := s.walletRepo.GetByCustomerID(ctx, customerID)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return 0, nil
	}
	return wallet.Balance, nil
}

// ApplyCorrection resolves the order reference, appends a manual_correction
// entry and reports old/new balance. The sign alone classifies the
// correction: positive means overpayment owed back, negative means money
// still owed by the customer.
func (s *WalletServiceImpl) ApplyCorrection(ctx context.Context, req ports.CorrectionRequest) (*ports.CorrectionResult, error) {
	if !domain.ValidOrderNumber(req.OrderNumber) {
		return nil, apperror.ErrInvalidOrderFormat(req.OrderNumber)
	}
	if req.Amount == 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	order, err := s.orderRepo.GetByNumber(ctx, req.OrderNumber)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find order: %w", err))
	}
	if order == nil {
		return nil, apperror.ErrOrderNotFound()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	entry, newBalance, err := s.AppendEntryTx(ctx, dbTx, ports.AppendEntryRequest{
		CustomerID:     order.CustomerID,
		Amount:         req.Amount,
		Kind:           domain.EntryManualCorrection,
		RelatedOrderID: &order.ID,
		Description:    req.Description,
		Actor:          req.Actor,
	})
	if err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	result := &ports.CorrectionResult{
		TransactionID:  entry.ID,
		CustomerID:     order.CustomerID,
		OrderNumber:    req.OrderNumber,
		Amount:         req.Amount,
		CorrectionType: domain.ClassifyCorrection(req.Amount),
		OldBalance:     newBalance - req.Amount,
		NewBalance:     newBalance,
	}

	s.log.Info().
		Str("order_number", req.OrderNumber).
		Str("correction_type", string(result.CorrectionType)).
		Int64("amount", req.Amount).
		Str("actor", req.Actor).
		Msg("wallet correction applied")

	return result, nil
}

// Recharge credits a confirmed top-up to the customer's wallet.
func (s *WalletServiceImpl) Recharge(ctx context.Context, customerID uuid.UUID, amount int64, actor string) (*domain.WalletLedgerEntry, int64, error) {
	if amount <= 0 {
		return nil, 0, apperror.ErrInvalidAmount()
	}
	return s.AppendEntry(ctx, ports.AppendEntryRequest{
		CustomerID:  customerID,
		Amount:      amount,
		Kind:        domain.EntryRechargeCredit,
		Description: "Wallet recharge",
		Actor:       actor,
	})
}

// Reconcile proves the materialized balance against the ledger sum.
func (s *WalletServiceImpl) Reconcile(ctx context.Context, customerID uuid.UUID) (*ports.ReconcileResult, error) {
	wallet, err := s.walletRepo.GetByCustomerID(ctx, customerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrUnknownCustomer()
	}

	sum, err := s.walletRepo.SumEntries(ctx, customerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("sum ledger entries: %w", err))
	}

	result := &ports.ReconcileResult{
		CustomerID:        customerID,
		MaterializedValue: wallet.Balance,
		LedgerSum:         sum,
		Consistent:        wallet.Balance == sum,
	}
	if !result.Consistent {
		s.log.Error().
			Str("customer_id", customerID.String()).
			Int64("materialized", wallet.Balance).
			Int64("ledger_sum", sum).
			Msg("wallet balance diverged from ledger")
	}
	return result, nil
}

// ListEntries returns the newest ledger entries for a customer.
func (s *WalletServiceImpl) ListEntries(ctx context.Context, customerID uuid.UUID, limit int) ([]domain.WalletLedgerEntry, error) {
	entries, err := s.walletRepo.ListEntries(ctx, customerID, limit)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list ledger entries: %w", err))
	}
	return entries, nil
}
