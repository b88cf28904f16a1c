package ports

import (
	"context"
	"time"

	"chemdist-fulfillment/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepository defines persistence for wallets and their ledger.
// Methods accepting pgx.Tx are used inside transaction blocks for pessimistic locking.
type WalletRepository interface {
	Create(ctx context.Context, tx pgx.Tx, wallet *domain.Wallet) error
	GetByCustomerID(ctx context.Context, customerID uuid.UUID) (*domain.Wallet, error)
	GetByCustomerIDForUpdate(ctx context.Context, tx pgx.Tx, customerID uuid.UUID) (*domain.Wallet, error)
	UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, newBalance int64) error
	InsertEntry(ctx context.Context, tx pgx.Tx, entry *domain.WalletLedgerEntry) error
	// SumEntries recomputes the balance from the ledger; used for integrity checks.
	SumEntries(ctx context.Context, customerID uuid.UUID) (int64, error)
	ListEntries(ctx context.Context, customerID uuid.UUID, limit int) ([]domain.WalletLedgerEntry, error)
}

// OrderRepository defines persistence for orders and their custody history.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetByNumber(ctx context.Context, orderNumber string) (*domain.Order, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Order, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.OrderStatus) error
	// SetPaymentSplit writes the write-once wallet/external split at confirmation.
	SetPaymentSplit(ctx context.Context, tx pgx.Tx, id uuid.UUID, method domain.PaymentMethod, walletAmount, externalAmount int64, graceDeadline *time.Time) error
	SetFinancialReview(ctx context.Context, tx pgx.Tx, id uuid.UUID, reviewerID uuid.UUID, notes string, reviewedAt time.Time) error
	SetLogisticsAssignment(ctx context.Context, tx pgx.Tx, id uuid.UUID, vehicle, courier string) error
	InsertStatusChange(ctx context.Context, tx pgx.Tx, change *domain.StatusChange) error
	ListStatusHistory(ctx context.Context, orderID uuid.UUID) ([]domain.StatusChange, error)
	CountByStatus(ctx context.Context) (map[domain.OrderStatus]int64, error)
}

// VerificationRepository defines persistence for delivery verification codes.
type VerificationRepository interface {
	Insert(ctx context.Context, tx pgx.Tx, v *domain.DeliveryVerification) error
	// GetActive returns the most recent active unused code, or nil.
	GetActive(ctx context.Context, orderID uuid.UUID) (*domain.DeliveryVerification, error)
	GetActiveForUpdate(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (*domain.DeliveryVerification, error)
	// GetLatestForUpdate returns the most recent code regardless of state;
	// the verify path uses it to tell "already verified" from "never issued".
	GetLatestForUpdate(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (*domain.DeliveryVerification, error)
	// Supersede deactivates every active code for the order; rows are kept.
	Supersede(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) error
	IncrementAttempts(ctx context.Context, tx pgx.Tx, id uuid.UUID) (int, error)
	MarkUsed(ctx context.Context, tx pgx.Tx, id uuid.UUID, verifiedBy string, notes *string, verifiedAt time.Time) error
	// MarkSMSSent is a best-effort flag update outside any transaction.
	MarkSMSSent(ctx context.Context, id uuid.UUID) error
	ListHistory(ctx context.Context, orderID uuid.UUID) ([]domain.DeliveryVerification, error)
}

// EventRepository is the transactional outbox for workflow events.
type EventRepository interface {
	Insert(ctx context.Context, tx pgx.Tx, event *domain.WorkflowEvent) error
	FetchUnpublished(ctx context.Context, limit int) ([]domain.WorkflowEvent, error)
	MarkPublished(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, publishErr error) error
}

// StaffRepository defines persistence for back-office accounts.
type StaffRepository interface {
	Create(ctx context.Context, staff *domain.Staff) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Staff, error)
	GetByUsername(ctx context.Context, username string) (*domain.Staff, error)
}

// AuditRepository persists audit log entries.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
