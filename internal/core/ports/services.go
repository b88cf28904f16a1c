package ports

import (
	"context"
	"time"

	"chemdist-fulfillment/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// --- Wallet Ledger ---

// AppendEntryRequest holds validated input for a ledger append.
type AppendEntryRequest struct {
	CustomerID     uuid.UUID
	Amount         int64 // Signed: positive credit, negative debit
	Kind           domain.EntryKind
	RelatedOrderID *uuid.UUID
	Description    string
	Actor          string
}

// CorrectionRequest is an admin-initiated signed balance adjustment tied to
// an order reference.
type CorrectionRequest struct {
	OrderNumber string // Must match M25#####
	Amount      int64  // Signed
	Description string
	Actor       string
}

// CorrectionResult reports the applied correction back to the caller.
type CorrectionResult struct {
	TransactionID  uuid.UUID
	CustomerID     uuid.UUID
	OrderNumber    string
	Amount         int64
	CorrectionType domain.CorrectionType
	OldBalance     int64
	NewBalance     int64
}

// ReconcileResult compares the materialized balance against the ledger sum.
type ReconcileResult struct {
	CustomerID        uuid.UUID
	MaterializedValue int64
	LedgerSum         int64
	Consistent        bool
}

// WalletService is the append-only wallet ledger.
type WalletService interface {
	AppendEntry(ctx context.Context, req AppendEntryRequest) (*domain.WalletLedgerEntry, int64, error)
	// AppendEntryTx appends inside a caller-owned transaction so money moves
	// atomically with the state change that caused them.
	AppendEntryTx(ctx context.Context, tx pgx.Tx, req AppendEntryRequest) (*domain.WalletLedgerEntry, int64, error)
	GetBalance(ctx context.Context, customerID uuid.UUID) (int64, error)
	ApplyCorrection(ctx context.Context, req CorrectionRequest) (*CorrectionResult, error)
	Recharge(ctx context.Context, customerID uuid.UUID, amount int64, actor string) (*domain.WalletLedgerEntry, int64, error)
	Reconcile(ctx context.Context, customerID uuid.UUID) (*ReconcileResult, error)
	ListEntries(ctx context.Context, customerID uuid.UUID, limit int) ([]domain.WalletLedgerEntry, error)
}

// --- Orders ---

// CreateOrderRequest registers an order with the workflow.
type CreateOrderRequest struct {
	OrderNumber  string // Must match M25#####
	CustomerID   uuid.UUID
	TotalAmount  int64
	ShippingCost int64
}

// OrderService handles order intake and reads; custody mutations live in
// CustodyService.
type OrderService interface {
	Create(ctx context.Context, req CreateOrderRequest) (*domain.Order, error)
	Get(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
	GetByNumber(ctx context.Context, orderNumber string) (*domain.Order, error)
	History(ctx context.Context, orderID uuid.UUID) ([]domain.StatusChange, error)
}

// --- Payment Resolver ---

// PaymentOption is one legal way to settle an order. WalletAmount+BankAmount
// always equals the order total; every option requires manual financial
// approval before funds are considered settled.
type PaymentOption struct {
	Method                 domain.PaymentMethod `json:"method"`
	Amount                 int64                `json:"amount"`
	WalletAmount           int64                `json:"wallet_amount"`
	BankAmount             int64                `json:"bank_amount"`
	SourceLabel            string               `json:"source_label"`
	RequiresManualApproval bool                 `json:"requires_manual_approval"`
	GraceDeadline          *time.Time           `json:"grace_deadline,omitempty"`
}

// PaymentOptions is the computed option set for an order draft.
type PaymentOptions struct {
	OrderTotal    int64                                  `json:"order_total"`
	ShippingCost  int64                                  `json:"shipping_cost"`
	TotalAmount   int64                                  `json:"total_amount"`
	WalletBalance int64                                  `json:"wallet_balance"`
	Currency      string                                 `json:"currency"`
	Options       map[domain.PaymentMethod]PaymentOption `json:"options"`
}

// PaymentService decides the wallet/external split and confirms it.
type PaymentService interface {
	ComputeOptions(ctx context.Context, customerID uuid.UUID, orderTotal, shippingCost int64) (*PaymentOptions, error)
	ConfirmPayment(ctx context.Context, orderID uuid.UUID, method domain.PaymentMethod, actor string) (*domain.Order, error)
}

// --- Department Custody State Machine ---

// Actor identifies who requested a custody transition.
type Actor struct {
	ID       uuid.UUID
	Username string
	Role     domain.StaffRole
}

// VehicleAssignment is the courier/vehicle pairing chosen by the Logistics
// Vehicle Selector (external collaborator).
type VehicleAssignment struct {
	Vehicle string
	Courier string
}

// CustodyService enforces the departmental custody chain.
type CustodyService interface {
	ApproveFinancial(ctx context.Context, orderID uuid.UUID, actor Actor, notes string) (*domain.Order, error)
	RejectFinancial(ctx context.Context, orderID uuid.UUID, actor Actor, notes string) (*domain.Order, error)
	ApproveWarehouse(ctx context.Context, orderID uuid.UUID, actor Actor) (*domain.Order, *domain.DeliveryVerification, error)
	AssignLogistics(ctx context.Context, orderID uuid.UUID, actor Actor, assignment VehicleAssignment) (*domain.Order, error)
	StartProcessing(ctx context.Context, orderID uuid.UUID, actor Actor) (*domain.Order, error)
	Dispatch(ctx context.Context, orderID uuid.UUID, actor Actor) (*domain.Order, error)
	MarkInTransit(ctx context.Context, orderID uuid.UUID, actor Actor) (*domain.Order, error)
	Cancel(ctx context.Context, orderID uuid.UUID, actor Actor, notes string) (*domain.Order, error)
}

// --- Delivery Verification Gate ---

// VerifyDeliveryRequest holds the courier's submission at handoff.
type VerifyDeliveryRequest struct {
	OrderID     uuid.UUID
	Code        string
	CourierName string
	Notes       string
}

// DeliveryService issues and checks the SMS-backed handoff codes.
type DeliveryService interface {
	GenerateCode(ctx context.Context, orderID uuid.UUID) (*domain.DeliveryVerification, error)
	// IssueCodeTx issues a code inside a caller-owned transaction; used by
	// warehouse approval, which must be atomic with code issuance.
	IssueCodeTx(ctx context.Context, tx pgx.Tx, order *domain.Order) (*domain.DeliveryVerification, error)
	IncrementAttempt(ctx context.Context, orderID uuid.UUID) (int, error)
	Verify(ctx context.Context, req VerifyDeliveryRequest) (*domain.Order, error)
	// NotifyCode sends the SMS for a freshly issued code, best effort.
	NotifyCode(ctx context.Context, v *domain.DeliveryVerification, orderNumber string)
	History(ctx context.Context, orderID uuid.UUID) ([]domain.DeliveryVerification, error)
}

// --- Order Location Projection ---

// OrderLocation answers "where is the order and what happens next". It is
// recomputed from the custody state on every read, never cached.
type OrderLocation struct {
	OrderID           uuid.UUID          `json:"order_id"`
	OrderNumber       string             `json:"order_number"`
	CurrentStatus     domain.OrderStatus `json:"current_status"`
	CurrentDepartment string             `json:"current_department"`
	CurrentLocation   string             `json:"current_location"`
	NextAction        string             `json:"next_action"`
	Priority          string             `json:"priority"`
}

// LocationService is the read-only projection over custody state.
type LocationService interface {
	Locate(ctx context.Context, orderID uuid.UUID) (*OrderLocation, error)
	LocateByNumber(ctx context.Context, orderNumber string) (*OrderLocation, error)
}

// --- Notification/Audit Emitter ---

// EventEmitter records workflow events in the outbox and pushes them to
// downstream consumers.
type EventEmitter interface {
	// Record inserts the event in the caller's transaction.
	Record(ctx context.Context, tx pgx.Tx, event *domain.WorkflowEvent) error
	// Dispatch publishes a committed event asynchronously, best effort.
	Dispatch(event *domain.WorkflowEvent)
	// Flush publishes any unpublished backlog; returns how many were sent.
	Flush(ctx context.Context, limit int) (int, error)
}

// Publisher delivers a signed event to external consumers (SMS dispatch,
// email, CRM). Delivery outcome is the consumer's problem, not the core's.
type Publisher interface {
	Publish(ctx context.Context, event *domain.WorkflowEvent, signature string) error
}

// SMSSender sends delivery verification codes. Implementations are external
// collaborators; failures are logged, never propagated into the workflow.
type SMSSender interface {
	SendVerificationCode(ctx context.Context, orderNumber, code string) error
}

// --- Reporting ---

// WorkflowStats counts orders per custody status for admin dashboards.
type WorkflowStats struct {
	Total    int64                        `json:"total"`
	ByStatus map[domain.OrderStatus]int64 `json:"by_status"`
}

// ReportingService exposes dashboard aggregates.
type ReportingService interface {
	GetWorkflowStats(ctx context.Context) (*WorkflowStats, error)
}

// --- Auth ---

// TokenClaims holds the parsed JWT claims for a staff session.
type TokenClaims struct {
	StaffID  uuid.UUID
	Username string
	Role     domain.StaffRole
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(staff *domain.Staff) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// SignatureService signs outbound event payloads (HMAC-SHA256).
type SignatureService interface {
	Sign(secretKey string, payload string) string
	Verify(secretKey string, payload string, signature string) bool
}

// AuthService authenticates back-office staff.
type AuthService interface {
	Login(ctx context.Context, username, password string) (string, time.Time, *domain.Staff, error)
	CreateStaff(ctx context.Context, username, displayName, password string, role domain.StaffRole) (*domain.Staff, error)
}

// AuditService records admin actions.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}
