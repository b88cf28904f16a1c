package integration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"chemdist-fulfillment/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- In-Memory Wallet Repo ---

type inMemoryWalletRepo struct {
	mu      sync.RWMutex
	wallets map[uuid.UUID]*domain.Wallet // keyed by wallet ID
	entries []domain.WalletLedgerEntry
}

func newInMemoryWalletRepo() *inMemoryWalletRepo {
	return &inMemoryWalletRepo{wallets: make(map[uuid.UUID]*domain.Wallet)}
}

func (r *inMemoryWalletRepo) Create(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.wallets {
		if existing.CustomerID == w.CustomerID {
			return fmt.Errorf("wallet already exists for customer")
		}
	}
	cp := *w
	r.wallets[w.ID] = &cp
	return nil
}

func (r *inMemoryWalletRepo) GetByCustomerID(ctx context.Context, customerID uuid.UUID) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.wallets {
		if w.CustomerID == customerID {
			cp := *w
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryWalletRepo) GetByCustomerIDForUpdate(ctx context.Context, tx pgx.Tx, customerID uuid.UUID) (*domain.Wallet, error) {
	return r.GetByCustomerID(ctx, customerID)
}

func (r *inMemoryWalletRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, newBalance int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[walletID]
	if !ok {
		return fmt.Errorf("wallet not found")
	}
	w.Balance = newBalance
	w.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *inMemoryWalletRepo) InsertEntry(ctx context.Context, tx pgx.Tx, entry *domain.WalletLedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *inMemoryWalletRepo) SumEntries(ctx context.Context, customerID uuid.UUID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var sum int64
	for _, e := range r.entries {
		if e.CustomerID == customerID {
			sum += e.Amount
		}
	}
	return sum, nil
}

func (r *inMemoryWalletRepo) ListEntries(ctx context.Context, customerID uuid.UUID, limit int) ([]domain.WalletLedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.WalletLedgerEntry
	// Newest first, matching the SQL ORDER BY created_at DESC.
	for i := len(r.entries) - 1; i >= 0 && len(result) < limit; i-- {
		if r.entries[i].CustomerID == customerID {
			result = append(result, r.entries[i])
		}
	}
	return result, nil
}

// --- In-Memory Order Repo ---

type inMemoryOrderRepo struct {
	mu      sync.RWMutex
	orders  map[uuid.UUID]*domain.Order
	history []domain.StatusChange
}

func newInMemoryOrderRepo() *inMemoryOrderRepo {
	return &inMemoryOrderRepo{orders: make(map[uuid.UUID]*domain.Order)}
}

func (r *inMemoryOrderRepo) Create(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.orders {
		if existing.OrderNumber == order.OrderNumber {
			return fmt.Errorf("duplicate order number")
		}
	}
	cp := *order
	r.orders[order.ID] = &cp
	return nil
}

func (r *inMemoryOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (r *inMemoryOrderRepo) GetByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, o := range r.orders {
		if o.OrderNumber == orderNumber {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryOrderRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Order, error) {
	return r.GetByID(ctx, id)
}

func (r *inMemoryOrderRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return fmt.Errorf("order not found")
	}
	o.CurrentStatus = status
	o.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *inMemoryOrderRepo) SetPaymentSplit(ctx context.Context, tx pgx.Tx, id uuid.UUID, method domain.PaymentMethod, walletAmount, externalAmount int64, graceDeadline *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return fmt.Errorf("order not found")
	}
	o.PaymentMethod = method
	o.WalletAmountApplied = &walletAmount
	o.ExternalAmountApplied = &externalAmount
	o.PaymentGraceDeadline = graceDeadline
	o.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *inMemoryOrderRepo) SetFinancialReview(ctx context.Context, tx pgx.Tx, id uuid.UUID, reviewerID uuid.UUID, notes string, reviewedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return fmt.Errorf("order not found")
	}
	o.FinancialReviewerID = &reviewerID
	o.FinancialNotes = &notes
	o.FinancialReviewedAt = &reviewedAt
	return nil
}

func (r *inMemoryOrderRepo) SetLogisticsAssignment(ctx context.Context, tx pgx.Tx, id uuid.UUID, vehicle, courier string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return fmt.Errorf("order not found")
	}
	o.AssignedVehicle = &vehicle
	o.AssignedCourier = &courier
	return nil
}

func (r *inMemoryOrderRepo) InsertStatusChange(ctx context.Context, tx pgx.Tx, change *domain.StatusChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, *change)
	return nil
}

func (r *inMemoryOrderRepo) ListStatusHistory(ctx context.Context, orderID uuid.UUID) ([]domain.StatusChange, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.StatusChange
	for _, change := range r.history {
		if change.OrderID == orderID {
			result = append(result, change)
		}
	}
	return result, nil
}

func (r *inMemoryOrderRepo) CountByStatus(ctx context.Context) (map[domain.OrderStatus]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[domain.OrderStatus]int64)
	for _, o := range r.orders {
		counts[o.CurrentStatus]++
	}
	return counts, nil
}

// --- In-Memory Verification Repo ---

type inMemoryVerificationRepo struct {
	mu   sync.RWMutex
	rows []*domain.DeliveryVerification
}

func newInMemoryVerificationRepo() *inMemoryVerificationRepo {
	return &inMemoryVerificationRepo{}
}

func (r *inMemoryVerificationRepo) Insert(ctx context.Context, tx pgx.Tx, v *domain.DeliveryVerification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *v
	r.rows = append(r.rows, &cp)
	return nil
}

// active mirrors the SQL predicate: is_active AND NOT is_used, newest row.
func (r *inMemoryVerificationRepo) active(orderID uuid.UUID) *domain.DeliveryVerification {
	for i := len(r.rows) - 1; i >= 0; i-- {
		v := r.rows[i]
		if v.OrderID == orderID && v.IsActive && !v.IsUsed {
			return v
		}
	}
	return nil
}

func (r *inMemoryVerificationRepo) GetActive(ctx context.Context, orderID uuid.UUID) (*domain.DeliveryVerification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v := r.active(orderID)
	if v == nil {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (r *inMemoryVerificationRepo) GetActiveForUpdate(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (*domain.DeliveryVerification, error) {
	return r.GetActive(ctx, orderID)
}

func (r *inMemoryVerificationRepo) GetLatestForUpdate(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (*domain.DeliveryVerification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := len(r.rows) - 1; i >= 0; i-- {
		if r.rows[i].OrderID == orderID {
			cp := *r.rows[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryVerificationRepo) Supersede(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.rows {
		if v.OrderID == orderID && v.IsActive && !v.IsUsed {
			v.IsActive = false
		}
	}
	return nil
}

func (r *inMemoryVerificationRepo) IncrementAttempts(ctx context.Context, tx pgx.Tx, id uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.rows {
		if v.ID == id {
			v.DeliveryAttempts++
			return v.DeliveryAttempts, nil
		}
	}
	return 0, fmt.Errorf("verification not found")
}

func (r *inMemoryVerificationRepo) MarkUsed(ctx context.Context, tx pgx.Tx, id uuid.UUID, verifiedBy string, notes *string, verifiedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.rows {
		if v.ID == id && !v.IsUsed {
			v.IsUsed = true
			v.VerifiedBy = &verifiedBy
			v.VerificationNotes = notes
			v.VerifiedAt = &verifiedAt
			return nil
		}
	}
	return fmt.Errorf("verification not found or already used")
}

func (r *inMemoryVerificationRepo) MarkSMSSent(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.rows {
		if v.ID == id {
			v.SMSSent = true
			return nil
		}
	}
	return fmt.Errorf("verification not found")
}

func (r *inMemoryVerificationRepo) ListHistory(ctx context.Context, orderID uuid.UUID) ([]domain.DeliveryVerification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.DeliveryVerification
	for _, v := range r.rows {
		if v.OrderID == orderID {
			result = append(result, *v)
		}
	}
	return result, nil
}

// --- In-Memory Event Repo (outbox) ---

type inMemoryEventRepo struct {
	mu     sync.RWMutex
	events []*domain.WorkflowEvent
}

func newInMemoryEventRepo() *inMemoryEventRepo {
	return &inMemoryEventRepo{}
}

func (r *inMemoryEventRepo) Insert(ctx context.Context, tx pgx.Tx, event *domain.WorkflowEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *event
	r.events = append(r.events, &cp)
	return nil
}

func (r *inMemoryEventRepo) FetchUnpublished(ctx context.Context, limit int) ([]domain.WorkflowEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.WorkflowEvent
	for _, e := range r.events {
		if e.PublishedAt == nil {
			result = append(result, *e)
			if len(result) == limit {
				break
			}
		}
	}
	return result, nil
}

func (r *inMemoryEventRepo) MarkPublished(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.ID == id {
			now := time.Now().UTC()
			e.PublishedAt = &now
			return nil
		}
	}
	return fmt.Errorf("event not found")
}

func (r *inMemoryEventRepo) MarkFailed(ctx context.Context, id uuid.UUID, publishErr error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.ID == id {
			msg := publishErr.Error()
			e.LastError = &msg
			return nil
		}
	}
	return fmt.Errorf("event not found")
}

func (r *inMemoryEventRepo) countByType(eventType domain.EventType) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, e := range r.events {
		if e.EventType == eventType {
			count++
		}
	}
	return count
}

// --- In-Memory Staff Repo ---

type inMemoryStaffRepo struct {
	mu    sync.RWMutex
	staff map[uuid.UUID]*domain.Staff
}

func newInMemoryStaffRepo() *inMemoryStaffRepo {
	return &inMemoryStaffRepo{staff: make(map[uuid.UUID]*domain.Staff)}
}

func (r *inMemoryStaffRepo) Create(ctx context.Context, staff *domain.Staff) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.staff {
		if existing.Username == staff.Username {
			return fmt.Errorf("username already exists")
		}
	}
	cp := *staff
	r.staff[staff.ID] = &cp
	return nil
}

func (r *inMemoryStaffRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Staff, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.staff[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *inMemoryStaffRepo) GetByUsername(ctx context.Context, username string) (*domain.Staff, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.staff {
		if s.Username == username {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

// --- In-Memory Transactor ---

// inMemoryTransactor serializes transactions with a single mutex, standing in
// for the row locks SELECT FOR UPDATE takes in PostgreSQL. Commit and Rollback
// both release; the services' defer-Rollback-after-Commit pattern must not
// double-unlock.
type inMemoryTransactor struct {
	mu sync.Mutex
}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	t.mu.Lock()
	return &lockingTx{release: &t.mu}, nil
}

// lockingTx is a pgx.Tx that holds the transactor lock until finished.
type lockingTx struct {
	release *sync.Mutex
	once    sync.Once
}

func (t *lockingTx) finish() {
	t.once.Do(func() { t.release.Unlock() })
}

func (t *lockingTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *lockingTx) Commit(ctx context.Context) error          { t.finish(); return nil }
func (t *lockingTx) Rollback(ctx context.Context) error        { t.finish(); return nil }
func (t *lockingTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *lockingTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *lockingTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *lockingTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *lockingTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *lockingTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *lockingTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *lockingTx) Conn() *pgx.Conn { return nil }
