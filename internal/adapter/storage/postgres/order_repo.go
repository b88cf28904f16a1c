package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chemdist-fulfillment/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// OrderRepo implements ports.OrderRepository.
type OrderRepo struct {
	pool Pool
}

// NewOrderRepo creates a new OrderRepo.
func NewOrderRepo(pool Pool) *OrderRepo {
	return &OrderRepo{pool: pool}
}

const orderColumns = `id, order_number, customer_id, total_amount, shipping_cost, currency,
		payment_method, current_status, wallet_amount_applied, external_amount_applied,
		payment_grace_deadline, financial_reviewer_id, financial_reviewed_at, financial_notes,
		assigned_vehicle, assigned_courier, created_at, updated_at`

func scanOrder(row pgx.Row) (*domain.Order, error) {
	o := &domain.Order{}
	var method, status *string
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.CustomerID, &o.TotalAmount, &o.ShippingCost, &o.Currency,
		&method, &status, &o.WalletAmountApplied, &o.ExternalAmountApplied,
		&o.PaymentGraceDeadline, &o.FinancialReviewerID, &o.FinancialReviewedAt, &o.FinancialNotes,
		&o.AssignedVehicle, &o.AssignedCourier, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if method != nil {
		o.PaymentMethod = domain.PaymentMethod(*method)
	}
	if status != nil {
		o.CurrentStatus = domain.OrderStatus(*status)
	}
	return o, nil
}

// Create inserts a new order in its initial custody state.
func (r *OrderRepo) Create(ctx context.Context, o *domain.Order) error {
	query := `INSERT INTO orders
		(id, order_number, customer_id, total_amount, shipping_cost, currency, current_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		o.ID, o.OrderNumber, o.CustomerID, o.TotalAmount, o.ShippingCost,
		o.Currency, string(o.CurrentStatus), o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// GetByID fetches an order by its UUID (non-locking read).
func (r *OrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	o, err := scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get order by id: %w", err)
	}
	return o, nil
}

// GetByNumber fetches an order by its external M25 number.
func (r *OrderRepo) GetByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_number = $1`

	o, err := scanOrder(r.pool.QueryRow(ctx, query, orderNumber))
	if err != nil {
		return nil, fmt.Errorf("get order by number: %w", err)
	}
	return o, nil
}

// GetByIDForUpdate fetches an order with pessimistic locking.
// This MUST be called within a transaction.
func (r *OrderRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`

	o, err := scanOrder(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get order for update: %w", err)
	}
	return o, nil
}

// UpdateStatus moves an order to a new custody state within a transaction.
func (r *OrderRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.OrderStatus) error {
	query := `UPDATE orders SET current_status = $1, updated_at = NOW() WHERE id = $2`

	tag, err := tx.Exec(ctx, query, string(status), id)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order not found: %s", id)
	}
	return nil
}

// SetPaymentSplit writes the write-once wallet/external split at confirmation.
func (r *OrderRepo) SetPaymentSplit(ctx context.Context, tx pgx.Tx, id uuid.UUID, method domain.PaymentMethod, walletAmount, externalAmount int64, graceDeadline *time.Time) error {
	query := `UPDATE orders SET payment_method = $1, wallet_amount_applied = $2,
		external_amount_applied = $3, payment_grace_deadline = $4, updated_at = NOW()
		WHERE id = $5 AND wallet_amount_applied IS NULL`

	tag, err := tx.Exec(ctx, query, string(method), walletAmount, externalAmount, graceDeadline, id)
	if err != nil {
		return fmt.Errorf("set payment split: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("payment split already set for order: %s", id)
	}
	return nil
}

// SetFinancialReview records the reviewing staff member and their notes.
func (r *OrderRepo) SetFinancialReview(ctx context.Context, tx pgx.Tx, id uuid.UUID, reviewerID uuid.UUID, notes string, reviewedAt time.Time) error {
	query := `UPDATE orders SET financial_reviewer_id = $1, financial_notes = $2,
		financial_reviewed_at = $3, updated_at = NOW() WHERE id = $4`

	tag, err := tx.Exec(ctx, query, reviewerID, notes, reviewedAt, id)
	if err != nil {
		return fmt.Errorf("set financial review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order not found: %s", id)
	}
	return nil
}

// SetLogisticsAssignment records the vehicle and courier for dispatch.
func (r *OrderRepo) SetLogisticsAssignment(ctx context.Context, tx pgx.Tx, id uuid.UUID, vehicle, courier string) error {
	query := `UPDATE orders SET assigned_vehicle = $1, assigned_courier = $2, updated_at = NOW() WHERE id = $3`

	tag, err := tx.Exec(ctx, query, vehicle, courier, id)
	if err != nil {
		return fmt.Errorf("set logistics assignment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order not found: %s", id)
	}
	return nil
}

// InsertStatusChange appends a custody history row within the same
// transaction as the status update.
func (r *OrderRepo) InsertStatusChange(ctx context.Context, tx pgx.Tx, c *domain.StatusChange) error {
	query := `INSERT INTO order_status_history
		(id, order_id, from_status, to_status, action, changed_by, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := tx.Exec(ctx, query,
		c.ID, c.OrderID, string(c.FromStatus), string(c.ToStatus),
		string(c.Action), c.ChangedBy, c.Notes, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert status change: %w", err)
	}
	return nil
}

// ListStatusHistory returns the full custody trail for an order, oldest first.
func (r *OrderRepo) ListStatusHistory(ctx context.Context, orderID uuid.UUID) ([]domain.StatusChange, error) {
	query := `SELECT id, order_id, from_status, to_status, action, changed_by, notes, created_at
		FROM order_status_history WHERE order_id = $1 ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("list status history: %w", err)
	}
	defer rows.Close()

	var history []domain.StatusChange
	for rows.Next() {
		var c domain.StatusChange
		var from, to, action string
		if err := rows.Scan(&c.ID, &c.OrderID, &from, &to, &action, &c.ChangedBy, &c.Notes, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan status change: %w", err)
		}
		c.FromStatus = domain.OrderStatus(from)
		c.ToStatus = domain.OrderStatus(to)
		c.Action = domain.Action(action)
		history = append(history, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status history: %w", err)
	}
	return history, nil
}

// CountByStatus returns order counts grouped by custody state.
func (r *OrderRepo) CountByStatus(ctx context.Context) (map[domain.OrderStatus]int64, error) {
	query := `SELECT current_status, COUNT(*) FROM orders GROUP BY current_status`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count orders by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.OrderStatus]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[domain.OrderStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}
	return counts, nil
}
