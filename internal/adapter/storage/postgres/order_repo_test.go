package postgres

import (
	"context"
	"testing"
	"time"

	"chemdist-fulfillment/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder() *domain.Order {
	return &domain.Order{
		ID:            uuid.New(),
		OrderNumber:   "M2511386",
		CustomerID:    uuid.New(),
		TotalAmount:   250000,
		ShippingCost:  5000,
		Currency:      "IQD",
		CurrentStatus: domain.StatusPendingPayment,
		CreatedAt:     time.Now().UTC().Truncate(time.Microsecond),
		UpdatedAt:     time.Now().UTC().Truncate(time.Microsecond),
	}
}

func orderTestColumns() []string {
	return []string{
		"id", "order_number", "customer_id", "total_amount", "shipping_cost", "currency",
		"payment_method", "current_status", "wallet_amount_applied", "external_amount_applied",
		"payment_grace_deadline", "financial_reviewer_id", "financial_reviewed_at", "financial_notes",
		"assigned_vehicle", "assigned_courier", "created_at", "updated_at",
	}
}

func orderRow(o *domain.Order) *pgxmock.Rows {
	var method *string
	if o.PaymentMethod != "" {
		m := string(o.PaymentMethod)
		method = &m
	}
	status := string(o.CurrentStatus)
	return pgxmock.NewRows(orderTestColumns()).AddRow(
		o.ID, o.OrderNumber, o.CustomerID, o.TotalAmount, o.ShippingCost, o.Currency,
		method, &status, o.WalletAmountApplied, o.ExternalAmountApplied,
		o.PaymentGraceDeadline, o.FinancialReviewerID, o.FinancialReviewedAt, o.FinancialNotes,
		o.AssignedVehicle, o.AssignedCourier, o.CreatedAt, o.UpdatedAt,
	)
}

func TestOrderRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepo(mock)
	o := newTestOrder()

	mock.ExpectExec("INSERT INTO orders").
		WithArgs(o.ID, o.OrderNumber, o.CustomerID, o.TotalAmount, o.ShippingCost,
			o.Currency, string(o.CurrentStatus), o.CreatedAt, o.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Create(context.Background(), o)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_GetByNumber(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepo(mock)
	o := newTestOrder()

	mock.ExpectQuery("SELECT .+ FROM orders WHERE order_number").
		WithArgs(o.OrderNumber).
		WillReturnRows(orderRow(o))

	result, err := repo.GetByNumber(context.Background(), o.OrderNumber)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, o.ID, result.ID)
	assert.Equal(t, domain.StatusPendingPayment, result.CurrentStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepo(mock)
	id := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM orders WHERE id").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(orderTestColumns()))

	result, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_GetByIDForUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepo(mock)
	o := newTestOrder()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM orders WHERE id .+ FOR UPDATE").
		WithArgs(o.ID).
		WillReturnRows(orderRow(o))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.GetByIDForUpdate(context.Background(), tx, o.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, o.OrderNumber, result.OrderNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_UpdateStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepo(mock)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders SET current_status").
		WithArgs(string(domain.StatusFinancialApproved), id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.UpdateStatus(context.Background(), tx, id, domain.StatusFinancialApproved)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_SetPaymentSplit(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepo(mock)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders SET payment_method").
		WithArgs(string(domain.MethodWalletPartial), int64(100000), int64(150000), (*time.Time)(nil), id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.SetPaymentSplit(context.Background(), tx, id, domain.MethodWalletPartial, 100000, 150000, nil)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_SetPaymentSplit_AlreadySet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepo(mock)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders SET payment_method").
		WithArgs(string(domain.MethodWallet), int64(250000), int64(0), (*time.Time)(nil), id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.SetPaymentSplit(context.Background(), tx, id, domain.MethodWallet, 250000, 0, nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already set")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_InsertStatusChange(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepo(mock)
	change := &domain.StatusChange{
		ID:         uuid.New(),
		OrderID:    uuid.New(),
		FromStatus: domain.StatusFinancialPending,
		ToStatus:   domain.StatusFinancialApproved,
		Action:     domain.ActionApproveFinancial,
		ChangedBy:  "fin.huda",
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO order_status_history").
		WithArgs(change.ID, change.OrderID, string(change.FromStatus), string(change.ToStatus),
			string(change.Action), change.ChangedBy, change.Notes, change.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.InsertStatusChange(context.Background(), tx, change)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_ListStatusHistory(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepo(mock)
	orderID := uuid.New()
	now := time.Now().UTC().Truncate(time.Microsecond)

	rows := pgxmock.NewRows([]string{
		"id", "order_id", "from_status", "to_status", "action", "changed_by", "notes", "created_at",
	}).
		AddRow(uuid.New(), orderID, "pending_payment", "payment_confirmed", "confirm_payment", "system", (*string)(nil), now).
		AddRow(uuid.New(), orderID, "payment_confirmed", "financial_pending", "submit_financial_review", "system", (*string)(nil), now.Add(time.Second))

	mock.ExpectQuery("SELECT .+ FROM order_status_history WHERE order_id").
		WithArgs(orderID).
		WillReturnRows(rows)

	history, err := repo.ListStatusHistory(context.Background(), orderID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.StatusPendingPayment, history[0].FromStatus)
	assert.Equal(t, domain.ActionSubmitFinancial, history[1].Action)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_CountByStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepo(mock)

	rows := pgxmock.NewRows([]string{"current_status", "count"}).
		AddRow("financial_pending", int64(4)).
		AddRow("in_transit", int64(2)).
		AddRow("delivered", int64(17))

	mock.ExpectQuery("SELECT current_status, COUNT").
		WillReturnRows(rows)

	counts, err := repo.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), counts[domain.StatusFinancialPending])
	assert.Equal(t, int64(17), counts[domain.StatusDelivered])
	assert.NoError(t, mock.ExpectationsWereMet())
}
