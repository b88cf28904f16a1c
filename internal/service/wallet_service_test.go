package service

import (
	"context"
	"testing"

	"chemdist-fulfillment/internal/core/domain"
	"chemdist-fulfillment/internal/core/ports"
	"chemdist-fulfillment/internal/core/ports/mocks"
	"chemdist-fulfillment/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type walletTestDeps struct {
	svc        *WalletServiceImpl
	walletRepo *mocks.MockWalletRepository
	orderRepo  *mocks.MockOrderRepository
	emitter    *mocks.MockEventEmitter
	transactor *mocks.MockDBTransactor
	ctrl       *gomock.Controller
}

func setupWalletService(t *testing.T) *walletTestDeps {
	ctrl := gomock.NewController(t)
	d := &walletTestDeps{
		walletRepo: mocks.NewMockWalletRepository(ctrl),
		orderRepo:  mocks.NewMockOrderRepository(ctrl),
		emitter:    mocks.NewMockEventEmitter(ctrl),
		transactor: mocks.NewMockDBTransactor(ctrl),
		ctrl:       ctrl,
	}
	d.svc = NewWalletService(d.walletRepo, d.orderRepo, d.emitter, d.transactor, "IQD", zerolog.Nop())
	return d
}

// mockTx implements pgx.Tx for testing
type mockTx struct{ pgx.Tx }

func (m *mockTx) Rollback(_ context.Context) error { return nil }
func (m *mockTx) Commit(_ context.Context) error   { return nil }

// ==================== AppendEntry Tests ====================

func TestWalletService_AppendEntry_Credit(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	customerID := uuid.New()
	walletID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByCustomerIDForUpdate(ctx, tx, customerID).
		Return(&domain.Wallet{ID: walletID, CustomerID: customerID, Balance: 50000, Currency: "IQD"}, nil)
	d.walletRepo.EXPECT().InsertEntry(ctx, tx, gomock.Any()).Return(nil)
	d.walletRepo.EXPECT().UpdateBalance(ctx, tx, walletID, int64(125000)).Return(nil)
	d.emitter.EXPECT().Record(ctx, tx, gomock.Any()).Return(nil)

	entry, newBalance, err := d.svc.AppendEntry(ctx, ports.AppendEntryRequest{
		CustomerID:  customerID,
		Amount:      75000,
		Kind:        domain.EntryRechargeCredit,
		Description: "Wallet recharge",
		Actor:       "huda",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(125000), newBalance)
	assert.Equal(t, int64(75000), entry.Amount)
	assert.Equal(t, walletID, entry.WalletID)
	assert.Equal(t, "huda", entry.CreatedBy)
}

func TestWalletService_AppendEntry_AutoCreatesWallet(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	customerID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByCustomerIDForUpdate(ctx, tx, customerID).Return(nil, nil)
	d.walletRepo.EXPECT().Create(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, w *domain.Wallet) error {
			assert.Equal(t, customerID, w.CustomerID)
			assert.Equal(t, int64(0), w.Balance)
			assert.Equal(t, "IQD", w.Currency)
			return nil
		})
	d.walletRepo.EXPECT().InsertEntry(ctx, tx, gomock.Any()).Return(nil)
	d.walletRepo.EXPECT().UpdateBalance(ctx, tx, gomock.Any(), int64(20000)).Return(nil)
	d.emitter.EXPECT().Record(ctx, tx, gomock.Any()).Return(nil)

	_, newBalance, err := d.svc.AppendEntry(ctx, ports.AppendEntryRequest{
		CustomerID:  customerID,
		Amount:      20000,
		Kind:        domain.EntryRechargeCredit,
		Description: "First recharge",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(20000), newBalance)
}

func TestWalletService_AppendEntry_DefaultsToSystemActor(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	customerID := uuid.New()
	walletID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByCustomerIDForUpdate(ctx, tx, customerID).
		Return(&domain.Wallet{ID: walletID, CustomerID: customerID, Balance: 0}, nil)
	d.walletRepo.EXPECT().InsertEntry(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, e *domain.WalletLedgerEntry) error {
			assert.Equal(t, domain.SystemActor, e.CreatedBy)
			return nil
		})
	d.walletRepo.EXPECT().UpdateBalance(ctx, tx, walletID, int64(10000)).Return(nil)
	d.emitter.EXPECT().Record(ctx, tx, gomock.Any()).Return(nil)

	_, _, err := d.svc.AppendEntry(ctx, ports.AppendEntryRequest{
		CustomerID: customerID,
		Amount:     10000,
		Kind:       domain.EntryRefundCredit,
	})
	require.NoError(t, err)
}

func TestWalletService_AppendEntry_InsufficientBalance(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	customerID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByCustomerIDForUpdate(ctx, tx, customerID).
		Return(&domain.Wallet{ID: uuid.New(), CustomerID: customerID, Balance: 30000}, nil)

	_, _, err := d.svc.AppendEntry(ctx, ports.AppendEntryRequest{
		CustomerID: customerID,
		Amount:     -50000,
		Kind:       domain.EntryPurchaseDebit,
	})

	require.Error(t, err)
	appErr, ok := err.(*apperror.AppError)
	require.True(t, ok)
	assert.Equal(t, "CNF_003", appErr.Code)
}

func TestWalletService_AppendEntry_ZeroAmount(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)

	_, _, err := d.svc.AppendEntry(ctx, ports.AppendEntryRequest{
		CustomerID: uuid.New(),
		Amount:     0,
		Kind:       domain.EntryRechargeCredit,
	})

	require.Error(t, err)
	appErr, ok := err.(*apperror.AppError)
	require.True(t, ok)
	assert.Equal(t, "VAL_001", appErr.Code)
}

func TestWalletService_AppendEntry_UnknownKind(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)

	_, _, err := d.svc.AppendEntry(ctx, ports.AppendEntryRequest{
		CustomerID: uuid.New(),
		Amount:     1000,
		Kind:       domain.EntryKind("mystery"),
	})

	require.Error(t, err)
	appErr, ok := err.(*apperror.AppError)
	require.True(t, ok)
	assert.Equal(t, "VAL_001", appErr.Code)
}

// ==================== GetBalance Tests ====================

func TestWalletService_GetBalance(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	customerID := uuid.New()

	d.walletRepo.EXPECT().GetByCustomerID(ctx, customerID).
		Return(&domain.Wallet{ID: uuid.New(), CustomerID: customerID, Balance: 100000}, nil)

	balance, err := d.svc.GetBalance(ctx, customerID)
	require.NoError(t, err)
	assert.Equal(t, int64(100000), balance)
}

func TestWalletService_GetBalance_NoWallet(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	customerID := uuid.New()

	d.walletRepo.EXPECT().GetByCustomerID(ctx, customerID).Return(nil, nil)

	balance, err := d.svc.GetBalance(ctx, customerID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

// ==================== ApplyCorrection Tests ====================

func TestWalletService_ApplyCorrection_Overpayment(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	customerID := uuid.New()
	orderID := uuid.New()
	walletID := uuid.New()
	tx := &mockTx{}

	d.orderRepo.EXPECT().GetByNumber(ctx, "M2511386").
		Return(&domain.Order{ID: orderID, OrderNumber: "M2511386", CustomerID: customerID}, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByCustomerIDForUpdate(ctx, tx, customerID).
		Return(&domain.Wallet{ID: walletID, CustomerID: customerID, Balance: 40000}, nil)
	d.walletRepo.EXPECT().InsertEntry(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, e *domain.WalletLedgerEntry) error {
			assert.Equal(t, domain.EntryManualCorrection, e.Kind)
			require.NotNil(t, e.RelatedOrderID)
			assert.Equal(t, orderID, *e.RelatedOrderID)
			return nil
		})
	d.walletRepo.EXPECT().UpdateBalance(ctx, tx, walletID, int64(55000)).Return(nil)
	d.emitter.EXPECT().Record(ctx, tx, gomock.Any()).Return(nil)

	result, err := d.svc.ApplyCorrection(ctx, ports.CorrectionRequest{
		OrderNumber: "M2511386",
		Amount:      15000,
		Description: "Customer overpaid at bank",
		Actor:       "huda",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.CorrectionOverpayment, result.CorrectionType)
	assert.Equal(t, int64(40000), result.OldBalance)
	assert.Equal(t, int64(55000), result.NewBalance)
	assert.Equal(t, customerID, result.CustomerID)
}

func TestWalletService_ApplyCorrection_BadOrderNumber(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	_, err := d.svc.ApplyCorrection(context.Background(), ports.CorrectionRequest{
		OrderNumber: "X9900001",
		Amount:      5000,
	})

	require.Error(t, err)
	appErr, ok := err.(*apperror.AppError)
	require.True(t, ok)
	assert.Equal(t, "VAL_002", appErr.Code)
}

func TestWalletService_ApplyCorrection_OrderNotFound(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.orderRepo.EXPECT().GetByNumber(ctx, "M2599999").Return(nil, nil)

	_, err := d.svc.ApplyCorrection(ctx, ports.CorrectionRequest{
		OrderNumber: "M2599999",
		Amount:      5000,
	})

	require.Error(t, err)
	appErr, ok := err.(*apperror.AppError)
	require.True(t, ok)
	assert.Equal(t, "NTF_001", appErr.Code)
}

// ==================== Recharge Tests ====================

func TestWalletService_Recharge_RejectsNonPositive(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	_, _, err := d.svc.Recharge(context.Background(), uuid.New(), -100, "huda")
	require.Error(t, err)
	appErr, ok := err.(*apperror.AppError)
	require.True(t, ok)
	assert.Equal(t, "VAL_001", appErr.Code)
}

// ==================== Reconcile Tests ====================

func TestWalletService_Reconcile_Consistent(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	customerID := uuid.New()

	d.walletRepo.EXPECT().GetByCustomerID(ctx, customerID).
		Return(&domain.Wallet{ID: uuid.New(), CustomerID: customerID, Balance: 80000}, nil)
	d.walletRepo.EXPECT().SumEntries(ctx, customerID).Return(int64(80000), nil)

	result, err := d.svc.Reconcile(ctx, customerID)
	require.NoError(t, err)
	assert.True(t, result.Consistent)
	assert.Equal(t, int64(80000), result.MaterializedValue)
	assert.Equal(t, int64(80000), result.LedgerSum)
}

func TestWalletService_Reconcile_Divergent(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	customerID := uuid.New()

	d.walletRepo.EXPECT().GetByCustomerID(ctx, customerID).
		Return(&domain.Wallet{ID: uuid.New(), CustomerID: customerID, Balance: 80000}, nil)
	d.walletRepo.EXPECT().SumEntries(ctx, customerID).Return(int64(75000), nil)

	result, err := d.svc.Reconcile(ctx, customerID)
	require.NoError(t, err)
	assert.False(t, result.Consistent)
}

func TestWalletService_Reconcile_UnknownCustomer(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	customerID := uuid.New()

	d.walletRepo.EXPECT().GetByCustomerID(ctx, customerID).Return(nil, nil)

	_, err := d.svc.Reconcile(ctx, customerID)
	require.Error(t, err)
	appErr, ok := err.(*apperror.AppError)
	require.True(t, ok)
	assert.Equal(t, "NTF_002", appErr.Code)
}
