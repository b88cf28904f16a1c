package postgres

import (
	"context"
	"errors"
	"fmt"

	"chemdist-fulfillment/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepo implements ports.WalletRepository. Wallet balance rows are only
// ever updated together with a ledger insert inside the caller's transaction.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

const walletColumns = `id, customer_id, balance, currency, created_at, updated_at`

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	err := row.Scan(&w.ID, &w.CustomerID, &w.Balance, &w.Currency, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return w, nil
}

// Create inserts a new wallet inside the caller's transaction.
func (r *WalletRepo) Create(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	query := `INSERT INTO wallets (id, customer_id, balance, currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := tx.Exec(ctx, query,
		w.ID, w.CustomerID, w.Balance, w.Currency, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// GetByCustomerID fetches a wallet by customer ID (non-locking read).
func (r *WalletRepo) GetByCustomerID(ctx context.Context, customerID uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE customer_id = $1`

	w, err := scanWallet(r.pool.QueryRow(ctx, query, customerID))
	if err != nil {
		return nil, fmt.Errorf("get wallet by customer id: %w", err)
	}
	return w, nil
}

// GetByCustomerIDForUpdate fetches a wallet with pessimistic locking.
// This MUST be called within a transaction.
func (r *WalletRepo) GetByCustomerIDForUpdate(ctx context.Context, tx pgx.Tx, customerID uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE customer_id = $1 FOR UPDATE`

	w, err := scanWallet(tx.QueryRow(ctx, query, customerID))
	if err != nil {
		return nil, fmt.Errorf("get wallet for update: %w", err)
	}
	return w, nil
}

// UpdateBalance writes the materialized balance within a transaction.
func (r *WalletRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, newBalance int64) error {
	query := `UPDATE wallets SET balance = $1, updated_at = NOW() WHERE id = $2`

	tag, err := tx.Exec(ctx, query, newBalance, walletID)
	if err != nil {
		return fmt.Errorf("update wallet balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wallet not found: %s", walletID)
	}
	return nil
}

// InsertEntry appends a ledger entry within a transaction. Entries are
// append-only; there is no update or delete counterpart.
func (r *WalletRepo) InsertEntry(ctx context.Context, tx pgx.Tx, e *domain.WalletLedgerEntry) error {
	query := `INSERT INTO wallet_ledger_entries
		(id, customer_id, wallet_id, amount, kind, related_order_id, description, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := tx.Exec(ctx, query,
		e.ID, e.CustomerID, e.WalletID, e.Amount, string(e.Kind),
		e.RelatedOrderID, e.Description, e.CreatedBy, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// SumEntries recomputes the balance from the ledger.
func (r *WalletRepo) SumEntries(ctx context.Context, customerID uuid.UUID) (int64, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM wallet_ledger_entries WHERE customer_id = $1`

	var sum int64
	if err := r.pool.QueryRow(ctx, query, customerID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum ledger entries: %w", err)
	}
	return sum, nil
}

// ListEntries returns the most recent ledger entries for a customer.
func (r *WalletRepo) ListEntries(ctx context.Context, customerID uuid.UUID, limit int) ([]domain.WalletLedgerEntry, error) {
	query := `SELECT id, customer_id, wallet_id, amount, kind, related_order_id, description, created_by, created_at
		FROM wallet_ledger_entries WHERE customer_id = $1
		ORDER BY created_at DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, customerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.WalletLedgerEntry
	for rows.Next() {
		var e domain.WalletLedgerEntry
		var kind string
		if err := rows.Scan(&e.ID, &e.CustomerID, &e.WalletID, &e.Amount, &kind,
			&e.RelatedOrderID, &e.Description, &e.CreatedBy, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		e.Kind = domain.EntryKind(kind)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}
	return entries, nil
}
