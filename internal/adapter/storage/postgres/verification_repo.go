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

// VerificationRepo implements ports.VerificationRepository. Superseded codes
// are deactivated, never deleted, so the full issuance trail survives.
type VerificationRepo struct {
	pool Pool
}

// NewVerificationRepo creates a new VerificationRepo.
func NewVerificationRepo(pool Pool) *VerificationRepo {
	return &VerificationRepo{pool: pool}
}

const verificationColumns = `id, order_id, verification_code, is_active, is_used, sms_sent,
		sms_delivered, delivery_attempts, verified_at, verified_by, verification_notes, created_at`

func scanVerification(row pgx.Row) (*domain.DeliveryVerification, error) {
	v := &domain.DeliveryVerification{}
	err := row.Scan(
		&v.ID, &v.OrderID, &v.VerificationCode, &v.IsActive, &v.IsUsed, &v.SMSSent,
		&v.SMSDelivered, &v.DeliveryAttempts, &v.VerifiedAt, &v.VerifiedBy,
		&v.VerificationNotes, &v.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return v, nil
}

// Insert stores a freshly issued verification code within a transaction.
func (r *VerificationRepo) Insert(ctx context.Context, tx pgx.Tx, v *domain.DeliveryVerification) error {
	query := `INSERT INTO delivery_verifications
		(id, order_id, verification_code, is_active, is_used, sms_sent, sms_delivered, delivery_attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := tx.Exec(ctx, query,
		v.ID, v.OrderID, v.VerificationCode, v.IsActive, v.IsUsed,
		v.SMSSent, v.SMSDelivered, v.DeliveryAttempts, v.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert verification: %w", err)
	}
	return nil
}

// GetActive returns the most recent active unused code for an order, or nil.
func (r *VerificationRepo) GetActive(ctx context.Context, orderID uuid.UUID) (*domain.DeliveryVerification, error) {
	query := `SELECT ` + verificationColumns + ` FROM delivery_verifications
		WHERE order_id = $1 AND is_active AND NOT is_used
		ORDER BY created_at DESC LIMIT 1`

	v, err := scanVerification(r.pool.QueryRow(ctx, query, orderID))
	if err != nil {
		return nil, fmt.Errorf("get active verification: %w", err)
	}
	return v, nil
}

// GetActiveForUpdate locks the active code row for the verify path.
// This MUST be called within a transaction.
func (r *VerificationRepo) GetActiveForUpdate(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (*domain.DeliveryVerification, error) {
	query := `SELECT ` + verificationColumns + ` FROM delivery_verifications
		WHERE order_id = $1 AND is_active AND NOT is_used
		ORDER BY created_at DESC LIMIT 1 FOR UPDATE`

	v, err := scanVerification(tx.QueryRow(ctx, query, orderID))
	if err != nil {
		return nil, fmt.Errorf("get active verification for update: %w", err)
	}
	return v, nil
}

// GetLatestForUpdate locks the most recent code row regardless of its
// active/used state. This MUST be called within a transaction.
func (r *VerificationRepo) GetLatestForUpdate(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (*domain.DeliveryVerification, error) {
	query := `SELECT ` + verificationColumns + ` FROM delivery_verifications
		WHERE order_id = $1
		ORDER BY created_at DESC LIMIT 1 FOR UPDATE`

	v, err := scanVerification(tx.QueryRow(ctx, query, orderID))
	if err != nil {
		return nil, fmt.Errorf("get latest verification for update: %w", err)
	}
	return v, nil
}

// Supersede deactivates every active code for the order; rows are kept.
func (r *VerificationRepo) Supersede(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) error {
	query := `UPDATE delivery_verifications SET is_active = FALSE
		WHERE order_id = $1 AND is_active AND NOT is_used`

	if _, err := tx.Exec(ctx, query, orderID); err != nil {
		return fmt.Errorf("supersede verifications: %w", err)
	}
	return nil
}

// IncrementAttempts bumps the attempt counter and returns the new value.
func (r *VerificationRepo) IncrementAttempts(ctx context.Context, tx pgx.Tx, id uuid.UUID) (int, error) {
	query := `UPDATE delivery_verifications SET delivery_attempts = delivery_attempts + 1
		WHERE id = $1 RETURNING delivery_attempts`

	var attempts int
	if err := tx.QueryRow(ctx, query, id).Scan(&attempts); err != nil {
		return 0, fmt.Errorf("increment delivery attempts: %w", err)
	}
	return attempts, nil
}

// MarkUsed consumes the code at successful handoff.
func (r *VerificationRepo) MarkUsed(ctx context.Context, tx pgx.Tx, id uuid.UUID, verifiedBy string, notes *string, verifiedAt time.Time) error {
	query := `UPDATE delivery_verifications
		SET is_used = TRUE, verified_by = $1, verification_notes = $2, verified_at = $3
		WHERE id = $4 AND NOT is_used`

	tag, err := tx.Exec(ctx, query, verifiedBy, notes, verifiedAt, id)
	if err != nil {
		return fmt.Errorf("mark verification used: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("verification already used or not found: %s", id)
	}
	return nil
}

// MarkSMSSent is a best-effort flag update outside any transaction.
func (r *VerificationRepo) MarkSMSSent(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE delivery_verifications SET sms_sent = TRUE WHERE id = $1`

	if _, err := r.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("mark sms sent: %w", err)
	}
	return nil
}

// ListHistory returns every code ever issued for an order, newest first.
func (r *VerificationRepo) ListHistory(ctx context.Context, orderID uuid.UUID) ([]domain.DeliveryVerification, error) {
	query := `SELECT ` + verificationColumns + ` FROM delivery_verifications
		WHERE order_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("list verification history: %w", err)
	}
	defer rows.Close()

	var history []domain.DeliveryVerification
	for rows.Next() {
		var v domain.DeliveryVerification
		if err := rows.Scan(
			&v.ID, &v.OrderID, &v.VerificationCode, &v.IsActive, &v.IsUsed, &v.SMSSent,
			&v.SMSDelivered, &v.DeliveryAttempts, &v.VerifiedAt, &v.VerifiedBy,
			&v.VerificationNotes, &v.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan verification: %w", err)
		}
		history = append(history, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verification history: %w", err)
	}
	return history, nil
}
