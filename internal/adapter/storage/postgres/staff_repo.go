package postgres

import (
	"context"
	"errors"
	"fmt"

	"chemdist-fulfillment/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// StaffRepo implements ports.StaffRepository.
type StaffRepo struct {
	pool Pool
}

// NewStaffRepo creates a new StaffRepo.
func NewStaffRepo(pool Pool) *StaffRepo {
	return &StaffRepo{pool: pool}
}

const staffColumns = `id, username, display_name, password_hash, role, status, created_at, updated_at`

func scanStaff(row pgx.Row) (*domain.Staff, error) {
	s := &domain.Staff{}
	var role, status string
	err := row.Scan(&s.ID, &s.Username, &s.DisplayName, &s.PasswordHash,
		&role, &status, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	s.Role = domain.StaffRole(role)
	s.Status = domain.StaffStatus(status)
	return s, nil
}

// Create inserts a new staff account.
func (r *StaffRepo) Create(ctx context.Context, s *domain.Staff) error {
	query := `INSERT INTO staff (id, username, display_name, password_hash, role, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		s.ID, s.Username, s.DisplayName, s.PasswordHash,
		string(s.Role), string(s.Status), s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert staff: %w", err)
	}
	return nil
}

// GetByID fetches a staff account by UUID.
func (r *StaffRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Staff, error) {
	query := `SELECT ` + staffColumns + ` FROM staff WHERE id = $1`

	s, err := scanStaff(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get staff by id: %w", err)
	}
	return s, nil
}

// GetByUsername fetches a staff account by username.
func (r *StaffRepo) GetByUsername(ctx context.Context, username string) (*domain.Staff, error) {
	query := `SELECT ` + staffColumns + ` FROM staff WHERE username = $1`

	s, err := scanStaff(r.pool.QueryRow(ctx, query, username))
	if err != nil {
		return nil, fmt.Errorf("get staff by username: %w", err)
	}
	return s, nil
}
