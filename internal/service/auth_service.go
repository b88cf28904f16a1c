package service

import (
	"context"
	"fmt"
	"time"

	"chemdist-fulfillment/internal/core/domain"
	"chemdist-fulfillment/internal/core/ports"
	"chemdist-fulfillment/pkg/apperror"

	"github.com/google/uuid"
)

// AuthServiceImpl implements ports.AuthService for back-office staff.
type AuthServiceImpl struct {
	staffRepo ports.StaffRepository
	hashSvc   ports.HashService
	tokenSvc  ports.TokenService
}

// NewAuthService creates a new AuthServiceImpl.
func NewAuthService(staffRepo ports.StaffRepository, hashSvc ports.HashService, tokenSvc ports.TokenService) *AuthServiceImpl {
	return &AuthServiceImpl{
		staffRepo: staffRepo,
		hashSvc:   hashSvc,
		tokenSvc:  tokenSvc,
	}
}

// Login authenticates a staff account and returns a role-scoped JWT.
func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) (string, time.Time, *domain.Staff, error) {
	staff, err := s.staffRepo.GetByUsername(ctx, username)
	if err != nil {
		return "", time.Time{}, nil, apperror.InternalError(fmt.Errorf("get staff: %w", err))
	}
	if staff == nil {
		return "", time.Time{}, nil, apperror.ErrInvalidCredentials()
	}
	if !staff.IsActive() {
		return "", time.Time{}, nil, apperror.ErrStaffSuspended()
	}

	ok, err := s.hashSvc.Verify(password, staff.PasswordHash)
	if err != nil {
		return "", time.Time{}, nil, apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !ok {
		return "", time.Time{}, nil, apperror.ErrInvalidCredentials()
	}

	token, expiresAt, err := s.tokenSvc.Generate(staff)
	if err != nil {
		return "", time.Time{}, nil, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}
	return token, expiresAt, staff, nil
}

// CreateStaff registers a new back-office account.
func (s *AuthServiceImpl) CreateStaff(ctx context.Context, username, displayName, password string, role domain.StaffRole) (*domain.Staff, error) {
	if !role.IsValid() {
		return nil, apperror.Validation(fmt.Sprintf("unknown staff role %q", role))
	}

	existing, err := s.staffRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check username: %w", err))
	}
	if existing != nil {
		return nil, apperror.Validation("username already exists")
	}

	hash, err := s.hashSvc.Hash(password)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hash password: %w", err))
	}

	now := time.Now().UTC()
	staff := &domain.Staff{
		ID:           uuid.New(),
		Username:     username,
		DisplayName:  displayName,
		PasswordHash: hash,
		Role:         role,
		Status:       domain.StaffStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.staffRepo.Create(ctx, staff); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create staff: %w", err))
	}
	return staff, nil
}
