package service

import (
	"context"
	"testing"
	"time"

	"chemdist-fulfillment/internal/core/domain"
	"chemdist-fulfillment/internal/core/ports/mocks"
	"chemdist-fulfillment/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type authTestDeps struct {
	svc       *AuthServiceImpl
	staffRepo *mocks.MockStaffRepository
	hashSvc   *mocks.MockHashService
	tokenSvc  *mocks.MockTokenService
	ctrl      *gomock.Controller
}

func setupAuthService(t *testing.T) *authTestDeps {
	ctrl := gomock.NewController(t)
	d := &authTestDeps{
		staffRepo: mocks.NewMockStaffRepository(ctrl),
		hashSvc:   mocks.NewMockHashService(ctrl),
		tokenSvc:  mocks.NewMockTokenService(ctrl),
		ctrl:      ctrl,
	}
	d.svc = NewAuthService(d.staffRepo, d.hashSvc, d.tokenSvc)
	return d
}

func activeStaff() *domain.Staff {
	return &domain.Staff{
		ID:           uuid.New(),
		Username:     "huda",
		DisplayName:  "Huda K.",
		PasswordHash: "argon2-hash",
		Role:         domain.RoleFinancial,
		Status:       domain.StaffStatusActive,
	}
}

func TestAuthService_Login(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	staff := activeStaff()
	expiresAt := time.Now().Add(time.Hour)

	d.staffRepo.EXPECT().GetByUsername(ctx, "huda").Return(staff, nil)
	d.hashSvc.EXPECT().Verify("secret-pw", "argon2-hash").Return(true, nil)
	d.tokenSvc.EXPECT().Generate(staff).Return("jwt-token", expiresAt, nil)

	token, exp, result, err := d.svc.Login(ctx, "huda", "secret-pw")
	require.NoError(t, err)
	assert.Equal(t, "jwt-token", token)
	assert.Equal(t, expiresAt, exp)
	assert.Equal(t, staff.ID, result.ID)
}

func TestAuthService_Login_UnknownUser(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.staffRepo.EXPECT().GetByUsername(ctx, "ghost").Return(nil, nil)

	_, _, _, err := d.svc.Login(ctx, "ghost", "pw")
	require.Error(t, err)
	appErr, ok := err.(*apperror.AppError)
	require.True(t, ok)
	assert.Equal(t, "AUTH_001", appErr.Code)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	staff := activeStaff()

	d.staffRepo.EXPECT().GetByUsername(ctx, "huda").Return(staff, nil)
	d.hashSvc.EXPECT().Verify("wrong", "argon2-hash").Return(false, nil)

	_, _, _, err := d.svc.Login(ctx, "huda", "wrong")
	require.Error(t, err)
	appErr, ok := err.(*apperror.AppError)
	require.True(t, ok)
	assert.Equal(t, "AUTH_001", appErr.Code)
}

func TestAuthService_Login_Suspended(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	staff := activeStaff()
	staff.Status = domain.StaffStatusSuspended

	d.staffRepo.EXPECT().GetByUsername(ctx, "huda").Return(staff, nil)

	_, _, _, err := d.svc.Login(ctx, "huda", "secret-pw")
	require.Error(t, err)
	appErr, ok := err.(*apperror.AppError)
	require.True(t, ok)
	assert.Equal(t, "AUTH_003", appErr.Code)
}

func TestAuthService_CreateStaff(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()

	d.staffRepo.EXPECT().GetByUsername(ctx, "ali").Return(nil, nil)
	d.hashSvc.EXPECT().Hash("warehouse-pw").Return("argon2-hash", nil)
	d.staffRepo.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, staff *domain.Staff) error {
			assert.Equal(t, "ali", staff.Username)
			assert.Equal(t, domain.RoleWarehouse, staff.Role)
			assert.Equal(t, domain.StaffStatusActive, staff.Status)
			assert.Equal(t, "argon2-hash", staff.PasswordHash)
			return nil
		})

	staff, err := d.svc.CreateStaff(ctx, "ali", "Ali M.", "warehouse-pw", domain.RoleWarehouse)
	require.NoError(t, err)
	assert.Equal(t, "Ali M.", staff.DisplayName)
}

func TestAuthService_CreateStaff_DuplicateUsername(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.staffRepo.EXPECT().GetByUsername(ctx, "huda").Return(activeStaff(), nil)

	_, err := d.svc.CreateStaff(ctx, "huda", "Huda K.", "pw", domain.RoleFinancial)
	require.Error(t, err)
}

func TestAuthService_CreateStaff_SystemRoleRejected(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	// The system pseudo-role is never assignable to an account.
	_, err := d.svc.CreateStaff(context.Background(), "bot", "Bot", "pw", domain.RoleSystem)
	require.Error(t, err)
}
