package service

import (
	"testing"
	"time"

	"chemdist-fulfillment/internal/core/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTTokenService_RoundTrip(t *testing.T) {
	svc := NewJWTTokenService("test-secret-at-least-32-characters!!", time.Hour, "chemdist-fulfillment")

	staff := &domain.Staff{
		ID:       uuid.New(),
		Username: "huda",
		Role:     domain.RoleFinancial,
	}

	token, expiresAt, err := svc.Generate(staff)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, staff.ID, claims.StaffID)
	assert.Equal(t, "huda", claims.Username)
	assert.Equal(t, domain.RoleFinancial, claims.Role)
}

func TestJWTTokenService_WrongSecret(t *testing.T) {
	issuer := NewJWTTokenService("secret-one-at-least-32-characters!!!", time.Hour, "chemdist-fulfillment")
	other := NewJWTTokenService("secret-two-at-least-32-characters!!!", time.Hour, "chemdist-fulfillment")

	token, _, err := issuer.Generate(&domain.Staff{ID: uuid.New(), Username: "huda", Role: domain.RoleAdmin})
	require.NoError(t, err)

	_, err = other.Validate(token)
	assert.Error(t, err)
}

func TestJWTTokenService_WrongIssuer(t *testing.T) {
	issuer := NewJWTTokenService("shared-secret-at-least-32-characters", time.Hour, "some-other-system")
	validator := NewJWTTokenService("shared-secret-at-least-32-characters", time.Hour, "chemdist-fulfillment")

	token, _, err := issuer.Generate(&domain.Staff{ID: uuid.New(), Username: "huda", Role: domain.RoleAdmin})
	require.NoError(t, err)

	_, err = validator.Validate(token)
	assert.Error(t, err)
}

func TestJWTTokenService_Expired(t *testing.T) {
	svc := NewJWTTokenService("test-secret-at-least-32-characters!!", -time.Minute, "chemdist-fulfillment")

	token, _, err := svc.Generate(&domain.Staff{ID: uuid.New(), Username: "huda", Role: domain.RoleCourier})
	require.NoError(t, err)

	_, err = svc.Validate(token)
	assert.Error(t, err)
}

func TestJWTTokenService_Garbage(t *testing.T) {
	svc := NewJWTTokenService("test-secret-at-least-32-characters!!", time.Hour, "chemdist-fulfillment")

	_, err := svc.Validate("not.a.jwt")
	assert.Error(t, err)
}
