package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without wrapped error",
			appErr:   New("CNF_003", "Wallet balance is insufficient", http.StatusPaymentRequired),
			expected: "[CNF_003] Wallet balance is insufficient",
		},
		{
			name:     "with wrapped error",
			appErr:   Wrap("SYS_001", "DB error", http.StatusInternalServerError, fmt.Errorf("connection refused")),
			expected: "[SYS_001] DB error: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Wrap("SYS_001", "wrapped", http.StatusInternalServerError, inner)

	assert.True(t, errors.Is(appErr, inner))
}

func TestAppError_IsNilUnwrap(t *testing.T) {
	appErr := New("VAL_001", "test", http.StatusBadRequest)
	assert.Nil(t, appErr.Unwrap())
}

func TestTaxonomyStatusCodes(t *testing.T) {
	tests := []struct {
		name   string
		appErr *AppError
		code   string
		status int
	}{
		{"invalid amount", ErrInvalidAmount(), "VAL_001", http.StatusBadRequest},
		{"invalid order format", ErrInvalidOrderFormat("X99"), "VAL_002", http.StatusBadRequest},
		{"illegal transition", ErrIllegalTransition("pending_payment", "delivered"), "VAL_003", http.StatusConflict},
		{"invalid code", ErrInvalidCode(), "VAL_004", http.StatusBadRequest},
		{"payment already confirmed", ErrPaymentAlreadyConfirmed(), "CNF_001", http.StatusConflict},
		{"already verified", ErrAlreadyVerified(), "CNF_002", http.StatusConflict},
		{"insufficient wallet balance", ErrInsufficientWalletBalance(), "CNF_003", http.StatusPaymentRequired},
		{"order not found", ErrOrderNotFound(), "NTF_001", http.StatusNotFound},
		{"unknown customer", ErrUnknownCustomer(), "NTF_002", http.StatusNotFound},
		{"invalid credentials", ErrInvalidCredentials(), "AUTH_001", http.StatusUnauthorized},
		{"rate limit", ErrRateLimitExceeded(), "RATE_001", http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.appErr.Code)
			assert.Equal(t, tt.status, tt.appErr.HTTPStatus)
		})
	}
}

func TestErrIllegalTransition_NamesStates(t *testing.T) {
	err := ErrIllegalTransition("financial_pending", "deliver")
	assert.Contains(t, err.Message, "financial_pending")
	assert.Contains(t, err.Message, "deliver")
}
