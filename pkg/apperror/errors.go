package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Validation (VAL) ----
// Rejected before any mutation, never partially applied.

func ErrInvalidAmount() *AppError {
	return New("VAL_001", "Amount must be non-zero", http.StatusBadRequest)
}

func ErrInvalidOrderFormat(ref string) *AppError {
	return New("VAL_002", fmt.Sprintf("Order reference %q does not match the M25 numbering scheme", ref), http.StatusBadRequest)
}

func ErrIllegalTransition(current, attempted string) *AppError {
	return New("VAL_003", fmt.Sprintf("Illegal transition: order is %s, attempted %s", current, attempted), http.StatusConflict)
}

func ErrInvalidCode() *AppError {
	return New("VAL_004", "Submitted verification code does not match the active code", http.StatusBadRequest)
}

func ErrActorRoleNotAllowed(role string, action string) *AppError {
	return New("VAL_005", fmt.Sprintf("Role %s may not perform %s", role, action), http.StatusForbidden)
}

func ErrNotesRequired() *AppError {
	return New("VAL_006", "Review notes are required", http.StatusBadRequest)
}

// ---- Conflicts (CNF) ----
// Detected by re-check-before-write; the caller decides whether to retry.

func ErrPaymentAlreadyConfirmed() *AppError {
	return New("CNF_001", "Payment has already been confirmed for this order", http.StatusConflict)
}

func ErrAlreadyVerified() *AppError {
	return New("CNF_002", "Delivery has already been verified for this order", http.StatusConflict)
}

func ErrInsufficientWalletBalance() *AppError {
	return New("CNF_003", "Wallet balance is insufficient", http.StatusPaymentRequired)
}

func ErrUnknownPaymentOption(key string) *AppError {
	return New("CNF_004", fmt.Sprintf("Payment option %q is not available for this order", key), http.StatusConflict)
}

// ---- Not found (NTF) ----

func ErrOrderNotFound() *AppError {
	return New("NTF_001", "Order not found", http.StatusNotFound)
}

func ErrUnknownCustomer() *AppError {
	return New("NTF_002", "Customer has no wallet record", http.StatusNotFound)
}

func ErrNoActiveVerification() *AppError {
	return New("NTF_003", "No active delivery verification code for this order", http.StatusNotFound)
}

// ---- Authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid credentials", http.StatusUnauthorized)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_002", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrStaffSuspended() *AppError {
	return New("AUTH_003", "Staff account is suspended", http.StatusForbidden)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a VAL-coded error with a custom message.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}
