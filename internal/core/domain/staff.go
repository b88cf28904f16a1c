package domain

import (
	"time"

	"github.com/google/uuid"
)

// StaffRole scopes which custody actions an account may perform.
type StaffRole string

const (
	RoleFinancial StaffRole = "financial"
	RoleWarehouse StaffRole = "warehouse"
	RoleLogistics StaffRole = "logistics"
	RoleCourier   StaffRole = "courier"
	RoleAdmin     StaffRole = "admin"
	// RoleSystem marks transitions chained by the workflow itself; no staff
	// account carries it.
	RoleSystem StaffRole = "system"
)

var validStaffRoles = []StaffRole{
	RoleFinancial,
	RoleWarehouse,
	RoleLogistics,
	RoleCourier,
	RoleAdmin,
}

// IsValid reports whether the value is an assignable StaffRole.
func (r StaffRole) IsValid() bool {
	for _, candidate := range validStaffRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// StaffStatus represents the account lifecycle state.
type StaffStatus string

const (
	StaffStatusActive    StaffStatus = "ACTIVE"
	StaffStatusSuspended StaffStatus = "SUSPENDED"
)

// Staff is a back-office account (financial reviewer, warehouse operator,
// logistics dispatcher, courier, admin).
type Staff struct {
	ID           uuid.UUID   `json:"id"`
	Username     string      `json:"username"`
	DisplayName  string      `json:"display_name"`
	PasswordHash string      `json:"-"` // Argon2id, never exposed
	Role         StaffRole   `json:"role"`
	Status       StaffStatus `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// IsActive returns true if the account may authenticate.
func (s *Staff) IsActive() bool {
	return s.Status == StaffStatusActive
}
