package models

import "time"

// User is an account in the procurement system
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Actor is the authenticated caller of a service operation, carried
// from the access token rather than loaded from the database.
type Actor struct {
	ID   string
	Name string
	Role string
}

// Role constants
const (
	RoleAdmin              = "admin"
	RoleHoP                = "hop"
	RoleProcurementManager = "procurement_manager"
	RoleProcurementOfficer = "procurement_officer"
	RoleStaff              = "staff"
)

// IsOfficerTier reports whether the role may initiate workflow steps
// (forward for review, forward to HoP).
func IsOfficerTier(role string) bool {
	switch role {
	case RoleProcurementOfficer, RoleProcurementManager, RoleAdmin, RoleHoP:
		return true
	}
	return false
}

// IsHoPTier reports whether the role may issue final approval decisions.
func IsHoPTier(role string) bool {
	switch role {
	case RoleProcurementManager, RoleAdmin, RoleHoP:
		return true
	}
	return false
}

// HoPTierRoles returns the roles that receive final-approval requests.
func HoPTierRoles() []string {
	return []string{RoleHoP, RoleProcurementManager, RoleAdmin}
}

// ValidRole reports whether role is one of the known roles
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleHoP, RoleProcurementManager, RoleProcurementOfficer, RoleStaff:
		return true
	}
	return false
}
