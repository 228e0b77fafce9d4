package model

import "github.com/google/uuid"

type Role string

const (
	RoleAdmin        Role = "ADMIN"
	RoleReceptionist Role = "RECEPTIONIST"
	RoleDentist      Role = "DENTIST"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleReceptionist, RoleDentist:
		return true
	}
	return false
}

// User represents a system user
type User struct {
	Base
	Username     string `json:"username" db:"username"`
	Name         string `json:"name" db:"name"`
	PasswordHash string `json:"-" db:"password_hash"`
	Role         Role   `json:"role" db:"role"`
	Enabled      bool   `json:"enabled" db:"enabled"`
}

// CreateUserRequest creates a user; the dentist fields apply only to the DENTIST role.
type CreateUserRequest struct {
	Username       string      `json:"username" binding:"required,max=100"`
	Password       string      `json:"password" binding:"required,min=6"`
	Role           Role        `json:"role" binding:"required,oneof=ADMIN RECEPTIONIST DENTIST"`
	DentistName    string      `json:"dentistName"`
	LicenseNumber  string      `json:"licenseNumber" binding:"required_if=Role DENTIST"`
	CommissionRate *float64    `json:"commissionRate" binding:"omitempty,min=0,max=100"`
	SpecialtyIDs   []uuid.UUID `json:"specialtyIds"`
}
