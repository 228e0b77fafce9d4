package model

import "github.com/google/uuid"

type Dentist struct {
	Base
	UserID         uuid.UUID   `db:"user_id" json:"userId"`
	Name           string      `db:"name" json:"name"`
	LicenseNumber  string      `db:"license_number" json:"licenseNumber"`
	CommissionRate *float64    `db:"commission_rate" json:"commissionRate"`
	SpecialtyIDs   []uuid.UUID `db:"-" json:"specialtyIds"`
}

// Rate returns the commission percentage, treating an unset rate as zero.
func (d *Dentist) Rate() float64 {
	if d == nil || d.CommissionRate == nil {
		return 0
	}
	return *d.CommissionRate
}

type UpdateDentistRequest struct {
	LicenseNumber  string       `json:"licenseNumber" binding:"required,max=50"`
	CommissionRate *float64     `json:"commissionRate" binding:"omitempty,min=0,max=100"`
	SpecialtyIDs   *[]uuid.UUID `json:"specialtyIds"`
}

type DentistFilters struct {
	Name        string
	SpecialtyID *uuid.UUID
	Pagination
}
