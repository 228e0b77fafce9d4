package model

import "time"

type Patient struct {
	Base
	Name      string     `db:"name" json:"name"`
	BirthDate *time.Time `db:"birth_date" json:"birthDate"`
	Gender    string     `db:"gender" json:"gender"`
	Phone     string     `db:"phone" json:"phone"`
	Email     string     `db:"email" json:"email"`
}

type PatientRequest struct {
	Name      string     `json:"name" binding:"required,max=200"`
	BirthDate *time.Time `json:"birthDate"`
	Gender    string     `json:"gender" binding:"omitempty,max=20"`
	Phone     string     `json:"phone" binding:"omitempty,max=30"`
	Email     string     `json:"email" binding:"omitempty,email"`
}

// Apply copies the request onto p.
func (r *PatientRequest) Apply(p *Patient) {
	p.Name = r.Name
	p.BirthDate = r.BirthDate
	p.Gender = r.Gender
	p.Phone = r.Phone
	p.Email = r.Email
}

// PatientFilters matches case-insensitive substrings; empty values are ignored.
type PatientFilters struct {
	Name  string
	Phone string
	Email string
	Pagination
}
