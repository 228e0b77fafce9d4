package model

import "github.com/google/uuid"

// Service is a billable treatment. StandardCost is the clinic's internal cost and
// ListPrice the default charge copied onto a line item at booking.
type Service struct {
	Base
	Name         string     `db:"name" json:"name"`
	StandardCost float64    `db:"standard_cost" json:"standardCost"`
	ListPrice    float64    `db:"list_price" json:"listPrice"`
	SpecialtyID  *uuid.UUID `db:"specialty_id" json:"specialtyId"`
}

type ServiceRequest struct {
	Name         string     `json:"name" binding:"required,max=200"`
	StandardCost *float64   `json:"standardCost" binding:"required,min=0"`
	ListPrice    *float64   `json:"listPrice" binding:"required,min=0"`
	SpecialtyID  *uuid.UUID `json:"specialtyId"`
}

func (r *ServiceRequest) Apply(s *Service) {
	s.Name = r.Name
	s.StandardCost = *r.StandardCost
	s.ListPrice = *r.ListPrice
	s.SpecialtyID = r.SpecialtyID
}

type Specialty struct {
	Base
	Name string `db:"name" json:"name"`
}

type SpecialtyRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}
