// Package authz holds the role rules applied before the billing and reporting
// services run.
package authz

import (
	"github.com/google/uuid"

	"github.com/edconde/clinica3s/internal/model"
	apperrors "github.com/edconde/clinica3s/pkg/errors"
)

// Principal is the authenticated caller.
type Principal struct {
	UserID    uuid.UUID
	Username  string
	Role      model.Role
	DentistID *uuid.UUID
}

func (p Principal) HasRole(roles ...model.Role) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

// ScopeAppointmentFilters pins a dentist's listing to their own appointments,
// whatever dentist they asked for.
func ScopeAppointmentFilters(p Principal, filters *model.AppointmentFilters) error {
	if p.Role != model.RoleDentist {
		return nil
	}
	if p.DentistID == nil {
		return apperrors.Forbidden("dentist profile not found")
	}
	id := *p.DentistID
	filters.DentistID = &id
	return nil
}

// CanViewAppointment is false only for a dentist looking at someone else's appointment.
func CanViewAppointment(p Principal, a *model.Appointment) bool {
	if p.Role != model.RoleDentist {
		return true
	}
	return p.DentistID != nil && *p.DentistID == a.DentistID
}
