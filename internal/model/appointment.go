package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "PENDING"
	AppointmentStatusCompleted AppointmentStatus = "COMPLETED"
	AppointmentStatusNoShow    AppointmentStatus = "NO_SHOW"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusPending, AppointmentStatusCompleted, AppointmentStatusNoShow:
		return true
	}
	return false
}

// Appointment owns its details; status and the details' payment dates are the
// only fields that change after booking.
type Appointment struct {
	Base
	DateTime    time.Time            `db:"date_time" json:"dateTime"`
	Status      AppointmentStatus    `db:"status" json:"status"`
	TotalAmount float64              `db:"total_amount" json:"totalAmount"`
	PatientID   uuid.UUID            `db:"patient_id" json:"patientId"`
	DentistID   uuid.UUID            `db:"dentist_id" json:"dentistId"`
	Details     []*AppointmentDetail `db:"-" json:"details"`

	Patient *Patient `db:"-" json:"-"`
	Dentist *Dentist `db:"-" json:"-"`
}

// AppointmentDetail is one line item. A nil PaymentDate means unpaid.
type AppointmentDetail struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	AppointmentID uuid.UUID  `db:"appointment_id" json:"appointmentId"`
	ServiceID     uuid.UUID  `db:"service_id" json:"serviceId"`
	Quantity      int        `db:"quantity" json:"quantity"`
	PriceApplied  float64    `db:"price_applied" json:"priceApplied"`
	PaymentDate   *time.Time `db:"payment_date" json:"paymentDate"`

	Service *Service `db:"-" json:"-"`
}

func (d *AppointmentDetail) IsPaid() bool {
	return d.PaymentDate != nil
}

// Amount is the price charged for the line.
func (d *AppointmentDetail) Amount() float64 {
	return d.PriceApplied * float64(d.Quantity)
}

// Cost is the clinic's internal cost for the line. Zero when the service is not loaded.
func (d *AppointmentDetail) Cost() float64 {
	if d.Service == nil {
		return 0
	}
	return d.Service.StandardCost * float64(d.Quantity)
}

// RecomputeTotal sets TotalAmount from the current details.
func (a *Appointment) RecomputeTotal() {
	var total float64
	for _, d := range a.Details {
		total += d.Amount()
	}
	a.TotalAmount = total
}

// IsUnpaid reports a completed appointment with at least one unpaid line.
// An appointment without details is never unpaid.
func (a *Appointment) IsUnpaid() bool {
	if a.Status != AppointmentStatusCompleted {
		return false
	}
	for _, d := range a.Details {
		if !d.IsPaid() {
			return true
		}
	}
	return false
}

func (a *Appointment) IsFullyPaid() bool {
	for _, d := range a.Details {
		if !d.IsPaid() {
			return false
		}
	}
	return true
}

// MarkPaid stamps every unpaid line with now and completes the appointment.
// It returns the lines it touched.
func (a *Appointment) MarkPaid(now time.Time) []*AppointmentDetail {
	var settled []*AppointmentDetail
	for _, d := range a.Details {
		if d.PaymentDate == nil {
			paidAt := now
			d.PaymentDate = &paidAt
			settled = append(settled, d)
		}
	}
	a.Status = AppointmentStatusCompleted
	return settled
}

type ServiceLine struct {
	ServiceID uuid.UUID `json:"serviceId" binding:"required"`
	Quantity  *int      `json:"quantity" binding:"omitempty,min=1"`
}

type CreateAppointmentRequest struct {
	DateTime  time.Time     `json:"dateTime" binding:"required"`
	PatientID uuid.UUID     `json:"patientId" binding:"required"`
	DentistID uuid.UUID     `json:"dentistId" binding:"required"`
	Services  []ServiceLine `json:"services" binding:"required,min=1,dive"`
}

type AppointmentFilters struct {
	PatientID *uuid.UUID
	DentistID *uuid.UUID
	Status    *AppointmentStatus
	StartDate *time.Time
	EndDate   *time.Time
	Sort      AppointmentSort
	Pagination
}

type AppointmentSortField string

const (
	SortByDateTime    AppointmentSortField = "dateTime"
	SortByTotalAmount AppointmentSortField = "totalAmount"
	SortByStatus      AppointmentSortField = "status"
)

func (f AppointmentSortField) Valid() bool {
	switch f {
	case SortByDateTime, SortByTotalAmount, SortByStatus:
		return true
	}
	return false
}

// AppointmentSort is the listing order. The zero value means date_time ascending.
type AppointmentSort struct {
	Field AppointmentSortField
	Desc  bool
}

// ParseAppointmentSort reads "field" or "field,asc|desc". An empty string
// yields the default order.
func ParseAppointmentSort(raw string) (AppointmentSort, error) {
	if raw == "" {
		return AppointmentSort{Field: SortByDateTime}, nil
	}
	field, dir, _ := strings.Cut(raw, ",")
	sort := AppointmentSort{Field: AppointmentSortField(strings.TrimSpace(field))}
	if !sort.Field.Valid() {
		return AppointmentSort{}, fmt.Errorf("cannot sort by %q: use dateTime, totalAmount or status", field)
	}
	switch strings.ToLower(strings.TrimSpace(dir)) {
	case "", "asc":
	case "desc":
		sort.Desc = true
	default:
		return AppointmentSort{}, fmt.Errorf("invalid sort direction %q", dir)
	}
	return sort, nil
}

type AppointmentPatient struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Phone string    `json:"phone"`
	Email string    `json:"email"`
}

type AppointmentDentist struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	LicenseNumber string    `json:"licenseNumber"`
}

type AppointmentDetailResponse struct {
	ID           uuid.UUID  `json:"id"`
	ServiceID    uuid.UUID  `json:"serviceId"`
	ServiceName  string     `json:"serviceName"`
	Quantity     int        `json:"quantity"`
	PriceApplied float64    `json:"priceApplied"`
	PaymentDate  *time.Time `json:"paymentDate"`
	Paid         bool       `json:"paid"`
}

type AppointmentResponse struct {
	ID          uuid.UUID                   `json:"id"`
	DateTime    time.Time                   `json:"dateTime"`
	Status      AppointmentStatus           `json:"status"`
	TotalAmount float64                     `json:"totalAmount"`
	Patient     *AppointmentPatient         `json:"patient,omitempty"`
	Dentist     *AppointmentDentist         `json:"dentist,omitempty"`
	Details     []AppointmentDetailResponse `json:"details"`
}

func NewAppointmentResponse(a *Appointment) AppointmentResponse {
	resp := AppointmentResponse{
		ID:          a.ID,
		DateTime:    a.DateTime,
		Status:      a.Status,
		TotalAmount: a.TotalAmount,
		Details:     make([]AppointmentDetailResponse, 0, len(a.Details)),
	}
	if a.Patient != nil {
		resp.Patient = &AppointmentPatient{
			ID:    a.Patient.ID,
			Name:  a.Patient.Name,
			Phone: a.Patient.Phone,
			Email: a.Patient.Email,
		}
	}
	if a.Dentist != nil {
		resp.Dentist = &AppointmentDentist{
			ID:            a.Dentist.ID,
			Name:          a.Dentist.Name,
			LicenseNumber: a.Dentist.LicenseNumber,
		}
	}
	for _, d := range a.Details {
		line := AppointmentDetailResponse{
			ID:           d.ID,
			ServiceID:    d.ServiceID,
			Quantity:     d.Quantity,
			PriceApplied: d.PriceApplied,
			PaymentDate:  d.PaymentDate,
			Paid:         d.IsPaid(),
		}
		if d.Service != nil {
			line.ServiceName = d.Service.Name
		}
		resp.Details = append(resp.Details, line)
	}
	return resp
}
