package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/edconde/clinica3s/internal/model"
	"github.com/edconde/clinica3s/internal/repository"
	apperrors "github.com/edconde/clinica3s/pkg/errors"
	"github.com/edconde/clinica3s/pkg/metrics"
)

// EventRecorder stores a domain event alongside the current transaction.
type EventRecorder interface {
	Record(ctx context.Context, eventType string, aggregateID uuid.UUID, payload interface{}) error
}

// StatsInvalidator drops cached dashboard figures after a billing write.
type StatsInvalidator interface {
	Invalidate()
}

type Deps struct {
	Tx           repository.Transactor
	Appointments repository.AppointmentRepository
	Patients     repository.PatientRepository
	Dentists     repository.DentistRepository
	Services     repository.ServiceRepository
	Events       EventRecorder
	Stats        StatsInvalidator
	Metrics      *metrics.Metrics
}

// Service books appointments and settles their line items.
type Service struct {
	tx           repository.Transactor
	appointments repository.AppointmentRepository
	patients     repository.PatientRepository
	dentists     repository.DentistRepository
	services     repository.ServiceRepository
	events       EventRecorder
	stats        StatsInvalidator
	metrics      *metrics.Metrics
	now          func() time.Time
}

func NewService(deps Deps) *Service {
	m := deps.Metrics
	if m == nil {
		m = metrics.NewNoop()
	}
	return &Service{
		tx:           deps.Tx,
		appointments: deps.Appointments,
		patients:     deps.Patients,
		dentists:     deps.Dentists,
		services:     deps.Services,
		events:       deps.Events,
		stats:        deps.Stats,
		metrics:      m,
		now:          time.Now,
	}
}

// CreateAppointment books a PENDING appointment. Each requested line becomes its
// own detail priced at the service's current list price. Patient, dentist and
// services are resolved in that order and the first missing one aborts the booking.
func (s *Service) CreateAppointment(ctx context.Context, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	var appointment *model.Appointment

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		patient, err := s.patients.Get(ctx, req.PatientID)
		if err != nil {
			return err
		}
		dentist, err := s.dentists.Get(ctx, req.DentistID)
		if err != nil {
			return err
		}

		details := make([]*model.AppointmentDetail, 0, len(req.Services))
		for _, line := range req.Services {
			service, err := s.services.Get(ctx, line.ServiceID)
			if err != nil {
				return err
			}

			quantity := 1
			if line.Quantity != nil {
				quantity = *line.Quantity
			}
			if quantity < 1 {
				return apperrors.BadRequest("quantity must be at least 1", nil)
			}

			details = append(details, &model.AppointmentDetail{
				ID:           uuid.New(),
				ServiceID:    service.ID,
				Quantity:     quantity,
				PriceApplied: service.ListPrice,
				Service:      service,
			})
		}

		appointment = &model.Appointment{
			Base:      model.Base{ID: uuid.New()},
			DateTime:  req.DateTime,
			Status:    model.AppointmentStatusPending,
			PatientID: patient.ID,
			DentistID: dentist.ID,
			Details:   details,
			Patient:   patient,
			Dentist:   dentist,
		}
		appointment.RecomputeTotal()

		if err := s.appointments.Create(ctx, appointment); err != nil {
			return err
		}
		return s.events.Record(ctx, model.EventAppointmentCreated, appointment.ID, s.eventFor(appointment, 0))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}

	s.metrics.AppointmentsBooked.Inc()
	s.metrics.AmountBooked.Add(appointment.TotalAmount)
	s.invalidate()
	return appointment, nil
}

// PayAppointment stamps every unpaid detail with the same instant and completes
// the appointment. Details paid earlier keep their date, so paying twice is a no-op
// apart from the status.
func (s *Service) PayAppointment(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	var (
		appointment *model.Appointment
		settled     float64
	)

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		appointment, err = s.appointments.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		now := s.now()
		lines := appointment.MarkPaid(now)
		ids := make([]uuid.UUID, 0, len(lines))
		for _, d := range lines {
			ids = append(ids, d.ID)
			settled += d.Amount()
		}

		if err := s.appointments.MarkDetailsPaid(ctx, ids, now); err != nil {
			return err
		}
		if err := s.appointments.UpdateStatus(ctx, id, model.AppointmentStatusCompleted); err != nil {
			return err
		}
		return s.events.Record(ctx, model.EventAppointmentPaid, id, s.eventFor(appointment, settled))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to pay appointment: %w", err)
	}

	if settled > 0 {
		s.metrics.AppointmentsPaid.Inc()
		s.metrics.AmountSettled.Add(settled)
	}
	s.invalidate()
	return appointment, nil
}

// UpdateStatus moves the appointment to any status. There are no transition
// guards and payment state is left untouched.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus) (*model.Appointment, error) {
	if !status.Valid() {
		return nil, apperrors.BadRequest(fmt.Sprintf("invalid appointment status %q", status), nil)
	}

	var appointment *model.Appointment
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		appointment, err = s.appointments.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.appointments.UpdateStatus(ctx, id, status); err != nil {
			return err
		}
		appointment.Status = status
		return s.events.Record(ctx, model.EventAppointmentStatusChanged, id, s.eventFor(appointment, 0))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update appointment status: %w", err)
	}

	s.metrics.StatusChanges.WithLabelValues(string(status)).Inc()
	s.invalidate()
	return appointment, nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	appointment, err := s.appointments.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return appointment, nil
}

func (s *Service) ListAppointments(ctx context.Context, filters *model.AppointmentFilters) (*model.Page[*model.Appointment], error) {
	filters.Pagination = filters.Pagination.Normalize()
	if filters.StartDate != nil && filters.EndDate != nil && filters.EndDate.Before(*filters.StartDate) {
		return nil, apperrors.BadRequest("endDate must not be before startDate", nil)
	}

	appointments, total, err := s.appointments.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return &model.Page[*model.Appointment]{Items: appointments, Total: total}, nil
}

func (s *Service) eventFor(a *model.Appointment, settled float64) model.AppointmentEvent {
	return model.AppointmentEvent{
		AppointmentID: a.ID,
		PatientID:     a.PatientID,
		DentistID:     a.DentistID,
		Status:        a.Status,
		TotalAmount:   a.TotalAmount,
		SettledAmount: settled,
		OccurredAt:    s.now(),
	}
}

func (s *Service) invalidate() {
	if s.stats != nil {
		s.stats.Invalidate()
	}
}
