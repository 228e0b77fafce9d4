package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/edconde/clinica3s/internal/model"
)

// All repository interfaces in one file.
//
// Lookups of a missing row return a pkg/errors NotFound error. Methods run on the
// transaction carried by ctx when called inside Transactor.WithinTx.
type (
	// Transactor runs fn in a single database transaction.
	Transactor interface {
		WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	}

	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		Update(ctx context.Context, patient *model.Patient) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, int, error)
		Count(ctx context.Context) (int64, error)
	}

	DentistRepository interface {
		Create(ctx context.Context, dentist *model.Dentist) error
		Get(ctx context.Context, id uuid.UUID) (*model.Dentist, error)
		GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Dentist, error)
		Update(ctx context.Context, dentist *model.Dentist) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.DentistFilters) ([]*model.Dentist, int, error)
	}

	ServiceRepository interface {
		Create(ctx context.Context, service *model.Service) error
		Get(ctx context.Context, id uuid.UUID) (*model.Service, error)
		Update(ctx context.Context, service *model.Service) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, page model.Pagination) ([]*model.Service, int, error)
		ListBySpecialty(ctx context.Context, specialtyID uuid.UUID) ([]*model.Service, error)
	}

	SpecialtyRepository interface {
		Create(ctx context.Context, specialty *model.Specialty) error
		Get(ctx context.Context, id uuid.UUID) (*model.Specialty, error)
		GetByName(ctx context.Context, name string) (*model.Specialty, error)
		Update(ctx context.Context, specialty *model.Specialty) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context) ([]*model.Specialty, error)
		ExistingIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
	}

	AppointmentRepository interface {
		// Create inserts the appointment and all of its details.
		Create(ctx context.Context, appointment *model.Appointment) error
		// Get loads the appointment with details, services, patient and dentist.
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		// GetForUpdate is Get plus a row lock held until the surrounding transaction ends.
		GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus) error
		// MarkDetailsPaid stamps paidAt on the given details that are still unpaid.
		MarkDetailsPaid(ctx context.Context, detailIDs []uuid.UUID, paidAt time.Time) error
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, int, error)
		// ListForReport returns every appointment dated in year (all when nil) on
		// the wall clock of loc, with details, services and dentists loaded.
		ListForReport(ctx context.Context, year *int, loc *time.Location) ([]*model.Appointment, error)
	}

	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByUsername(ctx context.Context, username string) (*model.User, error)
		ExistsByUsername(ctx context.Context, username string) (bool, error)
		Update(ctx context.Context, user *model.User) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context) ([]*model.User, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		// GetPendingEventsWithLock must run inside a transaction.
		GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkRetry(ctx context.Context, id uuid.UUID, errMsg string, retryAt time.Time) error
		MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
