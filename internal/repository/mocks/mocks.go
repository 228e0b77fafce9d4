// Package mocks holds testify mocks of the repository interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/edconde/clinica3s/internal/model"
	"github.com/edconde/clinica3s/internal/repository"
)

var (
	_ repository.Transactor            = (*Transactor)(nil)
	_ repository.PatientRepository     = (*PatientRepository)(nil)
	_ repository.DentistRepository     = (*DentistRepository)(nil)
	_ repository.ServiceRepository     = (*ServiceRepository)(nil)
	_ repository.SpecialtyRepository   = (*SpecialtyRepository)(nil)
	_ repository.AppointmentRepository = (*AppointmentRepository)(nil)
	_ repository.UserRepository        = (*UserRepository)(nil)
	_ repository.OutboxRepository      = (*OutboxRepository)(nil)
)

// Transactor runs fn inline. Err, when set, is returned instead of calling fn.
type Transactor struct {
	Calls int
	Err   error
}

func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.Calls++
	if t.Err != nil {
		return t.Err
	}
	return fn(ctx)
}

type PatientRepository struct{ mock.Mock }

func (m *PatientRepository) Create(ctx context.Context, patient *model.Patient) error {
	return m.Called(ctx, patient).Error(0)
}

func (m *PatientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Patient), args.Error(1)
}

func (m *PatientRepository) Update(ctx context.Context, patient *model.Patient) error {
	return m.Called(ctx, patient).Error(0)
}

func (m *PatientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *PatientRepository) List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, int, error) {
	args := m.Called(ctx, filters)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*model.Patient), args.Int(1), args.Error(2)
}

func (m *PatientRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type DentistRepository struct{ mock.Mock }

func (m *DentistRepository) Create(ctx context.Context, dentist *model.Dentist) error {
	return m.Called(ctx, dentist).Error(0)
}

func (m *DentistRepository) Get(ctx context.Context, id uuid.UUID) (*model.Dentist, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Dentist), args.Error(1)
}

func (m *DentistRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Dentist, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Dentist), args.Error(1)
}

func (m *DentistRepository) Update(ctx context.Context, dentist *model.Dentist) error {
	return m.Called(ctx, dentist).Error(0)
}

func (m *DentistRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *DentistRepository) List(ctx context.Context, filters *model.DentistFilters) ([]*model.Dentist, int, error) {
	args := m.Called(ctx, filters)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*model.Dentist), args.Int(1), args.Error(2)
}

type ServiceRepository struct{ mock.Mock }

func (m *ServiceRepository) Create(ctx context.Context, service *model.Service) error {
	return m.Called(ctx, service).Error(0)
}

func (m *ServiceRepository) Get(ctx context.Context, id uuid.UUID) (*model.Service, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Service), args.Error(1)
}

func (m *ServiceRepository) Update(ctx context.Context, service *model.Service) error {
	return m.Called(ctx, service).Error(0)
}

func (m *ServiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *ServiceRepository) List(ctx context.Context, page model.Pagination) ([]*model.Service, int, error) {
	args := m.Called(ctx, page)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*model.Service), args.Int(1), args.Error(2)
}

func (m *ServiceRepository) ListBySpecialty(ctx context.Context, specialtyID uuid.UUID) ([]*model.Service, error) {
	args := m.Called(ctx, specialtyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Service), args.Error(1)
}

type SpecialtyRepository struct{ mock.Mock }

func (m *SpecialtyRepository) Create(ctx context.Context, specialty *model.Specialty) error {
	return m.Called(ctx, specialty).Error(0)
}

func (m *SpecialtyRepository) Get(ctx context.Context, id uuid.UUID) (*model.Specialty, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Specialty), args.Error(1)
}

func (m *SpecialtyRepository) GetByName(ctx context.Context, name string) (*model.Specialty, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Specialty), args.Error(1)
}

func (m *SpecialtyRepository) Update(ctx context.Context, specialty *model.Specialty) error {
	return m.Called(ctx, specialty).Error(0)
}

func (m *SpecialtyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *SpecialtyRepository) List(ctx context.Context) ([]*model.Specialty, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Specialty), args.Error(1)
}

func (m *SpecialtyRepository) ExistingIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

type AppointmentRepository struct{ mock.Mock }

func (m *AppointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	return m.Called(ctx, appointment).Error(0)
}

func (m *AppointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Appointment), args.Error(1)
}

func (m *AppointmentRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Appointment), args.Error(1)
}

func (m *AppointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *AppointmentRepository) MarkDetailsPaid(ctx context.Context, detailIDs []uuid.UUID, paidAt time.Time) error {
	return m.Called(ctx, detailIDs, paidAt).Error(0)
}

func (m *AppointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, int, error) {
	args := m.Called(ctx, filters)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*model.Appointment), args.Int(1), args.Error(2)
}

func (m *AppointmentRepository) ListForReport(ctx context.Context, year *int, loc *time.Location) ([]*model.Appointment, error) {
	args := m.Called(ctx, year, loc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Appointment), args.Error(1)
}

type UserRepository struct{ mock.Mock }

func (m *UserRepository) Create(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *UserRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *UserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *UserRepository) Update(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *UserRepository) List(ctx context.Context) ([]*model.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.User), args.Error(1)
}

type OutboxRepository struct{ mock.Mock }

func (m *OutboxRepository) Create(ctx context.Context, event *model.OutboxEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *OutboxRepository) GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.OutboxEvent), args.Error(1)
}

func (m *OutboxRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *OutboxRepository) MarkRetry(ctx context.Context, id uuid.UUID, errMsg string, retryAt time.Time) error {
	return m.Called(ctx, id, errMsg, retryAt).Error(0)
}

func (m *OutboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	return m.Called(ctx, id, errMsg).Error(0)
}

func (m *OutboxRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}
