package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edconde/clinica3s/internal/model"
	"github.com/edconde/clinica3s/internal/repository/mocks"
	apperrors "github.com/edconde/clinica3s/pkg/errors"
)

func price(v float64) *float64 { return &v }

func TestCreateService(t *testing.T) {
	services := new(mocks.ServiceRepository)
	specialties := new(mocks.SpecialtyRepository)
	spy := &countingInvalidator{}
	svc := NewService(services, specialties, spy)

	specialtyID := uuid.New()
	specialties.On("Get", mock.Anything, specialtyID).Return(&model.Specialty{Base: model.Base{ID: specialtyID}}, nil)
	services.On("Create", mock.Anything, mock.AnythingOfType("*model.Service")).Return(nil)

	got, err := svc.CreateService(context.Background(), &model.ServiceRequest{
		Name:         " Whitening ",
		StandardCost: price(40),
		ListPrice:    price(120),
		SpecialtyID:  &specialtyID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Whitening", got.Name)
	assert.Equal(t, 120.0, got.ListPrice)
	assert.Equal(t, 40.0, got.StandardCost)
	assert.Equal(t, 1, spy.calls)
	services.AssertExpectations(t)
}

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) Invalidate() { c.calls++ }

func TestCreateService_UnknownSpecialty(t *testing.T) {
	services := new(mocks.ServiceRepository)
	specialties := new(mocks.SpecialtyRepository)
	svc := NewService(services, specialties, nil)

	specialtyID := uuid.New()
	specialties.On("Get", mock.Anything, specialtyID).Return(nil, apperrors.NotFound("specialty", nil))

	_, err := svc.CreateService(context.Background(), &model.ServiceRequest{
		Name: "X", StandardCost: price(1), ListPrice: price(2), SpecialtyID: &specialtyID,
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	services.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateService_NegativePrice(t *testing.T) {
	svc := NewService(new(mocks.ServiceRepository), new(mocks.SpecialtyRepository), nil)
	_, err := svc.CreateService(context.Background(), &model.ServiceRequest{
		Name: "X", StandardCost: price(-1), ListPrice: price(2),
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))
}

func TestListServicesBySpecialty_MissingSpecialty(t *testing.T) {
	services := new(mocks.ServiceRepository)
	specialties := new(mocks.SpecialtyRepository)
	svc := NewService(services, specialties, nil)
	id := uuid.New()
	specialties.On("Get", mock.Anything, id).Return(nil, apperrors.NotFound("specialty", nil))

	_, err := svc.ListServicesBySpecialty(context.Background(), id)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	services.AssertNotCalled(t, "ListBySpecialty", mock.Anything, mock.Anything)
}

func TestCreateSpecialty_Conflict(t *testing.T) {
	specialties := new(mocks.SpecialtyRepository)
	svc := NewService(new(mocks.ServiceRepository), specialties, nil)
	specialties.On("Create", mock.Anything, mock.Anything).Return(apperrors.Conflict("specialty name already exists"))

	_, err := svc.CreateSpecialty(context.Background(), &model.SpecialtyRequest{Name: "Orthodontics"})
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
}

func TestListServices_NormalizesPage(t *testing.T) {
	services := new(mocks.ServiceRepository)
	svc := NewService(services, new(mocks.SpecialtyRepository), nil)
	services.On("List", mock.Anything, model.Pagination{Page: 0, Size: model.DefaultPageSize}).
		Return([]*model.Service{}, 0, nil)

	page, err := svc.ListServices(context.Background(), model.Pagination{})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}
