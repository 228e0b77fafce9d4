package dentist

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

type fixture struct {
	svc         *Service
	tx          *mocks.Transactor
	repo        *mocks.DentistRepository
	users       *mocks.UserRepository
	specialties *mocks.SpecialtyRepository
	stats       *countingInvalidator
}

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) Invalidate() { c.calls++ }

func newFixture() *fixture {
	f := &fixture{
		tx:          &mocks.Transactor{},
		repo:        new(mocks.DentistRepository),
		users:       new(mocks.UserRepository),
		specialties: new(mocks.SpecialtyRepository),
		stats:       &countingInvalidator{},
	}
	f.svc = NewService(f.tx, f.repo, f.users, f.specialties, f.stats)
	return f
}

func rate(v float64) *float64 { return &v }

func TestUpdateDentist_KeepsCommissionWhenAbsent(t *testing.T) {
	f := newFixture()
	dentist := &model.Dentist{Base: model.Base{ID: uuid.New()}, LicenseNumber: "OLD", CommissionRate: rate(12)}
	f.repo.On("Get", mock.Anything, dentist.ID).Return(dentist, nil)
	f.repo.On("Update", mock.Anything, mock.MatchedBy(func(d *model.Dentist) bool {
		return d.LicenseNumber == "NEW" && *d.CommissionRate == 12 && d.SpecialtyIDs == nil
	})).Return(nil)

	got, err := f.svc.UpdateDentist(context.Background(), dentist.ID, &model.UpdateDentistRequest{LicenseNumber: "NEW"})
	require.NoError(t, err)
	assert.Equal(t, "NEW", got.LicenseNumber)
	f.specialties.AssertNotCalled(t, "ExistingIDs", mock.Anything, mock.Anything)
	f.repo.AssertExpectations(t)
}

func TestUpdateDentist_ReplacesSpecialties(t *testing.T) {
	f := newFixture()
	dentist := &model.Dentist{Base: model.Base{ID: uuid.New()}}
	ortho, endo := uuid.New(), uuid.New()
	ids := []uuid.UUID{ortho, endo}

	f.repo.On("Get", mock.Anything, dentist.ID).Return(dentist, nil)
	f.specialties.On("ExistingIDs", mock.Anything, ids).Return(ids, nil)
	f.repo.On("Update", mock.Anything, mock.MatchedBy(func(d *model.Dentist) bool {
		return len(d.SpecialtyIDs) == 2 && *d.CommissionRate == 30
	})).Return(nil)

	_, err := f.svc.UpdateDentist(context.Background(), dentist.ID, &model.UpdateDentistRequest{
		LicenseNumber:  "LIC",
		CommissionRate: rate(30),
		SpecialtyIDs:   &ids,
	})
	require.NoError(t, err)
	f.repo.AssertExpectations(t)
}

func TestUpdateDentist_UnknownSpecialty(t *testing.T) {
	f := newFixture()
	dentist := &model.Dentist{Base: model.Base{ID: uuid.New()}}
	known, unknown := uuid.New(), uuid.New()
	ids := []uuid.UUID{known, unknown}

	f.repo.On("Get", mock.Anything, dentist.ID).Return(dentist, nil)
	f.specialties.On("ExistingIDs", mock.Anything, ids).Return([]uuid.UUID{known}, nil)

	_, err := f.svc.UpdateDentist(context.Background(), dentist.ID, &model.UpdateDentistRequest{LicenseNumber: "L", SpecialtyIDs: &ids})
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	f.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestDeleteDentist_RemovesLogin(t *testing.T) {
	f := newFixture()
	dentist := &model.Dentist{Base: model.Base{ID: uuid.New()}, UserID: uuid.New()}
	f.repo.On("Get", mock.Anything, dentist.ID).Return(dentist, nil)
	f.repo.On("Delete", mock.Anything, dentist.ID).Return(nil)
	f.users.On("Delete", mock.Anything, dentist.UserID).Return(nil)

	require.NoError(t, f.svc.DeleteDentist(context.Background(), dentist.ID))
	assert.Equal(t, 1, f.tx.Calls)
	assert.Equal(t, 1, f.stats.calls)
	f.users.AssertExpectations(t)
}

func TestDeleteDentist_WithAppointments(t *testing.T) {
	f := newFixture()
	dentist := &model.Dentist{Base: model.Base{ID: uuid.New()}, UserID: uuid.New()}
	f.repo.On("Get", mock.Anything, dentist.ID).Return(dentist, nil)
	f.repo.On("Delete", mock.Anything, dentist.ID).Return(apperrors.Conflict("dentist has appointments"))

	err := f.svc.DeleteDentist(context.Background(), dentist.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
	f.users.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	assert.Zero(t, f.stats.calls)
}

func TestCheckSpecialties_Empty(t *testing.T) {
	repo := new(mocks.SpecialtyRepository)
	assert.NoError(t, CheckSpecialties(context.Background(), repo, nil))
	repo.AssertNotCalled(t, "ExistingIDs", mock.Anything, mock.Anything)
}
