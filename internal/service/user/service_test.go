package user

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edconde/clinica3s/internal/model"
	"github.com/edconde/clinica3s/internal/repository/mocks"
	apperrors "github.com/edconde/clinica3s/pkg/errors"
	"github.com/edconde/clinica3s/pkg/security"
)

type fixture struct {
	svc         *Service
	tx          *mocks.Transactor
	users       *mocks.UserRepository
	dentists    *mocks.DentistRepository
	specialties *mocks.SpecialtyRepository
	hasher      security.PasswordHasher
	stats       *countingInvalidator
}

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) Invalidate() { c.calls++ }

func newFixture() *fixture {
	f := &fixture{
		tx:          &mocks.Transactor{},
		users:       new(mocks.UserRepository),
		dentists:    new(mocks.DentistRepository),
		specialties: new(mocks.SpecialtyRepository),
		hasher:      security.NewBcryptHasher(4),
		stats:       &countingInvalidator{},
	}
	f.svc = NewService(f.tx, f.users, f.dentists, f.specialties, f.hasher, f.stats)
	return f
}

func TestCreateUser_Receptionist(t *testing.T) {
	f := newFixture()
	f.users.On("ExistsByUsername", mock.Anything, "maria").Return(false, nil)
	f.users.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)

	user, err := f.svc.CreateUser(context.Background(), &model.CreateUserRequest{
		Username: "maria",
		Password: "secret1",
		Role:     model.RoleReceptionist,
	})
	require.NoError(t, err)

	assert.Equal(t, "maria", user.Name)
	assert.True(t, user.Enabled)
	assert.NoError(t, f.hasher.Compare(user.PasswordHash, "secret1"))
	f.dentists.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	assert.Zero(t, f.stats.calls)
}

func TestCreateUser_DentistCreatesProfile(t *testing.T) {
	f := newFixture()
	specialty := uuid.New()
	f.users.On("ExistsByUsername", mock.Anything, "druiz").Return(false, nil)
	f.users.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.specialties.On("ExistingIDs", mock.Anything, []uuid.UUID{specialty}).Return([]uuid.UUID{specialty}, nil)

	var created *model.Dentist
	f.dentists.On("Create", mock.Anything, mock.AnythingOfType("*model.Dentist")).
		Run(func(args mock.Arguments) { created = args.Get(1).(*model.Dentist) }).
		Return(nil)

	user, err := f.svc.CreateUser(context.Background(), &model.CreateUserRequest{
		Username:      "druiz",
		Password:      "secret1",
		Role:          model.RoleDentist,
		DentistName:   "Dr. Ruiz",
		LicenseNumber: "LIC-9",
		SpecialtyIDs:  []uuid.UUID{specialty},
	})
	require.NoError(t, err)

	assert.Equal(t, "Dr. Ruiz", user.Name)
	require.NotNil(t, created)
	assert.Equal(t, user.ID, created.UserID)
	assert.Equal(t, "LIC-9", created.LicenseNumber)
	require.NotNil(t, created.CommissionRate)
	assert.Zero(t, *created.CommissionRate)
	assert.Equal(t, 1, f.tx.Calls)
	assert.Equal(t, 1, f.stats.calls)
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	f := newFixture()
	f.users.On("ExistsByUsername", mock.Anything, "admin").Return(true, nil)

	_, err := f.svc.CreateUser(context.Background(), &model.CreateUserRequest{
		Username: "admin", Password: "secret1", Role: model.RoleAdmin,
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
	f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateUser_DentistRequiresLicense(t *testing.T) {
	f := newFixture()
	_, err := f.svc.CreateUser(context.Background(), &model.CreateUserRequest{
		Username: "d", Password: "secret1", Role: model.RoleDentist,
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))
}

func TestCreateUser_ShortPassword(t *testing.T) {
	f := newFixture()
	f.users.On("ExistsByUsername", mock.Anything, "x").Return(false, nil)

	_, err := f.svc.CreateUser(context.Background(), &model.CreateUserRequest{
		Username: "x", Password: "123", Role: model.RoleAdmin,
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))
}

func TestCreateUser_DentistProfileFailureAborts(t *testing.T) {
	f := newFixture()
	f.users.On("ExistsByUsername", mock.Anything, "d").Return(false, nil)
	f.users.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.dentists.On("Create", mock.Anything, mock.Anything).Return(errors.New("license taken"))

	_, err := f.svc.CreateUser(context.Background(), &model.CreateUserRequest{
		Username: "d", Password: "secret1", Role: model.RoleDentist, LicenseNumber: "L",
	})
	assert.ErrorContains(t, err, "license taken")
}

func TestSetEnabled(t *testing.T) {
	f := newFixture()
	user := &model.User{Base: model.Base{ID: uuid.New()}, Enabled: true}
	f.users.On("Get", mock.Anything, user.ID).Return(user, nil)
	f.users.On("Update", mock.Anything, mock.MatchedBy(func(u *model.User) bool { return !u.Enabled })).Return(nil)

	got, err := f.svc.SetEnabled(context.Background(), user.ID, false)
	require.NoError(t, err)
	assert.False(t, got.Enabled)
	f.users.AssertExpectations(t)
}
