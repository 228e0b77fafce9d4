package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edconde/clinica3s/internal/model"
	"github.com/edconde/clinica3s/internal/repository/mocks"
	"github.com/edconde/clinica3s/pkg/auth"
	apperrors "github.com/edconde/clinica3s/pkg/errors"
	"github.com/edconde/clinica3s/pkg/security"
)

type fixture struct {
	svc      *Service
	users    *mocks.UserRepository
	dentists *mocks.DentistRepository
	jwtSvc   auth.JWTService
	hasher   security.PasswordHasher
}

func newFixture() *fixture {
	f := &fixture{
		users:    new(mocks.UserRepository),
		dentists: new(mocks.DentistRepository),
		jwtSvc:   auth.NewJWTService(auth.Config{Secret: "test", Issuer: "clinica3s", Expiry: time.Hour}),
		hasher:   security.NewBcryptHasher(4),
	}
	f.svc = NewService(f.users, f.dentists, f.jwtSvc, f.hasher)
	return f
}

func (f *fixture) user(t *testing.T, username, password string, role model.Role, enabled bool) *model.User {
	t.Helper()
	hash, err := f.hasher.Hash(password)
	require.NoError(t, err)
	return &model.User{
		Base:         model.Base{ID: uuid.New()},
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		Enabled:      enabled,
	}
}

func TestLogin_Dentist(t *testing.T) {
	f := newFixture()
	user := f.user(t, "druiz", "secret1", model.RoleDentist, true)
	dentist := &model.Dentist{Base: model.Base{ID: uuid.New()}, UserID: user.ID}
	f.users.On("GetByUsername", mock.Anything, "druiz").Return(user, nil)
	f.dentists.On("GetByUserID", mock.Anything, user.ID).Return(dentist, nil)

	resp, err := f.svc.Login(context.Background(), &model.LoginRequest{Username: "druiz", Password: "secret1"})
	require.NoError(t, err)

	assert.Equal(t, model.RoleDentist, resp.Role)
	assert.Equal(t, user.ID, resp.UserID)
	require.NotNil(t, resp.DentistID)
	assert.Equal(t, dentist.ID, *resp.DentistID)

	claims, err := f.jwtSvc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "DENTIST", claims.Role)
	require.NotNil(t, claims.DentistID)
	assert.Equal(t, dentist.ID, *claims.DentistID)
}

func TestLogin_AdminHasNoDentist(t *testing.T) {
	f := newFixture()
	user := f.user(t, "admin", "secret1", model.RoleAdmin, true)
	f.users.On("GetByUsername", mock.Anything, "admin").Return(user, nil)

	resp, err := f.svc.Login(context.Background(), &model.LoginRequest{Username: "admin", Password: "secret1"})
	require.NoError(t, err)
	assert.Nil(t, resp.DentistID)
	f.dentists.AssertNotCalled(t, "GetByUserID", mock.Anything, mock.Anything)
}

func TestLogin_Rejections(t *testing.T) {
	f := newFixture()
	disabled := f.user(t, "gone", "secret1", model.RoleReceptionist, false)
	active := f.user(t, "maria", "secret1", model.RoleReceptionist, true)
	f.users.On("GetByUsername", mock.Anything, "gone").Return(disabled, nil)
	f.users.On("GetByUsername", mock.Anything, "maria").Return(active, nil)
	f.users.On("GetByUsername", mock.Anything, "nobody").Return(nil, apperrors.NotFound("user", nil))

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"unknown user", "nobody", "secret1"},
		{"wrong password", "maria", "wrong-one"},
		{"disabled user", "gone", "secret1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Login(context.Background(), &model.LoginRequest{Username: tt.username, Password: tt.password})
			assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))
		})
	}
}

func TestChangePassword(t *testing.T) {
	f := newFixture()
	user := f.user(t, "maria", "secret1", model.RoleReceptionist, true)
	f.users.On("Get", mock.Anything, user.ID).Return(user, nil)
	f.users.On("Update", mock.Anything, user).Return(nil)

	err := f.svc.ChangePassword(context.Background(), user.ID, &model.ChangePasswordRequest{
		CurrentPassword: "secret1",
		NewPassword:     "secret2",
		ConfirmPassword: "secret2",
	})
	require.NoError(t, err)
	assert.NoError(t, f.hasher.Compare(user.PasswordHash, "secret2"))
}

func TestChangePassword_Rejections(t *testing.T) {
	f := newFixture()
	user := f.user(t, "maria", "secret1", model.RoleReceptionist, true)
	f.users.On("Get", mock.Anything, user.ID).Return(user, nil)

	tests := []struct {
		name string
		req  model.ChangePasswordRequest
	}{
		{"confirmation mismatch", model.ChangePasswordRequest{CurrentPassword: "secret1", NewPassword: "secret2", ConfirmPassword: "secret3"}},
		{"wrong current password", model.ChangePasswordRequest{CurrentPassword: "nope12", NewPassword: "secret2", ConfirmPassword: "secret2"}},
		{"same as current", model.ChangePasswordRequest{CurrentPassword: "secret1", NewPassword: "secret1", ConfirmPassword: "secret1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.svc.ChangePassword(context.Background(), user.ID, &tt.req)
			assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))
		})
	}
	f.users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}
