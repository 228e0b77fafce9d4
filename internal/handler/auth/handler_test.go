package auth

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edconde/clinica3s/internal/handler/handlertest"
	"github.com/edconde/clinica3s/internal/model"
	apperrors "github.com/edconde/clinica3s/pkg/errors"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error) {
	args := m.Called(ctx, req)
	r, _ := args.Get(0).(*model.LoginResponse)
	return r, args.Error(1)
}

func (m *mockService) ChangePassword(ctx context.Context, userID uuid.UUID, req *model.ChangePasswordRequest) error {
	return m.Called(ctx, userID, req).Error(0)
}

func setup(t *testing.T) (*handlertest.Env, *mockService) {
	env := handlertest.New(t)
	svc := &mockService{}
	NewHandler(svc).RegisterRoutes(env.Public, env.API)
	return env, svc
}

func TestLogin(t *testing.T) {
	env, svc := setup(t)
	userID := uuid.New()
	svc.On("Login", mock.Anything, &model.LoginRequest{Username: "admin", Password: "secret1"}).
		Return(&model.LoginResponse{Token: "jwt", Role: model.RoleAdmin, Username: "admin", UserID: userID}, nil)
	svc.On("Login", mock.Anything, &model.LoginRequest{Username: "admin", Password: "wrong"}).
		Return(nil, apperrors.Unauthorized("invalid credentials"))

	w := env.Do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "admin", "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp model.LoginResponse
	handlertest.DecodeData(t, w, &resp)
	assert.Equal(t, "jwt", resp.Token)
	assert.Equal(t, userID, resp.UserID)
	assert.Nil(t, resp.DentistID)

	w = env.Do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "admin", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid credentials", handlertest.Decode(t, w).Message)

	w = env.Do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "admin"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChangePassword(t *testing.T) {
	env, svc := setup(t)
	svc.On("ChangePassword", mock.Anything, mock.Anything, mock.MatchedBy(func(r *model.ChangePasswordRequest) bool {
		return r.NewPassword == "newpass1"
	})).Return(nil)
	svc.On("ChangePassword", mock.Anything, mock.Anything, mock.Anything).
		Return(apperrors.BadRequest("current password is incorrect", nil))

	dentistID := uuid.New()
	token := env.Token(t, model.RoleDentist, &dentistID)

	ok := map[string]string{"currentPassword": "old", "newPassword": "newpass1", "confirmPassword": "newpass1"}
	w := env.Do(t, http.MethodPut, "/api/auth/change-password", token, ok)
	assert.Equal(t, http.StatusOK, w.Code)

	bad := map[string]string{"currentPassword": "nope", "newPassword": "other12", "confirmPassword": "other12"}
	w = env.Do(t, http.MethodPut, "/api/auth/change-password", token, bad)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	short := map[string]string{"currentPassword": "old", "newPassword": "abc", "confirmPassword": "abc"}
	w = env.Do(t, http.MethodPut, "/api/auth/change-password", token, short)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.Do(t, http.MethodPut, "/api/auth/change-password", "", ok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	svc.AssertNumberOfCalls(t, "ChangePassword", 2)
}
