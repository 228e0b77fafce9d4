package patient

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

func (m *mockService) CreatePatient(ctx context.Context, req *model.PatientRequest) (*model.Patient, error) {
	args := m.Called(ctx, req)
	p, _ := args.Get(0).(*model.Patient)
	return p, args.Error(1)
}

func (m *mockService) GetPatient(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*model.Patient)
	return p, args.Error(1)
}

func (m *mockService) UpdatePatient(ctx context.Context, id uuid.UUID, req *model.PatientRequest) (*model.Patient, error) {
	args := m.Called(ctx, id, req)
	p, _ := args.Get(0).(*model.Patient)
	return p, args.Error(1)
}

func (m *mockService) DeletePatient(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockService) ListPatients(ctx context.Context, filters *model.PatientFilters) (*model.Page[*model.Patient], error) {
	args := m.Called(ctx, filters)
	p, _ := args.Get(0).(*model.Page[*model.Patient])
	return p, args.Error(1)
}

func setup(t *testing.T) (*handlertest.Env, *mockService) {
	env := handlertest.New(t)
	svc := &mockService{}
	NewHandler(svc).RegisterRoutes(env.API, env.Auth)
	return env, svc
}

func TestCreatePatient(t *testing.T) {
	env, svc := setup(t)
	created := &model.Patient{Base: model.Base{ID: uuid.New()}, Name: "Marta", Email: "marta@example.com"}
	svc.On("CreatePatient", mock.Anything, mock.MatchedBy(func(r *model.PatientRequest) bool {
		return r.Name == "Marta"
	})).Return(created, nil)

	token := env.Token(t, model.RoleReceptionist, nil)
	w := env.Do(t, http.MethodPost, "/api/patients", token, map[string]string{"name": "Marta", "email": "marta@example.com"})
	require.Equal(t, http.StatusCreated, w.Code)

	var got model.Patient
	handlertest.DecodeData(t, w, &got)
	assert.Equal(t, created.ID, got.ID)

	w = env.Do(t, http.MethodPost, "/api/patients", token, map[string]string{"email": "not-an-email"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	fields := []string{}
	for _, e := range handlertest.Decode(t, w).Errors {
		fields = append(fields, e.Field)
	}
	assert.ElementsMatch(t, []string{"name", "email"}, fields)

	dentistID := uuid.New()
	w = env.Do(t, http.MethodPost, "/api/patients", env.Token(t, model.RoleDentist, &dentistID), map[string]string{"name": "X"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	svc.AssertNumberOfCalls(t, "CreatePatient", 1)
}

func TestGetPatient(t *testing.T) {
	env, svc := setup(t)
	id := uuid.New()
	svc.On("GetPatient", mock.Anything, id).Return(nil, apperrors.NotFound("patient", nil))

	dentistID := uuid.New()
	w := env.Do(t, http.MethodGet, "/api/patients/"+id.String(), env.Token(t, model.RoleDentist, &dentistID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdatePatient(t *testing.T) {
	env, svc := setup(t)
	id := uuid.New()
	svc.On("UpdatePatient", mock.Anything, id, mock.Anything).
		Return(&model.Patient{Base: model.Base{ID: id}, Name: "Marta R."}, nil)

	w := env.Do(t, http.MethodPut, "/api/patients/"+id.String(), env.Token(t, model.RoleAdmin, nil), map[string]string{"name": "Marta R."})
	require.Equal(t, http.StatusOK, w.Code)

	var got model.Patient
	handlertest.DecodeData(t, w, &got)
	assert.Equal(t, "Marta R.", got.Name)
}

func TestDeletePatient(t *testing.T) {
	env, svc := setup(t)
	id := uuid.New()
	svc.On("DeletePatient", mock.Anything, id).Return(nil)

	w := env.Do(t, http.MethodDelete, "/api/patients/"+id.String(), env.Token(t, model.RoleReceptionist, nil), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.Do(t, http.MethodDelete, "/api/patients/"+id.String(), env.Token(t, model.RoleAdmin, nil), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	svc.AssertNumberOfCalls(t, "DeletePatient", 1)
}

func TestDeletePatient_Conflict(t *testing.T) {
	env, svc := setup(t)
	id := uuid.New()
	svc.On("DeletePatient", mock.Anything, id).Return(apperrors.Conflict("patient has appointments"))

	w := env.Do(t, http.MethodDelete, "/api/patients/"+id.String(), env.Token(t, model.RoleAdmin, nil), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestListPatients(t *testing.T) {
	env, svc := setup(t)
	svc.On("ListPatients", mock.Anything, mock.MatchedBy(func(f *model.PatientFilters) bool {
		return f.Name == "mar" && f.Phone == "" && f.Email == "" && f.Page == 0 && f.Size == 20
	})).Return(&model.Page[*model.Patient]{
		Items: []*model.Patient{{Name: "Marta"}, {Name: "Mario"}},
		Total: 2,
	}, nil)

	w := env.Do(t, http.MethodGet, "/api/patients?name=mar&size=20", env.Token(t, model.RoleAdmin, nil), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var page handlertest.Page
	handlertest.DecodeData(t, w, &page)
	assert.Equal(t, 2, page.Pagination.Total)
	assert.Equal(t, 1, page.Pagination.TotalPage)
	svc.AssertExpectations(t)
}
