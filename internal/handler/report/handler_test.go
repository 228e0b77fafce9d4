package report

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edconde/clinica3s/internal/handler/handlertest"
	"github.com/edconde/clinica3s/internal/model"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) GetDashboardStats(ctx context.Context, year *int) (*model.DashboardStats, error) {
	args := m.Called(ctx, year)
	s, _ := args.Get(0).(*model.DashboardStats)
	return s, args.Error(1)
}

func setup(t *testing.T) (*handlertest.Env, *mockService) {
	env := handlertest.New(t)
	svc := &mockService{}
	NewHandler(svc).RegisterRoutes(env.API, env.Auth)
	return env, svc
}

func TestGetDashboard(t *testing.T) {
	env, svc := setup(t)

	stats := &model.DashboardStats{
		TotalPatients:  3,
		TotalInvoicing: 90,
		MonthlyStats: []model.MonthlyStats{
			{Month: "2024-03", Appointments: 1},
			{Month: "2024-01", Appointments: 2},
		},
		DentistStats: []model.DentistStats{
			{DentistID: uuid.New(), DentistName: "Zamora"},
			{DentistID: uuid.New(), DentistName: "Alonso"},
		},
	}
	svc.On("GetDashboardStats", mock.Anything, mock.MatchedBy(func(y *int) bool {
		return y != nil && *y == 2024
	})).Return(stats, nil)

	w := env.Do(t, http.MethodGet, "/api/reports/dashboard?year=2024", env.Token(t, model.RoleAdmin, nil), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got model.DashboardStats
	handlertest.DecodeData(t, w, &got)
	assert.Equal(t, int64(3), got.TotalPatients)
	assert.Equal(t, "2024-01", got.MonthlyStats[0].Month)
	assert.Equal(t, "Alonso", got.DentistStats[0].DentistName)

	// the service's value is left as it was
	assert.Equal(t, "2024-03", stats.MonthlyStats[0].Month)
}

func TestGetDashboard_AllYears(t *testing.T) {
	env, svc := setup(t)
	svc.On("GetDashboardStats", mock.Anything, (*int)(nil)).
		Return(&model.DashboardStats{MonthlyStats: []model.MonthlyStats{}, DentistStats: []model.DentistStats{}}, nil)

	w := env.Do(t, http.MethodGet, "/api/reports/dashboard", env.Token(t, model.RoleReceptionist, nil), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"monthlyStats":[]`)
	assert.Contains(t, w.Body.String(), `"dentistStats":[]`)
}

func TestGetDashboard_Errors(t *testing.T) {
	env, svc := setup(t)
	admin := env.Token(t, model.RoleAdmin, nil)

	w := env.Do(t, http.MethodGet, "/api/reports/dashboard?year=twenty", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	dentistID := uuid.New()
	w = env.Do(t, http.MethodGet, "/api/reports/dashboard", env.Token(t, model.RoleDentist, &dentistID), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	svc.On("GetDashboardStats", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))
	w = env.Do(t, http.MethodGet, "/api/reports/dashboard", admin, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
