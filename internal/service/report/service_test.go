package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edconde/clinica3s/internal/model"
	"github.com/edconde/clinica3s/internal/repository/mocks"
	"github.com/edconde/clinica3s/pkg/metrics"
)

func newTestService(ttl time.Duration) (*Service, *mocks.AppointmentRepository, *mocks.PatientRepository, *metrics.Metrics) {
	appointments := new(mocks.AppointmentRepository)
	patients := new(mocks.PatientRepository)
	m := metrics.NewNoop()
	svc := NewService(appointments, patients, Config{CacheTTL: ttl}, m)
	svc.now = func() time.Time { return now }
	return svc, appointments, patients, m
}

func TestService_GetDashboardStats(t *testing.T) {
	svc, appointments, patients, _ := newTestService(0)
	paid := now
	dentist := &model.Dentist{Base: model.Base{ID: uuid.New()}, Name: "Dr. Ruiz"}
	year := 2024

	appointments.On("ListForReport", mock.Anything, &year, time.UTC).Return([]*model.Appointment{
		appointment(dentist, time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC), model.AppointmentStatusCompleted,
			detail(serviceA, 1, &paid)),
	}, nil)
	patients.On("Count", mock.Anything).Return(int64(12), nil)

	stats, err := svc.GetDashboardStats(context.Background(), &year)
	require.NoError(t, err)
	assert.Equal(t, int64(12), stats.TotalPatients)
	assert.Equal(t, 20.0, stats.TotalRevenue)
}

func TestService_CachesPerYearUntilInvalidated(t *testing.T) {
	svc, appointments, patients, m := newTestService(time.Minute)
	appointments.On("ListForReport", mock.Anything, (*int)(nil), mock.Anything).Return([]*model.Appointment{}, nil)
	patients.On("Count", mock.Anything).Return(int64(1), nil)

	ctx := context.Background()
	_, err := svc.GetDashboardStats(ctx, nil)
	require.NoError(t, err)
	_, err = svc.GetDashboardStats(ctx, nil)
	require.NoError(t, err)
	appointments.AssertNumberOfCalls(t, "ListForReport", 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DashboardCacheTotal.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DashboardCacheTotal.WithLabelValues("miss")))

	svc.Invalidate()
	_, err = svc.GetDashboardStats(ctx, nil)
	require.NoError(t, err)
	appointments.AssertNumberOfCalls(t, "ListForReport", 2)
}

func TestService_PropagatesStoreErrors(t *testing.T) {
	svc, appointments, _, _ := newTestService(time.Minute)
	appointments.On("ListForReport", mock.Anything, (*int)(nil), mock.Anything).Return(nil, errors.New("connection reset"))

	_, err := svc.GetDashboardStats(context.Background(), nil)
	assert.ErrorContains(t, err, "connection reset")
}

func TestService_PassesClinicLocationToStore(t *testing.T) {
	madrid, err := time.LoadLocation("Europe/Madrid")
	require.NoError(t, err)

	appointments := new(mocks.AppointmentRepository)
	patients := new(mocks.PatientRepository)
	svc := NewService(appointments, patients, Config{Location: madrid}, nil)
	svc.now = func() time.Time { return now }

	dentist := &model.Dentist{Base: model.Base{ID: uuid.New()}}
	year := 2025
	appointments.On("ListForReport", mock.Anything, &year, madrid).Return([]*model.Appointment{
		appointment(dentist, time.Date(2024, 12, 31, 23, 30, 0, 0, time.UTC), model.AppointmentStatusPending),
	}, nil)
	patients.On("Count", mock.Anything).Return(int64(0), nil)

	stats, err := svc.GetDashboardStats(context.Background(), &year)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalAppointments)
	require.Len(t, stats.MonthlyStats, 1)
	assert.Equal(t, "2025-01", stats.MonthlyStats[0].Month)
}
