package report

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/edconde/clinica3s/internal/model"
	"github.com/edconde/clinica3s/internal/repository"
	"github.com/edconde/clinica3s/pkg/metrics"
)

type Config struct {
	// CacheTTL bounds how long stats are served per year filter. Zero disables caching.
	CacheTTL time.Duration
	// Location is the clinic's zone; years and months are taken on its wall clock.
	Location *time.Location
}

type Service struct {
	appointments repository.AppointmentRepository
	patients     repository.PatientRepository
	cache        *cache.Cache
	loc          *time.Location
	metrics      *metrics.Metrics
	now          func() time.Time
}

func NewService(appointments repository.AppointmentRepository, patients repository.PatientRepository, cfg Config, m *metrics.Metrics) *Service {
	if m == nil {
		m = metrics.NewNoop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	s := &Service{
		appointments: appointments,
		patients:     patients,
		loc:          cfg.Location,
		metrics:      m,
		now:          time.Now,
	}
	if cfg.CacheTTL > 0 {
		s.cache = cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}
	return s
}

func (s *Service) GetDashboardStats(ctx context.Context, year *int) (*model.DashboardStats, error) {
	key := cacheKey(year)
	if s.cache != nil {
		if cached, found := s.cache.Get(key); found {
			s.metrics.DashboardCacheTotal.WithLabelValues("hit").Inc()
			return cached.(*model.DashboardStats), nil
		}
		s.metrics.DashboardCacheTotal.WithLabelValues("miss").Inc()
	}

	start := time.Now()
	defer func() {
		s.metrics.DashboardLatency.Observe(time.Since(start).Seconds())
	}()

	appointments, err := s.appointments.ListForReport(ctx, year, s.loc)
	if err != nil {
		return nil, fmt.Errorf("failed to load appointments: %w", err)
	}
	totalPatients, err := s.patients.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count patients: %w", err)
	}

	stats := Aggregate(appointments, totalPatients, year, s.now(), s.loc)
	if s.cache != nil {
		s.cache.SetDefault(key, stats)
	}
	return stats, nil
}

// Invalidate drops every cached result.
func (s *Service) Invalidate() {
	if s.cache != nil {
		s.cache.Flush()
	}
}

func cacheKey(year *int) string {
	if year == nil {
		return "all"
	}
	return strconv.Itoa(*year)
}
