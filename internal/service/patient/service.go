package patient

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/edconde/clinica3s/internal/model"
	"github.com/edconde/clinica3s/internal/repository"
)

// StatsInvalidator drops cached dashboard figures.
type StatsInvalidator interface {
	Invalidate()
}

type Service struct {
	repo  repository.PatientRepository
	stats StatsInvalidator
}

// NewService takes the dashboard cache to flush when the patient count changes; stats may be nil.
func NewService(repo repository.PatientRepository, stats StatsInvalidator) *Service {
	return &Service{repo: repo, stats: stats}
}

func (s *Service) CreatePatient(ctx context.Context, req *model.PatientRequest) (*model.Patient, error) {
	patient := &model.Patient{Base: model.Base{ID: uuid.New()}}
	req.Apply(patient)
	normalize(patient)

	if err := s.repo.Create(ctx, patient); err != nil {
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}
	s.invalidate()
	return patient, nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	patient, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return patient, nil
}

func (s *Service) UpdatePatient(ctx context.Context, id uuid.UUID, req *model.PatientRequest) (*model.Patient, error) {
	patient, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}

	req.Apply(patient)
	normalize(patient)
	if err := s.repo.Update(ctx, patient); err != nil {
		return nil, fmt.Errorf("failed to update patient: %w", err)
	}
	return patient, nil
}

func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete patient: %w", err)
	}
	s.invalidate()
	return nil
}

func (s *Service) ListPatients(ctx context.Context, filters *model.PatientFilters) (*model.Page[*model.Patient], error) {
	filters.Pagination = filters.Pagination.Normalize()
	filters.Name = strings.TrimSpace(filters.Name)
	filters.Phone = strings.TrimSpace(filters.Phone)
	filters.Email = strings.TrimSpace(filters.Email)

	patients, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return &model.Page[*model.Patient]{Items: patients, Total: total}, nil
}

func (s *Service) invalidate() {
	if s.stats != nil {
		s.stats.Invalidate()
	}
}

func normalize(p *model.Patient) {
	p.Name = strings.TrimSpace(p.Name)
	p.Phone = strings.TrimSpace(p.Phone)
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
}
