// Package catalog manages billable services and the specialties they belong to.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/edconde/clinica3s/internal/model"
	"github.com/edconde/clinica3s/internal/repository"
	apperrors "github.com/edconde/clinica3s/pkg/errors"
)

// StatsInvalidator drops cached dashboard figures.
type StatsInvalidator interface {
	Invalidate()
}

type Service struct {
	services    repository.ServiceRepository
	specialties repository.SpecialtyRepository
	stats       StatsInvalidator
}

// NewService takes the dashboard cache to flush when a service's costs change; stats may be nil.
func NewService(services repository.ServiceRepository, specialties repository.SpecialtyRepository, stats StatsInvalidator) *Service {
	return &Service{
		services:    services,
		specialties: specialties,
		stats:       stats,
	}
}

func (s *Service) CreateService(ctx context.Context, req *model.ServiceRequest) (*model.Service, error) {
	if err := s.validateService(ctx, req); err != nil {
		return nil, err
	}

	service := &model.Service{Base: model.Base{ID: uuid.New()}}
	req.Apply(service)
	service.Name = strings.TrimSpace(service.Name)
	if err := s.services.Create(ctx, service); err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}
	s.invalidate()
	return service, nil
}

func (s *Service) GetService(ctx context.Context, id uuid.UUID) (*model.Service, error) {
	service, err := s.services.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get service: %w", err)
	}
	return service, nil
}

// UpdateService edits the catalog entry. Booked line items keep the price they
// were charged at.
func (s *Service) UpdateService(ctx context.Context, id uuid.UUID, req *model.ServiceRequest) (*model.Service, error) {
	service, err := s.services.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get service: %w", err)
	}
	if err := s.validateService(ctx, req); err != nil {
		return nil, err
	}

	req.Apply(service)
	service.Name = strings.TrimSpace(service.Name)
	if err := s.services.Update(ctx, service); err != nil {
		return nil, fmt.Errorf("failed to update service: %w", err)
	}
	s.invalidate()
	return service, nil
}

func (s *Service) DeleteService(ctx context.Context, id uuid.UUID) error {
	if err := s.services.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete service: %w", err)
	}
	s.invalidate()
	return nil
}

func (s *Service) ListServices(ctx context.Context, page model.Pagination) (*model.Page[*model.Service], error) {
	services, total, err := s.services.List(ctx, page.Normalize())
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	return &model.Page[*model.Service]{Items: services, Total: total}, nil
}

func (s *Service) ListServicesBySpecialty(ctx context.Context, specialtyID uuid.UUID) ([]*model.Service, error) {
	if _, err := s.specialties.Get(ctx, specialtyID); err != nil {
		return nil, fmt.Errorf("failed to get specialty: %w", err)
	}
	services, err := s.services.ListBySpecialty(ctx, specialtyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	return services, nil
}

func (s *Service) validateService(ctx context.Context, req *model.ServiceRequest) error {
	if req.StandardCost == nil || req.ListPrice == nil {
		return apperrors.BadRequest("standardCost and listPrice are required", nil)
	}
	if *req.StandardCost < 0 || *req.ListPrice < 0 {
		return apperrors.BadRequest("prices must not be negative", nil)
	}
	if req.SpecialtyID != nil {
		if _, err := s.specialties.Get(ctx, *req.SpecialtyID); err != nil {
			return fmt.Errorf("failed to get specialty: %w", err)
		}
	}
	return nil
}

func (s *Service) invalidate() {
	if s.stats != nil {
		s.stats.Invalidate()
	}
}

func (s *Service) CreateSpecialty(ctx context.Context, req *model.SpecialtyRequest) (*model.Specialty, error) {
	specialty := &model.Specialty{
		Base: model.Base{ID: uuid.New()},
		Name: strings.TrimSpace(req.Name),
	}
	if err := s.specialties.Create(ctx, specialty); err != nil {
		return nil, fmt.Errorf("failed to create specialty: %w", err)
	}
	return specialty, nil
}

func (s *Service) GetSpecialty(ctx context.Context, id uuid.UUID) (*model.Specialty, error) {
	specialty, err := s.specialties.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get specialty: %w", err)
	}
	return specialty, nil
}

func (s *Service) UpdateSpecialty(ctx context.Context, id uuid.UUID, req *model.SpecialtyRequest) (*model.Specialty, error) {
	specialty, err := s.specialties.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get specialty: %w", err)
	}

	specialty.Name = strings.TrimSpace(req.Name)
	if err := s.specialties.Update(ctx, specialty); err != nil {
		return nil, fmt.Errorf("failed to update specialty: %w", err)
	}
	return specialty, nil
}

func (s *Service) DeleteSpecialty(ctx context.Context, id uuid.UUID) error {
	if err := s.specialties.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete specialty: %w", err)
	}
	return nil
}

func (s *Service) ListSpecialties(ctx context.Context) ([]*model.Specialty, error) {
	specialties, err := s.specialties.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list specialties: %w", err)
	}
	return specialties, nil
}
