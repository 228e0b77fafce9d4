package dentist

import (
	"context"
	"fmt"

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
	tx          repository.Transactor
	repo        repository.DentistRepository
	users       repository.UserRepository
	specialties repository.SpecialtyRepository
	stats       StatsInvalidator
}

func NewService(tx repository.Transactor, repo repository.DentistRepository, users repository.UserRepository,
	specialties repository.SpecialtyRepository, stats StatsInvalidator) *Service {
	return &Service{
		tx:          tx,
		repo:        repo,
		users:       users,
		specialties: specialties,
		stats:       stats,
	}
}

func (s *Service) GetDentist(ctx context.Context, id uuid.UUID) (*model.Dentist, error) {
	dentist, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get dentist: %w", err)
	}
	return dentist, nil
}

func (s *Service) ListDentists(ctx context.Context, filters *model.DentistFilters) (*model.Page[*model.Dentist], error) {
	filters.Pagination = filters.Pagination.Normalize()
	dentists, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list dentists: %w", err)
	}
	return &model.Page[*model.Dentist]{Items: dentists, Total: total}, nil
}

// UpdateDentist always sets the license number. Commission and specialties
// change only when present in the request.
func (s *Service) UpdateDentist(ctx context.Context, id uuid.UUID, req *model.UpdateDentistRequest) (*model.Dentist, error) {
	dentist, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get dentist: %w", err)
	}

	dentist.LicenseNumber = req.LicenseNumber
	if req.CommissionRate != nil {
		rate := *req.CommissionRate
		dentist.CommissionRate = &rate
	}
	dentist.SpecialtyIDs = nil
	if req.SpecialtyIDs != nil {
		if err := CheckSpecialties(ctx, s.specialties, *req.SpecialtyIDs); err != nil {
			return nil, err
		}
		dentist.SpecialtyIDs = append([]uuid.UUID{}, *req.SpecialtyIDs...)
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.repo.Update(ctx, dentist)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update dentist: %w", err)
	}
	s.invalidate()
	return s.repo.Get(ctx, id)
}

// DeleteDentist removes the dentist together with its login.
func (s *Service) DeleteDentist(ctx context.Context, id uuid.UUID) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		dentist, err := s.repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			return err
		}
		return s.users.Delete(ctx, dentist.UserID)
	})
	if err != nil {
		return fmt.Errorf("failed to delete dentist: %w", err)
	}
	s.invalidate()
	return nil
}

func (s *Service) invalidate() {
	if s.stats != nil {
		s.stats.Invalidate()
	}
}

// CheckSpecialties returns NotFound("specialty") unless every id exists.
func CheckSpecialties(ctx context.Context, repo repository.SpecialtyRepository, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	found, err := repo.ExistingIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to check specialties: %w", err)
	}

	known := make(map[uuid.UUID]struct{}, len(found))
	for _, id := range found {
		known[id] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			return apperrors.NotFound("specialty", fmt.Errorf("unknown specialty %s", id))
		}
	}
	return nil
}
