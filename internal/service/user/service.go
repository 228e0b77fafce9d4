package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/edconde/clinica3s/internal/model"
	"github.com/edconde/clinica3s/internal/repository"
	"github.com/edconde/clinica3s/internal/service/dentist"
	apperrors "github.com/edconde/clinica3s/pkg/errors"
	"github.com/edconde/clinica3s/pkg/security"
)

// StatsInvalidator drops cached dashboard figures.
type StatsInvalidator interface {
	Invalidate()
}

type Service struct {
	tx          repository.Transactor
	users       repository.UserRepository
	dentists    repository.DentistRepository
	specialties repository.SpecialtyRepository
	hasher      security.PasswordHasher
	stats       StatsInvalidator
}

func NewService(tx repository.Transactor, users repository.UserRepository, dentists repository.DentistRepository,
	specialties repository.SpecialtyRepository, hasher security.PasswordHasher, stats StatsInvalidator) *Service {
	return &Service{
		tx:          tx,
		users:       users,
		dentists:    dentists,
		specialties: specialties,
		hasher:      hasher,
		stats:       stats,
	}
}

// CreateUser stores a new enabled user. A DENTIST user gets its dentist profile
// in the same transaction.
func (s *Service) CreateUser(ctx context.Context, req *model.CreateUserRequest) (*model.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, apperrors.BadRequest("username is required", nil)
	}
	if !req.Role.Valid() {
		return nil, apperrors.BadRequest(fmt.Sprintf("invalid role %q", req.Role), nil)
	}
	if req.Role == model.RoleDentist && strings.TrimSpace(req.LicenseNumber) == "" {
		return nil, apperrors.BadRequest("licenseNumber is required for dentists", nil)
	}

	exists, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if exists {
		return nil, apperrors.Conflict("username already exists")
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		if security.IsPolicyViolation(err) {
			return nil, apperrors.BadRequest(err.Error(), err)
		}
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	name := strings.TrimSpace(req.DentistName)
	if name == "" {
		name = username
	}

	user := &model.User{
		Base:         model.Base{ID: uuid.New()},
		Username:     username,
		Name:         name,
		PasswordHash: hash,
		Role:         req.Role,
		Enabled:      true,
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.users.Create(ctx, user); err != nil {
			return err
		}
		if user.Role != model.RoleDentist {
			return nil
		}

		if err := dentist.CheckSpecialties(ctx, s.specialties, req.SpecialtyIDs); err != nil {
			return err
		}
		commission := 0.0
		if req.CommissionRate != nil {
			commission = *req.CommissionRate
		}
		return s.dentists.Create(ctx, &model.Dentist{
			Base:           model.Base{ID: uuid.New()},
			UserID:         user.ID,
			Name:           user.Name,
			LicenseNumber:  strings.TrimSpace(req.LicenseNumber),
			CommissionRate: &commission,
			SpecialtyIDs:   req.SpecialtyIDs,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	if user.Role == model.RoleDentist {
		s.invalidate()
	}
	return user, nil
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]*model.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (s *Service) SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) (*model.User, error) {
	user, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user.Enabled = enabled
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

func (s *Service) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if err := s.users.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	s.invalidate()
	return nil
}

func (s *Service) invalidate() {
	if s.stats != nil {
		s.stats.Invalidate()
	}
}
