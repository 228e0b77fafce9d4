package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/edconde/clinica3s/internal/model"
	"github.com/edconde/clinica3s/internal/repository"
	"github.com/edconde/clinica3s/pkg/auth"
	apperrors "github.com/edconde/clinica3s/pkg/errors"
	"github.com/edconde/clinica3s/pkg/security"
)

var errInvalidCredentials = apperrors.Unauthorized("invalid credentials")

type Service struct {
	users    repository.UserRepository
	dentists repository.DentistRepository
	jwtSvc   auth.JWTService
	hasher   security.PasswordHasher
}

func NewService(users repository.UserRepository, dentists repository.DentistRepository, jwtSvc auth.JWTService, hasher security.PasswordHasher) *Service {
	return &Service{
		users:    users,
		dentists: dentists,
		jwtSvc:   jwtSvc,
		hasher:   hasher,
	}
}

// Login checks the credentials of an enabled user and issues an access token.
// Unknown users and wrong passwords produce the same error.
func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error) {
	user, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		if errors.Is(err, security.ErrPasswordMismatch) {
			return nil, errInvalidCredentials
		}
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !user.Enabled {
		return nil, apperrors.Unauthorized("user is disabled")
	}

	var dentistID *uuid.UUID
	if user.Role == model.RoleDentist {
		dentist, err := s.dentists.GetByUserID(ctx, user.ID)
		if err != nil && !apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("failed to get dentist profile: %w", err)
		}
		if dentist != nil {
			dentistID = &dentist.ID
		}
	}

	token, err := s.jwtSvc.GenerateAccessToken(auth.Subject{
		UserID:    user.ID,
		Username:  user.Username,
		Role:      string(user.Role),
		DentistID: dentistID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &model.LoginResponse{
		Token:     token,
		Role:      user.Role,
		Username:  user.Username,
		UserID:    user.ID,
		DentistID: dentistID,
	}, nil
}

func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, req *model.ChangePasswordRequest) error {
	if req.NewPassword != req.ConfirmPassword {
		return apperrors.BadRequest("new password and confirmation do not match", nil)
	}
	if req.NewPassword == req.CurrentPassword {
		return apperrors.BadRequest("new password must differ from the current one", nil)
	}

	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if err := s.hasher.Compare(user.PasswordHash, req.CurrentPassword); err != nil {
		if errors.Is(err, security.ErrPasswordMismatch) {
			return apperrors.BadRequest("current password is incorrect", nil)
		}
		return fmt.Errorf("failed to verify password: %w", err)
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		if security.IsPolicyViolation(err) {
			return apperrors.BadRequest(err.Error(), err)
		}
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}
