package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edconde/clinica3s/internal/model"
	"github.com/edconde/clinica3s/internal/repository"
	apperrors "github.com/edconde/clinica3s/pkg/errors"
)

type userRepository struct {
	BaseRepository
}

func NewUserRepository(db *sqlx.DB) repository.UserRepository {
	return &userRepository{NewBaseRepository(db)}
}

const userColumns = `id, username, name, password_hash, role, enabled, created_at, updated_at`

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (id, username, name, password_hash, role, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt

	_, err := r.conn(ctx).ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.Name,
		user.PasswordHash,
		user.Role,
		user.Enabled,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("username already exists")
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	if err := sqlx.GetContext(ctx, r.conn(ctx), &user, query, id); err != nil {
		return nil, notFoundOr(err, "user", "get")
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	if err := sqlx.GetContext(ctx, r.conn(ctx), &user, query, username); err != nil {
		return nil, notFoundOr(err, "user", "get")
	}
	return &user, nil
}

func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`
	if err := sqlx.GetContext(ctx, r.conn(ctx), &exists, query, username); err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return exists, nil
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	query := `
		UPDATE users
		SET name = $1, password_hash = $2, role = $3, enabled = $4, updated_at = $5
		WHERE id = $6
	`
	user.UpdatedAt = time.Now()
	result, err := r.conn(ctx).ExecContext(ctx, query,
		user.Name,
		user.PasswordHash,
		user.Role,
		user.Enabled,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return checkAffected(result, "user")
}

// Delete removes the user; a linked dentist goes with it unless it still has appointments.
func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.conn(ctx).ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperrors.Conflict("user is a dentist with appointments")
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return checkAffected(result, "user")
}

func (r *userRepository) List(ctx context.Context) ([]*model.User, error) {
	var users []*model.User
	query := `SELECT ` + userColumns + ` FROM users ORDER BY username ASC`
	if err := sqlx.SelectContext(ctx, r.conn(ctx), &users, query); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}
