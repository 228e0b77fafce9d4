package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/edconde/clinica3s/internal/model"
	"github.com/edconde/clinica3s/internal/repository"
	apperrors "github.com/edconde/clinica3s/pkg/errors"
)

type specialtyRepository struct {
	BaseRepository
}

func NewSpecialtyRepository(db *sqlx.DB) repository.SpecialtyRepository {
	return &specialtyRepository{NewBaseRepository(db)}
}

func (r *specialtyRepository) Create(ctx context.Context, specialty *model.Specialty) error {
	if specialty.ID == uuid.Nil {
		specialty.ID = uuid.New()
	}
	specialty.CreatedAt = time.Now()
	specialty.UpdatedAt = specialty.CreatedAt

	_, err := r.conn(ctx).ExecContext(ctx,
		`INSERT INTO specialties (id, name, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		specialty.ID, specialty.Name, specialty.CreatedAt, specialty.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("specialty name already exists")
		}
		return fmt.Errorf("failed to create specialty: %w", err)
	}
	return nil
}

func (r *specialtyRepository) Get(ctx context.Context, id uuid.UUID) (*model.Specialty, error) {
	var specialty model.Specialty
	if err := sqlx.GetContext(ctx, r.conn(ctx), &specialty,
		`SELECT id, name, created_at, updated_at FROM specialties WHERE id = $1`, id); err != nil {
		return nil, notFoundOr(err, "specialty", "get")
	}
	return &specialty, nil
}

func (r *specialtyRepository) GetByName(ctx context.Context, name string) (*model.Specialty, error) {
	var specialty model.Specialty
	if err := sqlx.GetContext(ctx, r.conn(ctx), &specialty,
		`SELECT id, name, created_at, updated_at FROM specialties WHERE name = $1`, name); err != nil {
		return nil, notFoundOr(err, "specialty", "get")
	}
	return &specialty, nil
}

func (r *specialtyRepository) Update(ctx context.Context, specialty *model.Specialty) error {
	specialty.UpdatedAt = time.Now()
	result, err := r.conn(ctx).ExecContext(ctx,
		`UPDATE specialties SET name = $1, updated_at = $2 WHERE id = $3`,
		specialty.Name, specialty.UpdatedAt, specialty.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("specialty name already exists")
		}
		return fmt.Errorf("failed to update specialty: %w", err)
	}
	return checkAffected(result, "specialty")
}

func (r *specialtyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.conn(ctx).ExecContext(ctx, `DELETE FROM specialties WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete specialty: %w", err)
	}
	return checkAffected(result, "specialty")
}

func (r *specialtyRepository) List(ctx context.Context) ([]*model.Specialty, error) {
	var specialties []*model.Specialty
	if err := sqlx.SelectContext(ctx, r.conn(ctx), &specialties,
		`SELECT id, name, created_at, updated_at FROM specialties ORDER BY name ASC`); err != nil {
		return nil, fmt.Errorf("failed to list specialties: %w", err)
	}
	return specialties, nil
}

// ExistingIDs returns the subset of ids that exist.
func (r *specialtyRepository) ExistingIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []uuid.UUID
	if err := sqlx.SelectContext(ctx, r.conn(ctx), &found,
		`SELECT id FROM specialties WHERE id = ANY($1::uuid[])`, pq.Array(uuidStrings(ids))); err != nil {
		return nil, fmt.Errorf("failed to resolve specialties: %w", err)
	}
	return found, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
