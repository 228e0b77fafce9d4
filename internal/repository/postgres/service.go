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

type serviceRepository struct {
	BaseRepository
}

func NewServiceRepository(db *sqlx.DB) repository.ServiceRepository {
	return &serviceRepository{NewBaseRepository(db)}
}

const serviceColumns = `id, name, standard_cost, list_price, specialty_id, created_at, updated_at`

func (r *serviceRepository) Create(ctx context.Context, service *model.Service) error {
	query := `
		INSERT INTO services (id, name, standard_cost, list_price, specialty_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if service.ID == uuid.Nil {
		service.ID = uuid.New()
	}
	service.CreatedAt = time.Now()
	service.UpdatedAt = service.CreatedAt

	_, err := r.conn(ctx).ExecContext(ctx, query,
		service.ID,
		service.Name,
		service.StandardCost,
		service.ListPrice,
		service.SpecialtyID,
		service.CreatedAt,
		service.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperrors.NotFound("specialty", err)
		}
		return fmt.Errorf("failed to create service: %w", err)
	}
	return nil
}

func (r *serviceRepository) Get(ctx context.Context, id uuid.UUID) (*model.Service, error) {
	var service model.Service
	query := `SELECT ` + serviceColumns + ` FROM services WHERE id = $1`
	if err := sqlx.GetContext(ctx, r.conn(ctx), &service, query, id); err != nil {
		return nil, notFoundOr(err, "service", "get")
	}
	return &service, nil
}

// Update changes the catalog entry only. Line items keep the price they were booked at.
func (r *serviceRepository) Update(ctx context.Context, service *model.Service) error {
	query := `
		UPDATE services
		SET name = $1, standard_cost = $2, list_price = $3, specialty_id = $4, updated_at = $5
		WHERE id = $6
	`
	service.UpdatedAt = time.Now()
	result, err := r.conn(ctx).ExecContext(ctx, query,
		service.Name,
		service.StandardCost,
		service.ListPrice,
		service.SpecialtyID,
		service.UpdatedAt,
		service.ID,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperrors.NotFound("specialty", err)
		}
		return fmt.Errorf("failed to update service: %w", err)
	}
	return checkAffected(result, "service")
}

func (r *serviceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.conn(ctx).ExecContext(ctx, `DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperrors.Conflict("service is referenced by appointments")
		}
		return fmt.Errorf("failed to delete service: %w", err)
	}
	return checkAffected(result, "service")
}

func (r *serviceRepository) List(ctx context.Context, page model.Pagination) ([]*model.Service, int, error) {
	var total int
	if err := sqlx.GetContext(ctx, r.conn(ctx), &total, `SELECT COUNT(*) FROM services`); err != nil {
		return nil, 0, fmt.Errorf("failed to count services: %w", err)
	}

	page = page.Normalize()
	query := `SELECT ` + serviceColumns + ` FROM services ORDER BY name ASC LIMIT $1 OFFSET $2`
	var services []*model.Service
	if err := sqlx.SelectContext(ctx, r.conn(ctx), &services, query, page.Size, page.Offset()); err != nil {
		return nil, 0, fmt.Errorf("failed to list services: %w", err)
	}
	return services, total, nil
}

func (r *serviceRepository) ListBySpecialty(ctx context.Context, specialtyID uuid.UUID) ([]*model.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services WHERE specialty_id = $1 ORDER BY name ASC`
	var services []*model.Service
	if err := sqlx.SelectContext(ctx, r.conn(ctx), &services, query, specialtyID); err != nil {
		return nil, fmt.Errorf("failed to list services by specialty: %w", err)
	}
	return services, nil
}
