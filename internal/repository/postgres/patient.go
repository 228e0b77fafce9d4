package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edconde/clinica3s/internal/model"
	"github.com/edconde/clinica3s/internal/repository"
	apperrors "github.com/edconde/clinica3s/pkg/errors"
)

type patientRepository struct {
	BaseRepository
}

func NewPatientRepository(db *sqlx.DB) repository.PatientRepository {
	return &patientRepository{NewBaseRepository(db)}
}

const patientColumns = `id, name, birth_date, gender, phone, email, created_at, updated_at`

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	query := `
		INSERT INTO patients (id, name, birth_date, gender, phone, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if patient.ID == uuid.Nil {
		patient.ID = uuid.New()
	}
	patient.CreatedAt = time.Now()
	patient.UpdatedAt = patient.CreatedAt

	_, err := r.conn(ctx).ExecContext(ctx, query,
		patient.ID,
		patient.Name,
		patient.BirthDate,
		patient.Gender,
		patient.Phone,
		patient.Email,
		patient.CreatedAt,
		patient.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create patient: %w", err)
	}
	return nil
}

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE id = $1`
	var patient model.Patient
	if err := sqlx.GetContext(ctx, r.conn(ctx), &patient, query, id); err != nil {
		return nil, notFoundOr(err, "patient", "get")
	}
	return &patient, nil
}

func (r *patientRepository) Update(ctx context.Context, patient *model.Patient) error {
	query := `
		UPDATE patients
		SET name = $1, birth_date = $2, gender = $3, phone = $4, email = $5, updated_at = $6
		WHERE id = $7
	`
	patient.UpdatedAt = time.Now()
	result, err := r.conn(ctx).ExecContext(ctx, query,
		patient.Name,
		patient.BirthDate,
		patient.Gender,
		patient.Phone,
		patient.Email,
		patient.UpdatedAt,
		patient.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update patient: %w", err)
	}
	return checkAffected(result, "patient")
}

func (r *patientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.conn(ctx).ExecContext(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperrors.Conflict("patient has appointments")
		}
		return fmt.Errorf("failed to delete patient: %w", err)
	}
	return checkAffected(result, "patient")
}

func (r *patientRepository) List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	argCount := 1

	if name := strings.TrimSpace(filters.Name); name != "" {
		where += fmt.Sprintf(" AND LOWER(name) LIKE $%d", argCount)
		args = append(args, "%"+strings.ToLower(name)+"%")
		argCount++
	}
	if phone := strings.TrimSpace(filters.Phone); phone != "" {
		where += fmt.Sprintf(" AND phone LIKE $%d", argCount)
		args = append(args, "%"+phone+"%")
		argCount++
	}
	if email := strings.TrimSpace(filters.Email); email != "" {
		where += fmt.Sprintf(" AND LOWER(email) LIKE $%d", argCount)
		args = append(args, "%"+strings.ToLower(email)+"%")
		argCount++
	}

	var total int
	if err := sqlx.GetContext(ctx, r.conn(ctx), &total, `SELECT COUNT(*) FROM patients`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count patients: %w", err)
	}

	page := filters.Pagination.Normalize()
	query := `SELECT ` + patientColumns + ` FROM patients` + where +
		fmt.Sprintf(" ORDER BY name ASC LIMIT $%d OFFSET $%d", argCount, argCount+1)
	args = append(args, page.Size, page.Offset())

	var patients []*model.Patient
	if err := sqlx.SelectContext(ctx, r.conn(ctx), &patients, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, total, nil
}

func (r *patientRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := sqlx.GetContext(ctx, r.conn(ctx), &count, `SELECT COUNT(*) FROM patients`); err != nil {
		return 0, fmt.Errorf("failed to count patients: %w", err)
	}
	return count, nil
}
