package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/edconde/clinica3s/internal/model"
	"github.com/edconde/clinica3s/internal/repository"
	apperrors "github.com/edconde/clinica3s/pkg/errors"
)

type dentistRepository struct {
	BaseRepository
}

func NewDentistRepository(db *sqlx.DB) repository.DentistRepository {
	return &dentistRepository{NewBaseRepository(db)}
}

type dentistRow struct {
	model.Dentist
	SpecialtyIDList pq.StringArray `db:"specialty_ids"`
}

func (row *dentistRow) toModel() (*model.Dentist, error) {
	d := row.Dentist
	d.SpecialtyIDs = make([]uuid.UUID, 0, len(row.SpecialtyIDList))
	for _, raw := range row.SpecialtyIDList {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid specialty id %q: %w", raw, err)
		}
		d.SpecialtyIDs = append(d.SpecialtyIDs, id)
	}
	return &d, nil
}

const dentistSelect = `
	SELECT d.id, d.user_id, u.name, d.license_number, d.commission_rate,
		   d.created_at, d.updated_at,
		   COALESCE(ARRAY_AGG(ds.specialty_id::text) FILTER (WHERE ds.specialty_id IS NOT NULL), '{}') AS specialty_ids
	FROM dentists d
	JOIN users u ON u.id = d.user_id
	LEFT JOIN dentist_specialties ds ON ds.dentist_id = d.id
`

const dentistGroupBy = ` GROUP BY d.id, u.name`

func (r *dentistRepository) Create(ctx context.Context, dentist *model.Dentist) error {
	query := `
		INSERT INTO dentists (id, user_id, license_number, commission_rate, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if dentist.ID == uuid.Nil {
		dentist.ID = uuid.New()
	}
	dentist.CreatedAt = time.Now()
	dentist.UpdatedAt = dentist.CreatedAt

	_, err := r.conn(ctx).ExecContext(ctx, query,
		dentist.ID,
		dentist.UserID,
		dentist.LicenseNumber,
		dentist.CommissionRate,
		dentist.CreatedAt,
		dentist.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("license number already registered")
		}
		return fmt.Errorf("failed to create dentist: %w", err)
	}
	return r.replaceSpecialties(ctx, dentist.ID, dentist.SpecialtyIDs)
}

func (r *dentistRepository) Get(ctx context.Context, id uuid.UUID) (*model.Dentist, error) {
	var row dentistRow
	if err := sqlx.GetContext(ctx, r.conn(ctx), &row, dentistSelect+` WHERE d.id = $1`+dentistGroupBy, id); err != nil {
		return nil, notFoundOr(err, "dentist", "get")
	}
	return row.toModel()
}

func (r *dentistRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Dentist, error) {
	var row dentistRow
	if err := sqlx.GetContext(ctx, r.conn(ctx), &row, dentistSelect+` WHERE d.user_id = $1`+dentistGroupBy, userID); err != nil {
		return nil, notFoundOr(err, "dentist", "get")
	}
	return row.toModel()
}

// Update writes license and commission; specialties are replaced only when
// SpecialtyIDs is non-nil.
func (r *dentistRepository) Update(ctx context.Context, dentist *model.Dentist) error {
	query := `
		UPDATE dentists
		SET license_number = $1, commission_rate = $2, updated_at = $3
		WHERE id = $4
	`
	dentist.UpdatedAt = time.Now()
	result, err := r.conn(ctx).ExecContext(ctx, query,
		dentist.LicenseNumber,
		dentist.CommissionRate,
		dentist.UpdatedAt,
		dentist.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("license number already registered")
		}
		return fmt.Errorf("failed to update dentist: %w", err)
	}
	if err := checkAffected(result, "dentist"); err != nil {
		return err
	}
	if dentist.SpecialtyIDs == nil {
		return nil
	}
	return r.replaceSpecialties(ctx, dentist.ID, dentist.SpecialtyIDs)
}

func (r *dentistRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.conn(ctx).ExecContext(ctx, `DELETE FROM dentists WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperrors.Conflict("dentist has appointments")
		}
		return fmt.Errorf("failed to delete dentist: %w", err)
	}
	return checkAffected(result, "dentist")
}

func (r *dentistRepository) List(ctx context.Context, filters *model.DentistFilters) ([]*model.Dentist, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	argCount := 1

	if name := strings.TrimSpace(filters.Name); name != "" {
		where += fmt.Sprintf(" AND LOWER(u.name) LIKE $%d", argCount)
		args = append(args, "%"+strings.ToLower(name)+"%")
		argCount++
	}
	if filters.SpecialtyID != nil {
		where += fmt.Sprintf(" AND EXISTS (SELECT 1 FROM dentist_specialties f WHERE f.dentist_id = d.id AND f.specialty_id = $%d)", argCount)
		args = append(args, *filters.SpecialtyID)
		argCount++
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM dentists d JOIN users u ON u.id = d.user_id` + where
	if err := sqlx.GetContext(ctx, r.conn(ctx), &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count dentists: %w", err)
	}

	page := filters.Pagination.Normalize()
	query := dentistSelect + where + dentistGroupBy +
		fmt.Sprintf(" ORDER BY u.name ASC LIMIT $%d OFFSET $%d", argCount, argCount+1)
	args = append(args, page.Size, page.Offset())

	var rows []*dentistRow
	if err := sqlx.SelectContext(ctx, r.conn(ctx), &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list dentists: %w", err)
	}

	dentists := make([]*model.Dentist, 0, len(rows))
	for _, row := range rows {
		d, err := row.toModel()
		if err != nil {
			return nil, 0, err
		}
		dentists = append(dentists, d)
	}
	return dentists, total, nil
}

func (r *dentistRepository) replaceSpecialties(ctx context.Context, dentistID uuid.UUID, specialtyIDs []uuid.UUID) error {
	if _, err := r.conn(ctx).ExecContext(ctx, `DELETE FROM dentist_specialties WHERE dentist_id = $1`, dentistID); err != nil {
		return fmt.Errorf("failed to clear dentist specialties: %w", err)
	}
	for _, specialtyID := range specialtyIDs {
		_, err := r.conn(ctx).ExecContext(ctx,
			`INSERT INTO dentist_specialties (dentist_id, specialty_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			dentistID, specialtyID)
		if err != nil {
			return fmt.Errorf("failed to assign specialty: %w", err)
		}
	}
	return nil
}
