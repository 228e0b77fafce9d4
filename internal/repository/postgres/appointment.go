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

type appointmentRepository struct {
	BaseRepository
}

func NewAppointmentRepository(db *sqlx.DB) repository.AppointmentRepository {
	return &appointmentRepository{NewBaseRepository(db)}
}

type appointmentRow struct {
	model.Appointment
	PatientName    string    `db:"patient_name"`
	PatientPhone   string    `db:"patient_phone"`
	PatientEmail   string    `db:"patient_email"`
	DentistUserID  uuid.UUID `db:"dentist_user_id"`
	DentistName    string    `db:"dentist_name"`
	DentistLicense string    `db:"dentist_license"`
	DentistRate    *float64  `db:"dentist_commission_rate"`
}

func (r appointmentRow) toModel() *model.Appointment {
	a := r.Appointment
	a.Patient = &model.Patient{
		Base:  model.Base{ID: a.PatientID},
		Name:  r.PatientName,
		Phone: r.PatientPhone,
		Email: r.PatientEmail,
	}
	a.Dentist = &model.Dentist{
		Base:           model.Base{ID: a.DentistID},
		UserID:         r.DentistUserID,
		Name:           r.DentistName,
		LicenseNumber:  r.DentistLicense,
		CommissionRate: r.DentistRate,
	}
	return &a
}

type detailRow struct {
	model.AppointmentDetail
	ServiceName         string     `db:"service_name"`
	ServiceStandardCost float64    `db:"service_standard_cost"`
	ServiceListPrice    float64    `db:"service_list_price"`
	ServiceSpecialtyID  *uuid.UUID `db:"service_specialty_id"`
}

func (r detailRow) toModel() *model.AppointmentDetail {
	d := r.AppointmentDetail
	d.Service = &model.Service{
		Base:         model.Base{ID: d.ServiceID},
		Name:         r.ServiceName,
		StandardCost: r.ServiceStandardCost,
		ListPrice:    r.ServiceListPrice,
		SpecialtyID:  r.ServiceSpecialtyID,
	}
	return &d
}

const appointmentSelect = `
	SELECT a.id, a.date_time, a.status, a.total_amount, a.patient_id, a.dentist_id,
		a.created_at, a.updated_at,
		p.name AS patient_name, p.phone AS patient_phone, p.email AS patient_email,
		d.user_id AS dentist_user_id, u.name AS dentist_name,
		d.license_number AS dentist_license, d.commission_rate AS dentist_commission_rate
	FROM appointments a
	JOIN patients p ON p.id = a.patient_id
	JOIN dentists d ON d.id = a.dentist_id
	JOIN users u ON u.id = d.user_id
`

const detailSelect = `
	SELECT ad.id, ad.appointment_id, ad.service_id, ad.quantity, ad.price_applied, ad.payment_date,
		s.name AS service_name, s.standard_cost AS service_standard_cost,
		s.list_price AS service_list_price, s.specialty_id AS service_specialty_id
	FROM appointment_details ad
	JOIN services s ON s.id = ad.service_id
	WHERE ad.appointment_id = ANY($1::uuid[])
	ORDER BY ad.appointment_id, ad.position
`

// Create inserts the appointment and its details. Call it inside WithinTx so a
// failing detail leaves nothing behind.
func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	if appointment.ID == uuid.Nil {
		appointment.ID = uuid.New()
	}
	appointment.CreatedAt = time.Now()
	appointment.UpdatedAt = appointment.CreatedAt

	conn := r.conn(ctx)
	_, err := conn.ExecContext(ctx, `
		INSERT INTO appointments (id, date_time, status, total_amount, patient_id, dentist_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		appointment.ID,
		appointment.DateTime,
		appointment.Status,
		appointment.TotalAmount,
		appointment.PatientID,
		appointment.DentistID,
		appointment.CreatedAt,
		appointment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}

	for i, d := range appointment.Details {
		if d.ID == uuid.Nil {
			d.ID = uuid.New()
		}
		d.AppointmentID = appointment.ID
		_, err := conn.ExecContext(ctx, `
			INSERT INTO appointment_details (id, appointment_id, service_id, position, quantity, price_applied, payment_date)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, d.ID, d.AppointmentID, d.ServiceID, i, d.Quantity, d.PriceApplied, d.PaymentDate)
		if err != nil {
			return fmt.Errorf("failed to create appointment detail: %w", err)
		}
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	return r.get(ctx, id, "")
}

// GetForUpdate locks the appointment row until the surrounding transaction ends.
func (r *appointmentRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	return r.get(ctx, id, " FOR UPDATE OF a")
}

func (r *appointmentRepository) get(ctx context.Context, id uuid.UUID, lock string) (*model.Appointment, error) {
	var row appointmentRow
	query := appointmentSelect + ` WHERE a.id = $1` + lock
	if err := sqlx.GetContext(ctx, r.conn(ctx), &row, query, id); err != nil {
		return nil, notFoundOr(err, "appointment", "get")
	}

	appointment := row.toModel()
	if err := r.loadDetails(ctx, []*model.Appointment{appointment}); err != nil {
		return nil, err
	}
	return appointment, nil
}

func (r *appointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus) error {
	result, err := r.conn(ctx).ExecContext(ctx,
		`UPDATE appointments SET status = $1, updated_at = $2 WHERE id = $3`,
		status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update appointment status: %w", err)
	}
	return checkAffected(result, "appointment")
}

func (r *appointmentRepository) MarkDetailsPaid(ctx context.Context, detailIDs []uuid.UUID, paidAt time.Time) error {
	if len(detailIDs) == 0 {
		return nil
	}
	_, err := r.conn(ctx).ExecContext(ctx, `
		UPDATE appointment_details
		SET payment_date = $1
		WHERE id = ANY($2::uuid[]) AND payment_date IS NULL
	`, paidAt, pq.Array(uuidStrings(detailIDs)))
	if err != nil {
		return fmt.Errorf("failed to mark details paid: %w", err)
	}
	return nil
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, int, error) {
	var conditions []string
	var args []interface{}
	argCount := 1

	if filters.PatientID != nil {
		conditions = append(conditions, fmt.Sprintf("a.patient_id = $%d", argCount))
		args = append(args, *filters.PatientID)
		argCount++
	}
	if filters.DentistID != nil {
		conditions = append(conditions, fmt.Sprintf("a.dentist_id = $%d", argCount))
		args = append(args, *filters.DentistID)
		argCount++
	}
	if filters.Status != nil {
		conditions = append(conditions, fmt.Sprintf("a.status = $%d", argCount))
		args = append(args, *filters.Status)
		argCount++
	}
	if filters.StartDate != nil {
		conditions = append(conditions, fmt.Sprintf("a.date_time >= $%d", argCount))
		args = append(args, *filters.StartDate)
		argCount++
	}
	if filters.EndDate != nil {
		conditions = append(conditions, fmt.Sprintf("a.date_time <= $%d", argCount))
		args = append(args, *filters.EndDate)
		argCount++
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := sqlx.GetContext(ctx, r.conn(ctx), &total, `SELECT COUNT(*) FROM appointments a`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count appointments: %w", err)
	}

	page := filters.Pagination.Normalize()
	query := appointmentSelect + where +
		fmt.Sprintf(" ORDER BY %s LIMIT $%d OFFSET $%d", appointmentOrderBy(filters.Sort), argCount, argCount+1)
	args = append(args, page.Size, page.Offset())

	appointments, err := r.selectAppointments(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return appointments, total, nil
}

var appointmentSortColumns = map[model.AppointmentSortField]string{
	model.SortByDateTime:    "a.date_time",
	model.SortByTotalAmount: "a.total_amount",
	model.SortByStatus:      "a.status",
}

// appointmentOrderBy only ever emits whitelisted columns. Unknown fields fall
// back to date_time; a.id keeps pages stable across ties.
func appointmentOrderBy(sort model.AppointmentSort) string {
	column, ok := appointmentSortColumns[sort.Field]
	if !ok {
		column = "a.date_time"
	}
	dir := "ASC"
	if sort.Desc {
		dir = "DESC"
	}
	return column + " " + dir + ", a.id " + dir
}

func (r *appointmentRepository) ListForReport(ctx context.Context, year *int, loc *time.Location) ([]*model.Appointment, error) {
	if year == nil {
		return r.selectAppointments(ctx, appointmentSelect+` ORDER BY a.date_time ASC`)
	}
	if loc == nil {
		loc = time.UTC
	}
	return r.selectAppointments(ctx,
		appointmentSelect+` WHERE EXTRACT(YEAR FROM a.date_time AT TIME ZONE $1) = $2 ORDER BY a.date_time ASC`,
		loc.String(), *year)
}

func (r *appointmentRepository) selectAppointments(ctx context.Context, query string, args ...interface{}) ([]*model.Appointment, error) {
	var rows []appointmentRow
	if err := sqlx.SelectContext(ctx, r.conn(ctx), &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}

	appointments := make([]*model.Appointment, len(rows))
	for i, row := range rows {
		appointments[i] = row.toModel()
	}
	if err := r.loadDetails(ctx, appointments); err != nil {
		return nil, err
	}
	return appointments, nil
}

// loadDetails fills Details for every appointment with one query.
func (r *appointmentRepository) loadDetails(ctx context.Context, appointments []*model.Appointment) error {
	if len(appointments) == 0 {
		return nil
	}

	byID := make(map[uuid.UUID]*model.Appointment, len(appointments))
	ids := make([]uuid.UUID, 0, len(appointments))
	for _, a := range appointments {
		a.Details = []*model.AppointmentDetail{}
		byID[a.ID] = a
		ids = append(ids, a.ID)
	}

	var rows []detailRow
	if err := sqlx.SelectContext(ctx, r.conn(ctx), &rows, detailSelect, pq.Array(uuidStrings(ids))); err != nil {
		return fmt.Errorf("failed to load appointment details: %w", err)
	}
	for _, row := range rows {
		a, ok := byID[row.AppointmentID]
		if !ok {
			return apperrors.Internal(fmt.Errorf("detail %s references unknown appointment", row.ID))
		}
		a.Details = append(a.Details, row.toModel())
	}
	return nil
}
