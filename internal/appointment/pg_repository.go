package appointment

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/clinicwave/clinic-scheduling/internal/schedule"
)

// PgxPool is the subset of pgxpool.Pool the repository needs, injectable
// for tests via pgxmock.
type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgRepository struct {
	pool PgxPool
}

func NewPgRepository(pool PgxPool) *PgRepository {
	return &PgRepository{pool: pool}
}

const appointmentColumns = `id, clinic_id, patient_id, staff_id, service_id, appointment_date, start_time, end_time,
	status, appointment_type, source, package_id, package_session_number, notes, created_by, created_at, updated_at`

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var start, end pgtype.Time

	err := row.Scan(
		&a.ID,
		&a.ClinicID,
		&a.PatientID,
		&a.StaffID,
		&a.ServiceID,
		&a.Date,
		&start,
		&end,
		&a.Status,
		&a.Type,
		&a.Source,
		&a.PackageID,
		&a.PackageSessionNumber,
		&a.Notes,
		&a.CreatedBy,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.StartTime = schedule.FromMicroseconds(start.Microseconds)
	a.EndTime = schedule.FromMicroseconds(end.Microseconds)
	return &a, nil
}

func pgTime(t schedule.TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: t.Microseconds(), Valid: true}
}

// scheduleLockKey derives the advisory lock key serializing one staff
// member's day within one clinic.
func scheduleLockKey(clinicID, staffID uuid.UUID, date time.Time) int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%s", clinicID, staffID, date.Format("2006-01-02"))
	return int64(h.Sum64())
}

func statusStrings(statuses []Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// Interface methods

func (r *PgRepository) GetByID(ctx context.Context, clinicID, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1 AND clinic_id = $2
	`, id, clinicID)
	return scanAppointment(row)
}

func (r *PgRepository) ListForSchedule(ctx context.Context, clinicID, staffID uuid.UUID, date time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE clinic_id = $1
		  AND staff_id = $2
		  AND appointment_date = $3
		  AND status IN ('pending', 'confirmed')
		ORDER BY start_time
	`, clinicID, staffID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// CreateIfFreeTx runs the conflict check and insert inside the given
// transaction, holding the advisory lock for the appointment's staff-day.
// The package generator reuses this per session within its own transaction.
func CreateIfFreeTx(ctx context.Context, tx pgx.Tx, appt *Appointment) (*Appointment, error) {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`,
		scheduleLockKey(appt.ClinicID, appt.StaffID, appt.Date)); err != nil {
		return nil, fmt.Errorf("acquire schedule advisory lock: %w", err)
	}

	var one int
	err := tx.QueryRow(ctx, `
		SELECT 1
		FROM appointments
		WHERE clinic_id = $1
		  AND staff_id = $2
		  AND appointment_date = $3
		  AND status IN ('pending', 'confirmed')
		  AND start_time < $5
		  AND end_time > $4
		LIMIT 1
	`, appt.ClinicID, appt.StaffID, appt.Date, pgTime(appt.StartTime), pgTime(appt.EndTime)).Scan(&one)
	if err == nil {
		return nil, ErrSlotUnavailable
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check slot conflicts: %w", err)
	}

	id := appt.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO appointments (id, clinic_id, patient_id, staff_id, service_id, appointment_date, start_time, end_time,
			status, appointment_type, source, package_id, package_session_number, notes, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, now(), now())
		RETURNING `+appointmentColumns+`
	`, id, appt.ClinicID, appt.PatientID, appt.StaffID, appt.ServiceID, appt.Date,
		pgTime(appt.StartTime), pgTime(appt.EndTime), appt.Status, appt.Type, appt.Source,
		appt.PackageID, appt.PackageSessionNumber, appt.Notes, appt.CreatedBy)

	return scanAppointment(row)
}

func (r *PgRepository) CreateIfFree(ctx context.Context, appt *Appointment) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin booking tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	created, err := CreateIfFreeTx(ctx, tx, appt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit booking tx: %w", err)
	}

	return created, nil
}

func (r *PgRepository) UpdateStatusFrom(ctx context.Context, clinicID, id uuid.UUID, allowed []Status, to Status) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $3,
		    updated_at = now()
		WHERE id = $1
		  AND clinic_id = $2
		  AND status = ANY($4)
		RETURNING `+appointmentColumns+`
	`, id, clinicID, to, statusStrings(allowed))

	return scanAppointment(row)
}

func (r *PgRepository) List(ctx context.Context, clinicID uuid.UUID, f Filter) (*Page, error) {
	page := f.Page
	if page <= 0 {
		page = 1
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	where := []string{"clinic_id = $1"}
	args := []any{clinicID}

	addArg := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.DateFrom != nil {
		addArg("appointment_date >= $%d", *f.DateFrom)
	}
	if f.DateTo != nil {
		addArg("appointment_date <= $%d", *f.DateTo)
	}
	if f.StaffID != nil {
		addArg("staff_id = $%d", *f.StaffID)
	}
	if f.PatientID != nil {
		addArg("patient_id = $%d", *f.PatientID)
	}
	if f.Status != nil {
		addArg("status = $%d", string(*f.Status))
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM appointments WHERE `+whereClause, args...,
	).Scan(&total); err != nil {
		return nil, fmt.Errorf("count appointments: %w", err)
	}

	listArgs := append(args, limit, (page-1)*limit)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s
		FROM appointments
		WHERE %s
		ORDER BY appointment_date DESC, start_time DESC
		LIMIT $%d OFFSET $%d
	`, appointmentColumns, whereClause, len(args)+1, len(args)+2), listArgs...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	data := make([]Appointment, 0, limit)
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		data = append(data, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	totalPages := (total + limit - 1) / limit

	return &Page{
		Data: data,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
		},
	}, nil
}

func (r *PgRepository) CountByStatus(ctx context.Context, clinicID uuid.UUID, from, to *time.Time) (map[Status]int, error) {
	where := []string{"clinic_id = $1"}
	args := []any{clinicID}

	if from != nil {
		args = append(args, *from)
		where = append(where, fmt.Sprintf("appointment_date >= $%d", len(args)))
	}
	if to != nil {
		args = append(args, *to)
		where = append(where, fmt.Sprintf("appointment_date <= $%d", len(args)))
	}

	rows, err := r.pool.Query(ctx, `
		SELECT status, count(*)
		FROM appointments
		WHERE `+strings.Join(where, " AND ")+`
		GROUP BY status
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var status Status
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return counts, nil
}

func (r *PgRepository) FindReminderDue(ctx context.Context, kind ReminderKind, windowStart, windowEnd time.Time) ([]ReminderCandidate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+prefixedAppointmentColumns("a")+`, p.full_name, p.phone, s.name_ar
		FROM appointments a
		JOIN patients p ON p.id = a.patient_id
		JOIN services s ON s.id = a.service_id
		WHERE a.status = 'confirmed'
		  AND a.appointment_date + a.start_time >= $2
		  AND a.appointment_date + a.start_time < $3
		  AND NOT EXISTS (
			SELECT 1 FROM appointment_reminders r
			WHERE r.appointment_id = a.id AND r.kind = $1
		  )
		ORDER BY a.appointment_date, a.start_time
	`, kind, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ReminderCandidate
	for rows.Next() {
		var c ReminderCandidate
		var start, end pgtype.Time

		err := rows.Scan(
			&c.Appointment.ID,
			&c.Appointment.ClinicID,
			&c.Appointment.PatientID,
			&c.Appointment.StaffID,
			&c.Appointment.ServiceID,
			&c.Appointment.Date,
			&start,
			&end,
			&c.Appointment.Status,
			&c.Appointment.Type,
			&c.Appointment.Source,
			&c.Appointment.PackageID,
			&c.Appointment.PackageSessionNumber,
			&c.Appointment.Notes,
			&c.Appointment.CreatedBy,
			&c.Appointment.CreatedAt,
			&c.Appointment.UpdatedAt,
			&c.PatientName,
			&c.Phone,
			&c.ServiceName,
		)
		if err != nil {
			return nil, err
		}

		c.Appointment.StartTime = schedule.FromMicroseconds(start.Microseconds)
		c.Appointment.EndTime = schedule.FromMicroseconds(end.Microseconds)
		result = append(result, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) MarkReminderSent(ctx context.Context, appointmentID uuid.UUID, kind ReminderKind) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO appointment_reminders (appointment_id, kind, sent_at)
		VALUES ($1, $2, now())
		ON CONFLICT (appointment_id, kind) DO NOTHING
	`, appointmentID, kind)
	if err != nil {
		return fmt.Errorf("mark reminder sent: %w", err)
	}
	return nil
}

func prefixedAppointmentColumns(alias string) string {
	cols := strings.Split(appointmentColumns, ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}
