package packages

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/clinicwave/clinic-scheduling/internal/appointment"
	"github.com/clinicwave/clinic-scheduling/internal/schedule"
)

type PgRepository struct {
	pool appointment.PgxPool
}

func NewPgRepository(pool appointment.PgxPool) *PgRepository {
	return &PgRepository{pool: pool}
}

const packageColumns = `id, clinic_id, patient_id, staff_id, service_id, total_sessions, interval_days,
	start_date, expected_end_date, start_time, total_price, price_per_session, status, notes,
	created_by, completed_at, created_at, updated_at`

func scanPackage(row pgx.Row) (*Package, error) {
	var p Package
	var start pgtype.Time

	err := row.Scan(
		&p.ID,
		&p.ClinicID,
		&p.PatientID,
		&p.StaffID,
		&p.ServiceID,
		&p.TotalSessions,
		&p.IntervalDays,
		&p.StartDate,
		&p.ExpectedEndDate,
		&start,
		&p.TotalPrice,
		&p.PricePerSession,
		&p.Status,
		&p.Notes,
		&p.CreatedBy,
		&p.CompletedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPackageNotFound
		}
		return nil, err
	}

	p.StartTime = schedule.FromMicroseconds(start.Microseconds)
	return &p, nil
}

func pgTime(t schedule.TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: t.Microseconds(), Valid: true}
}

func (r *PgRepository) CreateWithSessions(ctx context.Context, pkg *Package, sessions []*appointment.Appointment) (*Package, []appointment.Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin package tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	id := pkg.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO packages (id, clinic_id, patient_id, staff_id, service_id, total_sessions, interval_days,
			start_date, expected_end_date, start_time, total_price, price_per_session, status, notes,
			created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, now(), now())
		RETURNING `+packageColumns+`
	`, id, pkg.ClinicID, pkg.PatientID, pkg.StaffID, pkg.ServiceID, pkg.TotalSessions, pkg.IntervalDays,
		pkg.StartDate, pkg.ExpectedEndDate, pgTime(pkg.StartTime), pkg.TotalPrice, pkg.PricePerSession,
		StatusActive, pkg.Notes, pkg.CreatedBy)

	created, err := scanPackage(row)
	if err != nil {
		return nil, nil, fmt.Errorf("insert package: %w", err)
	}

	out := make([]appointment.Appointment, 0, len(sessions))
	for _, s := range sessions {
		s.PackageID = &created.ID
		booked, err := appointment.CreateIfFreeTx(ctx, tx, s)
		if err != nil {
			if errors.Is(err, appointment.ErrSlotUnavailable) {
				n := 0
				if s.PackageSessionNumber != nil {
					n = *s.PackageSessionNumber
				}
				return nil, nil, &SessionConflictError{SessionNumber: n, Date: s.Date}
			}
			return nil, nil, fmt.Errorf("insert package session: %w", err)
		}
		out = append(out, *booked)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit package tx: %w", err)
	}

	return created, out, nil
}

func (r *PgRepository) GetByID(ctx context.Context, clinicID, id uuid.UUID) (*Package, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+packageColumns+`
		FROM packages
		WHERE id = $1 AND clinic_id = $2
	`, id, clinicID)
	return scanPackage(row)
}

func (r *PgRepository) List(ctx context.Context, clinicID uuid.UUID, patientID *uuid.UUID, status *Status) ([]Package, error) {
	where := []string{"clinic_id = $1"}
	args := []any{clinicID}

	if patientID != nil {
		args = append(args, *patientID)
		where = append(where, fmt.Sprintf("patient_id = $%d", len(args)))
	}
	if status != nil {
		args = append(args, string(*status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+packageColumns+`
		FROM packages
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY created_at DESC
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Package
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) UpdateStatusFrom(ctx context.Context, clinicID, id uuid.UUID, allowed []Status, to Status, completedAt *time.Time) (*Package, error) {
	allowedStrings := make([]string, len(allowed))
	for i, s := range allowed {
		allowedStrings[i] = string(s)
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE packages
		SET status = $3,
		    completed_at = COALESCE($5, completed_at),
		    updated_at = now()
		WHERE id = $1
		  AND clinic_id = $2
		  AND status = ANY($4)
		RETURNING `+packageColumns+`
	`, id, clinicID, to, allowedStrings, completedAt)

	return scanPackage(row)
}

func (r *PgRepository) ListSessions(ctx context.Context, clinicID, packageID uuid.UUID) ([]appointment.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, clinic_id, patient_id, staff_id, service_id, appointment_date, start_time, end_time,
			status, appointment_type, source, package_id, package_session_number, notes, created_by, created_at, updated_at
		FROM appointments
		WHERE clinic_id = $1 AND package_id = $2
		ORDER BY package_session_number
	`, clinicID, packageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []appointment.Appointment
	for rows.Next() {
		var a appointment.Appointment
		var start, end pgtype.Time
		err := rows.Scan(
			&a.ID, &a.ClinicID, &a.PatientID, &a.StaffID, &a.ServiceID, &a.Date, &start, &end,
			&a.Status, &a.Type, &a.Source, &a.PackageID, &a.PackageSessionNumber, &a.Notes,
			&a.CreatedBy, &a.CreatedAt, &a.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		a.StartTime = schedule.FromMicroseconds(start.Microseconds)
		a.EndTime = schedule.FromMicroseconds(end.Microseconds)
		result = append(result, a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) CountSessionsByStatus(ctx context.Context, clinicID, packageID uuid.UUID) (map[appointment.Status]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status, count(*)
		FROM appointments
		WHERE clinic_id = $1 AND package_id = $2
		GROUP BY status
	`, clinicID, packageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[appointment.Status]int)
	for rows.Next() {
		var status appointment.Status
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

func (r *PgRepository) CountByStatus(ctx context.Context, clinicID uuid.UUID) (map[Status]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status, count(*)
		FROM packages
		WHERE clinic_id = $1
		GROUP BY status
	`, clinicID)
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

func (r *PgRepository) CancelOpenSessions(ctx context.Context, clinicID, packageID uuid.UUID) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET status = 'cancelled_by_clinic',
		    updated_at = now()
		WHERE clinic_id = $1
		  AND package_id = $2
		  AND status IN ('pending', 'confirmed')
	`, clinicID, packageID)
	if err != nil {
		return 0, fmt.Errorf("cancel package sessions: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *PgRepository) ResumeWithSessions(ctx context.Context, clinicID, packageID uuid.UUID, sessions []*appointment.Appointment) (*Package, []appointment.Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin resume tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		UPDATE packages
		SET status = $3,
		    updated_at = now()
		WHERE id = $1
		  AND clinic_id = $2
		  AND status = 'paused'
		RETURNING `+packageColumns+`
	`, packageID, clinicID, StatusActive)

	pkg, err := scanPackage(row)
	if err != nil {
		return nil, nil, err
	}

	out := make([]appointment.Appointment, 0, len(sessions))
	for _, s := range sessions {
		booked, err := appointment.CreateIfFreeTx(ctx, tx, s)
		if err != nil {
			if errors.Is(err, appointment.ErrSlotUnavailable) {
				n := 0
				if s.PackageSessionNumber != nil {
					n = *s.PackageSessionNumber
				}
				return nil, nil, &SessionConflictError{SessionNumber: n, Date: s.Date}
			}
			return nil, nil, fmt.Errorf("insert resumed session: %w", err)
		}
		out = append(out, *booked)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit resume tx: %w", err)
	}

	return pkg, out, nil
}

func (r *PgRepository) RescheduleSession(ctx context.Context, clinicID, appointmentID uuid.UUID, newDate time.Time, newStart, newEnd schedule.TimeOfDay) (*appointment.Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin reschedule tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'cancelled_by_clinic',
		    updated_at = now()
		WHERE id = $1
		  AND clinic_id = $2
		  AND status IN ('pending', 'confirmed')
		RETURNING id, clinic_id, patient_id, staff_id, service_id, appointment_date, start_time, end_time,
			status, appointment_type, source, package_id, package_session_number, notes, created_by, created_at, updated_at
	`, appointmentID, clinicID)

	var old appointment.Appointment
	var start, end pgtype.Time
	err = row.Scan(
		&old.ID, &old.ClinicID, &old.PatientID, &old.StaffID, &old.ServiceID, &old.Date, &start, &end,
		&old.Status, &old.Type, &old.Source, &old.PackageID, &old.PackageSessionNumber, &old.Notes,
		&old.CreatedBy, &old.CreatedAt, &old.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, appointment.ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("cancel old session: %w", err)
	}

	replacement := &appointment.Appointment{
		ClinicID:             old.ClinicID,
		PatientID:            old.PatientID,
		StaffID:              old.StaffID,
		ServiceID:            old.ServiceID,
		Date:                 newDate,
		StartTime:            newStart,
		EndTime:              newEnd,
		Status:               appointment.StatusConfirmed,
		Type:                 appointment.TypePackage,
		Source:               old.Source,
		PackageID:            old.PackageID,
		PackageSessionNumber: old.PackageSessionNumber,
		Notes:                old.Notes,
		CreatedBy:            old.CreatedBy,
	}

	booked, err := appointment.CreateIfFreeTx(ctx, tx, replacement)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit reschedule tx: %w", err)
	}

	return booked, nil
}
