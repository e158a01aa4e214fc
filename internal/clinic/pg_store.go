package clinic

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/clinicwave/clinic-scheduling/internal/schedule"
)

// Querier is the subset of pgxpool.Pool the store needs, injectable for
// tests via pgxmock.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgStore struct {
	db Querier
}

func NewPgStore(db Querier) *PgStore {
	return &PgStore{db: db}
}

// Helpers

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient

	err := row.Scan(
		&p.ID,
		&p.ClinicID,
		&p.FullName,
		&p.Phone,
		&p.Email,
		&p.DateOfBirth,
		&p.Gender,
		&p.Address,
		&p.Notes,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	return &p, nil
}

func timeOfDayPtr(t pgtype.Time) *schedule.TimeOfDay {
	if !t.Valid {
		return nil
	}
	tod := schedule.FromMicroseconds(t.Microseconds)
	return &tod
}

const patientColumns = `id, clinic_id, full_name, phone, email, date_of_birth, gender, address, notes, created_at, updated_at`

// Interface methods

func (s *PgStore) GetPatientByID(ctx context.Context, clinicID, id uuid.UUID) (*Patient, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+patientColumns+`
		FROM patients
		WHERE id = $1 AND clinic_id = $2
	`, id, clinicID)
	return scanPatient(row)
}

func (s *PgStore) GetPatientByPhone(ctx context.Context, clinicID uuid.UUID, phone string) (*Patient, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+patientColumns+`
		FROM patients
		WHERE clinic_id = $1 AND phone = $2
	`, clinicID, phone)
	return scanPatient(row)
}

func (s *PgStore) CreatePatient(ctx context.Context, p *Patient) (*Patient, error) {
	id := p.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO patients (id, clinic_id, full_name, phone, email, date_of_birth, gender, address, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		RETURNING `+patientColumns+`
	`, id, p.ClinicID, p.FullName, p.Phone, p.Email, p.DateOfBirth, p.Gender, p.Address, p.Notes)

	return scanPatient(row)
}

func (s *PgStore) UpdatePatient(ctx context.Context, p *Patient) (*Patient, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE patients
		SET full_name = $3,
		    phone = $4,
		    email = $5,
		    date_of_birth = $6,
		    gender = $7,
		    address = $8,
		    notes = $9,
		    updated_at = now()
		WHERE id = $1 AND clinic_id = $2
		RETURNING `+patientColumns+`
	`, p.ID, p.ClinicID, p.FullName, p.Phone, p.Email, p.DateOfBirth, p.Gender, p.Address, p.Notes)

	return scanPatient(row)
}

func (s *PgStore) SearchPatients(ctx context.Context, clinicID uuid.UUID, query string, limit int) ([]Patient, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+patientColumns+`
		FROM patients
		WHERE clinic_id = $1
		  AND (full_name ILIKE '%' || $2 || '%' OR phone LIKE '%' || $2 || '%' OR email ILIKE '%' || $2 || '%')
		ORDER BY created_at DESC
		LIMIT $3
	`, clinicID, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Patient
	for rows.Next() {
		p, err := scanPatient(rows)
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

func (s *PgStore) GetServiceByID(ctx context.Context, clinicID, id uuid.UUID) (*Service, error) {
	var svc Service

	err := s.db.QueryRow(ctx, `
		SELECT id, clinic_id, name_ar, name_en, duration_minutes, price, created_at, updated_at
		FROM services
		WHERE id = $1 AND clinic_id = $2
	`, id, clinicID).Scan(
		&svc.ID,
		&svc.ClinicID,
		&svc.NameAr,
		&svc.NameEn,
		&svc.DurationMinutes,
		&svc.Price,
		&svc.CreatedAt,
		&svc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}

	return &svc, nil
}

func (s *PgStore) GetStaffByID(ctx context.Context, clinicID, id uuid.UUID) (*StaffMember, error) {
	var m StaffMember

	err := s.db.QueryRow(ctx, `
		SELECT id, clinic_id, full_name, role, created_at, updated_at
		FROM staff_members
		WHERE id = $1 AND clinic_id = $2
	`, id, clinicID).Scan(
		&m.ID,
		&m.ClinicID,
		&m.FullName,
		&m.Role,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStaffNotFound
		}
		return nil, err
	}

	return &m, nil
}

func (s *PgStore) GetWorkingHours(ctx context.Context, clinicID, staffID uuid.UUID, day time.Weekday) (*WorkingHours, error) {
	var wh WorkingHours
	var dow int
	var openT, closeT pgtype.Time

	err := s.db.QueryRow(ctx, `
		SELECT id, clinic_id, staff_id, day_of_week, is_working, open_time, close_time
		FROM working_hours
		WHERE clinic_id = $1 AND staff_id = $2 AND day_of_week = $3
	`, clinicID, staffID, int(day)).Scan(
		&wh.ID,
		&wh.ClinicID,
		&wh.StaffID,
		&dow,
		&wh.IsWorking,
		&openT,
		&closeT,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWorkingHoursNotFound
		}
		return nil, err
	}

	wh.DayOfWeek = time.Weekday(dow)
	wh.OpenTime = timeOfDayPtr(openT)
	wh.CloseTime = timeOfDayPtr(closeT)
	return &wh, nil
}

func (s *PgStore) ListBlockedSlots(ctx context.Context, clinicID, staffID uuid.UUID, date time.Time) ([]BlockedSlot, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, clinic_id, staff_id, block_date, start_time, end_time, reason, created_at
		FROM blocked_slots
		WHERE clinic_id = $1 AND staff_id = $2 AND block_date = $3
	`, clinicID, staffID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []BlockedSlot
	for rows.Next() {
		var b BlockedSlot
		var start, end pgtype.Time

		err := rows.Scan(
			&b.ID,
			&b.ClinicID,
			&b.StaffID,
			&b.BlockDate,
			&start,
			&end,
			&b.Reason,
			&b.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		b.StartTime = schedule.FromMicroseconds(start.Microseconds)
		b.EndTime = schedule.FromMicroseconds(end.Microseconds)
		result = append(result, b)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
