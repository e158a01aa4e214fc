package waitlist

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

const waitlistColumns = `id, clinic_id, patient_id, service_id, preferred_staff_id,
	preferred_date_start, preferred_date_end, preferred_time_start, preferred_time_end,
	preferred_days_of_week, priority, status, notes, offered_staff_id, offered_date,
	offered_start_time, offered_at, filled_appointment_id, filled_at, created_at, updated_at`

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	var timeStart, timeEnd, offeredStart pgtype.Time
	var days []int16

	err := row.Scan(
		&e.ID,
		&e.ClinicID,
		&e.PatientID,
		&e.ServiceID,
		&e.PreferredStaffID,
		&e.PreferredDateStart,
		&e.PreferredDateEnd,
		&timeStart,
		&timeEnd,
		&days,
		&e.Priority,
		&e.Status,
		&e.Notes,
		&e.OfferedStaffID,
		&e.OfferedDate,
		&offeredStart,
		&e.OfferedAt,
		&e.FilledAppointmentID,
		&e.FilledAt,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWaitlistNotFound
		}
		return nil, err
	}

	if timeStart.Valid {
		t := schedule.FromMicroseconds(timeStart.Microseconds)
		e.PreferredTimeStart = &t
	}
	if timeEnd.Valid {
		t := schedule.FromMicroseconds(timeEnd.Microseconds)
		e.PreferredTimeEnd = &t
	}
	if offeredStart.Valid {
		t := schedule.FromMicroseconds(offeredStart.Microseconds)
		e.OfferedStartTime = &t
	}
	for _, d := range days {
		e.PreferredDaysOfWeek = append(e.PreferredDaysOfWeek, time.Weekday(d))
	}
	return &e, nil
}

func pgTimePtr(t *schedule.TimeOfDay) pgtype.Time {
	if t == nil {
		return pgtype.Time{}
	}
	return pgtype.Time{Microseconds: t.Microseconds(), Valid: true}
}

func weekdayInts(days []time.Weekday) []int16 {
	if len(days) == 0 {
		return nil
	}
	out := make([]int16, len(days))
	for i, d := range days {
		out[i] = int16(d)
	}
	return out
}

func (r *PgRepository) Create(ctx context.Context, e *Entry) (*Entry, error) {
	id := e.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO waitlist_entries (id, clinic_id, patient_id, service_id, preferred_staff_id,
			preferred_date_start, preferred_date_end, preferred_time_start, preferred_time_end,
			preferred_days_of_week, priority, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now(), now())
		RETURNING `+waitlistColumns+`
	`, id, e.ClinicID, e.PatientID, e.ServiceID, e.PreferredStaffID,
		e.PreferredDateStart, e.PreferredDateEnd, pgTimePtr(e.PreferredTimeStart), pgTimePtr(e.PreferredTimeEnd),
		weekdayInts(e.PreferredDaysOfWeek), e.Priority, StatusActive, e.Notes)

	created, err := scanEntry(row)
	if err != nil {
		return nil, fmt.Errorf("insert waitlist entry: %w", err)
	}
	return created, nil
}

func (r *PgRepository) GetByID(ctx context.Context, clinicID, id uuid.UUID) (*Entry, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+waitlistColumns+`
		FROM waitlist_entries
		WHERE id = $1 AND clinic_id = $2
	`, id, clinicID)
	return scanEntry(row)
}

// FindBestMatch ranks by priority descending, then oldest first. Every
// preference is a null-or-match predicate so unset bounds always pass.
func (r *PgRepository) FindBestMatch(ctx context.Context, clinicID uuid.UUID, q MatchQuery) (*Entry, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+waitlistColumns+`
		FROM waitlist_entries
		WHERE clinic_id = $1
		  AND status = 'active'
		  AND service_id = $2
		  AND (preferred_staff_id IS NULL OR preferred_staff_id = $3)
		  AND (preferred_date_start IS NULL OR preferred_date_start <= $4)
		  AND (preferred_date_end IS NULL OR preferred_date_end >= $4)
		  AND (preferred_time_start IS NULL OR preferred_time_start <= $5)
		  AND (preferred_time_end IS NULL OR preferred_time_end >= $6)
		  AND (preferred_days_of_week IS NULL
		       OR cardinality(preferred_days_of_week) = 0
		       OR $7 = ANY(preferred_days_of_week))
		ORDER BY priority DESC, created_at ASC
		LIMIT 1
	`, clinicID, q.ServiceID, q.StaffID, q.Date,
		pgtype.Time{Microseconds: q.StartTime.Microseconds(), Valid: true},
		pgtype.Time{Microseconds: q.EndTime.Microseconds(), Valid: true},
		int16(q.Weekday))

	return scanEntry(row)
}

func (r *PgRepository) MarkOffered(ctx context.Context, clinicID, id uuid.UUID, slot OfferedSlot) (*Entry, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE waitlist_entries
		SET status = 'offered',
		    offered_staff_id = $3,
		    offered_date = $4,
		    offered_start_time = $5,
		    offered_at = now(),
		    updated_at = now()
		WHERE id = $1
		  AND clinic_id = $2
		  AND status = 'active'
		RETURNING `+waitlistColumns+`
	`, id, clinicID, slot.StaffID, slot.Date,
		pgtype.Time{Microseconds: slot.StartTime.Microseconds(), Valid: true})
	return scanEntry(row)
}

func (r *PgRepository) MarkFilled(ctx context.Context, clinicID, id, appointmentID uuid.UUID) (*Entry, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE waitlist_entries
		SET status = 'filled',
		    filled_appointment_id = $3,
		    filled_at = now(),
		    updated_at = now()
		WHERE id = $1
		  AND clinic_id = $2
		  AND status = 'offered'
		RETURNING `+waitlistColumns+`
	`, id, clinicID, appointmentID)
	return scanEntry(row)
}

func (r *PgRepository) MarkExpired(ctx context.Context, clinicID, id uuid.UUID) (*Entry, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE waitlist_entries
		SET status = 'expired',
		    updated_at = now()
		WHERE id = $1
		  AND clinic_id = $2
		  AND status = 'offered'
		RETURNING `+waitlistColumns+`
	`, id, clinicID)
	return scanEntry(row)
}

func (r *PgRepository) Cancel(ctx context.Context, clinicID, id uuid.UUID) (*Entry, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE waitlist_entries
		SET status = 'cancelled',
		    updated_at = now()
		WHERE id = $1
		  AND clinic_id = $2
		  AND status IN ('active', 'offered')
		RETURNING `+waitlistColumns+`
	`, id, clinicID)
	return scanEntry(row)
}

func (r *PgRepository) ExpireOffersBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE waitlist_entries
		SET status = 'expired',
		    updated_at = now()
		WHERE status = 'offered'
		  AND offered_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("expire stale offers: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *PgRepository) List(ctx context.Context, clinicID uuid.UUID, status *Status) ([]Entry, error) {
	where := []string{"clinic_id = $1"}
	args := []any{clinicID}

	if status != nil {
		args = append(args, string(*status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+waitlistColumns+`
		FROM waitlist_entries
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY priority DESC, created_at ASC
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) CountByStatus(ctx context.Context, clinicID uuid.UUID) (map[Status]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status, count(*)
		FROM waitlist_entries
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
