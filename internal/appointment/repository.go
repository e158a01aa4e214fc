package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrSlotUnavailable     = errors.New("time slot is already booked")
)

// Repository contains all DB interactions needed by the booking service.
// Every query is scoped by clinic id.
type Repository interface {
	GetByID(ctx context.Context, clinicID, id uuid.UUID) (*Appointment, error)

	// ListForSchedule returns the busy (pending/confirmed) appointments for
	// one staff member's day, the availability engine's input.
	ListForSchedule(ctx context.Context, clinicID, staffID uuid.UUID, date time.Time) ([]Appointment, error)

	// CreateIfFree atomically runs the overlap check and the insert for the
	// appointment's (clinic, staff, date) schedule. Returns ErrSlotUnavailable
	// when the window overlaps an existing busy appointment.
	CreateIfFree(ctx context.Context, appt *Appointment) (*Appointment, error)

	// UpdateStatusFrom transitions status only when the current status is in
	// allowed (compare-and-swap). Returns ErrAppointmentNotFound when no row
	// matches, including when the status moved concurrently.
	UpdateStatusFrom(ctx context.Context, clinicID, id uuid.UUID, allowed []Status, to Status) (*Appointment, error)

	List(ctx context.Context, clinicID uuid.UUID, f Filter) (*Page, error)

	CountByStatus(ctx context.Context, clinicID uuid.UUID, from, to *time.Time) (map[Status]int, error)

	// Reminder worker queries.
	FindReminderDue(ctx context.Context, kind ReminderKind, windowStart, windowEnd time.Time) ([]ReminderCandidate, error)
	MarkReminderSent(ctx context.Context, appointmentID uuid.UUID, kind ReminderKind) error
}
