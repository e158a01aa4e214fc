package packages

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicwave/clinic-scheduling/internal/appointment"
	"github.com/clinicwave/clinic-scheduling/internal/schedule"
)

var ErrPackageNotFound = errors.New("package not found")

// SessionConflictError reports which generated session collided with an
// existing booking. The whole package transaction is rolled back.
type SessionConflictError struct {
	SessionNumber int
	Date          time.Time
}

func (e *SessionConflictError) Error() string {
	return fmt.Sprintf("session %d on %s conflicts with an existing booking",
		e.SessionNumber, e.Date.Format("2006-01-02"))
}

func (e *SessionConflictError) Unwrap() error { return appointment.ErrSlotUnavailable }

// Repository contains the package store operations. Session rows live in the
// appointments table; creation and regeneration run the same atomic
// conflict-check+insert primitive as single bookings, per session, inside
// one transaction.
type Repository interface {
	// CreateWithSessions inserts the package row and all its session
	// appointments atomically. Any session conflict aborts everything and
	// returns a *SessionConflictError.
	CreateWithSessions(ctx context.Context, pkg *Package, sessions []*appointment.Appointment) (*Package, []appointment.Appointment, error)

	GetByID(ctx context.Context, clinicID, id uuid.UUID) (*Package, error)

	List(ctx context.Context, clinicID uuid.UUID, patientID *uuid.UUID, status *Status) ([]Package, error)

	// UpdateStatusFrom is a compare-and-swap on status; ErrPackageNotFound
	// when no row matches, including a concurrently moved status.
	UpdateStatusFrom(ctx context.Context, clinicID, id uuid.UUID, allowed []Status, to Status, completedAt *time.Time) (*Package, error)

	ListSessions(ctx context.Context, clinicID, packageID uuid.UUID) ([]appointment.Appointment, error)

	CountSessionsByStatus(ctx context.Context, clinicID, packageID uuid.UUID) (map[appointment.Status]int, error)

	// CountByStatus counts the clinic's packages grouped by status.
	CountByStatus(ctx context.Context, clinicID uuid.UUID) (map[Status]int, error)

	// CancelOpenSessions bulk-moves the package's pending/confirmed sessions
	// to cancelled_by_clinic, returning how many rows changed.
	CancelOpenSessions(ctx context.Context, clinicID, packageID uuid.UUID) (int, error)

	// ResumeWithSessions inserts the regenerated sessions and flips the
	// package paused -> active in one transaction.
	ResumeWithSessions(ctx context.Context, clinicID, packageID uuid.UUID, sessions []*appointment.Appointment) (*Package, []appointment.Appointment, error)

	// RescheduleSession cancels the given session appointment and books a
	// replacement carrying the same package id and session number, in one
	// transaction. The old session must still be pending/confirmed.
	RescheduleSession(ctx context.Context, clinicID, appointmentID uuid.UUID, newDate time.Time, newStart, newEnd schedule.TimeOfDay) (*appointment.Appointment, error)
}
