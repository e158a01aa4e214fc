package packages

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicwave/clinic-scheduling/internal/schedule"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the package can no longer change state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Package groups a recurring series of sessions for one patient, staff
// member, and service. It exclusively owns its generated appointments;
// pausing or cancelling the package cascades onto them.
type Package struct {
	ID              uuid.UUID
	ClinicID        uuid.UUID
	PatientID       uuid.UUID
	StaffID         uuid.UUID
	ServiceID       uuid.UUID
	TotalSessions   int
	IntervalDays    int
	StartDate       time.Time
	ExpectedEndDate time.Time
	StartTime       schedule.TimeOfDay
	TotalPrice      *float64
	PricePerSession *float64
	Status          Status
	Notes           *string
	CreatedBy       *uuid.UUID
	CompletedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SessionDate returns the date of session n (1-indexed) relative to start.
func SessionDate(start time.Time, intervalDays, n int) time.Time {
	return start.AddDate(0, 0, (n-1)*intervalDays)
}

// ExpectedEnd is the date of the final session.
func ExpectedEnd(start time.Time, intervalDays, totalSessions int) time.Time {
	return SessionDate(start, intervalDays, totalSessions)
}

// Stats summarizes a package's session progress.
type Stats struct {
	PackageID         uuid.UUID `json:"packageId"`
	Status            Status    `json:"status"`
	TotalSessions     int       `json:"totalSessions"`
	CompletedSessions int       `json:"completedSessions"`
	UpcomingSessions  int       `json:"upcomingSessions"`
	CancelledSessions int       `json:"cancelledSessions"`
}
