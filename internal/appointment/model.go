package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicwave/clinic-scheduling/internal/schedule"
)

type Status string

const (
	StatusPending            Status = "pending"
	StatusConfirmed          Status = "confirmed"
	StatusCompleted          Status = "completed"
	StatusCancelledByPatient Status = "cancelled_by_patient"
	StatusCancelledByClinic  Status = "cancelled_by_clinic"
)

// Busy reports whether an appointment in this status blocks its time window.
// Only pending and confirmed appointments participate in conflict checks.
func (s Status) Busy() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelledByPatient, StatusCancelledByClinic:
		return true
	}
	return false
}

type Type string

const (
	TypeSingle  Type = "single"
	TypePackage Type = "package"
)

type Source string

const (
	SourceDirect   Source = "direct"
	SourceWaitlist Source = "waitlist"
)

// Appointment is one booked window for one staff member on one date.
// Cancellation is a status change; rows are never deleted.
type Appointment struct {
	ID                   uuid.UUID
	ClinicID             uuid.UUID
	PatientID            uuid.UUID
	StaffID              uuid.UUID
	ServiceID            uuid.UUID
	Date                 time.Time
	StartTime            schedule.TimeOfDay
	EndTime              schedule.TimeOfDay
	Status               Status
	Type                 Type
	Source               Source
	PackageID            *uuid.UUID
	PackageSessionNumber *int
	Notes                *string
	CreatedBy            *uuid.UUID
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Window returns the appointment's half-open time interval.
func (a *Appointment) Window() schedule.Interval {
	return schedule.Interval{Start: a.StartTime, End: a.EndTime}
}

// Filter enumerates every predicate the appointment list supports.
type Filter struct {
	DateFrom  *time.Time
	DateTo    *time.Time
	StaffID   *uuid.UUID
	PatientID *uuid.UUID
	Status    *Status
	Page      int
	Limit     int
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

type Page struct {
	Data       []Appointment `json:"data"`
	Pagination Pagination    `json:"pagination"`
}

// ReminderKind distinguishes the two reminder lead times.
type ReminderKind string

const (
	Reminder24h ReminderKind = "reminder_24h"
	Reminder1h  ReminderKind = "reminder_1h"
)

// ReminderCandidate is a confirmed appointment due a reminder, joined with
// the contact details the notifier needs.
type ReminderCandidate struct {
	Appointment Appointment
	PatientName string
	Phone       string
	ServiceName string
}
