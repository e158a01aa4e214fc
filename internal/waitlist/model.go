package waitlist

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicwave/clinic-scheduling/internal/schedule"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusOffered   Status = "offered"
	StatusFilled    Status = "filled"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// Terminal reports whether the entry can no longer be matched or moved.
func (s Status) Terminal() bool {
	switch s {
	case StatusFilled, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// Entry is one patient's standing request for a slot that was not
// available at booking time. All preference fields are optional; an unset
// bound always matches.
type Entry struct {
	ID                  uuid.UUID
	ClinicID            uuid.UUID
	PatientID           uuid.UUID
	ServiceID           uuid.UUID
	PreferredStaffID    *uuid.UUID
	PreferredDateStart  *time.Time
	PreferredDateEnd    *time.Time
	PreferredTimeStart  *schedule.TimeOfDay
	PreferredTimeEnd    *schedule.TimeOfDay
	PreferredDaysOfWeek []time.Weekday
	Priority            int
	Status              Status
	Notes               *string
	OfferedStaffID      *uuid.UUID
	OfferedDate         *time.Time
	OfferedStartTime    *schedule.TimeOfDay
	OfferedAt           *time.Time
	FilledAppointmentID *uuid.UUID
	FilledAt            *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// OfferedSlot is the concrete slot recorded on an entry when it moves to
// offered, so an inbound acceptance can book it without restating it.
type OfferedSlot struct {
	StaffID   uuid.UUID
	Date      time.Time
	StartTime schedule.TimeOfDay
}

// MatchQuery describes a freed slot the matcher wants a candidate for.
type MatchQuery struct {
	ServiceID uuid.UUID
	StaffID   uuid.UUID
	Date      time.Time
	Weekday   time.Weekday
	StartTime schedule.TimeOfDay
	EndTime   schedule.TimeOfDay
}

// Stats summarizes a clinic's waitlist by status.
type Stats struct {
	Active    int `json:"active"`
	Offered   int `json:"offered"`
	Filled    int `json:"filled"`
	Cancelled int `json:"cancelled"`
	Expired   int `json:"expired"`
}
