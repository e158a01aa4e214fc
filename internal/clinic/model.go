package clinic

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicwave/clinic-scheduling/internal/schedule"
)

// Clinic is the tenant boundary. Every other entity carries its id and
// every store query filters by it.
type Clinic struct {
	ID        uuid.UUID
	Name      string
	Phone     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Patient struct {
	ID          uuid.UUID
	ClinicID    uuid.UUID
	FullName    string
	Phone       string
	Email       *string
	DateOfBirth *time.Time
	Gender      *string
	Address     *string
	Notes       *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Service defines the fixed duration used for slot-length computation.
// Changing the duration does not resize already booked appointments.
type Service struct {
	ID              uuid.UUID
	ClinicID        uuid.UUID
	NameAr          string
	NameEn          *string
	DurationMinutes int
	Price           *float64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type StaffMember struct {
	ID        uuid.UUID
	ClinicID  uuid.UUID
	FullName  string
	Role      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// WorkingHours holds one staff member's hours for one weekday. At most one
// record exists per (clinic, staff, weekday); a missing record means the
// staff member does not work that day.
type WorkingHours struct {
	ID        uuid.UUID
	ClinicID  uuid.UUID
	StaffID   uuid.UUID
	DayOfWeek time.Weekday
	IsWorking bool
	OpenTime  *schedule.TimeOfDay
	CloseTime *schedule.TimeOfDay
}

// BlockedSlot is an explicit unavailable window (vacation, lunch) that is
// not a booking.
type BlockedSlot struct {
	ID        uuid.UUID
	ClinicID  uuid.UUID
	StaffID   uuid.UUID
	BlockDate time.Time
	StartTime schedule.TimeOfDay
	EndTime   schedule.TimeOfDay
	Reason    *string
	CreatedAt time.Time
}
