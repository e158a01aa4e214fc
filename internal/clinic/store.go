package clinic

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrClinicNotFound       = errors.New("clinic not found")
	ErrPatientNotFound      = errors.New("patient not found")
	ErrServiceNotFound      = errors.New("service not found")
	ErrStaffNotFound        = errors.New("staff member not found")
	ErrWorkingHoursNotFound = errors.New("working hours not found")
	ErrPhoneExists          = errors.New("patient with this phone already exists")
)

// Store contains all DB interactions over clinic reference data. Every
// method takes the clinic id; an entity owned by another clinic behaves
// exactly like a missing one.
type Store interface {
	GetPatientByID(ctx context.Context, clinicID, id uuid.UUID) (*Patient, error)
	GetPatientByPhone(ctx context.Context, clinicID uuid.UUID, phone string) (*Patient, error)
	CreatePatient(ctx context.Context, p *Patient) (*Patient, error)
	UpdatePatient(ctx context.Context, p *Patient) (*Patient, error)
	SearchPatients(ctx context.Context, clinicID uuid.UUID, query string, limit int) ([]Patient, error)

	GetServiceByID(ctx context.Context, clinicID, id uuid.UUID) (*Service, error)
	GetStaffByID(ctx context.Context, clinicID, id uuid.UUID) (*StaffMember, error)

	// Availability inputs
	GetWorkingHours(ctx context.Context, clinicID, staffID uuid.UUID, day time.Weekday) (*WorkingHours, error)
	ListBlockedSlots(ctx context.Context, clinicID, staffID uuid.UUID, date time.Time) ([]BlockedSlot, error)
}
