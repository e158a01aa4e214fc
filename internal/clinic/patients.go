package clinic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CreatePatientInput struct {
	FullName    string
	Phone       string
	Email       *string
	DateOfBirth *time.Time
	Gender      *string
	Address     *string
	Notes       *string
}

type UpdatePatientInput struct {
	FullName    *string
	Phone       *string
	Email       *string
	DateOfBirth *time.Time
	Gender      *string
	Address     *string
	Notes       *string
}

// PatientService enforces the per-clinic phone uniqueness invariant on top
// of the store.
type PatientService struct {
	store  Store
	logger *zap.Logger
}

func NewPatientService(store Store, logger *zap.Logger) *PatientService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PatientService{store: store, logger: logger}
}

// CreatePatient registers a patient. A second patient with the same phone
// in the same clinic fails with ErrPhoneExists; patients are referenced,
// never duplicated.
func (s *PatientService) CreatePatient(ctx context.Context, clinicID uuid.UUID, input CreatePatientInput) (*Patient, error) {
	existing, err := s.store.GetPatientByPhone(ctx, clinicID, input.Phone)
	if err != nil && !errors.Is(err, ErrPatientNotFound) {
		return nil, fmt.Errorf("check patient phone: %w", err)
	}
	if existing != nil {
		return nil, ErrPhoneExists
	}

	p := &Patient{
		ClinicID:    clinicID,
		FullName:    input.FullName,
		Phone:       input.Phone,
		Email:       input.Email,
		DateOfBirth: input.DateOfBirth,
		Gender:      input.Gender,
		Address:     input.Address,
		Notes:       input.Notes,
	}

	created, err := s.store.CreatePatient(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("create patient: %w", err)
	}

	s.logger.Info("patient created",
		zap.String("clinic_id", clinicID.String()),
		zap.String("patient_id", created.ID.String()),
	)
	return created, nil
}

// GetPatient looks up a patient within the clinic scope.
func (s *PatientService) GetPatient(ctx context.Context, clinicID, patientID uuid.UUID) (*Patient, error) {
	p, err := s.store.GetPatientByID(ctx, clinicID, patientID)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}
	return p, nil
}

// SearchPatients matches by name, phone, or email fragment.
func (s *PatientService) SearchPatients(ctx context.Context, clinicID uuid.UUID, query string, limit int) ([]Patient, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	result, err := s.store.SearchPatients(ctx, clinicID, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search patients: %w", err)
	}
	return result, nil
}

// UpdatePatient applies partial updates; a phone change re-runs the
// uniqueness check against other patients in the clinic.
func (s *PatientService) UpdatePatient(ctx context.Context, clinicID, patientID uuid.UUID, input UpdatePatientInput) (*Patient, error) {
	p, err := s.store.GetPatientByID(ctx, clinicID, patientID)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}

	if input.Phone != nil && *input.Phone != p.Phone {
		other, err := s.store.GetPatientByPhone(ctx, clinicID, *input.Phone)
		if err != nil && !errors.Is(err, ErrPatientNotFound) {
			return nil, fmt.Errorf("check patient phone: %w", err)
		}
		if other != nil && other.ID != patientID {
			return nil, ErrPhoneExists
		}
		p.Phone = *input.Phone
	}

	if input.FullName != nil {
		p.FullName = *input.FullName
	}
	if input.Email != nil {
		p.Email = input.Email
	}
	if input.DateOfBirth != nil {
		p.DateOfBirth = input.DateOfBirth
	}
	if input.Gender != nil {
		p.Gender = input.Gender
	}
	if input.Address != nil {
		p.Address = input.Address
	}
	if input.Notes != nil {
		p.Notes = input.Notes
	}

	updated, err := s.store.UpdatePatient(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("update patient: %w", err)
	}
	return updated, nil
}
