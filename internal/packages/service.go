package packages

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinicwave/clinic-scheduling/internal/appointment"
	"github.com/clinicwave/clinic-scheduling/internal/clinic"
	"github.com/clinicwave/clinic-scheduling/internal/schedule"
)

var (
	ErrInvalidSessionCount  = errors.New("total sessions must be a positive integer")
	ErrInvalidInterval      = errors.New("interval days must be a positive integer")
	ErrInvalidPackageStatus = errors.New("operation not permitted in current package status")
	ErrSessionNotInPackage  = errors.New("appointment does not belong to this package")
)

// Directory is the slice of the clinic store the package service reads.
type Directory interface {
	GetPatientByID(ctx context.Context, clinicID, id uuid.UUID) (*clinic.Patient, error)
	GetServiceByID(ctx context.Context, clinicID, id uuid.UUID) (*clinic.Service, error)
}

type CreateInput struct {
	PatientID     uuid.UUID
	StaffID       uuid.UUID
	ServiceID     uuid.UUID
	TotalSessions int
	IntervalDays  int
	StartDate     time.Time
	StartTime     schedule.TimeOfDay
	TotalPrice    *float64
	Notes         *string
}

type Service struct {
	repo    Repository
	clinics Directory
	logger  *zap.Logger
}

func NewService(repo Repository, clinics Directory, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, clinics: clinics, logger: logger}
}

// CreatePackage expands a recurring-session request into one appointment
// per session, dated start + (n-1)*interval, all at the same start time.
// Every session runs the conflict check; one collision aborts the whole
// package so a partially booked series never exists.
func (s *Service) CreatePackage(ctx context.Context, clinicID, createdBy uuid.UUID, input CreateInput) (*Package, []appointment.Appointment, error) {
	if input.TotalSessions <= 0 {
		return nil, nil, ErrInvalidSessionCount
	}
	if input.IntervalDays <= 0 {
		return nil, nil, ErrInvalidInterval
	}

	if _, err := s.clinics.GetPatientByID(ctx, clinicID, input.PatientID); err != nil {
		if errors.Is(err, clinic.ErrPatientNotFound) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("load patient: %w", err)
	}

	svc, err := s.clinics.GetServiceByID(ctx, clinicID, input.ServiceID)
	if err != nil {
		if errors.Is(err, clinic.ErrServiceNotFound) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("load service: %w", err)
	}

	endTime := input.StartTime.Add(svc.DurationMinutes)
	if !input.StartTime.Valid() || endTime > schedule.MinutesPerDay {
		return nil, nil, appointment.ErrInvalidTimeWindow
	}

	var pricePerSession *float64
	if input.TotalPrice != nil {
		p := *input.TotalPrice / float64(input.TotalSessions)
		pricePerSession = &p
	}

	pkg := &Package{
		ClinicID:        clinicID,
		PatientID:       input.PatientID,
		StaffID:         input.StaffID,
		ServiceID:       input.ServiceID,
		TotalSessions:   input.TotalSessions,
		IntervalDays:    input.IntervalDays,
		StartDate:       input.StartDate,
		ExpectedEndDate: ExpectedEnd(input.StartDate, input.IntervalDays, input.TotalSessions),
		StartTime:       input.StartTime,
		TotalPrice:      input.TotalPrice,
		PricePerSession: pricePerSession,
		Status:          StatusActive,
		Notes:           input.Notes,
		CreatedBy:       &createdBy,
	}

	sessions := make([]*appointment.Appointment, 0, input.TotalSessions)
	for n := 1; n <= input.TotalSessions; n++ {
		num := n
		sessions = append(sessions, &appointment.Appointment{
			ClinicID:             clinicID,
			PatientID:            input.PatientID,
			StaffID:              input.StaffID,
			ServiceID:            input.ServiceID,
			Date:                 SessionDate(input.StartDate, input.IntervalDays, n),
			StartTime:            input.StartTime,
			EndTime:              endTime,
			Status:               appointment.StatusConfirmed,
			Type:                 appointment.TypePackage,
			Source:               appointment.SourceDirect,
			PackageSessionNumber: &num,
			CreatedBy:            &createdBy,
		})
	}

	created, booked, err := s.repo.CreateWithSessions(ctx, pkg, sessions)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("package created",
		zap.String("clinic_id", clinicID.String()),
		zap.String("package_id", created.ID.String()),
		zap.Int("total_sessions", created.TotalSessions),
		zap.String("start_date", created.StartDate.Format("2006-01-02")),
	)

	return created, booked, nil
}

// GetPackage returns the package with its sessions.
func (s *Service) GetPackage(ctx context.Context, clinicID, id uuid.UUID) (*Package, []appointment.Appointment, error) {
	pkg, err := s.repo.GetByID(ctx, clinicID, id)
	if err != nil {
		return nil, nil, err
	}
	sessions, err := s.repo.ListSessions(ctx, clinicID, id)
	if err != nil {
		return nil, nil, fmt.Errorf("list package sessions: %w", err)
	}
	return pkg, sessions, nil
}

func (s *Service) ListPackages(ctx context.Context, clinicID uuid.UUID, patientID *uuid.UUID, status *Status) ([]Package, error) {
	return s.repo.List(ctx, clinicID, patientID, status)
}

// PausePackage stops an active package and cancels its open sessions.
func (s *Service) PausePackage(ctx context.Context, clinicID, id uuid.UUID) (*Package, error) {
	pkg, err := s.repo.UpdateStatusFrom(ctx, clinicID, id, []Status{StatusActive}, StatusPaused, nil)
	if err != nil {
		if errors.Is(err, ErrPackageNotFound) {
			return nil, s.notFoundOrInvalid(ctx, clinicID, id)
		}
		return nil, fmt.Errorf("pause package: %w", err)
	}

	cancelled, err := s.repo.CancelOpenSessions(ctx, clinicID, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info("package paused",
		zap.String("package_id", id.String()),
		zap.Int("sessions_cancelled", cancelled),
	)

	return pkg, nil
}

// ResumePackage regenerates the remaining (total - completed) sessions
// spaced by the package interval from newStartDate and reactivates the
// package. A package with nothing left to schedule completes instead.
func (s *Service) ResumePackage(ctx context.Context, clinicID, id uuid.UUID, newStartDate time.Time) (*Package, []appointment.Appointment, error) {
	pkg, err := s.repo.GetByID(ctx, clinicID, id)
	if err != nil {
		return nil, nil, err
	}
	if pkg.Status != StatusPaused {
		return nil, nil, ErrInvalidPackageStatus
	}

	counts, err := s.repo.CountSessionsByStatus(ctx, clinicID, id)
	if err != nil {
		return nil, nil, fmt.Errorf("count package sessions: %w", err)
	}
	completed := counts[appointment.StatusCompleted]
	remaining := pkg.TotalSessions - completed
	if remaining <= 0 {
		now := time.Now()
		done, err := s.repo.UpdateStatusFrom(ctx, clinicID, id, []Status{StatusPaused}, StatusCompleted, &now)
		if err != nil {
			return nil, nil, fmt.Errorf("complete exhausted package: %w", err)
		}
		return done, nil, nil
	}

	svc, err := s.clinics.GetServiceByID(ctx, clinicID, pkg.ServiceID)
	if err != nil {
		return nil, nil, fmt.Errorf("load service: %w", err)
	}
	endTime := pkg.StartTime.Add(svc.DurationMinutes)

	sessions := make([]*appointment.Appointment, 0, remaining)
	for i := 0; i < remaining; i++ {
		num := completed + i + 1
		sessions = append(sessions, &appointment.Appointment{
			ClinicID:             clinicID,
			PatientID:            pkg.PatientID,
			StaffID:              pkg.StaffID,
			ServiceID:            pkg.ServiceID,
			Date:                 SessionDate(newStartDate, pkg.IntervalDays, i+1),
			StartTime:            pkg.StartTime,
			EndTime:              endTime,
			Status:               appointment.StatusConfirmed,
			Type:                 appointment.TypePackage,
			Source:               appointment.SourceDirect,
			PackageID:            &pkg.ID,
			PackageSessionNumber: &num,
			CreatedBy:            pkg.CreatedBy,
		})
	}

	resumed, booked, err := s.repo.ResumeWithSessions(ctx, clinicID, id, sessions)
	if err != nil {
		if errors.Is(err, ErrPackageNotFound) {
			// Lost a race with a concurrent status change.
			return nil, nil, ErrInvalidPackageStatus
		}
		return nil, nil, err
	}

	s.logger.Info("package resumed",
		zap.String("package_id", id.String()),
		zap.Int("sessions_regenerated", len(booked)),
		zap.String("new_start_date", newStartDate.Format("2006-01-02")),
	)

	return resumed, booked, nil
}

// CancelPackage terminates an active or paused package and cancels its
// open sessions.
func (s *Service) CancelPackage(ctx context.Context, clinicID, id uuid.UUID) (*Package, error) {
	pkg, err := s.repo.UpdateStatusFrom(ctx, clinicID, id,
		[]Status{StatusActive, StatusPaused}, StatusCancelled, nil)
	if err != nil {
		if errors.Is(err, ErrPackageNotFound) {
			return nil, s.notFoundOrInvalid(ctx, clinicID, id)
		}
		return nil, fmt.Errorf("cancel package: %w", err)
	}

	if _, err := s.repo.CancelOpenSessions(ctx, clinicID, id); err != nil {
		return nil, err
	}

	s.logger.Info("package cancelled", zap.String("package_id", id.String()))
	return pkg, nil
}

// CompletePackage is the explicit, user-triggered completion.
func (s *Service) CompletePackage(ctx context.Context, clinicID, id uuid.UUID) (*Package, error) {
	now := time.Now()
	pkg, err := s.repo.UpdateStatusFrom(ctx, clinicID, id, []Status{StatusActive}, StatusCompleted, &now)
	if err != nil {
		if errors.Is(err, ErrPackageNotFound) {
			return nil, s.notFoundOrInvalid(ctx, clinicID, id)
		}
		return nil, fmt.Errorf("complete package: %w", err)
	}
	return pkg, nil
}

// CheckAndComplete rolls an active package up to completed once every
// session is done. Invoked after each session completion; a no-op while
// sessions remain.
func (s *Service) CheckAndComplete(ctx context.Context, clinicID, packageID uuid.UUID) error {
	pkg, err := s.repo.GetByID(ctx, clinicID, packageID)
	if err != nil {
		return err
	}
	if pkg.Status != StatusActive {
		return nil
	}

	counts, err := s.repo.CountSessionsByStatus(ctx, clinicID, packageID)
	if err != nil {
		return fmt.Errorf("count package sessions: %w", err)
	}
	if counts[appointment.StatusCompleted] < pkg.TotalSessions {
		return nil
	}

	now := time.Now()
	if _, err := s.repo.UpdateStatusFrom(ctx, clinicID, packageID,
		[]Status{StatusActive}, StatusCompleted, &now); err != nil {
		if errors.Is(err, ErrPackageNotFound) {
			return nil
		}
		return fmt.Errorf("auto-complete package: %w", err)
	}

	s.logger.Info("package completed", zap.String("package_id", packageID.String()))
	return nil
}

// RescheduleSession moves one still-open session to a new date and time,
// keeping its package id and session number.
func (s *Service) RescheduleSession(ctx context.Context, clinicID, packageID, appointmentID uuid.UUID, newDate time.Time, newStart schedule.TimeOfDay) (*appointment.Appointment, error) {
	pkg, err := s.repo.GetByID(ctx, clinicID, packageID)
	if err != nil {
		return nil, err
	}
	if pkg.Status.Terminal() {
		return nil, ErrInvalidPackageStatus
	}

	sessions, err := s.repo.ListSessions(ctx, clinicID, packageID)
	if err != nil {
		return nil, fmt.Errorf("list package sessions: %w", err)
	}
	var target *appointment.Appointment
	for i := range sessions {
		if sessions[i].ID == appointmentID {
			target = &sessions[i]
			break
		}
	}
	if target == nil {
		return nil, ErrSessionNotInPackage
	}
	if target.Status.Terminal() {
		return nil, appointment.ErrInvalidStatus
	}

	svc, err := s.clinics.GetServiceByID(ctx, clinicID, pkg.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("load service: %w", err)
	}
	newEnd := newStart.Add(svc.DurationMinutes)
	if !newStart.Valid() || newEnd > schedule.MinutesPerDay {
		return nil, appointment.ErrInvalidTimeWindow
	}

	booked, err := s.repo.RescheduleSession(ctx, clinicID, appointmentID, newDate, newStart, newEnd)
	if err != nil {
		if errors.Is(err, appointment.ErrAppointmentNotFound) {
			return nil, appointment.ErrInvalidStatus
		}
		return nil, err
	}

	s.logger.Info("package session rescheduled",
		zap.String("package_id", packageID.String()),
		zap.String("appointment_id", appointmentID.String()),
		zap.String("new_date", newDate.Format("2006-01-02")),
	)

	return booked, nil
}

// GetPackageStats summarizes session progress for one package.
func (s *Service) GetPackageStats(ctx context.Context, clinicID, id uuid.UUID) (*Stats, error) {
	pkg, err := s.repo.GetByID(ctx, clinicID, id)
	if err != nil {
		return nil, err
	}

	counts, err := s.repo.CountSessionsByStatus(ctx, clinicID, id)
	if err != nil {
		return nil, fmt.Errorf("count package sessions: %w", err)
	}

	return &Stats{
		PackageID:         pkg.ID,
		Status:            pkg.Status,
		TotalSessions:     pkg.TotalSessions,
		CompletedSessions: counts[appointment.StatusCompleted],
		UpcomingSessions:  counts[appointment.StatusPending] + counts[appointment.StatusConfirmed],
		CancelledSessions: counts[appointment.StatusCancelledByPatient] + counts[appointment.StatusCancelledByClinic],
	}, nil
}

// CountByStatus counts the clinic's packages grouped by status.
func (s *Service) CountByStatus(ctx context.Context, clinicID uuid.UUID) (map[Status]int, error) {
	counts, err := s.repo.CountByStatus(ctx, clinicID)
	if err != nil {
		return nil, fmt.Errorf("count packages: %w", err)
	}
	return counts, nil
}

// notFoundOrInvalid disambiguates a failed compare-and-swap: a missing
// package stays NotFound, an existing one in the wrong status becomes
// ErrInvalidPackageStatus.
func (s *Service) notFoundOrInvalid(ctx context.Context, clinicID, id uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, clinicID, id); err != nil {
		return err
	}
	return ErrInvalidPackageStatus
}
