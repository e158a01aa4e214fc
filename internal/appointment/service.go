package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinicwave/clinic-scheduling/internal/clinic"
	"github.com/clinicwave/clinic-scheduling/internal/observability/metrics"
	"github.com/clinicwave/clinic-scheduling/internal/redisclient"
	"github.com/clinicwave/clinic-scheduling/internal/schedule"
)

var (
	ErrScheduleBusy        = errors.New("schedule is currently being booked, please retry")
	ErrInvalidStatus       = errors.New("operation not permitted in current appointment status")
	ErrInvalidCancelReason = errors.New("cancellation reason must be cancelled_by_patient or cancelled_by_clinic")
	ErrInvalidTimeWindow   = errors.New("appointment window must fall within a single day")
)

// allowedTransitions is the explicit status transition table. Anything not
// listed is rejected; terminal statuses have no outgoing edges.
var allowedTransitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelledByPatient, StatusCancelledByClinic},
	StatusConfirmed: {StatusCompleted, StatusCancelledByPatient, StatusCancelledByClinic},
}

func transitionAllowed(from, to Status) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ClinicDirectory is the slice of the clinic store the booking service
// reads: patient/service validation and availability inputs.
type ClinicDirectory interface {
	GetPatientByID(ctx context.Context, clinicID, id uuid.UUID) (*clinic.Patient, error)
	GetServiceByID(ctx context.Context, clinicID, id uuid.UUID) (*clinic.Service, error)
	GetWorkingHours(ctx context.Context, clinicID, staffID uuid.UUID, day time.Weekday) (*clinic.WorkingHours, error)
	ListBlockedSlots(ctx context.Context, clinicID, staffID uuid.UUID, date time.Time) ([]clinic.BlockedSlot, error)
}

// Notifier sends the booking confirmation. Failures are logged and never
// roll back the booking.
type Notifier interface {
	SendBookingConfirmation(ctx context.Context, phone, patientName string, appt *Appointment) error
}

// WaitlistFiller is invoked when a patient cancellation frees a slot.
type WaitlistFiller interface {
	FindAndFillSlot(ctx context.Context, clinicID uuid.UUID, freed *Appointment) (bool, error)
}

// PackageCompleter lets a completed session roll its package up to
// completed once every session is done.
type PackageCompleter interface {
	CheckAndComplete(ctx context.Context, clinicID, packageID uuid.UUID) error
}

type CreateInput struct {
	PatientID uuid.UUID
	StaffID   uuid.UUID
	ServiceID uuid.UUID
	Date      time.Time
	StartTime schedule.TimeOfDay
	Type      Type
	Source    Source
	Notes     *string
}

type Service struct {
	repo     Repository
	clinics  ClinicDirectory
	locker   redisclient.Locker
	notifier Notifier
	waitlist WaitlistFiller
	packages PackageCompleter
	metrics  *metrics.SchedulingMetrics
	logger   *zap.Logger
}

func NewService(repo Repository, clinics ClinicDirectory, locker redisclient.Locker, notifier Notifier, m *metrics.SchedulingMetrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:     repo,
		clinics:  clinics,
		locker:   locker,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
	}
}

// SetWaitlistFiller wires the waitlist matcher after construction; the
// matcher itself books through this service, so the two are built first
// and connected afterwards.
func (s *Service) SetWaitlistFiller(w WaitlistFiller) { s.waitlist = w }

// SetPackageCompleter wires the package lifecycle the same way.
func (s *Service) SetPackageCompleter(p PackageCompleter) { s.packages = p }

// CreateAppointment books a single appointment. The conflict check and
// insert run atomically per (clinic, staff, date); two overlapping requests
// cannot both succeed.
func (s *Service) CreateAppointment(ctx context.Context, clinicID uuid.UUID, createdBy uuid.UUID, input CreateInput) (*Appointment, error) {
	patient, err := s.clinics.GetPatientByID(ctx, clinicID, input.PatientID)
	if err != nil {
		if errors.Is(err, clinic.ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}

	svc, err := s.clinics.GetServiceByID(ctx, clinicID, input.ServiceID)
	if err != nil {
		if errors.Is(err, clinic.ErrServiceNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load service: %w", err)
	}

	endTime := input.StartTime.Add(svc.DurationMinutes)
	if !input.StartTime.Valid() || endTime > schedule.MinutesPerDay {
		return nil, ErrInvalidTimeWindow
	}

	apptType := input.Type
	if apptType == "" {
		apptType = TypeSingle
	}
	source := input.Source
	if source == "" {
		source = SourceDirect
	}

	appt := &Appointment{
		ClinicID:  clinicID,
		PatientID: input.PatientID,
		StaffID:   input.StaffID,
		ServiceID: input.ServiceID,
		Date:      input.Date,
		StartTime: input.StartTime,
		EndTime:   endTime,
		Status:    StatusConfirmed,
		Type:      apptType,
		Source:    source,
		Notes:     input.Notes,
		CreatedBy: &createdBy,
	}

	var created *Appointment
	err = s.locker.WithScheduleLock(ctx, clinicID, input.StaffID, input.Date, func(lockCtx context.Context) error {
		var err error
		created, err = s.repo.CreateIfFree(lockCtx, appt)
		return err
	})
	if errors.Is(err, redisclient.ErrLockUnavailable) {
		// The advisory lock inside CreateIfFree upholds no-double-booking
		// on its own; a Redis outage only loses the hot-path serialization.
		s.logger.Warn("schedule lock unavailable, booking without it",
			zap.String("staff_id", input.StaffID.String()),
			zap.Error(err),
		)
		created, err = s.repo.CreateIfFree(ctx, appt)
	}
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrScheduleBusy
		}
		if errors.Is(err, ErrSlotUnavailable) {
			s.metrics.ObserveBookingConflict()
			return nil, ErrSlotUnavailable
		}
		return nil, err
	}

	s.metrics.ObserveBooking(string(created.Type), string(created.Source))
	s.logger.Info("appointment created",
		zap.String("clinic_id", clinicID.String()),
		zap.String("appointment_id", created.ID.String()),
		zap.String("staff_id", created.StaffID.String()),
		zap.String("date", created.Date.Format("2006-01-02")),
		zap.String("start", created.StartTime.String()),
	)

	if s.notifier != nil {
		if err := s.notifier.SendBookingConfirmation(ctx, patient.Phone, patient.FullName, created); err != nil {
			s.logger.Warn("booking confirmation send failed",
				zap.String("appointment_id", created.ID.String()),
				zap.Error(err),
			)
		}
	}

	return created, nil
}

// CancelAppointment moves a pending/confirmed appointment into one of the
// two cancellation statuses. Already-terminal appointments cannot be
// re-cancelled. A patient cancellation optionally hands the freed slot to
// the waitlist matcher.
func (s *Service) CancelAppointment(ctx context.Context, clinicID, id uuid.UUID, reason Status, checkWaitlist bool) (*Appointment, error) {
	if reason != StatusCancelledByPatient && reason != StatusCancelledByClinic {
		return nil, ErrInvalidCancelReason
	}

	appt, err := s.repo.GetByID(ctx, clinicID, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	if appt.Status.Terminal() {
		return nil, ErrInvalidStatus
	}

	updated, err := s.repo.UpdateStatusFrom(ctx, clinicID, id,
		[]Status{StatusPending, StatusConfirmed}, reason)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Lost a race with a concurrent status change.
			return nil, ErrInvalidStatus
		}
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	s.metrics.ObserveCancellation(string(reason))
	s.logger.Info("appointment cancelled",
		zap.String("clinic_id", clinicID.String()),
		zap.String("appointment_id", id.String()),
		zap.String("reason", string(reason)),
	)

	if checkWaitlist && reason == StatusCancelledByPatient && s.waitlist != nil {
		offered, err := s.waitlist.FindAndFillSlot(ctx, clinicID, updated)
		if err != nil {
			s.logger.Warn("waitlist fill failed for freed slot",
				zap.String("appointment_id", id.String()),
				zap.Error(err),
			)
		} else if offered {
			s.logger.Info("freed slot offered to waitlist",
				zap.String("appointment_id", id.String()),
			)
		}
	}

	return updated, nil
}

// UpdateStatus applies a transition from the explicit table; anything else
// fails with ErrInvalidStatus.
func (s *Service) UpdateStatus(ctx context.Context, clinicID, id uuid.UUID, to Status) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, clinicID, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	if !transitionAllowed(appt.Status, to) {
		return nil, ErrInvalidStatus
	}

	updated, err := s.repo.UpdateStatusFrom(ctx, clinicID, id, []Status{appt.Status}, to)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrInvalidStatus
		}
		return nil, fmt.Errorf("update appointment status: %w", err)
	}

	if to == StatusCompleted && updated.PackageID != nil && s.packages != nil {
		if err := s.packages.CheckAndComplete(ctx, clinicID, *updated.PackageID); err != nil {
			s.logger.Warn("package completion check failed",
				zap.String("package_id", updated.PackageID.String()),
				zap.Error(err),
			)
		}
	}

	return updated, nil
}

// GetAppointment retrieves one appointment within the clinic scope.
func (s *Service) GetAppointment(ctx context.Context, clinicID, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, clinicID, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return appt, nil
}

// ListAppointments returns a filtered, paginated page.
func (s *Service) ListAppointments(ctx context.Context, clinicID uuid.UUID, f Filter) (*Page, error) {
	page, err := s.repo.List(ctx, clinicID, f)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return page, nil
}

// CountByStatus powers the dashboard stats.
func (s *Service) CountByStatus(ctx context.Context, clinicID uuid.UUID, from, to *time.Time) (map[Status]int, error) {
	counts, err := s.repo.CountByStatus(ctx, clinicID, from, to)
	if err != nil {
		return nil, fmt.Errorf("count appointments by status: %w", err)
	}
	return counts, nil
}
