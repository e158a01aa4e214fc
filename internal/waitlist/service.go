package waitlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinicwave/clinic-scheduling/internal/appointment"
	"github.com/clinicwave/clinic-scheduling/internal/clinic"
	"github.com/clinicwave/clinic-scheduling/internal/observability/metrics"
	"github.com/clinicwave/clinic-scheduling/internal/schedule"
)

var (
	// ErrOfferNotFound covers both "no such offer" and "offer expired";
	// the caller cannot distinguish a stale offer from a missing one.
	ErrOfferNotFound      = errors.New("waitlist offer not found or expired")
	ErrInvalidEntryStatus = errors.New("operation not permitted in current waitlist status")
	ErrMissingOfferStaff  = errors.New("waitlist entry has no staff member to book with")
)

// DefaultOfferTTL is the acceptance window communicated to the patient.
const DefaultOfferTTL = 10 * time.Minute

// Directory is the slice of the clinic store the waitlist reads.
type Directory interface {
	GetPatientByID(ctx context.Context, clinicID, id uuid.UUID) (*clinic.Patient, error)
	GetServiceByID(ctx context.Context, clinicID, id uuid.UUID) (*clinic.Service, error)
}

// Booker books the appointment when an offer is accepted. Implemented by
// the appointment service so waitlist fills run the same conflict check
// as direct bookings.
type Booker interface {
	CreateAppointment(ctx context.Context, clinicID, createdBy uuid.UUID, input appointment.CreateInput) (*appointment.Appointment, error)
}

// Notifier delivers the offer message. Fire-and-forget; a delivery
// failure leaves the offer standing.
type Notifier interface {
	SendWaitlistOffer(ctx context.Context, phone, patientName string, freed *appointment.Appointment, waitlistID uuid.UUID) error
}

type AddInput struct {
	PatientID           uuid.UUID
	ServiceID           uuid.UUID
	PreferredStaffID    *uuid.UUID
	PreferredDateStart  *time.Time
	PreferredDateEnd    *time.Time
	PreferredTimeStart  *schedule.TimeOfDay
	PreferredTimeEnd    *schedule.TimeOfDay
	PreferredDaysOfWeek []time.Weekday
	Priority            int
	Notes               *string
}

type Service struct {
	repo     Repository
	clinics  Directory
	booker   Booker
	notifier Notifier
	offerTTL time.Duration
	metrics  *metrics.SchedulingMetrics
	logger   *zap.Logger
}

func NewService(repo Repository, clinics Directory, booker Booker, notifier Notifier, offerTTL time.Duration, m *metrics.SchedulingMetrics, logger *zap.Logger) *Service {
	if offerTTL <= 0 {
		offerTTL = DefaultOfferTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:     repo,
		clinics:  clinics,
		booker:   booker,
		notifier: notifier,
		offerTTL: offerTTL,
		metrics:  m,
		logger:   logger,
	}
}

// AddToWaitlist registers a patient's standing request.
func (s *Service) AddToWaitlist(ctx context.Context, clinicID uuid.UUID, input AddInput) (*Entry, error) {
	if _, err := s.clinics.GetPatientByID(ctx, clinicID, input.PatientID); err != nil {
		if errors.Is(err, clinic.ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}
	if _, err := s.clinics.GetServiceByID(ctx, clinicID, input.ServiceID); err != nil {
		if errors.Is(err, clinic.ErrServiceNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load service: %w", err)
	}

	entry, err := s.repo.Create(ctx, &Entry{
		ClinicID:            clinicID,
		PatientID:           input.PatientID,
		ServiceID:           input.ServiceID,
		PreferredStaffID:    input.PreferredStaffID,
		PreferredDateStart:  input.PreferredDateStart,
		PreferredDateEnd:    input.PreferredDateEnd,
		PreferredTimeStart:  input.PreferredTimeStart,
		PreferredTimeEnd:    input.PreferredTimeEnd,
		PreferredDaysOfWeek: input.PreferredDaysOfWeek,
		Priority:            input.Priority,
		Status:              StatusActive,
		Notes:               input.Notes,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("waitlist entry created",
		zap.String("clinic_id", clinicID.String()),
		zap.String("waitlist_id", entry.ID.String()),
		zap.Int("priority", entry.Priority),
	)

	return entry, nil
}

// FindAndFillSlot offers a just-freed slot to the best-matching active
// entry. At most one offer per freed slot; no retry to the next candidate
// when the winner later declines or expires. Returns true iff an offer
// went out.
func (s *Service) FindAndFillSlot(ctx context.Context, clinicID uuid.UUID, freed *appointment.Appointment) (bool, error) {
	match, err := s.repo.FindBestMatch(ctx, clinicID, MatchQuery{
		ServiceID: freed.ServiceID,
		StaffID:   freed.StaffID,
		Date:      freed.Date,
		Weekday:   freed.Date.Weekday(),
		StartTime: freed.StartTime,
		EndTime:   freed.EndTime,
	})
	if err != nil {
		if errors.Is(err, ErrWaitlistNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("find waitlist match: %w", err)
	}

	offered, err := s.repo.MarkOffered(ctx, clinicID, match.ID, OfferedSlot{
		StaffID:   freed.StaffID,
		Date:      freed.Date,
		StartTime: freed.StartTime,
	})
	if err != nil {
		if errors.Is(err, ErrWaitlistNotFound) {
			// Another freed slot won the race for this entry.
			return false, nil
		}
		return false, fmt.Errorf("mark waitlist offered: %w", err)
	}

	s.metrics.ObserveWaitlistOffer()
	s.logger.Info("waitlist offer made",
		zap.String("clinic_id", clinicID.String()),
		zap.String("waitlist_id", offered.ID.String()),
		zap.String("freed_appointment_id", freed.ID.String()),
		zap.Int("priority", offered.Priority),
	)

	if s.notifier != nil {
		patient, err := s.clinics.GetPatientByID(ctx, clinicID, offered.PatientID)
		if err != nil {
			s.logger.Warn("waitlist offer notification skipped, patient lookup failed",
				zap.String("waitlist_id", offered.ID.String()),
				zap.Error(err),
			)
			return true, nil
		}
		if err := s.notifier.SendWaitlistOffer(ctx, patient.Phone, patient.FullName, freed, offered.ID); err != nil {
			s.logger.Warn("waitlist offer send failed",
				zap.String("waitlist_id", offered.ID.String()),
				zap.Error(err),
			)
		}
	}

	return true, nil
}

// AcceptWaitlistOffer books the offered slot for the entry. The entry must
// currently be offered and within the acceptance window; a stale offer is
// expired on read and reported as not found.
func (s *Service) AcceptWaitlistOffer(ctx context.Context, clinicID, waitlistID uuid.UUID, date time.Time, startTime schedule.TimeOfDay) (*appointment.Appointment, error) {
	entry, err := s.repo.GetByID(ctx, clinicID, waitlistID)
	if err != nil {
		if errors.Is(err, ErrWaitlistNotFound) {
			return nil, ErrOfferNotFound
		}
		return nil, fmt.Errorf("load waitlist entry: %w", err)
	}

	if entry.Status != StatusOffered {
		return nil, ErrOfferNotFound
	}

	if entry.OfferedAt != nil && time.Since(*entry.OfferedAt) > s.offerTTL {
		if _, err := s.repo.MarkExpired(ctx, clinicID, waitlistID); err != nil && !errors.Is(err, ErrWaitlistNotFound) {
			s.logger.Warn("lazy offer expiry failed",
				zap.String("waitlist_id", waitlistID.String()),
				zap.Error(err),
			)
		}
		s.metrics.ObserveOfferExpiry()
		return nil, ErrOfferNotFound
	}

	staffID := entry.OfferedStaffID
	if staffID == nil {
		staffID = entry.PreferredStaffID
	}
	if staffID == nil {
		return nil, ErrMissingOfferStaff
	}

	appt, err := s.booker.CreateAppointment(ctx, clinicID, entry.PatientID, appointment.CreateInput{
		PatientID: entry.PatientID,
		StaffID:   *staffID,
		ServiceID: entry.ServiceID,
		Date:      date,
		StartTime: startTime,
		Type:      appointment.TypeSingle,
		Source:    appointment.SourceWaitlist,
	})
	if err != nil {
		return nil, err
	}

	filled, err := s.repo.MarkFilled(ctx, clinicID, waitlistID, appt.ID)
	if err != nil {
		if errors.Is(err, ErrWaitlistNotFound) {
			// The entry moved concurrently; the booking stands regardless.
			s.logger.Warn("waitlist entry moved during accept, booking kept",
				zap.String("waitlist_id", waitlistID.String()),
				zap.String("appointment_id", appt.ID.String()),
			)
			return appt, nil
		}
		return nil, fmt.Errorf("mark waitlist filled: %w", err)
	}

	s.metrics.ObserveWaitlistFill()
	s.logger.Info("waitlist offer accepted",
		zap.String("clinic_id", clinicID.String()),
		zap.String("waitlist_id", filled.ID.String()),
		zap.String("appointment_id", appt.ID.String()),
	)

	return appt, nil
}

// CancelWaitlist withdraws an active or offered entry.
func (s *Service) CancelWaitlist(ctx context.Context, clinicID, id uuid.UUID) (*Entry, error) {
	entry, err := s.repo.Cancel(ctx, clinicID, id)
	if err != nil {
		if errors.Is(err, ErrWaitlistNotFound) {
			if _, getErr := s.repo.GetByID(ctx, clinicID, id); getErr != nil {
				return nil, getErr
			}
			return nil, ErrInvalidEntryStatus
		}
		return nil, fmt.Errorf("cancel waitlist entry: %w", err)
	}

	s.logger.Info("waitlist entry cancelled",
		zap.String("clinic_id", clinicID.String()),
		zap.String("waitlist_id", id.String()),
	)

	return entry, nil
}

// ExpireStaleOffers sweeps offers older than the acceptance window.
// Invoked periodically by the expiry worker.
func (s *Service) ExpireStaleOffers(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.offerTTL)
	n, err := s.repo.ExpireOffersBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		for i := 0; i < n; i++ {
			s.metrics.ObserveOfferExpiry()
		}
		s.logger.Info("stale waitlist offers expired", zap.Int("count", n))
	}
	return n, nil
}

// GetEntry returns one entry within the clinic scope.
func (s *Service) GetEntry(ctx context.Context, clinicID, id uuid.UUID) (*Entry, error) {
	return s.repo.GetByID(ctx, clinicID, id)
}

// GetWaitlist lists a clinic's entries, optionally filtered by status.
func (s *Service) GetWaitlist(ctx context.Context, clinicID uuid.UUID, status *Status) ([]Entry, error) {
	return s.repo.List(ctx, clinicID, status)
}

// GetWaitlistStats returns per-status counts for the dashboard.
func (s *Service) GetWaitlistStats(ctx context.Context, clinicID uuid.UUID) (*Stats, error) {
	counts, err := s.repo.CountByStatus(ctx, clinicID)
	if err != nil {
		return nil, fmt.Errorf("count waitlist entries: %w", err)
	}
	return &Stats{
		Active:    counts[StatusActive],
		Offered:   counts[StatusOffered],
		Filled:    counts[StatusFilled],
		Cancelled: counts[StatusCancelled],
		Expired:   counts[StatusExpired],
	}, nil
}
