package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinicwave/clinic-scheduling/internal/appointment"
	"github.com/clinicwave/clinic-scheduling/internal/whatsapp"
)

// Sender is the outbound message transport. Implemented by the WhatsApp
// Cloud API client.
type Sender interface {
	SendText(ctx context.Context, to, body string) (string, error)
}

// Service renders patient-facing messages, sends them, and logs every
// exchange. Send failures are reported to callers but never roll back the
// state change that triggered them.
type Service struct {
	sender Sender
	store  whatsapp.Store
	logger *zap.Logger
}

func NewService(sender Sender, store whatsapp.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{sender: sender, store: store, logger: logger}
}

func (s *Service) send(ctx context.Context, clinicID *uuid.UUID, phone, body, msgType string) error {
	messageID, sendErr := s.sender.SendText(ctx, phone, body)

	now := time.Now()
	logEntry := &whatsapp.Message{
		ClinicID:    clinicID,
		Phone:       phone,
		Direction:   whatsapp.DirectionOutgoing,
		MessageType: msgType,
		Content:     body,
	}
	if sendErr != nil {
		logEntry.Status = whatsapp.MessageFailed
		errMsg := sendErr.Error()
		logEntry.ErrorMessage = &errMsg
	} else {
		logEntry.Status = whatsapp.MessageSent
		logEntry.ExternalMessageID = &messageID
		logEntry.SentAt = &now
	}

	if s.store != nil {
		if err := s.store.Log(ctx, logEntry); err != nil {
			s.logger.Warn("whatsapp message log write failed",
				zap.String("phone", phone),
				zap.String("message_type", msgType),
				zap.Error(err),
			)
		}
	}

	return sendErr
}

// SendBookingConfirmation implements the booking service's notifier.
func (s *Service) SendBookingConfirmation(ctx context.Context, phone, patientName string, appt *appointment.Appointment) error {
	body := bookingConfirmationBody(patientName, appt.Date, appt.StartTime)
	return s.send(ctx, &appt.ClinicID, phone, body, "booking_confirmation")
}

// SendWaitlistOffer implements the waitlist service's notifier.
func (s *Service) SendWaitlistOffer(ctx context.Context, phone, patientName string, freed *appointment.Appointment, waitlistID uuid.UUID) error {
	body := waitlistOfferBody(patientName, freed.Date, freed.StartTime, waitlistID)
	return s.send(ctx, &freed.ClinicID, phone, body, "waitlist_offer")
}

// SendReminder delivers the 24-hour or 1-hour reminder for a confirmed
// appointment.
func (s *Service) SendReminder(ctx context.Context, c appointment.ReminderCandidate, kind appointment.ReminderKind) error {
	var body string
	switch kind {
	case appointment.Reminder1h:
		body = reminder1hBody(c.Appointment.StartTime, c.ServiceName)
	default:
		body = reminder24hBody(c.Appointment.Date, c.Appointment.StartTime, c.ServiceName)
	}
	return s.send(ctx, &c.Appointment.ClinicID, c.Phone, body, string(kind))
}
