package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinicwave/clinic-scheduling/internal/appointment"
	"github.com/clinicwave/clinic-scheduling/internal/schedule"
	"github.com/clinicwave/clinic-scheduling/internal/waitlist"
	"github.com/clinicwave/clinic-scheduling/internal/whatsapp"
)

// WaitlistAccess is the slice of the waitlist service the inbound handler
// uses to resolve and accept an offer referenced by a reply context.
type WaitlistAccess interface {
	GetEntry(ctx context.Context, clinicID, id uuid.UUID) (*waitlist.Entry, error)
	AcceptWaitlistOffer(ctx context.Context, clinicID, waitlistID uuid.UUID, date time.Time, startTime schedule.TimeOfDay) (*appointment.Appointment, error)
}

type InboundMessage struct {
	From      string
	Body      string
	MessageID string
	ContextID *string
}

// Reply is what the webhook sends back to the patient.
type Reply struct {
	Intent   whatsapp.Intent
	Response string
}

// InboundHandler classifies free-text patient replies and routes waitlist
// acceptances back into the offer lifecycle.
type InboundHandler struct {
	notify   *Service
	waitlist WaitlistAccess
	store    whatsapp.Store
	logger   *zap.Logger
}

func NewInboundHandler(notify *Service, wl WaitlistAccess, store whatsapp.Store, logger *zap.Logger) *InboundHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InboundHandler{notify: notify, waitlist: wl, store: store, logger: logger}
}

// Handle processes one inbound message for the given clinic: log it,
// classify it, and reply. A confirmation reply whose context id resolves
// to an offered waitlist entry books the stored offered slot.
func (h *InboundHandler) Handle(ctx context.Context, clinicID uuid.UUID, msg InboundMessage) (*Reply, error) {
	if h.store != nil {
		logEntry := &whatsapp.Message{
			ClinicID:    &clinicID,
			Phone:       msg.From,
			Direction:   whatsapp.DirectionIncoming,
			MessageType: "incoming",
			Content:     msg.Body,
			Status:      whatsapp.MessageDelivered,
		}
		if err := h.store.Log(ctx, logEntry); err != nil {
			h.logger.Warn("inbound message log write failed",
				zap.String("phone", msg.From),
				zap.Error(err),
			)
		}
	}

	intent := whatsapp.ClassifyIntent(msg.Body, msg.ContextID != nil)

	reply := &Reply{Intent: intent}
	switch intent {
	case whatsapp.IntentBooking:
		reply.Response = bookingMenuReply

	case whatsapp.IntentConfirmation:
		reply = h.handleConfirmation(ctx, clinicID, msg)

	case whatsapp.IntentCancellation:
		reply.Response = cancellationReply

	default:
		reply.Response = defaultReply
	}

	if h.notify != nil && reply.Response != "" {
		if err := h.notify.send(ctx, &clinicID, msg.From, reply.Response, "auto_reply"); err != nil {
			h.logger.Warn("auto reply send failed",
				zap.String("phone", msg.From),
				zap.Error(err),
			)
		}
	}

	return reply, nil
}

// handleConfirmation distinguishes a waitlist acceptance from a plain
// booking confirmation by resolving the reply's context id against the
// waitlist.
func (h *InboundHandler) handleConfirmation(ctx context.Context, clinicID uuid.UUID, msg InboundMessage) *Reply {
	waitlistID, err := uuid.Parse(*msg.ContextID)
	if err != nil || h.waitlist == nil {
		return &Reply{Intent: whatsapp.IntentConfirmation, Response: confirmationReply}
	}

	entry, err := h.waitlist.GetEntry(ctx, clinicID, waitlistID)
	if err != nil {
		// Context does not reference a waitlist entry; treat as a plain
		// booking confirmation.
		return &Reply{Intent: whatsapp.IntentConfirmation, Response: confirmationReply}
	}

	if entry.OfferedDate == nil || entry.OfferedStartTime == nil {
		return &Reply{Intent: whatsapp.IntentConfirmation, Response: confirmationReply}
	}

	appt, err := h.waitlist.AcceptWaitlistOffer(ctx, clinicID, waitlistID, *entry.OfferedDate, *entry.OfferedStartTime)
	if err != nil {
		if errors.Is(err, waitlist.ErrOfferNotFound) {
			return &Reply{Intent: whatsapp.IntentWaitlistAccept, Response: waitlistExpiredReply}
		}
		h.logger.Warn("waitlist accept via reply failed",
			zap.String("waitlist_id", waitlistID.String()),
			zap.Error(err),
		)
		return &Reply{Intent: whatsapp.IntentWaitlistAccept, Response: waitlistExpiredReply}
	}

	h.logger.Info("waitlist offer accepted via whatsapp reply",
		zap.String("waitlist_id", waitlistID.String()),
		zap.String("appointment_id", appt.ID.String()),
	)

	return &Reply{Intent: whatsapp.IntentWaitlistAccept, Response: waitlistAcceptedReply}
}
