package notify

import (
	"context"

	"github.com/clinicwave/clinic-scheduling/internal/whatsapp"
)

// DisabledSender stands in when WhatsApp credentials are absent. Every send
// fails with ErrNotConfigured, so messages still land in the log table as
// failed instead of disappearing.
type DisabledSender struct{}

func (DisabledSender) SendText(ctx context.Context, to, body string) (string, error) {
	return "", whatsapp.ErrNotConfigured
}
