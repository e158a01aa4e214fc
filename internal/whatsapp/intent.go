package whatsapp

import "strings"

// Intent classifies a free-text patient reply.
type Intent string

const (
	IntentBooking        Intent = "booking_intent"
	IntentConfirmation   Intent = "confirmation"
	IntentWaitlistAccept Intent = "waitlist_accept"
	IntentCancellation   Intent = "cancellation"
	IntentUnknown        Intent = "unknown"
)

var bookingKeywords = []string{"حجز", "موعد", "بدي"}

var confirmationWords = map[string]bool{
	"نعم":  true,
	"أكيد": true,
	"اكيد": true,
}

var cancellationWords = map[string]bool{
	"إلغاء": true,
	"الغاء": true,
}

// ClassifyIntent maps a reply body to an intent. Confirmation words only
// count when the reply carries a context id, since a bare "yes" has
// nothing to confirm. The caller resolves whether the context points at a
// waitlist offer or a booking confirmation.
func ClassifyIntent(body string, hasContext bool) Intent {
	normalized := strings.ToLower(strings.TrimSpace(body))

	for _, kw := range bookingKeywords {
		if strings.Contains(normalized, kw) {
			return IntentBooking
		}
	}

	if confirmationWords[normalized] {
		if hasContext {
			return IntentConfirmation
		}
		return IntentUnknown
	}

	if cancellationWords[normalized] {
		return IntentCancellation
	}

	return IntentUnknown
}
