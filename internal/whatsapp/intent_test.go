package whatsapp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyIntent(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		hasContext bool
		want       Intent
	}{
		{"booking keyword", "أبغى حجز", false, IntentBooking},
		{"booking keyword embedded", "عندكم موعد فاضي؟", false, IntentBooking},
		{"booking dialect", "بدي ليزر", false, IntentBooking},
		{"confirmation with context", "نعم", true, IntentConfirmation},
		{"confirmation variant", "أكيد", true, IntentConfirmation},
		{"confirmation no hamza", "اكيد", true, IntentConfirmation},
		{"bare yes without context", "نعم", false, IntentUnknown},
		{"cancellation", "إلغاء", false, IntentCancellation},
		{"cancellation no hamza", "الغاء", false, IntentCancellation},
		{"whitespace trimmed", "  نعم  ", true, IntentConfirmation},
		{"gibberish", "مرحبا كيف الحال", false, IntentUnknown},
		{"empty", "", false, IntentUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyIntent(tt.body, tt.hasContext))
		})
	}
}
