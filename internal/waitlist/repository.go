package waitlist

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrWaitlistNotFound = errors.New("waitlist entry not found")

// Repository contains the waitlist store operations, clinic-scoped like
// every other query in the system. Status moves are compare-and-swap so
// two concurrent cancellations cannot both offer the same entry.
type Repository interface {
	Create(ctx context.Context, e *Entry) (*Entry, error)

	GetByID(ctx context.Context, clinicID, id uuid.UUID) (*Entry, error)

	// FindBestMatch returns the single top-ranked active entry compatible
	// with the freed slot: priority descending, then created_at ascending.
	// ErrWaitlistNotFound when nothing matches.
	FindBestMatch(ctx context.Context, clinicID uuid.UUID, q MatchQuery) (*Entry, error)

	// MarkOffered transitions active -> offered, recording the offered
	// slot and offer time. ErrWaitlistNotFound when the entry is no longer
	// active (lost race or gone).
	MarkOffered(ctx context.Context, clinicID, id uuid.UUID, slot OfferedSlot) (*Entry, error)

	// MarkFilled transitions offered -> filled with the booked appointment.
	MarkFilled(ctx context.Context, clinicID, id, appointmentID uuid.UUID) (*Entry, error)

	// MarkExpired transitions offered -> expired for one entry (lazy
	// expiry on read).
	MarkExpired(ctx context.Context, clinicID, id uuid.UUID) (*Entry, error)

	// Cancel transitions active/offered -> cancelled.
	Cancel(ctx context.Context, clinicID, id uuid.UUID) (*Entry, error)

	// ExpireOffersBefore bulk-expires offered entries whose offer was made
	// before the cutoff, across all clinics. Returns rows changed.
	ExpireOffersBefore(ctx context.Context, cutoff time.Time) (int, error)

	List(ctx context.Context, clinicID uuid.UUID, status *Status) ([]Entry, error)

	CountByStatus(ctx context.Context, clinicID uuid.UUID) (map[Status]int, error)
}
