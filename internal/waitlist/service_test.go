package waitlist

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicwave/clinic-scheduling/internal/appointment"
	"github.com/clinicwave/clinic-scheduling/internal/clinic"
	"github.com/clinicwave/clinic-scheduling/internal/schedule"
)

// memRepo implements Repository in memory, including the matching
// predicate and ranking, so the matcher's ordering is exercised for real.
type memRepo struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*Entry
}

func newMemRepo() *memRepo {
	return &memRepo{entries: make(map[uuid.UUID]*Entry)}
}

func (r *memRepo) Create(ctx context.Context, e *Entry) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *e
	cp.ID = uuid.New()
	cp.Status = StatusActive
	cp.CreatedAt = time.Now()
	r.entries[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *memRepo) GetByID(ctx context.Context, clinicID, id uuid.UUID) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok || e.ClinicID != clinicID {
		return nil, ErrWaitlistNotFound
	}
	cp := *e
	return &cp, nil
}

func matches(e *Entry, q MatchQuery) bool {
	if e.Status != StatusActive || e.ServiceID != q.ServiceID {
		return false
	}
	if e.PreferredStaffID != nil && *e.PreferredStaffID != q.StaffID {
		return false
	}
	if e.PreferredDateStart != nil && q.Date.Before(*e.PreferredDateStart) {
		return false
	}
	if e.PreferredDateEnd != nil && q.Date.After(*e.PreferredDateEnd) {
		return false
	}
	if e.PreferredTimeStart != nil && q.StartTime < *e.PreferredTimeStart {
		return false
	}
	if e.PreferredTimeEnd != nil && q.EndTime > *e.PreferredTimeEnd {
		return false
	}
	if len(e.PreferredDaysOfWeek) > 0 {
		found := false
		for _, d := range e.PreferredDaysOfWeek {
			if d == q.Weekday {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (r *memRepo) FindBestMatch(ctx context.Context, clinicID uuid.UUID, q MatchQuery) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var candidates []*Entry
	for _, e := range r.entries {
		if e.ClinicID == clinicID && matches(e, q) {
			candidates = append(candidates, e)
		}
	}
	if len(candidates) == 0 {
		return nil, ErrWaitlistNotFound
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority > candidates[j].Priority
		}
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})
	cp := *candidates[0]
	return &cp, nil
}

func (r *memRepo) cas(clinicID, id uuid.UUID, from []Status, mutate func(*Entry)) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok || e.ClinicID != clinicID {
		return nil, ErrWaitlistNotFound
	}
	permitted := false
	for _, s := range from {
		if e.Status == s {
			permitted = true
			break
		}
	}
	if !permitted {
		return nil, ErrWaitlistNotFound
	}
	mutate(e)
	e.UpdatedAt = time.Now()
	cp := *e
	return &cp, nil
}

func (r *memRepo) MarkOffered(ctx context.Context, clinicID, id uuid.UUID, slot OfferedSlot) (*Entry, error) {
	return r.cas(clinicID, id, []Status{StatusActive}, func(e *Entry) {
		now := time.Now()
		e.Status = StatusOffered
		e.OfferedStaffID = &slot.StaffID
		e.OfferedDate = &slot.Date
		e.OfferedStartTime = &slot.StartTime
		e.OfferedAt = &now
	})
}

func (r *memRepo) MarkFilled(ctx context.Context, clinicID, id, appointmentID uuid.UUID) (*Entry, error) {
	return r.cas(clinicID, id, []Status{StatusOffered}, func(e *Entry) {
		now := time.Now()
		e.Status = StatusFilled
		e.FilledAppointmentID = &appointmentID
		e.FilledAt = &now
	})
}

func (r *memRepo) MarkExpired(ctx context.Context, clinicID, id uuid.UUID) (*Entry, error) {
	return r.cas(clinicID, id, []Status{StatusOffered}, func(e *Entry) {
		e.Status = StatusExpired
	})
}

func (r *memRepo) Cancel(ctx context.Context, clinicID, id uuid.UUID) (*Entry, error) {
	return r.cas(clinicID, id, []Status{StatusActive, StatusOffered}, func(e *Entry) {
		e.Status = StatusCancelled
	})
}

func (r *memRepo) ExpireOffersBefore(ctx context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.entries {
		if e.Status == StatusOffered && e.OfferedAt != nil && e.OfferedAt.Before(cutoff) {
			e.Status = StatusExpired
			n++
		}
	}
	return n, nil
}

func (r *memRepo) List(ctx context.Context, clinicID uuid.UUID, status *Status) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Entry
	for _, e := range r.entries {
		if e.ClinicID != clinicID {
			continue
		}
		if status != nil && e.Status != *status {
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}

func (r *memRepo) CountByStatus(ctx context.Context, clinicID uuid.UUID) (map[Status]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[Status]int)
	for _, e := range r.entries {
		if e.ClinicID == clinicID {
			counts[e.Status]++
		}
	}
	return counts, nil
}

type memDirectory struct {
	patients map[uuid.UUID]*clinic.Patient
	services map[uuid.UUID]*clinic.Service
}

func (d *memDirectory) GetPatientByID(ctx context.Context, clinicID, id uuid.UUID) (*clinic.Patient, error) {
	p, ok := d.patients[id]
	if !ok || p.ClinicID != clinicID {
		return nil, clinic.ErrPatientNotFound
	}
	return p, nil
}

func (d *memDirectory) GetServiceByID(ctx context.Context, clinicID, id uuid.UUID) (*clinic.Service, error) {
	s, ok := d.services[id]
	if !ok || s.ClinicID != clinicID {
		return nil, clinic.ErrServiceNotFound
	}
	return s, nil
}

type stubBooker struct {
	mu     sync.Mutex
	inputs []appointment.CreateInput
	fail   error
}

func (b *stubBooker) CreateAppointment(ctx context.Context, clinicID, createdBy uuid.UUID, input appointment.CreateInput) (*appointment.Appointment, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return nil, b.fail
	}
	b.inputs = append(b.inputs, input)
	return &appointment.Appointment{
		ID:        uuid.New(),
		ClinicID:  clinicID,
		PatientID: input.PatientID,
		StaffID:   input.StaffID,
		ServiceID: input.ServiceID,
		Date:      input.Date,
		StartTime: input.StartTime,
		Status:    appointment.StatusConfirmed,
		Source:    input.Source,
	}, nil
}

type stubNotifier struct {
	mu     sync.Mutex
	offers []uuid.UUID
}

func (n *stubNotifier) SendWaitlistOffer(ctx context.Context, phone, patientName string, freed *appointment.Appointment, waitlistID uuid.UUID) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.offers = append(n.offers, waitlistID)
	return nil
}

type wlEnv struct {
	svc      *Service
	repo     *memRepo
	booker   *stubBooker
	notifier *stubNotifier
	clinicID uuid.UUID
	patient  uuid.UUID
	staff    uuid.UUID
	service  uuid.UUID
}

func newWlEnv(t *testing.T) *wlEnv {
	t.Helper()

	clinicID := uuid.New()
	patientID := uuid.New()
	staffID := uuid.New()
	serviceID := uuid.New()

	dir := &memDirectory{
		patients: map[uuid.UUID]*clinic.Patient{
			patientID: {ID: patientID, ClinicID: clinicID, FullName: "Lina Omar", Phone: "+966500000003"},
		},
		services: map[uuid.UUID]*clinic.Service{
			serviceID: {ID: serviceID, ClinicID: clinicID, NameAr: "تنظيف بشرة", DurationMinutes: 30},
		},
	}

	repo := newMemRepo()
	booker := &stubBooker{}
	notifier := &stubNotifier{}
	svc := NewService(repo, dir, booker, notifier, DefaultOfferTTL, nil, nil)

	return &wlEnv{
		svc: svc, repo: repo, booker: booker, notifier: notifier,
		clinicID: clinicID, patient: patientID, staff: staffID, service: serviceID,
	}
}

func (env *wlEnv) freedSlot() *appointment.Appointment {
	return &appointment.Appointment{
		ID:        uuid.New(),
		ClinicID:  env.clinicID,
		StaffID:   env.staff,
		ServiceID: env.service,
		Date:      time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC), // a Monday
		StartTime: schedule.Clock(10, 0),
		EndTime:   schedule.Clock(10, 30),
	}
}

func (env *wlEnv) addEntry(t *testing.T, mutate func(*AddInput)) *Entry {
	t.Helper()
	input := AddInput{PatientID: env.patient, ServiceID: env.service}
	if mutate != nil {
		mutate(&input)
	}
	entry, err := env.svc.AddToWaitlist(context.Background(), env.clinicID, input)
	require.NoError(t, err)
	return entry
}

func TestAddToWaitlistValidatesPatientAndService(t *testing.T) {
	env := newWlEnv(t)
	ctx := context.Background()

	_, err := env.svc.AddToWaitlist(ctx, env.clinicID, AddInput{
		PatientID: uuid.New(), ServiceID: env.service,
	})
	assert.ErrorIs(t, err, clinic.ErrPatientNotFound)

	_, err = env.svc.AddToWaitlist(ctx, env.clinicID, AddInput{
		PatientID: env.patient, ServiceID: uuid.New(),
	})
	assert.ErrorIs(t, err, clinic.ErrServiceNotFound)

	entry := env.addEntry(t, nil)
	assert.Equal(t, StatusActive, entry.Status)
	assert.Zero(t, entry.Priority)
}

func TestFindAndFillSlotNoMatch(t *testing.T) {
	env := newWlEnv(t)

	offered, err := env.svc.FindAndFillSlot(context.Background(), env.clinicID, env.freedSlot())
	require.NoError(t, err)
	assert.False(t, offered)
}

func TestFindAndFillSlotPriorityRanking(t *testing.T) {
	env := newWlEnv(t)
	ctx := context.Background()

	low := env.addEntry(t, func(in *AddInput) { in.Priority = 1 })
	high := env.addEntry(t, func(in *AddInput) { in.Priority = 5 })

	offered, err := env.svc.FindAndFillSlot(ctx, env.clinicID, env.freedSlot())
	require.NoError(t, err)
	assert.True(t, offered)

	got, err := env.repo.GetByID(ctx, env.clinicID, high.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusOffered, got.Status, "higher priority wins")
	require.NotNil(t, got.OfferedAt)
	require.NotNil(t, got.OfferedStaffID)
	assert.Equal(t, env.staff, *got.OfferedStaffID)
	require.NotNil(t, got.OfferedStartTime)
	assert.Equal(t, schedule.Clock(10, 0), *got.OfferedStartTime)

	gotLow, err := env.repo.GetByID(ctx, env.clinicID, low.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, gotLow.Status, "only one offer per freed slot")

	require.Len(t, env.notifier.offers, 1)
	assert.Equal(t, high.ID, env.notifier.offers[0])
}

func TestFindAndFillSlotTieBreaksOldestFirst(t *testing.T) {
	env := newWlEnv(t)
	ctx := context.Background()

	first := env.addEntry(t, func(in *AddInput) { in.Priority = 2 })
	time.Sleep(2 * time.Millisecond)
	env.addEntry(t, func(in *AddInput) { in.Priority = 2 })

	offered, err := env.svc.FindAndFillSlot(ctx, env.clinicID, env.freedSlot())
	require.NoError(t, err)
	require.True(t, offered)

	got, err := env.repo.GetByID(ctx, env.clinicID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusOffered, got.Status, "earliest registration wins among equal priority")
}

func TestFindAndFillSlotPreferenceFilters(t *testing.T) {
	env := newWlEnv(t)
	ctx := context.Background()

	otherStaff := uuid.New()
	env.addEntry(t, func(in *AddInput) { in.PreferredStaffID = &otherStaff })

	tooLate := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	env.addEntry(t, func(in *AddInput) { in.PreferredDateStart = &tooLate })

	afternoonOnly := schedule.Clock(13, 0)
	env.addEntry(t, func(in *AddInput) { in.PreferredTimeStart = &afternoonOnly })

	env.addEntry(t, func(in *AddInput) { in.PreferredDaysOfWeek = []time.Weekday{time.Friday} })

	offered, err := env.svc.FindAndFillSlot(ctx, env.clinicID, env.freedSlot())
	require.NoError(t, err)
	assert.False(t, offered, "no entry is compatible with a Monday 10:00 slot")

	match := env.addEntry(t, func(in *AddInput) {
		in.PreferredStaffID = &env.staff
		in.PreferredDaysOfWeek = []time.Weekday{time.Monday, time.Wednesday}
	})

	offered, err = env.svc.FindAndFillSlot(ctx, env.clinicID, env.freedSlot())
	require.NoError(t, err)
	assert.True(t, offered)

	got, err := env.repo.GetByID(ctx, env.clinicID, match.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusOffered, got.Status)
}

func TestConcurrentFillsSameEntryOneOfferWins(t *testing.T) {
	env := newWlEnv(t)
	entry := env.addEntry(t, nil)

	// Two slots free up at once and both match the same top entry; the
	// offered CAS must let exactly one through.
	const slots = 8
	var wg sync.WaitGroup
	results := make(chan bool, slots)

	for i := 0; i < slots; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			freed := env.freedSlot()
			freed.StartTime = schedule.Clock(10+i, 0)
			freed.EndTime = schedule.Clock(10+i, 30)
			offered, err := env.svc.FindAndFillSlot(context.Background(), env.clinicID, freed)
			assert.NoError(t, err)
			results <- offered
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for offered := range results {
		if offered {
			wins++
		}
	}
	assert.Equal(t, 1, wins, "exactly one freed slot wins the entry")

	got, err := env.repo.GetByID(context.Background(), env.clinicID, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusOffered, got.Status)
	assert.Len(t, env.notifier.offers, 1, "at most one offer outstanding per entry")
}

func TestAcceptWaitlistOffer(t *testing.T) {
	env := newWlEnv(t)
	ctx := context.Background()

	entry := env.addEntry(t, nil)
	offered, err := env.svc.FindAndFillSlot(ctx, env.clinicID, env.freedSlot())
	require.NoError(t, err)
	require.True(t, offered)

	appt, err := env.svc.AcceptWaitlistOffer(ctx, env.clinicID, entry.ID,
		time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC), schedule.Clock(10, 0))
	require.NoError(t, err)

	assert.Equal(t, appointment.SourceWaitlist, appt.Source)
	require.Len(t, env.booker.inputs, 1)
	assert.Equal(t, env.staff, env.booker.inputs[0].StaffID, "books with the offered staff member")

	got, err := env.repo.GetByID(ctx, env.clinicID, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFilled, got.Status)
	require.NotNil(t, got.FilledAppointmentID)
	assert.Equal(t, appt.ID, *got.FilledAppointmentID)
	assert.NotNil(t, got.FilledAt)
}

func TestAcceptRequiresOfferedStatus(t *testing.T) {
	env := newWlEnv(t)
	ctx := context.Background()

	entry := env.addEntry(t, nil)

	_, err := env.svc.AcceptWaitlistOffer(ctx, env.clinicID, entry.ID,
		time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC), schedule.Clock(10, 0))
	assert.ErrorIs(t, err, ErrOfferNotFound, "active entry has no offer to accept")

	_, err = env.svc.AcceptWaitlistOffer(ctx, env.clinicID, uuid.New(),
		time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC), schedule.Clock(10, 0))
	assert.ErrorIs(t, err, ErrOfferNotFound)
}

func TestAcceptExpiresStaleOfferOnRead(t *testing.T) {
	env := newWlEnv(t)
	ctx := context.Background()

	entry := env.addEntry(t, nil)
	_, err := env.svc.FindAndFillSlot(ctx, env.clinicID, env.freedSlot())
	require.NoError(t, err)

	// Age the offer past the acceptance window.
	stale := time.Now().Add(-DefaultOfferTTL - time.Minute)
	env.repo.entries[entry.ID].OfferedAt = &stale

	_, err = env.svc.AcceptWaitlistOffer(ctx, env.clinicID, entry.ID,
		time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC), schedule.Clock(10, 0))
	assert.ErrorIs(t, err, ErrOfferNotFound)

	got, err := env.repo.GetByID(ctx, env.clinicID, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, got.Status, "stale offers expire on read")
	assert.Empty(t, env.booker.inputs, "no booking happens for an expired offer")
}

func TestAcceptBookingConflictKeepsOffer(t *testing.T) {
	env := newWlEnv(t)
	ctx := context.Background()

	entry := env.addEntry(t, nil)
	_, err := env.svc.FindAndFillSlot(ctx, env.clinicID, env.freedSlot())
	require.NoError(t, err)

	env.booker.fail = appointment.ErrSlotUnavailable
	_, err = env.svc.AcceptWaitlistOffer(ctx, env.clinicID, entry.ID,
		time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC), schedule.Clock(10, 0))
	assert.ErrorIs(t, err, appointment.ErrSlotUnavailable)

	got, err := env.repo.GetByID(ctx, env.clinicID, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusOffered, got.Status, "a failed booking leaves the offer standing")
}

func TestCancelWaitlist(t *testing.T) {
	env := newWlEnv(t)
	ctx := context.Background()

	entry := env.addEntry(t, nil)

	cancelled, err := env.svc.CancelWaitlist(ctx, env.clinicID, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	_, err = env.svc.CancelWaitlist(ctx, env.clinicID, entry.ID)
	assert.ErrorIs(t, err, ErrInvalidEntryStatus)

	_, err = env.svc.CancelWaitlist(ctx, env.clinicID, uuid.New())
	assert.ErrorIs(t, err, ErrWaitlistNotFound)
}

func TestCancelledEntriesDoNotMatch(t *testing.T) {
	env := newWlEnv(t)
	ctx := context.Background()

	entry := env.addEntry(t, nil)
	_, err := env.svc.CancelWaitlist(ctx, env.clinicID, entry.ID)
	require.NoError(t, err)

	offered, err := env.svc.FindAndFillSlot(ctx, env.clinicID, env.freedSlot())
	require.NoError(t, err)
	assert.False(t, offered)
}

func TestExpireStaleOffers(t *testing.T) {
	env := newWlEnv(t)
	ctx := context.Background()

	fresh := env.addEntry(t, nil)
	staleEntry := env.addEntry(t, func(in *AddInput) { in.Priority = 9 })

	_, err := env.svc.FindAndFillSlot(ctx, env.clinicID, env.freedSlot())
	require.NoError(t, err)
	staleTime := time.Now().Add(-DefaultOfferTTL - time.Minute)
	env.repo.entries[staleEntry.ID].OfferedAt = &staleTime

	_, err = env.svc.FindAndFillSlot(ctx, env.clinicID, env.freedSlot())
	require.NoError(t, err)

	n, err := env.svc.ExpireStaleOffers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	gotStale, err := env.repo.GetByID(ctx, env.clinicID, staleEntry.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, gotStale.Status)

	gotFresh, err := env.repo.GetByID(ctx, env.clinicID, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusOffered, gotFresh.Status, "fresh offers survive the sweep")
}

func TestGetWaitlistStats(t *testing.T) {
	env := newWlEnv(t)
	ctx := context.Background()

	env.addEntry(t, nil)
	env.addEntry(t, nil)
	entry := env.addEntry(t, nil)
	_, err := env.svc.CancelWaitlist(ctx, env.clinicID, entry.ID)
	require.NoError(t, err)

	stats, err := env.svc.GetWaitlistStats(ctx, env.clinicID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Active)
	assert.Equal(t, 1, stats.Cancelled)
	assert.Zero(t, stats.Offered)
}
