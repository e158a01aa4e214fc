package appointment

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicwave/clinic-scheduling/internal/clinic"
	"github.com/clinicwave/clinic-scheduling/internal/redisclient"
	"github.com/clinicwave/clinic-scheduling/internal/schedule"
)

// memRepo implements Repository in memory, enforcing the overlap invariant
// under a mutex the way the store's atomic check+insert primitive does.
type memRepo struct {
	mu    sync.Mutex
	appts map[uuid.UUID]*Appointment
}

func newMemRepo() *memRepo {
	return &memRepo{appts: make(map[uuid.UUID]*Appointment)}
}

func (r *memRepo) GetByID(ctx context.Context, clinicID, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appts[id]
	if !ok || a.ClinicID != clinicID {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *memRepo) ListForSchedule(ctx context.Context, clinicID, staffID uuid.UUID, date time.Time) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []Appointment
	for _, a := range r.appts {
		if a.ClinicID == clinicID && a.StaffID == staffID && a.Date.Equal(date) && a.Status.Busy() {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (r *memRepo) CreateIfFree(ctx context.Context, appt *Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.appts {
		if existing.ClinicID == appt.ClinicID &&
			existing.StaffID == appt.StaffID &&
			existing.Date.Equal(appt.Date) &&
			existing.Status.Busy() &&
			existing.Window().Overlaps(appt.Window()) {
			return nil, ErrSlotUnavailable
		}
	}
	cp := *appt
	cp.ID = uuid.New()
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	r.appts[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *memRepo) UpdateStatusFrom(ctx context.Context, clinicID, id uuid.UUID, allowed []Status, to Status) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appts[id]
	if !ok || a.ClinicID != clinicID {
		return nil, ErrAppointmentNotFound
	}
	permitted := false
	for _, s := range allowed {
		if a.Status == s {
			permitted = true
			break
		}
	}
	if !permitted {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	a.UpdatedAt = time.Now()
	cp := *a
	return &cp, nil
}

func (r *memRepo) List(ctx context.Context, clinicID uuid.UUID, f Filter) (*Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var data []Appointment
	for _, a := range r.appts {
		if a.ClinicID != clinicID {
			continue
		}
		if f.Status != nil && a.Status != *f.Status {
			continue
		}
		if f.PatientID != nil && a.PatientID != *f.PatientID {
			continue
		}
		if f.StaffID != nil && a.StaffID != *f.StaffID {
			continue
		}
		data = append(data, *a)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	return &Page{
		Data: data,
		Pagination: Pagination{
			Page:       1,
			Limit:      limit,
			Total:      len(data),
			TotalPages: (len(data) + limit - 1) / limit,
		},
	}, nil
}

func (r *memRepo) CountByStatus(ctx context.Context, clinicID uuid.UUID, from, to *time.Time) (map[Status]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[Status]int)
	for _, a := range r.appts {
		if a.ClinicID == clinicID {
			counts[a.Status]++
		}
	}
	return counts, nil
}

func (r *memRepo) FindReminderDue(ctx context.Context, kind ReminderKind, windowStart, windowEnd time.Time) ([]ReminderCandidate, error) {
	return nil, nil
}

func (r *memRepo) MarkReminderSent(ctx context.Context, appointmentID uuid.UUID, kind ReminderKind) error {
	return nil
}

// memClinics supplies patients/services/hours for service tests.
type memClinics struct {
	patients map[uuid.UUID]*clinic.Patient
	services map[uuid.UUID]*clinic.Service
	hours    map[time.Weekday]*clinic.WorkingHours
	blocked  []clinic.BlockedSlot
}

func newMemClinics() *memClinics {
	return &memClinics{
		patients: make(map[uuid.UUID]*clinic.Patient),
		services: make(map[uuid.UUID]*clinic.Service),
		hours:    make(map[time.Weekday]*clinic.WorkingHours),
	}
}

func (c *memClinics) GetPatientByID(ctx context.Context, clinicID, id uuid.UUID) (*clinic.Patient, error) {
	p, ok := c.patients[id]
	if !ok || p.ClinicID != clinicID {
		return nil, clinic.ErrPatientNotFound
	}
	return p, nil
}

func (c *memClinics) GetServiceByID(ctx context.Context, clinicID, id uuid.UUID) (*clinic.Service, error) {
	s, ok := c.services[id]
	if !ok || s.ClinicID != clinicID {
		return nil, clinic.ErrServiceNotFound
	}
	return s, nil
}

func (c *memClinics) GetWorkingHours(ctx context.Context, clinicID, staffID uuid.UUID, day time.Weekday) (*clinic.WorkingHours, error) {
	wh, ok := c.hours[day]
	if !ok {
		return nil, clinic.ErrWorkingHoursNotFound
	}
	return wh, nil
}

func (c *memClinics) ListBlockedSlots(ctx context.Context, clinicID, staffID uuid.UUID, date time.Time) ([]clinic.BlockedSlot, error) {
	return c.blocked, nil
}

// nopLocker runs the critical section directly; conflict safety in these
// tests comes from the repository's atomic primitive.
type nopLocker struct{}

func (nopLocker) WithScheduleLock(ctx context.Context, clinicID, staffID uuid.UUID, date time.Time, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// downLocker mimics an unreachable Redis: every acquire fails with a
// transport error rather than contention.
type downLocker struct{}

func (downLocker) WithScheduleLock(ctx context.Context, clinicID, staffID uuid.UUID, date time.Time, fn func(ctx context.Context) error) error {
	return fmt.Errorf("%w: dial tcp: connection refused", redisclient.ErrLockUnavailable)
}

type recordingNotifier struct {
	mu            sync.Mutex
	confirmations int
}

func (n *recordingNotifier) SendBookingConfirmation(ctx context.Context, phone, patientName string, appt *Appointment) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmations++
	return nil
}

type testEnv struct {
	svc      *Service
	repo     *memRepo
	clinics  *memClinics
	notifier *recordingNotifier
	clinicID uuid.UUID
	patient  uuid.UUID
	staff    uuid.UUID
	service  uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clinicID := uuid.New()
	patientID := uuid.New()
	staffID := uuid.New()
	serviceID := uuid.New()

	clinics := newMemClinics()
	clinics.patients[patientID] = &clinic.Patient{
		ID: patientID, ClinicID: clinicID, FullName: "Sara Ali", Phone: "+966500000001",
	}
	clinics.services[serviceID] = &clinic.Service{
		ID: serviceID, ClinicID: clinicID, NameAr: "ليزر", DurationMinutes: 30,
	}
	openT := schedule.Clock(9, 0)
	closeT := schedule.Clock(17, 0)
	for d := time.Sunday; d <= time.Saturday; d++ {
		clinics.hours[d] = &clinic.WorkingHours{
			ClinicID: clinicID, StaffID: staffID, DayOfWeek: d,
			IsWorking: true, OpenTime: &openT, CloseTime: &closeT,
		}
	}

	repo := newMemRepo()
	notifier := &recordingNotifier{}
	svc := NewService(repo, clinics, nopLocker{}, notifier, nil, nil)

	return &testEnv{
		svc: svc, repo: repo, clinics: clinics, notifier: notifier,
		clinicID: clinicID, patient: patientID, staff: staffID, service: serviceID,
	}
}

func testDate() time.Time {
	return time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
}

func TestCreateAppointment(t *testing.T) {
	env := newTestEnv(t)

	appt, err := env.svc.CreateAppointment(context.Background(), env.clinicID, uuid.New(), CreateInput{
		PatientID: env.patient,
		StaffID:   env.staff,
		ServiceID: env.service,
		Date:      testDate(),
		StartTime: schedule.Clock(10, 0),
	})
	require.NoError(t, err)

	assert.Equal(t, StatusConfirmed, appt.Status)
	assert.Equal(t, TypeSingle, appt.Type)
	assert.Equal(t, SourceDirect, appt.Source)
	assert.Equal(t, schedule.Clock(10, 30), appt.EndTime, "end time derives from service duration")
	assert.Equal(t, 1, env.notifier.confirmations)
}

func TestCreateAppointmentPatientNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.CreateAppointment(context.Background(), env.clinicID, uuid.New(), CreateInput{
		PatientID: uuid.New(),
		StaffID:   env.staff,
		ServiceID: env.service,
		Date:      testDate(),
		StartTime: schedule.Clock(10, 0),
	})
	assert.ErrorIs(t, err, clinic.ErrPatientNotFound)
}

func TestCreateAppointmentOverlapRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.CreateAppointment(ctx, env.clinicID, uuid.New(), CreateInput{
		PatientID: env.patient, StaffID: env.staff, ServiceID: env.service,
		Date: testDate(), StartTime: schedule.Clock(10, 0),
	})
	require.NoError(t, err)

	// 10:15 overlaps [10:00, 10:30).
	_, err = env.svc.CreateAppointment(ctx, env.clinicID, uuid.New(), CreateInput{
		PatientID: env.patient, StaffID: env.staff, ServiceID: env.service,
		Date: testDate(), StartTime: schedule.Clock(10, 15),
	})
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	// 10:30 touches but does not overlap.
	_, err = env.svc.CreateAppointment(ctx, env.clinicID, uuid.New(), CreateInput{
		PatientID: env.patient, StaffID: env.staff, ServiceID: env.service,
		Date: testDate(), StartTime: schedule.Clock(10, 30),
	})
	assert.NoError(t, err)
}

func TestCreateAppointmentBooksWhenLockUnavailable(t *testing.T) {
	env := newTestEnv(t)
	svc := NewService(env.repo, env.clinics, downLocker{}, env.notifier, nil, nil)
	ctx := context.Background()

	appt, err := svc.CreateAppointment(ctx, env.clinicID, uuid.New(), CreateInput{
		PatientID: env.patient, StaffID: env.staff, ServiceID: env.service,
		Date: testDate(), StartTime: schedule.Clock(10, 0),
	})
	require.NoError(t, err, "lock transport failure falls back to the store's atomic check")
	assert.Equal(t, StatusConfirmed, appt.Status)

	// The fallback path still rejects overlaps.
	_, err = svc.CreateAppointment(ctx, env.clinicID, uuid.New(), CreateInput{
		PatientID: env.patient, StaffID: env.staff, ServiceID: env.service,
		Date: testDate(), StartTime: schedule.Clock(10, 15),
	})
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestConcurrentBookingsSameWindowOneWins(t *testing.T) {
	env := newTestEnv(t)

	const workers = 16
	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.CreateAppointment(context.Background(), env.clinicID, uuid.New(), CreateInput{
				PatientID: env.patient, StaffID: env.staff, ServiceID: env.service,
				Date: testDate(), StartTime: schedule.Clock(11, 0),
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successes := 0
	conflicts := 0
	for err := range results {
		switch {
		case err == nil:
			successes++
		case assert.ErrorIs(t, err, ErrSlotUnavailable):
			conflicts++
		}
	}
	assert.Equal(t, 1, successes, "exactly one overlapping booking may succeed")
	assert.Equal(t, workers-1, conflicts)
}

func TestCancelAppointment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	appt, err := env.svc.CreateAppointment(ctx, env.clinicID, uuid.New(), CreateInput{
		PatientID: env.patient, StaffID: env.staff, ServiceID: env.service,
		Date: testDate(), StartTime: schedule.Clock(10, 0),
	})
	require.NoError(t, err)

	cancelled, err := env.svc.CancelAppointment(ctx, env.clinicID, appt.ID, StatusCancelledByPatient, false)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelledByPatient, cancelled.Status)

	// Re-cancelling a terminal appointment fails regardless of reason.
	_, err = env.svc.CancelAppointment(ctx, env.clinicID, appt.ID, StatusCancelledByClinic, false)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestCancelAppointmentInvalidReason(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.CancelAppointment(context.Background(), env.clinicID, uuid.New(), StatusCompleted, false)
	assert.ErrorIs(t, err, ErrInvalidCancelReason)
}

func TestCancelFreesSlotForRebooking(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	appt, err := env.svc.CreateAppointment(ctx, env.clinicID, uuid.New(), CreateInput{
		PatientID: env.patient, StaffID: env.staff, ServiceID: env.service,
		Date: testDate(), StartTime: schedule.Clock(10, 0),
	})
	require.NoError(t, err)

	_, err = env.svc.CancelAppointment(ctx, env.clinicID, appt.ID, StatusCancelledByClinic, false)
	require.NoError(t, err)

	_, err = env.svc.CreateAppointment(ctx, env.clinicID, uuid.New(), CreateInput{
		PatientID: env.patient, StaffID: env.staff, ServiceID: env.service,
		Date: testDate(), StartTime: schedule.Clock(10, 0),
	})
	assert.NoError(t, err, "cancelled appointments no longer block the slot")
}

type recordingFiller struct {
	calls int
	freed *Appointment
}

func (f *recordingFiller) FindAndFillSlot(ctx context.Context, clinicID uuid.UUID, freed *Appointment) (bool, error) {
	f.calls++
	f.freed = freed
	return true, nil
}

func TestCancelByPatientTriggersWaitlist(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	filler := &recordingFiller{}
	env.svc.SetWaitlistFiller(filler)

	appt, err := env.svc.CreateAppointment(ctx, env.clinicID, uuid.New(), CreateInput{
		PatientID: env.patient, StaffID: env.staff, ServiceID: env.service,
		Date: testDate(), StartTime: schedule.Clock(10, 0),
	})
	require.NoError(t, err)

	_, err = env.svc.CancelAppointment(ctx, env.clinicID, appt.ID, StatusCancelledByPatient, true)
	require.NoError(t, err)
	assert.Equal(t, 1, filler.calls)
	require.NotNil(t, filler.freed)
	assert.Equal(t, appt.ID, filler.freed.ID)
}

func TestCancelByClinicDoesNotTriggerWaitlist(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	filler := &recordingFiller{}
	env.svc.SetWaitlistFiller(filler)

	appt, err := env.svc.CreateAppointment(ctx, env.clinicID, uuid.New(), CreateInput{
		PatientID: env.patient, StaffID: env.staff, ServiceID: env.service,
		Date: testDate(), StartTime: schedule.Clock(10, 0),
	})
	require.NoError(t, err)

	_, err = env.svc.CancelAppointment(ctx, env.clinicID, appt.ID, StatusCancelledByClinic, true)
	require.NoError(t, err)
	assert.Zero(t, filler.calls)
}

func TestUpdateStatusTransitionTable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	appt, err := env.svc.CreateAppointment(ctx, env.clinicID, uuid.New(), CreateInput{
		PatientID: env.patient, StaffID: env.staff, ServiceID: env.service,
		Date: testDate(), StartTime: schedule.Clock(10, 0),
	})
	require.NoError(t, err)

	updated, err := env.svc.UpdateStatus(ctx, env.clinicID, appt.ID, StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, updated.Status)

	// completed is terminal; no further transitions.
	_, err = env.svc.UpdateStatus(ctx, env.clinicID, appt.ID, StatusConfirmed)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestGetAppointmentClinicIsolation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	appt, err := env.svc.CreateAppointment(ctx, env.clinicID, uuid.New(), CreateInput{
		PatientID: env.patient, StaffID: env.staff, ServiceID: env.service,
		Date: testDate(), StartTime: schedule.Clock(10, 0),
	})
	require.NoError(t, err)

	_, err = env.svc.GetAppointment(ctx, uuid.New(), appt.ID)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}
