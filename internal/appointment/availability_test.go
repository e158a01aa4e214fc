package appointment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicwave/clinic-scheduling/internal/clinic"
	"github.com/clinicwave/clinic-scheduling/internal/schedule"
)

func TestGetAvailabilityFullDay(t *testing.T) {
	env := newTestEnv(t)

	slots, err := env.svc.GetAvailability(context.Background(), env.clinicID, testDate(), env.staff, env.service)
	require.NoError(t, err)

	// 09:00 to 17:00, 30-minute service on a 30-minute grid: 16 slots.
	require.Len(t, slots, 16)
	assert.Equal(t, schedule.Clock(9, 0), slots[0].Start)
	assert.Equal(t, schedule.Clock(16, 30), slots[len(slots)-1].Start)
}

func TestGetAvailabilityExcludesBookedWindows(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.CreateAppointment(ctx, env.clinicID, uuid.New(), CreateInput{
		PatientID: env.patient, StaffID: env.staff, ServiceID: env.service,
		Date: testDate(), StartTime: schedule.Clock(10, 0),
	})
	require.NoError(t, err)

	slots, err := env.svc.GetAvailability(ctx, env.clinicID, testDate(), env.staff, env.service)
	require.NoError(t, err)

	for _, s := range slots {
		assert.NotEqual(t, schedule.Clock(10, 0), s.Start, "booked slot must not be offered")
	}
	// Touching slots on both sides stay free.
	starts := make(map[schedule.TimeOfDay]bool, len(slots))
	for _, s := range slots {
		starts[s.Start] = true
	}
	assert.True(t, starts[schedule.Clock(9, 30)])
	assert.True(t, starts[schedule.Clock(10, 30)])
}

func TestGetAvailabilityCancelledDoesNotBlock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	appt, err := env.svc.CreateAppointment(ctx, env.clinicID, uuid.New(), CreateInput{
		PatientID: env.patient, StaffID: env.staff, ServiceID: env.service,
		Date: testDate(), StartTime: schedule.Clock(10, 0),
	})
	require.NoError(t, err)
	_, err = env.svc.CancelAppointment(ctx, env.clinicID, appt.ID, StatusCancelledByClinic, false)
	require.NoError(t, err)

	slots, err := env.svc.GetAvailability(ctx, env.clinicID, testDate(), env.staff, env.service)
	require.NoError(t, err)
	require.Len(t, slots, 16)
}

func TestGetAvailabilityExcludesBlockedSlots(t *testing.T) {
	env := newTestEnv(t)
	env.clinics.blocked = []clinic.BlockedSlot{
		{StartTime: schedule.Clock(12, 0), EndTime: schedule.Clock(13, 0)},
	}

	slots, err := env.svc.GetAvailability(context.Background(), env.clinicID, testDate(), env.staff, env.service)
	require.NoError(t, err)

	for _, s := range slots {
		assert.False(t, s.Overlaps(schedule.Interval{Start: schedule.Clock(12, 0), End: schedule.Clock(13, 0)}),
			"slot %s overlaps the blocked window", s.Start)
	}
	require.Len(t, slots, 14)
}

func TestGetAvailabilityNonWorkingDay(t *testing.T) {
	env := newTestEnv(t)
	friday := time.Date(2026, 2, 6, 0, 0, 0, 0, time.UTC)
	env.clinics.hours[time.Friday].IsWorking = false

	slots, err := env.svc.GetAvailability(context.Background(), env.clinicID, friday, env.staff, env.service)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestGetAvailabilityMissingWorkingHours(t *testing.T) {
	env := newTestEnv(t)
	delete(env.clinics.hours, time.Monday)

	slots, err := env.svc.GetAvailability(context.Background(), env.clinicID, testDate(), env.staff, env.service)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestGetAvailabilityUnknownService(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.GetAvailability(context.Background(), env.clinicID, testDate(), env.staff, env.clinicID)
	assert.ErrorIs(t, err, clinic.ErrServiceNotFound)
}

func TestGetAvailabilityLongerServiceFewerSlots(t *testing.T) {
	env := newTestEnv(t)
	env.clinics.services[env.service].DurationMinutes = 60

	slots, err := env.svc.GetAvailability(context.Background(), env.clinicID, testDate(), env.staff, env.service)
	require.NoError(t, err)

	// 60-minute sessions on the 30-minute grid: last start is 16:00.
	require.Len(t, slots, 15)
	assert.Equal(t, schedule.Clock(16, 0), slots[len(slots)-1].Start)
}
