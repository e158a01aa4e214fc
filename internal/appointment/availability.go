package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicwave/clinic-scheduling/internal/clinic"
	"github.com/clinicwave/clinic-scheduling/internal/schedule"
)

// GetAvailability computes the ordered free slots for one staff member,
// service, and date. A non-working day (or missing working hours) yields an
// empty result, not an error; a missing service is an error.
//
// Candidates sit on a fixed 30-minute grid across the working-hours window,
// each of the service's duration, and any candidate overlapping a busy
// appointment or blocked slot is discarded. Candidates are evaluated
// independently; busy periods do not shift later candidate start times.
func (s *Service) GetAvailability(ctx context.Context, clinicID uuid.UUID, date time.Time, staffID, serviceID uuid.UUID) ([]schedule.Interval, error) {
	started := time.Now()
	defer func() {
		s.metrics.ObserveAvailabilityLatency(time.Since(started).Seconds())
	}()

	svc, err := s.clinics.GetServiceByID(ctx, clinicID, serviceID)
	if err != nil {
		if errors.Is(err, clinic.ErrServiceNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load service: %w", err)
	}

	hours, err := s.clinics.GetWorkingHours(ctx, clinicID, staffID, date.Weekday())
	if err != nil {
		if errors.Is(err, clinic.ErrWorkingHoursNotFound) {
			return []schedule.Interval{}, nil
		}
		return nil, fmt.Errorf("load working hours: %w", err)
	}
	if !hours.IsWorking || hours.OpenTime == nil || hours.CloseTime == nil {
		return []schedule.Interval{}, nil
	}

	booked, err := s.repo.ListForSchedule(ctx, clinicID, staffID, date)
	if err != nil {
		return nil, fmt.Errorf("load booked appointments: %w", err)
	}

	blocked, err := s.clinics.ListBlockedSlots(ctx, clinicID, staffID, date)
	if err != nil {
		return nil, fmt.Errorf("load blocked slots: %w", err)
	}

	busy := make([]schedule.Interval, 0, len(booked)+len(blocked))
	for _, a := range booked {
		busy = append(busy, a.Window())
	}
	for _, b := range blocked {
		busy = append(busy, schedule.Interval{Start: b.StartTime, End: b.EndTime})
	}

	candidates := schedule.CandidateSlots(*hours.OpenTime, *hours.CloseTime, svc.DurationMinutes, schedule.DefaultSlotStep)
	return schedule.FilterFree(candidates, busy), nil
}
