package schedule

// Interval is a half-open time window [Start, End) within one day.
type Interval struct {
	Start TimeOfDay
	End   TimeOfDay
}

// Overlaps reports whether two half-open intervals intersect.
// Touching endpoints (a.End == b.Start) do not overlap.
func (a Interval) Overlaps(b Interval) bool {
	return a.Start < b.End && b.Start < a.End
}

// Contains reports whether the whole of b falls inside a.
func (a Interval) Contains(b Interval) bool {
	return a.Start <= b.Start && b.End <= a.End
}

// DefaultSlotStep is the grid appointments are offered on, in minutes.
const DefaultSlotStep = 30

// CandidateSlots generates every duration-length window starting at step
// increments from windowStart such that the slot still ends on or before
// windowEnd. The result is chronological. A duration longer than the window
// yields nil.
func CandidateSlots(windowStart, windowEnd TimeOfDay, durationMinutes, stepMinutes int) []Interval {
	if durationMinutes <= 0 || stepMinutes <= 0 {
		return nil
	}

	var slots []Interval
	for start := windowStart; start.Add(durationMinutes) <= windowEnd; start = start.Add(stepMinutes) {
		slots = append(slots, Interval{Start: start, End: start.Add(durationMinutes)})
	}
	return slots
}

// FilterFree drops every candidate that overlaps any busy interval.
// Candidates are evaluated independently; a partially overlapping busy
// period does not shift later candidates.
func FilterFree(candidates []Interval, busy []Interval) []Interval {
	free := make([]Interval, 0, len(candidates))
	for _, c := range candidates {
		conflict := false
		for _, b := range busy {
			if c.Overlaps(b) {
				conflict = true
				break
			}
		}
		if !conflict {
			free = append(free, c)
		}
	}
	return free
}
