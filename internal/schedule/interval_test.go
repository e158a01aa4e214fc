package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("09:30")
	require.NoError(t, err)
	assert.Equal(t, Clock(9, 30), tod)
	assert.Equal(t, "09:30", tod.String())

	_, err = ParseTimeOfDay("25:00")
	assert.Error(t, err)

	_, err = ParseTimeOfDay("not-a-time")
	assert.Error(t, err)
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Interval
		want bool
	}{
		{
			name: "touching endpoints do not overlap",
			a:    Interval{Clock(10, 0), Clock(10, 30)},
			b:    Interval{Clock(10, 30), Clock(11, 0)},
			want: false,
		},
		{
			name: "partial overlap",
			a:    Interval{Clock(10, 0), Clock(10, 30)},
			b:    Interval{Clock(10, 15), Clock(10, 45)},
			want: true,
		},
		{
			name: "contained interval",
			a:    Interval{Clock(9, 0), Clock(17, 0)},
			b:    Interval{Clock(12, 0), Clock(12, 30)},
			want: true,
		},
		{
			name: "disjoint",
			a:    Interval{Clock(9, 0), Clock(9, 30)},
			b:    Interval{Clock(14, 0), Clock(14, 30)},
			want: false,
		},
		{
			name: "identical",
			a:    Interval{Clock(10, 0), Clock(11, 0)},
			b:    Interval{Clock(10, 0), Clock(11, 0)},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Overlaps(tt.b))
			assert.Equal(t, tt.want, tt.b.Overlaps(tt.a), "overlap must be symmetric")
		})
	}
}

func TestCandidateSlots(t *testing.T) {
	slots := CandidateSlots(Clock(9, 0), Clock(11, 0), 45, 30)
	require.Len(t, slots, 3)
	assert.Equal(t, Interval{Clock(9, 0), Clock(9, 45)}, slots[0])
	assert.Equal(t, Interval{Clock(9, 30), Clock(10, 15)}, slots[1])
	assert.Equal(t, Interval{Clock(10, 0), Clock(10, 45)}, slots[2])
}

func TestCandidateSlotsDurationLongerThanWindow(t *testing.T) {
	assert.Empty(t, CandidateSlots(Clock(9, 0), Clock(9, 30), 60, 30))
}

func TestCandidateSlotsExactFit(t *testing.T) {
	slots := CandidateSlots(Clock(9, 0), Clock(10, 0), 60, 30)
	require.Len(t, slots, 1)
	assert.Equal(t, Interval{Clock(9, 0), Clock(10, 0)}, slots[0])
}

func TestCandidateSlotsInvalidInputs(t *testing.T) {
	assert.Nil(t, CandidateSlots(Clock(9, 0), Clock(17, 0), 0, 30))
	assert.Nil(t, CandidateSlots(Clock(9, 0), Clock(17, 0), 30, 0))
}

func TestFilterFree(t *testing.T) {
	candidates := CandidateSlots(Clock(9, 0), Clock(12, 0), 30, 30)
	busy := []Interval{
		{Clock(10, 0), Clock(10, 30)},
	}

	free := FilterFree(candidates, busy)
	for _, f := range free {
		assert.NotEqual(t, Clock(10, 0), f.Start, "busy slot start must be excluded")
	}

	// 10:30 touches the busy window and stays bookable.
	starts := make([]TimeOfDay, 0, len(free))
	for _, f := range free {
		starts = append(starts, f.Start)
	}
	assert.Contains(t, starts, Clock(10, 30))
	assert.Contains(t, starts, Clock(9, 30))
	assert.NotContains(t, starts, Clock(10, 0))
}

func TestFilterFreeNoBusy(t *testing.T) {
	candidates := CandidateSlots(Clock(9, 0), Clock(10, 0), 30, 30)
	assert.Equal(t, candidates, FilterFree(candidates, nil))
}

func TestMicrosecondsRoundTrip(t *testing.T) {
	tod := Clock(13, 45)
	assert.Equal(t, tod, FromMicroseconds(tod.Microseconds()))
}
