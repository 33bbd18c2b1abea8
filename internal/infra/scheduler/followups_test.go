package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hour, minute int) time.Time {
	return time.Date(2100, 3, 15, hour, minute, 0, 0, time.UTC)
}

func TestPlanFollowupTimes(t *testing.T) {
	tests := []struct {
		name string
		base time.Time
		want []time.Time
	}{
		{
			name: "mid-morning delivery keeps both offsets",
			base: at(9, 0),
			want: []time.Time{at(11, 0), at(16, 0)},
		},
		{
			name: "midday delivery keeps both offsets",
			base: at(12, 0),
			want: []time.Time{at(14, 0), at(19, 0)},
		},
		{
			name: "first candidate raised to window start",
			base: at(8, 30),
			want: []time.Time{at(11, 0), at(15, 30)},
		},
		{
			name: "early delivery collapses both candidates onto window start",
			base: at(1, 0),
			want: []time.Time{at(11, 0)},
		},
		{
			name: "candidate exactly at window end survives",
			base: at(21, 0),
			want: []time.Time{at(23, 0)},
		},
		{
			name: "late delivery drops both candidates",
			base: at(22, 0),
			want: nil,
		},
		{
			name: "delivery after window end schedules nothing",
			base: at(23, 30),
			want: nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := planFollowupTimes(tc.base)
			require.Len(t, got, len(tc.want))
			for i := range tc.want {
				assert.True(t, got[i].Equal(tc.want[i]),
					"slot %d: got %s, want %s", i+1, got[i], tc.want[i])
			}
		})
	}
}

func TestPlanFollowupTimesKeepsMinimumGap(t *testing.T) {
	for _, times := range [][]time.Time{
		planFollowupTimes(at(1, 0)),
		planFollowupTimes(at(9, 0)),
		planFollowupTimes(at(12, 0)),
	} {
		for i := 1; i < len(times); i++ {
			assert.GreaterOrEqual(t, times[i].Sub(times[i-1]), minFollowupGap)
		}
	}
}
