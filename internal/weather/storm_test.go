package weather

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorm_Cycle(t *testing.T) {
	s := NewStorm(50, 10)
	assert.False(t, s.Active())

	for tick := 1; tick <= 50; tick++ {
		assert.Equal(t, NoChange, s.Advance(), "tick %d", tick)
		assert.False(t, s.Active(), "tick %d", tick)
	}
	assert.Equal(t, StormBegan, s.Advance(), "tick 51")
	assert.True(t, s.Active())
	assert.Equal(t, 9, s.Remaining())

	for tick := 52; tick <= 60; tick++ {
		assert.Equal(t, NoChange, s.Advance(), "tick %d", tick)
		assert.True(t, s.Active())
	}
	assert.Equal(t, StormEnded, s.Advance(), "tick 61")
	assert.False(t, s.Active())
	assert.Equal(t, 49, s.Remaining())
	assert.Equal(t, 1, s.Conditions().Storms)
}

// phaseLengths advances the controller and returns the length of each
// completed phase in order, starting with the initial calm phase.
func phaseLengths(s *Storm, ticks int) []int {
	var lengths []int
	run := 0
	for i := 0; i < ticks; i++ {
		if s.Advance() != NoChange {
			lengths = append(lengths, run)
			run = 0
		}
		run++
	}
	return lengths
}

func TestStorm_EveryPhaseHasConfiguredLength(t *testing.T) {
	for _, tc := range []struct{ calm, storm int }{{5, 3}, {1, 1}, {50, 10}, {2, 7}} {
		lengths := phaseLengths(NewStorm(tc.calm, tc.storm), 4*(tc.calm+tc.storm)+1)
		require.GreaterOrEqual(t, len(lengths), 4)
		for i, n := range lengths {
			want := tc.calm
			if i%2 == 1 {
				want = tc.storm
			}
			assert.Equal(t, want, n, "calm=%d storm=%d phase %d", tc.calm, tc.storm, i)
		}
	}
}

func TestStorm_Disabled(t *testing.T) {
	s := NewStorm(0, 10)
	for i := 0; i < 200; i++ {
		assert.Equal(t, NoChange, s.Advance())
	}
	assert.False(t, s.Active())
	assert.Zero(t, s.Remaining())

	assert.Equal(t, StormBegan, s.Force(true))
	for i := 0; i < 200; i++ {
		s.Advance()
	}
	assert.True(t, s.Active(), "forced storm persists while the cycle is off")
	assert.Equal(t, StormEnded, s.Force(false))
}

func TestStorm_ForceRestartsCountdown(t *testing.T) {
	s := NewStorm(5, 3)
	s.Advance()
	s.Advance()

	assert.Equal(t, StormBegan, s.Force(true))
	assert.Equal(t, NoChange, s.Force(true))
	assert.Equal(t, 3, s.Remaining())

	for i := 0; i < 3; i++ {
		assert.Equal(t, NoChange, s.Advance(), "forced storm tick %d", i+1)
		assert.True(t, s.Active())
	}
	assert.Equal(t, StormEnded, s.Advance())
	assert.Equal(t, Conditions{Phase: "calm", Active: false, Remaining: 4, Storms: 1}, s.Conditions())
}
