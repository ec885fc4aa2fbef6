// Package weather drives the periodic storms that force every agent home.
// The controller is a two-state oscillator and knows nothing about agents.
package weather

import "fmt"

// Phase is the current storm state.
type Phase uint8

const (
	PhaseCalm Phase = iota
	PhaseStorm
)

func (p Phase) String() string {
	switch p {
	case PhaseCalm:
		return "calm"
	case PhaseStorm:
		return "storm"
	default:
		return fmt.Sprintf("phase(%d)", uint8(p))
	}
}

// Transition reports what a call to Advance or Force changed.
type Transition uint8

const (
	NoChange Transition = iota
	StormBegan
	StormEnded
)

// Default durations in ticks: a storm every 50 ticks lasting 10.
const (
	DefaultCalmTicks  = 50
	DefaultStormTicks = 10
)

// Storm alternates between CALM and STORM phases of fixed length.
// A non-positive duration disables the automatic cycle; the phase then only
// changes through Force.
type Storm struct {
	CalmTicks  int
	StormTicks int

	phase     Phase
	remaining int
	storms    int // storms started so far
}

// NewStorm creates a controller starting in the calm phase.
func NewStorm(calmTicks, stormTicks int) *Storm {
	s := &Storm{CalmTicks: calmTicks, StormTicks: stormTicks}
	s.remaining = s.duration(PhaseCalm)
	return s
}

// Enabled reports whether the automatic cycle runs.
func (s *Storm) Enabled() bool {
	return s.CalmTicks > 0 && s.StormTicks > 0
}

func (s *Storm) duration(p Phase) int {
	if p == PhaseStorm {
		return s.StormTicks
	}
	return s.CalmTicks
}

// Advance moves the oscillator forward one tick. It is called once per tick,
// before any agent acts. A transition tick is the first tick of the new
// phase, so every phase lasts exactly its configured length.
func (s *Storm) Advance() Transition {
	if !s.Enabled() {
		return NoChange
	}
	tr := NoChange
	if s.remaining <= 0 {
		if s.phase == PhaseCalm {
			tr = s.set(PhaseStorm)
		} else {
			tr = s.set(PhaseCalm)
		}
	}
	s.remaining--
	return tr
}

// Force switches the phase immediately and restarts its countdown. The
// forced phase then runs for its full length from the next Advance.
func (s *Storm) Force(active bool) Transition {
	want := PhaseCalm
	if active {
		want = PhaseStorm
	}
	if s.phase == want {
		return NoChange
	}
	return s.set(want)
}

func (s *Storm) set(p Phase) Transition {
	s.phase = p
	s.remaining = s.duration(p)
	if p == PhaseStorm {
		s.storms++
		return StormBegan
	}
	return StormEnded
}

// Active reports whether a storm is in progress.
func (s *Storm) Active() bool {
	return s.phase == PhaseStorm
}

// Phase returns the current phase.
func (s *Storm) Phase() Phase {
	return s.phase
}

// Remaining returns the ticks left in the current phase after the current
// one (0 when the cycle is disabled).
func (s *Storm) Remaining() int {
	if !s.Enabled() {
		return 0
	}
	return s.remaining
}

// Conditions is a read-only view of the controller for observers.
type Conditions struct {
	Phase     string `json:"phase"`
	Active    bool   `json:"active"`
	Remaining int    `json:"remaining"`
	Storms    int    `json:"storms"`
}

// Conditions snapshots the controller.
func (s *Storm) Conditions() Conditions {
	return Conditions{
		Phase:     s.phase.String(),
		Active:    s.Active(),
		Remaining: s.Remaining(),
		Storms:    s.storms,
	}
}
