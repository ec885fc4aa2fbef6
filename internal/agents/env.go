package agents

import (
	"github.com/talgya/stormfield/internal/economy"
	"github.com/talgya/stormfield/internal/world"
)

// Env is everything an agent may read or touch during one step. The
// simulation builds it once per tick and passes it to every agent in
// registration order.
type Env struct {
	Tick       uint64
	Grid       *world.Grid
	Roster     []*Agent // Registration order
	Ledger     *economy.Ledger
	Rendezvous *Rendezvous
	Storm      bool

	SightRadius    int // Goal-based perception radius (Chebyshev)
	PartnerTimeout int // Ticks a cooperative waits for a partner
}

// At returns the agents standing on p, in registration order.
func (e *Env) At(p world.Position) []*Agent {
	var out []*Agent
	for _, a := range e.Roster {
		if a.Pos == p {
			out = append(out, a)
		}
	}
	return out
}

// CrewAt counts the mobile agents standing on p.
func (e *Env) CrewAt(p world.Position) int {
	n := 0
	for _, a := range e.Roster {
		if a.Pos == p && a.Mobile() {
			n++
		}
	}
	return n
}

// Agent looks up a roster member by ID.
func (e *Env) Agent(id AgentID) *Agent {
	for _, a := range e.Roster {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func (e *Env) timeout() uint64 {
	if e.PartnerTimeout <= 0 {
		return DefaultPartnerTimeout
	}
	return uint64(e.PartnerTimeout)
}

// Defaults for Env fields left at zero.
const (
	DefaultSightRadius    = 2
	DefaultPartnerTimeout = 30
)

func (e *Env) sight() int {
	if e.SightRadius <= 0 {
		return DefaultSightRadius
	}
	return e.SightRadius
}
