// Simulation ties together the grid, the team, the ledger and the storm, and
// advances them one tick at a time.
package engine

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/talgya/stormfield/internal/agents"
	"github.com/talgya/stormfield/internal/economy"
	"github.com/talgya/stormfield/internal/weather"
	"github.com/talgya/stormfield/internal/world"
)

// MaxEvents bounds the in-memory event log.
const MaxEvents = 1000

// Event is a notable occurrence in the run.
type Event struct {
	Tick        uint64 `json:"tick"`
	Description string `json:"description"`
	Category    string `json:"category"` // "claim", "delivery", "storm", "agent"
}

// Options tune agent behavior for a run.
type Options struct {
	RunID          string
	SightRadius    int
	PartnerTimeout int
}

// Simulation is the context object for one run. It is created at start,
// owns all run state, and hands each agent an Env every tick. Step runs on a
// single goroutine; the read methods may be called concurrently with it.
type Simulation struct {
	mu sync.RWMutex

	RunID      string
	Grid       *world.Grid
	Agents     []*agents.Agent // Registration order
	AgentIndex map[agents.AgentID]*agents.Agent
	Ledger     *economy.Ledger
	Storm      *weather.Storm
	Rendezvous *agents.Rendezvous
	Events     []Event
	LastTick   uint64
	Stats      SimStats

	opts  Options
	sinks []Sink
}

// NewSimulation creates a Simulation over a generated grid and a spawned team.
func NewSimulation(g *world.Grid, team []*agents.Agent, storm *weather.Storm, opts Options) *Simulation {
	index := make(map[agents.AgentID]*agents.Agent, len(team))
	for _, a := range team {
		index[a.ID] = a
	}
	if storm == nil {
		storm = weather.NewStorm(0, 0)
	}
	return &Simulation{
		RunID:      opts.RunID,
		Grid:       g,
		Agents:     team,
		AgentIndex: index,
		Ledger:     economy.NewLedger(),
		Storm:      storm,
		Rendezvous: agents.NewRendezvous(),
		opts:       opts,
	}
}

// AddSink registers a sink to receive a snapshot after every tick.
func (s *Simulation) AddSink(sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks = append(s.sinks, sink)
}

// CurrentTick returns the most recently processed tick number.
func (s *Simulation) CurrentTick() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.LastTick
}

// Step advances the run by one tick: the storm controller first, then every
// agent in registration order. The resulting snapshot goes to every sink.
func (s *Simulation) Step() Snapshot {
	s.mu.Lock()
	s.LastTick++
	tick := s.LastTick

	switch s.Storm.Advance() {
	case weather.StormBegan:
		s.setStorm(tick, true)
	case weather.StormEnded:
		s.setStorm(tick, false)
	}

	env := &agents.Env{
		Tick:           tick,
		Grid:           s.Grid,
		Roster:         s.Agents,
		Ledger:         s.Ledger,
		Rendezvous:     s.Rendezvous,
		Storm:          s.Storm.Active(),
		SightRadius:    s.opts.SightRadius,
		PartnerTimeout: s.opts.PartnerTimeout,
	}
	for _, a := range s.Agents {
		act := a.Step(env)
		s.Stats.count(act.Kind)
		if act.Detail == "" {
			continue
		}
		s.addEvent(tick, act.Detail, category(act.Kind))
		slog.Debug("agent action", "tick", tick, "agent", a.Name, "action", act.Kind.String(), "detail", act.Detail)
	}

	snap := s.snapshotLocked()
	sinks := s.sinks
	s.mu.Unlock()

	for _, sink := range sinks {
		if err := sink.Publish(snap); err != nil {
			slog.Warn("sink publish failed", "tick", tick, "error", err)
		}
	}
	return snap
}

// setStorm flips every agent's storm flag. Agents never clear it themselves.
func (s *Simulation) setStorm(tick uint64, active bool) {
	for _, a := range s.Agents {
		a.InStorm = active
	}
	if active {
		s.Stats.Storms++
		s.addEvent(tick, "a storm sweeps the field; everyone heads for base", "storm")
		slog.Info("storm began", "tick", tick, "duration", s.Storm.StormTicks)
		return
	}
	s.addEvent(tick, "the storm passes", "storm")
	slog.Info("storm ended", "tick", tick)
}

// SetStorm forces the storm on or off from outside the tick loop. The change
// takes effect before the next agent acts.
func (s *Simulation) SetStorm(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.Storm.Force(active) {
	case weather.StormBegan:
		s.setStorm(s.LastTick, true)
	case weather.StormEnded:
		s.setStorm(s.LastTick, false)
	}
}

func category(kind agents.ActionKind) string {
	switch kind {
	case agents.ActionClaim:
		return "claim"
	case agents.ActionDeliver:
		return "delivery"
	default:
		return "agent"
	}
}

func (s *Simulation) addEvent(tick uint64, desc, cat string) {
	s.Events = append(s.Events, Event{Tick: tick, Description: desc, Category: cat})
	// Trim old events to prevent unbounded growth.
	if len(s.Events) > MaxEvents {
		s.Events = s.Events[len(s.Events)-MaxEvents:]
	}
}

// StormActive reports whether a storm is in progress.
func (s *Simulation) StormActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Storm.Active()
}

// DeliveredTotal returns the value agent id has delivered so far.
func (s *Simulation) DeliveredTotal(id agents.AgentID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Ledger.DeliveredTotal(uint64(id))
}

// DeliveredByKind returns how many resources of each kind agent id delivered.
func (s *Simulation) DeliveredByKind(id agents.AgentID) map[world.ResourceKind]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Ledger.DeliveredByKind(uint64(id))
}

// Deliveries returns every registered delivery in order.
func (s *Simulation) Deliveries() []economy.Delivery {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Ledger.Deliveries()
}

// Finished reports whether every resource has been collected and delivered.
func (s *Simulation) Finished() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Ledger.Len() == len(s.Grid.Resources)
}

// Snapshot returns a copy of the current observable state.
func (s *Simulation) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Simulation) snapshotLocked() Snapshot {
	views := make([]agents.AgentView, len(s.Agents))
	ledger := make(map[agents.AgentID]economy.Totals, len(s.Agents))
	for i, a := range s.Agents {
		views[i] = a.View()
		ledger[a.ID] = s.Ledger.Totals(uint64(a.ID))
	}
	return Snapshot{
		RunID:     s.RunID,
		Tick:      s.LastTick,
		Storm:     s.Storm.Conditions(),
		Agents:    views,
		Remaining: s.Grid.Remaining(),
		Ledger:    ledger,
		Delivered: s.Ledger.GrandTotal(),
		Requests:  s.Rendezvous.Requests(),
		Stats:     s.Stats,
	}
}

// Agent returns a detailed copy of one agent.
func (s *Simulation) Agent(id agents.AgentID) (AgentDetail, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.AgentIndex[id]
	if !ok {
		return AgentDetail{}, false
	}
	var explored int
	if v, ok := a.Policy().(interface{ Visited() int }); ok {
		explored = v.Visited()
	}
	return AgentDetail{
		AgentView: a.View(),
		Explored:  explored,
		Beliefs:   a.Beliefs.Entries(),
		Plan:      append([]world.Position(nil), a.Plan...),
		Delivered: s.Ledger.Totals(uint64(id)),
		Memories:  agents.RecentMemories(a, 20),
	}, true
}

// AgentDetail extends AgentView with the agent's beliefs, plan and journal.
type AgentDetail struct {
	agents.AgentView
	Beliefs   []agents.Belief  `json:"belief_entries"`
	Plan      []world.Position `json:"plan"`
	Delivered economy.Totals   `json:"delivered"`
	Memories  []agents.Memory  `json:"memories,omitempty"`
	Explored  int              `json:"explored,omitempty"` // distinct cells visited, state-based only
}

// Resources returns every resource in generation order.
func (s *Simulation) Resources() []ResourceView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ResourceView, len(s.Grid.Resources))
	for i, r := range s.Grid.Resources {
		out[i] = ResourceView{
			ID:             r.ID,
			Kind:           r.Kind,
			Pos:            r.Pos,
			Value:          r.Value,
			RequiredAgents: r.RequiredAgents,
			Collected:      r.Collected(),
		}
	}
	return out
}

// RecentEvents returns up to n of the latest events, oldest first.
func (s *Simulation) RecentEvents(n int) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n <= 0 || n > len(s.Events) {
		n = len(s.Events)
	}
	out := make([]Event, n)
	copy(out, s.Events[len(s.Events)-n:])
	return out
}

// Report logs a periodic summary of the run.
func (s *Simulation) Report(tick uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	remaining := s.Grid.Remaining()
	slog.Info("run report",
		"tick", tick,
		"storm", s.Storm.Phase().String(),
		"delivered", s.Ledger.GrandTotal(),
		"deliveries", s.Ledger.Len(),
		"contributors", len(s.Ledger.Agents()),
		"crystal_left", remaining[world.KindCrystal],
		"metal_left", remaining[world.KindMetal],
		"structure_left", remaining[world.KindStructure],
		"claims", s.Stats.Claims,
		"storms", s.Stats.Storms,
	)
}

// Close flushes and closes every sink.
func (s *Simulation) Close() error {
	s.mu.Lock()
	sinks := s.sinks
	s.sinks = nil
	s.mu.Unlock()

	var firstErr error
	for _, sink := range sinks {
		if err := sink.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close sink: %w", err)
		}
	}
	return firstErr
}
