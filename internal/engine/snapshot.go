package engine

import (
	"github.com/talgya/stormfield/internal/agents"
	"github.com/talgya/stormfield/internal/economy"
	"github.com/talgya/stormfield/internal/weather"
	"github.com/talgya/stormfield/internal/world"
)

// Snapshot is an immutable copy of the observable run state after a tick.
type Snapshot struct {
	RunID     string                            `json:"run_id,omitempty"`
	Tick      uint64                            `json:"tick"`
	Storm     weather.Conditions                `json:"storm"`
	Agents    []agents.AgentView                `json:"agents"`
	Remaining map[world.ResourceKind]int        `json:"remaining"`
	Ledger    map[agents.AgentID]economy.Totals `json:"ledger"`
	Delivered int                               `json:"delivered"`
	Requests  []agents.Request                  `json:"requests,omitempty"`
	Stats     SimStats                          `json:"stats"`
}

// ResourceView is a read-only copy of a resource.
type ResourceView struct {
	ID             uint64             `json:"id"`
	Kind           world.ResourceKind `json:"kind"`
	Pos            world.Position     `json:"position"`
	Value          int                `json:"value"`
	RequiredAgents int                `json:"required_agents"`
	Collected      bool               `json:"collected"`
}

// SimStats tracks aggregate run statistics.
type SimStats struct {
	Moves      int `json:"moves"`
	Claims     int `json:"claims"`
	Deliveries int `json:"deliveries"`
	Retreats   int `json:"retreats"`
	Storms     int `json:"storms"`
}

func (s *SimStats) count(kind agents.ActionKind) {
	switch kind {
	case agents.ActionMove:
		s.Moves++
	case agents.ActionClaim:
		s.Claims++
	case agents.ActionDeliver:
		s.Deliveries++
	case agents.ActionRetreat:
		s.Retreats++
	}
}
