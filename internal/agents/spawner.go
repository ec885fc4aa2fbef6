// Agent spawning: builds the team at base with one policy per variant.
package agents

import (
	"fmt"
	"math/rand"

	"github.com/talgya/stormfield/internal/world"
)

// variantColors are the identity tags renderers draw each variant with.
var variantColors = map[Variant]string{
	VariantReactive:    "#85fc52",
	VariantStateBased:  "#fe331d",
	VariantGoalBased:   "#55f9f4",
	VariantCooperative: "#331ef7",
	VariantBDI:         "#f91c5e",
}

// Spawner creates agents for the simulation.
type Spawner struct {
	seed   int64
	nextID AgentID
	counts map[Variant]int
}

// NewSpawner creates an agent spawner. Each agent gets its own random stream
// derived from seed and its ID, so runs with the same seed and team replay
// exactly.
func NewSpawner(seed int64) *Spawner {
	return &Spawner{
		seed:   seed,
		nextID: 1,
		counts: make(map[Variant]int),
	}
}

// SpawnTeam creates agents for each variant in order, all standing on home.
func (s *Spawner) SpawnTeam(variants []Variant, home world.Position) []*Agent {
	team := make([]*Agent, 0, len(variants))
	for _, v := range variants {
		team = append(team, s.Spawn(v, home))
	}
	return team
}

// Spawn creates a single agent of variant v at home.
func (s *Spawner) Spawn(v Variant, home world.Position) *Agent {
	id := s.nextID
	s.nextID++
	s.counts[v]++

	a := &Agent{
		ID:      id,
		Name:    s.name(v),
		Variant: v,
		Color:   variantColors[v],
		Pos:     home,
		Home:    home,
		Beliefs: NewBeliefs(),
	}
	a.policy = s.policyFor(a)
	return a
}

func (s *Spawner) policyFor(a *Agent) Policy {
	rng := rand.New(rand.NewSource(s.seed + 300 + int64(a.ID)))
	shared := panel{beliefs: a.Beliefs}
	switch a.Variant {
	case VariantReactive:
		return &reactive{panel: shared, rng: rng}
	case VariantStateBased:
		return &stateBased{panel: shared, rng: rng, visited: make(map[world.Position]bool)}
	case VariantGoalBased:
		return &goalBased{panel: shared, unreachable: make(map[world.Position]bool)}
	case VariantCooperative:
		return &cooperative{panel: shared, attempted: make(map[world.Position]bool)}
	default:
		return &bdi{}
	}
}

func (s *Spawner) name(v Variant) string {
	n := s.counts[v]
	label := map[Variant]string{
		VariantReactive:    "Reactive",
		VariantStateBased:  "StateBased",
		VariantGoalBased:   "GoalBased",
		VariantCooperative: "Cooperative",
		VariantBDI:         "BDI",
	}[v]
	if label == "" {
		label = v.String()
	}
	return fmt.Sprintf("%s-%d", label, n)
}
