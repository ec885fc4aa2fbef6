package agents

import (
	"math/rand"

	"github.com/talgya/stormfield/internal/world"
)

// reactive wanders at random and only picks up crystals it stands on. It has
// no way home of its own; storms bring it back to base.
type reactive struct {
	panel
	rng *rand.Rand
}

func (*reactive) Variant() Variant { return VariantReactive }

func (*reactive) interrupt(*Agent, *Env) {}

func (p *reactive) step(a *Agent, env *Env) Action {
	p.sense(a, env.Grid)

	if a.Carrying != nil && a.AtHome() {
		return a.deliver(env)
	}
	if r := env.Grid.Available(a.Pos); r != nil && r.Kind == world.KindCrystal {
		if act, ok := a.tryClaim(env); ok {
			return act
		}
	}

	d := world.CardinalDirections[p.rng.Intn(len(world.CardinalDirections))]
	next := env.Grid.Bounds.Clamp(a.Pos.Add(d))
	if next == a.Pos || env.Grid.IsObstacle(next) {
		return Action{Kind: ActionIdle}
	}
	a.Pos = next
	return Action{Kind: ActionMove}
}

// sense records uncollected resources on the agent's cell and its 4-neighborhood.
func (p *reactive) sense(a *Agent, g *world.Grid) {
	if r := g.Available(a.Pos); r != nil {
		a.Beliefs.Observe(r.Pos, r.Kind)
	}
	for _, n := range a.Pos.Neighbors() {
		if r := g.Available(n); r != nil {
			a.Beliefs.Observe(r.Pos, r.Kind)
		}
	}
}
