package agents

import (
	"math/rand"

	"github.com/talgya/stormfield/internal/world"
)

// stateBased explores cell by cell, remembering where it has been. It prefers
// cells it has neither visited nor already knows to hold a resource, picks up
// anything it can lift alone, and walks the shortest path home to deliver.
type stateBased struct {
	panel
	rng     *rand.Rand
	visited map[world.Position]bool
}

func (*stateBased) Variant() Variant { return VariantStateBased }

func (*stateBased) pairable() {}

func (*stateBased) interrupt(*Agent, *Env) {}

// Visited reports how many distinct cells the agent has stood on.
func (p *stateBased) Visited() int {
	return len(p.visited)
}

func (p *stateBased) step(a *Agent, env *Env) Action {
	p.visited[a.Pos] = true
	r := env.Grid.Available(a.Pos)
	if r != nil {
		a.Beliefs.Observe(r.Pos, r.Kind)
	}

	if a.Carrying != nil {
		return a.haulHome(env)
	}
	if r != nil && r.RequiredAgents <= 1 {
		if act, ok := a.tryClaim(env); ok {
			return act
		}
	}
	if len(a.Plan) > 0 {
		return a.advance(env)
	}

	var fresh, legal []world.Position
	for _, n := range a.Pos.Neighbors() {
		if !env.Grid.Passable(n) {
			continue
		}
		legal = append(legal, n)
		if !p.visited[n] && !a.Beliefs.Has(n) {
			fresh = append(fresh, n)
		}
	}
	choices := fresh
	if len(choices) == 0 {
		choices = legal
	}
	if len(choices) == 0 {
		return Action{Kind: ActionIdle}
	}
	a.Pos = choices[p.rng.Intn(len(choices))]
	return Action{Kind: ActionMove}
}
