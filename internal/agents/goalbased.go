package agents

import (
	"fmt"

	"github.com/talgya/stormfield/internal/world"
)

// goalBased scores every known resource it can lift alone by
// value/(distance+1), walks the shortest path to the best one and carries it
// home. Targets that turn out unreachable are never chosen again.
type goalBased struct {
	panel
	unreachable map[world.Position]bool
}

func (*goalBased) Variant() Variant { return VariantGoalBased }

func (*goalBased) pairable() {}

func (*goalBased) interrupt(*Agent, *Env) {}

func (p *goalBased) step(a *Agent, env *Env) Action {
	p.sense(a, env)

	if a.Carrying != nil {
		return a.haulHome(env)
	}

	if a.Target != nil {
		t := *a.Target
		if env.Grid.Available(t) == nil {
			a.Target = nil
			a.Plan = nil
			a.Beliefs.Forget(t)
			return Action{Kind: ActionIdle, Detail: fmt.Sprintf("%s abandons %s: already taken", a.Name, t)}
		}
		if a.Pos == t {
			if act, ok := a.tryClaim(env); ok {
				a.Target = nil
				a.Plan = nil
				return act
			}
		}
	}

	best, ok := p.selectTarget(a, env)
	if !ok {
		a.Target = nil
		return a.goHome(env)
	}

	if a.Target == nil || *a.Target != best {
		a.Target = &best
		act := a.planTo(env, best)
		if len(a.Plan) == 0 && a.Pos != best {
			p.unreachable[best] = true
			a.Target = nil
			act.Detail = fmt.Sprintf("%s gives up on unreachable %s", a.Name, best)
		}
		return act
	}
	if len(a.Plan) == 0 {
		if a.Pos == best {
			// Standing on a target it cannot claim alone; leave it to others.
			p.unreachable[best] = true
			a.Target = nil
			return Action{Kind: ActionIdle}
		}
		return a.planTo(env, best)
	}
	return a.advance(env)
}

// sense records every uncollected resource within sight.
func (p *goalBased) sense(a *Agent, env *Env) {
	radius := env.sight()
	for _, r := range env.Grid.Resources {
		if !r.Collected() && world.Chebyshev(a.Pos, r.Pos) <= radius {
			a.Beliefs.Observe(r.Pos, r.Kind)
		}
	}
}

// selectTarget returns the best solo-claimable belief. Earlier entries win ties.
func (p *goalBased) selectTarget(a *Agent, env *Env) (world.Position, bool) {
	var best world.Position
	bestScore := -1.0
	for _, b := range a.Beliefs.Entries() {
		if p.unreachable[b.Pos] || env.Grid.Catalog.Required(b.Kind) > 1 {
			continue
		}
		if env.Grid.Available(b.Pos) == nil {
			continue
		}
		score := float64(env.Grid.Catalog.Value(b.Kind)) / float64(world.Manhattan(a.Pos, b.Pos)+1)
		if score > bestScore {
			best, bestScore = b.Pos, score
		}
	}
	return best, bestScore >= 0
}
