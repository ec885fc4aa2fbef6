package agents

import (
	"fmt"

	"github.com/talgya/stormfield/internal/world"
)

type coopPhase uint8

const (
	coopIdle       coopPhase = iota // No target
	coopRecruiting                  // At base, request open
	coopOutbound                    // Paired, walking to the target
)

// cooperative hauls structures, which need two agents on the cell to claim.
// It learns about structures through the BDI hub, recruits an idle partner at
// base, and walks out with it. Every wait is bounded by the partner timeout.
type cooperative struct {
	panel
	phase     coopPhase
	partner   AgentID
	deadline  uint64
	attempted map[world.Position]bool
}

func (*cooperative) Variant() Variant { return VariantCooperative }

func (p *cooperative) interrupt(a *Agent, env *Env) {
	if p.phase == coopRecruiting {
		env.Rendezvous.Close(a.ID)
	}
	p.phase = coopIdle
	p.partner = 0
}

func (p *cooperative) step(a *Agent, env *Env) Action {
	a.Beliefs.Validate(env.Grid)

	if a.Carrying != nil {
		return a.haulHome(env)
	}

	switch p.phase {
	case coopRecruiting:
		return p.recruit(a, env)
	case coopOutbound:
		return p.outbound(a, env)
	}

	if !a.AtHome() {
		a.Target = nil
		return a.goHome(env)
	}
	target, ok := p.selectTarget(a, env)
	if !ok {
		return Action{Kind: ActionIdle}
	}
	a.Target = &target
	a.Plan = nil
	p.phase = coopRecruiting
	env.Rendezvous.Open(a.ID, target, env.Tick, env.timeout())
	return Action{Kind: ActionWait, Detail: fmt.Sprintf("%s looks for a partner to haul %s", a.Name, target)}
}

func (p *cooperative) recruit(a *Agent, env *Env) Action {
	target := *a.Target
	if env.Grid.Available(target) == nil {
		return p.abandon(a, env, fmt.Sprintf("%s drops %s: already taken", a.Name, target))
	}
	if partner := env.Rendezvous.Match(a, env.Roster); partner != nil {
		path := env.Grid.FindPath(a.Pos, target)
		if len(path) == 0 {
			p.attempted[target] = true
			return p.abandon(a, env, fmt.Sprintf("%s drops unreachable %s", a.Name, target))
		}
		a.Plan = path
		partner.Plan = append([]world.Position(nil), path...)
		p.deadline = env.Tick + uint64(len(path)) + env.timeout()
		partner.Assignment = &Assignment{Leader: a.ID, Target: target, Deadline: p.deadline}
		p.partner = partner.ID
		p.phase = coopOutbound

		detail := fmt.Sprintf("%s pairs with %s for %s", a.Name, partner.Name, target)
		AddMemory(a, env.Tick, detail, weightPairing)
		AddMemory(partner, env.Tick, detail, weightPairing)
		return Action{Kind: ActionPlan, Detail: detail}
	}
	if env.Rendezvous.Expired(a.ID, env.Tick) {
		p.attempted[target] = true
		return p.abandon(a, env, fmt.Sprintf("%s finds no partner for %s", a.Name, target))
	}
	return Action{Kind: ActionWait}
}

func (p *cooperative) outbound(a *Agent, env *Env) Action {
	target := *a.Target
	if env.Grid.Available(target) == nil {
		return p.abandon(a, env, fmt.Sprintf("%s drops %s: already taken", a.Name, target))
	}
	if len(a.Plan) > 0 {
		return a.advance(env)
	}
	if a.Pos != target {
		return a.planTo(env, target)
	}
	if act, ok := a.tryClaim(env); ok {
		p.phase = coopIdle
		p.partner = 0
		a.Target = nil
		return act
	}
	if env.Tick > p.deadline {
		p.attempted[target] = true
		return p.abandon(a, env, fmt.Sprintf("%s gives up waiting at %s", a.Name, target))
	}
	return Action{Kind: ActionWait}
}

// abandon drops the current target; the agent heads home next tick.
func (p *cooperative) abandon(a *Agent, env *Env, detail string) Action {
	env.Rendezvous.Close(a.ID)
	p.phase = coopIdle
	p.partner = 0
	a.Target = nil
	a.Plan = nil
	AddMemory(a, env.Tick, detail, weightAbandon)
	return Action{Kind: ActionIdle, Detail: detail}
}

// selectTarget returns the first believed, still-available structure not yet
// attempted. Once every known structure has been tried the attempted set is
// cleared so they get another chance.
func (p *cooperative) selectTarget(a *Agent, env *Env) (world.Position, bool) {
	for pass := 0; pass < 2; pass++ {
		var tried bool
		for _, b := range a.Beliefs.Entries() {
			if env.Grid.Catalog.Required(b.Kind) < 2 || env.Grid.Available(b.Pos) == nil {
				continue
			}
			if p.attempted[b.Pos] {
				tried = true
				continue
			}
			return b.Pos, true
		}
		if !tried {
			break
		}
		clear(p.attempted)
	}
	return world.Position{}, false
}
