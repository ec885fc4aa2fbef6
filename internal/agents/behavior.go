// Per-tick agent behavior. Every tick each agent performs exactly one
// state-changing action; sensing that only updates beliefs comes for free.
package agents

import (
	"fmt"
	"log/slog"

	"github.com/talgya/stormfield/internal/world"
)

// Action represents what an agent did this tick.
type Action struct {
	AgentID AgentID
	Kind    ActionKind
	Detail  string // Human-readable description for the event log; empty for routine steps
}

// ActionKind enumerates the possible actions.
type ActionKind uint8

const (
	ActionIdle    ActionKind = iota
	ActionSync                // BDI validate, aggregate, broadcast
	ActionPlan                // Compute a path
	ActionMove                // One cell along the plan
	ActionClaim               // Pick up the resource underfoot
	ActionDeliver             // Drop a carried resource at base
	ActionWait                // Hold position for a partner
	ActionRetreat             // One storm step toward base
	ActionShelter             // Sit out the storm at base
)

func (k ActionKind) String() string {
	switch k {
	case ActionIdle:
		return "idle"
	case ActionSync:
		return "sync"
	case ActionPlan:
		return "plan"
	case ActionMove:
		return "move"
	case ActionClaim:
		return "claim"
	case ActionDeliver:
		return "deliver"
	case ActionWait:
		return "wait"
	case ActionRetreat:
		return "retreat"
	case ActionShelter:
		return "shelter"
	default:
		return fmt.Sprintf("action(%d)", uint8(k))
	}
}

// Policy is the closed set of decision strategies. Each variant's struct holds
// only the state that variant needs.
type Policy interface {
	Variant() Variant
	step(a *Agent, env *Env) Action
	// interrupt drops transient plans when a storm preempts the policy.
	interrupt(a *Agent, env *Env)
}

// InfoSharer is implemented by policies that expose a shared-info panel the
// BDI hub can read from and write to.
type InfoSharer interface {
	SharedInfo() *Beliefs
}

// Pairable is implemented by policies whose agents can be recruited as a
// cooperative agent's partner.
type Pairable interface {
	pairable()
}

// Intender is implemented by policies that commit to a single intention.
type Intender interface {
	Intention() (world.Position, bool)
}

// panel is embedded by variants that share their beliefs.
type panel struct {
	beliefs *Beliefs
}

func (p panel) SharedInfo() *Beliefs { return p.beliefs }

// Step runs one perception-decision-action cycle.
func (a *Agent) Step(env *Env) Action {
	var act Action
	switch {
	case a.InStorm && a.Mobile():
		act = a.stormStep(env)
	case a.Assignment != nil:
		act = a.followAssignment(env)
	default:
		act = a.policy.step(a, env)
	}
	act.AgentID = a.ID
	return act
}

// stormStep replaces normal behavior while InStorm is set: drop everything and
// head straight for base, one cell per tick.
func (a *Agent) stormStep(env *Env) Action {
	a.Plan = nil
	a.Target = nil
	a.Assignment = nil
	a.policy.interrupt(a, env)

	if a.AtHome() {
		if a.Carrying != nil {
			return a.deliver(env)
		}
		return Action{Kind: ActionShelter}
	}
	next := RetreatStep(env.Grid, a.Pos, a.Home)
	if next == a.Pos {
		return Action{Kind: ActionShelter, Detail: a.Name + " is cut off from base"}
	}
	a.Pos = next
	return Action{Kind: ActionRetreat}
}

// RetreatStep returns the next cell on a straight-line route from p toward
// home. Diagonal steps are allowed; candidates must be passable and strictly
// shrink the Chebyshev distance. When the straight line is blocked the first
// step of a BFS path is used instead. p is returned if home is unreachable.
func RetreatStep(g *world.Grid, p, home world.Position) world.Position {
	if p == home {
		return p
	}
	diag := world.GreedyStep(p, home)
	candidates := [3]world.Position{
		diag,
		{X: diag.X, Y: p.Y},
		{X: p.X, Y: diag.Y},
	}
	dist := world.Chebyshev(p, home)
	for _, c := range candidates {
		if c != p && g.Passable(c) && world.Chebyshev(c, home) < dist {
			return c
		}
	}
	if path := g.FindPath(p, home); len(path) > 0 {
		return path[0]
	}
	return p
}

// followAssignment drives a recruited partner to its leader's target.
func (a *Agent) followAssignment(env *Env) Action {
	as := a.Assignment
	r := env.Grid.Available(as.Target)
	leader := env.Agent(as.Leader)
	switch {
	case r == nil:
		a.release()
		return Action{Kind: ActionIdle, Detail: fmt.Sprintf("%s is released: target %s is gone", a.Name, as.Target)}
	case leader == nil || leader.InStorm:
		a.release()
		return Action{Kind: ActionIdle}
	case env.Tick > as.Deadline:
		a.release()
		return Action{Kind: ActionIdle, Detail: fmt.Sprintf("%s stops waiting at %s", a.Name, as.Target)}
	}

	if len(a.Plan) > 0 {
		return a.advance(env)
	}
	if a.Pos != as.Target {
		return a.planTo(env, as.Target)
	}
	return Action{Kind: ActionWait}
}

func (a *Agent) release() {
	a.Assignment = nil
	a.Plan = nil
}

// planTo computes a path to goal. An empty result leaves the agent without a
// plan; callers treat that as an unreachable goal.
func (a *Agent) planTo(env *Env, goal world.Position) Action {
	a.Plan = env.Grid.FindPath(a.Pos, goal)
	return Action{Kind: ActionPlan}
}

// advance moves one cell along the plan. A step that is not a legal 4-adjacent
// move onto a passable cell discards the plan so the next tick replans.
func (a *Agent) advance(env *Env) Action {
	next := a.Plan[0]
	if !a.Pos.Adjacent(next) || !env.Grid.Passable(next) {
		slog.Debug("plan invalidated", "agent", a.Name, "at", a.Pos, "next", next)
		a.Plan = nil
		return Action{Kind: ActionIdle}
	}
	a.Pos = next
	a.Plan = a.Plan[1:]
	return Action{Kind: ActionMove}
}

// tryClaim picks up the resource underfoot. It fails silently when the agent
// is already carrying, the cell is empty or taken, or the crew on the cell is
// too small.
func (a *Agent) tryClaim(env *Env) (Action, bool) {
	if a.Carrying != nil {
		return Action{}, false
	}
	r := env.Grid.Available(a.Pos)
	if r == nil || env.CrewAt(a.Pos) < r.RequiredAgents {
		return Action{}, false
	}
	if !r.Claim() {
		return Action{}, false
	}
	a.Carrying = r
	a.Beliefs.Forget(a.Pos)
	detail := fmt.Sprintf("%s claims %s at %s", a.Name, r.Kind, r.Pos)
	AddMemory(a, env.Tick, detail, weightClaim)
	return Action{Kind: ActionClaim, Detail: detail}, true
}

// deliver drops the carried resource at base and credits the ledger.
func (a *Agent) deliver(env *Env) Action {
	r := a.Carrying
	a.Carrying = nil
	d, err := env.Ledger.Register(uint64(a.ID), r, env.Tick)
	if err != nil {
		slog.Warn("delivery rejected", "agent", a.Name, "error", err)
		return Action{Kind: ActionIdle}
	}
	detail := fmt.Sprintf("%s delivers %s worth %d", a.Name, d.Kind, d.Value)
	AddMemory(a, env.Tick, detail, weightDelivery)
	return Action{Kind: ActionDeliver, Detail: detail}
}

// haulHome delivers at base, otherwise walks (or plans) the way back.
func (a *Agent) haulHome(env *Env) Action {
	if a.AtHome() {
		return a.deliver(env)
	}
	if len(a.Plan) > 0 && a.Plan[len(a.Plan)-1] == a.Home {
		return a.advance(env)
	}
	act := a.planTo(env, a.Home)
	if len(a.Plan) == 0 {
		act.Detail = a.Name + " cannot find a way home"
	}
	return act
}

// goHome is haulHome for an agent with empty hands.
func (a *Agent) goHome(env *Env) Action {
	if a.AtHome() {
		a.Plan = nil
		return Action{Kind: ActionIdle}
	}
	return a.haulHome(env)
}
