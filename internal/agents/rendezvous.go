package agents

import "github.com/talgya/stormfield/internal/world"

// Request is an open call for a partner, posted by a cooperative agent
// waiting at base.
type Request struct {
	Leader   AgentID        `json:"leader"`
	Target   world.Position `json:"target"`
	Opened   uint64         `json:"opened"`
	Deadline uint64         `json:"deadline"`
}

// Rendezvous pairs cooperative agents with idle partners. A request either
// matches a partner or expires at its deadline; nobody waits forever.
type Rendezvous struct {
	open []Request // Opening order
}

// NewRendezvous returns an empty rendezvous board.
func NewRendezvous() *Rendezvous {
	return &Rendezvous{}
}

// Open posts a request for leader, replacing any request it already had.
func (r *Rendezvous) Open(leader AgentID, target world.Position, tick, timeout uint64) Request {
	r.Close(leader)
	req := Request{Leader: leader, Target: target, Opened: tick, Deadline: tick + timeout}
	r.open = append(r.open, req)
	return req
}

// Close withdraws leader's request, if any.
func (r *Rendezvous) Close(leader AgentID) {
	for i, req := range r.open {
		if req.Leader == leader {
			r.open = append(r.open[:i], r.open[i+1:]...)
			return
		}
	}
}

// Pending returns leader's open request.
func (r *Rendezvous) Pending(leader AgentID) (Request, bool) {
	for _, req := range r.open {
		if req.Leader == leader {
			return req, true
		}
	}
	return Request{}, false
}

// Expired reports whether leader's request is past its deadline at tick.
// A leader without a request counts as expired.
func (r *Rendezvous) Expired(leader AgentID, tick uint64) bool {
	req, ok := r.Pending(leader)
	return !ok || tick >= req.Deadline
}

// Match looks for the first idle pairable agent sharing the leader's cell, in
// registration order. On success the request is closed and the partner is
// returned; the caller hands it the plan.
func (r *Rendezvous) Match(leader *Agent, roster []*Agent) *Agent {
	if _, ok := r.Pending(leader.ID); !ok {
		return nil
	}
	for _, a := range roster {
		if a == leader || a.Pos != leader.Pos || !a.idle() {
			continue
		}
		if _, ok := a.policy.(Pairable); !ok {
			continue
		}
		r.Close(leader.ID)
		return a
	}
	return nil
}

// Requests returns a copy of every open request.
func (r *Rendezvous) Requests() []Request {
	out := make([]Request, len(r.open))
	copy(out, r.open)
	return out
}

// idle reports whether the agent is free to be recruited.
func (a *Agent) idle() bool {
	return !a.InStorm && a.Carrying == nil && a.Assignment == nil && a.Target == nil && len(a.Plan) == 0
}
