// Package economy keeps the delivery ledger: who brought what back to base.
package economy

import (
	"errors"
	"fmt"
	"sort"

	"github.com/talgya/stormfield/internal/world"
)

var (
	// ErrDuplicateDelivery is returned when a resource that was already
	// registered is delivered again.
	ErrDuplicateDelivery = errors.New("resource already delivered")
	// ErrNotCarrying is returned when a delivery has no resource attached.
	ErrNotCarrying = errors.New("agent is not carrying a resource")
)

// Delivery is one registered drop-off at base.
type Delivery struct {
	Tick       uint64             `json:"tick"`
	AgentID    uint64             `json:"agent_id"`
	ResourceID uint64             `json:"resource_id"`
	Kind       world.ResourceKind `json:"kind"`
	Value      int                `json:"value"`
}

// Totals accumulates one agent's deliveries.
type Totals struct {
	Value       int                        `json:"value"`
	Count       map[world.ResourceKind]int `json:"count"`
	ValueByKind map[world.ResourceKind]int `json:"value_by_kind"`
}

func newTotals() *Totals {
	return &Totals{
		Count:       make(map[world.ResourceKind]int, len(world.AllKinds)),
		ValueByKind: make(map[world.ResourceKind]int, len(world.AllKinds)),
	}
}

func (t *Totals) clone() Totals {
	c := Totals{
		Value:       t.Value,
		Count:       make(map[world.ResourceKind]int, len(t.Count)),
		ValueByKind: make(map[world.ResourceKind]int, len(t.ValueByKind)),
	}
	for k, v := range t.Count {
		c.Count[k] = v
	}
	for k, v := range t.ValueByKind {
		c.ValueByKind[k] = v
	}
	return c
}

// Ledger records deliveries for a single run. Totals only ever grow and each
// resource is counted at most once. A Ledger is not safe for concurrent use;
// the simulation serializes access to it.
type Ledger struct {
	deliveries []Delivery
	totals     map[uint64]*Totals
	delivered  map[uint64]bool // resource IDs
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		totals:    make(map[uint64]*Totals),
		delivered: make(map[uint64]bool),
	}
}

// Register credits agentID with the resource it carried home.
func (l *Ledger) Register(agentID uint64, r *world.Resource, tick uint64) (Delivery, error) {
	if r == nil {
		return Delivery{}, ErrNotCarrying
	}
	if l.delivered[r.ID] {
		return Delivery{}, fmt.Errorf("register resource %d for agent %d: %w", r.ID, agentID, ErrDuplicateDelivery)
	}

	d := Delivery{
		Tick:       tick,
		AgentID:    agentID,
		ResourceID: r.ID,
		Kind:       r.Kind,
		Value:      r.Value,
	}
	l.delivered[r.ID] = true
	l.deliveries = append(l.deliveries, d)

	t := l.totals[agentID]
	if t == nil {
		t = newTotals()
		l.totals[agentID] = t
	}
	t.Value += r.Value
	t.Count[r.Kind]++
	t.ValueByKind[r.Kind] += r.Value
	return d, nil
}

// DeliveredTotal returns the total value an agent has delivered.
func (l *Ledger) DeliveredTotal(agentID uint64) int {
	if t := l.totals[agentID]; t != nil {
		return t.Value
	}
	return 0
}

// DeliveredByKind returns how many resources of each kind an agent delivered.
// Every kind is present in the result, possibly with a zero count.
func (l *Ledger) DeliveredByKind(agentID uint64) map[world.ResourceKind]int {
	out := make(map[world.ResourceKind]int, len(world.AllKinds))
	for _, k := range world.AllKinds {
		out[k] = 0
	}
	if t := l.totals[agentID]; t != nil {
		for k, n := range t.Count {
			out[k] = n
		}
	}
	return out
}

// Totals returns a copy of an agent's totals.
func (l *Ledger) Totals(agentID uint64) Totals {
	if t := l.totals[agentID]; t != nil {
		return t.clone()
	}
	return newTotals().clone()
}

// Agents returns the IDs of every agent with at least one delivery, ascending.
func (l *Ledger) Agents() []uint64 {
	ids := make([]uint64, 0, len(l.totals))
	for id := range l.totals {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Deliveries returns every delivery in registration order.
func (l *Ledger) Deliveries() []Delivery {
	out := make([]Delivery, len(l.deliveries))
	copy(out, l.deliveries)
	return out
}

// Len returns the number of registered deliveries.
func (l *Ledger) Len() int {
	return len(l.deliveries)
}

// GrandTotal returns the value delivered by the whole team.
func (l *Ledger) GrandTotal() int {
	total := 0
	for _, t := range l.totals {
		total += t.Value
	}
	return total
}

// Delivered reports whether a resource has been registered.
func (l *Ledger) Delivered(resourceID uint64) bool {
	return l.delivered[resourceID]
}
