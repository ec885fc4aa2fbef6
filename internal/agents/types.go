// Package agents provides the agent data model, the shared belief channel,
// and the five decision policies that drive the team.
package agents

import (
	"fmt"

	"github.com/talgya/stormfield/internal/world"
)

// AgentID is a unique identifier for an agent. IDs double as registration order.
type AgentID uint64

// Variant names an agent's decision policy.
type Variant uint8

const (
	VariantReactive    Variant = iota // Random walk, crystals only
	VariantStateBased                 // Visited-set explorer
	VariantGoalBased                  // Utility-driven collector
	VariantCooperative                // Structure hauler, needs a partner
	VariantBDI                        // Stationary belief hub at base
)

// AllVariants lists every variant in default registration order.
var AllVariants = [5]Variant{VariantReactive, VariantStateBased, VariantGoalBased, VariantCooperative, VariantBDI}

func (v Variant) String() string {
	switch v {
	case VariantReactive:
		return "reactive"
	case VariantStateBased:
		return "state-based"
	case VariantGoalBased:
		return "goal-based"
	case VariantCooperative:
		return "cooperative"
	case VariantBDI:
		return "bdi"
	default:
		return fmt.Sprintf("variant(%d)", uint8(v))
	}
}

// ParseVariant maps a variant name back to its Variant.
func ParseVariant(s string) (Variant, error) {
	for _, v := range AllVariants {
		if v.String() == s {
			return v, nil
		}
	}
	return 0, fmt.Errorf("unknown agent variant %q", s)
}

// MarshalText lets variants act as JSON and YAML keys.
func (v Variant) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText parses a variant name.
func (v *Variant) UnmarshalText(b []byte) error {
	parsed, err := ParseVariant(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Agent is one member of the team. Movement, carrying and planning state live
// here; anything specific to a variant lives in its Policy.
type Agent struct {
	ID      AgentID `json:"id"`
	Name    string  `json:"name"`
	Variant Variant `json:"variant"`
	Color   string  `json:"color"` // #rrggbb identity tag for renderers

	Pos  world.Position `json:"position"`
	Home world.Position `json:"home"`

	Carrying *world.Resource  `json:"-"`
	Beliefs  *Beliefs         `json:"beliefs"`
	Plan     []world.Position `json:"plan,omitempty"`
	Target   *world.Position  `json:"target,omitempty"`
	InStorm  bool             `json:"in_storm"`

	// Assignment is set on a partner recruited by a cooperative agent and
	// preempts the partner's own policy until it is released.
	Assignment *Assignment `json:"assignment,omitempty"`

	Memories []Memory `json:"memories,omitempty"`

	policy Policy
}

// Policy returns the agent's decision policy.
func (a *Agent) Policy() Policy {
	return a.policy
}

// AtHome reports whether the agent stands on its base cell.
func (a *Agent) AtHome() bool {
	return a.Pos == a.Home
}

// Mobile reports whether the agent ever leaves base. Only mobile agents count
// toward a claim's crew and follow the storm override.
func (a *Agent) Mobile() bool {
	return a.Variant != VariantBDI
}

// Assignment binds a recruited partner to a cooperative agent's target.
type Assignment struct {
	Leader   AgentID        `json:"leader"`
	Target   world.Position `json:"target"`
	Deadline uint64         `json:"deadline"` // Tick after which the partner gives up
}

// AgentView is a read-only copy of an agent for renderers and reporters.
type AgentView struct {
	ID         AgentID             `json:"id"`
	Name       string              `json:"name"`
	Variant    string              `json:"variant"`
	Color      string              `json:"color"`
	Pos        world.Position      `json:"position"`
	Carrying   *world.ResourceKind `json:"carrying,omitempty"`
	InStorm    bool                `json:"in_storm"`
	Target     *world.Position     `json:"target,omitempty"`
	PlanLength int                 `json:"plan_length"`
	Beliefs    int                 `json:"beliefs"`
	Intention  *world.Position     `json:"intention,omitempty"`
	Partner    *AgentID            `json:"partner_of,omitempty"`
}

// View snapshots the agent.
func (a *Agent) View() AgentView {
	v := AgentView{
		ID:         a.ID,
		Name:       a.Name,
		Variant:    a.Variant.String(),
		Color:      a.Color,
		Pos:        a.Pos,
		InStorm:    a.InStorm,
		PlanLength: len(a.Plan),
		Beliefs:    a.Beliefs.Len(),
	}
	if a.Carrying != nil {
		k := a.Carrying.Kind
		v.Carrying = &k
	}
	if a.Target != nil {
		t := *a.Target
		v.Target = &t
	}
	if i, ok := a.policy.(Intender); ok {
		if p, ok := i.Intention(); ok {
			v.Intention = &p
		}
	}
	if a.Assignment != nil {
		leader := a.Assignment.Leader
		v.Partner = &leader
	}
	return v
}
