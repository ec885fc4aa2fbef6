package world

import "fmt"

// ResourceKind enumerates the collectable resource types.
type ResourceKind uint8

const (
	KindCrystal   ResourceKind = iota // Common, single-agent
	KindMetal                         // Common, single-agent
	KindStructure                     // Heavy, needs a pair of agents
)

// AllKinds lists every kind in generation order.
var AllKinds = [3]ResourceKind{KindCrystal, KindMetal, KindStructure}

func (k ResourceKind) String() string {
	switch k {
	case KindCrystal:
		return "crystal"
	case KindMetal:
		return "metal"
	case KindStructure:
		return "structure"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseKind maps a kind name back to its ResourceKind.
func ParseKind(s string) (ResourceKind, error) {
	for _, k := range AllKinds {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown resource kind %q", s)
}

// MarshalText lets kinds act as JSON object keys and values.
func (k ResourceKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a kind name.
func (k *ResourceKind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Catalog holds the per-kind reward and crew size.
type Catalog struct {
	Values map[ResourceKind]int
	Crews  map[ResourceKind]int
}

// DefaultCatalog returns crystal=10, metal=20, structure=50; structures need two agents.
func DefaultCatalog() Catalog {
	return Catalog{
		Values: map[ResourceKind]int{
			KindCrystal:   10,
			KindMetal:     20,
			KindStructure: 50,
		},
		Crews: map[ResourceKind]int{
			KindCrystal:   1,
			KindMetal:     1,
			KindStructure: 2,
		},
	}
}

// Value returns the reward for delivering a resource of kind k.
func (c Catalog) Value(k ResourceKind) int {
	return c.Values[k]
}

// Required returns how many co-located agents a claim of kind k needs (at least 1).
func (c Catalog) Required(k ResourceKind) int {
	if n := c.Crews[k]; n > 1 {
		return n
	}
	return 1
}

// Resource is a collectable item placed at generation time.
type Resource struct {
	ID             uint64       `json:"id"`
	Kind           ResourceKind `json:"kind"`
	Pos            Position     `json:"position"`
	Value          int          `json:"value"`
	RequiredAgents int          `json:"required_agents"`

	collected bool
}

// Collected reports whether the resource has been claimed.
func (r *Resource) Collected() bool {
	return r.collected
}

// Claim flips the collected flag. Only the first call succeeds.
func (r *Resource) Claim() bool {
	if r.collected {
		return false
	}
	r.collected = true
	return true
}

// Obstacle is an impassable cell.
type Obstacle struct {
	ID  uint64   `json:"id"`
	Pos Position `json:"position"`
}
