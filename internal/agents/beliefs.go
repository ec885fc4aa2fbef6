package agents

import (
	"encoding/json"

	"github.com/talgya/stormfield/internal/world"
)

// Belief is an agent's claim that a resource of Kind sits at Pos.
type Belief struct {
	Pos  world.Position     `json:"position"`
	Kind world.ResourceKind `json:"kind"`
}

// Beliefs is an insertion-ordered map from position to believed resource kind.
// Overwriting an entry keeps its original slot, so iteration order is stable.
type Beliefs struct {
	entries []Belief
	index   map[world.Position]int
}

// NewBeliefs returns an empty belief set.
func NewBeliefs() *Beliefs {
	return &Beliefs{index: make(map[world.Position]int)}
}

// Observe records a sighting. It returns true if the set changed.
func (b *Beliefs) Observe(pos world.Position, kind world.ResourceKind) bool {
	if i, ok := b.index[pos]; ok {
		if b.entries[i].Kind == kind {
			return false
		}
		b.entries[i].Kind = kind
		return true
	}
	b.index[pos] = len(b.entries)
	b.entries = append(b.entries, Belief{Pos: pos, Kind: kind})
	return true
}

// MergeFrom copies every entry of other into b. The incoming kind wins on
// conflict; new positions are appended in other's order. It returns the number
// of entries added or changed.
func (b *Beliefs) MergeFrom(other *Beliefs) int {
	if other == nil || other == b {
		return 0
	}
	changed := 0
	for _, e := range other.entries {
		if b.Observe(e.Pos, e.Kind) {
			changed++
		}
	}
	return changed
}

// Validate purges entries whose resource is gone, already collected, or of a
// different kind than believed. It returns the number of entries removed.
// Validating twice in a row removes nothing the second time.
func (b *Beliefs) Validate(g *world.Grid) int {
	kept := b.entries[:0]
	purged := 0
	for _, e := range b.entries {
		r := g.ResourceAt(e.Pos)
		if r == nil || r.Collected() || r.Kind != e.Kind {
			purged++
			continue
		}
		kept = append(kept, e)
	}
	if purged == 0 {
		return 0
	}
	b.entries = kept
	b.reindex()
	return purged
}

// Forget drops the entry at pos. It returns true if one existed.
func (b *Beliefs) Forget(pos world.Position) bool {
	i, ok := b.index[pos]
	if !ok {
		return false
	}
	b.entries = append(b.entries[:i], b.entries[i+1:]...)
	b.reindex()
	return true
}

func (b *Beliefs) reindex() {
	clear(b.index)
	for i, e := range b.entries {
		b.index[e.Pos] = i
	}
}

// Len returns the number of entries. A nil set is empty.
func (b *Beliefs) Len() int {
	if b == nil {
		return 0
	}
	return len(b.entries)
}

// Has reports whether pos is believed to hold a resource.
func (b *Beliefs) Has(pos world.Position) bool {
	_, ok := b.index[pos]
	return ok
}

// Entries returns a copy of every entry in insertion order.
func (b *Beliefs) Entries() []Belief {
	out := make([]Belief, len(b.entries))
	copy(out, b.entries)
	return out
}

// MarshalJSON encodes the entries as an ordered list.
func (b *Beliefs) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Entries())
}
