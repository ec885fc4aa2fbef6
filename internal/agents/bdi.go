package agents

import (
	"fmt"
	"sort"

	"github.com/talgya/stormfield/internal/world"
)

// bdi never moves. Each tick it purges stale beliefs, pulls the panels of
// every co-located teammate, purges again, and pushes the merged set back out
// ranked by value. Its intention is the most valuable resource it still
// believes in.
type bdi struct {
	intention *world.Position
}

func (*bdi) Variant() Variant { return VariantBDI }

func (*bdi) interrupt(*Agent, *Env) {}

// Intention returns the highest-valued live belief, if any.
func (p *bdi) Intention() (world.Position, bool) {
	if p.intention == nil {
		return world.Position{}, false
	}
	return *p.intention, true
}

func (p *bdi) step(a *Agent, env *Env) Action {
	a.Beliefs.Validate(env.Grid)

	var peers []InfoSharer
	for _, other := range env.At(a.Pos) {
		if other == a {
			continue
		}
		if s, ok := other.policy.(InfoSharer); ok {
			peers = append(peers, s)
		}
	}

	for _, s := range peers {
		a.Beliefs.MergeFrom(s.SharedInfo())
	}
	a.Beliefs.Validate(env.Grid)

	ranked := rankBeliefs(a.Beliefs, env.Grid.Catalog)
	p.intention = nil
	if entries := ranked.Entries(); len(entries) > 0 {
		top := entries[0].Pos
		p.intention = &top
	}

	pushed := 0
	for _, s := range peers {
		pushed += s.SharedInfo().MergeFrom(ranked)
	}
	act := Action{Kind: ActionSync}
	if pushed > 0 {
		act.Detail = fmt.Sprintf("%s shares %d beliefs with %d teammates", a.Name, pushed, len(peers))
	}
	return act
}

// rankBeliefs returns a copy of b ordered by resource value, highest first.
// Equal values keep their insertion order.
func rankBeliefs(b *Beliefs, c world.Catalog) *Beliefs {
	entries := b.Entries()
	sort.SliceStable(entries, func(i, j int) bool {
		return c.Value(entries[i].Kind) > c.Value(entries[j].Kind)
	})
	ranked := NewBeliefs()
	for _, e := range entries {
		ranked.Observe(e.Pos, e.Kind)
	}
	return ranked
}
