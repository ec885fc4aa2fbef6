package agents

import (
	"github.com/talgya/stormfield/internal/economy"
	"github.com/talgya/stormfield/internal/world"
)

func newEnv(g *world.Grid, roster ...*Agent) *Env {
	return &Env{
		Grid:           g,
		Roster:         roster,
		Ledger:         economy.NewLedger(),
		Rendezvous:     NewRendezvous(),
		SightRadius:    2,
		PartnerTimeout: 5,
	}
}

// runTick advances env one tick and steps every agent in roster order.
func runTick(env *Env) []Action {
	env.Tick++
	actions := make([]Action, 0, len(env.Roster))
	for _, a := range env.Roster {
		actions = append(actions, a.Step(env))
	}
	return actions
}

func mustResource(g *world.Grid, kind world.ResourceKind, p world.Position) *world.Resource {
	r, err := g.AddResource(kind, p)
	if err != nil {
		panic(err)
	}
	return r
}

func newGridForWalk() *world.Grid {
	g := world.NewGrid(10, 10, world.Position{X: 5, Y: 5})
	g.AddObstacle(world.Position{X: 6, Y: 5})
	return g
}
