package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/stormfield/internal/agents"
	"github.com/talgya/stormfield/internal/weather"
	"github.com/talgya/stormfield/internal/world"
)

func generatedSim(t *testing.T, seed int64) *Simulation {
	t.Helper()
	cfg := world.DefaultGenConfig()
	cfg.Seed = seed
	g, err := world.Generate(cfg)
	require.NoError(t, err)
	team := agents.NewSpawner(seed).SpawnTeam(agents.AllVariants[:], g.Base)
	return NewSimulation(g, team, weather.NewStorm(weather.DefaultCalmTicks, weather.DefaultStormTicks),
		Options{SightRadius: 2, PartnerTimeout: 30})
}

func TestSimulation_SingleCrystalScenario(t *testing.T) {
	base := world.Position{X: 20, Y: 15}
	g := world.NewGrid(40, 30, base)
	crystal, err := g.AddResource(world.KindCrystal, world.Position{X: 5, Y: 5})
	require.NoError(t, err)

	a := agents.NewSpawner(1).Spawn(agents.VariantGoalBased, base)
	a.Beliefs.Observe(crystal.Pos, crystal.Kind)
	sim := NewSimulation(g, []*agents.Agent{a}, nil, Options{})

	for i := 0; i < 53; i++ {
		sim.Step()
		require.Zero(t, sim.DeliveredTotal(a.ID), "tick %d", sim.CurrentTick())
	}
	snap := sim.Step()

	assert.Equal(t, 10, sim.DeliveredTotal(a.ID))
	assert.Equal(t, 1, sim.DeliveredByKind(a.ID)[world.KindCrystal])
	assert.Equal(t, 10, snap.Delivered)
	assert.Equal(t, 50, snap.Stats.Moves)
	assert.Equal(t, 1, snap.Stats.Claims)
	assert.Equal(t, 1, snap.Stats.Deliveries)
	assert.True(t, sim.Finished())
	assert.False(t, sim.StormActive())
}

func TestSimulation_StormFlagsFollowController(t *testing.T) {
	g := world.NewGrid(20, 20, world.Position{X: 10, Y: 10})
	team := agents.NewSpawner(3).SpawnTeam(agents.AllVariants[:], g.Base)
	sim := NewSimulation(g, team, weather.NewStorm(5, 3), Options{})

	for tick := uint64(1); tick <= 20; tick++ {
		snap := sim.Step()
		want := (tick-1)%8 >= 5 // storm on ticks 6-8, 14-16
		assert.Equal(t, want, sim.StormActive(), "tick %d", tick)
		assert.Equal(t, want, snap.Storm.Active, "tick %d", tick)
		for _, a := range team {
			assert.Equal(t, want, a.InStorm, "tick %d agent %s", tick, a.Name)
		}
	}
	assert.Equal(t, 2, sim.Stats.Storms)

	var storms int
	for _, e := range sim.RecentEvents(0) {
		if e.Category == "storm" {
			storms++
		}
	}
	assert.Equal(t, 4, storms)
}

func TestSimulation_ForcedStorm(t *testing.T) {
	g := world.NewGrid(10, 10, world.Position{X: 5, Y: 5})
	team := agents.NewSpawner(3).SpawnTeam([]agents.Variant{agents.VariantStateBased}, g.Base)
	sim := NewSimulation(g, team, weather.NewStorm(0, 0), Options{})

	for i := 0; i < 4; i++ {
		sim.Step()
	}
	sim.SetStorm(true)
	assert.True(t, team[0].InStorm)

	for i := 0; i < 10; i++ {
		sim.Step()
	}
	assert.Equal(t, g.Base, team[0].Pos)
	assert.True(t, team[0].InStorm)

	sim.SetStorm(false)
	assert.False(t, team[0].InStorm)
	assert.False(t, sim.StormActive())
}

func TestSimulation_RunInvariants(t *testing.T) {
	sim := generatedSim(t, 7)

	prev := map[agents.AgentID]int{}
	collected := map[uint64]bool{}
	for i := 0; i < 1500; i++ {
		snap := sim.Step()

		for _, r := range sim.Grid.Resources {
			if collected[r.ID] && !r.Collected() {
				t.Fatalf("resource %d was un-collected", r.ID)
			}
			collected[r.ID] = r.Collected()
		}
		for _, a := range sim.Agents {
			total := sim.DeliveredTotal(a.ID)
			require.GreaterOrEqual(t, total, prev[a.ID])
			prev[a.ID] = total

			sum := 0
			for _, v := range snap.Ledger[a.ID].ValueByKind {
				sum += v
			}
			require.Equal(t, total, sum)
			require.Equal(t, sim.StormActive(), a.InStorm)
			require.True(t, sim.Grid.Passable(a.Pos))
			if a.Variant == agents.VariantBDI {
				require.Equal(t, a.Home, a.Pos)
			}
		}
	}

	seen := map[uint64]bool{}
	for _, d := range sim.Deliveries() {
		assert.False(t, seen[d.ResourceID], "resource %d delivered twice", d.ResourceID)
		seen[d.ResourceID] = true
		assert.True(t, collected[d.ResourceID])
	}
	assert.Positive(t, sim.Ledger.GrandTotal())
}

func TestSimulation_Deterministic(t *testing.T) {
	a := generatedSim(t, 99)
	b := generatedSim(t, 99)

	var sa, sb Snapshot
	for i := 0; i < 400; i++ {
		sa = a.Step()
		sb = b.Step()
	}
	assert.Equal(t, sa, sb)
	assert.Equal(t, a.RecentEvents(0), b.RecentEvents(0))
}

func TestSimulation_EventLogIsBounded(t *testing.T) {
	sim := NewSimulation(world.NewGrid(3, 3, world.Position{X: 1, Y: 1}), nil, nil, Options{})
	for i := 0; i < MaxEvents+50; i++ {
		sim.addEvent(uint64(i), fmt.Sprintf("event %d", i), "agent")
	}

	assert.Len(t, sim.Events, MaxEvents)
	recent := sim.RecentEvents(2)
	require.Len(t, recent, 2)
	assert.Equal(t, fmt.Sprintf("event %d", MaxEvents+49), recent[1].Description)
}

func TestSimulation_AgentDetailAndResources(t *testing.T) {
	g := world.NewGrid(5, 5, world.Position{X: 0, Y: 0})
	r, err := g.AddResource(world.KindMetal, world.Position{X: 1, Y: 0})
	require.NoError(t, err)
	team := agents.NewSpawner(1).SpawnTeam([]agents.Variant{agents.VariantGoalBased}, g.Base)
	sim := NewSimulation(g, team, nil, Options{})

	sim.Step() // sees the metal, plans

	detail, ok := sim.Agent(team[0].ID)
	require.True(t, ok)
	assert.Equal(t, "GoalBased-1", detail.Name)
	assert.Equal(t, []agents.Belief{{Pos: r.Pos, Kind: world.KindMetal}}, detail.Beliefs)
	assert.Equal(t, []world.Position{r.Pos}, detail.Plan)

	_, ok = sim.Agent(99)
	assert.False(t, ok)

	res := sim.Resources()
	require.Len(t, res, 1)
	assert.Equal(t, ResourceView{ID: 1, Kind: world.KindMetal, Pos: r.Pos, Value: 20, RequiredAgents: 1}, res[0])
}

func TestSimulation_AgentDetailReportsExplored(t *testing.T) {
	g := world.NewGrid(10, 10, world.Position{X: 5, Y: 5})
	team := agents.NewSpawner(2).SpawnTeam([]agents.Variant{agents.VariantStateBased, agents.VariantReactive}, g.Base)
	sim := NewSimulation(g, team, nil, Options{})

	for i := 0; i < 3; i++ {
		sim.Step()
	}

	explorer, ok := sim.Agent(team[0].ID)
	require.True(t, ok)
	assert.GreaterOrEqual(t, explorer.Explored, 1)

	reactive, ok := sim.Agent(team[1].ID)
	require.True(t, ok)
	assert.Zero(t, reactive.Explored)
}
