package persistence

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/stormfield/internal/agents"
	"github.com/talgya/stormfield/internal/engine"
	"github.com/talgya/stormfield/internal/world"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// crystalRun delivers a single crystal in 54 ticks.
func crystalRun(t *testing.T, runID string) *engine.Simulation {
	t.Helper()
	base := world.Position{X: 20, Y: 15}
	g := world.NewGrid(40, 30, base)
	crystal, err := g.AddResource(world.KindCrystal, world.Position{X: 5, Y: 5})
	require.NoError(t, err)
	_, err = g.AddResource(world.KindMetal, world.Position{X: 39, Y: 29})
	require.NoError(t, err)

	a := agents.NewSpawner(1).Spawn(agents.VariantGoalBased, base)
	a.Beliefs.Observe(crystal.Pos, crystal.Kind)
	return engine.NewSimulation(g, []*agents.Agent{a}, nil, engine.Options{RunID: runID})
}

func TestTraceWriter_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	tw, err := NewTraceWriter(dir, "run-a")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "run-a.jsonl.zst"), tw.Path())

	sim := crystalRun(t, "run-a")
	sim.AddSink(tw)
	var last engine.Snapshot
	for i := 0; i < 54; i++ {
		last = sim.Step()
	}
	require.NoError(t, sim.Close())
	require.NoError(t, tw.Close(), "second close is a no-op")

	snaps, err := ReadTrace(tw.Path())
	require.NoError(t, err)
	require.Len(t, snaps, 54)
	for i, s := range snaps {
		assert.Equal(t, uint64(i+1), s.Tick)
		assert.Equal(t, "run-a", s.RunID)
	}
	final := snaps[len(snaps)-1]
	assert.Equal(t, last.Delivered, final.Delivered)
	assert.Equal(t, 10, final.Delivered)
	assert.Equal(t, last.Ledger, final.Ledger)
	assert.Equal(t, last.Agents, final.Agents)
	assert.Equal(t, 1, final.Remaining[world.KindMetal])
}

func TestTraceWriter_PublishAfterClose(t *testing.T) {
	tw, err := NewTraceWriter(t.TempDir(), "closed")
	require.NoError(t, err)
	require.NoError(t, tw.Close())

	assert.Error(t, tw.Publish(engine.Snapshot{Tick: 1}))
}

func TestTraceWriter_EmptyRunID(t *testing.T) {
	_, err := NewTraceWriter(t.TempDir(), "")
	assert.Error(t, err)
}

func TestDB_SaveRunAndReadBack(t *testing.T) {
	db := openTestDB(t)
	sim := crystalRun(t, "run-b")
	for i := 0; i < 60; i++ {
		sim.Step()
	}

	started := time.Unix(1_700_000_000, 0)
	run, totals := Summarize(sim.Snapshot(), 42, started, sim.Finished())
	require.NoError(t, db.SaveRun(run, sim.Deliveries(), totals))

	got, err := db.Run("run-b")
	require.NoError(t, err)
	assert.Equal(t, Run{
		ID:         "run-b",
		Seed:       42,
		StartedAt:  started.Unix(),
		Ticks:      60,
		Delivered:  10,
		Deliveries: 1,
		Storms:     0,
		Finished:   false,
	}, got)

	rows, err := db.RunDeliveries("run-b")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, DeliveryRow{Tick: 54, AgentID: 1, ResourceID: 1, Kind: "crystal", Value: 10}, rows[0])

	agentTotals, err := db.RunTotals("run-b")
	require.NoError(t, err)
	require.Len(t, agentTotals, 1)
	assert.Equal(t, "GoalBased-1", agentTotals[0].Name)
	assert.Equal(t, "goal-based", agentTotals[0].Variant)
	assert.Equal(t, 10, agentTotals[0].Value)
	assert.Equal(t, 1, agentTotals[0].Crystal)
	assert.Zero(t, agentTotals[0].Metal)

	last, err := db.GetMeta("last_run")
	require.NoError(t, err)
	assert.Equal(t, "run-b", last)
}

func TestDB_SaveRunReplaces(t *testing.T) {
	db := openTestDB(t)
	sim := crystalRun(t, "again")
	for i := 0; i < 54; i++ {
		sim.Step()
	}
	run, totals := Summarize(sim.Snapshot(), 1, time.Now(), false)

	require.NoError(t, db.SaveRun(run, sim.Deliveries(), totals))
	require.NoError(t, db.SaveRun(run, sim.Deliveries(), totals))

	rows, err := db.RunDeliveries("again")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	runs, err := db.RecentRuns(10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestDB_RecentRunsNewestFirst(t *testing.T) {
	db := openTestDB(t)
	for i, id := range []string{"first", "second", "third"} {
		run := Run{ID: id, Seed: int64(i), StartedAt: int64(1000 + i)}
		require.NoError(t, db.SaveRun(run, nil, nil))
	}

	runs, err := db.RecentRuns(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "third", runs[0].ID)
	assert.Equal(t, "second", runs[1].ID)

	empty := openTestDB(t)
	none, err := empty.RecentRuns(5)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDB_SaveRunRequiresID(t *testing.T) {
	db := openTestDB(t)
	assert.Error(t, db.SaveRun(Run{}, nil, nil))
}
