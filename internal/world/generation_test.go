package world

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Defaults(t *testing.T) {
	cfg := DefaultGenConfig()
	cfg.Seed = 42

	g, err := Generate(cfg)
	require.NoError(t, err)

	assert.Equal(t, Bounds{Width: 40, Height: 30}, g.Bounds)
	assert.Equal(t, Position{X: 20, Y: 15}, g.Base)
	assert.Len(t, g.Resources, 25)
	assert.Equal(t, map[ResourceKind]int{KindCrystal: 10, KindMetal: 10, KindStructure: 5}, g.Remaining())

	reachable := make(map[Position]bool)
	for _, p := range g.Reachable(g.Base) {
		reachable[p] = true
	}
	seen := make(map[Position]bool)
	for _, r := range g.Resources {
		assert.False(t, g.IsObstacle(r.Pos), "resource %d on obstacle", r.ID)
		assert.NotEqual(t, g.Base, r.Pos)
		assert.True(t, reachable[r.Pos], "resource %d unreachable from base", r.ID)
		assert.False(t, seen[r.Pos], "two resources on %s", r.Pos)
		seen[r.Pos] = true
		assert.Equal(t, g.Catalog.Value(r.Kind), r.Value)
	}
}

func TestGenerate_BaseClearance(t *testing.T) {
	cfg := DefaultGenConfig()
	cfg.Seed = 7
	cfg.ObstacleThreshold = 0 // every eligible cell becomes an obstacle
	cfg.Counts = map[ResourceKind]int{KindCrystal: 3}

	g, err := Generate(cfg)
	require.NoError(t, err)

	for _, o := range g.Obstacles {
		assert.Greater(t, Chebyshev(o.Pos, g.Base), cfg.BaseClearance)
	}
	for _, r := range g.Resources {
		assert.LessOrEqual(t, Chebyshev(r.Pos, g.Base), cfg.BaseClearance)
	}
}

func TestGenerate_SameSeedSameWorld(t *testing.T) {
	cfg := DefaultGenConfig()
	cfg.Seed = 1234

	a, err := Generate(cfg)
	require.NoError(t, err)
	b, err := Generate(cfg)
	require.NoError(t, err)

	assert.Equal(t, a.Obstacles, b.Obstacles)
	require.Len(t, b.Resources, len(a.Resources))
	for i := range a.Resources {
		assert.Equal(t, a.Resources[i].Pos, b.Resources[i].Pos)
		assert.Equal(t, a.Resources[i].Kind, b.Resources[i].Kind)
	}
}

func TestGenerate_NoRoom(t *testing.T) {
	cfg := DefaultGenConfig()
	cfg.Width, cfg.Height = 3, 3
	cfg.Base = Position{X: 1, Y: 1}
	cfg.ObstacleThreshold = 1
	cfg.Seed = 1

	_, err := Generate(cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoRoom))
}

func TestGenerate_InvalidConfig(t *testing.T) {
	cfg := DefaultGenConfig()
	cfg.Width = 0
	_, err := Generate(cfg)
	assert.Error(t, err)

	cfg = DefaultGenConfig()
	cfg.Base = Position{X: 40, Y: 0}
	_, err = Generate(cfg)
	assert.Error(t, err)
}
