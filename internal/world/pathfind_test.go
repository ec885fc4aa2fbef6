package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestFindPath_OpenGridMatchesManhattan(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		w := rapid.IntRange(1, 40).Draw(t, "w")
		h := rapid.IntRange(1, 30).Draw(t, "h")
		bounds := Bounds{Width: w, Height: h}
		start := Position{X: rapid.IntRange(0, w-1).Draw(t, "sx"), Y: rapid.IntRange(0, h-1).Draw(t, "sy")}
		goal := Position{X: rapid.IntRange(0, w-1).Draw(t, "gx"), Y: rapid.IntRange(0, h-1).Draw(t, "gy")}

		path := FindPath(start, goal, bounds, nil)

		if start == goal {
			if len(path) != 0 {
				t.Fatalf("path to self = %v, want empty", path)
			}
			return
		}
		if len(path) != Manhattan(start, goal) {
			t.Fatalf("len(path) = %d, want %d", len(path), Manhattan(start, goal))
		}
		if path[len(path)-1] != goal {
			t.Fatalf("path ends at %s, want %s", path[len(path)-1], goal)
		}
		prev := start
		for _, p := range path {
			if !bounds.Contains(p) {
				t.Fatalf("step %s out of bounds", p)
			}
			if !prev.Adjacent(p) {
				t.Fatalf("step %s not adjacent to %s", p, prev)
			}
			prev = p
		}
	})
}

func TestFindPath_AvoidsObstacles(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		g := NewGrid(12, 10, Position{X: 6, Y: 5})
		n := rapid.IntRange(0, 50).Draw(t, "obstacles")
		for i := 0; i < n; i++ {
			g.AddObstacle(Position{X: rapid.IntRange(0, 11).Draw(t, "ox"), Y: rapid.IntRange(0, 9).Draw(t, "oy")})
		}
		goal := Position{X: rapid.IntRange(0, 11).Draw(t, "gx"), Y: rapid.IntRange(0, 9).Draw(t, "gy")}

		path := g.FindPath(g.Base, goal)

		prev := g.Base
		for _, p := range path {
			if g.IsObstacle(p) {
				t.Fatalf("path crosses obstacle %s", p)
			}
			if !prev.Adjacent(p) {
				t.Fatalf("step %s not adjacent to %s", p, prev)
			}
			prev = p
		}
		if len(path) > 0 && len(path) < Manhattan(g.Base, goal) {
			t.Fatalf("path shorter than manhattan distance")
		}
	})
}

func TestFindPath_GoalEqualsStart(t *testing.T) {
	p := Position{X: 3, Y: 3}
	assert.Empty(t, FindPath(p, p, Bounds{Width: 10, Height: 10}, nil))
}

func TestFindPath_WalledGoal(t *testing.T) {
	g := NewGrid(10, 10, Position{X: 0, Y: 0})
	goal := Position{X: 5, Y: 5}
	for _, n := range goal.Neighbors() {
		require.True(t, g.AddObstacle(n))
	}

	assert.Empty(t, g.FindPath(g.Base, goal))
}

func TestFindPath_GoalIsObstacle(t *testing.T) {
	g := NewGrid(10, 10, Position{X: 0, Y: 0})
	require.True(t, g.AddObstacle(Position{X: 4, Y: 4}))

	assert.Empty(t, g.FindPath(g.Base, Position{X: 4, Y: 4}))
}

func TestFindPath_OutOfBounds(t *testing.T) {
	b := Bounds{Width: 5, Height: 5}
	assert.Empty(t, FindPath(Position{X: 0, Y: 0}, Position{X: 5, Y: 0}, b, nil))
	assert.Empty(t, FindPath(Position{X: -1, Y: 0}, Position{X: 2, Y: 2}, b, nil))
}

func TestFindPath_DetoursAroundWall(t *testing.T) {
	g := NewGrid(7, 5, Position{X: 0, Y: 2})
	// Vertical wall at x=3 with a gap at y=4.
	for y := 0; y < 4; y++ {
		require.True(t, g.AddObstacle(Position{X: 3, Y: y}))
	}
	goal := Position{X: 6, Y: 2}

	path := g.FindPath(g.Base, goal)

	require.NotEmpty(t, path)
	assert.Equal(t, goal, path[len(path)-1])
	assert.Contains(t, path, Position{X: 3, Y: 4})
	assert.Len(t, path, 10)
}

func TestFindPath_TieBreakIsDeterministic(t *testing.T) {
	b := Bounds{Width: 5, Height: 5}
	start := Position{X: 0, Y: 0}
	goal := Position{X: 2, Y: 1}

	first := FindPath(start, goal, b, nil)
	second := FindPath(start, goal, b, nil)

	assert.Equal(t, first, second)
	assert.Equal(t, []Position{{X: 1, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 1}}, first)
}

func TestReachable_StopsAtWalls(t *testing.T) {
	g := NewGrid(5, 5, Position{X: 0, Y: 0})
	for y := 0; y < 5; y++ {
		require.True(t, g.AddObstacle(Position{X: 2, Y: y}))
	}

	cells := g.Reachable(g.Base)

	assert.Len(t, cells, 10)
	assert.Equal(t, g.Base, cells[0])
	for _, c := range cells {
		assert.Less(t, c.X, 2)
	}
}
