// Package world provides the square grid, obstacles, resources, and pathfinding.
// Cells are addressed by integer (x, y) with the origin in the top-left corner.
package world

import "fmt"

// Position identifies a single grid cell.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add returns the position offset by d.
func (p Position) Add(d Position) Position {
	return Position{X: p.X + d.X, Y: p.Y + d.Y}
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// CardinalDirections are the four unit moves in fixed order (+X, -X, +Y, -Y).
// Search and exploration iterate them in this order so ties are deterministic.
var CardinalDirections = [4]Position{
	{X: 1, Y: 0},
	{X: -1, Y: 0},
	{X: 0, Y: 1},
	{X: 0, Y: -1},
}

// Neighbors returns the four orthogonally adjacent positions (unclipped).
func (p Position) Neighbors() [4]Position {
	var result [4]Position
	for i, d := range CardinalDirections {
		result[i] = p.Add(d)
	}
	return result
}

// Adjacent reports whether q is exactly one orthogonal step from p.
func (p Position) Adjacent(q Position) bool {
	return Manhattan(p, q) == 1
}

// Bounds is the half-open rectangle [0,Width) × [0,Height).
type Bounds struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Contains returns true if p lies inside the bounds.
func (b Bounds) Contains(p Position) bool {
	return p.X >= 0 && p.X < b.Width && p.Y >= 0 && p.Y < b.Height
}

// Clamp moves p onto the nearest in-bounds cell.
func (b Bounds) Clamp(p Position) Position {
	if p.X < 0 {
		p.X = 0
	}
	if p.X >= b.Width {
		p.X = b.Width - 1
	}
	if p.Y < 0 {
		p.Y = 0
	}
	if p.Y >= b.Height {
		p.Y = b.Height - 1
	}
	return p
}

// Cells returns the number of cells inside the bounds.
func (b Bounds) Cells() int {
	return b.Width * b.Height
}

// Manhattan returns the 4-connected step distance between two cells.
func Manhattan(a, b Position) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

// Chebyshev returns the king-move distance between two cells.
func Chebyshev(a, b Position) int {
	dx := abs(a.X - b.X)
	dy := abs(a.Y - b.Y)
	if dx > dy {
		return dx
	}
	return dy
}

// GreedyStep returns the straight-line step from p toward target: each axis moves
// by the sign of its remaining delta, so diagonal steps are allowed.
func GreedyStep(p, target Position) Position {
	return Position{X: p.X + sign(target.X-p.X), Y: p.Y + sign(target.Y-p.Y)}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func sign(x int) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

// Grid holds the complete static world: bounds, base, obstacles and resources.
// Obstacles never change after generation. Resources only change through Claim.
type Grid struct {
	Bounds    Bounds      `json:"bounds"`
	Base      Position    `json:"base"`
	Catalog   Catalog     `json:"-"`
	Obstacles []Obstacle  `json:"obstacles"`
	Resources []*Resource `json:"-"` // Generation order; never shrinks

	blocked map[Position]bool
	byPos   map[Position]*Resource
}

// NewGrid creates an empty grid with the default resource catalog.
func NewGrid(width, height int, base Position) *Grid {
	return &Grid{
		Bounds:  Bounds{Width: width, Height: height},
		Base:    base,
		Catalog: DefaultCatalog(),
		blocked: make(map[Position]bool),
		byPos:   make(map[Position]*Resource),
	}
}

// AddObstacle blocks a cell. It returns false if the cell is out of bounds,
// is the base, already blocked, or holds a resource.
func (g *Grid) AddObstacle(p Position) bool {
	if !g.Bounds.Contains(p) || p == g.Base || g.blocked[p] || g.byPos[p] != nil {
		return false
	}
	g.blocked[p] = true
	g.Obstacles = append(g.Obstacles, Obstacle{ID: uint64(len(g.Obstacles) + 1), Pos: p})
	return true
}

// AddResource places a new resource of the given kind, taking value and
// required agents from the grid's catalog. IDs are assigned sequentially from 1.
func (g *Grid) AddResource(kind ResourceKind, p Position) (*Resource, error) {
	if !g.Bounds.Contains(p) {
		return nil, fmt.Errorf("resource at %s: out of bounds", p)
	}
	if p == g.Base {
		return nil, fmt.Errorf("resource at %s: cell is the base", p)
	}
	if g.blocked[p] {
		return nil, fmt.Errorf("resource at %s: cell is an obstacle", p)
	}
	if g.byPos[p] != nil {
		return nil, fmt.Errorf("resource at %s: cell already occupied", p)
	}
	r := &Resource{
		ID:             uint64(len(g.Resources) + 1),
		Kind:           kind,
		Pos:            p,
		Value:          g.Catalog.Value(kind),
		RequiredAgents: g.Catalog.Required(kind),
	}
	g.Resources = append(g.Resources, r)
	g.byPos[p] = r
	return r, nil
}

// IsObstacle returns true if p is an obstacle cell.
func (g *Grid) IsObstacle(p Position) bool {
	return g.blocked[p]
}

// Passable returns true if p is in bounds and not an obstacle.
func (g *Grid) Passable(p Position) bool {
	return g.Bounds.Contains(p) && !g.blocked[p]
}

// ResourceAt returns the resource on p, collected or not, or nil.
func (g *Grid) ResourceAt(p Position) *Resource {
	return g.byPos[p]
}

// Available returns the uncollected resource on p, or nil.
func (g *Grid) Available(p Position) *Resource {
	r := g.byPos[p]
	if r == nil || r.Collected() {
		return nil
	}
	return r
}

// Remaining returns the number of uncollected resources per kind.
func (g *Grid) Remaining() map[ResourceKind]int {
	counts := make(map[ResourceKind]int, len(AllKinds))
	for _, r := range g.Resources {
		if !r.Collected() {
			counts[r.Kind]++
		}
	}
	return counts
}

// String returns a summary of the grid.
func (g *Grid) String() string {
	return fmt.Sprintf("Grid(%dx%d, base=%s, obstacles=%d, resources=%d)",
		g.Bounds.Width, g.Bounds.Height, g.Base, len(g.Obstacles), len(g.Resources))
}
