// World generation using layered simplex noise for the obstacle field and a
// seeded shuffle for resource placement.
package world

import (
	"errors"
	"fmt"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// ErrNoRoom is returned when there are not enough free reachable cells for
// every requested resource.
var ErrNoRoom = errors.New("not enough reachable cells for resources")

// GenConfig holds world generation parameters.
type GenConfig struct {
	Width  int
	Height int
	Base   Position
	Seed   int64 // 0 = random

	Counts  map[ResourceKind]int // Resources to place per kind
	Catalog Catalog

	// Cells whose noise value exceeds ObstacleThreshold become obstacles.
	// A threshold of 1 or more disables obstacles.
	ObstacleThreshold float64
	NoiseScale        float64
	BaseClearance     int // Chebyshev radius around the base kept free
}

// DefaultGenConfig returns the classic 40×30 field with the base in the centre,
// 10 crystals, 10 metal deposits and 5 structures, and a sparse obstacle field.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Width:  40,
		Height: 30,
		Base:   Position{X: 20, Y: 15},
		Counts: map[ResourceKind]int{
			KindCrystal:   10,
			KindMetal:     10,
			KindStructure: 5,
		},
		Catalog:           DefaultCatalog(),
		ObstacleThreshold: 0.78,
		NoiseScale:        0.15,
		BaseClearance:     1,
	}
}

// Generate creates a grid with obstacles and resources. Resources are only
// placed on cells reachable from the base.
func Generate(cfg GenConfig) (*Grid, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("generate: invalid size %dx%d", cfg.Width, cfg.Height)
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}

	g := NewGrid(cfg.Width, cfg.Height, cfg.Base)
	if !g.Bounds.Contains(cfg.Base) {
		return nil, fmt.Errorf("generate: base %s outside %dx%d", cfg.Base, cfg.Width, cfg.Height)
	}
	if cfg.Catalog.Values != nil {
		g.Catalog = cfg.Catalog
	}

	placeObstacles(g, cfg, seed)

	if err := placeResources(g, cfg, seed); err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	return g, nil
}

func placeObstacles(g *Grid, cfg GenConfig, seed int64) {
	if cfg.ObstacleThreshold >= 1 {
		return
	}
	scale := cfg.NoiseScale
	if scale <= 0 {
		scale = 0.15
	}
	noise := opensimplex.NewNormalized(seed)

	for y := 0; y < cfg.Height; y++ {
		for x := 0; x < cfg.Width; x++ {
			p := Position{X: x, Y: y}
			if Chebyshev(p, cfg.Base) <= cfg.BaseClearance {
				continue
			}
			if octaveNoise(noise, float64(x), float64(y), 3, scale, 0.5) > cfg.ObstacleThreshold {
				g.AddObstacle(p)
			}
		}
	}
}

func placeResources(g *Grid, cfg GenConfig, seed int64) error {
	rng := rand.New(rand.NewSource(seed + 100))

	// BFS order from the base is deterministic; skip the base itself.
	pool := g.Reachable(cfg.Base)
	if len(pool) > 0 {
		pool = pool[1:]
	}

	for _, kind := range AllKinds {
		for i := 0; i < cfg.Counts[kind]; i++ {
			if len(pool) == 0 {
				return fmt.Errorf("%s #%d: %w", kind, i+1, ErrNoRoom)
			}
			idx := rng.Intn(len(pool))
			p := pool[idx]
			pool[idx] = pool[len(pool)-1]
			pool = pool[:len(pool)-1]
			if _, err := g.AddResource(kind, p); err != nil {
				return err
			}
		}
	}
	return nil
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
