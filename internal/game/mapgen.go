package game

import (
	"fmt"
	"math/rand"
)

// Generator produces map grids from weighted random rolls. It has no side
// effects beyond consuming its random source, so it can be re-invoked to
// produce a fresh map for every world regeneration.
type Generator struct {
	width           int
	height          int
	resourceDensity float64
	obstacleDensity float64
	rng             *rand.Rand
}

func NewGenerator(width, height int, resourceDensity, obstacleDensity float64, rng *rand.Rand) (*Generator, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("map dimensions must be positive, got %dx%d", width, height)
	}
	if resourceDensity < 0 || resourceDensity > 1 {
		return nil, fmt.Errorf("resource density must be in [0,1], got %g", resourceDensity)
	}
	if obstacleDensity < 0 || obstacleDensity > 1 {
		return nil, fmt.Errorf("obstacle density must be in [0,1], got %g", obstacleDensity)
	}
	if w := totalResourceWeight(); w != 100 {
		return nil, fmt.Errorf("resource weights must sum to 100, got %d", w)
	}

	return &Generator{
		width:           width,
		height:          height,
		resourceDensity: resourceDensity,
		obstacleDensity: obstacleDensity,
		rng:             rng,
	}, nil
}

// Generate rolls a fresh grid. Each cell independently rolls for a resource
// first; only resource-free cells roll for an obstacle, so the two are
// mutually exclusive per tile. All tiles start undiscovered.
func (g *Generator) Generate() [][]Tile {
	tiles := make([][]Tile, g.height)
	for y := 0; y < g.height; y++ {
		row := make([]Tile, g.width)
		for x := 0; x < g.width; x++ {
			tile := Tile{X: x, Y: y}

			if g.rng.Float64() < g.resourceDensity {
				tile.Resource = pickResource(g.rng.Intn(100))
			} else if g.rng.Float64() < g.obstacleDensity {
				tile.Obstacle = true
			}

			row[x] = tile
		}
		tiles[y] = row
	}
	return tiles
}
