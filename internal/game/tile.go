package game

// Position is a tile coordinate on the map grid.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// OffGrid is the sentinel position players are parked at while the map is
// regenerating, so clients can hide them.
var OffGrid = Position{X: -1, Y: -1}

// Tile is one cell of the game grid. Identity (X,Y) is immutable; the
// resource is cleared on collection and the whole grid is replaced on
// regeneration.
type Tile struct {
	X          int          `json:"x"`
	Y          int          `json:"y"`
	Discovered bool         `json:"discovered"`
	Resource   ResourceKind `json:"resource,omitempty"`
	Obstacle   bool         `json:"obstacle,omitempty"`
}

// HasResource reports whether the tile still carries a collectible.
func (t *Tile) HasResource() bool {
	return t.Resource != ""
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// chebyshev returns the Chebyshev (chessboard) distance between two positions.
func chebyshev(a, b Position) int {
	dx := abs(a.X - b.X)
	dy := abs(a.Y - b.Y)
	if dx > dy {
		return dx
	}
	return dy
}

// adjacent reports whether b is exactly one step from a under the given
// movement policy: orthogonal-only, or any of the eight surrounding tiles.
func adjacent(a, b Position, allowDiagonal bool) bool {
	if a == b {
		return false
	}
	if allowDiagonal {
		return chebyshev(a, b) == 1
	}
	return abs(a.X-b.X)+abs(a.Y-b.Y) == 1
}
