package game

import "gridhunter/internal/protocol"

// MoveOutcome classifies the result of a move request.
type MoveOutcome int

const (
	// MoveIgnored covers unknown sessions, non-adjacent targets, and
	// out-of-bounds targets. No notice is sent.
	MoveIgnored MoveOutcome = iota
	// MoveBlockedRegen rejects moves while the map is regenerating.
	MoveBlockedRegen
	// MoveBlockedObstacle rejects moves onto obstacle tiles.
	MoveBlockedObstacle
	MoveAccepted
)

// MoveResult reports what a move request did. Collected is empty when the
// target tile carried no resource.
type MoveResult struct {
	Outcome   MoveOutcome
	Collected ResourceKind
	Points    int
}

// Move validates a proposed move and, if accepted, updates the player's
// position, reveals surrounding tiles, and applies resource collection.
// Every rejection leaves shared state untouched.
func (w *World) Move(sessionID string, target Position) MoveResult {
	w.mu.Lock()
	defer w.mu.Unlock()

	ps, ok := w.players[sessionID]
	if !ok {
		return MoveResult{Outcome: MoveIgnored}
	}
	ps.LastActivity = w.now()

	if w.state == stateRegenerating {
		return MoveResult{Outcome: MoveBlockedRegen}
	}
	if !adjacent(ps.Pos, target, w.cfg.AllowDiagonal) {
		return MoveResult{Outcome: MoveIgnored}
	}
	if !w.inBounds(target) {
		return MoveResult{Outcome: MoveIgnored}
	}
	if w.tiles[target.Y][target.X].Obstacle {
		return MoveResult{Outcome: MoveBlockedObstacle}
	}

	ps.Pos = target
	discovered := w.discoverAroundLocked(target)

	result := MoveResult{Outcome: MoveAccepted}
	tile := &w.tiles[target.Y][target.X]
	if tile.HasResource() {
		result.Collected = tile.Resource
		result.Points = tile.Resource.Points()
		w.collectLocked(ps, tile)
	}

	w.broadcast(protocol.MsgPlayerUpdate, protocol.PlayerUpdate{Player: w.wirePlayerLocked(ps)})
	for _, t := range discovered {
		w.broadcast(protocol.MsgTileUpdate, protocol.TileUpdate{Tile: wireTile(*t)})
	}

	if result.Collected != "" {
		w.evaluateDepletionLocked()
	}

	return result
}

// collectLocked applies resource collection: exactly once per tile-resource
// instance. The tile's resource is cleared before any broadcast so a second
// visit finds nothing.
func (w *World) collectLocked(ps *PlayerState, tile *Tile) {
	kind := tile.Resource
	tile.Resource = ""

	ps.Resources[kind]++
	ps.Score += kind.Points()

	w.persistPlayerLocked(ps)
	w.saveLocked()

	w.toPlayer(ps.SessionID, protocol.MsgResourceCollected, protocol.ResourceCollected{
		Position: protocol.Position{X: tile.X, Y: tile.Y},
		Resource: string(kind),
		Points:   kind.Points(),
		Score:    ps.Score,
	})
	// The cleared tile goes to everyone; it is far cheaper than a full-map
	// broadcast.
	w.broadcast(protocol.MsgTileUpdate, protocol.TileUpdate{Tile: wireTile(*tile)})
	w.broadcast(protocol.MsgLeaderboardUpdate, protocol.LeaderboardUpdate{Entries: w.leaderboardLocked()})
}

// FindValidPosition returns the preferred tile when it is in bounds and
// obstacle-free, otherwise the nearest such tile found by searching expanding
// square rings, otherwise a uniformly random valid tile.
func (w *World) FindValidPosition(preferred Position) Position {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.findValidPositionLocked(preferred)
}

func (w *World) findValidPositionLocked(preferred Position) Position {
	if w.isValidTileLocked(preferred) {
		return preferred
	}

	for r := 1; r <= w.cfg.MaxSearchRadius; r++ {
		for y := preferred.Y - r; y <= preferred.Y+r; y++ {
			for x := preferred.X - r; x <= preferred.X+r; x++ {
				// Only the ring's perimeter; the interior was
				// covered at smaller radii.
				if abs(x-preferred.X) != r && abs(y-preferred.Y) != r {
					continue
				}
				pos := Position{X: x, Y: y}
				if w.isValidTileLocked(pos) {
					return pos
				}
			}
		}
	}

	return w.randomValidPositionLocked()
}

func (w *World) isValidTileLocked(pos Position) bool {
	return w.inBounds(pos) && !w.tiles[pos.Y][pos.X].Obstacle
}

// randomValidPositionLocked picks a uniformly random obstacle-free tile. On a
// degenerate fully-obstructed map it falls back to (0,0).
func (w *World) randomValidPositionLocked() Position {
	var valid []Position
	for y := range w.tiles {
		for x := range w.tiles[y] {
			if !w.tiles[y][x].Obstacle {
				valid = append(valid, Position{X: x, Y: y})
			}
		}
	}
	if len(valid) == 0 {
		return Position{}
	}
	return valid[w.rng.Intn(len(valid))]
}
