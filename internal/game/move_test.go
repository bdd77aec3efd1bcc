package game

import (
	"testing"

	"github.com/pixil98/go-testutil"

	"gridhunter/internal/protocol"
)

// placePlayer joins a session and pins it to a known position.
func placePlayer(t *testing.T, w *World, sessionID, username string, pos Position) *PlayerState {
	t.Helper()
	ps, _, err := w.Join(sessionID, username, "10.0.0.1")
	if err != nil {
		t.Fatalf("unexpected error joining: %v", err)
	}
	ps.Pos = pos
	return ps
}

func TestWorldMove_Rejections(t *testing.T) {
	tests := map[string]struct {
		target     Position
		obstacleAt *Position
		state      lifecycleState
		sessionID  string
		expOutcome MoveOutcome
	}{
		"unknown session": {
			sessionID:  "ghost",
			target:     Position{X: 2, Y: 1},
			expOutcome: MoveIgnored,
		},
		"non adjacent target": {
			target:     Position{X: 4, Y: 4},
			expOutcome: MoveIgnored,
		},
		"diagonal under orthogonal policy": {
			target:     Position{X: 3, Y: 2},
			expOutcome: MoveIgnored,
		},
		"same tile": {
			target:     Position{X: 2, Y: 2},
			expOutcome: MoveIgnored,
		},
		"obstacle": {
			target:     Position{X: 2, Y: 1},
			obstacleAt: &Position{X: 2, Y: 1},
			expOutcome: MoveBlockedObstacle,
		},
		"regenerating world": {
			target:     Position{X: 2, Y: 1},
			state:      stateRegenerating,
			expOutcome: MoveBlockedRegen,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			w, _, _ := newTestWorld(t, Config{}, &stubStore{})
			ps := placePlayer(t, w, "s1", "Alice", Position{X: 2, Y: 2})
			if tt.obstacleAt != nil {
				w.tiles[tt.obstacleAt.Y][tt.obstacleAt.X].Obstacle = true
			}
			w.state = tt.state

			sessionID := tt.sessionID
			if sessionID == "" {
				sessionID = "s1"
			}

			result := w.Move(sessionID, tt.target)

			testutil.AssertEqual(t, "outcome", result.Outcome, tt.expOutcome)
			testutil.AssertEqual(t, "position unchanged", ps.Pos, Position{X: 2, Y: 2})
		})
	}
}

func TestWorldMove_OutOfBounds(t *testing.T) {
	w, _, _ := newTestWorld(t, Config{}, &stubStore{})
	ps := placePlayer(t, w, "s1", "Alice", Position{X: 0, Y: 0})

	result := w.Move("s1", Position{X: -1, Y: 0})

	testutil.AssertEqual(t, "outcome", result.Outcome, MoveIgnored)
	testutil.AssertEqual(t, "position unchanged", ps.Pos, Position{X: 0, Y: 0})
}

func TestWorldMove_Accepted(t *testing.T) {
	w, pub, _ := newTestWorld(t, Config{}, &stubStore{})
	ps := placePlayer(t, w, "s1", "Alice", Position{X: 2, Y: 2})
	pub.events = nil

	result := w.Move("s1", Position{X: 2, Y: 1})

	testutil.AssertEqual(t, "outcome", result.Outcome, MoveAccepted)
	testutil.AssertEqual(t, "collected", result.Collected, ResourceKind(""))
	testutil.AssertEqual(t, "position", ps.Pos, Position{X: 2, Y: 1})
	testutil.AssertEqual(t, "player updates", pub.count(protocol.MsgPlayerUpdate), 1)
}

func TestWorldMove_DiagonalPolicy(t *testing.T) {
	w, _, _ := newTestWorld(t, Config{AllowDiagonal: true}, &stubStore{})
	ps := placePlayer(t, w, "s1", "Alice", Position{X: 2, Y: 2})

	result := w.Move("s1", Position{X: 3, Y: 3})

	testutil.AssertEqual(t, "outcome", result.Outcome, MoveAccepted)
	testutil.AssertEqual(t, "position", ps.Pos, Position{X: 3, Y: 3})
}

func TestWorldMove_CollectsResource(t *testing.T) {
	store := &stubStore{}
	w, pub, _ := newTestWorld(t, Config{}, store)
	ps := placePlayer(t, w, "s1", "Alice", Position{X: 2, Y: 2})
	w.tiles[1][2].Resource = ResourceGold
	w.tiles[0][0].Resource = ResourceCoal // keeps the map from depleting
	pub.events = nil
	store.saved = nil

	result := w.Move("s1", Position{X: 2, Y: 1})

	testutil.AssertEqual(t, "outcome", result.Outcome, MoveAccepted)
	testutil.AssertEqual(t, "collected", result.Collected, ResourceGold)
	testutil.AssertEqual(t, "points", result.Points, 10)
	testutil.AssertEqual(t, "score", ps.Score, 10)
	testutil.AssertEqual(t, "gold count", ps.Resources[ResourceGold], 1)
	testutil.AssertEqual(t, "tile cleared", w.tiles[1][2].Resource, ResourceKind(""))

	// A collection notifies the collector, refreshes the tile for everyone,
	// updates the leaderboard, and persists immediately.
	testutil.AssertEqual(t, "resource collected events", pub.count(protocol.MsgResourceCollected), 1)
	testutil.AssertEqual(t, "leaderboard updates", pub.count(protocol.MsgLeaderboardUpdate), 1)
	if len(store.saved) == 0 {
		t.Error("expected a snapshot save on collection")
	}
}

func TestWorldMove_CollectsExactlyOnce(t *testing.T) {
	w, _, _ := newTestWorld(t, Config{}, &stubStore{})
	ps := placePlayer(t, w, "s1", "Alice", Position{X: 2, Y: 2})
	w.tiles[1][2].Resource = ResourceCoal
	w.tiles[0][0].Resource = ResourceCoal

	first := w.Move("s1", Position{X: 2, Y: 1})
	testutil.AssertEqual(t, "first collected", first.Collected, ResourceCoal)

	// Step away and back: the tile is spent.
	w.Move("s1", Position{X: 2, Y: 2})
	second := w.Move("s1", Position{X: 2, Y: 1})

	testutil.AssertEqual(t, "second outcome", second.Outcome, MoveAccepted)
	testutil.AssertEqual(t, "second collected", second.Collected, ResourceKind(""))
	testutil.AssertEqual(t, "score", ps.Score, 1)
}

func TestFindValidPosition(t *testing.T) {
	tests := map[string]struct {
		obstacles []Position
		preferred Position
		exp       Position
	}{
		"preferred tile is valid": {
			preferred: Position{X: 2, Y: 2},
			exp:       Position{X: 2, Y: 2},
		},
		"preferred blocked, nearest ring tile wins": {
			obstacles: []Position{{X: 2, Y: 2}},
			preferred: Position{X: 2, Y: 2},
			// Ring search scans the r=1 perimeter top-left first.
			exp: Position{X: 1, Y: 1},
		},
		"out of bounds preference clamps to nearest valid": {
			preferred: Position{X: -3, Y: -3},
			exp:       Position{X: 0, Y: 0},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			w, _, _ := newTestWorld(t, Config{MaxSearchRadius: 4}, &stubStore{})
			for _, o := range tt.obstacles {
				w.tiles[o.Y][o.X].Obstacle = true
			}

			got := w.FindValidPosition(tt.preferred)

			testutil.AssertEqual(t, "position", got, tt.exp)
		})
	}
}

func TestFindValidPosition_FallsBackToRandom(t *testing.T) {
	w, _, _ := newTestWorld(t, Config{Width: 3, Height: 3, MaxSearchRadius: 1}, &stubStore{})

	// Block everything within the search radius of the corner.
	for _, o := range []Position{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
		w.tiles[o.Y][o.X].Obstacle = true
	}

	got := w.FindValidPosition(Position{X: 0, Y: 0})

	if !w.inBounds(got) {
		t.Fatalf("fallback position %v out of bounds", got)
	}
	if w.tiles[got.Y][got.X].Obstacle {
		t.Errorf("fallback position %v is an obstacle", got)
	}
}
