package game

import (
	"context"
	"log/slog"

	"gridhunter/internal/announce"
	"gridhunter/internal/protocol"
)

// The world lifecycle runs Active -> Depleted -> Announcing -> Regenerating
// -> Active. Depletion is detected after a collection empties the map; the
// regeneration and player-restore phases run as scheduled tasks consumed by
// Tick, with movement blocked while the map is being replaced.

// evaluateDepletionLocked transitions to Announcing when the last resource
// has been collected.
func (w *World) evaluateDepletionLocked() {
	if w.state != stateActive {
		return
	}
	if w.countResourcesLocked() > 0 {
		return
	}

	w.state = stateAnnouncing
	w.announceCycleLocked(w.ann.CycleEnding)
	w.tasks.schedule(w.now().Add(w.cfg.AnnounceDelay), phaseRegenerate)
}

func (w *World) runPhaseLocked(ctx context.Context, phase taskPhase) {
	switch phase {
	case phaseRegenerate:
		w.regenerateLocked(ctx)
	case phaseRestore:
		w.restorePlayersLocked(ctx)
	}
}

// regenerateLocked replaces the entire map for a new world cycle. Players are
// parked off-grid until the restore phase so clients can hide them.
func (w *World) regenerateLocked(ctx context.Context) {
	if w.state != stateAnnouncing {
		return
	}
	w.state = stateRegenerating

	for _, ps := range w.players {
		ps.prevPos = ps.Pos
		ps.Pos = OffGrid
		w.broadcast(protocol.MsgPlayerUpdate, protocol.PlayerUpdate{Player: w.wirePlayerLocked(ps)})
	}

	w.tiles = w.gen.Generate()
	w.cycle++
	w.cycleAt = w.now()
	w.saveLocked()

	slog.InfoContext(ctx, "world regenerated", "cycle", w.cycle)

	w.announceCycleLocked(w.ann.CycleBegun)
	w.broadcast(protocol.MsgWorldCycleUpdate, protocol.WorldCycle{Cycle: w.cycle, Timestamp: w.cycleAt.UnixMilli()})
	w.broadcast(protocol.MsgStateUpdate, protocol.StateUpdate{Map: w.wireTilesLocked()})

	w.tasks.schedule(w.now().Add(w.cfg.RestoreDelay), phaseRestore)
}

// restorePlayersLocked places every displaced player back on the map near
// their pre-regeneration position and reopens movement. Players who
// disconnected during the delay are simply absent from the registry; players
// who joined during it were never displaced and stay where they spawned.
func (w *World) restorePlayersLocked(ctx context.Context) {
	if w.state != stateRegenerating {
		return
	}

	for _, ps := range w.players {
		if ps.Pos != OffGrid {
			continue
		}
		ps.Pos = w.findValidPositionLocked(ps.prevPos)
		w.discoverAroundLocked(ps.Pos)
		w.broadcast(protocol.MsgPlayerUpdate, protocol.PlayerUpdate{Player: w.wirePlayerLocked(ps)})
	}

	w.state = stateActive

	// Sanity check: a regenerated map should carry resources. A zero count
	// is an integrity warning, not a fatal condition.
	if w.countResourcesLocked() == 0 {
		slog.ErrorContext(ctx, "regenerated map contains no resources", "cycle", w.cycle)
	}
}

func (w *World) countResourcesLocked() int {
	count := 0
	for y := range w.tiles {
		for x := range w.tiles[y] {
			if w.tiles[y][x].HasResource() {
				count++
			}
		}
	}
	return count
}

func (w *World) announceCycleLocked(render func(announce.CycleData) (string, error)) {
	msg, err := render(announce.CycleData{Cycle: w.cycle, Timestamp: w.cycleAt})
	if err != nil {
		slog.Warn("rendering announcement", "error", err)
		return
	}
	w.broadcast(protocol.MsgAnnouncement, protocol.Announcement{Message: msg})
}
