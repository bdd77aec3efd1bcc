package game

import (
	"context"
	"time"
)

// Autosaver periodically persists the world snapshot. It rides the shared
// driver tick and tracks its own interval, so the driver can tick faster
// than the save cadence.
type Autosaver struct {
	world    *World
	interval time.Duration
	now      func() time.Time
	last     time.Time
}

func NewAutosaver(world *World, interval time.Duration) *Autosaver {
	return &Autosaver{
		world:    world,
		interval: interval,
		now:      time.Now,
	}
}

func (a *Autosaver) Tick(ctx context.Context) error {
	now := a.now()
	if !a.last.IsZero() && now.Sub(a.last) < a.interval {
		return nil
	}
	a.last = now
	a.world.SaveNow()
	return nil
}
