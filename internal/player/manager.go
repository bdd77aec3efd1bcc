package player

import (
	"gridhunter/internal/announce"
	"gridhunter/internal/game"
)

// Subscriber provides the ability to subscribe to message subjects.
type Subscriber interface {
	Subscribe(subject string, handler func(data []byte)) (unsubscribe func(), err error)
}

// Manager creates a Session per accepted connection and wires it to the
// world and the broadcast layer.
type Manager struct {
	world *game.World
	sub   Subscriber
	ann   *announce.Announcer
}

func NewManager(world *game.World, sub Subscriber, ann *announce.Announcer) *Manager {
	return &Manager{
		world: world,
		sub:   sub,
		ann:   ann,
	}
}
