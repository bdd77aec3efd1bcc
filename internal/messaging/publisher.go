package messaging

import (
	"fmt"

	"gridhunter/internal/protocol"
)

// SubjectBroadcast carries events fanned out to every connected session.
const SubjectBroadcast = "game.broadcast"

// PlayerSubject returns the subject carrying events for a single session.
func PlayerSubject(sessionID string) string {
	return fmt.Sprintf("player-%s", sessionID)
}

// Publisher encodes game events into protocol envelopes and publishes them
// onto the embedded broker. Delivery is at-most-once per connection; clients
// that miss events recover via a fresh snapshot on reconnect.
type Publisher struct {
	server *NatsServer
}

func NewPublisher(server *NatsServer) *Publisher {
	return &Publisher{server: server}
}

// Broadcast publishes an event to every connected session.
func (p *Publisher) Broadcast(event string, payload any) error {
	data, err := protocol.Encode(event, payload)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", event, err)
	}
	return p.server.Publish(SubjectBroadcast, data)
}

// ToPlayer publishes an event to a single session.
func (p *Publisher) ToPlayer(sessionID string, event string, payload any) error {
	data, err := protocol.Encode(event, payload)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", event, err)
	}
	return p.server.Publish(PlayerSubject(sessionID), data)
}
