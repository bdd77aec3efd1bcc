package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"gridhunter/internal/game"
	"gridhunter/internal/messaging"
	"gridhunter/internal/protocol"
)

const (
	// joinTimeout bounds how long a fresh connection may sit idle before
	// sending its join frame.
	joinTimeout = 30 * time.Second

	// msgBuffer is the per-session queue of outbound broker messages.
	// Events beyond it are dropped; the transport promises at-most-once
	// delivery and reconnecting clients get a fresh snapshot anyway.
	msgBuffer = 64
)

// RunSession drives one client connection from join handshake to disconnect.
// The returned error is a transport or system failure; rejected joins and
// normal disconnects return nil.
func (m *Manager) RunSession(ctx context.Context, conn *websocket.Conn, origin string) error {
	sessionID := uuid.New().String()

	username, err := m.awaitJoin(conn)
	if err != nil {
		return err
	}

	ps, restored, err := m.world.Join(sessionID, username, origin)
	if err != nil {
		var joinErr *game.JoinError
		if errors.As(err, &joinErr) {
			return writeEvent(conn, protocol.MsgLoginError, protocol.LoginError{Message: joinErr.Message})
		}
		return fmt.Errorf("joining world: %w", err)
	}
	defer m.world.Leave(sessionID)

	// Subscribe before the snapshot is built so nothing published after it
	// can be missed.
	msgs := make(chan []byte, msgBuffer)
	unsubBroadcast, err := m.subscribe(messaging.SubjectBroadcast, msgs)
	if err != nil {
		return err
	}
	defer unsubBroadcast()

	unsubPlayer, err := m.subscribe(messaging.PlayerSubject(sessionID), msgs)
	if err != nil {
		return err
	}
	defer unsubPlayer()

	snap, err := m.world.Snapshot(sessionID, restored)
	if err != nil {
		return fmt.Errorf("building snapshot: %w", err)
	}
	if err := writeEvent(conn, protocol.MsgStateSnapshot, snap); err != nil {
		return err
	}

	if restored {
		msg, err := m.ann.DataRestored(username)
		if err != nil {
			slog.Warn("rendering restore notice", "error", err)
		} else if err := writeEvent(conn, protocol.MsgAnnouncement, protocol.Announcement{Message: msg}); err != nil {
			return err
		}
	}

	// Read frames into a channel so the main loop stays the only writer.
	// The stop channel releases the reader when the loop exits with a frame
	// still in flight; closing the connection alone cannot unblock a send.
	frames := make(chan []byte)
	readErr := make(chan error, 1)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		defer close(frames)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case frames <- data:
			case <-stop:
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-ps.Done():
			msg := evictionNotice(ps.EvictReason())
			if err := writeEvent(conn, protocol.MsgAnnouncement, protocol.Announcement{Message: msg}); err != nil {
				slog.Warn("writing takeover notice", "session", sessionID, "error", err)
			}
			return nil

		case data := <-msgs:
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return err
			}

		case frame, ok := <-frames:
			if !ok {
				// Connection closed. Normal client disconnects are
				// not session errors.
				err := <-readErr
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return nil
				}
				return err
			}
			if err := m.handleFrame(conn, sessionID, frame); err != nil {
				return err
			}
		}
	}
}

// awaitJoin reads the handshake frame. The first message on a connection
// must be a join request.
func (m *Manager) awaitJoin(conn *websocket.Conn) (string, error) {
	if err := conn.SetReadDeadline(time.Now().Add(joinTimeout)); err != nil {
		return "", fmt.Errorf("setting join deadline: %w", err)
	}
	defer conn.SetReadDeadline(time.Time{})

	_, data, err := conn.ReadMessage()
	if err != nil {
		return "", fmt.Errorf("reading join frame: %w", err)
	}

	env, err := protocol.DecodeEnvelope(data)
	if err != nil {
		return "", fmt.Errorf("decoding join frame: %w", err)
	}
	if env.T != protocol.MsgJoin {
		return "", fmt.Errorf("expected %s frame, got %q", protocol.MsgJoin, env.T)
	}

	req, err := protocol.DecodePayload[protocol.JoinRequest](env)
	if err != nil {
		return "", fmt.Errorf("decoding join request: %w", err)
	}

	return req.Username, nil
}

// handleFrame dispatches one inbound frame. Malformed frames are logged and
// dropped so one bad message cannot end the session.
func (m *Manager) handleFrame(conn *websocket.Conn, sessionID string, frame []byte) error {
	env, err := protocol.DecodeEnvelope(frame)
	if err != nil {
		slog.Warn("dropping malformed frame", "session", sessionID, "error", err)
		return nil
	}

	switch env.T {
	case protocol.MsgMove:
		req, err := protocol.DecodePayload[protocol.MoveRequest](env)
		if err != nil {
			slog.Warn("dropping malformed move", "session", sessionID, "error", err)
			return nil
		}
		result := m.world.Move(sessionID, game.Position{X: req.X, Y: req.Y})
		switch result.Outcome {
		case game.MoveBlockedRegen:
			return writeEvent(conn, protocol.MsgMovementBlocked,
				protocol.MovementBlocked{Reason: protocol.BlockedRegeneration})
		case game.MoveBlockedObstacle:
			return writeEvent(conn, protocol.MsgMovementBlocked,
				protocol.MovementBlocked{Reason: protocol.BlockedObstacle})
		}
		return nil

	default:
		slog.Warn("dropping frame with unknown type", "session", sessionID, "type", env.T)
		return nil
	}
}

func (m *Manager) subscribe(subject string, msgs chan []byte) (func(), error) {
	unsub, err := m.sub.Subscribe(subject, func(data []byte) {
		select {
		case msgs <- data:
		default:
			// Slow consumer: drop rather than block the broker.
		}
	})
	if err != nil {
		return nil, fmt.Errorf("subscribing to %q: %w", subject, err)
	}
	return unsub, nil
}

// evictionNotice words the parting announcement for a forced disconnect.
func evictionNotice(reason game.EvictionReason) string {
	switch reason {
	case game.EvictedAccountDeleted:
		return "Your account has been deleted."
	case game.EvictedReset:
		return "The world has been reset. Please rejoin."
	default:
		return "Another connection has taken over your session."
	}
}

func writeEvent(conn *websocket.Conn, event string, payload any) error {
	data, err := protocol.Encode(event, payload)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", event, err)
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}
