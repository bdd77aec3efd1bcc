package listener

import (
	"context"
	"log/slog"

	"github.com/gorilla/websocket"

	"gridhunter/internal/player"
)

type ConnectionManager struct {
	pm *player.Manager
}

func NewConnectionManager(pm *player.Manager) *ConnectionManager {
	return &ConnectionManager{
		pm: pm,
	}
}

func (m *ConnectionManager) AcceptConnection(ctx context.Context, conn *websocket.Conn, origin string) {
	if err := m.pm.RunSession(ctx, conn, origin); err != nil {
		slog.WarnContext(ctx, "player session", "error", err)
	}
}
